package store

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	_ "modernc.org/sqlite"

	"github.com/kbukum/tuplestream/errors"
	"github.com/kbukum/tuplestream/logger"
	"github.com/kbukum/tuplestream/observability"
	"github.com/kbukum/tuplestream/tuple"
)

// FieldID is the document field used as the primary key within a collection.
const FieldID = "id"

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	seq        INTEGER PRIMARY KEY AUTOINCREMENT,
	collection TEXT NOT NULL,
	id         TEXT NOT NULL,
	body       TEXT NOT NULL,
	UNIQUE (collection, id)
);
CREATE INDEX IF NOT EXISTS documents_collection ON documents (collection, seq);
`

// Store is a SQLite-backed document store. It is safe for concurrent use.
type Store struct {
	db        *sql.DB
	stbl      sq.StatementBuilderType
	log       *logger.Logger
	collector prometheus.Collector
	reg       prometheus.Registerer
}

var _ observability.HealthChecker = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithRegisterer exports connection pool statistics to reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(s *Store) { s.reg = reg }
}

// Open opens the database and creates the schema if needed.
func Open(ctx context.Context, cfg Config, opts ...Option) (*Store, error) {
	cfg.ApplyDefaults()
	dsn, err := PrepareDSN(cfg.Path)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.DatabaseError(fmt.Errorf("open sqlite: %w", err))
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, errors.DatabaseError(fmt.Errorf("create schema: %w", err))
	}

	s := &Store{
		db:   db,
		stbl: sq.StatementBuilder.RunWith(db),
		log:  logger.Get("store"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.reg != nil {
		s.collector = collectors.NewDBStatsCollector(db, "tuplestream")
		if err := s.reg.Register(s.collector); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("store: register metrics: %w", err)
		}
	}
	s.log.Info("store opened", logger.Fields("path", cfg.Path))
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.collector != nil {
		s.reg.Unregister(s.collector)
	}
	return s.db.Close()
}

// Index inserts docs into collection in order, replacing documents with the
// same id. Documents without an id get a random one. It returns the number
// of documents written.
func (s *Store) Index(ctx context.Context, collection string, docs []tuple.Tuple) (int, error) {
	if collection == "" {
		return 0, errors.MissingField("collection")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, errors.DatabaseError(err)
	}
	defer func() { _ = tx.Rollback() }()

	for i, doc := range docs {
		id := doc.String(FieldID)
		if id == "" {
			id = uuid.NewString()
			doc = doc.With(FieldID, id)
		}
		body, err := doc.MarshalJSON()
		if err != nil {
			return 0, errors.InvalidInput(fmt.Sprintf("docs[%d]", i), err.Error())
		}
		_, err = sq.Insert("documents").
			Columns("collection", "id", "body").
			Values(collection, id, string(body)).
			Suffix("ON CONFLICT (collection, id) DO UPDATE SET body = excluded.body").
			RunWith(tx).
			ExecContext(ctx)
		if err != nil {
			return 0, errors.DatabaseError(fmt.Errorf("index %s/%s: %w", collection, id, err))
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, errors.DatabaseError(err)
	}
	s.log.Debug("indexed documents", logger.Fields(logger.FieldCollection, collection, "count", len(docs)))
	return len(docs), nil
}

// Collections returns the names of the non-empty collections, sorted.
func (s *Store) Collections(ctx context.Context) ([]string, error) {
	rows, err := s.stbl.Select("collection").Distinct().
		From("documents").
		OrderBy("collection").
		QueryContext(ctx)
	if err != nil {
		return nil, errors.DatabaseError(err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, errors.DatabaseError(err)
		}
		out = append(out, name)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.DatabaseError(err)
	}
	return out, nil
}

// Count returns the number of documents in collection.
func (s *Store) Count(ctx context.Context, collection string) (int64, error) {
	var n int64
	err := s.stbl.Select("COUNT(*)").
		From("documents").
		Where(sq.Eq{"collection": collection}).
		QueryRowContext(ctx).
		Scan(&n)
	if err != nil {
		return 0, errors.DatabaseError(err)
	}
	return n, nil
}

// CheckHealth pings the database.
func (s *Store) CheckHealth(ctx context.Context) observability.Health {
	return observability.PingCheck("store", s.db.PingContext).CheckHealth(ctx)
}
