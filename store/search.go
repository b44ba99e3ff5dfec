package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/kbukum/tuplestream/errors"
	"github.com/kbukum/tuplestream/logger"
	"github.com/kbukum/tuplestream/observability"
	"github.com/kbukum/tuplestream/pipeline"
	"github.com/kbukum/tuplestream/query"
	"github.com/kbukum/tuplestream/tuple"
)

// Search streams the documents of q.Collection matching q's terms and
// filters, ordered by q.Sort with ties in insertion order and projected onto
// q.Fields. Rows > 0 caps the result. The cursor holds a connection until it
// is closed.
func (s *Store) Search(ctx context.Context, q query.Query) (pipeline.Iterator[tuple.Tuple], error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	ctx, span := observability.StartSpan(ctx, observability.SpanStoreQuery)
	defer span.End()
	observability.SetSpanAttribute(ctx, observability.AttrCollection, q.Collection)

	sb := s.stbl.Select("d.body").
		From("documents d").
		Where(matching("d", q))
	for _, f := range q.Sort {
		sb = sb.OrderByClause(orderClause("d", f), jsonPath(f.Name))
	}
	sb = sb.OrderBy("d.seq ASC")
	if q.Rows > 0 {
		sb = sb.Limit(uint64(q.Rows))
	}

	rows, err := sb.QueryContext(ctx)
	if err != nil {
		observability.SetSpanError(ctx, err)
		return nil, errors.DatabaseError(fmt.Errorf("search %s: %w", q.Collection, err))
	}
	s.log.Debug("search opened", logger.Fields(logger.FieldCollection, q.Collection, "q", q.Q(), "fq", q.FQ()))
	return &rowIterator{rows: rows, fields: q.Fields}, nil
}

// rowIterator decodes one document per row.
type rowIterator struct {
	rows   *sql.Rows
	fields []string
}

func (it *rowIterator) Next(_ context.Context) (tuple.Tuple, bool, error) {
	if !it.rows.Next() {
		if err := it.rows.Err(); err != nil {
			return tuple.Tuple{}, false, errors.DatabaseError(err)
		}
		return tuple.Tuple{}, false, nil
	}
	var body string
	if err := it.rows.Scan(&body); err != nil {
		return tuple.Tuple{}, false, errors.DatabaseError(err)
	}
	var doc tuple.Tuple
	if err := doc.UnmarshalJSON([]byte(body)); err != nil {
		return tuple.Tuple{}, false, errors.DatabaseError(fmt.Errorf("decode document: %w", err))
	}
	if len(it.fields) > 0 {
		doc = doc.Select(it.fields...)
	}
	return doc, true, nil
}

func (it *rowIterator) Close() error {
	return it.rows.Close()
}

// matching builds the WHERE clause for q against the table aliased alias.
func matching(alias string, q query.Query) sq.And {
	where := sq.And{sq.Eq{alias + ".collection": q.Collection}}
	for _, t := range append(append([]query.Term(nil), q.Terms...), q.Filters...) {
		if t.IsMatchAll() {
			continue
		}
		where = append(where, termPredicate(alias, t))
	}
	return where
}

// termPredicate matches when the field, or any element of a list field,
// equals one of the term's values.
func termPredicate(alias string, t query.Term) sq.Sqlizer {
	if len(t.Values) == 0 {
		return sq.Expr("0")
	}
	args := make([]any, 0, len(t.Values)+1)
	args = append(args, jsonPath(t.Field))
	for _, v := range t.Values {
		args = append(args, v)
	}
	return sq.Expr(
		"EXISTS (SELECT 1 FROM json_each("+alias+".body, ?) WHERE json_each.type != 'null' AND "+
			textValue("json_each")+" IN ("+sq.Placeholders(len(t.Values))+"))",
		args...,
	)
}

// textValue renders a json_each value as text, with booleans spelled out.
func textValue(table string) string {
	return "CASE " + table + ".type WHEN 'true' THEN 'true' WHEN 'false' THEN 'false' ELSE CAST(" +
		table + ".value AS TEXT) END"
}

func orderClause(alias string, f tuple.SortField) string {
	if f.Order == tuple.Desc {
		return "json_extract(" + alias + ".body, ?) DESC"
	}
	return "json_extract(" + alias + ".body, ?) ASC"
}

// jsonPath quotes name as a single-key JSON path.
func jsonPath(name string) string {
	return `$."` + strings.ReplaceAll(name, `"`, `\"`) + `"`
}
