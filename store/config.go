package store

import (
	"fmt"
	"net/url"
	"strings"
)

const defaultPath = "tuplestream.db"

// Config configures the document store.
type Config struct {
	// Path is the database file, optionally with a query string of driver
	// parameters.
	Path string `yaml:"path" mapstructure:"path"`
	// MaxOpenConns caps open connections. Every open search cursor holds one.
	MaxOpenConns int `yaml:"max_open_conns" mapstructure:"max_open_conns"`
}

// ApplyDefaults fills in zero-value fields.
func (c *Config) ApplyDefaults() {
	if c.Path == "" {
		c.Path = defaultPath
	}
	if c.MaxOpenConns <= 0 {
		c.MaxOpenConns = 16
	}
}

// PrepareDSN adds journal mode, busy timeout and transaction lock defaults
// to path unless it already sets them.
func PrepareDSN(path string) (string, error) {
	query := url.Values{}
	if i := strings.Index(path, "?"); i != -1 {
		var err error
		if query, err = url.ParseQuery(path[i+1:]); err != nil {
			return "", fmt.Errorf("store: parse dsn: %w", err)
		}
		path = path[:i]
	}

	var journal, busy bool
	for _, p := range query["_pragma"] {
		journal = journal || strings.HasPrefix(p, "journal_mode")
		busy = busy || strings.HasPrefix(p, "busy_timeout")
	}
	if !journal {
		query.Add("_pragma", "journal_mode(WAL)")
	}
	if !busy {
		query.Add("_pragma", "busy_timeout(5000)")
	}
	if !query.Has("_txlock") {
		query.Set("_txlock", "immediate")
	}
	return "file:" + strings.TrimPrefix(path, "file:") + "?" + query.Encode(), nil
}
