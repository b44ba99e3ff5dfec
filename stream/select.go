package stream

import (
	"sort"

	"github.com/kbukum/tuplestream/errors"
	"github.com/kbukum/tuplestream/expr"
	"github.com/kbukum/tuplestream/tuple"
)

// Select projects and renames fields. Fields that are neither kept nor
// renamed are dropped, so a Select with no options yields empty tuples.
type Select struct {
	upstream Builder
	keep     []string
	renames  map[string]string
}

// SelectOption configures a Select.
type SelectOption func(*Select)

// Keep retains fields under their own names.
func Keep(fields ...string) SelectOption {
	return func(s *Select) { s.keep = append(s.keep, fields...) }
}

// Rename retains each key field under the mapped name.
func Rename(renames map[string]string) SelectOption {
	return func(s *Select) {
		for from, to := range renames {
			s.renames[from] = to
		}
	}
}

// NewSelect wraps upstream.
func NewSelect(upstream Builder, opts ...SelectOption) *Select {
	s := &Select{upstream: upstream, renames: make(map[string]string)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Collection is the upstream collection.
func (s *Select) Collection() string { return collectionOf(s.upstream) }

// SortKey is the upstream sort with renames applied, cut at the first dropped field.
func (s *Select) SortKey() tuple.Sort {
	return sortOf(s.upstream).Rename(func(name string) (string, bool) {
		for _, k := range s.keep {
			if k == name {
				return name, true
			}
		}
		to, ok := s.renames[name]
		return to, ok
	})
}

// Build renders select with the kept fields followed by the renames.
func (s *Select) Build() (*expr.Expression, error) {
	up, err := buildChild(FuncSelect, s.upstream)
	if err != nil {
		return nil, err
	}
	params := []expr.Param{expr.Sub(up)}
	outputs := make(map[string]bool)
	add := func(param, out string) error {
		if outputs[out] {
			return errors.InvalidStream("select: field %q selected twice", out)
		}
		outputs[out] = true
		params = append(params, expr.Value(param))
		return nil
	}
	for _, k := range s.keep {
		if k == "" {
			return nil, errors.InvalidStream("select: empty field name")
		}
		if err := add(k, k); err != nil {
			return nil, err
		}
	}
	froms := make([]string, 0, len(s.renames))
	for from := range s.renames {
		froms = append(froms, from)
	}
	sort.Strings(froms)
	for _, from := range froms {
		to := s.renames[from]
		if from == "" || to == "" {
			return nil, errors.InvalidStream("select: rename %q to %q needs both names", from, to)
		}
		if err := add(from+SelectAs+to, to); err != nil {
			return nil, err
		}
	}
	return expr.New(FuncSelect, params...), nil
}

func (s *Select) children() []Builder { return []Builder{s.upstream} }

func (s *Select) checkContract() error { return nil }
