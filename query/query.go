// Package query describes what a search source selects: terms, filter
// queries, the projected field list, the sort and a row cap.
package query

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kbukum/tuplestream/errors"
	"github.com/kbukum/tuplestream/tuple"
	"github.com/kbukum/tuplestream/validation"
)

// MatchAll is the field name of a term that matches every document.
const MatchAll = "*"

// Term matches documents whose field equals one of Values. For multi-valued
// fields any element may match.
type Term struct {
	Field  string   `json:"field" validate:"required"`
	Values []string `json:"values,omitempty"`
}

// All returns the match-all term.
func All() Term { return Term{Field: MatchAll} }

// Is returns a term matching field against any of values.
func Is(field string, values ...string) Term {
	return Term{Field: field, Values: append([]string(nil), values...)}
}

// IsMatchAll reports whether the term matches every document.
func (t Term) IsMatchAll() bool { return t.Field == MatchAll }

// String renders field:("v1" OR "v2").
func (t Term) String() string {
	if t.IsMatchAll() {
		return "*:*"
	}
	quoted := make([]string, len(t.Values))
	for i, v := range t.Values {
		quoted[i] = strconv.Quote(v)
	}
	return t.Field + ":(" + strings.Join(quoted, " OR ") + ")"
}

// Query is an opaque search descriptor.
type Query struct {
	Collection string     `json:"collection" validate:"required"`
	Terms      []Term     `json:"terms,omitempty" validate:"dive"`
	Filters    []Term     `json:"filters,omitempty" validate:"dive"`
	Fields     []string   `json:"fields,omitempty"`
	Sort       tuple.Sort `json:"sort,omitempty"`
	Rows       int        `json:"rows" validate:"gte=0"`
}

// Q renders the main query. An empty term list renders as match-all.
func (q Query) Q() string { return renderTerms(q.Terms) }

// FQ renders the filter queries, or "" when there are none.
func (q Query) FQ() string {
	if len(q.Filters) == 0 {
		return ""
	}
	return renderTerms(q.Filters)
}

// FieldList renders the projected fields as "a,b,c".
func (q Query) FieldList() string { return strings.Join(q.Fields, ",") }

// HasField reports whether name is projected.
func (q Query) HasField(name string) bool {
	for _, f := range q.Fields {
		if f == name {
			return true
		}
	}
	return false
}

// Validate checks the structural tags and reports failures as INVALID_STREAM.
func (q Query) Validate() error {
	return validation.ValidateWithCode(q, errors.ErrCodeInvalidStream)
}

// With returns a copy of q with additional filter terms.
func (q Query) With(filters ...Term) Query {
	out := q
	out.Filters = append(append([]Term(nil), q.Filters...), filters...)
	return out
}

func renderTerms(terms []Term) string {
	if len(terms) == 0 {
		return "*:*"
	}
	parts := make([]string, len(terms))
	for i, t := range terms {
		parts[i] = t.String()
	}
	return strings.Join(parts, " AND ")
}

// ParseTerms parses the rendered form of Q or FQ back into terms. Match-all
// clauses are dropped, so "*:*" yields no terms.
func ParseTerms(s string) ([]Term, error) {
	p := &termParser{src: s}
	var out []Term
	for {
		p.skipSpace()
		if p.eof() {
			return out, nil
		}
		if len(out) > 0 || p.matchedAll {
			if !p.consumeWord("AND") {
				return nil, p.errorf("expected AND")
			}
			p.skipSpace()
		}
		t, err := p.term()
		if err != nil {
			return nil, err
		}
		if t.IsMatchAll() {
			p.matchedAll = true
			continue
		}
		out = append(out, t)
	}
}

type termParser struct {
	src        string
	pos        int
	matchedAll bool
}

func (p *termParser) eof() bool { return p.pos >= len(p.src) }

func (p *termParser) errorf(format string, args ...any) error {
	return fmt.Errorf("query: %s at offset %d", fmt.Sprintf(format, args...), p.pos)
}

func (p *termParser) skipSpace() {
	for !p.eof() && p.src[p.pos] == ' ' {
		p.pos++
	}
}

func (p *termParser) consumeWord(w string) bool {
	if strings.HasPrefix(p.src[p.pos:], w+" ") {
		p.pos += len(w) + 1
		return true
	}
	return false
}

func (p *termParser) term() (Term, error) {
	if strings.HasPrefix(p.src[p.pos:], "*:*") {
		p.pos += 3
		return All(), nil
	}
	colon := strings.IndexByte(p.src[p.pos:], ':')
	if colon <= 0 {
		return Term{}, p.errorf("expected field name")
	}
	field := p.src[p.pos : p.pos+colon]
	p.pos += colon + 1
	if p.eof() {
		return Term{}, p.errorf("missing value for %s", field)
	}
	if p.src[p.pos] != '(' {
		v, err := p.value()
		if err != nil {
			return Term{}, err
		}
		return Is(field, v), nil
	}
	p.pos++
	var values []string
	for {
		p.skipSpace()
		if !p.eof() && p.src[p.pos] == ')' {
			p.pos++
			return Term{Field: field, Values: values}, nil
		}
		if len(values) > 0 && !p.consumeWord("OR") {
			return Term{}, p.errorf("expected OR")
		}
		p.skipSpace()
		v, err := p.value()
		if err != nil {
			return Term{}, err
		}
		values = append(values, v)
	}
}

func (p *termParser) value() (string, error) {
	if p.eof() {
		return "", p.errorf("unexpected end of input")
	}
	if p.src[p.pos] == '"' {
		quoted, err := strconv.QuotedPrefix(p.src[p.pos:])
		if err != nil {
			return "", p.errorf("bad quoted value")
		}
		p.pos += len(quoted)
		return strconv.Unquote(quoted)
	}
	start := p.pos
	for !p.eof() && p.src[p.pos] != ' ' && p.src[p.pos] != ')' {
		p.pos++
	}
	if start == p.pos {
		return "", p.errorf("empty value")
	}
	return p.src[start:p.pos], nil
}
