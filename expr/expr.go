// Package expr models streaming expressions: function calls whose parameters
// are nested expressions, bare values, or name=value pairs. The textual form
// is what travels to the backend.
package expr

import (
	"strconv"
	"strings"
)

// Param is one parameter of an expression. Exactly one of Expr and Value is
// meaningful; Name is set for name=value pairs.
type Param struct {
	Name  string      `json:"name,omitempty"`
	Value string      `json:"value,omitempty"`
	Expr  *Expression `json:"expr,omitempty"`
}

// Value returns a positional bare value.
func Value(v string) Param { return Param{Value: v} }

// Sub returns a positional nested expression.
func Sub(e *Expression) Param { return Param{Expr: e} }

// Pair returns a name=value parameter.
func Pair(name, value string) Param { return Param{Name: name, Value: value} }

// IsNamed reports whether p is a name=value pair.
func (p Param) IsNamed() bool { return p.Name != "" }

// Expression is a function applied to parameters.
type Expression struct {
	Function string  `json:"function"`
	Params   []Param `json:"params,omitempty"`
}

// New creates an expression.
func New(function string, params ...Param) *Expression {
	return &Expression{Function: function, Params: params}
}

// Named returns the value of the first name=value parameter called name.
func (e *Expression) Named(name string) (string, bool) {
	for _, p := range e.Params {
		if p.Name == name {
			return p.Value, true
		}
	}
	return "", false
}

// Positional returns the parameters that are not name=value pairs, in order.
func (e *Expression) Positional() []Param {
	var out []Param
	for _, p := range e.Params {
		if !p.IsNamed() {
			out = append(out, p)
		}
	}
	return out
}

// Subexpressions returns the positional nested expressions, in order.
func (e *Expression) Subexpressions() []*Expression {
	var out []*Expression
	for _, p := range e.Params {
		if !p.IsNamed() && p.Expr != nil {
			out = append(out, p.Expr)
		}
	}
	return out
}

// Values returns the positional bare values, in order.
func (e *Expression) Values() []string {
	var out []string
	for _, p := range e.Params {
		if !p.IsNamed() && p.Expr == nil {
			out = append(out, p.Value)
		}
	}
	return out
}

// String renders the wire form.
func (e *Expression) String() string {
	var b strings.Builder
	e.write(&b)
	return b.String()
}

func (e *Expression) write(b *strings.Builder) {
	b.WriteString(e.Function)
	b.WriteByte('(')
	for i, p := range e.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		switch {
		case p.Expr != nil:
			p.Expr.write(b)
		case p.IsNamed():
			b.WriteString(p.Name)
			b.WriteByte('=')
			b.WriteString(namedValue(p.Value))
		default:
			b.WriteString(positionalValue(p.Value))
		}
	}
	b.WriteByte(')')
}

// Named values are quoted unless numeric.
func namedValue(v string) string {
	if _, err := strconv.ParseFloat(v, 64); err == nil {
		return v
	}
	return strconv.Quote(v)
}

func positionalValue(v string) string {
	if v == "" || strings.TrimSpace(v) != v || strings.ContainsAny(v, ",()=\"\\\n\t") {
		return strconv.Quote(v)
	}
	return v
}
