package expr

import (
	"strconv"
	"strings"

	"github.com/kbukum/tuplestream/errors"
)

// Parse reads the wire form of an expression. Errors are INVALID_STREAM.
func Parse(s string) (*Expression, error) {
	p := &parser{src: s}
	e, err := p.expression()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if !p.eof() {
		return nil, p.errorf("unexpected %q after expression", p.src[p.pos:])
	}
	return e, nil
}

type parser struct {
	src string
	pos int
}

func (p *parser) eof() bool { return p.pos >= len(p.src) }

func (p *parser) peek() byte {
	if p.eof() {
		return 0
	}
	return p.src[p.pos]
}

func (p *parser) errorf(format string, args ...any) error {
	return errors.InvalidStream("expr: "+format, args...).WithDetail("offset", p.pos)
}

func (p *parser) skipSpace() {
	for !p.eof() && strings.IndexByte(" \t\r\n", p.src[p.pos]) >= 0 {
		p.pos++
	}
}

func isIdent(c byte) bool {
	return c == '_' || c == '.' || c == '-' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func (p *parser) ident() string {
	start := p.pos
	for !p.eof() && isIdent(p.src[p.pos]) {
		p.pos++
	}
	return p.src[start:p.pos]
}

func (p *parser) expression() (*Expression, error) {
	p.skipSpace()
	name := p.ident()
	if name == "" {
		return nil, p.errorf("expected function name")
	}
	p.skipSpace()
	if p.peek() != '(' {
		return nil, p.errorf("expected ( after %s", name)
	}
	p.pos++
	e := &Expression{Function: name}
	p.skipSpace()
	if p.peek() == ')' {
		p.pos++
		return e, nil
	}
	for {
		param, err := p.param()
		if err != nil {
			return nil, err
		}
		e.Params = append(e.Params, param)
		p.skipSpace()
		switch p.peek() {
		case ',':
			p.pos++
		case ')':
			p.pos++
			return e, nil
		default:
			return nil, p.errorf("expected , or ) in %s", name)
		}
	}
}

func (p *parser) param() (Param, error) {
	p.skipSpace()
	if p.peek() == '"' {
		v, err := p.quoted()
		return Value(v), err
	}
	start := p.pos
	name := p.ident()
	if name != "" {
		p.skipSpace()
		switch p.peek() {
		case '(':
			p.pos = start
			e, err := p.expression()
			if err != nil {
				return Param{}, err
			}
			return Sub(e), nil
		case '=':
			p.pos++
			p.skipSpace()
			v, err := p.value()
			if err != nil {
				return Param{}, err
			}
			return Pair(name, v), nil
		}
	}
	p.pos = start
	v, err := p.value()
	return Value(v), err
}

func (p *parser) value() (string, error) {
	if p.peek() == '"' {
		return p.quoted()
	}
	start := p.pos
	for !p.eof() && p.src[p.pos] != ',' && p.src[p.pos] != ')' {
		if p.src[p.pos] == '(' || p.src[p.pos] == '"' {
			return "", p.errorf("unexpected %q in bare value", p.src[p.pos])
		}
		p.pos++
	}
	v := strings.TrimSpace(p.src[start:p.pos])
	if v == "" {
		return "", p.errorf("empty value")
	}
	return v, nil
}

func (p *parser) quoted() (string, error) {
	q, err := strconv.QuotedPrefix(p.src[p.pos:])
	if err != nil {
		return "", p.errorf("unterminated string")
	}
	p.pos += len(q)
	return strconv.Unquote(q)
}
