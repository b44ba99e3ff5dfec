package engine

import (
	"context"
	"strings"

	"github.com/kbukum/tuplestream/errors"
	"github.com/kbukum/tuplestream/expr"
	"github.com/kbukum/tuplestream/pipeline"
	"github.com/kbukum/tuplestream/stream"
	"github.com/kbukum/tuplestream/tuple"
)

// contract defers a sort-contract violation to the first pull of p.
func contract(p *pipeline.Pipeline[tuple.Tuple], violation error) *pipeline.Pipeline[tuple.Tuple] {
	if violation == nil {
		return p
	}
	return pipeline.Fail[tuple.Tuple](errors.StreamFailure(violation))
}

func byField(field string) func(a, b tuple.Tuple) int {
	return func(a, b tuple.Tuple) int { return tuple.CompareField(a, b, field) }
}

func sameField(field string) func(a, b tuple.Tuple) bool {
	return func(a, b tuple.Tuple) bool { return tuple.CompareField(a, b, field) == 0 }
}

func (e *Engine) intersect(c call) (*node, error) {
	if err := c.only(stream.ParamOn); err != nil {
		return nil, err
	}
	on, err := c.required(stream.ParamOn)
	if err != nil {
		return nil, err
	}
	subs, err := c.streams(2)
	if err != nil {
		return nil, err
	}
	left, err := e.compile(subs[0])
	if err != nil {
		return nil, err
	}
	right, err := e.compile(subs[1])
	if err != nil {
		return nil, err
	}

	var violation error
	switch {
	case !left.sort.LeadsAscending(on):
		violation = errors.StreamFailuref("intersect: left stream must be sorted by %s asc, got %q", on, left.sort.String())
	case !right.sort.LeadsAscending(on):
		violation = errors.StreamFailuref("intersect: right stream must be sorted by %s asc, got %q", on, right.sort.String())
	}
	return &node{
		pipe: contract(pipeline.Intersect(left.pipe, right.pipe, byField(on)), violation),
		sort: left.sort,
	}, nil
}

func (e *Engine) reduce(c call) (*node, error) {
	if err := c.only(stream.ParamBy); err != nil {
		return nil, err
	}
	by, err := c.required(stream.ParamBy)
	if err != nil {
		return nil, err
	}
	subs, err := c.streams(2)
	if err != nil {
		return nil, err
	}
	var upstream, group *expr.Expression
	for _, s := range subs {
		if s.Function == stream.FuncGroup {
			group = s
		} else {
			upstream = s
		}
	}
	if upstream == nil || group == nil {
		return nil, c.errorf("expected one stream and one group(...) operation")
	}

	g := call{group}
	if err := g.only(stream.ParamSort, stream.ParamN); err != nil {
		return nil, err
	}
	groupSortSpec, err := g.required(stream.ParamSort)
	if err != nil {
		return nil, err
	}
	groupSort, err := tuple.ParseSort(groupSortSpec)
	if err != nil {
		return nil, g.errorf("%v", err)
	}
	n, err := g.count(stream.ParamN, 0, 1)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, g.errorf("parameter %q is required", stream.ParamN)
	}

	up, err := e.compile(upstream)
	if err != nil {
		return nil, err
	}

	var violation error
	switch {
	case groupSort[0].Name != by:
		violation = errors.StreamFailuref("reduce: group sort field %q differs from by field %q", groupSort[0].Name, by)
	case !up.sort.Leads(by):
		violation = errors.StreamFailuref("reduce: upstream must be sorted by %s, got %q", by, up.sort.String())
	}
	return &node{
		pipe: contract(pipeline.TopPerRun(up.pipe, sameField(by), n), violation),
		sort: up.sort,
	}, nil
}

func (e *Engine) unique(c call) (*node, error) {
	if err := c.only(stream.ParamOver); err != nil {
		return nil, err
	}
	over, err := c.required(stream.ParamOver)
	if err != nil {
		return nil, err
	}
	subs, err := c.streams(1)
	if err != nil {
		return nil, err
	}
	up, err := e.compile(subs[0])
	if err != nil {
		return nil, err
	}

	var violation error
	if !up.sort.Leads(over) {
		violation = errors.StreamFailuref("unique: upstream must be sorted by %s, got %q", over, up.sort.String())
	}
	return &node{
		pipe: contract(pipeline.TopPerRun(up.pipe, sameField(over), 1), violation),
		sort: up.sort,
	}, nil
}

func (e *Engine) cartesianProduct(c call) (*node, error) {
	if err := c.only(); err != nil {
		return nil, err
	}
	subs, err := c.streams(1)
	if err != nil {
		return nil, err
	}
	up, err := e.compile(subs[0])
	if err != nil {
		return nil, err
	}
	fields := c.x.Values()
	if len(fields) == 0 {
		return up, nil
	}
	expanded := make(map[string]bool, len(fields))
	for _, f := range fields {
		expanded[f] = true
	}

	return &node{
		pipe: pipeline.FlatMap(up.pipe, func(ctx context.Context, t tuple.Tuple) (pipeline.Iterator[tuple.Tuple], error) {
			return pipeline.FromSlice(expand(t, fields)).Iter(ctx), nil
		}),
		sort: up.sort.Rename(func(name string) (string, bool) { return name, !expanded[name] }),
	}, nil
}

// expand returns one tuple per combination of the values of fields, the first
// field varying slowest. A missing field or empty list yields nothing.
func expand(t tuple.Tuple, fields []string) []tuple.Tuple {
	out := []tuple.Tuple{t}
	for _, f := range fields {
		v, ok := t.Get(f)
		if !ok {
			return nil
		}
		values := []any{v}
		if list, isList := v.([]string); isList {
			values = values[:0]
			for _, s := range list {
				values = append(values, s)
			}
		}
		next := make([]tuple.Tuple, 0, len(out)*len(values))
		for _, partial := range out {
			for _, val := range values {
				next = append(next, partial.With(f, val))
			}
		}
		out = next
	}
	return out
}

type projection struct {
	from, to string
}

func (e *Engine) selectFields(c call) (*node, error) {
	if err := c.only(); err != nil {
		return nil, err
	}
	subs, err := c.streams(1)
	if err != nil {
		return nil, err
	}
	up, err := e.compile(subs[0])
	if err != nil {
		return nil, err
	}

	var cols []projection
	outputs := make(map[string]bool)
	for _, v := range c.x.Values() {
		p := projection{from: strings.TrimSpace(v)}
		p.to = p.from
		if from, to, ok := strings.Cut(v, stream.SelectAs); ok {
			p.from, p.to = strings.TrimSpace(from), strings.TrimSpace(to)
		}
		if p.from == "" || p.to == "" {
			return nil, c.errorf("invalid field %q", v)
		}
		if outputs[p.to] {
			return nil, c.errorf("field %q selected twice", p.to)
		}
		outputs[p.to] = true
		cols = append(cols, p)
	}

	return &node{
		pipe: pipeline.Map(up.pipe, func(_ context.Context, t tuple.Tuple) (tuple.Tuple, error) {
			fields := make([]tuple.Field, 0, len(cols))
			for _, p := range cols {
				if v, ok := t.Get(p.from); ok {
					fields = append(fields, tuple.F(p.to, v))
				}
			}
			return tuple.New(fields...), nil
		}),
		sort: up.sort.Rename(func(name string) (string, bool) {
			for _, p := range cols {
				if p.from == name && p.to == name {
					return name, true
				}
			}
			for _, p := range cols {
				if p.from == name {
					return p.to, true
				}
			}
			return "", false
		}),
	}, nil
}
