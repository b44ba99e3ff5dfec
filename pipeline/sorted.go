package pipeline

import (
	"context"
	"errors"
	"fmt"
)

// ErrOutOfOrder is returned by sorted operators when an input breaks the
// order it was declared to follow.
var ErrOutOfOrder = errors.New("pipeline: input out of order")

// Intersect emits the values of a whose key also occurs in b. Both inputs must
// be ascending under cmp. Every value of a in a matching run is emitted; b is
// only tested for membership.
func Intersect[T any](a, b *Pipeline[T], cmp func(x, y T) int) *Pipeline[T] {
	return &Pipeline[T]{
		create: func(ctx context.Context) Iterator[T] {
			return &intersectIter[T]{
				left:  &orderedIter[T]{source: a.create(ctx), cmp: cmp, side: "left"},
				right: &orderedIter[T]{source: b.create(ctx), cmp: cmp, side: "right"},
				cmp:   cmp,
			}
		},
	}
}

// TopPerRun keeps the first n values of each run of adjacent values that are
// equal under same. TopPerRun(p, same, 1) drops adjacent duplicates.
func TopPerRun[T any](p *Pipeline[T], same func(x, y T) bool, n int) *Pipeline[T] {
	return &Pipeline[T]{
		create: func(ctx context.Context) Iterator[T] {
			return &runIter[T]{source: p.create(ctx), same: same, limit: n}
		},
	}
}

// CheckOrder passes values through unchanged and fails with ErrOutOfOrder as
// soon as a value compares below its predecessor.
func CheckOrder[T any](p *Pipeline[T], cmp func(x, y T) int) *Pipeline[T] {
	return &Pipeline[T]{
		create: func(ctx context.Context) Iterator[T] {
			return &orderedIter[T]{source: p.create(ctx), cmp: cmp}
		},
	}
}

type orderedIter[T any] struct {
	source Iterator[T]
	cmp    func(x, y T) int
	side   string
	prev   T
	seen   bool
}

func (it *orderedIter[T]) Next(ctx context.Context) (T, bool, error) {
	val, ok, err := it.source.Next(ctx)
	if err != nil || !ok {
		return val, false, err
	}
	if it.seen && it.cmp(it.prev, val) > 0 {
		var zero T
		if it.side != "" {
			return zero, false, fmt.Errorf("%w: %s input went backwards", ErrOutOfOrder, it.side)
		}
		return zero, false, ErrOutOfOrder
	}
	it.prev, it.seen = val, true
	return val, true, nil
}

func (it *orderedIter[T]) Close() error { return it.source.Close() }

type intersectIter[T any] struct {
	left, right Iterator[T]
	cmp         func(x, y T) int

	head    T
	started bool
	done    bool
}

func (it *intersectIter[T]) Next(ctx context.Context) (T, bool, error) {
	var zero T
	if it.done {
		return zero, false, nil
	}
	if !it.started {
		it.started = true
		if err := it.advance(ctx); err != nil || it.done {
			return zero, false, err
		}
	}
	for {
		val, ok, err := it.left.Next(ctx)
		if err != nil {
			return zero, false, err
		}
		if !ok {
			it.done = true
			return zero, false, nil
		}
		for it.cmp(it.head, val) < 0 {
			if err := it.advance(ctx); err != nil {
				return zero, false, err
			}
			if it.done {
				return zero, false, nil
			}
		}
		if it.cmp(it.head, val) == 0 {
			return val, true, nil
		}
	}
}

// advance moves the right-hand head forward, marking the intersection done
// when the right input is exhausted.
func (it *intersectIter[T]) advance(ctx context.Context) error {
	val, ok, err := it.right.Next(ctx)
	if err != nil {
		return err
	}
	if !ok {
		it.done = true
		return nil
	}
	it.head = val
	return nil
}

func (it *intersectIter[T]) Close() error {
	return errors.Join(it.left.Close(), it.right.Close())
}

type runIter[T any] struct {
	source Iterator[T]
	same   func(x, y T) bool
	limit  int

	first T
	count int
}

func (it *runIter[T]) Next(ctx context.Context) (T, bool, error) {
	for {
		val, ok, err := it.source.Next(ctx)
		if err != nil || !ok {
			return val, false, err
		}
		if it.count == 0 || !it.same(it.first, val) {
			it.first, it.count = val, 0
		}
		it.count++
		if it.count <= it.limit {
			return val, true, nil
		}
	}
}

func (it *runIter[T]) Close() error { return it.source.Close() }
