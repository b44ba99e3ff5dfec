package pipeline

import "context"

// Iterator is a pull-based, single-pass sequence.
type Iterator[T any] interface {
	// Next returns the next value, or ok=false once exhausted. After an
	// error, callers stop pulling and Close.
	Next(ctx context.Context) (T, bool, error)
	// Close releases the iterator's resources. It is safe to call on an
	// iterator that was never pulled.
	Close() error
}

// Pipeline is a lazy description of an iterator. Nothing is opened until
// Iter, Collect or ForEach is called.
type Pipeline[T any] struct {
	create func(ctx context.Context) Iterator[T]
}

// From wraps an existing iterator. The pipeline is single use.
func From[T any](iter Iterator[T]) *Pipeline[T] {
	return &Pipeline[T]{create: func(context.Context) Iterator[T] { return iter }}
}

// FromSlice yields items in order.
func FromSlice[T any](items []T) *Pipeline[T] {
	return &Pipeline[T]{create: func(context.Context) Iterator[T] {
		return &sliceIter[T]{items: items}
	}}
}

// Lazy defers open until the first pull. An error from open is returned by
// that pull and every one after it.
func Lazy[T any](open func(ctx context.Context) (Iterator[T], error)) *Pipeline[T] {
	return &Pipeline[T]{create: func(context.Context) Iterator[T] {
		return &lazyIter[T]{open: open}
	}}
}

// Fail yields err on the first pull.
func Fail[T any](err error) *Pipeline[T] {
	return Lazy(func(context.Context) (Iterator[T], error) { return nil, err })
}

// Iter opens the pipeline. The caller must Close the iterator.
func (p *Pipeline[T]) Iter(ctx context.Context) Iterator[T] {
	return p.create(ctx)
}

// Collect drains the pipeline into a slice.
func Collect[T any](ctx context.Context, p *Pipeline[T]) ([]T, error) {
	return CollectIter(ctx, p.create(ctx))
}

// CollectIter drains iter into a slice and closes it. Values read before an
// error are returned with it.
func CollectIter[T any](ctx context.Context, iter Iterator[T]) ([]T, error) {
	var out []T
	err := each(ctx, iter, func(_ context.Context, v T) error {
		out = append(out, v)
		return nil
	})
	return out, err
}

// ForEach calls fn for every value, stopping at the first error.
func ForEach[T any](ctx context.Context, p *Pipeline[T], fn func(context.Context, T) error) error {
	return each(ctx, p.create(ctx), fn)
}

func each[T any](ctx context.Context, iter Iterator[T], fn func(context.Context, T) error) error {
	defer iter.Close()
	for {
		v, ok, err := iter.Next(ctx)
		if err != nil || !ok {
			return err
		}
		if err := fn(ctx, v); err != nil {
			return err
		}
	}
}

type sliceIter[T any] struct {
	items []T
	pos   int
}

func (it *sliceIter[T]) Next(context.Context) (T, bool, error) {
	if it.pos >= len(it.items) {
		var zero T
		return zero, false, nil
	}
	it.pos++
	return it.items[it.pos-1], true, nil
}

func (it *sliceIter[T]) Close() error { return nil }

type lazyIter[T any] struct {
	open   func(ctx context.Context) (Iterator[T], error)
	source Iterator[T]
	err    error
}

func (it *lazyIter[T]) Next(ctx context.Context) (T, bool, error) {
	if it.source == nil && it.err == nil {
		it.source, it.err = it.open(ctx)
	}
	if it.err != nil {
		var zero T
		return zero, false, it.err
	}
	return it.source.Next(ctx)
}

func (it *lazyIter[T]) Close() error {
	if it.source == nil {
		return nil
	}
	return it.source.Close()
}
