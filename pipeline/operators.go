package pipeline

import "context"

// Map applies fn to every value. An error from fn ends the stream with that
// error; the source is left for Close.
func Map[I, O any](p *Pipeline[I], fn func(context.Context, I) (O, error)) *Pipeline[O] {
	return derive(p, func(src Iterator[I]) Iterator[O] {
		return &mapIter[I, O]{source: src, fn: fn}
	})
}

// FlatMap replaces every value by the values of the iterator fn returns for
// it, in order. Each inner iterator is closed once drained.
func FlatMap[I, O any](p *Pipeline[I], fn func(context.Context, I) (Iterator[O], error)) *Pipeline[O] {
	return derive(p, func(src Iterator[I]) Iterator[O] {
		return &flatMapIter[I, O]{source: src, fn: fn}
	})
}

// derive builds a stage over p's iterator.
func derive[I, O any](p *Pipeline[I], stage func(Iterator[I]) Iterator[O]) *Pipeline[O] {
	return &Pipeline[O]{create: func(ctx context.Context) Iterator[O] {
		return stage(p.create(ctx))
	}}
}

type mapIter[I, O any] struct {
	source Iterator[I]
	fn     func(context.Context, I) (O, error)
}

func (it *mapIter[I, O]) Next(ctx context.Context) (O, bool, error) {
	var zero O
	in, ok, err := it.source.Next(ctx)
	if !ok || err != nil {
		return zero, false, err
	}
	out, err := it.fn(ctx, in)
	if err != nil {
		return zero, false, err
	}
	return out, true, nil
}

func (it *mapIter[I, O]) Close() error { return it.source.Close() }

type flatMapIter[I, O any] struct {
	source Iterator[I]
	fn     func(context.Context, I) (Iterator[O], error)
	inner  Iterator[O]
}

func (it *flatMapIter[I, O]) Next(ctx context.Context) (O, bool, error) {
	var zero O
	for {
		if it.inner == nil {
			in, ok, err := it.source.Next(ctx)
			if !ok || err != nil {
				return zero, false, err
			}
			if it.inner, err = it.fn(ctx, in); err != nil {
				return zero, false, err
			}
		}
		out, ok, err := it.inner.Next(ctx)
		switch {
		case err != nil:
			return zero, false, err
		case ok:
			return out, true, nil
		}
		_ = it.inner.Close()
		it.inner = nil
	}
}

func (it *flatMapIter[I, O]) Close() error {
	if it.inner != nil {
		_ = it.inner.Close()
		it.inner = nil
	}
	return it.source.Close()
}
