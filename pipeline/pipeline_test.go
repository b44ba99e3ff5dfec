package pipeline

import (
	"context"
	"errors"
	"testing"
)

func TestFromSlice_Collect(t *testing.T) {
	p := FromSlice([]int{1, 2, 3})
	got, err := Collect(context.Background(), p)
	if err != nil {
		t.Fatal(err)
	}
	want := []int{1, 2, 3}
	if !intSliceEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestFromSlice_Empty(t *testing.T) {
	got, err := Collect(context.Background(), FromSlice([]int{}))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty, got %v", got)
	}
}

func TestFrom_Iterator(t *testing.T) {
	iter := &sliceIter[string]{items: []string{"a", "b"}}
	got, err := Collect(context.Background(), From[string](iter))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("got %v, want [a b]", got)
	}
}

func TestMap(t *testing.T) {
	doubled := Map(FromSlice([]int{1, 2, 3}), func(_ context.Context, n int) (int, error) {
		return n * 2, nil
	})
	got, err := Collect(context.Background(), doubled)
	if err != nil {
		t.Fatal(err)
	}
	if want := []int{2, 4, 6}; !intSliceEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestMap_Error(t *testing.T) {
	fail := Map(FromSlice([]int{1, 2, 3}), func(_ context.Context, n int) (int, error) {
		if n == 2 {
			return 0, errors.New("bad value")
		}
		return n, nil
	})
	got, err := Collect(context.Background(), fail)
	if err == nil {
		t.Fatal("expected error")
	}
	if len(got) != 1 || got[0] != 1 {
		t.Errorf("expected [1] before error, got %v", got)
	}
}

func TestFlatMap(t *testing.T) {
	p := FlatMap(FromSlice([]int{1, 0, 2}), func(_ context.Context, n int) (Iterator[int], error) {
		out := make([]int, n)
		for i := range out {
			out[i] = n
		}
		return &sliceIter[int]{items: out}, nil
	})
	got, err := Collect(context.Background(), p)
	if err != nil {
		t.Fatal(err)
	}
	if want := []int{1, 2, 2}; !intSliceEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestLazy_OpensOnFirstPull(t *testing.T) {
	opened := 0
	p := Lazy(func(context.Context) (Iterator[int], error) {
		opened++
		return &sliceIter[int]{items: []int{7}}, nil
	})
	iter := p.Iter(context.Background())
	if opened != 0 {
		t.Fatal("source opened before first pull")
	}
	v, ok, err := iter.Next(context.Background())
	if err != nil || !ok || v != 7 {
		t.Fatalf("Next() = %v, %v, %v", v, ok, err)
	}
	if _, ok, _ := iter.Next(context.Background()); ok {
		t.Error("expected exhaustion")
	}
	if opened != 1 {
		t.Errorf("opened %d times, want 1", opened)
	}
	if err := iter.Close(); err != nil {
		t.Error(err)
	}
}

func TestFail_RepeatsError(t *testing.T) {
	boom := errors.New("boom")
	iter := Fail[int](boom).Iter(context.Background())
	defer iter.Close()
	for i := 0; i < 2; i++ {
		if _, _, err := iter.Next(context.Background()); !errors.Is(err, boom) {
			t.Fatalf("pull %d: got %v, want boom", i, err)
		}
	}
}

func TestForEach_StopsOnError(t *testing.T) {
	stop := errors.New("stop")
	closes := 0
	src := &closeCounter[int]{Iterator: &sliceIter[int]{items: []int{1, 2, 3}}, closes: &closes}
	var seen []int
	err := ForEach(context.Background(), From[int](src), func(_ context.Context, n int) error {
		seen = append(seen, n)
		if n == 2 {
			return stop
		}
		return nil
	})
	if !errors.Is(err, stop) {
		t.Fatalf("got %v, want stop", err)
	}
	if !intSliceEqual(seen, []int{1, 2}) {
		t.Errorf("saw %v, want [1 2]", seen)
	}
	if closes != 1 {
		t.Errorf("closed %d times, want 1", closes)
	}
}

func TestForEach(t *testing.T) {
	sum := 0
	err := ForEach(context.Background(), FromSlice([]int{1, 2, 3}), func(_ context.Context, n int) error {
		sum += n
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if sum != 6 {
		t.Errorf("sum = %d, want 6", sum)
	}
}

// --- helpers ---

type closeCounter[T any] struct {
	Iterator[T]
	closes *int
}

func (c *closeCounter[T]) Close() error {
	*c.closes++
	return c.Iterator.Close()
}

func intSliceEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
