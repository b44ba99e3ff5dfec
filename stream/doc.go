// Package stream composes streaming expressions and consumes their results.
//
// Builders describe a pipeline as a tree: sources (Search, Facet) at the
// leaves, decorators (CartesianProduct, Intersect, Reducer, Unique, Select)
// above them. Builders are immutable values and may be reused. Build renders
// the whole tree into one expression; usage errors are reported there as
// INVALID_STREAM, before any I/O.
//
// A Streamer sends the expression through a Transport and exposes the result
// as a lazy, single-pass sequence of tuples:
//
//	top := stream.NewUnique(stream.NewSearch(q), "gene_id")
//	s, err := stream.Of(transport, top)
//	if err != nil {
//		return err
//	}
//	defer s.Close()
//	for t, err := range s.Get(ctx) {
//		if err != nil {
//			return err
//		}
//		fmt.Println(t.String("gene_id"))
//	}
//
// Decorators that merge or group (Intersect, Reducer, Unique) require their
// input to be sorted on the field they operate on. The contract is checked
// where the pipeline runs, when it is first read, and reported as
// STREAM_FAILURE. CheckSortContract (or the WithLocalValidation option)
// performs the same check locally at build time.
package stream
