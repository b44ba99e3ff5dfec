// Package pipeline provides composable, pull-based iterators.
//
// Pipelines are lazy: no work happens until values are pulled via Iter,
// Collect or ForEach. Each stage pulls from the previous stage on demand, so a
// slow consumer never buffers more than one value per stage.
//
// # Operators
//
//   - Map: transform each value
//   - FlatMap: expand each value into an iterator of values
//
// Sorted-input operators:
//
//   - Intersect: two-pointer merge of two ascending inputs
//   - TopPerRun: first n values of each run of equal keys
//   - CheckOrder: fail with ErrOutOfOrder when an input goes backwards
//
// Lazy defers opening a source until the first pull, so errors from opening
// surface on consumption rather than construction.
//
// # Usage
//
//	src := pipeline.FromSlice([]int{1, 1, 2, 3, 3, 3})
//	unique := pipeline.TopPerRun(src, func(a, b int) bool { return a == b }, 1)
//	results, _ := pipeline.Collect(ctx, unique) // [1 2 3]
package pipeline
