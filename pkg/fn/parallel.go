package fn

import "sync"

// ParMapResult applies f to each item with bounded concurrency, returning
// Results in input order. Order of the output slice is positional; callers
// that need stronger correlation should carry identifiers inside T.
func ParMapResult[T, U any](items []T, workers int, f func(T) Result[U]) []Result[U] {
	out := make([]Result[U], len(items))
	if len(items) == 0 {
		return out
	}
	if workers <= 0 || workers > len(items) {
		workers = len(items)
	}

	var wg sync.WaitGroup
	sem := make(chan struct{}, workers)
	for i, v := range items {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, v T) {
			defer func() { <-sem; wg.Done() }()
			out[i] = f(v)
		}(i, v)
	}
	wg.Wait()
	return out
}

// ParMap is ParMapResult for infallible functions.
func ParMap[T, U any](items []T, workers int, f func(T) U) []U {
	results := ParMapResult(items, workers, func(v T) Result[U] {
		return Ok(f(v))
	})
	out := make([]U, len(results))
	for i, r := range results {
		out[i], _ = r.Unwrap()
	}
	return out
}
