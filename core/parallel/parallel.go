// Package parallel provides a small helper for splitting row-wise work
// across worker goroutines. Used for cross-validation folds and ensemble
// growth, where units of work are independent and results are reduced
// deterministically by index.
package parallel

import (
	"runtime"
	"sync"
)

// Parallelize splits the half-open range [0, n) into one chunk per available
// CPU and runs fn(start, end) on each chunk concurrently. fn must not assume
// any ordering between chunks; callers write results into index-addressed
// slots so the reduction is order-independent.
func Parallelize(n int, fn func(start, end int)) {
	ParallelizeWithThreshold(n, 0, fn)
}

// ParallelizeWithThreshold behaves like Parallelize but runs fn serially when
// n is below threshold, avoiding goroutine overhead for small inputs.
func ParallelizeWithThreshold(n, threshold int, fn func(start, end int)) {
	if n <= 0 {
		return
	}

	workers := runtime.GOMAXPROCS(0)
	if n < threshold || workers <= 1 || n == 1 {
		fn(0, n)
		return
	}
	if workers > n {
		workers = n
	}

	chunk := (n + workers - 1) / workers

	var wg sync.WaitGroup
	for start := 0; start < n; start += chunk {
		end := start + chunk
		if end > n {
			end = n
		}
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			fn(s, e)
		}(start, end)
	}
	wg.Wait()
}
