package sim

import "sync"

// minChunk is the smallest range handed to a goroutine.
const minChunk = 64

// ParallelFor splits [0, n) into contiguous chunks across up to workers
// goroutines and blocks until all return. fn receives its worker slot so
// callers can index per-worker scratch buffers. Each index is visited by
// exactly one call, so writes to per-index state need no locking.
func ParallelFor(n, workers int, fn func(worker, start, end int)) {
	if n <= 0 {
		return
	}
	if workers > n/minChunk {
		workers = n / minChunk
	}
	if workers <= 1 {
		fn(0, 0, n)
		return
	}

	chunkSize := (n + workers - 1) / workers

	var wg sync.WaitGroup
	wg.Add(workers)

	for w := 0; w < workers; w++ {
		start := w * chunkSize
		end := min(start+chunkSize, n)

		go func(w, s, e int) {
			defer wg.Done()
			if s < e {
				fn(w, s, e)
			}
		}(w, start, end)
	}

	wg.Wait()
}
