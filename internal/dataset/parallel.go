package dataset

import (
	"runtime"
	"sync"
)

// minPlanesPerWorker keeps small batches on the calling goroutine.
const minPlanesPerWorker = 16

// parallelFor calls f(i) for every i in [0, n), splitting the range into
// contiguous chunks run on at most workers goroutines. workers <= 0 means one
// per CPU. f must only write to disjoint memory for distinct i.
func parallelFor(n, workers int, f func(i int)) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers == 1 || n < 2*minPlanesPerWorker {
		for i := 0; i < n; i++ {
			f(i)
		}
		return
	}

	chunk := max((n+workers-1)/workers, minPlanesPerWorker)
	var wg sync.WaitGroup
	for start := 0; start < n; start += chunk {
		end := min(start+chunk, n)
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			for i := s; i < e; i++ {
				f(i)
			}
		}(start, end)
	}
	wg.Wait()
}
