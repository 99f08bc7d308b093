package trimesh

import (
	"runtime"
	"sync"
)

// forEachFace runs fn for every index in [0, n), splitting the range
// across GOMAXPROCS workers. fn must only read shared data and write
// its own output slot; with that contract no synchronization beyond
// the final wait is needed.
func forEachFace(n int, fn func(i int)) {
	workers := runtime.GOMAXPROCS(0)
	if workers > n {
		workers = n
	}
	if workers <= 1 {
		for i := 0; i < n; i++ {
			fn(i)
		}
		return
	}

	chunk := (n + workers - 1) / workers
	var wg sync.WaitGroup
	for start := 0; start < n; start += chunk {
		end := start + chunk
		if end > n {
			end = n
		}
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for i := start; i < end; i++ {
				fn(i)
			}
		}(start, end)
	}
	wg.Wait()
}
