package executils

import (
	"runtime"
	"sync"

	"go.uber.org/atomic"
)

// ParallelExec calls fn for every element of vals. Below parallelThreshold it
// runs inline; otherwise the slice is consumed in chunks of step by one
// goroutine per CPU, so fn must be safe for concurrent use.
func ParallelExec[T any](vals []T, parallelThreshold, step uint64, fn func(T)) {
	if uint64(len(vals)) < parallelThreshold {
		for _, v := range vals {
			fn(v)
		}
		return
	}
	if step == 0 {
		step = 1
	}

	start := atomic.NewUint64(0)
	end := uint64(len(vals))

	var wg sync.WaitGroup
	numCPU := runtime.NumCPU()
	wg.Add(numCPU)
	for p := 0; p < numCPU; p++ {
		go func() {
			defer wg.Done()
			for {
				n := start.Add(step)
				if n >= end+step {
					return
				}

				for i := n - step; i < n && i < end; i++ {
					fn(vals[i])
				}
			}
		}()
	}
	wg.Wait()
}
