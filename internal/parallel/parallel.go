// Package parallel runs index-based loops across worker goroutines.
package parallel

import (
	"runtime"
	"sync"
)

// Config configures parallel processing behavior.
type Config struct {
	// NumWorkers is the number of worker goroutines. 0 means runtime.GOMAXPROCS(0).
	NumWorkers int

	// GrainSize is the minimum work items per worker before parallelization.
	// If total work items <= GrainSize * NumWorkers, runs sequentially.
	GrainSize int
}

// DefaultConfig uses every available CPU and parallelizes from one item
// per worker upwards.
func DefaultConfig() Config {
	return Config{
		NumWorkers: 0,
		GrainSize:  1,
	}
}

// Workers returns the number of workers c resolves to.
func (c Config) Workers() int {
	if c.NumWorkers <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return c.NumWorkers
}

// chunks splits [0, n) into contiguous ranges, one per worker, and
// returns nil when the loop should run sequentially.
func (c Config) chunks(n int) [][2]int {
	workers := c.Workers()
	if workers == 1 || n <= c.GrainSize*workers {
		return nil
	}
	size := (n + workers - 1) / workers
	out := make([][2]int, 0, workers)
	for start := 0; start < n; start += size {
		end := start + size
		if end > n {
			end = n
		}
		out = append(out, [2]int{start, end})
	}
	return out
}

// For runs fn(i) for i in [0, n).
func For(c Config, n int, fn func(i int)) {
	ranges := c.chunks(n)
	if ranges == nil {
		for i := 0; i < n; i++ {
			fn(i)
		}
		return
	}

	var wg sync.WaitGroup
	for _, r := range ranges {
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			for i := s; i < e; i++ {
				fn(i)
			}
		}(r[0], r[1])
	}
	wg.Wait()
}

// ForWithError runs fn(i) for i in [0, n) and returns the first error
// encountered. A worker stops at its first failure; other workers finish
// their ranges.
func ForWithError(c Config, n int, fn func(i int) error) error {
	ranges := c.chunks(n)
	if ranges == nil {
		for i := 0; i < n; i++ {
			if err := fn(i); err != nil {
				return err
			}
		}
		return nil
	}

	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)
	for _, r := range ranges {
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			for i := s; i < e; i++ {
				if err := fn(i); err != nil {
					errOnce.Do(func() {
						firstErr = err
					})
					return
				}
			}
		}(r[0], r[1])
	}
	wg.Wait()
	return firstErr
}
