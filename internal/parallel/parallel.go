// Package parallel provides row-parallel execution for elementwise matrix maps.
package parallel

import (
	"runtime"
	"sync"
)

// Config controls parallel execution behavior.
type Config struct {
	Enabled    bool // Whether parallel execution is enabled.
	NumWorkers int  // Number of worker goroutines to use.
	MinRows    int  // Minimum rows per goroutine to avoid overhead.
}

// DefaultConfig returns defaults based on CPU count.
func DefaultConfig() Config {
	n := runtime.NumCPU()
	return Config{
		Enabled:    n > 1,
		NumWorkers: n,
		MinRows:    64,
	}
}

// WithWorkers returns the default config limited to n workers.
// n <= 0 keeps the CPU count.
func WithWorkers(n int) Config {
	cfg := DefaultConfig()
	if n > 0 {
		cfg.NumWorkers = n
		cfg.Enabled = n > 1
	}
	return cfg
}

// Sequential returns a config that never spawns goroutines.
func Sequential() Config {
	return Config{NumWorkers: 1, MinRows: 1}
}

// For executes f(i) for i in [0, n), splitting the range into contiguous
// chunks when parallelism is enabled and n is large enough.
//
// Each index is visited exactly once, so f may write to row i of a shared
// output without synchronization as long as rows are disjoint.
func For(n int, f func(i int), cfg Config) {
	if !cfg.Enabled || cfg.NumWorkers < 2 || n < 2*cfg.MinRows {
		for i := 0; i < n; i++ {
			f(i)
		}
		return
	}

	var wg sync.WaitGroup
	chunk := max((n+cfg.NumWorkers-1)/cfg.NumWorkers, cfg.MinRows)

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
