package layout

import (
	"runtime"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/memlayout/errors"
)

// ResolveAll resolves independent declarations in parallel.
// Plans keep the input order; a failed declaration leaves a nil plan and
// contributes one entry to the returned *errors.Diagnostics.
func ResolveAll(inputs []Input, opts Options) ([]*Plan, error) {
	plans := make([]*Plan, len(inputs))
	errs := make([]error, len(inputs))

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > len(inputs) {
		workers = len(inputs)
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				plans[i], errs[i] = Resolve(inputs[i], opts)
			}
		}()
	}
	for i := range inputs {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	var diags errors.Diagnostics
	for i, err := range errs {
		if err != nil {
			diags.Add(inputs[i].Struct.Name, err)
		}
	}

	Logger().Debug("resolved batch",
		zap.Int("declarations", len(inputs)),
		zap.Int("failed", len(diags.Items)),
		zap.Int("workers", workers))

	return plans, diags.Err()
}
