package generate

import (
	"context"
	"fmt"
	"math"

	"github.com/born-ml/gpt2/internal/parallel"
)

// SampleN produces nsamples rows by running ceil(nsamples/BatchSize)
// independent decode calls and truncating the excess rows of the last one.
//
// Call i is seeded with Sampling.Seed+i wrapped into [0, MaxInt64] (a random
// base is drawn once when the seed is negative), so results do not depend on how calls are scheduled.
// Calls may run concurrently according to par. If any call fails, the error
// of the lowest-numbered failing call is returned and no rows are.
func SampleN(ctx context.Context, model Model, nsamples int, cfg SequenceConfig, par parallel.Config) ([][]int32, error) {
	if nsamples <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidSamples, nsamples)
	}
	if _, err := cfg.validate(model); err != nil {
		return nil, err
	}

	base := cfg.Sampling.resolveSeed()
	calls := (nsamples + cfg.BatchSize - 1) / cfg.BatchSize
	results := make([][][]int32, calls)

	err := parallel.Each(calls, func(i int) error {
		c := cfg
		c.Sampling.Seed = callSeed(base, i)
		rows, err := SampleSequence(ctx, model, c)
		if err != nil {
			return fmt.Errorf("batch %d: %w", i, err)
		}
		results[i] = rows
		return nil
	}, par)
	if err != nil {
		return nil, err
	}

	out := make([][]int32, 0, calls*cfg.BatchSize)
	for _, rows := range results {
		out = append(out, rows...)
	}
	return out[:nsamples], nil
}

// callSeed offsets base by i, wrapping into [0, MaxInt64].
func callSeed(base int64, i int) int64 {
	return (base + int64(i)) & math.MaxInt64
}
