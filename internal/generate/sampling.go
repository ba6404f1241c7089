// Package generate implements autoregressive sampling for GPT-2: logit
// filtering, the cached decode loop, multi-batch orchestration and a
// text-level generator.
package generate

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// SamplingConfig configures how each next token is drawn.
// It is fixed for the duration of one generation call.
type SamplingConfig struct {
	// Temperature divides logits before filtering. Must be > 0.
	Temperature float64 `json:"temperature" yaml:"temperature"`

	// TopK keeps the K highest logits. 0 = disabled.
	TopK int `json:"top_k" yaml:"top_k"`

	// TopP (nucleus) keeps the smallest prefix with cumulative prob >= P. 1.0 = disabled.
	TopP float64 `json:"top_p" yaml:"top_p"`

	// Seed for reproducibility. Negative = random.
	Seed int64 `json:"seed" yaml:"seed"`
}

// DefaultSamplingConfig returns the unfiltered distribution at temperature 1.
func DefaultSamplingConfig() SamplingConfig {
	return SamplingConfig{
		Temperature: 1.0,
		TopK:        0,
		TopP:        1.0,
		Seed:        -1,
	}
}

// Validate rejects parameters the filters cannot handle.
func (c SamplingConfig) Validate() error {
	if !(c.Temperature > 0) || math.IsInf(c.Temperature, 1) {
		return fmt.Errorf("%w: got %v", ErrInvalidTemperature, c.Temperature)
	}
	if c.TopK < 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidTopK, c.TopK)
	}
	if !(c.TopP > 0 && c.TopP <= 1) {
		return fmt.Errorf("%w: got %v", ErrInvalidTopP, c.TopP)
	}
	return nil
}

// resolveSeed returns Seed, or a fresh random seed when Seed is negative.
func (c SamplingConfig) resolveSeed() int64 {
	if c.Seed >= 0 {
		return c.Seed
	}
	return rand.Int63() //nolint:gosec // User requested random seed
}

// Sampler filters logits and draws tokens with its own random source.
// A Sampler is not safe for concurrent use.
type Sampler struct {
	config SamplingConfig
	rng    *rand.Rand
}

// NewSampler creates a new sampler with the given configuration.
func NewSampler(config SamplingConfig) *Sampler {
	seed := config.resolveSeed()
	return &Sampler{
		config: config,
		rng:    rand.New(rand.NewSource(seed)), //nolint:gosec // Intentional deterministic seed for reproducibility
	}
}

// Filter applies temperature, top-k and top-p to logits in place.
func (s *Sampler) Filter(logits []float32) {
	ApplyTemperature(logits, s.config.Temperature)
	TopK(logits, s.config.TopK)
	TopP(logits, s.config.TopP)
}

// Sample filters logits in place and draws one token id.
func (s *Sampler) Sample(logits []float32) (int32, error) {
	s.Filter(logits)
	return s.Draw(logits)
}

// Draw samples an index from softmax(logits). Masked entries (-Inf) are never drawn.
func (s *Sampler) Draw(logits []float32) (int32, error) {
	probs := Softmax(logits)

	var total float64
	last := -1
	for i, p := range probs {
		if p > 0 {
			total += float64(p)
			last = i
		}
	}
	if last < 0 || math.IsNaN(total) {
		return 0, ErrDegenerateDistribution
	}

	r := s.rng.Float64() * total
	var cum float64
	for i, p := range probs {
		cum += float64(p)
		if r < cum && p > 0 {
			return int32(i), nil //nolint:gosec // vocab size is bounded by model architecture
		}
	}
	return int32(last), nil //nolint:gosec // vocab size is bounded by model architecture
}

// ApplyTemperature divides every logit by t after subtracting the row
// maximum. The shift leaves softmax unchanged and pins the top logit at 0, so
// a tiny t sharpens toward the argmax instead of overflowing to +Inf. t must
// be > 0; callers check it with SamplingConfig.Validate.
func ApplyTemperature(logits []float32, t float64) {
	if t == 1 || len(logits) == 0 {
		return
	}

	maxVal := math.Inf(-1)
	for _, v := range logits {
		maxVal = math.Max(maxVal, float64(v))
	}
	if math.IsInf(maxVal, 0) || math.IsNaN(maxVal) {
		maxVal = 0
	}

	for i, v := range logits {
		logits[i] = float32((float64(v) - maxVal) / t)
	}
}

// TopK keeps exactly k logits and sets the rest to -Inf. Among equal scores
// at the boundary the lower index wins. k == 0 or k >= len(logits) is a no-op.
func TopK(logits []float32, k int) {
	if k <= 0 || k >= len(logits) {
		return
	}

	order := rankDescending(logits)
	negInf := float32(math.Inf(-1))
	for _, idx := range order[k:] {
		logits[idx] = negInf
	}
}

// TopP keeps the smallest set of highest-probability logits whose cumulative
// probability is >= p and sets the rest to -Inf. The most likely token always
// survives. p >= 1 is a no-op.
func TopP(logits []float32, p float64) {
	if p >= 1 || len(logits) == 0 {
		return
	}

	probs := Softmax(logits)
	order := rankDescending(logits)

	keep := len(order)
	var cum float64
	for i, idx := range order {
		cum += float64(probs[idx])
		if cum >= p {
			keep = i + 1
			break
		}
	}

	negInf := float32(math.Inf(-1))
	for _, idx := range order[keep:] {
		logits[idx] = negInf
	}
}

// rankDescending returns indices ordered by score descending, then index ascending.
func rankDescending(logits []float32) []int {
	order := make([]int, len(logits))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return logits[order[a]] > logits[order[b]]
	})
	return order
}

// Softmax converts logits to probabilities. -Inf maps to 0.
func Softmax(logits []float32) []float32 {
	probs := make([]float32, len(logits))
	if len(logits) == 0 {
		return probs
	}

	maxVal := float32(math.Inf(-1))
	for _, v := range logits {
		if v > maxVal {
			maxVal = v
		}
	}
	if math.IsInf(float64(maxVal), -1) {
		return probs
	}

	var sum float64
	exps := make([]float64, len(logits))
	for i, v := range logits {
		if math.IsInf(float64(v), -1) {
			continue
		}
		exps[i] = math.Exp(float64(v - maxVal))
		sum += exps[i]
	}
	for i, e := range exps {
		probs[i] = float32(e / sum)
	}
	return probs
}
