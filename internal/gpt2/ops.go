package gpt2

import (
	"math"

	"github.com/born-ml/gpt2/internal/parallel"
)

const (
	layerNormEps = 1e-5
	colChunk     = 256 // output columns per work item in linear
)

// layerNorm normalizes each of the t rows of x (width e) into a new slice.
func layerNorm(x []float32, t, e int, w, b []float32) []float32 {
	out := make([]float32, len(x))
	for pos := 0; pos < t; pos++ {
		row := x[pos*e : (pos+1)*e]
		var mean float64
		for _, v := range row {
			mean += float64(v)
		}
		mean /= float64(e)

		var variance float64
		for _, v := range row {
			d := float64(v) - mean
			variance += d * d
		}
		variance /= float64(e)

		inv := 1 / math.Sqrt(variance+layerNormEps)
		dst := out[pos*e : (pos+1)*e]
		for i, v := range row {
			dst[i] = float32((float64(v)-mean)*inv)*w[i] + b[i]
		}
	}
	return out
}

// gelu applies the tanh approximation of GELU in place.
func gelu(x []float32) {
	const c = 0.7978845608028654 // sqrt(2/pi)
	for i, v := range x {
		f := float64(v)
		x[i] = float32(0.5 * f * (1 + math.Tanh(c*(f+0.044715*f*f*f))))
	}
}

// linear computes y = x @ w + b for t rows, with w stored [in, out].
// Work is split over (row, column chunk) pairs; each output element is
// written by exactly one worker in a fixed order.
func linear(x []float32, t, in, out int, w, b []float32, cfg parallel.Config) []float32 {
	y := make([]float32, t*out)
	chunks := (out + colChunk - 1) / colChunk
	cfg.MinChunkSize = 1

	parallel.ForPairs(t, chunks, func(pos, c int) {
		lo := c * colChunk
		hi := min(lo+colChunk, out)
		yr := y[pos*out+lo : pos*out+hi]
		copy(yr, b[lo:hi])
		for i, xv := range x[pos*in : (pos+1)*in] {
			wr := w[i*out+lo : i*out+hi]
			for j, wv := range wr {
				yr[j] += xv * wv
			}
		}
	}, cfg)
	return y
}

// softmaxInPlace normalizes x into probabilities.
func softmaxInPlace(x []float32) {
	maxV := x[0]
	for _, v := range x[1:] {
		if v > maxV {
			maxV = v
		}
	}
	var sum float64
	for i, v := range x {
		e := math.Exp(float64(v - maxV))
		x[i] = float32(e)
		sum += e
	}
	for i := range x {
		x[i] = float32(float64(x[i]) / sum)
	}
}

func dot(a, b []float32) float32 {
	var s float32
	for i, v := range a {
		s += v * b[i]
	}
	return s
}
