package gpt2

import (
	"fmt"
	"math"

	"github.com/born-ml/gpt2/internal/parallel"
)

// Forward runs the network on a batch of token rows.
//
// tokens holds B rows of equal length T > 0. past is nil on the first call
// and must otherwise come from the previous Forward on the same rows. The
// result holds the logits of the last position of every row, shape [B, n_vocab],
// and a new Past covering past.Len()+T positions.
//
// Forward fails with ErrContextOverflow when past.Len()+T exceeds n_ctx and
// with ErrPastMismatch when past was built for a different batch or model.
func (m *Model) Forward(tokens [][]int32, past *Past) ([][]float32, *Past, error) {
	t, err := m.checkInput(tokens, past)
	if err != nil {
		return nil, nil, err
	}

	batch := len(tokens)
	prev := past.Len()
	next := newPast(m.hp, batch, prev+t)
	logits := make([][]float32, batch)

	rowCfg := m.par
	rowCfg.MinChunkSize = 1
	parallel.For(batch, func(b int) {
		logits[b] = m.forwardRow(tokens[b], past, next, b)
	}, rowCfg)

	return logits, next, nil
}

func (m *Model) checkInput(tokens [][]int32, past *Past) (int, error) {
	if len(tokens) == 0 || len(tokens[0]) == 0 {
		return 0, ErrEmptyInput
	}
	t := len(tokens[0])
	for b, row := range tokens {
		if len(row) != t {
			return 0, &RowError{Row: b, Err: fmt.Errorf("%w: want %d, got %d", ErrRaggedInput, t, len(row))}
		}
		for _, id := range row {
			if id < 0 || int(id) >= m.hp.NVocab {
				return 0, &RowError{Row: b, Err: fmt.Errorf("%w: %d (n_vocab %d)", ErrTokenOutOfRange, id, m.hp.NVocab)}
			}
		}
	}

	if past != nil {
		if past.batch != len(tokens) {
			return 0, fmt.Errorf("%w: past has %d rows, input has %d", ErrPastMismatch, past.batch, len(tokens))
		}
		if past.layers != m.hp.NLayer || past.embd != m.hp.NEmbd || past.heads != m.hp.NHead {
			return 0, fmt.Errorf("%w: past shape %v does not fit model", ErrPastMismatch, past.Shape())
		}
	}

	if total := past.Len() + t; total > m.hp.NCtx {
		return 0, fmt.Errorf("%w: %d positions > n_ctx %d", ErrContextOverflow, total, m.hp.NCtx)
	}
	return t, nil
}

// forwardRow processes one row and fills row b of next.
func (m *Model) forwardRow(tokens []int32, past, next *Past, b int) []float32 {
	e := m.hp.NEmbd
	t := len(tokens)
	prev := past.Len()

	x := make([]float32, t*e)
	for pos, id := range tokens {
		tok := m.wte[int(id)*e : (int(id)+1)*e]
		wp := m.wpe[(prev+pos)*e : (prev+pos+1)*e]
		dst := x[pos*e : (pos+1)*e]
		for i := range dst {
			dst[i] = tok[i] + wp[i]
		}
	}

	for l := range m.blocks {
		blk := &m.blocks[l]

		h := layerNorm(x, t, e, blk.ln1W, blk.ln1B)
		qkv := linear(h, t, e, 3*e, blk.attnW, blk.attnB, m.par)

		keys, values := next.keys[l][b], next.values[l][b]
		if past != nil {
			copy(keys, past.keys[l][b])
			copy(values, past.values[l][b])
		}
		for pos := 0; pos < t; pos++ {
			copy(keys[(prev+pos)*e:(prev+pos+1)*e], qkv[pos*3*e+e:pos*3*e+2*e])
			copy(values[(prev+pos)*e:(prev+pos+1)*e], qkv[pos*3*e+2*e:pos*3*e+3*e])
		}

		a := m.attention(qkv, keys, values, t, prev)
		a = linear(a, t, e, e, blk.attnProjW, blk.attnProjB, m.par)
		addInPlace(x, a)

		h = layerNorm(x, t, e, blk.ln2W, blk.ln2B)
		f := linear(h, t, e, 4*e, blk.fcW, blk.fcB, m.par)
		gelu(f)
		f = linear(f, t, 4*e, e, blk.mlpProjW, blk.mlpProjB, m.par)
		addInPlace(x, f)
	}

	last := layerNorm(x[(t-1)*e:], 1, e, m.lnFW, m.lnFB)
	return m.unembed(last)
}

// attention computes causal multi-head attention for t new positions that
// follow prev cached ones. keys and values cover all prev+t positions.
func (m *Model) attention(qkv, keys, values []float32, t, prev int) []float32 {
	e := m.hp.NEmbd
	d := m.hp.HeadDim()
	scale := float32(1 / math.Sqrt(float64(d)))
	out := make([]float32, t*e)

	cfg := m.par
	cfg.MinChunkSize = 1
	parallel.ForPairs(t, m.hp.NHead, func(pos, head int) {
		q := qkv[pos*3*e+head*d : pos*3*e+(head+1)*d]
		span := prev + pos + 1
		scores := make([]float32, span)
		for j := 0; j < span; j++ {
			scores[j] = dot(q, keys[j*e+head*d:j*e+(head+1)*d]) * scale
		}
		softmaxInPlace(scores)

		dst := out[pos*e+head*d : pos*e+(head+1)*d]
		for j, w := range scores {
			v := values[j*e+head*d : j*e+(head+1)*d]
			for i := range dst {
				dst[i] += w * v[i]
			}
		}
	}, cfg)
	return out
}

// unembed projects a normalized hidden state onto the tied token embedding.
func (m *Model) unembed(h []float32) []float32 {
	e := m.hp.NEmbd
	logits := make([]float32, m.hp.NVocab)
	parallel.For(m.hp.NVocab, func(v int) {
		logits[v] = dot(h, m.wte[v*e:(v+1)*e])
	}, m.par)
	return logits
}

func addInPlace(dst, src []float32) {
	for i, v := range src {
		dst[i] += v
	}
}
