package gpt2

import (
	"fmt"
	"math/rand"
	"slices"
	"strings"

	"github.com/born-ml/gpt2/internal/parallel"
)

// block holds the weights of one transformer layer.
// Linear weights are stored [in, out] row-major, as in the Conv1D layout of
// the published checkpoints.
type block struct {
	ln1W, ln1B         []float32 // [E]
	attnW, attnB       []float32 // [E, 3E], [3E]
	attnProjW          []float32 // [E, E]
	attnProjB          []float32 // [E]
	ln2W, ln2B         []float32 // [E]
	fcW, fcB           []float32 // [E, 4E], [4E]
	mlpProjW, mlpProjB []float32 // [4E, E], [E]
}

// Model is a GPT-2 network with resolved weights.
type Model struct {
	hp     HParams
	wte    []float32 // [V, E]
	wpe    []float32 // [C, E]
	blocks []block
	lnFW   []float32 // [E]
	lnFB   []float32 // [E]
	par    parallel.Config
}

// Option configures a Model.
type Option func(*Model)

// WithParallel sets the worker configuration for the forward pass.
func WithParallel(cfg parallel.Config) Option {
	return func(m *Model) {
		m.par = cfg
	}
}

// Tensor is a named weight with its shape.
type Tensor struct {
	Name  string
	Shape []int
	Data  []float32
}

// TensorSource provides weights by canonical name.
type TensorSource interface {
	Float32(name string) ([]float32, []int, error)
}

// param binds a canonical name and shape to a weight slot.
type param struct {
	name  string
	shape []int
	data  *[]float32
}

func newModel(hp HParams, opts []Option) (*Model, error) {
	if err := hp.Validate(); err != nil {
		return nil, err
	}
	m := &Model{
		hp:     hp,
		blocks: make([]block, hp.NLayer),
		par:    parallel.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// params lists every weight in canonical order.
func (m *Model) params() []param {
	e, v, c := m.hp.NEmbd, m.hp.NVocab, m.hp.NCtx
	ps := []param{
		{"wte.weight", []int{v, e}, &m.wte},
		{"wpe.weight", []int{c, e}, &m.wpe},
	}
	for i := range m.blocks {
		b := &m.blocks[i]
		p := fmt.Sprintf("h.%d.", i)
		ps = append(ps,
			param{p + "ln_1.weight", []int{e}, &b.ln1W},
			param{p + "ln_1.bias", []int{e}, &b.ln1B},
			param{p + "attn.c_attn.weight", []int{e, 3 * e}, &b.attnW},
			param{p + "attn.c_attn.bias", []int{3 * e}, &b.attnB},
			param{p + "attn.c_proj.weight", []int{e, e}, &b.attnProjW},
			param{p + "attn.c_proj.bias", []int{e}, &b.attnProjB},
			param{p + "ln_2.weight", []int{e}, &b.ln2W},
			param{p + "ln_2.bias", []int{e}, &b.ln2B},
			param{p + "mlp.c_fc.weight", []int{e, 4 * e}, &b.fcW},
			param{p + "mlp.c_fc.bias", []int{4 * e}, &b.fcB},
			param{p + "mlp.c_proj.weight", []int{4 * e, e}, &b.mlpProjW},
			param{p + "mlp.c_proj.bias", []int{e}, &b.mlpProjB},
		)
	}
	return append(ps,
		param{"ln_f.weight", []int{e}, &m.lnFW},
		param{"ln_f.bias", []int{e}, &m.lnFB},
	)
}

// FromSource builds a Model by reading every weight from src.
func FromSource(hp HParams, src TensorSource, opts ...Option) (*Model, error) {
	m, err := newModel(hp, opts)
	if err != nil {
		return nil, err
	}

	for _, p := range m.params() {
		data, shape, err := src.Float32(p.name)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", p.name, err)
		}
		if !slices.Equal(shape, p.shape) || len(data) != numElements(p.shape) {
			return nil, fmt.Errorf("%w: %s: want %v, got %v", ErrWeightShape, p.name, p.shape, shape)
		}
		*p.data = data
	}
	return m, nil
}

// NewRandom builds a Model with GPT-2 style initialization: normal(0, 0.02)
// for projections and embeddings, ones and zeros for layer norms.
func NewRandom(hp HParams, seed int64, opts ...Option) (*Model, error) {
	m, err := newModel(hp, opts)
	if err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(seed)) //nolint:gosec // G404: weights for tests, not security
	for _, p := range m.params() {
		data := make([]float32, numElements(p.shape))
		switch {
		case len(p.shape) == 1 && isNormWeight(p.name):
			for i := range data {
				data[i] = 1
			}
		case len(p.shape) == 1:
			// biases stay zero
		default:
			for i := range data {
				data[i] = float32(rng.NormFloat64() * 0.02)
			}
		}
		*p.data = data
	}
	return m, nil
}

// Tensors returns every weight in canonical order. The slices alias the model.
func (m *Model) Tensors() []Tensor {
	ps := m.params()
	out := make([]Tensor, len(ps))
	for i, p := range ps {
		out[i] = Tensor{Name: p.name, Shape: append([]int(nil), p.shape...), Data: *p.data}
	}
	return out
}

// HParams returns the model's hyperparameters.
func (m *Model) HParams() HParams {
	return m.hp
}

// VocabSize returns n_vocab.
func (m *Model) VocabSize() int {
	return m.hp.NVocab
}

// MaxContext returns n_ctx.
func (m *Model) MaxContext() int {
	return m.hp.NCtx
}

func isNormWeight(name string) bool {
	return strings.HasSuffix(name, "ln_1.weight") ||
		strings.HasSuffix(name, "ln_2.weight") ||
		name == "ln_f.weight"
}

func numElements(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}
