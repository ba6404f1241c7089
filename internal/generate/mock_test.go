package generate

import (
	"sync"
	"time"

	"github.com/born-ml/gpt2/internal/gpt2"
)

// echoModel favours token (last input + 1 + row) mod vocab in every row.
type echoModel struct {
	vocab   int
	maxCtx  int
	failAt  int // call index that fails, -1 for never
	failErr error

	mu     sync.Mutex
	calls  int
	inputs [][][]int32
}

func newEchoModel() *echoModel {
	return &echoModel{vocab: 8, maxCtx: 32, failAt: -1}
}

func (m *echoModel) Forward(tokens [][]int32, _ *gpt2.Past) ([][]float32, *gpt2.Past, error) {
	m.mu.Lock()
	call := m.calls
	m.calls++
	in := make([][]int32, len(tokens))
	for i, row := range tokens {
		in[i] = append([]int32(nil), row...)
	}
	m.inputs = append(m.inputs, in)
	m.mu.Unlock()

	if call == m.failAt {
		return nil, nil, m.failErr
	}

	logits := make([][]float32, len(tokens))
	for b, row := range tokens {
		logits[b] = make([]float32, m.vocab)
		next := (int(row[len(row)-1]) + 1 + b) % m.vocab
		logits[b][next] = 10
	}
	return logits, nil, nil
}

func (m *echoModel) VocabSize() int  { return m.vocab }
func (m *echoModel) MaxContext() int { return m.maxCtx }

func (m *echoModel) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// greedy picks the favoured token every time.
func greedy() SamplingConfig {
	return SamplingConfig{Temperature: 1, TopK: 1, TopP: 1, Seed: 1}
}

type recordingObserver struct {
	mu        sync.Mutex
	steps     []int
	sequences int
	tokens    int
}

func (o *recordingObserver) OnStep(step, _ int, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.steps = append(o.steps, step)
}

func (o *recordingObserver) OnSequence(_, tokens int, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sequences++
	o.tokens += tokens
}
