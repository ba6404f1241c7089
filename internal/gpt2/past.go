package gpt2

// Past holds the attention keys and values of every processed position.
//
// For each layer and batch row the keys and values are stored time-major as
// [T * n_embd]; within one position the heads are consecutive head_dim
// slices. A nil *Past is the empty cache.
//
// A Past is never modified after Forward returns it. Forward allocates a new
// Past for every call, so one value can be shared by several readers.
type Past struct {
	batch  int
	layers int
	heads  int
	embd   int
	length int
	keys   [][][]float32 // [layer][row] -> [length * embd]
	values [][][]float32
}

func newPast(hp HParams, batch, length int) *Past {
	p := &Past{
		batch:  batch,
		layers: hp.NLayer,
		heads:  hp.NHead,
		embd:   hp.NEmbd,
		length: length,
		keys:   make([][][]float32, hp.NLayer),
		values: make([][][]float32, hp.NLayer),
	}
	for l := 0; l < hp.NLayer; l++ {
		p.keys[l] = make([][]float32, batch)
		p.values[l] = make([][]float32, batch)
		for b := 0; b < batch; b++ {
			p.keys[l][b] = make([]float32, length*hp.NEmbd)
			p.values[l][b] = make([]float32, length*hp.NEmbd)
		}
	}
	return p
}

// Len returns the number of cached positions.
func (p *Past) Len() int {
	if p == nil {
		return 0
	}
	return p.length
}

// Batch returns the number of rows.
func (p *Past) Batch() int {
	if p == nil {
		return 0
	}
	return p.batch
}

// Shape returns [batch, layers, 2, heads, length, head_dim].
func (p *Past) Shape() [6]int {
	if p == nil {
		return [6]int{}
	}
	return [6]int{p.batch, p.layers, 2, p.heads, p.length, p.embd / p.heads}
}

// Keys returns the cached keys of one layer and row. Callers must not modify it.
func (p *Past) Keys(layer, row int) []float32 {
	return p.keys[layer][row]
}

// Values returns the cached values of one layer and row. Callers must not modify it.
func (p *Past) Values(layer, row int) []float32 {
	return p.values[layer][row]
}
