package export

import (
	"context"
	"fmt"
	"slices"

	"github.com/goccy/go-json"

	"github.com/born-ml/gpt2/internal/generate"
	"github.com/born-ml/gpt2/internal/gpt2"
	"github.com/born-ml/gpt2/internal/serialization"
)

// Graph is a loaded artifact: frozen weights plus the frozen decode settings.
// It is safe for concurrent use.
type Graph struct {
	model *gpt2.Model
	cfg   frozenConfig
	meta  serialization.GraphMeta
}

type loadOptions struct {
	mmap  bool
	model []gpt2.Option
}

// LoadOption configures Load.
type LoadOption func(*loadOptions)

// WithoutMmap reads the artifact with positioned reads instead of mapping it.
func WithoutMmap() LoadOption {
	return func(o *loadOptions) {
		o.mmap = false
	}
}

// WithModelOptions passes options to the restored model.
func WithModelOptions(opts ...gpt2.Option) LoadOption {
	return func(o *loadOptions) {
		o.model = append(o.model, opts...)
	}
}

// artifactReader is the part of the .born readers Load needs.
type artifactReader interface {
	gpt2.TensorSource
	Graph() *serialization.GraphMeta
	Close() error
}

// Load opens an artifact, verifies its checksum and restores the graph.
func Load(path string, opts ...LoadOption) (*Graph, error) {
	o := loadOptions{mmap: true}
	for _, opt := range opts {
		opt(&o)
	}

	r, err := openArtifact(path, o.mmap)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = r.Close()
	}()

	meta := r.Graph()
	if meta == nil {
		return nil, ErrNoGraph
	}
	cfg, err := parseGraph(meta)
	if err != nil {
		return nil, err
	}

	model, err := gpt2.FromSource(cfg.HParams, r, o.model...)
	if err != nil {
		return nil, fmt.Errorf("restore weights: %w", err)
	}

	return &Graph{model: model, cfg: cfg, meta: *meta}, nil
}

func openArtifact(path string, mmap bool) (artifactReader, error) {
	if !mmap {
		r, err := serialization.NewBornReader(path)
		if err != nil {
			return nil, err
		}
		return r, nil
	}
	r, err := serialization.NewMmapReader(path)
	if err != nil {
		return nil, err
	}
	if err := r.VerifyChecksum(); err != nil {
		_ = r.Close()
		return nil, err
	}
	return r, nil
}

// parseGraph checks that meta describes the sampling graph Freeze writes.
func parseGraph(meta *serialization.GraphMeta) (frozenConfig, error) {
	var cfg frozenConfig
	if meta.Name != GraphName {
		return cfg, fmt.Errorf("%w: name %q", ErrBadGraph, meta.Name)
	}
	if err := json.Unmarshal(meta.Config, &cfg); err != nil {
		return cfg, fmt.Errorf("%w: config: %w", ErrBadGraph, err)
	}
	if cfg.BatchSize != frozenBatchSize || cfg.Length <= 0 {
		return cfg, fmt.Errorf("%w: batch %d, length %d", ErrBadGraph, cfg.BatchSize, cfg.Length)
	}
	if err := cfg.HParams.Validate(); err != nil {
		return cfg, fmt.Errorf("%w: %w", ErrBadGraph, err)
	}
	if err := cfg.Sampling.Validate(); err != nil {
		return cfg, fmt.Errorf("%w: %w", ErrBadGraph, err)
	}

	in := findEndpoint(meta.Inputs, InputEndpoint)
	out := findEndpoint(meta.Outputs, OutputEndpoint)
	if in == nil || out == nil {
		return cfg, fmt.Errorf("%w: missing %s or %s", ErrBadGraph, InputEndpoint, OutputEndpoint)
	}
	if !slices.Equal(in.Shape, []int{frozenBatchSize, -1}) || !slices.Equal(out.Shape, []int{frozenBatchSize, cfg.Length}) {
		return cfg, fmt.Errorf("%w: endpoint shapes %v -> %v", ErrBadGraph, in.Shape, out.Shape)
	}
	return cfg, nil
}

func findEndpoint(eps []serialization.Endpoint, name string) *serialization.Endpoint {
	for i := range eps {
		if eps[i].Name == name {
			return &eps[i]
		}
	}
	return nil
}

// Run feeds input to input_context and returns output_logits: one row of
// exactly Length token ids sampled with the frozen configuration.
func (g *Graph) Run(ctx context.Context, input [][]int32) ([][]int32, error) {
	if len(input) != frozenBatchSize {
		return nil, fmt.Errorf("%w: got %d rows", ErrBatchSize, len(input))
	}
	if len(input[0]) == 0 {
		return nil, ErrEmptyInput
	}

	return generate.SampleSequence(ctx, g.model, generate.SequenceConfig{
		Length:    g.cfg.Length,
		BatchSize: frozenBatchSize,
		Context:   input,
		Sampling:  g.cfg.Sampling,
	})
}

// ModelName returns the name of the frozen model.
func (g *Graph) ModelName() string { return g.cfg.Model }

// ExportID returns the id assigned at export time.
func (g *Graph) ExportID() string { return g.cfg.ExportID }

// Length returns the number of tokens Run produces.
func (g *Graph) Length() int { return g.cfg.Length }

// Sampling returns the frozen sampling configuration.
func (g *Graph) Sampling() generate.SamplingConfig { return g.cfg.Sampling }

// HParams returns the frozen model hyperparameters.
func (g *Graph) HParams() gpt2.HParams { return g.cfg.HParams }

// Inputs returns the graph inputs.
func (g *Graph) Inputs() []serialization.Endpoint { return g.meta.Inputs }

// Outputs returns the graph outputs.
func (g *Graph) Outputs() []serialization.Endpoint { return g.meta.Outputs }
