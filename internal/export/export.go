package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/born-ml/gpt2/internal/generate"
	"github.com/born-ml/gpt2/internal/gpt2"
	"github.com/born-ml/gpt2/internal/logger"
	"github.com/born-ml/gpt2/internal/modeldir"
	"github.com/born-ml/gpt2/internal/serialization"
)

// Graph endpoints and defaults.
const (
	InputEndpoint    = "input_context"
	OutputEndpoint   = "output_logits"
	GraphName        = "gpt2_sample_sequence"
	DefaultLength    = 32
	DefaultExportDir = "export"
	frozenBatchSize  = 1
)

// Errors.
var (
	ErrExportDir      = errors.New("cannot create export directory")
	ErrInvalidOptions = errors.New("invalid export options")
	ErrBatchSize      = errors.New("frozen graph accepts exactly one row")
	ErrEmptyInput     = errors.New("input_context is empty")
	ErrNoGraph        = errors.New("artifact has no graph section")
	ErrBadGraph       = errors.New("artifact graph is not a gpt2 sampling graph")
)

// Options configures Freeze.
type Options struct {
	ModelName string
	ModelsDir string
	ExportDir string
	Length    int
	Sampling  generate.SamplingConfig
}

// DefaultOptions returns the 124M model, length 32 and unfiltered sampling.
func DefaultOptions() Options {
	return Options{
		ModelName: "124M",
		ModelsDir: "models",
		ExportDir: DefaultExportDir,
		Length:    DefaultLength,
		Sampling:  generate.DefaultSamplingConfig(),
	}
}

// Validate checks the options that do not need the model.
func (o Options) Validate() error {
	if o.ModelName == "" {
		return fmt.Errorf("%w: model name is empty", ErrInvalidOptions)
	}
	if o.ExportDir == "" {
		return fmt.Errorf("%w: export dir is empty", ErrInvalidOptions)
	}
	if o.Length <= 0 {
		return fmt.Errorf("%w: %w: got %d", ErrInvalidOptions, generate.ErrInvalidLength, o.Length)
	}
	return o.Sampling.Validate()
}

// ArtifactName returns the file name of the artifact for a model.
func ArtifactName(model string) string {
	return fmt.Sprintf("gpt2_%s_frozen.born", model)
}

// ArtifactPath returns where Freeze writes the artifact.
func (o Options) ArtifactPath() string {
	return filepath.Join(o.ExportDir, ArtifactName(o.ModelName))
}

// frozenConfig is stored in the graph section of the artifact.
type frozenConfig struct {
	ExportID  string                  `json:"export_id"`
	Model     string                  `json:"model"`
	HParams   gpt2.HParams            `json:"hparams"`
	BatchSize int                     `json:"batch_size"`
	Length    int                     `json:"length"`
	Sampling  generate.SamplingConfig `json:"sampling"`
}

// Result describes a written artifact.
type Result struct {
	Path     string
	ExportID string
	Tensors  int
	Bytes    int64
}

// Freeze loads the checkpoint named by opts and writes the artifact.
// A missing checkpoint fails with modeldir.ErrCheckpointNotFound before the
// export directory is touched.
func Freeze(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	d := modeldir.New(opts.ModelsDir, opts.ModelName)
	model, err := gpt2.Load(d)
	if err != nil {
		return nil, err
	}
	if opts.Length > model.MaxContext()-1 {
		return nil, fmt.Errorf("%w: length %d leaves no room for context in %d positions",
			generate.ErrLengthTooLong, opts.Length, model.MaxContext())
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(opts.ExportDir, 0o750); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrExportDir, opts.ExportDir, err)
	}

	cfg := frozenConfig{
		ExportID:  uuid.NewString(),
		Model:     opts.ModelName,
		HParams:   model.HParams(),
		BatchSize: frozenBatchSize,
		Length:    opts.Length,
		Sampling:  opts.Sampling,
	}
	rawCfg, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("marshal graph config: %w", err)
	}

	header := serialization.Header{
		ModelType: "gpt2",
		Metadata: map[string]string{
			"model":     opts.ModelName,
			"export_id": cfg.ExportID,
		},
		Graph: &serialization.GraphMeta{
			Name:    GraphName,
			Inputs:  []serialization.Endpoint{{Name: InputEndpoint, DType: serialization.DTypeInt32, Shape: []int{frozenBatchSize, -1}}},
			Outputs: []serialization.Endpoint{{Name: OutputEndpoint, DType: serialization.DTypeInt32, Shape: []int{frozenBatchSize, opts.Length}}},
			Config:  rawCfg,
		},
	}

	weights := model.Tensors()
	tensors := make([]serialization.Tensor, len(weights))
	for i, w := range weights {
		tensors[i] = serialization.Tensor{Name: w.Name, Shape: w.Shape, Data: w.Data}
	}

	path := opts.ArtifactPath()
	size, err := writeArtifact(path, tensors, header)
	if err != nil {
		return nil, err
	}

	logger.FromContext(ctx).Info().
		Str("model", opts.ModelName).
		Str("path", path).
		Str("export_id", cfg.ExportID).
		Int("tensors", len(tensors)).
		Int64("bytes", size).
		Msg("artifact written")

	return &Result{Path: path, ExportID: cfg.ExportID, Tensors: len(tensors), Bytes: size}, nil
}

// writeArtifact writes through a temporary file so a failed export never
// leaves a partial artifact behind.
func writeArtifact(path string, tensors []serialization.Tensor, header serialization.Header) (int64, error) {
	tmp := path + ".tmp"
	w, err := serialization.NewBornWriter(tmp)
	if err != nil {
		return 0, err
	}
	if err := w.WriteTensors(tensors, header); err != nil {
		_ = w.Close()
		_ = os.Remove(tmp)
		return 0, fmt.Errorf("write artifact: %w", err)
	}
	if err := w.Close(); err != nil {
		_ = os.Remove(tmp)
		return 0, err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return 0, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}
