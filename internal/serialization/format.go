package serialization

import (
	"time"

	"github.com/goccy/go-json"
)

// Format constants.
const (
	MagicBytes       = "BORN"
	FormatVersion    = 2    // v2: 64-byte fixed header with SHA-256 checksum
	HeaderAlignment  = 64   // Tensor data starts on a 64-byte boundary
	FixedHeaderSize  = 64   // Fixed header size (0x40 bytes)
	ChecksumSize     = 32   // SHA-256 checksum size
	ChecksumOffset   = 0x20 // Checksum offset in the fixed header
	headerSizeOffset = 0x10
	dataSizeOffset   = 0x18
)

// Data type string constants for serialization.
const (
	DTypeFloat32 = "float32"
	DTypeInt32   = "int32"
)

// Flags for the .born format.
const (
	FlagHasMetadata uint32 = 1 << 2 // bit 2: custom metadata included
	FlagHasGraph    uint32 = 1 << 3 // bit 3: frozen graph section included
)

// Header represents the JSON header in a .born file.
type Header struct {
	FormatVersion int               `json:"format_version"`  // Version of the .born format
	Producer      string            `json:"producer"`        // Program that wrote the file
	ModelType     string            `json:"model_type"`      // Architecture of the stored weights
	CreatedAt     time.Time         `json:"created_at"`      // When the file was created
	Tensors       []TensorMeta      `json:"tensors"`         // Tensor metadata
	Metadata      map[string]string `json:"metadata"`        // Custom metadata
	Graph         *GraphMeta        `json:"graph,omitempty"` // Frozen graph description (optional)
}

// TensorMeta describes a tensor in the .born file.
type TensorMeta struct {
	Name   string `json:"name"`   // Tensor name (e.g., "h.0.attn.c_attn.weight")
	DType  string `json:"dtype"`  // Data type
	Shape  []int  `json:"shape"`  // Tensor shape
	Offset int64  `json:"offset"` // Offset in the data section
	Size   int64  `json:"size"`   // Size in bytes
}

// GraphMeta describes a runnable graph stored alongside the weights.
// Config is owned by the producer and opaque to this package.
type GraphMeta struct {
	Name    string          `json:"name"`
	Inputs  []Endpoint      `json:"inputs"`
	Outputs []Endpoint      `json:"outputs"`
	Config  json.RawMessage `json:"config,omitempty"`
}

// Endpoint is a named graph input or output. -1 in Shape marks a dynamic
// dimension.
type Endpoint struct {
	Name  string `json:"name"`
	DType string `json:"dtype"`
	Shape []int  `json:"shape"`
}

// Tensor is a named float32 tensor to be written.
type Tensor struct {
	Name  string
	Shape []int
	Data  []float32
}

func numElements(shape []int) int64 {
	n := int64(1)
	for _, d := range shape {
		n *= int64(d)
	}
	return n
}

func alignedDataOffset(headerSize int64) int64 {
	pos := int64(FixedHeaderSize) + headerSize
	return pos + (HeaderAlignment-pos%HeaderAlignment)%HeaderAlignment
}
