package loader

import (
	"encoding/binary"
	"fmt"
	"io"
	"maps"
	"math"
	"os"
	"slices"

	"github.com/goccy/go-json"
)

// A SafeTensors file is an 8-byte little-endian header length, a JSON
// object mapping tensor names to {dtype, shape, data_offsets} plus an
// optional "__metadata__" entry, and the raw little-endian tensor bytes.
// data_offsets are relative to the end of the header.

const (
	metadataKey   = "__metadata__"
	maxHeaderSize = 100 << 20
)

// SafeTensorsDType is a dtype name as written in the header.
type SafeTensorsDType string

// Dtypes found in GPT-2 checkpoints.
const (
	SafeTensorsF16  SafeTensorsDType = "F16"
	SafeTensorsBF16 SafeTensorsDType = "BF16"
	SafeTensorsF32  SafeTensorsDType = "F32"
	SafeTensorsF64  SafeTensorsDType = "F64"
	SafeTensorsI64  SafeTensorsDType = "I64"
	SafeTensorsU8   SafeTensorsDType = "U8"
	SafeTensorsBool SafeTensorsDType = "BOOL"
)

var dtypeWidth = map[SafeTensorsDType]int{
	SafeTensorsF16:  2,
	SafeTensorsBF16: 2,
	SafeTensorsF32:  4,
	SafeTensorsF64:  8,
	SafeTensorsI64:  8,
	SafeTensorsU8:   1,
	SafeTensorsBool: 1,
}

// widen converts n elements of one float dtype to float32.
var widen = map[SafeTensorsDType]func(b []byte, out []float32){
	SafeTensorsF32: func(b []byte, out []float32) {
		for i := range out {
			out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
		}
	},
	SafeTensorsF64: func(b []byte, out []float32) {
		for i := range out {
			out[i] = float32(math.Float64frombits(binary.LittleEndian.Uint64(b[8*i:])))
		}
	},
	SafeTensorsF16: func(b []byte, out []float32) {
		for i := range out {
			out[i] = halfToFloat32(binary.LittleEndian.Uint16(b[2*i:]))
		}
	},
	SafeTensorsBF16: func(b []byte, out []float32) {
		for i := range out {
			out[i] = math.Float32frombits(uint32(binary.LittleEndian.Uint16(b[2*i:])) << 16)
		}
	},
}

// SafeTensorInfo is one tensor entry of the header.
type SafeTensorInfo struct {
	DType       SafeTensorsDType `json:"dtype"`
	Shape       []int            `json:"shape"`
	DataOffsets [2]int64         `json:"data_offsets"`
}

// NumElements returns the product of the shape.
func (i SafeTensorInfo) NumElements() int {
	n := 1
	for _, d := range i.Shape {
		n *= d
	}
	return n
}

func (i SafeTensorInfo) byteLen() int64 {
	return i.DataOffsets[1] - i.DataOffsets[0]
}

// SafeTensorsReader reads tensors from a SafeTensors file with positioned
// reads. It is safe for concurrent use.
type SafeTensorsReader struct {
	file     *os.File
	tensors  map[string]SafeTensorInfo
	metadata map[string]string
	data     *io.SectionReader
}

// NewSafeTensorsReader opens path and checks every tensor's offsets and
// byte length against the data section.
func NewSafeTensorsReader(path string) (*SafeTensorsReader, error) {
	//nolint:gosec // G304: checkpoint path comes from the model directory
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open safetensors: %w", err)
	}
	r, err := newSafeTensorsReader(file)
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}

func newSafeTensorsReader(file *os.File) (*SafeTensorsReader, error) {
	stat, err := file.Stat()
	if err != nil {
		return nil, err
	}

	var n uint64
	if err := binary.Read(file, binary.LittleEndian, &n); err != nil {
		return nil, fmt.Errorf("read header length: %w", err)
	}
	if n > maxHeaderSize || int64(n)+8 > stat.Size() { //nolint:gosec // G115: n bounded by maxHeaderSize
		return nil, fmt.Errorf("header length %d does not fit a %d-byte file", n, stat.Size())
	}
	raw := make([]byte, n)
	if _, err := io.ReadFull(file, raw); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	r := &SafeTensorsReader{file: file}
	if err := r.parseHeader(raw); err != nil {
		return nil, err
	}

	start := 8 + int64(n) //nolint:gosec // G115: n bounded by maxHeaderSize
	r.data = io.NewSectionReader(file, start, stat.Size()-start)
	for name, info := range r.tensors {
		if err := checkEntry(info, r.data.Size()); err != nil {
			return nil, fmt.Errorf("tensor %s: %w", name, err)
		}
	}
	return r, nil
}

// parseHeader splits the JSON object into tensor entries and metadata.
func (r *SafeTensorsReader) parseHeader(raw []byte) error {
	var entries map[string]json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return fmt.Errorf("decode header: %w", err)
	}

	r.tensors = make(map[string]SafeTensorInfo, len(entries))
	for name, body := range entries {
		if name == metadataKey {
			if err := json.Unmarshal(body, &r.metadata); err != nil {
				return fmt.Errorf("decode %s: %w", metadataKey, err)
			}
			continue
		}
		var info SafeTensorInfo
		if err := json.Unmarshal(body, &info); err != nil {
			return fmt.Errorf("decode entry %s: %w", name, err)
		}
		r.tensors[name] = info
	}
	return nil
}

func checkEntry(info SafeTensorInfo, dataLen int64) error {
	lo, hi := info.DataOffsets[0], info.DataOffsets[1]
	if lo < 0 || hi < lo || hi > dataLen {
		return fmt.Errorf("data_offsets [%d, %d] outside %d-byte data section", lo, hi, dataLen)
	}
	if w, ok := dtypeWidth[info.DType]; ok {
		if want := int64(info.NumElements() * w); want != hi-lo {
			return fmt.Errorf("%s%v needs %d bytes, data_offsets span %d", info.DType, info.Shape, want, hi-lo)
		}
	}
	return nil
}

// Close closes the file.
func (r *SafeTensorsReader) Close() error {
	return r.file.Close()
}

// Metadata returns the "__metadata__" entry, or nil.
func (r *SafeTensorsReader) Metadata() map[string]string {
	return r.metadata
}

// TensorNames returns the tensor names in sorted order.
func (r *SafeTensorsReader) TensorNames() []string {
	return slices.Sorted(maps.Keys(r.tensors))
}

// TensorInfo returns the header entry of name.
func (r *SafeTensorsReader) TensorInfo(name string) (*SafeTensorInfo, error) {
	info, ok := r.tensors[name]
	if !ok {
		return nil, fmt.Errorf("tensor %s not found", name)
	}
	return &info, nil
}

// ReadTensorData returns the raw bytes of name.
func (r *SafeTensorsReader) ReadTensorData(name string) ([]byte, error) {
	info, err := r.TensorInfo(name)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, info.byteLen())
	if _, err := r.data.ReadAt(buf, info.DataOffsets[0]); err != nil {
		return nil, fmt.Errorf("read tensor %s: %w", name, err)
	}
	return buf, nil
}

// ReadFloat32 returns name widened to float32, with its shape. F16, BF16
// and F64 are converted element by element.
func (r *SafeTensorsReader) ReadFloat32(name string) ([]float32, []int, error) {
	info, err := r.TensorInfo(name)
	if err != nil {
		return nil, nil, err
	}
	conv, ok := widen[info.DType]
	if !ok {
		return nil, nil, fmt.Errorf("tensor %s: cannot read %s as float32", name, info.DType)
	}

	raw, err := r.ReadTensorData(name)
	if err != nil {
		return nil, nil, err
	}
	out := make([]float32, info.NumElements())
	conv(raw, out)
	return out, slices.Clone(info.Shape), nil
}

// halfToFloat32 converts IEEE 754 binary16 bits to float32.
func halfToFloat32(h uint16) float32 {
	sign := uint32(h&0x8000) << 16
	exp := int32(h>>10) & 0x1f
	frac := uint32(h & 0x3ff)

	switch exp {
	case 0:
		if frac == 0 {
			return math.Float32frombits(sign)
		}
		// Subnormal half: value is frac * 2^-24.
		v := float32(frac) * (1.0 / (1 << 24))
		if sign != 0 {
			v = -v
		}
		return v
	case 0x1f:
		return math.Float32frombits(sign | 0x7f800000 | frac<<13)
	default:
		return math.Float32frombits(sign | uint32(exp+127-15)<<23 | frac<<13)
	}
}
