package serialization

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/goccy/go-json"
)

// fixedHeader is the decoded 64-byte prefix.
type fixedHeader struct {
	flags      uint32
	headerSize int64
	dataOffset int64
	dataSize   int64
	checksum   [32]byte
}

// layout is everything known about an artifact before its data is read.
// Both readers embed it.
type layout struct {
	fixedHeader
	header   Header
	fileSize int64
}

// readLayout decodes and validates the fixed header and the JSON header.
func readLayout(ra io.ReaderAt, fileSize int64, level ValidationLevel) (layout, error) {
	l := layout{fileSize: fileSize}

	prefix := make([]byte, FixedHeaderSize)
	if fileSize < FixedHeaderSize {
		return l, fmt.Errorf("%w: %d bytes, need at least %d", ErrTruncated, fileSize, FixedHeaderSize)
	}
	if _, err := ra.ReadAt(prefix, 0); err != nil {
		return l, fmt.Errorf("%w: fixed header: %w", ErrTruncated, err)
	}
	fh, err := parseFixedHeader(prefix, fileSize)
	if err != nil {
		return l, err
	}
	l.fixedHeader = fh

	raw := make([]byte, fh.headerSize)
	if _, err := ra.ReadAt(raw, FixedHeaderSize); err != nil {
		return l, fmt.Errorf("read header json: %w", err)
	}
	if err := json.Unmarshal(raw, &l.header); err != nil {
		return l, fmt.Errorf("decode header json: %w", err)
	}
	if err := ValidateHeader(&l.header, l.dataSize, level); err != nil {
		return l, err
	}
	return l, nil
}

func parseFixedHeader(b []byte, fileSize int64) (fixedHeader, error) {
	var fh fixedHeader
	if string(b[0:4]) != MagicBytes {
		return fh, ErrInvalidMagic
	}
	if v := binary.LittleEndian.Uint32(b[4:8]); v != FormatVersion {
		return fh, fmt.Errorf("%w: got %d, expected %d", ErrUnsupportedVersion, v, FormatVersion)
	}
	fh.flags = binary.LittleEndian.Uint32(b[8:12])

	headerSize := binary.LittleEndian.Uint64(b[headerSizeOffset : headerSizeOffset+8])
	if headerSize > MaxHeaderSize {
		return fh, ErrHeaderTooLarge
	}
	dataSize := binary.LittleEndian.Uint64(b[dataSizeOffset : dataSizeOffset+8])
	if dataSize > math.MaxInt64 {
		return fh, fmt.Errorf("%w: data size %d", ErrOutOfBounds, dataSize)
	}
	copy(fh.checksum[:], b[ChecksumOffset:ChecksumOffset+ChecksumSize])

	fh.headerSize = int64(headerSize)
	fh.dataSize = int64(dataSize)
	fh.dataOffset = alignedDataOffset(fh.headerSize)
	if end := fh.dataOffset + fh.dataSize; end > fileSize {
		return fh, fmt.Errorf("%w: data ends at %d, file has %d bytes", ErrTruncated, end, fileSize)
	}
	return fh, nil
}

// Header returns the JSON header.
func (l *layout) Header() Header { return l.header }

// Flags returns the flags bitfield.
func (l *layout) Flags() uint32 { return l.flags }

// Metadata returns the free-form metadata map.
func (l *layout) Metadata() map[string]string { return l.header.Metadata }

// Graph returns the graph section, or nil.
func (l *layout) Graph() *GraphMeta { return l.header.Graph }

// TensorNames lists tensors in file order.
func (l *layout) TensorNames() []string {
	names := make([]string, len(l.header.Tensors))
	for i, meta := range l.header.Tensors {
		names[i] = meta.Name
	}
	return names
}

// TensorInfo returns the header entry of a tensor.
func (l *layout) TensorInfo(name string) (*TensorMeta, error) {
	for i := range l.header.Tensors {
		if l.header.Tensors[i].Name == name {
			return &l.header.Tensors[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrTensorNotFound, name)
}

// span returns the absolute byte range of a tensor.
func (l *layout) span(name string) (start, end int64, meta *TensorMeta, err error) {
	meta, err = l.TensorInfo(name)
	if err != nil {
		return 0, 0, nil, err
	}
	start = l.dataOffset + meta.Offset
	end = start + meta.Size
	if end > l.fileSize {
		return 0, 0, nil, fmt.Errorf("%w: tensor %q ends at %d, file has %d bytes", ErrOutOfBounds, name, end, l.fileSize)
	}
	return start, end, meta, nil
}

// ReaderOptions configures BornReader.
type ReaderOptions struct {
	SkipChecksumValidation bool
	ValidationLevel        ValidationLevel
}

// BornReader reads tensors from a .born file with positioned reads.
type BornReader struct {
	layout
	file   *os.File
	closed bool
}

// NewBornReader opens path with strict validation and checks the data
// checksum.
func NewBornReader(path string) (*BornReader, error) {
	return NewBornReaderWithOptions(path, ReaderOptions{ValidationLevel: ValidationStrict})
}

// NewBornReaderWithOptions opens path with custom options.
func NewBornReaderWithOptions(path string, opts ReaderOptions) (*BornReader, error) {
	//nolint:gosec // G304: artifact path is chosen by the caller
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open artifact: %w", err)
	}
	r, err := newBornReader(file, opts)
	if err != nil {
		_ = file.Close()
		return nil, err
	}
	return r, nil
}

func newBornReader(file *os.File, opts ReaderOptions) (*BornReader, error) {
	stat, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat artifact: %w", err)
	}
	l, err := readLayout(file, stat.Size(), opts.ValidationLevel)
	if err != nil {
		return nil, err
	}

	if !opts.SkipChecksumValidation {
		sum, err := ComputeChecksumReader(io.NewSectionReader(file, l.dataOffset, l.dataSize))
		if err != nil {
			return nil, fmt.Errorf("hash tensor data: %w", err)
		}
		if err := ValidateChecksum(sum, l.checksum); err != nil {
			return nil, err
		}
	}
	return &BornReader{layout: l, file: file}, nil
}

// ReadTensorData reads the raw bytes of a tensor.
func (r *BornReader) ReadTensorData(name string) ([]byte, error) {
	if r.closed {
		return nil, ErrReaderClosed
	}
	start, end, _, err := r.span(name)
	if err != nil {
		return nil, err
	}

	data := make([]byte, end-start)
	if _, err := r.file.ReadAt(data, start); err != nil {
		return nil, fmt.Errorf("read tensor %q: %w", name, err)
	}
	return data, nil
}

// Float32 returns a decoded copy of a tensor and its shape.
func (r *BornReader) Float32(name string) ([]float32, []int, error) {
	data, err := r.ReadTensorData(name)
	if err != nil {
		return nil, nil, err
	}
	meta, _ := r.TensorInfo(name)
	return decodeFloat32(data), append([]int(nil), meta.Shape...), nil
}

// Close closes the underlying file.
func (r *BornReader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	return r.file.Close()
}

func decodeFloat32(b []byte) []float32 {
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out
}
