package serialization

import (
	"bufio"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/goccy/go-json"
)

// Producer identifies files written by this package.
const Producer = "born-gpt2/0.1.0"

// BornWriter writes tensors in .born format.
type BornWriter struct {
	file   *os.File
	closed bool
}

// NewBornWriter creates a new .born file writer.
func NewBornWriter(path string) (*BornWriter, error) {
	//nolint:gosec // G304: File path comes from user input, which is expected for model saving
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	return &BornWriter{file: file}, nil
}

// WriteTensors writes tensors in the given order together with header.
// Tensors, FormatVersion, Producer and CreatedAt are filled in; the rest of
// header is written as given.
func (w *BornWriter) WriteTensors(tensors []Tensor, header Header) error {
	if w.closed {
		return ErrWriterClosed
	}
	return WriteTo(w.file, tensors, header)
}

// Close closes the writer and the underlying file.
func (w *BornWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	return w.file.Close()
}

// WriteTo writes a complete .born v2 stream to writer.
func WriteTo(writer io.Writer, tensors []Tensor, header Header) error {
	header.FormatVersion = FormatVersion
	header.Producer = Producer
	header.CreatedAt = time.Now().UTC()
	if header.Metadata == nil {
		header.Metadata = make(map[string]string)
	}

	// Calculate tensor offsets
	var dataSize int64
	header.Tensors = make([]TensorMeta, 0, len(tensors))
	for _, t := range tensors {
		n := numElements(t.Shape)
		if int64(len(t.Data)) != n {
			return fmt.Errorf("tensor %s: shape %v needs %d values, got %d", t.Name, t.Shape, n, len(t.Data))
		}
		size := n * 4
		header.Tensors = append(header.Tensors, TensorMeta{
			Name:   t.Name,
			DType:  DTypeFloat32,
			Shape:  t.Shape,
			Offset: dataSize,
			Size:   size,
		})
		dataSize += size
	}

	if err := ValidateHeader(&header, dataSize, ValidationStrict); err != nil {
		return fmt.Errorf("invalid header: %w", err)
	}

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("failed to marshal header: %w", err)
	}
	if len(headerJSON) > MaxHeaderSize {
		return ErrHeaderTooLarge
	}

	// The checksum precedes the data, so hash in a first pass.
	h := sha256.New()
	if err := encodeTensors(h, tensors); err != nil {
		return fmt.Errorf("failed to hash tensor data: %w", err)
	}
	var checksum [32]byte
	copy(checksum[:], h.Sum(nil))

	flags := uint32(0)
	if len(header.Metadata) > 0 {
		flags |= FlagHasMetadata
	}
	if header.Graph != nil {
		flags |= FlagHasGraph
	}

	fixed := make([]byte, FixedHeaderSize)
	copy(fixed[0:4], MagicBytes)
	binary.LittleEndian.PutUint32(fixed[4:8], FormatVersion)
	binary.LittleEndian.PutUint32(fixed[8:12], flags)
	binary.LittleEndian.PutUint64(fixed[headerSizeOffset:headerSizeOffset+8], uint64(len(headerJSON)))
	binary.LittleEndian.PutUint64(fixed[dataSizeOffset:dataSizeOffset+8], uint64(dataSize)) //nolint:gosec // G115: sizes are non-negative
	copy(fixed[ChecksumOffset:ChecksumOffset+ChecksumSize], checksum[:])

	bw := bufio.NewWriterSize(writer, 1<<20)
	if _, err := bw.Write(fixed); err != nil {
		return fmt.Errorf("failed to write fixed header: %w", err)
	}
	if _, err := bw.Write(headerJSON); err != nil {
		return fmt.Errorf("failed to write header JSON: %w", err)
	}

	padding := alignedDataOffset(int64(len(headerJSON))) - int64(FixedHeaderSize) - int64(len(headerJSON))
	if padding > 0 {
		if _, err := bw.Write(make([]byte, padding)); err != nil {
			return fmt.Errorf("failed to write padding: %w", err)
		}
	}

	if err := encodeTensors(bw, tensors); err != nil {
		return fmt.Errorf("failed to write tensor data: %w", err)
	}
	return bw.Flush()
}

// encodeTensors streams tensor data as little-endian float32.
func encodeTensors(w io.Writer, tensors []Tensor) error {
	buf := make([]byte, 0, 4096)
	for _, t := range tensors {
		for _, v := range t.Data {
			buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(v))
			if len(buf) == cap(buf) {
				if _, err := w.Write(buf); err != nil {
					return fmt.Errorf("tensor %s: %w", t.Name, err)
				}
				buf = buf[:0]
			}
		}
	}
	if len(buf) > 0 {
		if _, err := w.Write(buf); err != nil {
			return err
		}
	}
	return nil
}

