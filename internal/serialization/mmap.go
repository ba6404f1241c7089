package serialization

import (
	"bytes"
	"fmt"
	"os"
)

// MmapReader maps a .born file read-only. Only the header is decoded on
// open; tensor pages are faulted in as they are touched. The data checksum
// is not verified until VerifyChecksum is called.
type MmapReader struct {
	layout
	file   *os.File
	mapped []byte
	closed bool
}

// NewMmapReader maps path. Close must be called to release the mapping.
func NewMmapReader(path string) (*MmapReader, error) {
	//nolint:gosec // G304: artifact path is chosen by the caller
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open artifact: %w", err)
	}
	stat, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("stat artifact: %w", err)
	}
	if stat.Size() < FixedHeaderSize {
		_ = file.Close()
		return nil, fmt.Errorf("%w: %d bytes, need at least %d", ErrTruncated, stat.Size(), FixedHeaderSize)
	}

	mapped, err := mmapFile(file, stat.Size())
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("map artifact: %w", err)
	}
	r := &MmapReader{file: file, mapped: mapped}

	r.layout, err = readLayout(bytes.NewReader(mapped), stat.Size(), ValidationStrict)
	if err != nil {
		_ = r.Close()
		return nil, err
	}
	return r, nil
}

// VerifyChecksum hashes the mapped data section against the stored checksum.
func (r *MmapReader) VerifyChecksum() error {
	if r.closed {
		return ErrReaderClosed
	}
	sum := ComputeChecksum(r.mapped[r.dataOffset : r.dataOffset+r.dataSize])
	return ValidateChecksum(sum, r.checksum)
}

// Checksum returns the stored SHA-256 of the data section.
func (r *MmapReader) Checksum() [32]byte { return r.checksum }

// TensorData returns the mapped bytes of a tensor without copying. The
// slice is read-only and invalid after Close.
func (r *MmapReader) TensorData(name string) ([]byte, error) {
	if r.closed {
		return nil, ErrReaderClosed
	}
	start, end, _, err := r.span(name)
	if err != nil {
		return nil, err
	}
	return r.mapped[start:end], nil
}

// Float32 decodes a tensor into a new slice, so the result outlives Close.
func (r *MmapReader) Float32(name string) ([]float32, []int, error) {
	data, err := r.TensorData(name)
	if err != nil {
		return nil, nil, err
	}
	meta, _ := r.TensorInfo(name)
	return decodeFloat32(data), append([]int(nil), meta.Shape...), nil
}

// Close unmaps the file and closes it. Calling Close twice is a no-op.
func (r *MmapReader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true

	var err error
	if r.mapped != nil {
		err = munmapFile(r.mapped)
		r.mapped = nil
	}
	if cerr := r.file.Close(); err == nil {
		err = cerr
	}
	return err
}
