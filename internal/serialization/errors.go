package serialization

import (
	"errors"
	"fmt"
)

// Errors returned by the readers and writers.
var (
	ErrChecksumMismatch   = errors.New("data checksum mismatch")
	ErrOutOfBounds        = errors.New("tensor extends beyond data section")
	ErrHeaderTooLarge     = errors.New("header exceeds maximum size")
	ErrInvalidMagic       = errors.New("not a .born file")
	ErrUnsupportedVersion = errors.New("unsupported format version")
	ErrUnsupportedDType   = errors.New("unsupported dtype")
	ErrTensorNotFound     = errors.New("tensor not found")
	ErrReaderClosed       = errors.New("reader is closed")
	ErrWriterClosed       = errors.New("writer is closed")
	ErrTruncated          = errors.New("file is truncated")
)

// ValidationError describes a header that failed validation.
type ValidationError struct {
	Kind   string // offset_overlap, out_of_bounds, invalid_name, ...
	Name   string // tensor or endpoint, if any
	Other  string // second tensor of an overlap
	Detail string
}

func (e *ValidationError) Error() string {
	switch {
	case e.Other != "":
		return fmt.Sprintf("%s: %q and %q: %s", e.Kind, e.Name, e.Other, e.Detail)
	case e.Name != "":
		return fmt.Sprintf("%s: %q: %s", e.Kind, e.Name, e.Detail)
	default:
		return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
	}
}
