package serialization

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
)

// Limits applied to untrusted headers.
const (
	MaxHeaderSize    = 100 << 20
	MaxTensorCount   = 100_000
	MaxTensorNameLen = 4096
)

// ValidationLevel selects how much of a header is checked.
type ValidationLevel int

const (
	// ValidationStrict checks names, layouts, the graph and tensor offsets.
	ValidationStrict ValidationLevel = iota
	// ValidationNormal skips the offset checks.
	ValidationNormal
	// ValidationNone trusts the header.
	ValidationNone
)

func invalid(kind, name, format string, args ...any) *ValidationError {
	return &ValidationError{Kind: kind, Name: name, Detail: fmt.Sprintf(format, args...)}
}

// ValidateTensorOffsets checks that every tensor lies inside the data
// section and that no two tensors overlap.
func ValidateTensorOffsets(tensors []TensorMeta, dataSize int64) error {
	if len(tensors) > MaxTensorCount {
		return invalid("too_many_tensors", "", "%d tensors, limit %d", len(tensors), MaxTensorCount)
	}

	byOffset := slices.Clone(tensors)
	slices.SortFunc(byOffset, func(a, b TensorMeta) int { return cmp.Compare(a.Offset, b.Offset) })

	var prev *TensorMeta
	for i := range byOffset {
		t := &byOffset[i]
		if t.Offset < 0 || t.Size < 0 {
			return invalid("negative_offset", t.Name, "offset %d size %d", t.Offset, t.Size)
		}
		if end := t.Offset + t.Size; end > dataSize {
			return invalid("out_of_bounds", t.Name, "ends at %d, data section has %d bytes", end, dataSize)
		}
		if prev != nil && prev.Offset+prev.Size > t.Offset {
			e := invalid("offset_overlap", prev.Name, "[%d,%d) and [%d,%d)",
				prev.Offset, prev.Offset+prev.Size, t.Offset, t.Offset+t.Size)
			e.Other = t.Name
			return e
		}
		prev = t
	}
	return nil
}

// nameRules are the substrings a tensor or endpoint name must not contain.
var nameRules = []struct {
	substr string
	reason string
}{
	{"..", "contains \"..\""},
	{"/", "contains a path separator"},
	{`\`, "contains a path separator"},
	{"\x00", "contains a null byte"},
}

// ValidateTensorName rejects empty, oversized and path-like names.
func ValidateTensorName(name string) error {
	switch {
	case name == "":
		return invalid("invalid_name", "", "empty name")
	case len(name) > MaxTensorNameLen:
		return invalid("name_too_long", name[:32], "%d bytes, limit %d", len(name), MaxTensorNameLen)
	}
	for _, r := range nameRules {
		if strings.Contains(name, r.substr) {
			return invalid("invalid_name", name, "%s", r.reason)
		}
	}
	return nil
}

// validateTensorLayout checks that the declared size matches a float32
// tensor of the declared shape.
func validateTensorLayout(t TensorMeta) error {
	if t.DType != DTypeFloat32 {
		return invalid("unsupported_dtype", t.Name, "dtype %q", t.DType)
	}
	if slices.ContainsFunc(t.Shape, func(d int) bool { return d < 0 }) {
		return invalid("invalid_shape", t.Name, "shape %v", t.Shape)
	}
	if want := numElements(t.Shape) * 4; want != t.Size {
		return invalid("size_mismatch", t.Name, "shape %v is %d bytes, header says %d", t.Shape, want, t.Size)
	}
	return nil
}

// ValidateGraph checks endpoint names, dtypes and shapes. A dimension of -1
// is dynamic.
func ValidateGraph(g *GraphMeta) error {
	if g == nil {
		return nil
	}
	if len(g.Inputs) == 0 || len(g.Outputs) == 0 {
		return invalid("invalid_graph", "", "graph needs at least one input and one output")
	}

	seen := make(map[string]struct{}, len(g.Inputs)+len(g.Outputs))
	for _, ep := range slices.Concat(g.Inputs, g.Outputs) {
		if err := ValidateTensorName(ep.Name); err != nil {
			return err
		}
		if _, dup := seen[ep.Name]; dup {
			return invalid("invalid_graph", ep.Name, "duplicate endpoint")
		}
		seen[ep.Name] = struct{}{}

		if ep.DType != DTypeInt32 && ep.DType != DTypeFloat32 {
			return invalid("invalid_graph", ep.Name, "dtype %q", ep.DType)
		}
		if slices.ContainsFunc(ep.Shape, func(d int) bool { return d == 0 || d < -1 }) {
			return invalid("invalid_graph", ep.Name, "shape %v", ep.Shape)
		}
	}
	return nil
}

// ValidateHeader checks h at the given level. Offsets are only checked at
// ValidationStrict.
func ValidateHeader(h *Header, dataSize int64, level ValidationLevel) error {
	if level == ValidationNone {
		return nil
	}
	if len(h.Tensors) > MaxTensorCount {
		return invalid("too_many_tensors", "", "%d tensors, limit %d", len(h.Tensors), MaxTensorCount)
	}

	seen := make(map[string]struct{}, len(h.Tensors))
	for _, t := range h.Tensors {
		if err := ValidateTensorName(t.Name); err != nil {
			return err
		}
		if _, dup := seen[t.Name]; dup {
			return invalid("duplicate_name", t.Name, "tensor listed twice")
		}
		seen[t.Name] = struct{}{}

		if err := validateTensorLayout(t); err != nil {
			return err
		}
	}

	if err := ValidateGraph(h.Graph); err != nil {
		return err
	}
	if level == ValidationStrict {
		return ValidateTensorOffsets(h.Tensors, dataSize)
	}
	return nil
}
