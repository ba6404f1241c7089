package serialization

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateTensorOffsets(t *testing.T) {
	tests := []struct {
		name     string
		tensors  []TensorMeta
		dataSize int64
		errType  string
	}{
		{
			name: "contiguous",
			tensors: []TensorMeta{
				{Name: "a", Offset: 0, Size: 100},
				{Name: "b", Offset: 100, Size: 200},
			},
			dataSize: 300,
		},
		{
			name: "overlap",
			tensors: []TensorMeta{
				{Name: "a", Offset: 0, Size: 100},
				{Name: "b", Offset: 99, Size: 100},
			},
			dataSize: 300,
			errType:  "offset_overlap",
		},
		{
			name:     "out of bounds",
			tensors:  []TensorMeta{{Name: "a", Offset: 10, Size: 100}},
			dataSize: 100,
			errType:  "out_of_bounds",
		},
		{
			name:     "negative offset",
			tensors:  []TensorMeta{{Name: "a", Offset: -4, Size: 4}},
			dataSize: 100,
			errType:  "negative_offset",
		},
		{
			name:     "negative size",
			tensors:  []TensorMeta{{Name: "a", Offset: 0, Size: -1}},
			dataSize: 100,
			errType:  "negative_offset",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTensorOffsets(tt.tensors, tt.dataSize)
			if tt.errType == "" {
				if err != nil {
					t.Fatalf("Expected no error, got %v", err)
				}
				return
			}
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("Expected ValidationError, got %v", err)
			}
			if ve.Kind != tt.errType {
				t.Errorf("Expected kind %q, got %q", tt.errType, ve.Kind)
			}
		})
	}
}

func TestValidateTensorName(t *testing.T) {
	valid := []string{"wte.weight", "h.11.mlp.c_proj.bias", "ln_f.weight"}
	for _, name := range valid {
		if err := ValidateTensorName(name); err != nil {
			t.Errorf("ValidateTensorName(%q) = %v, want nil", name, err)
		}
	}

	invalid := []string{"", "../etc/passwd", "a/b", `a\b`, "a\x00b", strings.Repeat("x", MaxTensorNameLen+1)}
	for _, name := range invalid {
		if err := ValidateTensorName(name); err == nil {
			t.Errorf("ValidateTensorName(%q) = nil, want error", name)
		}
	}
}

func validGraph() *GraphMeta {
	return &GraphMeta{
		Name:    "g",
		Inputs:  []Endpoint{{Name: "input_context", DType: DTypeInt32, Shape: []int{1, -1}}},
		Outputs: []Endpoint{{Name: "output_logits", DType: DTypeInt32, Shape: []int{1, 32}}},
	}
}

func TestValidateGraph(t *testing.T) {
	if err := ValidateGraph(nil); err != nil {
		t.Errorf("nil graph should be valid, got %v", err)
	}
	if err := ValidateGraph(validGraph()); err != nil {
		t.Errorf("Expected valid graph, got %v", err)
	}

	tests := map[string]func(g *GraphMeta){
		"no outputs":     func(g *GraphMeta) { g.Outputs = nil },
		"duplicate name": func(g *GraphMeta) { g.Outputs[0].Name = "input_context" },
		"bad dtype":      func(g *GraphMeta) { g.Inputs[0].DType = "int8" },
		"zero dim":       func(g *GraphMeta) { g.Outputs[0].Shape = []int{1, 0} },
		"bad dynamic":    func(g *GraphMeta) { g.Inputs[0].Shape = []int{-2} },
		"bad name":       func(g *GraphMeta) { g.Inputs[0].Name = "a/b" },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			g := validGraph()
			mutate(g)
			if err := ValidateGraph(g); err == nil {
				t.Error("Expected error")
			}
		})
	}
}

func TestValidateHeader(t *testing.T) {
	good := Header{Tensors: []TensorMeta{
		{Name: "a", DType: DTypeFloat32, Shape: []int{2, 3}, Offset: 0, Size: 24},
		{Name: "b", DType: DTypeFloat32, Shape: []int{4}, Offset: 24, Size: 16},
	}}
	if err := ValidateHeader(&good, 40, ValidationStrict); err != nil {
		t.Fatalf("Expected valid header, got %v", err)
	}

	sizeMismatch := Header{Tensors: []TensorMeta{{Name: "a", DType: DTypeFloat32, Shape: []int{2}, Size: 12}}}
	if err := ValidateHeader(&sizeMismatch, 100, ValidationNormal); err == nil {
		t.Error("Expected size mismatch error")
	}

	dtype := Header{Tensors: []TensorMeta{{Name: "a", DType: "float64", Shape: []int{1}, Size: 8}}}
	if err := ValidateHeader(&dtype, 100, ValidationNormal); err == nil {
		t.Error("Expected dtype error")
	}

	dup := Header{Tensors: []TensorMeta{
		{Name: "a", DType: DTypeFloat32, Shape: []int{1}, Offset: 0, Size: 4},
		{Name: "a", DType: DTypeFloat32, Shape: []int{1}, Offset: 4, Size: 4},
	}}
	if err := ValidateHeader(&dup, 8, ValidationStrict); err == nil {
		t.Error("Expected duplicate name error")
	}

	// Offsets are only checked in strict mode.
	oob := Header{Tensors: []TensorMeta{{Name: "a", DType: DTypeFloat32, Shape: []int{1}, Offset: 100, Size: 4}}}
	if err := ValidateHeader(&oob, 8, ValidationNormal); err != nil {
		t.Errorf("Normal level should skip offsets, got %v", err)
	}
	if err := ValidateHeader(&oob, 8, ValidationStrict); err == nil {
		t.Error("Strict level should reject out-of-bounds tensor")
	}
	if err := ValidateHeader(&dtype, 8, ValidationNone); err != nil {
		t.Errorf("ValidationNone should accept anything, got %v", err)
	}
}

func TestValidationError_ErrorMessages(t *testing.T) {
	e := &ValidationError{Kind: "offset_overlap", Name: "a", Other: "b", Detail: "x"}
	if !strings.Contains(e.Error(), `"a" and "b"`) {
		t.Errorf("Unexpected message: %s", e.Error())
	}
	e = &ValidationError{Kind: "invalid_graph", Detail: "y"}
	if e.Error() != "invalid_graph: y" {
		t.Errorf("Unexpected message: %s", e.Error())
	}
}
