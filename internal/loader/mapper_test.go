package loader

import (
	"path/filepath"
	"testing"
)

func TestGPT2Mapper_MapName(t *testing.T) {
	m := NewGPT2Mapper()

	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"wte.weight", "wte.weight", true},
		{"transformer.wte.weight", "wte.weight", true},
		{"transformer.h.11.mlp.c_proj.bias", "h.11.mlp.c_proj.bias", true},
		{"h.0.attn.c_attn.weight", "h.0.attn.c_attn.weight", true},
		{"h.0.attn.bias", "", false},
		{"transformer.h.3.attn.masked_bias", "", false},
		{"lm_head.weight", "", false},
	}

	for _, tt := range tests {
		got, ok := m.MapName(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("MapName(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.ok)
		}
	}

	if m.Architecture() != ArchitectureGPT2 {
		t.Errorf("Architecture() = %q", m.Architecture())
	}
}

func TestOpenCheckpoint(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.safetensors")
	err := WriteSafeTensors(path, []Tensor{
		{Name: "transformer.ln_f.weight", Shape: []int{2}, Data: []float32{1, 1}},
		{Name: "transformer.h.0.attn.bias", Shape: []int{1}, Data: []float32{1}},
	}, nil)
	if err != nil {
		t.Fatalf("WriteSafeTensors failed: %v", err)
	}

	ckpt, err := OpenCheckpoint(path, NewGPT2Mapper())
	if err != nil {
		t.Fatalf("OpenCheckpoint failed: %v", err)
	}
	defer ckpt.Close()

	data, shape, err := ckpt.Float32("ln_f.weight")
	if err != nil {
		t.Fatalf("Float32 failed: %v", err)
	}
	if len(data) != 2 || shape[0] != 2 {
		t.Errorf("unexpected tensor: %v %v", data, shape)
	}

	if _, _, err := ckpt.Float32("h.0.attn.bias"); err == nil {
		t.Error("Expected mask buffer to be skipped")
	}
}

func TestOpenCheckpoint_DuplicateCanonical(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.safetensors")
	err := WriteSafeTensors(path, []Tensor{
		{Name: "wte.weight", Shape: []int{1}, Data: []float32{1}},
		{Name: "transformer.wte.weight", Shape: []int{1}, Data: []float32{2}},
	}, nil)
	if err != nil {
		t.Fatalf("WriteSafeTensors failed: %v", err)
	}

	if _, err := OpenCheckpoint(path, NewGPT2Mapper()); err == nil {
		t.Error("Expected error for duplicate canonical names")
	}
}
