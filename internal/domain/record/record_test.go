package record

import (
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	values := map[string]any{"content": "hello", "year": 2023}
	vec := []float32{0.1, 0.2}

	r, err := New("rec-1", values, vec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.ID() != "rec-1" {
		t.Errorf("ID() = %q", r.ID())
	}
	if v, ok := r.Value("content"); !ok || v != "hello" {
		t.Errorf("Value(content) = %v, %v", v, ok)
	}
	if len(r.Vector()) != 2 {
		t.Errorf("Vector() = %v", r.Vector())
	}
}

func TestNew_EmptyID(t *testing.T) {
	// empty ID is valid: the backend assigns auto-generated keys
	r, err := New("", map[string]any{"content": "x"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.ID() != "" {
		t.Errorf("ID() = %q, want empty", r.ID())
	}
}

func TestNew_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		values  map[string]any
		wantErr string
	}{
		{"id too long", strings.Repeat("x", 257), map[string]any{"a": "b"}, "too long"},
		{"no values", "id", nil, "no values"},
		{"empty values", "id", map[string]any{}, "no values"},
		{"oversized value", "id", map[string]any{"content": strings.Repeat("x", MaxValueSize+1)}, "too large"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.id, tt.values, nil)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want containing %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestNew_CopiesValues(t *testing.T) {
	values := map[string]any{"content": "original"}
	r, err := New("id", values, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	values["content"] = "mutated"
	if v, _ := r.Value("content"); v != "original" {
		t.Errorf("Value(content) = %v, caller mutation leaked in", v)
	}
}

func TestWithID(t *testing.T) {
	r, _ := New("", map[string]any{"a": "b"}, nil)
	r2 := r.WithID("assigned")
	if r2.ID() != "assigned" {
		t.Errorf("ID() = %q", r2.ID())
	}
	if r.ID() != "" {
		t.Errorf("original mutated: ID() = %q", r.ID())
	}
}

func TestWithVector(t *testing.T) {
	r, _ := New("id", map[string]any{"a": "b"}, nil)
	r2 := r.WithVector([]float32{1, 2, 3})
	if len(r2.Vector()) != 3 {
		t.Errorf("Vector() = %v", r2.Vector())
	}
	if r.Vector() != nil {
		t.Errorf("original mutated: Vector() = %v", r.Vector())
	}
}

func TestReconstruct_SkipsValidation(t *testing.T) {
	r := Reconstruct(strings.Repeat("x", 300), nil, nil)
	if len(r.ID()) != 300 {
		t.Errorf("ID length = %d", len(r.ID()))
	}
}
