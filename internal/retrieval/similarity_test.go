package retrieval

import (
	"math"
	"testing"
)

func TestCosineIdentical(t *testing.T) {
	v := []float32{0.5, 0.5, 0.7}
	got, err := Cosine(v, v)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(got-1.0) > 1e-6 {
		t.Errorf("cosine of identical vectors = %v, want 1", got)
	}
}

func TestCosineOrthogonal(t *testing.T) {
	got, err := Cosine([]float32{1, 0}, []float32{0, 1})
	if err != nil {
		t.Fatal(err)
	}
	if got != 0 {
		t.Errorf("cosine of orthogonal vectors = %v, want 0", got)
	}
}

func TestCosineOpposite(t *testing.T) {
	got, err := Cosine([]float32{1, 2}, []float32{-1, -2})
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(got+1.0) > 1e-6 {
		t.Errorf("cosine of opposite vectors = %v, want -1", got)
	}
}

func TestCosineZeroNorm(t *testing.T) {
	got, err := Cosine([]float32{0, 0}, []float32{1, 2})
	if err != nil {
		t.Fatal(err)
	}
	if got != 0 {
		t.Errorf("cosine against zero vector = %v, want 0", got)
	}
}

func TestCosineDimensionMismatch(t *testing.T) {
	if _, err := Cosine([]float32{1, 2}, []float32{1, 2, 3}); err == nil {
		t.Fatal("expected error for mismatched dimensions")
	}
}

func TestCosineSymmetric(t *testing.T) {
	a := []float32{0.1, 0.9, 0.3}
	b := []float32{0.4, 0.2, 0.8}
	ab, err := Cosine(a, b)
	if err != nil {
		t.Fatal(err)
	}
	ba, err := Cosine(b, a)
	if err != nil {
		t.Fatal(err)
	}
	if ab != ba {
		t.Errorf("Cosine(a,b) = %v, Cosine(b,a) = %v", ab, ba)
	}
}
