package embedder

import (
	"math"
	"testing"
)

func TestMeanPoolMaskedPositionsIgnored(t *testing.T) {
	// One text, seqLen 3, dim 2. Third position is padding.
	hidden := []float32{
		1, 2,
		3, 4,
		100, 100,
	}
	mask := []int64{1, 1, 0}

	out := meanPool(hidden, mask, 1, 3, 2)
	if out[0] != 2 || out[1] != 3 {
		t.Fatalf("pooled = %v, want [2 3]", out)
	}
}

func TestMeanPoolBatch(t *testing.T) {
	// Two texts, seqLen 2, dim 1.
	hidden := []float32{1, 3, 10, 20}
	mask := []int64{1, 1, 1, 0}

	out := meanPool(hidden, mask, 2, 2, 1)
	if out[0] != 2 {
		t.Fatalf("first = %v, want 2", out[0])
	}
	if out[1] != 10 {
		t.Fatalf("second = %v, want 10", out[1])
	}
}

func TestMeanPoolAllMasked(t *testing.T) {
	out := meanPool([]float32{5, 5}, []int64{0, 0}, 1, 2, 1)
	if out[0] != 0 {
		t.Fatalf("expected zero vector, got %v", out)
	}
}

func TestNormalize(t *testing.T) {
	vec := []float32{3, 4}
	normalize(vec)
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if math.Abs(sum-1) > 1e-6 {
		t.Fatalf("norm^2 = %v, want 1", sum)
	}
	if math.Abs(float64(vec[0])-0.6) > 1e-6 {
		t.Fatalf("vec = %v", vec)
	}
}

func TestNormalizeZeroVector(t *testing.T) {
	vec := []float32{0, 0, 0}
	normalize(vec)
	for _, v := range vec {
		if v != 0 {
			t.Fatalf("zero vector changed: %v", vec)
		}
	}
}
