package classifier

import (
	"errors"
	"math"
	"testing"
)

// separable returns n/2 positive vectors near (1, 0) and n/2 negative
// vectors near (0, 1), trivially separable by a linear model.
func separable(n int) ([][]float32, []int) {
	vecs := make([][]float32, 0, n)
	labels := make([]int, 0, n)
	for i := 0; i < n; i++ {
		jitter := float32(i%3) * 0.05
		if i%2 == 0 {
			vecs = append(vecs, []float32{1 - jitter, jitter})
			labels = append(labels, 1)
		} else {
			vecs = append(vecs, []float32{jitter, 1 - jitter})
			labels = append(labels, 0)
		}
	}
	return vecs, labels
}

func TestTrainRejectsTooFewSamples(t *testing.T) {
	c := New()
	vecs, labels := separable(4)
	if _, err := c.Train(vecs, labels); !errors.Is(err, ErrTooFewSamples) {
		t.Fatalf("err = %v, want ErrTooFewSamples", err)
	}
}

func TestTrainRejectsSingleClass(t *testing.T) {
	c := New()
	vecs := [][]float32{{1, 0}, {1, 0}, {1, 0}, {1, 0}, {0.9, 0}}
	labels := []int{1, 1, 1, 1, 1}
	if _, err := c.Train(vecs, labels); !errors.Is(err, ErrOneClass) {
		t.Fatalf("err = %v, want ErrOneClass", err)
	}
	// One negative is still below MinPerClass.
	labels[0] = 0
	if _, err := c.Train(vecs, labels); !errors.Is(err, ErrOneClass) {
		t.Fatalf("err = %v, want ErrOneClass", err)
	}
}

func TestTrainRejectsMismatchedLengths(t *testing.T) {
	c := New()
	if _, err := c.Train([][]float32{{1}}, []int{1, 0}); err == nil {
		t.Fatal("expected error for mismatched inputs")
	}
}

func TestTrainSeparatesSmallSet(t *testing.T) {
	// 6 samples: below the holdout threshold, evaluated on itself.
	c := New()
	vecs, labels := separable(6)
	m, err := c.Train(vecs, labels)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !c.Trained() {
		t.Fatal("classifier not marked trained")
	}
	if m.Samples != 6 || m.Positive != 3 || m.Negative != 3 {
		t.Fatalf("metrics counts = %+v", m)
	}
	if m.Accuracy < 0.99 {
		t.Fatalf("accuracy = %v on separable data", m.Accuracy)
	}

	if p := c.Predict([]float32{0.95, 0.05}); p <= 0.5 {
		t.Fatalf("positive-side prediction = %v, want > 0.5", p)
	}
	if p := c.Predict([]float32{0.05, 0.95}); p >= 0.5 {
		t.Fatalf("negative-side prediction = %v, want < 0.5", p)
	}
}

func TestTrainWithHoldout(t *testing.T) {
	c := New()
	vecs, labels := separable(20)
	m, err := c.Train(vecs, labels)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Accuracy < 0.99 || m.F1 < 0.99 {
		t.Fatalf("metrics on separable data: %+v", m)
	}
}

func TestPredictUntrained(t *testing.T) {
	c := New()
	if p := c.Predict([]float32{1, 2, 3}); p != 0.5 {
		t.Fatalf("untrained prediction = %v, want 0.5", p)
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	c := New()
	vecs, labels := separable(8)
	if _, err := c.Train(vecs, labels); err != nil {
		t.Fatalf("train: %v", err)
	}

	blob, err := c.Marshal()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	restored, err := Unmarshal(blob)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !restored.Trained() {
		t.Fatal("restored classifier not trained")
	}

	probe := []float32{0.8, 0.1}
	if a, b := c.Predict(probe), restored.Predict(probe); math.Abs(a-b) > 1e-12 {
		t.Fatalf("predictions diverge: %v vs %v", a, b)
	}
}

func TestMarshalUntrained(t *testing.T) {
	if _, err := New().Marshal(); err == nil {
		t.Fatal("expected error marshaling untrained model")
	}
}

func TestUnmarshalInvalid(t *testing.T) {
	if _, err := Unmarshal([]byte("not json")); err == nil {
		t.Fatal("expected error for invalid blob")
	}
	if _, err := Unmarshal([]byte(`{"weights":[],"bias":0}`)); err == nil {
		t.Fatal("expected error for empty weights")
	}
}
