package engine

import (
	"fmt"
	"testing"

	"github.com/crimson-sun/paperscout/internal/model"
)

// fakeEmbedder maps paper text to fixed vectors so tests control the
// geometry without a real model.
type fakeEmbedder struct {
	vecs map[string][]float32
}

func (f *fakeEmbedder) Embed(text string) ([]float32, error) {
	vecs, err := f.EmbedBatch([]string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (f *fakeEmbedder) EmbedBatch(texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, ok := f.vecs[t]
		if !ok {
			return nil, fmt.Errorf("no vector for %q", t)
		}
		out[i] = v
	}
	return out, nil
}

func (f *fakeEmbedder) Dim() int     { return 2 }
func (f *fakeEmbedder) Close() error { return nil }

func labeledPaper(id string, label int) model.Paper {
	return model.Paper{ArxivID: id, Title: id, Label: &label}
}

func paperFor(id string) model.Paper {
	return model.Paper{ArxivID: id, Title: id}
}

// vecsFor builds a fake embedder where papers named p<i> sit near (1,0)
// and papers named n<i> near (0,1). Keys use the Text() form.
func vecsFor(ids ...string) *fakeEmbedder {
	f := &fakeEmbedder{vecs: make(map[string][]float32)}
	for i, id := range ids {
		jitter := float32(i%3) * 0.05
		var v []float32
		if id[0] == 'p' {
			v = []float32{1 - jitter, jitter}
		} else {
			v = []float32{jitter, 1 - jitter}
		}
		f.vecs[model.Paper{Title: id}.Text()] = v
	}
	return f
}

func TestScoreDefaultWithoutModel(t *testing.T) {
	e := New(vecsFor("p1", "n1"), 0.5)
	scores, err := e.Score([]model.Paper{paperFor("p1"), paperFor("n1")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, s := range scores {
		if s != 0.5 {
			t.Fatalf("score[%d] = %v, want default 0.5", i, s)
		}
	}
}

func TestScoreWithPrototype(t *testing.T) {
	e := New(vecsFor("p1", "p2", "n1"), 0.5)
	if err := e.BuildPrototype([]model.Paper{paperFor("p1"), paperFor("p2")}); err != nil {
		t.Fatalf("build prototype: %v", err)
	}

	scores, err := e.Score([]model.Paper{paperFor("p1"), paperFor("n1")})
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if scores[0] <= scores[1] {
		t.Fatalf("prototype did not rank similar paper higher: %v", scores)
	}
}

func TestBuildPrototypeEmptyClears(t *testing.T) {
	e := New(vecsFor("p1"), 0.5)
	if err := e.BuildPrototype([]model.Paper{paperFor("p1")}); err != nil {
		t.Fatal(err)
	}
	if err := e.BuildPrototype(nil); err != nil {
		t.Fatal(err)
	}
	scores, err := e.Score([]model.Paper{paperFor("p1")})
	if err != nil {
		t.Fatal(err)
	}
	if scores[0] != 0.5 {
		t.Fatalf("score = %v after clearing prototype, want 0.5", scores[0])
	}
}

func TestTrainAndScore(t *testing.T) {
	ids := []string{"p1", "p2", "p3", "n1", "n2", "n3"}
	e := New(vecsFor(append(ids, "p9", "n9")...), 0.5)

	papers := []model.Paper{
		labeledPaper("p1", 1), labeledPaper("p2", 1), labeledPaper("p3", 1),
		labeledPaper("n1", 0), labeledPaper("n2", 0), labeledPaper("n3", 0),
	}
	m, err := e.Train(papers)
	if err != nil {
		t.Fatalf("train: %v", err)
	}
	if m.Samples != 6 || m.Positive != 3 || m.Negative != 3 {
		t.Fatalf("metrics = %+v", m)
	}
	if !e.HasModel() {
		t.Fatal("model not installed after training")
	}

	scores, err := e.Score([]model.Paper{paperFor("p9"), paperFor("n9")})
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if scores[0] <= 0.5 || scores[1] >= 0.5 {
		t.Fatalf("trained model scores = %v", scores)
	}
}

func TestTrainRejectsUnlabeled(t *testing.T) {
	e := New(vecsFor("p1"), 0.5)
	if _, err := e.Train([]model.Paper{paperFor("p1")}); err == nil {
		t.Fatal("expected error for unlabeled paper")
	}
}
