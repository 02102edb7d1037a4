package engine

import (
	"fmt"

	"github.com/crimson-sun/paperscout/internal/engine/classifier"
	"github.com/crimson-sun/paperscout/internal/engine/embedder"
	"github.com/crimson-sun/paperscout/internal/engine/interests"
	"github.com/crimson-sun/paperscout/internal/model"
)

// Engine orchestrates the embed → score pipeline. Scoring prefers a
// trained model, falls back to an interest prototype, and finally to
// the neutral default score when neither exists yet.
type Engine struct {
	embedder     embedder.Embedder
	model        *classifier.Classifier
	proto        *interests.Prototype
	defaultScore float64
}

// New creates an Engine around the given embedder. The default score is
// assigned to papers when no model or prototype is available.
func New(emb embedder.Embedder, defaultScore float64) *Engine {
	return &Engine{embedder: emb, defaultScore: defaultScore}
}

// UseModel installs a trained classifier as the primary scorer.
func (e *Engine) UseModel(c *classifier.Classifier) {
	e.model = c
}

// HasModel reports whether a trained classifier is installed.
func (e *Engine) HasModel() bool {
	return e.model != nil && e.model.Trained()
}

// BuildPrototype derives the fallback scorer from papers the user
// marked relevant. A nil result for an empty input clears it.
func (e *Engine) BuildPrototype(relevant []model.Paper) error {
	if len(relevant) == 0 {
		e.proto = nil
		return nil
	}
	vecs, err := e.embedBatch(relevant)
	if err != nil {
		return fmt.Errorf("engine: build prototype: %w", err)
	}
	e.proto = interests.NewPrototype(vecs)
	return nil
}

// Score assigns a relevance score in [0, 1] to each paper, in input
// order.
func (e *Engine) Score(papers []model.Paper) ([]float64, error) {
	if len(papers) == 0 {
		return nil, nil
	}

	vecs, err := e.embedBatch(papers)
	if err != nil {
		return nil, fmt.Errorf("engine: score: %w", err)
	}

	scores := make([]float64, len(papers))
	for i, vec := range vecs {
		switch {
		case e.HasModel():
			scores[i] = e.model.Predict(vec)
		case e.proto != nil:
			scores[i] = e.proto.Score(vec)
		default:
			scores[i] = e.defaultScore
		}
	}
	return scores, nil
}

// Train fits a fresh classifier on labeled papers and installs it.
// Papers without a label are rejected.
func (e *Engine) Train(labeled []model.Paper) (classifier.Metrics, error) {
	labels := make([]int, len(labeled))
	for i, p := range labeled {
		if p.Label == nil {
			return classifier.Metrics{}, fmt.Errorf("engine: paper %s has no label", p.ArxivID)
		}
		labels[i] = *p.Label
	}

	vecs, err := e.embedBatch(labeled)
	if err != nil {
		return classifier.Metrics{}, fmt.Errorf("engine: train: %w", err)
	}

	c := classifier.New()
	metrics, err := c.Train(vecs, labels)
	if err != nil {
		return classifier.Metrics{}, err
	}
	e.model = c
	return metrics, nil
}

// Model returns the installed classifier, or nil.
func (e *Engine) Model() *classifier.Classifier {
	return e.model
}

// Close releases embedder resources.
func (e *Engine) Close() error {
	return e.embedder.Close()
}

func (e *Engine) embedBatch(papers []model.Paper) ([][]float32, error) {
	texts := make([]string, len(papers))
	for i, p := range papers {
		texts[i] = p.Text()
	}
	return e.embedder.EmbedBatch(texts)
}
