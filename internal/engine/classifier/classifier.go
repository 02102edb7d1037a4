package classifier

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"
)

// Training requirements, matching the labeling workflow: users label a
// handful of papers before the first model is worth fitting.
const (
	MinSamples  = 5
	MinPerClass = 2
)

// Training errors callers branch on to keep collecting labels.
var (
	ErrTooFewSamples = errors.New("classifier: not enough labeled samples")
	ErrOneClass      = errors.New("classifier: need both relevant and not-relevant examples")
)

const (
	epochs       = 300
	learningRate = 0.5
	l2Penalty    = 1e-3
	validationAt = 10 // below this, train and evaluate on the full set
	holdoutFrac  = 0.2
)

// Metrics summarizes a training run, computed on the held-out split
// (or the training set itself when the dataset is too small to split).
type Metrics struct {
	Samples   int     `json:"samples"`
	Positive  int     `json:"positive_samples"`
	Negative  int     `json:"negative_samples"`
	Accuracy  float64 `json:"accuracy"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
}

// Classifier is a binary logistic regression over embedding vectors.
// Predict returns the probability that a paper is relevant.
type Classifier struct {
	weights []float64
	bias    float64
	trained bool
}

// New returns an untrained classifier.
func New() *Classifier {
	return &Classifier{}
}

// Trained reports whether the classifier has fitted weights.
func (c *Classifier) Trained() bool { return c.trained }

// Train fits the model on embedding vectors with labels in {0, 1}.
// Requires at least MinSamples samples and MinPerClass per class.
// Classes are weighted inversely to their frequency so a skewed label
// set does not collapse to the majority class.
func (c *Classifier) Train(vecs [][]float32, labels []int) (Metrics, error) {
	if len(vecs) != len(labels) {
		return Metrics{}, fmt.Errorf("classifier: %d vectors but %d labels", len(vecs), len(labels))
	}
	if len(vecs) < MinSamples {
		return Metrics{}, fmt.Errorf("%w: have %d, need %d", ErrTooFewSamples, len(vecs), MinSamples)
	}

	pos := 0
	for _, l := range labels {
		if l == 1 {
			pos++
		}
	}
	neg := len(labels) - pos
	if pos < MinPerClass || neg < MinPerClass {
		return Metrics{}, fmt.Errorf("%w: %d relevant, %d not relevant", ErrOneClass, pos, neg)
	}

	dim := len(vecs[0])
	for i, v := range vecs {
		if len(v) != dim {
			return Metrics{}, fmt.Errorf("classifier: vector %d has dim %d, want %d", i, len(v), dim)
		}
	}

	trainX, trainY, testX, testY := split(vecs, labels)

	c.weights = make([]float64, dim)
	c.bias = 0

	// Balanced class weights: n / (2 * n_class).
	n := float64(len(trainY))
	var trainPos float64
	for _, l := range trainY {
		trainPos += float64(l)
	}
	trainNeg := n - trainPos
	wPos := n / (2 * math.Max(trainPos, 1))
	wNeg := n / (2 * math.Max(trainNeg, 1))

	grad := make([]float64, dim)
	for epoch := 0; epoch < epochs; epoch++ {
		for i := range grad {
			grad[i] = 0
		}
		var gradB float64

		for i, vec := range trainX {
			p := c.predictRaw(vec)
			diff := p - float64(trainY[i])
			w := wNeg
			if trainY[i] == 1 {
				w = wPos
			}
			diff *= w
			for j, x := range vec {
				grad[j] += diff * float64(x)
			}
			gradB += diff
		}

		inv := learningRate / n
		for j := range c.weights {
			c.weights[j] -= inv*grad[j] + learningRate*l2Penalty*c.weights[j]
		}
		c.bias -= inv * gradB
	}
	c.trained = true

	m := Metrics{Samples: len(vecs), Positive: pos, Negative: neg}
	var tp, fp, tn, fn float64
	for i, vec := range testX {
		pred := 0
		if c.Predict(vec) >= 0.5 {
			pred = 1
		}
		switch {
		case pred == 1 && testY[i] == 1:
			tp++
		case pred == 1 && testY[i] == 0:
			fp++
		case pred == 0 && testY[i] == 0:
			tn++
		default:
			fn++
		}
	}
	total := tp + fp + tn + fn
	if total > 0 {
		m.Accuracy = (tp + tn) / total
	}
	if tp+fp > 0 {
		m.Precision = tp / (tp + fp)
	}
	if tp+fn > 0 {
		m.Recall = tp / (tp + fn)
	}
	if m.Precision+m.Recall > 0 {
		m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
	}
	return m, nil
}

// Predict returns the probability of relevance for one embedding.
// An untrained classifier returns the neutral 0.5.
func (c *Classifier) Predict(vec []float32) float64 {
	if !c.trained {
		return 0.5
	}
	return c.predictRaw(vec)
}

func (c *Classifier) predictRaw(vec []float32) float64 {
	z := c.bias
	for i, w := range c.weights {
		if i >= len(vec) {
			break
		}
		z += w * float64(vec[i])
	}
	return sigmoid(z)
}

func sigmoid(z float64) float64 {
	return 1.0 / (1.0 + math.Exp(-z))
}

// split produces train/test sets: a deterministic shuffled 80/20 holdout
// when the dataset is large enough, otherwise train == test.
func split(vecs [][]float32, labels []int) (trainX [][]float32, trainY []int, testX [][]float32, testY []int) {
	if len(vecs) < validationAt {
		return vecs, labels, vecs, labels
	}

	idx := make([]int, len(vecs))
	for i := range idx {
		idx[i] = i
	}
	rng := rand.New(rand.NewSource(42))
	rng.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })

	holdout := int(float64(len(vecs)) * holdoutFrac)
	if holdout < 1 {
		holdout = 1
	}
	for i, ix := range idx {
		if i < holdout {
			testX = append(testX, vecs[ix])
			testY = append(testY, labels[ix])
		} else {
			trainX = append(trainX, vecs[ix])
			trainY = append(trainY, labels[ix])
		}
	}

	// A holdout missing one class gives meaningless metrics; fall back
	// to evaluating on everything.
	var seen [2]bool
	for _, y := range testY {
		seen[y] = true
	}
	if !seen[0] || !seen[1] {
		testX, testY = vecs, labels
	}
	return trainX, trainY, testX, testY
}

// state is the serialized model layout stored in the database.
type state struct {
	Weights   []float64 `json:"weights"`
	Bias      float64   `json:"bias"`
	TrainedAt time.Time `json:"trained_at"`
}

// Marshal serializes the fitted weights for persistence.
func (c *Classifier) Marshal() ([]byte, error) {
	if !c.trained {
		return nil, errors.New("classifier: cannot marshal untrained model")
	}
	return json.Marshal(state{Weights: c.weights, Bias: c.bias, TrainedAt: time.Now().UTC()})
}

// Unmarshal restores a classifier from a serialized weight blob.
func Unmarshal(data []byte) (*Classifier, error) {
	var st state
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("classifier: decode weights: %w", err)
	}
	if len(st.Weights) == 0 {
		return nil, errors.New("classifier: empty weight blob")
	}
	return &Classifier{weights: st.Weights, bias: st.Bias, trained: true}, nil
}
