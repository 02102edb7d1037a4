package embedder

import (
	"fmt"
	"math"
)

// Embedder produces vector embeddings from paper text.
type Embedder interface {
	Embed(text string) ([]float32, error)
	EmbedBatch(texts []string) ([][]float32, error)
	Dim() int
	Close() error
}

// MiniLM runs an all-MiniLM-L6-v2 sentence encoder exported to ONNX.
// The embedding pipeline is: tokenize → ONNX inference → masked mean
// pool → L2 normalize → 384-dim vector. Normalized vectors make cosine
// similarity a plain dot product downstream.
type MiniLM struct {
	session *onnxSession
	tok     *tokenizer
}

// New creates a MiniLM embedder from the ONNX model and vocab files.
func New(modelPath, vocabPath string) (*MiniLM, error) {
	sess, err := newONNXSession(modelPath)
	if err != nil {
		return nil, fmt.Errorf("embedder: %w", err)
	}

	tok, err := newTokenizer(vocabPath)
	if err != nil {
		sess.close()
		return nil, fmt.Errorf("embedder: %w", err)
	}

	return &MiniLM{session: sess, tok: tok}, nil
}

// Dim returns the embedding dimensionality.
func (m *MiniLM) Dim() int {
	return int(m.session.hiddenDim)
}

// Embed produces a single normalized embedding vector.
func (m *MiniLM) Embed(text string) ([]float32, error) {
	vecs, err := m.EmbedBatch([]string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch produces normalized embedding vectors for multiple texts.
// Sequences are padded to the longest text in the batch.
func (m *MiniLM) EmbedBatch(texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	batch := m.tok.encodeBatch(texts)

	hidden, err := m.session.infer(batch)
	if err != nil {
		return nil, fmt.Errorf("embedder: %w", err)
	}

	dim := m.session.hiddenDim
	pooled := meanPool(hidden, batch.attentionMask, batch.size, batch.seqLen, dim)

	results := make([][]float32, batch.size)
	for i := int64(0); i < batch.size; i++ {
		vec := make([]float32, dim)
		copy(vec, pooled[i*dim:(i+1)*dim])
		normalize(vec)
		results[i] = vec
	}
	return results, nil
}

// Close releases ONNX Runtime resources.
func (m *MiniLM) Close() error {
	if m.session != nil {
		return m.session.close()
	}
	return nil
}

// meanPool computes attention-mask-weighted mean pooling over the
// sequence dimension of the encoder's hidden states.
//
// hidden: flat [size * seqLen * dim] per-token states
// mask:   flat [size * seqLen], 1 for real tokens
//
// Returns flat [size * dim], one pooled vector per text.
func meanPool(hidden []float32, mask []int64, size, seqLen, dim int64) []float32 {
	out := make([]float32, size*dim)

	for b := int64(0); b < size; b++ {
		maskOff := b * seqLen
		hiddenOff := b * seqLen * dim
		outOff := b * dim

		var count float32
		for s := int64(0); s < seqLen; s++ {
			if mask[maskOff+s] != 1 {
				continue
			}
			count++
			tokOff := hiddenOff + s*dim
			for d := int64(0); d < dim; d++ {
				out[outOff+d] += hidden[tokOff+d]
			}
		}
		if count == 0 {
			continue
		}

		inv := 1.0 / count
		for d := int64(0); d < dim; d++ {
			out[outOff+d] *= inv
		}
	}

	return out
}

// normalize scales vec to unit L2 norm in place. Zero vectors are left
// untouched.
func normalize(vec []float32) {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return
	}
	inv := float32(1.0 / math.Sqrt(sum))
	for i := range vec {
		vec[i] *= inv
	}
}
