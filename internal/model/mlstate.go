package model

import "time"

// ModelState is one persisted classifier, stored as a JSON weight blob.
// Only one row is active at a time; training deactivates the previous one.
type ModelState struct {
	ID        int64     `json:"id"`
	ModelType string    `json:"model_type"` // "embed_logreg"
	Weights   []byte    `json:"-"`
	TrainedAt time.Time `json:"trained_at"`
	Samples   int       `json:"training_samples"`
	Accuracy  float64   `json:"accuracy"`
	Precision float64   `json:"precision"`
	Recall    float64   `json:"recall"`
	F1        float64   `json:"f1"`
	Active    bool      `json:"is_active"`
}
