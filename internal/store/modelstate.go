package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/crimson-sun/paperscout/internal/model"
)

// ErrNoModel is returned when no active model state exists.
var ErrNoModel = errors.New("store: no active model")

// SaveModelState persists a freshly trained model and deactivates any
// previous one. Exactly one row is active afterwards.
func (s *Store) SaveModelState(state model.ModelState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("UPDATE model_state SET is_active = 0"); err != nil {
		return fmt.Errorf("store: deactivate models: %w", err)
	}

	trainedAt := state.TrainedAt
	if trainedAt.IsZero() {
		trainedAt = time.Now().UTC()
	}
	modelType := state.ModelType
	if modelType == "" {
		modelType = "embed_logreg"
	}

	_, err = tx.Exec(`INSERT INTO model_state
		(model_type, weights, trained_at, training_samples,
		 accuracy, precision_score, recall_score, f1_score, is_active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1)`,
		modelType, state.Weights, trainedAt.UTC(), state.Samples,
		state.Accuracy, state.Precision, state.Recall, state.F1)
	if err != nil {
		return fmt.Errorf("store: save model: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit: %w", err)
	}
	return nil
}

// ActiveModelState loads the active model, or ErrNoModel.
func (s *Store) ActiveModelState() (model.ModelState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var st model.ModelState
	row := s.db.QueryRow(`SELECT id, model_type, weights, trained_at,
		training_samples, accuracy, precision_score, recall_score, f1_score
		FROM model_state WHERE is_active = 1 ORDER BY trained_at DESC LIMIT 1`)
	err := row.Scan(&st.ID, &st.ModelType, &st.Weights, &st.TrainedAt,
		&st.Samples, &st.Accuracy, &st.Precision, &st.Recall, &st.F1)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ModelState{}, ErrNoModel
	}
	if err != nil {
		return model.ModelState{}, fmt.Errorf("store: load model: %w", err)
	}
	st.Active = true
	return st, nil
}
