package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/crimson-sun/paperscout/internal/model"
)

// ensurePreferences inserts the default preferences row if none exists.
func (s *Store) ensurePreferences() error {
	defaults := model.DefaultPreferences()
	_, err := s.db.Exec(`INSERT OR IGNORE INTO preferences
		(id, email, digest_enabled, digest_frequency, digest_hour,
		 tracked_categories, tracked_keywords, min_relevance_score,
		 max_papers_per_digest, auto_train, smtp_host, smtp_port, updated_at)
		VALUES (1, '', 0, ?, ?, '[]', '[]', ?, ?, 1, ?, ?, ?)`,
		defaults.DigestFrequency, defaults.DigestHour,
		defaults.MinRelevanceScore, defaults.MaxPapersPerDigest,
		defaults.SMTPHost, defaults.SMTPPort, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("store: ensure preferences: %w", err)
	}
	return nil
}

// GetPreferences returns the single preferences row.
func (s *Store) GetPreferences() (model.Preferences, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		p            model.Preferences
		cats, kws    string
		lastTrained  sql.NullTime
		accuracy     sql.NullFloat64
	)
	row := s.db.QueryRow(`SELECT email, digest_enabled, digest_frequency,
		digest_hour, tracked_categories, tracked_keywords,
		min_relevance_score, max_papers_per_digest, auto_train,
		model_last_trained, model_accuracy,
		smtp_host, smtp_port, smtp_user, smtp_password, updated_at
		FROM preferences WHERE id = 1`)
	err := row.Scan(&p.Email, &p.DigestEnabled, &p.DigestFrequency,
		&p.DigestHour, &cats, &kws, &p.MinRelevanceScore,
		&p.MaxPapersPerDigest, &p.AutoTrain, &lastTrained, &accuracy,
		&p.SMTPHost, &p.SMTPPort, &p.SMTPUser, &p.SMTPPassword, &p.UpdatedAt)
	if err != nil {
		return model.Preferences{}, fmt.Errorf("store: get preferences: %w", err)
	}

	p.TrackedCategories = unmarshalList(cats)
	p.TrackedKeywords = unmarshalList(kws)
	if lastTrained.Valid {
		t := lastTrained.Time
		p.ModelLastTrained = &t
	}
	if accuracy.Valid {
		v := accuracy.Float64
		p.ModelAccuracy = &v
	}
	return p, nil
}

// UpdatePreferences overwrites the preferences row.
func (s *Store) UpdatePreferences(p model.Preferences) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`UPDATE preferences SET
		email = ?, digest_enabled = ?, digest_frequency = ?, digest_hour = ?,
		tracked_categories = ?, tracked_keywords = ?,
		min_relevance_score = ?, max_papers_per_digest = ?, auto_train = ?,
		smtp_host = ?, smtp_port = ?, smtp_user = ?, smtp_password = ?,
		updated_at = ?
		WHERE id = 1`,
		p.Email, p.DigestEnabled, p.DigestFrequency, p.DigestHour,
		marshalList(p.TrackedCategories), marshalList(p.TrackedKeywords),
		p.MinRelevanceScore, p.MaxPapersPerDigest, p.AutoTrain,
		p.SMTPHost, p.SMTPPort, p.SMTPUser, p.SMTPPassword,
		time.Now().UTC())
	if err != nil {
		return fmt.Errorf("store: update preferences: %w", err)
	}
	return nil
}

// RecordTraining stamps the preferences row with the latest model result.
func (s *Store) RecordTraining(trainedAt time.Time, accuracy float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`UPDATE preferences SET model_last_trained = ?,
		model_accuracy = ?, updated_at = ? WHERE id = 1`,
		trainedAt.UTC(), accuracy, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("store: record training: %w", err)
	}
	return nil
}
