package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/crimson-sun/paperscout/internal/model"
)

// RecordDigest appends one row of digest history.
func (s *Store) RecordDigest(rec model.DigestRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids, err := json.Marshal(rec.PaperIDs)
	if err != nil {
		return fmt.Errorf("store: marshal paper ids: %w", err)
	}
	sentAt := rec.SentAt
	if sentAt.IsZero() {
		sentAt = time.Now().UTC()
	}
	_, err = s.db.Exec(`INSERT INTO digest_history
		(sent_at, paper_ids, paper_count, digest_type, status)
		VALUES (?, ?, ?, ?, ?)`,
		sentAt.UTC(), string(ids), len(rec.PaperIDs), rec.Type, rec.Status)
	if err != nil {
		return fmt.Errorf("store: record digest: %w", err)
	}
	return nil
}

// DigestHistory returns recent digests, newest first.
func (s *Store) DigestHistory(limit int) ([]model.DigestRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT id, sent_at, paper_ids, paper_count,
		digest_type, status FROM digest_history
		ORDER BY sent_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: digest history: %w", err)
	}
	defer rows.Close()

	var recs []model.DigestRecord
	for rows.Next() {
		var (
			rec model.DigestRecord
			ids string
		)
		if err := rows.Scan(&rec.ID, &rec.SentAt, &ids, &rec.Count,
			&rec.Type, &rec.Status); err != nil {
			return nil, fmt.Errorf("store: digest history: %w", err)
		}
		if err := json.Unmarshal([]byte(ids), &rec.PaperIDs); err != nil {
			rec.PaperIDs = nil
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// RecentlySentIDs returns the set of paper IDs included in any digest
// sent within the last `days` days. Digest selection excludes these so
// consecutive digests never repeat a paper.
func (s *Store) RecentlySentIDs(days int) (map[string]bool, error) {
	since := time.Now().UTC().AddDate(0, 0, -days)
	recs, err := s.digestsSince(since)
	if err != nil {
		return nil, err
	}
	sent := make(map[string]bool)
	for _, rec := range recs {
		for _, id := range rec.PaperIDs {
			sent[id] = true
		}
	}
	return sent, nil
}

// LastDigestAt returns the timestamp of the most recent successful
// digest, or the zero time when none exists.
func (s *Store) LastDigestAt() (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sentAt time.Time
	err := s.db.QueryRow(`SELECT sent_at FROM digest_history
		WHERE status = 'sent' ORDER BY sent_at DESC LIMIT 1`).Scan(&sentAt)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil // never sent
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("store: last digest: %w", err)
	}
	return sentAt, nil
}

func (s *Store) digestsSince(since time.Time) ([]model.DigestRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT id, sent_at, paper_ids, paper_count,
		digest_type, status FROM digest_history WHERE sent_at >= ?`, since)
	if err != nil {
		return nil, fmt.Errorf("store: digests since: %w", err)
	}
	defer rows.Close()

	var recs []model.DigestRecord
	for rows.Next() {
		var (
			rec model.DigestRecord
			ids string
		)
		if err := rows.Scan(&rec.ID, &rec.SentAt, &ids, &rec.Count,
			&rec.Type, &rec.Status); err != nil {
			return nil, fmt.Errorf("store: digests since: %w", err)
		}
		_ = json.Unmarshal([]byte(ids), &rec.PaperIDs)
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}
