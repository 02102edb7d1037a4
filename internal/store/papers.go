package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/crimson-sun/paperscout/internal/model"
)

// ErrNotFound is returned when a paper lookup matches nothing.
var ErrNotFound = errors.New("store: paper not found")

const paperColumns = `arxiv_id, title, authors, abstract, pdf_url, abs_url,
	primary_category, categories, published, fetched_at, relevance_score,
	user_label, labeled_at, is_saved, saved_at, user_score`

// AddPapers inserts papers that are not yet in the corpus. Papers whose
// arXiv ID already exists are skipped. Returns (added, skipped).
func (s *Store) AddPapers(papers []model.Paper) (int, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return 0, 0, fmt.Errorf("store: begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT OR IGNORE INTO papers
		(arxiv_id, title, authors, abstract, pdf_url, abs_url,
		 primary_category, categories, published, fetched_at, relevance_score)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, 0, fmt.Errorf("store: prepare insert: %w", err)
	}
	defer stmt.Close()

	added := 0
	for _, p := range papers {
		score := p.RelevanceScore
		if score == 0 {
			score = 0.5
		}
		res, err := stmt.Exec(
			p.ArxivID, p.Title, joinAuthors(p.Authors), p.Abstract,
			p.PDFURL, p.AbsURL, p.PrimaryCategory, marshalList(p.Categories),
			nullTime(p.Published), nullTime(p.FetchedAt), score,
		)
		if err != nil {
			return 0, 0, fmt.Errorf("store: insert %s: %w", p.ArxivID, err)
		}
		n, _ := res.RowsAffected()
		added += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("store: commit: %w", err)
	}
	return added, len(papers) - added, nil
}

// RestorePapers inserts papers with their full user state: labels,
// label timestamps, reading-list flags, and model scores. Snapshot
// imports use this so a restore onto a fresh database keeps the
// training labels. Existing papers are left untouched.
// Returns (added, skipped).
func (s *Store) RestorePapers(papers []model.Paper) (int, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return 0, 0, fmt.Errorf("store: begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT OR IGNORE INTO papers
		(` + paperColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, 0, fmt.Errorf("store: prepare insert: %w", err)
	}
	defer stmt.Close()

	added := 0
	for _, p := range papers {
		score := p.RelevanceScore
		if score == 0 {
			score = 0.5
		}
		var label, labeledAt, savedAt, userScore any
		if p.Label != nil {
			label = *p.Label
		}
		if p.LabeledAt != nil {
			labeledAt = p.LabeledAt.UTC()
		}
		if p.SavedAt != nil {
			savedAt = p.SavedAt.UTC()
		}
		if p.ModelScore != nil {
			userScore = *p.ModelScore
		}
		res, err := stmt.Exec(
			p.ArxivID, p.Title, joinAuthors(p.Authors), p.Abstract,
			p.PDFURL, p.AbsURL, p.PrimaryCategory, marshalList(p.Categories),
			nullTime(p.Published), nullTime(p.FetchedAt), score,
			label, labeledAt, p.Saved, savedAt, userScore,
		)
		if err != nil {
			return 0, 0, fmt.Errorf("store: restore %s: %w", p.ArxivID, err)
		}
		n, _ := res.RowsAffected()
		added += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("store: commit: %w", err)
	}
	return added, len(papers) - added, nil
}

// GetPaper returns a single paper by arXiv ID.
func (s *Store) GetPaper(arxivID string) (model.Paper, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow("SELECT "+paperColumns+" FROM papers WHERE arxiv_id = ?", arxivID)
	p, err := scanPaper(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Paper{}, ErrNotFound
	}
	return p, err
}

// ListPapers returns papers ordered by relevance score descending.
func (s *Store) ListPapers(limit int) ([]model.Paper, error) {
	return s.queryPapers("SELECT "+paperColumns+
		" FROM papers ORDER BY relevance_score DESC, published DESC LIMIT ?", limit)
}

// SearchPapers matches a keyword against title, abstract, and authors.
func (s *Store) SearchPapers(keyword string, limit int) ([]model.Paper, error) {
	pattern := "%" + keyword + "%"
	return s.queryPapers("SELECT "+paperColumns+` FROM papers
		WHERE title LIKE ? OR abstract LIKE ? OR authors LIKE ?
		ORDER BY relevance_score DESC LIMIT ?`,
		pattern, pattern, pattern, limit)
}

// UnlabeledPapers returns unrated papers, highest-scored first — the
// labeling queue.
func (s *Store) UnlabeledPapers(limit int) ([]model.Paper, error) {
	return s.queryPapers("SELECT "+paperColumns+` FROM papers
		WHERE user_label IS NULL ORDER BY relevance_score DESC LIMIT ?`, limit)
}

// LabeledPapers returns every rated paper.
func (s *Store) LabeledPapers() ([]model.Paper, error) {
	return s.queryPapers("SELECT " + paperColumns + " FROM papers WHERE user_label IS NOT NULL")
}

// PositivePapers returns papers the user marked relevant.
func (s *Store) PositivePapers() ([]model.Paper, error) {
	return s.queryPapers("SELECT " + paperColumns + " FROM papers WHERE user_label = 1")
}

// UnscoredPapers returns papers still carrying no model score.
func (s *Store) UnscoredPapers(limit int) ([]model.Paper, error) {
	return s.queryPapers("SELECT "+paperColumns+
		" FROM papers WHERE user_score IS NULL LIMIT ?", limit)
}

// LabelPaper records the user's rating (1 relevant, 0 not relevant).
func (s *Store) LabelPaper(arxivID string, label int) error {
	if label != 0 && label != 1 {
		return fmt.Errorf("store: invalid label %d", label)
	}
	return s.execOne(`UPDATE papers SET user_label = ?, labeled_at = ?
		WHERE arxiv_id = ?`, label, time.Now().UTC(), arxivID)
}

// SaveToReadingList marks a paper saved. Saving an unlabeled paper also
// labels it relevant: saving is a strong positive signal.
func (s *Store) SaveToReadingList(arxivID string) error {
	now := time.Now().UTC()
	err := s.execOne(`UPDATE papers SET is_saved = 1, saved_at = ? WHERE arxiv_id = ?`, now, arxivID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.Exec(`UPDATE papers SET user_label = 1, labeled_at = ?
		WHERE arxiv_id = ? AND user_label IS NULL`, now, arxivID)
	if err != nil {
		return fmt.Errorf("store: label saved paper: %w", err)
	}
	return nil
}

// RemoveFromReadingList unmarks a saved paper. The label is untouched.
func (s *Store) RemoveFromReadingList(arxivID string) error {
	return s.execOne(`UPDATE papers SET is_saved = 0 WHERE arxiv_id = ?`, arxivID)
}

// ReadingList returns saved papers, most recently saved first.
func (s *Store) ReadingList() ([]model.Paper, error) {
	return s.queryPapers("SELECT " + paperColumns +
		" FROM papers WHERE is_saved = 1 ORDER BY saved_at DESC")
}

// UpdateScores applies model scores in bulk, setting both the model score
// and the relevance score used for ranking and digest selection.
func (s *Store) UpdateScores(scores map[string]float64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("store: begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`UPDATE papers SET user_score = ?, relevance_score = ?
		WHERE arxiv_id = ?`)
	if err != nil {
		return 0, fmt.Errorf("store: prepare update: %w", err)
	}
	defer stmt.Close()

	updated := 0
	for id, score := range scores {
		res, err := stmt.Exec(score, score, id)
		if err != nil {
			return 0, fmt.Errorf("store: update %s: %w", id, err)
		}
		n, _ := res.RowsAffected()
		updated += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("store: commit: %w", err)
	}
	return updated, nil
}

// Categories returns the distinct primary categories in the corpus.
func (s *Store) Categories() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT DISTINCT primary_category FROM papers
		WHERE primary_category != '' ORDER BY primary_category`)
	if err != nil {
		return nil, fmt.Errorf("store: categories: %w", err)
	}
	defer rows.Close()

	var cats []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("store: categories: %w", err)
		}
		cats = append(cats, c)
	}
	return cats, rows.Err()
}

// Stats summarizes the corpus.
type Stats struct {
	TotalPapers     int `json:"total_papers"`
	LabeledPapers   int `json:"labeled_papers"`
	UnlabeledPapers int `json:"unlabeled_papers"`
	PositiveLabels  int `json:"positive_labels"`
	NegativeLabels  int `json:"negative_labels"`
	SavedPapers     int `json:"saved_papers"`
}

// GetStats counts papers by labeling state.
func (s *Store) GetStats() (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var st Stats
	row := s.db.QueryRow(`SELECT
		COUNT(*),
		COUNT(user_label),
		COALESCE(SUM(CASE WHEN user_label = 1 THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN user_label = 0 THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(is_saved), 0)
		FROM papers`)
	if err := row.Scan(&st.TotalPapers, &st.LabeledPapers,
		&st.PositiveLabels, &st.NegativeLabels, &st.SavedPapers); err != nil {
		return Stats{}, fmt.Errorf("store: stats: %w", err)
	}
	st.UnlabeledPapers = st.TotalPapers - st.LabeledPapers
	return st, nil
}

// CountPapers returns the corpus size.
func (s *Store) CountPapers() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM papers").Scan(&n); err != nil {
		return 0, fmt.Errorf("store: count: %w", err)
	}
	return n, nil
}

// execOne runs an update that must match exactly one paper.
func (s *Store) execOne(query string, args ...any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// queryPapers runs a SELECT over paperColumns and scans the rows.
func (s *Store) queryPapers(query string, args ...any) ([]model.Paper, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: query papers: %w", err)
	}
	defer rows.Close()

	var papers []model.Paper
	for rows.Next() {
		p, err := scanPaper(rows)
		if err != nil {
			return nil, err
		}
		papers = append(papers, p)
	}
	return papers, rows.Err()
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanPaper(r rowScanner) (model.Paper, error) {
	var (
		p          model.Paper
		authors    sql.NullString
		categories sql.NullString
		published  sql.NullTime
		fetchedAt  sql.NullTime
		label      sql.NullInt64
		labeledAt  sql.NullTime
		savedAt    sql.NullTime
		userScore  sql.NullFloat64
	)

	err := r.Scan(&p.ArxivID, &p.Title, &authors, &p.Abstract, &p.PDFURL,
		&p.AbsURL, &p.PrimaryCategory, &categories, &published, &fetchedAt,
		&p.RelevanceScore, &label, &labeledAt, &p.Saved, &savedAt, &userScore)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Paper{}, err
		}
		return model.Paper{}, fmt.Errorf("store: scan paper: %w", err)
	}

	p.Authors = splitAuthors(authors.String)
	p.Categories = unmarshalList(categories.String)
	if published.Valid {
		p.Published = published.Time
	}
	if fetchedAt.Valid {
		p.FetchedAt = fetchedAt.Time
	}
	if label.Valid {
		v := int(label.Int64)
		p.Label = &v
	}
	if labeledAt.Valid {
		t := labeledAt.Time
		p.LabeledAt = &t
	}
	if savedAt.Valid {
		t := savedAt.Time
		p.SavedAt = &t
	}
	if userScore.Valid {
		v := userScore.Float64
		p.ModelScore = &v
	}
	return p, nil
}

func joinAuthors(authors []string) string {
	return strings.Join(authors, ", ")
}

func splitAuthors(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ", ")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func marshalList(items []string) string {
	if len(items) == 0 {
		return "[]"
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "[]"
	}
	return string(b)
}

func unmarshalList(s string) []string {
	if s == "" || s == "[]" {
		return nil
	}
	var items []string
	if err := json.Unmarshal([]byte(s), &items); err != nil {
		return nil
	}
	return items
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC()
}
