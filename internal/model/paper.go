package model

import (
	"strings"
	"time"
)

// Paper is a single arXiv paper as stored in the corpus.
type Paper struct {
	ArxivID         string     `json:"arxiv_id"`
	Title           string     `json:"title"`
	Authors         []string   `json:"authors"`
	Abstract        string     `json:"abstract"`
	PrimaryCategory string     `json:"primary_category"`
	Categories      []string   `json:"categories,omitempty"`
	PDFURL          string     `json:"pdf_url"`
	AbsURL          string     `json:"abs_url"`
	Published       time.Time  `json:"published"`
	FetchedAt       time.Time  `json:"fetched_at,omitempty"`

	// RelevanceScore is the score assigned by the active model (or the
	// 0.5 default before any model exists).
	RelevanceScore float64 `json:"relevance_score"`

	// Label is nil until the user rates the paper; 1 = relevant, 0 = not.
	Label     *int       `json:"user_label,omitempty"`
	LabeledAt *time.Time `json:"labeled_at,omitempty"`

	Saved   bool       `json:"is_saved"`
	SavedAt *time.Time `json:"saved_at,omitempty"`

	// ModelScore holds the most recent prediction of the trained
	// classifier, kept separate from RelevanceScore so re-scoring can
	// be compared against what the digest actually used.
	ModelScore *float64 `json:"user_score,omitempty"`
}

// Text returns the text used for embedding: title and abstract joined,
// the same preparation the training and scoring paths share.
func (p Paper) Text() string {
	title := strings.TrimSpace(p.Title)
	abstract := strings.TrimSpace(p.Abstract)
	if abstract == "" {
		return title
	}
	return title + ". " + abstract
}

// Labeled reports whether the user has rated the paper.
func (p Paper) Labeled() bool { return p.Label != nil }

// Relevant reports whether the paper carries a positive label.
func (p Paper) Relevant() bool { return p.Label != nil && *p.Label == 1 }
