package model

import "time"

// Digest is a rendered batch of papers ready for delivery.
type Digest struct {
	ID      string    `json:"id"`
	Type    string    `json:"type"` // "daily" or "weekly"
	Date    time.Time `json:"date"`
	Subject string    `json:"subject"`
	Papers  []Paper   `json:"papers"`
}

// DigestRecord is one row of digest history.
type DigestRecord struct {
	ID       int64     `json:"id"`
	SentAt   time.Time `json:"sent_at"`
	PaperIDs []string  `json:"paper_ids"`
	Count    int       `json:"paper_count"`
	Type     string    `json:"digest_type"`
	Status   string    `json:"status"` // "sent" or "failed"
}

// Report accumulates the counters of one daily pipeline run.
type Report struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	PapersFetched int  `json:"papers_fetched"`
	PapersNew     int  `json:"papers_new"`
	PapersSkipped int  `json:"papers_skipped"`
	PapersScored  int  `json:"papers_scored"`
	ModelTrained  bool `json:"model_trained"`
	DigestSent    bool `json:"digest_sent"`

	Errors []string `json:"errors,omitempty"`
}

// AddError records a non-fatal step failure.
func (r *Report) AddError(err error) {
	if err != nil {
		r.Errors = append(r.Errors, err.Error())
	}
}

// OK reports whether the run completed without step failures.
func (r *Report) OK() bool { return len(r.Errors) == 0 }
