package model

import "time"

// Digest frequencies.
const (
	FrequencyDaily  = "daily"
	FrequencyWeekly = "weekly"
)

// Preferences holds the single user's digest and training settings.
// A default row is created on first open of the store.
type Preferences struct {
	Email           string `json:"email"`
	DigestEnabled   bool   `json:"digest_enabled"`
	DigestFrequency string `json:"digest_frequency"` // "daily" or "weekly"
	DigestHour      int    `json:"digest_hour"`      // UTC hour digests become due

	TrackedCategories []string `json:"tracked_categories"`
	TrackedKeywords   []string `json:"tracked_keywords"`

	MinRelevanceScore  float64 `json:"min_relevance_score"`
	MaxPapersPerDigest int     `json:"max_papers_per_digest"`

	AutoTrain        bool       `json:"auto_train"`
	ModelLastTrained *time.Time `json:"model_last_trained,omitempty"`
	ModelAccuracy    *float64   `json:"model_accuracy,omitempty"`

	SMTPHost     string `json:"smtp_host"`
	SMTPPort     int    `json:"smtp_port"`
	SMTPUser     string `json:"smtp_user"`
	SMTPPassword string `json:"-"`

	UpdatedAt time.Time `json:"updated_at"`
}

// DefaultPreferences returns the row inserted when no preferences exist yet.
func DefaultPreferences() Preferences {
	return Preferences{
		DigestFrequency:    FrequencyWeekly,
		DigestHour:         8,
		MinRelevanceScore:  0.5,
		MaxPapersPerDigest: 10,
		AutoTrain:          true,
		SMTPHost:           "smtp.gmail.com",
		SMTPPort:           587,
	}
}

// LookbackDays returns how many days of digest history a frequency covers.
func (p Preferences) LookbackDays() int {
	if p.DigestFrequency == FrequencyDaily {
		return 1
	}
	return 7
}
