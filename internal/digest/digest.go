package digest

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/crimson-sun/paperscout/internal/model"
)

const defaultMaxPapers = 10

// Select picks digest candidates from scored papers: relevance at or
// above the preference threshold, restricted to tracked categories when
// any are set, minus papers already sent recently. Results are ordered
// by score descending and capped at the per-digest maximum.
func Select(papers []model.Paper, prefs model.Preferences, sent map[string]bool) []model.Paper {
	tracked := make(map[string]bool, len(prefs.TrackedCategories))
	for _, c := range prefs.TrackedCategories {
		tracked[c] = true
	}

	var picked []model.Paper
	for _, p := range papers {
		if p.RelevanceScore < prefs.MinRelevanceScore {
			continue
		}
		if len(tracked) > 0 && !tracked[p.PrimaryCategory] {
			continue
		}
		if sent[p.ArxivID] {
			continue
		}
		picked = append(picked, p)
	}

	sort.SliceStable(picked, func(i, j int) bool {
		if picked[i].RelevanceScore != picked[j].RelevanceScore {
			return picked[i].RelevanceScore > picked[j].RelevanceScore
		}
		return picked[i].Published.After(picked[j].Published)
	})

	max := prefs.MaxPapersPerDigest
	if max <= 0 {
		max = defaultMaxPapers
	}
	if len(picked) > max {
		picked = picked[:max]
	}
	return picked
}

// Build assembles a Digest ready for delivery.
func Build(papers []model.Paper, frequency string, now time.Time) model.Digest {
	return model.Digest{
		ID:      uuid.NewString(),
		Type:    frequency,
		Date:    now.UTC(),
		Subject: subject(now, len(papers)),
		Papers:  papers,
	}
}

// Due reports whether a digest should go out given the last successful
// send. Daily digests are due once per UTC calendar day; weekly ones
// after seven days. A zero last time means nothing was ever sent.
func Due(last time.Time, frequency string, now time.Time) bool {
	if last.IsZero() {
		return true
	}
	if frequency == model.FrequencyDaily {
		ly, lm, ld := last.UTC().Date()
		ny, nm, nd := now.UTC().Date()
		return time.Date(ly, lm, ld, 0, 0, 0, 0, time.UTC).
			Before(time.Date(ny, nm, nd, 0, 0, 0, 0, time.UTC))
	}
	return now.Sub(last) >= 7*24*time.Hour
}

func subject(now time.Time, count int) string {
	day := now.Format("Jan 02")
	switch count {
	case 0:
		return fmt.Sprintf("Research Digest • %s", day)
	case 1:
		return fmt.Sprintf("Research Digest • %s • 1 new paper", day)
	default:
		return fmt.Sprintf("Research Digest • %s • %d papers", day, count)
	}
}
