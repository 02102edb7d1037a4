package interests

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/crimson-sun/paperscout/internal/model"
)

const (
	maxKeywords = 20
	minKeywordN = 2
)

// stopwords excludes function words and boilerplate paper-title filler
// from the keyword profile.
var stopwords = map[string]bool{
	"the": true, "and": true, "but": true, "for": true, "with": true,
	"from": true, "was": true, "are": true, "were": true, "been": true,
	"have": true, "has": true, "had": true, "does": true, "did": true,
	"will": true, "would": true, "could": true, "should": true,
	"may": true, "might": true, "can": true, "this": true, "that": true,
	"these": true, "those": true, "using": true, "based": true,
	"via": true, "new": true, "novel": true, "approach": true,
	"method": true,
}

var wordRE = regexp.MustCompile(`\b[a-z]{3,}\b`)

// CategoryCount is one entry of the category histogram, most frequent
// first.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// Profile summarizes what the user finds relevant, derived from papers
// they labeled positive or saved to the reading list.
type Profile struct {
	Categories []CategoryCount `json:"categories"`
	Keywords   []string        `json:"keywords"`
}

// BuildProfile derives a Profile from relevant papers. Duplicates by
// arXiv ID are counted once. Keywords come from titles, lowercased,
// minus stopwords, and must appear at least twice.
func BuildProfile(papers []model.Paper) Profile {
	seen := make(map[string]bool, len(papers))
	catCounts := make(map[string]int)
	wordCounts := make(map[string]int)

	for _, p := range papers {
		if seen[p.ArxivID] {
			continue
		}
		seen[p.ArxivID] = true

		cat := p.PrimaryCategory
		if cat == "" {
			cat = "unknown"
		}
		catCounts[cat]++

		for _, w := range wordRE.FindAllString(strings.ToLower(p.Title), -1) {
			if !stopwords[w] {
				wordCounts[w]++
			}
		}
	}

	var profile Profile
	for cat, n := range catCounts {
		profile.Categories = append(profile.Categories, CategoryCount{Category: cat, Count: n})
	}
	sort.Slice(profile.Categories, func(i, j int) bool {
		if profile.Categories[i].Count != profile.Categories[j].Count {
			return profile.Categories[i].Count > profile.Categories[j].Count
		}
		return profile.Categories[i].Category < profile.Categories[j].Category
	})

	type wc struct {
		word  string
		count int
	}
	var words []wc
	for w, n := range wordCounts {
		if n >= minKeywordN {
			words = append(words, wc{w, n})
		}
	}
	sort.Slice(words, func(i, j int) bool {
		if words[i].count != words[j].count {
			return words[i].count > words[j].count
		}
		return words[i].word < words[j].word
	})
	if len(words) > maxKeywords {
		words = words[:maxKeywords]
	}
	for _, w := range words {
		profile.Keywords = append(profile.Keywords, w.word)
	}
	return profile
}

// Prototype is a centroid of relevant-paper embeddings used to score
// papers before a trained model exists.
type Prototype struct {
	vec []float32
}

// NewPrototype builds a normalized centroid from embeddings of papers
// the user marked relevant. Returns nil when there is nothing to
// average.
func NewPrototype(vecs [][]float32) *Prototype {
	if len(vecs) == 0 {
		return nil
	}
	dim := len(vecs[0])
	centroid := make([]float32, dim)
	for _, v := range vecs {
		for i := 0; i < dim && i < len(v); i++ {
			centroid[i] += v[i]
		}
	}
	inv := 1.0 / float32(len(vecs))
	for i := range centroid {
		centroid[i] *= inv
	}
	normalize(centroid)
	return &Prototype{vec: centroid}
}

// Score maps cosine similarity against the centroid into [0, 1].
func (p *Prototype) Score(vec []float32) float64 {
	return (cosineSimilarity(p.vec, vec) + 1) / 2
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

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
