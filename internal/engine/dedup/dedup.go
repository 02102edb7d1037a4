package dedup

import (
	"github.com/crimson-sun/paperscout/internal/model"
)

// Collapse merges papers that appear in more than one category feed.
// A cross-listed paper comes back once per fetched category under the
// same arXiv ID. The first occurrence wins; category tags from later
// occurrences are merged in, preserving order.
func Collapse(papers []model.Paper) []model.Paper {
	if len(papers) == 0 {
		return nil
	}

	// Ordered map: preserve first-occurrence order.
	index := make(map[string]int, len(papers))
	result := make([]model.Paper, 0, len(papers))

	for _, p := range papers {
		i, exists := index[p.ArxivID]
		if !exists {
			index[p.ArxivID] = len(result)
			result = append(result, p)
			continue
		}
		result[i].Categories = mergeCategories(result[i].Categories, p.Categories)
	}
	return result
}

func mergeCategories(into, from []string) []string {
	seen := make(map[string]bool, len(into))
	for _, c := range into {
		seen[c] = true
	}
	for _, c := range from {
		if !seen[c] {
			seen[c] = true
			into = append(into, c)
		}
	}
	return into
}
