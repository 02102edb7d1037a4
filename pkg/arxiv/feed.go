package arxiv

import (
	"encoding/xml"
	"fmt"
	"strings"
	"time"
)

// Paper is one entry of an arXiv Atom feed, flattened.
type Paper struct {
	ID              string    // e.g. "2408.01234v2"
	Title           string
	Authors         []string
	Abstract        string
	PrimaryCategory string
	Categories      []string
	Published       time.Time
	Updated         time.Time
	PDFURL          string
	AbsURL          string
}

// atomFeed mirrors the subset of the Atom schema the API returns.
type atomFeed struct {
	XMLName xml.Name    `xml:"feed"`
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	ID        string         `xml:"id"`
	Title     string         `xml:"title"`
	Summary   string         `xml:"summary"`
	Published string         `xml:"published"`
	Updated   string         `xml:"updated"`
	Authors   []atomAuthor   `xml:"author"`
	Primary   atomCategory   `xml:"primary_category"`
	Tags      []atomCategory `xml:"category"`
	Links     []atomLink     `xml:"link"`
}

type atomAuthor struct {
	Name string `xml:"name"`
}

type atomCategory struct {
	Term string `xml:"term,attr"`
}

type atomLink struct {
	Href  string `xml:"href,attr"`
	Rel   string `xml:"rel,attr"`
	Title string `xml:"title,attr"`
}

// parseFeed decodes an Atom response body. An empty feed is not an error.
func parseFeed(body []byte) (*atomFeed, error) {
	var feed atomFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("arxiv: parse feed: %w", err)
	}
	return &feed, nil
}

// papers converts feed entries into Papers.
func (f *atomFeed) papers() []Paper {
	out := make([]Paper, 0, len(f.Entries))
	for _, e := range f.Entries {
		out = append(out, e.paper())
	}
	return out
}

// paper flattens one Atom entry. The arXiv ID is the suffix of the entry
// ID URL after "/abs/"; PDF and abstract URLs are derived from it so they
// stay stable even when the feed omits explicit links.
func (e atomEntry) paper() Paper {
	id := e.ID
	if i := strings.LastIndex(id, "/abs/"); i >= 0 {
		id = id[i+len("/abs/"):]
	}

	authors := make([]string, 0, len(e.Authors))
	for _, a := range e.Authors {
		if name := strings.TrimSpace(a.Name); name != "" {
			authors = append(authors, name)
		}
	}

	primary := e.Primary.Term
	if primary == "" && len(e.Tags) > 0 {
		primary = e.Tags[0].Term
	}

	categories := make([]string, 0, len(e.Tags))
	for _, t := range e.Tags {
		if t.Term != "" {
			categories = append(categories, t.Term)
		}
	}

	absURL := "https://arxiv.org/abs/" + id
	pdfURL := "https://arxiv.org/pdf/" + id + ".pdf"
	for _, l := range e.Links {
		if l.Title == "pdf" && l.Href != "" {
			pdfURL = l.Href
		}
		if l.Rel == "alternate" && l.Href != "" {
			absURL = l.Href
		}
	}

	return Paper{
		ID:              id,
		Title:           collapseWhitespace(e.Title),
		Authors:         authors,
		Abstract:        collapseWhitespace(e.Summary),
		PrimaryCategory: primary,
		Categories:      categories,
		Published:       parseTime(e.Published),
		Updated:         parseTime(e.Updated),
		PDFURL:          pdfURL,
		AbsURL:          absURL,
	}
}

// parseTime handles the API's timestamp format, returning the zero time
// for malformed values rather than failing the whole feed.
func parseTime(s string) time.Time {
	t, err := time.Parse("2006-01-02T15:04:05Z", s)
	if err != nil {
		t, err = time.Parse(time.RFC3339, s)
		if err != nil {
			return time.Time{}
		}
	}
	return t
}

// collapseWhitespace replaces newlines and runs of spaces with single
// spaces. Feed titles and abstracts arrive hard-wrapped.
func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
