package digest

import (
	"strings"
	"testing"
	"time"

	"github.com/crimson-sun/paperscout/internal/model"
)

func scored(id string, score float64, category string) model.Paper {
	return model.Paper{
		ArxivID:         id,
		Title:           "Paper " + id,
		RelevanceScore:  score,
		PrimaryCategory: category,
		AbsURL:          "https://arxiv.org/abs/" + id,
		PDFURL:          "https://arxiv.org/pdf/" + id,
	}
}

func prefsWith(min float64, max int, cats ...string) model.Preferences {
	p := model.DefaultPreferences()
	p.MinRelevanceScore = min
	p.MaxPapersPerDigest = max
	p.TrackedCategories = cats
	return p
}

func TestSelectFiltersByScore(t *testing.T) {
	papers := []model.Paper{
		scored("1", 0.9, "cs.AI"),
		scored("2", 0.4, "cs.AI"),
		scored("3", 0.5, "cs.AI"),
	}
	got := Select(papers, prefsWith(0.5, 10), nil)
	if len(got) != 2 {
		t.Fatalf("selected %d papers, want 2", len(got))
	}
	if got[0].ArxivID != "1" || got[1].ArxivID != "3" {
		t.Fatalf("order = %v", got)
	}
}

func TestSelectTrackedCategories(t *testing.T) {
	papers := []model.Paper{
		scored("1", 0.9, "cs.AI"),
		scored("2", 0.9, "math.CO"),
	}
	got := Select(papers, prefsWith(0.5, 10, "cs.AI", "cs.LG"), nil)
	if len(got) != 1 || got[0].ArxivID != "1" {
		t.Fatalf("selected %v", got)
	}
	// No tracked categories means no category filter.
	got = Select(papers, prefsWith(0.5, 10), nil)
	if len(got) != 2 {
		t.Fatalf("selected %d papers without category filter, want 2", len(got))
	}
}

func TestSelectExcludesRecentlySent(t *testing.T) {
	papers := []model.Paper{scored("1", 0.9, "cs.AI"), scored("2", 0.8, "cs.AI")}
	got := Select(papers, prefsWith(0.5, 10), map[string]bool{"1": true})
	if len(got) != 1 || got[0].ArxivID != "2" {
		t.Fatalf("selected %v", got)
	}
}

func TestSelectCapsAtMax(t *testing.T) {
	var papers []model.Paper
	for i := 0; i < 15; i++ {
		papers = append(papers, scored(string(rune('a'+i)), 0.9, "cs.AI"))
	}
	got := Select(papers, prefsWith(0.5, 3), nil)
	if len(got) != 3 {
		t.Fatalf("selected %d papers, want 3", len(got))
	}
}

func TestSubject(t *testing.T) {
	now := time.Date(2026, 1, 2, 9, 0, 0, 0, time.UTC)
	cases := []struct {
		count int
		want  string
	}{
		{0, "Research Digest • Jan 02"},
		{1, "Research Digest • Jan 02 • 1 new paper"},
		{7, "Research Digest • Jan 02 • 7 papers"},
	}
	for _, tc := range cases {
		if got := subject(now, tc.count); got != tc.want {
			t.Fatalf("subject(%d) = %q, want %q", tc.count, got, tc.want)
		}
	}
}

func TestBuild(t *testing.T) {
	now := time.Date(2026, 3, 4, 8, 0, 0, 0, time.UTC)
	d := Build([]model.Paper{scored("1", 0.8, "cs.AI")}, model.FrequencyDaily, now)
	if d.ID == "" {
		t.Fatal("empty digest ID")
	}
	if d.Type != model.FrequencyDaily {
		t.Fatalf("type = %q", d.Type)
	}
	if !strings.Contains(d.Subject, "Mar 04") {
		t.Fatalf("subject = %q", d.Subject)
	}
}

func TestDue(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		name string
		last time.Time
		freq string
		want bool
	}{
		{"never sent", time.Time{}, model.FrequencyDaily, true},
		{"daily sent yesterday", now.AddDate(0, 0, -1), model.FrequencyDaily, true},
		{"daily sent today", now.Add(-2 * time.Hour), model.FrequencyDaily, false},
		{"weekly sent 8 days ago", now.AddDate(0, 0, -8), model.FrequencyWeekly, true},
		{"weekly sent 3 days ago", now.AddDate(0, 0, -3), model.FrequencyWeekly, false},
	}
	for _, tc := range cases {
		if got := Due(tc.last, tc.freq, now); got != tc.want {
			t.Fatalf("%s: Due = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestHTMLRendersPapers(t *testing.T) {
	p := scored("2401.00001", 0.85, "cs.LG")
	p.Authors = []string{"Ada Lovelace", "Alan Turing"}
	p.Abstract = "We propose a method."
	d := Build([]model.Paper{p}, model.FrequencyDaily, time.Now())

	html, err := HTML(d, []string{"cs.LG", "cs.CL"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	for _, want := range []string{
		"Your Daily Research Digest",
		"Paper 2401.00001",
		"Ada Lovelace, Alan Turing",
		"85% Match",
		"#10b981", // high-score band
		"https://arxiv.org/abs/2401.00001",
		"cs.LG, cs.CL",
	} {
		if !strings.Contains(html, want) {
			t.Fatalf("html missing %q", want)
		}
	}
}

func TestHTMLEscapesContent(t *testing.T) {
	p := scored("1", 0.6, "cs.AI")
	p.Title = "<script>alert(1)</script>"
	d := Build([]model.Paper{p}, model.FrequencyDaily, time.Now())

	html, err := HTML(d, nil)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(html, "<script>") {
		t.Fatal("title not escaped")
	}
}

func TestScoreColorBands(t *testing.T) {
	cases := []struct {
		score float64
		want  string
	}{
		{0.9, "#10b981"},
		{0.7, "#10b981"},
		{0.6, "#3b82f6"},
		{0.5, "#3b82f6"},
		{0.3, "#8b5cf6"},
	}
	for _, tc := range cases {
		if got := scoreColor(tc.score); got != tc.want {
			t.Fatalf("scoreColor(%v) = %q, want %q", tc.score, got, tc.want)
		}
	}
}

func TestPlainText(t *testing.T) {
	d := Build([]model.Paper{scored("1", 0.8, "cs.AI")}, model.FrequencyWeekly, time.Now())
	text := PlainText(d)
	if !strings.Contains(text, "weekly research digest") {
		t.Fatalf("text = %q", text)
	}
	if !strings.Contains(text, "- Paper 1\n  https://arxiv.org/abs/1") {
		t.Fatalf("text = %q", text)
	}
}

func TestTruncateWords(t *testing.T) {
	if got := truncateWords("short text", 50); got != "short text" {
		t.Fatalf("got %q", got)
	}
	got := truncateWords("one two three four", 12)
	if got != "one two..." {
		t.Fatalf("got %q", got)
	}
}
