package digest

import (
	"fmt"
	"html/template"
	"math"
	"strings"

	"github.com/crimson-sun/paperscout/internal/model"
)

// Display caps keep email clients from choking on runaway metadata.
const (
	maxTitleLen    = 150
	maxAuthorsLen  = 80
	maxAbstractLen = 250
)

// Score bands drive the accent color of each paper card.
func scoreColor(score float64) string {
	switch {
	case score >= 0.7:
		return "#10b981"
	case score >= 0.5:
		return "#3b82f6"
	default:
		return "#8b5cf6"
	}
}

type paperView struct {
	Title    string
	Authors  string
	Summary  string
	Category string
	AbsURL   string
	PDFURL   string
	ScorePct int
	Color    string
}

type digestView struct {
	Heading   string
	Count     int
	Interests string
	Papers    []paperView
}

var htmlTmpl = template.Must(template.New("digest").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><meta name="viewport" content="width=device-width, initial-scale=1.0"></head>
<body style="font-family: -apple-system, 'Segoe UI', Roboto, sans-serif; background: #f1f5f9; margin: 0; padding: 0;">
<div style="max-width: 680px; margin: 0 auto; padding: 40px 20px;">
  <div style="text-align: center; margin-bottom: 40px;">
    <h1 style="margin: 0; color: #1e293b; font-size: 28px;">{{.Heading}}</h1>
    <p style="color: #64748b; font-size: 16px; margin: 12px 0 0;">{{.Count}} new papers matching your interests</p>
  </div>
{{- if .Interests}}
  <div style="background: #f8fafc; border-radius: 12px; padding: 16px; margin: 20px 0;">
    <p style="margin: 0; color: #64748b; font-size: 14px;"><strong>Your interests:</strong> {{.Interests}}</p>
  </div>
{{- end}}
  <div style="margin: 30px 0;">
{{- range .Papers}}
    <div style="background: #ffffff; border-radius: 16px; padding: 24px; margin: 16px 0; border-left: 4px solid {{.Color}};">
      <div style="margin-bottom: 12px;">
        <span style="background: {{.Color}}; color: white; padding: 6px 14px; border-radius: 20px; font-size: 13px;">{{.ScorePct}}% Match</span>
        <span style="color: #64748b; font-size: 13px; float: right;">{{.Category}}</span>
      </div>
      <h3 style="margin: 0 0 12px; font-size: 18px; line-height: 1.4;"><a href="{{.AbsURL}}" style="color: #1e293b; text-decoration: none;">{{.Title}}</a></h3>
      <p style="color: #64748b; font-size: 14px; margin: 0 0 12px;">{{.Authors}}</p>
      <p style="color: #475569; font-size: 14px; line-height: 1.6; margin: 0 0 16px;">{{.Summary}}</p>
      <div>
        <a href="{{.PDFURL}}" style="background: {{.Color}}; color: white; padding: 10px 20px; border-radius: 8px; text-decoration: none; font-size: 14px;">Read PDF</a>
        <a href="{{.AbsURL}}" style="background: #f1f5f9; color: #475569; padding: 10px 20px; border-radius: 8px; text-decoration: none; font-size: 14px;">arXiv</a>
      </div>
    </div>
{{- end}}
  </div>
  <div style="text-align: center; padding: 30px 0; border-top: 1px solid #e2e8f0; margin-top: 40px;">
    <p style="color: #94a3b8; font-size: 13px; margin: 0;">Generated from your labels and reading list.</p>
  </div>
</div>
</body>
</html>
`))

// HTML renders the digest email body. topCategories annotates the
// header with the user's strongest interests; pass nil to omit it.
func HTML(d model.Digest, topCategories []string) (string, error) {
	view := digestView{
		Heading:   heading(d.Type),
		Count:     len(d.Papers),
		Interests: strings.Join(topCategories, ", "),
	}
	for _, p := range d.Papers {
		view.Papers = append(view.Papers, paperView{
			Title:    truncate(p.Title, maxTitleLen),
			Authors:  truncate(strings.Join(p.Authors, ", "), maxAuthorsLen),
			Summary:  truncateWords(p.Abstract, maxAbstractLen),
			Category: p.PrimaryCategory,
			AbsURL:   p.AbsURL,
			PDFURL:   p.PDFURL,
			ScorePct: int(math.Round(p.RelevanceScore * 100)),
			Color:    scoreColor(p.RelevanceScore),
		})
	}

	var b strings.Builder
	if err := htmlTmpl.Execute(&b, view); err != nil {
		return "", fmt.Errorf("digest: render html: %w", err)
	}
	return b.String(), nil
}

// PlainText renders the text/plain alternative.
func PlainText(d model.Digest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Your %s research digest\n\n", d.Type)
	for _, p := range d.Papers {
		fmt.Fprintf(&b, "- %s\n  %s\n\n", strings.TrimSpace(p.Title), p.AbsURL)
	}
	return b.String()
}

func heading(frequency string) string {
	if frequency == model.FrequencyWeekly {
		return "Your Weekly Research Digest"
	}
	return "Your Daily Research Digest"
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// truncateWords cuts s to at most n runes at a word boundary, marking
// the cut with an ellipsis.
func truncateWords(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	cut := string(runes[:n])
	if i := strings.LastIndex(cut, " "); i > 0 {
		cut = cut[:i]
	}
	return cut + "..."
}
