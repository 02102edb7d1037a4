package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/valyala/fastjson"

	"github.com/crimson-sun/paperscout/internal/model"
)

const filePrefix = "papers_"

// Exporter writes and reads gzipped JSON snapshots of the paper
// corpus. Snapshots are portable backups: a snapshot taken on one
// machine can be imported into a fresh database on another.
type Exporter struct {
	dir    string
	now    func() time.Time
	parser fastjson.ParserPool
}

// New creates an Exporter rooted at dir.
func New(dir string) *Exporter {
	return &Exporter{dir: dir, now: func() time.Time { return time.Now().UTC() }}
}

// Export writes papers to a timestamped snapshot file and returns its
// path. The directory is created if absent.
func (e *Exporter) Export(papers []model.Paper) (string, error) {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("snapshot: create dir: %w", err)
	}

	name := filePrefix + e.now().Format("20060102_150405") + ".json.gz"
	path := filepath.Join(e.dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("snapshot: %w", err)
	}

	gz := gzip.NewWriter(f)
	enc := json.NewEncoder(gz)
	enc.SetIndent("", "  ")
	if err := enc.Encode(papers); err != nil {
		gz.Close()
		f.Close()
		return "", fmt.Errorf("snapshot: encode: %w", err)
	}
	if err := gz.Close(); err != nil {
		f.Close()
		return "", fmt.Errorf("snapshot: compress: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("snapshot: %w", err)
	}
	return path, nil
}

// List returns snapshot filenames in the export directory, newest
// first. A missing directory is an empty list.
func (e *Exporter) List() ([]string, error) {
	entries, err := os.ReadDir(e.dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}

	var names []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, filePrefix) && strings.HasSuffix(name, ".json.gz") {
			names = append(names, name)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	return names, nil
}

// Import reads a snapshot file back into papers. The tolerant parser
// skips malformed entries instead of failing the whole file, so a
// partially damaged snapshot still restores what it can.
func (e *Exporter) Import(path string) ([]model.Paper, error) {
	if !filepath.IsAbs(path) && !strings.ContainsRune(path, os.PathSeparator) {
		path = filepath.Join(e.dir, path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("snapshot: decompress %s: %w", path, err)
	}
	defer gz.Close()

	var raw strings.Builder
	if _, err := gz.WriteTo(&raw); err != nil {
		return nil, fmt.Errorf("snapshot: read %s: %w", path, err)
	}

	p := e.parser.Get()
	defer e.parser.Put(p)

	v, err := p.Parse(raw.String())
	if err != nil {
		return nil, fmt.Errorf("snapshot: parse %s: %w", path, err)
	}
	arr, err := v.Array()
	if err != nil {
		return nil, fmt.Errorf("snapshot: %s is not a paper array", path)
	}

	papers := make([]model.Paper, 0, len(arr))
	for _, val := range arr {
		paper := decodePaper(val)
		if paper.ArxivID == "" {
			continue
		}
		papers = append(papers, paper)
	}
	return papers, nil
}

func decodePaper(v *fastjson.Value) model.Paper {
	paper := model.Paper{
		ArxivID:         string(v.GetStringBytes("arxiv_id")),
		Title:           string(v.GetStringBytes("title")),
		Abstract:        string(v.GetStringBytes("abstract")),
		PrimaryCategory: string(v.GetStringBytes("primary_category")),
		PDFURL:          string(v.GetStringBytes("pdf_url")),
		AbsURL:          string(v.GetStringBytes("abs_url")),
		RelevanceScore:  v.GetFloat64("relevance_score"),
		Saved:           v.GetBool("is_saved"),
	}
	for _, a := range v.GetArray("authors") {
		paper.Authors = append(paper.Authors, string(a.GetStringBytes()))
	}
	for _, c := range v.GetArray("categories") {
		paper.Categories = append(paper.Categories, string(c.GetStringBytes()))
	}
	paper.Published = parseTime(v, "published")
	paper.FetchedAt = parseTime(v, "fetched_at")
	if label := v.Get("user_label"); label != nil && label.Type() == fastjson.TypeNumber {
		l := label.GetInt()
		paper.Label = &l
	}
	if ts := parseTime(v, "labeled_at"); !ts.IsZero() {
		paper.LabeledAt = &ts
	}
	if ts := parseTime(v, "saved_at"); !ts.IsZero() {
		paper.SavedAt = &ts
	}
	if score := v.Get("user_score"); score != nil && score.Type() == fastjson.TypeNumber {
		f := score.GetFloat64()
		paper.ModelScore = &f
	}
	return paper
}

func parseTime(v *fastjson.Value, key string) time.Time {
	s := string(v.GetStringBytes(key))
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
