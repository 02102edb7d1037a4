package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/crimson-sun/paperscout/internal/config"
	"github.com/crimson-sun/paperscout/internal/engine"
	"github.com/crimson-sun/paperscout/internal/model"
	"github.com/crimson-sun/paperscout/internal/source"
	"github.com/crimson-sun/paperscout/internal/store"
)

// stubSource serves canned papers per category.
type stubSource struct {
	byCategory map[string][]model.Paper
	failing    map[string]bool
}

func (s *stubSource) Latest(_ context.Context, _ source.Config, category string, _ int) ([]model.Paper, error) {
	if s.failing[category] {
		return nil, errors.New("api unavailable")
	}
	return s.byCategory[category], nil
}

func (s *stubSource) Search(context.Context, source.Config, source.SearchParams) ([]model.Paper, error) {
	return nil, errors.New("not implemented")
}

// stubEmbedder places titles starting with "neg" on one side of the
// plane and everything else on the other.
type stubEmbedder struct{}

func (stubEmbedder) Embed(text string) ([]float32, error) {
	vecs, _ := stubEmbedder{}.EmbedBatch([]string{text})
	return vecs[0], nil
}

func (stubEmbedder) EmbedBatch(texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if strings.HasPrefix(t, "neg") {
			out[i] = []float32{0.05, 0.95}
		} else {
			out[i] = []float32{0.95, 0.05}
		}
	}
	return out, nil
}

func (stubEmbedder) Dim() int     { return 2 }
func (stubEmbedder) Close() error { return nil }

// recordingNotifier captures sent digests.
type recordingNotifier struct {
	digests []model.Digest
	err     error
}

func (r *recordingNotifier) Send(_ context.Context, d model.Digest) error {
	if r.err != nil {
		return r.err
	}
	r.digests = append(r.digests, d)
	return nil
}

func (r *recordingNotifier) Close() error { return nil }

func testConfig(categories ...string) config.Config {
	cfg := config.Default()
	cfg.Fetch.Categories = categories
	return cfg
}

func openStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "papers.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func fetchedPaper(id, title, category string) model.Paper {
	return model.Paper{ArxivID: id, Title: title, PrimaryCategory: category, Categories: []string{category}}
}

func TestRunFetchesDedupsAndScores(t *testing.T) {
	st := openStore(t)
	src := &stubSource{byCategory: map[string][]model.Paper{
		"cs.AI": {
			fetchedPaper("1", "alpha", "cs.AI"),
			fetchedPaper("2", "beta", "cs.AI"),
		},
		"cs.LG": {
			fetchedPaper("2", "beta", "cs.LG"), // cross-listed
			fetchedPaper("3", "gamma", "cs.LG"),
		},
	}}
	eng := engine.New(stubEmbedder{}, 0.5)
	p := New(testConfig("cs.AI", "cs.LG"), st, eng, src, zap.NewNop())

	report, err := p.Run(context.Background(), false)
	require.NoError(t, err)

	require.Equal(t, 4, report.PapersFetched)
	require.Equal(t, 3, report.PapersNew)
	require.Equal(t, 3, report.PapersScored)
	require.False(t, report.DigestSent)
	require.True(t, report.OK(), "errors: %v", report.Errors)

	// Without labels or a model every paper keeps the neutral score.
	papers, err := st.ListPapers(10)
	require.NoError(t, err)
	require.Len(t, papers, 3)
	for _, paper := range papers {
		require.InDelta(t, 0.5, paper.RelevanceScore, 1e-9)
	}
}

func TestRunCollectsFetchErrors(t *testing.T) {
	st := openStore(t)
	src := &stubSource{
		byCategory: map[string][]model.Paper{
			"cs.AI": {fetchedPaper("1", "alpha", "cs.AI")},
		},
		failing: map[string]bool{"cs.LG": true},
	}
	eng := engine.New(stubEmbedder{}, 0.5)
	p := New(testConfig("cs.AI", "cs.LG"), st, eng, src, zap.NewNop())

	report, err := p.Run(context.Background(), false)
	require.NoError(t, err)

	// The healthy category still lands.
	require.Equal(t, 1, report.PapersNew)
	require.Len(t, report.Errors, 1)
	require.Contains(t, report.Errors[0], "cs.LG")
}

func TestRunCollectsConcurrentFetchErrors(t *testing.T) {
	st := openStore(t)

	// More failing categories than the fetch concurrency limit, so
	// several goroutines report failures at the same time.
	categories := []string{
		"cs.AI", "cs.LG", "cs.CL", "cs.CV",
		"cs.RO", "cs.NE", "cs.IR", "cs.SE",
	}
	failing := make(map[string]bool, len(categories))
	for _, c := range categories {
		failing[c] = true
	}
	src := &stubSource{failing: failing}
	eng := engine.New(stubEmbedder{}, 0.5)
	p := New(testConfig(categories...), st, eng, src, zap.NewNop())

	report, err := p.Run(context.Background(), false)
	require.NoError(t, err)

	require.False(t, report.OK())
	require.Len(t, report.Errors, len(categories))
	for _, c := range categories {
		require.Contains(t, strings.Join(report.Errors, "\n"), c)
	}
}

func TestRunAutoTrainsWhenEnoughLabels(t *testing.T) {
	st := openStore(t)
	seed := []model.Paper{
		fetchedPaper("1", "pos alpha", "cs.AI"),
		fetchedPaper("2", "pos beta", "cs.AI"),
		fetchedPaper("3", "pos gamma", "cs.AI"),
		fetchedPaper("4", "neg delta", "cs.AI"),
		fetchedPaper("5", "neg epsilon", "cs.AI"),
	}
	_, _, err := st.AddPapers(seed)
	require.NoError(t, err)
	for _, id := range []string{"1", "2", "3"} {
		require.NoError(t, st.LabelPaper(id, 1))
	}
	for _, id := range []string{"4", "5"} {
		require.NoError(t, st.LabelPaper(id, 0))
	}

	eng := engine.New(stubEmbedder{}, 0.5)
	src := &stubSource{byCategory: map[string][]model.Paper{}}
	p := New(testConfig("cs.AI"), st, eng, src, zap.NewNop())

	report, err := p.Run(context.Background(), false)
	require.NoError(t, err)
	require.True(t, report.ModelTrained)

	state, err := st.ActiveModelState()
	require.NoError(t, err)
	require.Equal(t, "embed_logreg", state.ModelType)
	require.Equal(t, 5, state.Samples)
	require.NotEmpty(t, state.Weights)

	// Unscored papers were scored by the fresh model, not the default.
	papers, err := st.ListPapers(10)
	require.NoError(t, err)
	for _, paper := range papers {
		if strings.HasPrefix(paper.Title, "neg") {
			require.Less(t, paper.RelevanceScore, 0.5, paper.Title)
		} else {
			require.Greater(t, paper.RelevanceScore, 0.5, paper.Title)
		}
	}
}

func TestRunForcedDigest(t *testing.T) {
	st := openStore(t)
	_, _, err := st.AddPapers([]model.Paper{
		fetchedPaper("1", "alpha", "cs.AI"),
		fetchedPaper("2", "beta", "cs.AI"),
	})
	require.NoError(t, err)

	rec := &recordingNotifier{}
	eng := engine.New(stubEmbedder{}, 0.5)
	src := &stubSource{byCategory: map[string][]model.Paper{}}
	p := New(testConfig("cs.AI"), st, eng, src, zap.NewNop(), WithNotifier(rec))

	report, err := p.Run(context.Background(), true)
	require.NoError(t, err)
	require.True(t, report.DigestSent)
	require.Len(t, rec.digests, 1)
	require.Len(t, rec.digests[0].Papers, 2)

	history, err := st.DigestHistory(5)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, "sent", history[0].Status)
	require.ElementsMatch(t, []string{"1", "2"}, history[0].PaperIDs)

	// A second forced run has nothing left to send: both papers were
	// just included in a digest.
	report, err = p.Run(context.Background(), true)
	require.NoError(t, err)
	require.False(t, report.DigestSent)
	require.Len(t, rec.digests, 1)
}

func TestRunDigestFailureRecorded(t *testing.T) {
	st := openStore(t)
	_, _, err := st.AddPapers([]model.Paper{fetchedPaper("1", "alpha", "cs.AI")})
	require.NoError(t, err)

	rec := &recordingNotifier{err: errors.New("smtp down")}
	eng := engine.New(stubEmbedder{}, 0.5)
	src := &stubSource{byCategory: map[string][]model.Paper{}}
	p := New(testConfig("cs.AI"), st, eng, src, zap.NewNop(), WithNotifier(rec))

	report, err := p.Run(context.Background(), true)
	require.NoError(t, err)
	require.False(t, report.DigestSent)
	require.False(t, report.OK())

	history, err := st.DigestHistory(5)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, "failed", history[0].Status)
}

func TestRunDigestNotDueSkips(t *testing.T) {
	st := openStore(t)
	prefs, err := st.GetPreferences()
	require.NoError(t, err)
	prefs.DigestEnabled = true
	prefs.Email = "reader@example.com"
	prefs.DigestFrequency = model.FrequencyWeekly
	require.NoError(t, st.UpdatePreferences(prefs))

	// A digest already went out moments ago.
	require.NoError(t, st.RecordDigest(model.DigestRecord{
		PaperIDs: []string{"0"},
		Type:     model.FrequencyWeekly,
		Status:   "sent",
	}))
	_, _, err = st.AddPapers([]model.Paper{fetchedPaper("1", "alpha", "cs.AI")})
	require.NoError(t, err)

	rec := &recordingNotifier{}
	eng := engine.New(stubEmbedder{}, 0.5)
	src := &stubSource{byCategory: map[string][]model.Paper{}}
	p := New(testConfig("cs.AI"), st, eng, src, zap.NewNop(), WithNotifier(rec))

	report, err := p.Run(context.Background(), false)
	require.NoError(t, err)
	require.False(t, report.DigestSent)
	require.Empty(t, rec.digests)
}
