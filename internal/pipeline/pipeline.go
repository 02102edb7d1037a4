package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/crimson-sun/paperscout/internal/config"
	"github.com/crimson-sun/paperscout/internal/digest"
	"github.com/crimson-sun/paperscout/internal/engine"
	"github.com/crimson-sun/paperscout/internal/engine/classifier"
	"github.com/crimson-sun/paperscout/internal/engine/dedup"
	"github.com/crimson-sun/paperscout/internal/engine/interests"
	"github.com/crimson-sun/paperscout/internal/model"
	"github.com/crimson-sun/paperscout/internal/notify"
	"github.com/crimson-sun/paperscout/internal/notify/email"
	"github.com/crimson-sun/paperscout/internal/notify/multi"
	"github.com/crimson-sun/paperscout/internal/notify/webhook"
	"github.com/crimson-sun/paperscout/internal/source"
	"github.com/crimson-sun/paperscout/internal/store"
)

// fetchConcurrency bounds parallel category fetches. The arXiv API
// client throttles itself, so this mostly limits goroutine fan-out.
const fetchConcurrency = 4

// scoreBatch caps how many unscored papers one run embeds.
const scoreBatch = 200

// digestPool is how many top-scored papers digest selection considers.
const digestPool = 50

// Pipeline runs the daily workflow: fetch, dedup, store, train, score,
// and digest delivery.
type Pipeline struct {
	cfg      config.Config
	store    *store.Store
	engine   *engine.Engine
	src      source.Source
	log      *zap.Logger
	notifier notify.Notifier // overrides preference-driven delivery when set
	now      func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithNotifier replaces the notifier built from preferences.
func WithNotifier(n notify.Notifier) Option {
	return func(p *Pipeline) { p.notifier = n }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// New assembles a Pipeline from its components.
func New(cfg config.Config, st *store.Store, eng *engine.Engine, src source.Source, log *zap.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg:    cfg,
		store:  st,
		engine: eng,
		src:    src,
		log:    log,
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes one full workflow pass. Step failures are collected in
// the report; Run returns an error only when the store itself is
// unusable. forceDigest sends a digest even when one is not due.
func (p *Pipeline) Run(ctx context.Context, forceDigest bool) (model.Report, error) {
	report := model.Report{
		RunID:     uuid.NewString(),
		StartedAt: p.now(),
	}
	log := p.log.With(zap.String("run_id", report.RunID))
	log.Info("run started", zap.Strings("categories", p.cfg.Fetch.Categories))

	prefs, err := p.store.GetPreferences()
	if err != nil {
		return report, fmt.Errorf("pipeline: load preferences: %w", err)
	}

	p.fetchAndStore(ctx, log, &report)
	p.maybeTrain(log, prefs, &report)
	p.scoreUnscored(log, &report)
	p.maybeDigest(ctx, log, prefs, forceDigest, &report)

	report.FinishedAt = p.now()
	log.Info("run finished",
		zap.Int("fetched", report.PapersFetched),
		zap.Int("new", report.PapersNew),
		zap.Int("scored", report.PapersScored),
		zap.Bool("trained", report.ModelTrained),
		zap.Bool("digest_sent", report.DigestSent),
		zap.Int("errors", len(report.Errors)))
	return report, nil
}

// fetchAndStore pulls the latest papers per category in parallel,
// collapses cross-listings, and inserts new papers.
func (p *Pipeline) fetchAndStore(ctx context.Context, log *zap.Logger, report *model.Report) {
	srcCfg := source.Config{
		Provider:  p.cfg.Fetch.Provider,
		Endpoint:  p.cfg.Fetch.Endpoint,
		UserAgent: p.cfg.Fetch.UserAgent,
	}

	// The report is not safe for concurrent writes, so goroutines stash
	// failures under the mutex and the report picks them up after Wait.
	var (
		mu      sync.Mutex
		fetched []model.Paper
		failed  []error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchConcurrency)
	for _, category := range p.cfg.Fetch.Categories {
		g.Go(func() error {
			papers, err := p.src.Latest(gctx, srcCfg, category, p.cfg.Fetch.PapersPerCategory)
			if err != nil {
				log.Warn("fetch failed", zap.String("category", category), zap.Error(err))
				mu.Lock()
				failed = append(failed, fmt.Errorf("fetch %s: %w", category, err))
				mu.Unlock()
				return nil
			}
			mu.Lock()
			fetched = append(fetched, papers...)
			mu.Unlock()
			log.Debug("fetched category", zap.String("category", category), zap.Int("papers", len(papers)))
			return nil
		})
	}
	g.Wait()

	for _, err := range failed {
		report.AddError(err)
	}

	report.PapersFetched = len(fetched)
	if len(fetched) == 0 {
		return
	}

	unique := dedup.Collapse(fetched)
	added, skipped, err := p.store.AddPapers(unique)
	if err != nil {
		report.AddError(fmt.Errorf("store papers: %w", err))
		return
	}
	report.PapersNew = added
	report.PapersSkipped = skipped
	log.Info("papers stored", zap.Int("new", added), zap.Int("duplicates", skipped))
}

// maybeTrain retrains the classifier when auto-training is on and
// enough labels exist.
func (p *Pipeline) maybeTrain(log *zap.Logger, prefs model.Preferences, report *model.Report) {
	if !prefs.AutoTrain {
		return
	}
	labeled, err := p.store.LabeledPapers()
	if err != nil {
		report.AddError(fmt.Errorf("load labeled papers: %w", err))
		return
	}
	if len(labeled) < p.cfg.Engine.MinSamples {
		log.Debug("skipping training", zap.Int("labeled", len(labeled)), zap.Int("needed", p.cfg.Engine.MinSamples))
		return
	}

	metrics, err := p.TrainNow()
	if err != nil {
		if errors.Is(err, classifier.ErrTooFewSamples) || errors.Is(err, classifier.ErrOneClass) {
			log.Debug("not enough label diversity to train", zap.Error(err))
			return
		}
		report.AddError(fmt.Errorf("train: %w", err))
		return
	}
	report.ModelTrained = true
	log.Info("model trained",
		zap.Int("samples", metrics.Samples),
		zap.Float64("accuracy", metrics.Accuracy),
		zap.Float64("f1", metrics.F1))
}

// TrainNow fits a classifier on all labeled papers and persists it as
// the active model. Returns classifier.ErrTooFewSamples or
// classifier.ErrOneClass when the label set cannot support training.
func (p *Pipeline) TrainNow() (classifier.Metrics, error) {
	labeled, err := p.store.LabeledPapers()
	if err != nil {
		return classifier.Metrics{}, fmt.Errorf("load labeled papers: %w", err)
	}

	metrics, err := p.engine.Train(labeled)
	if err != nil {
		return classifier.Metrics{}, err
	}

	weights, err := p.engine.Model().Marshal()
	if err != nil {
		return classifier.Metrics{}, fmt.Errorf("serialize model: %w", err)
	}
	now := p.now()
	state := model.ModelState{
		ModelType: "embed_logreg",
		Weights:   weights,
		TrainedAt: now,
		Samples:   metrics.Samples,
		Accuracy:  metrics.Accuracy,
		Precision: metrics.Precision,
		Recall:    metrics.Recall,
		F1:        metrics.F1,
		Active:    true,
	}
	if err := p.store.SaveModelState(state); err != nil {
		return classifier.Metrics{}, fmt.Errorf("save model: %w", err)
	}
	if err := p.store.RecordTraining(now, metrics.Accuracy); err != nil {
		return classifier.Metrics{}, fmt.Errorf("record training: %w", err)
	}
	return metrics, nil
}

// scoreUnscored assigns relevance scores to papers the model has not
// seen. Falls back to the interest prototype, then the default score.
func (p *Pipeline) scoreUnscored(log *zap.Logger, report *model.Report) {
	if err := p.prepareScorer(log); err != nil {
		report.AddError(err)
	}

	n, err := p.scoreBatchNow(log)
	if err != nil {
		report.AddError(err)
		return
	}
	report.PapersScored = n
}

// ScoreNow scores unscored papers outside a full run and returns how
// many were updated.
func (p *Pipeline) ScoreNow() (int, error) {
	if err := p.prepareScorer(p.log); err != nil {
		p.log.Warn("scorer unavailable, using default scores", zap.Error(err))
	}
	return p.scoreBatchNow(p.log)
}

func (p *Pipeline) scoreBatchNow(log *zap.Logger) (int, error) {
	papers, err := p.store.UnscoredPapers(scoreBatch)
	if err != nil {
		return 0, fmt.Errorf("load unscored papers: %w", err)
	}
	if len(papers) == 0 {
		return 0, nil
	}

	scores, err := p.engine.Score(papers)
	if err != nil {
		return 0, fmt.Errorf("score papers: %w", err)
	}

	byID := make(map[string]float64, len(papers))
	for i, paper := range papers {
		byID[paper.ArxivID] = scores[i]
	}
	n, err := p.store.UpdateScores(byID)
	if err != nil {
		return 0, fmt.Errorf("update scores: %w", err)
	}
	log.Info("papers scored", zap.Int("count", n), zap.Bool("model", p.engine.HasModel()))
	return n, nil
}

// SendDigestNow forces digest selection and delivery without fetching
// or scoring.
func (p *Pipeline) SendDigestNow(ctx context.Context) (model.Report, error) {
	report := model.Report{RunID: uuid.NewString(), StartedAt: p.now()}
	prefs, err := p.store.GetPreferences()
	if err != nil {
		return report, fmt.Errorf("pipeline: load preferences: %w", err)
	}
	p.maybeDigest(ctx, p.log.With(zap.String("run_id", report.RunID)), prefs, true, &report)
	report.FinishedAt = p.now()
	return report, nil
}

// prepareScorer loads the active persisted model, or builds an interest
// prototype from relevant papers when no model exists yet.
func (p *Pipeline) prepareScorer(log *zap.Logger) error {
	if p.engine.HasModel() {
		return nil
	}

	state, err := p.store.ActiveModelState()
	if err == nil {
		c, err := classifier.Unmarshal(state.Weights)
		if err != nil {
			return fmt.Errorf("restore model: %w", err)
		}
		p.engine.UseModel(c)
		log.Debug("restored persisted model", zap.Time("trained_at", state.TrainedAt))
		return nil
	}
	if !errors.Is(err, store.ErrNoModel) {
		return fmt.Errorf("load model state: %w", err)
	}

	relevant, err := p.relevantPapers()
	if err != nil {
		return fmt.Errorf("load relevant papers: %w", err)
	}
	if len(relevant) == 0 {
		return nil
	}
	if err := p.engine.BuildPrototype(relevant); err != nil {
		return err
	}
	log.Debug("scoring with interest prototype", zap.Int("papers", len(relevant)))
	return nil
}

// maybeDigest selects, builds, and delivers a digest when one is due.
func (p *Pipeline) maybeDigest(ctx context.Context, log *zap.Logger, prefs model.Preferences, force bool, report *model.Report) {
	if !force {
		if !prefs.DigestEnabled {
			return
		}
		last, err := p.store.LastDigestAt()
		if err != nil {
			report.AddError(fmt.Errorf("last digest: %w", err))
			return
		}
		if !digest.Due(last, prefs.DigestFrequency, p.now()) {
			log.Debug("digest not due", zap.Time("last", last))
			return
		}
	}

	candidates, err := p.store.ListPapers(digestPool)
	if err != nil {
		report.AddError(fmt.Errorf("load digest candidates: %w", err))
		return
	}
	sent, err := p.store.RecentlySentIDs(prefs.LookbackDays())
	if err != nil {
		report.AddError(fmt.Errorf("recently sent: %w", err))
		return
	}

	picked := digest.Select(candidates, prefs, sent)
	if len(picked) == 0 {
		log.Info("no papers for digest")
		return
	}
	d := digest.Build(picked, prefs.DigestFrequency, p.now())

	notifier, err := p.buildNotifier(prefs)
	if err != nil {
		report.AddError(err)
		return
	}

	status := "sent"
	if err := notifier.Send(ctx, d); err != nil {
		status = "failed"
		report.AddError(fmt.Errorf("send digest: %w", err))
	} else {
		report.DigestSent = true
		log.Info("digest sent", zap.String("subject", d.Subject), zap.Int("papers", len(d.Papers)))
	}

	ids := make([]string, len(picked))
	for i, paper := range picked {
		ids[i] = paper.ArxivID
	}
	if err := p.store.RecordDigest(model.DigestRecord{
		SentAt:   p.now(),
		PaperIDs: ids,
		Type:     prefs.DigestFrequency,
		Status:   status,
	}); err != nil {
		report.AddError(fmt.Errorf("record digest: %w", err))
	}
}

// buildNotifier assembles delivery from preferences and config: email
// when enabled and configured, webhook when a URL is set.
func (p *Pipeline) buildNotifier(prefs model.Preferences) (notify.Notifier, error) {
	if p.notifier != nil {
		return p.notifier, nil
	}

	var notifiers []notify.Notifier
	if p.cfg.Digest.SendEmail && prefs.Email != "" && prefs.SMTPUser != "" {
		n, err := email.New(email.FromPreferences(prefs), email.WithInterests(p.topCategories))
		if err != nil {
			return nil, fmt.Errorf("configure email: %w", err)
		}
		notifiers = append(notifiers, n)
	}
	if p.cfg.Digest.WebhookURL != "" {
		notifiers = append(notifiers, webhook.New(p.cfg.Digest.WebhookURL))
	}
	if len(notifiers) == 0 {
		return nil, errors.New("no digest delivery configured")
	}
	if len(notifiers) == 1 {
		return notifiers[0], nil
	}
	return multi.New(notifiers...), nil
}

// topCategories returns up to three interest categories for the email
// header.
func (p *Pipeline) topCategories() []string {
	relevant, err := p.relevantPapers()
	if err != nil {
		return nil
	}
	profile := interests.BuildProfile(relevant)
	var top []string
	for _, c := range profile.Categories {
		top = append(top, c.Category)
		if len(top) == 3 {
			break
		}
	}
	return top
}

// relevantPapers merges positively labeled papers with the reading
// list.
func (p *Pipeline) relevantPapers() ([]model.Paper, error) {
	positive, err := p.store.PositivePapers()
	if err != nil {
		return nil, err
	}
	saved, err := p.store.ReadingList()
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(positive))
	for _, paper := range positive {
		seen[paper.ArxivID] = true
	}
	for _, paper := range saved {
		if !seen[paper.ArxivID] {
			positive = append(positive, paper)
		}
	}
	return positive, nil
}
