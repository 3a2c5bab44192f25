package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/contentplan/internal/batch"
	"github.com/JakeFAU/contentplan/internal/llm"
	"github.com/JakeFAU/contentplan/internal/metrics"
	"github.com/JakeFAU/contentplan/internal/plan"
	"github.com/JakeFAU/contentplan/internal/siteinfo"
	"github.com/JakeFAU/contentplan/internal/telemetry"
)

// Stage names, used for spans and metrics.
const (
	stageLanguage = "language_detect"
	stageSiteScan = "site_scan"
	stageNiche    = "niche_detect"
	stagePillars  = "pillar_topics"
	stageClusters = "cluster_batches"
	stageLongTail = "long_tail"
	stageEnrich   = "enrich"
	stageFinalize = "finalize"
)

const (
	minPillarTopics      = 5
	minArticlesPerPillar = 5
	maxArticlesPerPillar = 40
	clusterProgressStart = 40
	clusterProgressSpan  = 35
)

var errNoProvider = errors.New("no completion provider configured")

var fallbackPillarSuffixes = []string{"Basis", "Gids", "Tips", "Vergelijkingen", "FAQ"}

// run holds the mutable state of one pipeline execution. It is owned by a
// single goroutine.
type run struct {
	w         *Worker
	jobID     string
	sourceURL string
	logger    *zap.Logger

	progress   int
	briefCount int

	language string
	locale   siteinfo.Locale
	signals  siteinfo.Signals
	profile  plan.NicheProfile
	target   int
	pillars  []plan.PillarTopic
	briefs   []plan.ArticleBrief
	clusters []plan.Cluster
}

func (r *run) execute(ctx context.Context) error {
	if err := r.checkpoint(ctx); err != nil {
		return err
	}
	steps := []struct {
		name string
		fn   func(context.Context) error
	}{
		{stageLanguage, r.detectLanguage},
		{stageSiteScan, r.scanSite},
		{stageNiche, r.detectNiche},
		{stagePillars, r.ensurePillars},
		{stageClusters, r.generateClusters},
		{stageLongTail, r.expandLongTail},
		{stageEnrich, r.enrich},
		{stageFinalize, r.finalize},
	}
	for _, step := range steps {
		if err := r.stage(ctx, step.name, step.fn); err != nil {
			return err
		}
	}
	return nil
}

func (r *run) stage(ctx context.Context, name string, fn func(context.Context) error) error {
	ctx, span := telemetry.StartStage(ctx, r.w.deps.Tracer, name, r.jobID)
	start := time.Now()
	err := fn(ctx)
	metrics.ObserveStage(name, time.Since(start))
	telemetry.EndStage(span, err)
	return err
}

// checkpoint stops the run once the job is no longer active.
func (r *run) checkpoint(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("interrupted: %w", err)
	}
	job, err := r.w.deps.Store.GetJob(ctx, r.jobID)
	if err != nil {
		return fmt.Errorf("read job status: %w", err)
	}
	if !job.Status.Active() {
		return errStopped
	}
	return nil
}

// advance writes progress and step text. Progress never moves backwards and
// never passes 100.
func (r *run) advance(ctx context.Context, pct int, step string, extra ...func(*plan.JobUpdate)) error {
	pct = min(max(pct, r.progress), 100)
	update := plan.JobUpdate{Progress: &pct, CurrentStep: &step}
	for _, fn := range extra {
		fn(&update)
	}
	applied, err := r.w.deps.Store.UpdateIfActive(ctx, r.jobID, update)
	if err != nil {
		return fmt.Errorf("write progress: %w", err)
	}
	if !applied {
		return errStopped
	}
	r.progress = pct
	return nil
}

func (r *run) detectLanguage(ctx context.Context) error {
	if err := r.advance(ctx, 5, "Detecting language"); err != nil {
		return err
	}
	tldLang, ok := siteinfo.LanguageFromTLD(r.sourceURL)
	var htmlLang string
	if !ok {
		lang, err := r.w.deps.Scanner.HTMLLang(ctx, r.sourceURL)
		if err != nil {
			r.logger.Warn("html lang lookup failed", zap.Error(err))
		}
		htmlLang = lang
	}
	r.language = siteinfo.DetectLanguage(tldLang, htmlLang)
	r.locale = siteinfo.LocaleFor(r.language)
	r.logger.Info("language detected", zap.String("language", r.language), zap.Bool("from_tld", ok))
	return r.advance(ctx, 10, "Language detected", func(u *plan.JobUpdate) {
		u.Language = plan.Ptr(r.language)
	})
}

func (r *run) scanSite(ctx context.Context) error {
	if err := r.advance(ctx, 15, "Scanning website"); err != nil {
		return err
	}
	if err := r.checkpoint(ctx); err != nil {
		return err
	}
	sig, err := r.w.deps.Scanner.FetchSignals(ctx, r.sourceURL, r.language)
	if err != nil {
		r.logger.Warn("site scan failed, continuing without signals", zap.Error(err))
		sig = siteinfo.Signals{URL: r.sourceURL}
	}
	r.signals = sig
	if err := r.checkpoint(ctx); err != nil {
		return err
	}
	return r.advance(ctx, 18, "Website scanned")
}

func (r *run) detectNiche(ctx context.Context) error {
	if err := r.advance(ctx, 20, "Analysing niche"); err != nil {
		return err
	}
	r.profile = r.classifyNiche(ctx)
	estimate := r.profile.TotalArticlesNeeded
	if estimate <= 0 {
		estimate = r.w.cfg.TargetArticles
	}
	r.target = plan.ClampTarget(estimate)
	r.logger.Info("niche detected",
		zap.String("niche", r.profile.Niche),
		zap.String("competition", string(r.profile.CompetitionLevel)),
		zap.Int("pillar_topics", len(r.profile.PillarTopics)),
		zap.Int("target", r.target))
	return r.advance(ctx, 25, "Niche detected: "+r.profile.Niche, func(u *plan.JobUpdate) {
		u.Niche = plan.Ptr(r.profile.Niche)
	})
}

// classifyNiche tries the primary provider, then the fallback, then the
// default profile.
func (r *run) classifyNiche(ctx context.Context) plan.NicheProfile {
	deps := r.w.deps
	if deps.Primary != nil {
		prompt := llm.NichePrompt(r.sourceURL, r.language, r.signals, deps.Budget)
		text, err := deps.Primary.Complete(ctx, prompt, llm.Options{
			Temperature: 0.3,
			MaxTokens:   1500,
			Timeout:     r.w.cfg.NicheTimeout,
			JSON:        true,
		})
		if err == nil {
			profile, perr := llm.ParseNicheProfile(text)
			if perr == nil {
				return profile
			}
			err = perr
		}
		r.logger.Warn("primary niche detection failed", zap.Error(err))
	}
	if deps.Fallback != nil {
		prompt := llm.FallbackNichePrompt(r.sourceURL, r.language, r.signals, deps.Budget)
		text, err := deps.Fallback.Complete(ctx, prompt, llm.Options{
			Temperature: 0.3,
			MaxTokens:   1500,
			Timeout:     r.w.cfg.FallbackTimeout,
		})
		if err == nil {
			profile, perr := llm.ParseNicheProfile(text)
			if perr == nil {
				r.logger.Info("niche detected by fallback provider")
				return profile
			}
			err = perr
		}
		r.logger.Warn("fallback niche detection failed", zap.Error(err))
	}
	r.logger.Warn("using default niche profile")
	return plan.DefaultNicheProfile()
}

// completer returns the provider used for generation calls.
func (w *Worker) completer() llm.Completer {
	if w.deps.Primary != nil {
		return w.deps.Primary
	}
	return w.deps.Fallback
}

func (r *run) ensurePillars(ctx context.Context) error {
	r.pillars = r.profile.PillarTopics
	if len(r.pillars) >= minPillarTopics {
		return nil
	}
	if err := r.advance(ctx, 30, "Generating pillar topics"); err != nil {
		return err
	}

	var generated []plan.PillarTopic
	var genErr error
	if completer := r.w.completer(); completer != nil {
		text, err := completer.Complete(ctx, llm.PillarTopicsPrompt(r.profile.Niche, r.language, r.pillars), llm.Options{
			Temperature: 0.5,
			MaxTokens:   2000,
			Timeout:     r.w.cfg.PillarTimeout,
			JSON:        true,
		})
		if err == nil {
			generated, err = llm.ParsePillarTopics(text)
		}
		genErr = err
	}
	if genErr != nil {
		r.logger.Warn("pillar topic generation failed", zap.Error(genErr))
	}
	if genErr != nil || len(generated) == 0 {
		generated = FallbackPillars(r.profile.Niche)
	}
	r.pillars = mergePillars(r.pillars, generated)
	return r.advance(ctx, 35, fmt.Sprintf("%d pillar topics ready", len(r.pillars)))
}

// FallbackPillars derives five pillar topics from the niche name.
func FallbackPillars(niche string) []plan.PillarTopic {
	out := make([]plan.PillarTopic, 0, len(fallbackPillarSuffixes))
	for _, suffix := range fallbackPillarSuffixes {
		out = append(out, plan.PillarTopic{Topic: niche + " " + suffix})
	}
	return out
}

func mergePillars(existing, extra []plan.PillarTopic) []plan.PillarTopic {
	seen := make(map[string]struct{}, len(existing)+len(extra))
	out := make([]plan.PillarTopic, 0, len(existing)+len(extra))
	for _, list := range [][]plan.PillarTopic{existing, extra} {
		for _, p := range list {
			key := plan.NormalizeKey(p.Topic)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, p)
		}
	}
	return out
}

// ArticlesPerPillar spreads target over pillars, clamped to [5, 40].
func ArticlesPerPillar(target, pillars int) int {
	if pillars <= 0 {
		return minArticlesPerPillar
	}
	n := (target + pillars - 1) / pillars
	return min(max(n, minArticlesPerPillar), maxArticlesPerPillar)
}

type clusterResult struct {
	briefs  []plan.ArticleBrief
	cluster plan.Cluster
}

func (r *run) generateClusters(ctx context.Context) error {
	if err := r.advance(ctx, 38, "Generating content clusters"); err != nil {
		return err
	}
	perPillar := ArticlesPerPillar(r.target, len(r.pillars))
	groups := batch.Chunk(r.pillars, r.w.cfg.BatchSize)
	r.clusters = make([]plan.Cluster, 0, len(r.pillars))

	done := 0
	for gi, group := range groups {
		units := make([]batch.Unit[clusterResult], len(group))
		for i, pillar := range group {
			units[i] = func(ctx context.Context) (clusterResult, error) {
				return r.generateCluster(ctx, pillar, perPillar)
			}
		}
		results := batch.Run(ctx, units)
		for i, res := range results {
			if res.Err != nil {
				metrics.ObserveClusterUnit("failed")
				r.logger.Warn("cluster generation failed",
					zap.String("pillar", group[i].Topic),
					zap.Duration("elapsed", res.Duration),
					zap.Error(res.Err))
				continue
			}
			metrics.ObserveClusterUnit("ok")
			r.briefs = append(r.briefs, res.Value.briefs...)
			r.clusters = append(r.clusters, res.Value.cluster)
		}
		done += len(group)

		pct := clusterProgressStart + clusterProgressSpan*done/len(r.pillars)
		step := fmt.Sprintf("Generated clusters %d/%d (batch %d/%d)", done, len(r.pillars), gi+1, len(groups))
		if err := r.advance(ctx, pct, step); err != nil {
			return err
		}
		if err := r.checkpoint(ctx); err != nil {
			return err
		}
	}
	return r.advance(ctx, 76, fmt.Sprintf("%d clusters, %d briefs", len(r.clusters), len(r.briefs)))
}

func (r *run) generateCluster(ctx context.Context, pillar plan.PillarTopic, articles int) (clusterResult, error) {
	completer := r.w.completer()
	if completer == nil {
		return clusterResult{}, errNoProvider
	}
	text, err := completer.Complete(ctx, llm.ClusterPrompt(r.profile.Niche, r.language, pillar, articles), llm.Options{
		Temperature: 0.7,
		MaxTokens:   4000,
		Timeout:     r.w.cfg.ClusterTimeout,
		JSON:        true,
	})
	if err != nil {
		return clusterResult{}, err
	}
	briefs, cluster, err := llm.ParseCluster(text, pillar)
	if err != nil {
		return clusterResult{}, err
	}
	return clusterResult{briefs: briefs, cluster: cluster}, nil
}

func (r *run) expandLongTail(ctx context.Context) error {
	if err := r.checkpoint(ctx); err != nil {
		return err
	}
	missing := r.target - len(r.briefs)
	if missing <= 0 {
		return nil
	}
	topics := make([]string, len(r.pillars))
	for i, p := range r.pillars {
		topics[i] = p.Topic
	}
	extra := LongTail(topics, ModifiersFor(r.language), r.briefs, missing)
	r.briefs = append(r.briefs, extra...)
	return r.advance(ctx, 80, fmt.Sprintf("Added %d long-tail articles", len(extra)))
}

func (r *run) enrich(ctx context.Context) error {
	if err := r.checkpoint(ctx); err != nil {
		return err
	}
	lookup := r.w.deps.Keywords
	if lookup == nil || !lookup.Configured() {
		r.logger.Debug("keyword metrics not configured, skipping enrichment")
		return nil
	}
	if err := r.advance(ctx, 85, "Fetching keyword metrics"); err != nil {
		return err
	}

	seeds := make([]string, 0, r.w.cfg.MaxEnrichSeeds)
	for _, p := range r.pillars {
		if len(seeds) == r.w.cfg.MaxEnrichSeeds {
			break
		}
		seeds = append(seeds, p.Topic)
	}
	found, err := lookup.Lookup(ctx, seeds, r.locale, r.w.cfg.EnrichTimeout)
	switch {
	case err != nil:
		r.logger.Warn("keyword enrichment failed", zap.Error(err))
	case len(found) == 0:
		r.logger.Info("keyword enrichment returned no metrics")
	default:
		matched := Enrich(r.briefs, found)
		r.logger.Info("keyword enrichment applied", zap.Int("matched", matched), zap.Int("metrics", len(found)))
	}
	return r.advance(ctx, 93, "Keyword metrics applied")
}

func (r *run) finalize(ctx context.Context) error {
	if err := r.advance(ctx, 95, "Finalizing plan"); err != nil {
		return err
	}
	final := plan.Dedupe(r.briefs)
	stats := plan.ComputeStats(final, r.clusters)
	r.briefCount = len(final)

	if err := r.checkpoint(ctx); err != nil {
		return err
	}
	exportURI := r.archive(ctx, final, stats)

	status := plan.StatusCompleted
	progress := 100
	step := "Completed"
	update := plan.JobUpdate{
		Status:      &status,
		Progress:    &progress,
		CurrentStep: &step,
		Plan:        final,
		Clusters:    r.clusters,
		Stats:       &stats,
	}
	if exportURI != "" {
		update.ExportURI = &exportURI
	}
	applied, err := r.w.deps.Store.UpdateIfActive(ctx, r.jobID, update)
	if err != nil {
		return fmt.Errorf("write final plan: %w", err)
	}
	if !applied {
		return errStopped
	}
	r.progress = progress
	r.announce(ctx)
	return nil
}

func (r *run) archive(ctx context.Context, final []plan.ArticleBrief, stats plan.Stats) string {
	if r.w.deps.Exporter == nil {
		return ""
	}
	uri, err := r.w.deps.Exporter.Archive(ctx, plan.Job{
		ID:        r.jobID,
		SourceURL: r.sourceURL,
		Language:  r.language,
		Niche:     r.profile.Niche,
		Plan:      final,
		Clusters:  r.clusters,
		Stats:     stats,
	})
	if err != nil {
		r.logger.Warn("plan archive failed", zap.Error(err))
		return ""
	}
	return uri
}

func (r *run) announce(ctx context.Context) {
	if r.w.deps.Exporter == nil {
		return
	}
	job, err := r.w.deps.Store.GetJob(ctx, r.jobID)
	if err != nil {
		r.logger.Warn("reload completed job", zap.Error(err))
		return
	}
	if err := r.w.deps.Exporter.Announce(ctx, job); err != nil {
		r.logger.Warn("completion announcement failed", zap.Error(err))
	}
}
