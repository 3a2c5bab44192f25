package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/contentplan/internal/clock/system"
	"github.com/JakeFAU/contentplan/internal/keywords"
	"github.com/JakeFAU/contentplan/internal/llm"
	"github.com/JakeFAU/contentplan/internal/plan"
	"github.com/JakeFAU/contentplan/internal/siteinfo"
	"github.com/JakeFAU/contentplan/internal/storage/memory"
)

type fakeScanner struct {
	mu          sync.Mutex
	htmlLang    string
	htmlErr     error
	signals     siteinfo.Signals
	signalsErr  error
	panicOnScan bool
	htmlCalls   int
	scanCalls   int
}

func (f *fakeScanner) FetchSignals(_ context.Context, rawURL, _ string) (siteinfo.Signals, error) {
	f.mu.Lock()
	f.scanCalls++
	f.mu.Unlock()
	if f.panicOnScan {
		panic("scanner exploded")
	}
	if f.signalsErr != nil {
		return siteinfo.Signals{}, f.signalsErr
	}
	sig := f.signals
	sig.URL = rawURL
	return sig, nil
}

func (f *fakeScanner) HTMLLang(context.Context, string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.htmlCalls++
	return f.htmlLang, f.htmlErr
}

// fakeLLM routes prompts by kind. A nil handler fails the call.
type fakeLLM struct {
	mu      sync.Mutex
	prompts []string
	niche   func() (string, error)
	pillars func() (string, error)
	cluster func(topic string) (string, error)
}

func (f *fakeLLM) Complete(_ context.Context, prompt string, _ llm.Options) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()

	switch {
	case strings.Contains(prompt, "Pillar topic: "):
		rest := prompt[strings.Index(prompt, "Pillar topic: ")+len("Pillar topic: "):]
		topic := rest[:strings.IndexByte(rest, '\n')]
		if f.cluster == nil {
			return "", errors.New("no cluster handler")
		}
		return f.cluster(topic)
	case strings.Contains(prompt, "pillar topics for a content plan"):
		if f.pillars == nil {
			return "", errors.New("no pillar handler")
		}
		return f.pillars()
	default:
		if f.niche == nil {
			return "", context.DeadlineExceeded
		}
		return f.niche()
	}
}

func (f *fakeLLM) promptsContaining(substr string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, p := range f.prompts {
		if strings.Contains(p, substr) {
			out = append(out, p)
		}
	}
	return out
}

func nicheJSON(niche string, total int, topics ...string) func() (string, error) {
	return func() (string, error) {
		pillars := make([]map[string]any, 0, len(topics))
		for _, t := range topics {
			pillars = append(pillars, map[string]any{"topic": t, "estimated_articles": 10})
		}
		data, err := json.Marshal(map[string]any{
			"niche":                 niche,
			"competition_level":     "high",
			"pillar_topics":         pillars,
			"total_articles_needed": total,
		})
		return "```json\n" + string(data) + "\n```", err
	}
}

func clusterJSON(topic string, n int) (string, error) {
	articles := make([]map[string]any, 0, n-1)
	for i := 1; i < n; i++ {
		articles = append(articles, map[string]any{
			"title":        fmt.Sprintf("%s artikel %d", topic, i),
			"keywords":     []string{strings.ToLower(topic) + " gids"},
			"content_type": "how-to",
			"priority":     "medium",
		})
	}
	data, err := json.Marshal(map[string]any{
		"pillar":   map[string]any{"title": "Alles over " + topic, "keywords": []string{strings.ToLower(topic)}},
		"articles": articles,
	})
	return string(data), err
}

// recordingStore wraps the memory store, records applied progress values and
// can inject write failures or a cancel right after a given step lands.
type recordingStore struct {
	*memory.JobStore

	mu         sync.Mutex
	progress   []int
	steps      []string
	failStep   string
	cancelStep string
	afterStop  int
	stopped    bool
}

func newRecordingStore() *recordingStore {
	return &recordingStore{JobStore: memory.NewJobStore(system.New())}
}

func (s *recordingStore) UpdateIfActive(ctx context.Context, jobID string, update plan.JobUpdate) (bool, error) {
	if s.failStep != "" && update.CurrentStep != nil && *update.CurrentStep == s.failStep {
		return false, errors.New("database unavailable")
	}
	applied, err := s.JobStore.UpdateIfActive(ctx, jobID, update)
	s.mu.Lock()
	if applied {
		if s.stopped {
			s.afterStop++
		}
		if update.Progress != nil {
			s.progress = append(s.progress, *update.Progress)
		}
		if update.CurrentStep != nil {
			s.steps = append(s.steps, *update.CurrentStep)
		}
	}
	cancelNow := applied && s.cancelStep != "" && update.CurrentStep != nil && *update.CurrentStep == s.cancelStep
	s.mu.Unlock()
	if cancelNow {
		_, _ = s.Cancel(ctx, jobID)
	}
	return applied, err
}

func (s *recordingStore) Cancel(ctx context.Context, jobID string) (bool, error) {
	ok, err := s.JobStore.Cancel(ctx, jobID)
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
	return ok, err
}

func (s *recordingStore) progressSeen() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.progress...)
}

func (s *recordingStore) writesAfterCancel() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.afterStop
}

type fakeLookup struct {
	mu         sync.Mutex
	configured bool
	metrics    []keywords.Metric
	err        error
	seeds      []string
	locale     siteinfo.Locale
}

func (f *fakeLookup) Configured() bool { return f.configured }

func (f *fakeLookup) Lookup(_ context.Context, seeds []string, locale siteinfo.Locale, _ time.Duration) ([]keywords.Metric, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seeds = seeds
	f.locale = locale
	return f.metrics, f.err
}

type fakeExporter struct {
	mu        sync.Mutex
	archived  []plan.Job
	announced []plan.Job
	err       error
}

func (f *fakeExporter) Archive(_ context.Context, job plan.Job) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.archived = append(f.archived, job)
	return "mem://plans/" + job.ID + ".json", nil
}

func (f *fakeExporter) Announce(_ context.Context, job plan.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.announced = append(f.announced, job)
	return f.err
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.NicheTimeout = time.Second
	cfg.FallbackTimeout = 2 * time.Second
	cfg.ClusterTimeout = time.Second
	cfg.EnrichTimeout = time.Second
	return cfg
}

func createJob(t *testing.T, store plan.JobStore, id, url string) plan.QueueItem {
	t.Helper()
	require.NoError(t, store.CreateJob(context.Background(), plan.Job{
		ID:         id,
		Owner:      "owner-1",
		ProjectRef: "project-1",
		SourceURL:  url,
	}))
	return plan.QueueItem{JobID: id, SourceURL: url}
}

func newTestWorker(deps Deps) *Worker {
	return New(deps, testConfig(), zap.NewNop())
}

func requireNonDecreasing(t *testing.T, values []int) {
	t.Helper()
	for i := 1; i < len(values); i++ {
		require.GreaterOrEqual(t, values[i], values[i-1], "progress went backwards: %v", values)
	}
}
