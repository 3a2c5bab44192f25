// Package plan defines the content-plan domain types shared across subsystems.
package plan

import (
	"errors"
	"strings"
	"time"
)

// ErrNotFound signals that the requested job does not exist.
var ErrNotFound = errors.New("job not found")

// JobStatus represents the lifecycle state of a plan generation job.
type JobStatus string

// Job status values persisted in the job store. Jobs are created directly in
// processing; pending is only accepted as a query filter.
const (
	StatusPending    JobStatus = "pending"
	StatusProcessing JobStatus = "processing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
	StatusCancelled  JobStatus = "cancelled"
)

// Active reports whether the job may still be written by the pipeline.
func (s JobStatus) Active() bool {
	return s == StatusPending || s == StatusProcessing
}

// Terminal reports whether the status is final.
func (s JobStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// ContentType classifies an article brief.
type ContentType string

// Supported content types.
const (
	ContentPillar     ContentType = "pillar"
	ContentHowTo      ContentType = "how-to"
	ContentGuide      ContentType = "guide"
	ContentComparison ContentType = "comparison"
	ContentList       ContentType = "list"
	ContentFAQ        ContentType = "faq"
)

// ParseContentType maps free-form model output onto a known content type.
// Unknown values become guide.
func ParseContentType(raw string) ContentType {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "pillar":
		return ContentPillar
	case "how-to", "howto", "how to", "how_to":
		return ContentHowTo
	case "comparison", "vs":
		return ContentComparison
	case "list", "listicle":
		return ContentList
	case "faq":
		return ContentFAQ
	default:
		return ContentGuide
	}
}

// Priority ranks briefs for scheduling.
type Priority string

// Supported priorities.
const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// ParsePriority maps free-form model output onto a priority; unknown values
// become medium.
func ParsePriority(raw string) Priority {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "high":
		return PriorityHigh
	case "low":
		return PriorityLow
	default:
		return PriorityMedium
	}
}

// ArticleBrief is one planned article.
type ArticleBrief struct {
	Title        string      `json:"title"`
	Category     string      `json:"category"`
	Description  string      `json:"description"`
	Keywords     []string    `json:"keywords"`
	ContentType  ContentType `json:"content_type"`
	Cluster      string      `json:"cluster"`
	Priority     Priority    `json:"priority"`
	Difficulty   string      `json:"difficulty,omitempty"`
	SearchIntent string      `json:"search_intent,omitempty"`

	SearchVolume     *int     `json:"search_volume,omitempty"`
	Competition      string   `json:"competition,omitempty"`
	CPC              *float64 `json:"cpc,omitempty"`
	CompetitionIndex *int     `json:"competition_index,omitempty"`
}

// PrimaryKeyword returns the first keyword, or an empty string.
func (b ArticleBrief) PrimaryKeyword() string {
	if len(b.Keywords) == 0 {
		return ""
	}
	return b.Keywords[0]
}

// Cluster summarizes the briefs generated from one pillar topic.
type Cluster struct {
	PillarTopic  string `json:"pillar_topic"`
	PillarTitle  string `json:"pillar_title"`
	ArticleCount int    `json:"article_count"`
}

// Stats aggregates a finished plan.
type Stats struct {
	Total         int                 `json:"total"`
	Clusters      int                 `json:"clusters"`
	ByContentType map[ContentType]int `json:"by_content_type"`
	ByPriority    map[Priority]int    `json:"by_priority"`
}

// CompetitionLevel is the niche-wide competition estimate.
type CompetitionLevel string

// Supported competition levels.
const (
	CompetitionLow      CompetitionLevel = "low"
	CompetitionMedium   CompetitionLevel = "medium"
	CompetitionHigh     CompetitionLevel = "high"
	CompetitionVeryHigh CompetitionLevel = "very_high"
)

// ParseCompetitionLevel defaults to medium for empty or unknown values.
func ParseCompetitionLevel(raw string) CompetitionLevel {
	switch strings.ToLower(strings.ReplaceAll(strings.TrimSpace(raw), " ", "_")) {
	case "low":
		return CompetitionLow
	case "high":
		return CompetitionHigh
	case "very_high", "veryhigh", "very-high":
		return CompetitionVeryHigh
	default:
		return CompetitionMedium
	}
}

// PillarTopic is a top-level content theme proposed for the niche.
type PillarTopic struct {
	Topic             string   `json:"topic"`
	EstimatedArticles int      `json:"estimated_articles"`
	Subtopics         []string `json:"subtopics"`
}

// NicheProfile is the niche classification consumed by the later stages.
type NicheProfile struct {
	Niche               string           `json:"niche"`
	CompetitionLevel    CompetitionLevel `json:"competition_level"`
	PillarTopics        []PillarTopic    `json:"pillar_topics"`
	TotalArticlesNeeded int              `json:"total_articles_needed"`
	Reasoning           string           `json:"reasoning"`
}

// DefaultNiche is used when every niche provider failed.
const DefaultNiche = "Algemeen"

// DefaultNicheProfile returns the profile used when niche detection fails.
func DefaultNicheProfile() NicheProfile {
	return NicheProfile{
		Niche:               DefaultNiche,
		CompetitionLevel:    CompetitionMedium,
		TotalArticlesNeeded: MinTargetArticles,
	}
}

// Job is the durable record of one pipeline run.
type Job struct {
	ID          string         `json:"id"`
	Owner       string         `json:"owner_ref"`
	ProjectRef  string         `json:"project_ref"`
	SourceURL   string         `json:"source_url"`
	Status      JobStatus      `json:"status"`
	Progress    int            `json:"progress"`
	CurrentStep string         `json:"current_step"`
	Language    string         `json:"language,omitempty"`
	Niche       string         `json:"niche,omitempty"`
	Plan        []ArticleBrief `json:"plan"`
	Clusters    []Cluster      `json:"clusters"`
	Stats       Stats          `json:"stats"`
	Error       string         `json:"error,omitempty"`
	ExportURI   string         `json:"export_uri,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
}

// JobUpdate is a partial set of fields merged into a job. Nil fields are left
// untouched.
type JobUpdate struct {
	Status      *JobStatus
	Progress    *int
	CurrentStep *string
	Language    *string
	Niche       *string
	Plan        []ArticleBrief
	Clusters    []Cluster
	Stats       *Stats
	Error       *string
	ExportURI   *string
}

// Apply merges the update into job. Progress never decreases.
func (u JobUpdate) Apply(job *Job, now time.Time) {
	if u.Status != nil {
		job.Status = *u.Status
		if u.Status.Terminal() {
			ts := now
			job.CompletedAt = &ts
		}
	}
	if u.Progress != nil && *u.Progress > job.Progress {
		job.Progress = *u.Progress
	}
	if u.CurrentStep != nil {
		job.CurrentStep = *u.CurrentStep
	}
	if u.Language != nil {
		job.Language = *u.Language
	}
	if u.Niche != nil {
		job.Niche = *u.Niche
	}
	if u.Plan != nil {
		job.Plan = u.Plan
	}
	if u.Clusters != nil {
		job.Clusters = u.Clusters
	}
	if u.Stats != nil {
		job.Stats = *u.Stats
	}
	if u.Error != nil {
		job.Error = *u.Error
	}
	if u.ExportURI != nil {
		job.ExportURI = *u.ExportURI
	}
	job.UpdatedAt = now
}

// Ptr returns a pointer to v; handy for building JobUpdate values.
func Ptr[T any](v T) *T {
	return &v
}
