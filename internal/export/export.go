// Package export archives finished plans to a blob store and announces them
// on the event bus.
package export

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/contentplan/internal/hash/sha256"
	"github.com/JakeFAU/contentplan/internal/logging"
	"github.com/JakeFAU/contentplan/internal/plan"
	"github.com/JakeFAU/contentplan/internal/publisher"
	"github.com/JakeFAU/contentplan/internal/storage"
)

// EventPlanCompleted is the event type published for finished plans.
const EventPlanCompleted = "plan.completed"

const contentTypeJSON = "application/json"

// Config controls where exports land.
type Config struct {
	Prefix string
}

// Exporter writes plan documents and completion events. Either collaborator
// may be nil, in which case that half is skipped.
type Exporter struct {
	blobs     storage.BlobStore
	publisher publisher.Publisher
	clock     plan.Clock
	hasher    *sha256.Hasher
	cfg       Config
	logger    *zap.Logger
}

// New constructs an Exporter.
func New(blobs storage.BlobStore, pub publisher.Publisher, clock plan.Clock, cfg Config, logger *zap.Logger) *Exporter {
	return &Exporter{
		blobs:     blobs,
		publisher: pub,
		clock:     clock,
		hasher:    sha256.New(),
		cfg:       cfg,
		logger:    logging.OrNop(logger),
	}
}

// Document is the archived form of a plan. PlanSHA256 matches the digest in
// the completion event for the same plan.
type Document struct {
	JobID       string              `json:"job_id"`
	SourceURL   string              `json:"source_url"`
	Language    string              `json:"language"`
	Niche       string              `json:"niche"`
	GeneratedAt time.Time           `json:"generated_at"`
	PlanSHA256  string              `json:"plan_sha256"`
	Stats       plan.Stats          `json:"stats"`
	Clusters    []plan.Cluster      `json:"clusters"`
	Plan        []plan.ArticleBrief `json:"plan"`
}

// CompletedEvent is the payload announced after a plan is stored.
type CompletedEvent struct {
	JobID         string    `json:"job_id"`
	OwnerRef      string    `json:"owner_ref,omitempty"`
	ProjectRef    string    `json:"project_ref,omitempty"`
	SourceURL     string    `json:"source_url"`
	Niche         string    `json:"niche,omitempty"`
	Language      string    `json:"language,omitempty"`
	TotalArticles int       `json:"total_articles"`
	Clusters      int       `json:"clusters"`
	ExportURI     string    `json:"export_uri,omitempty"`
	PlanSHA256    string    `json:"plan_sha256"`
	CompletedAt   time.Time `json:"completed_at"`
}

// Archive stores the plan as JSON and returns its URI. Without a blob store
// it returns an empty URI.
func (e *Exporter) Archive(ctx context.Context, job plan.Job) (string, error) {
	if e.blobs == nil {
		return "", nil
	}
	if job.ID == "" {
		return "", errors.New("job id is required")
	}
	digest, err := e.hasher.HashJSON(job.Plan)
	if err != nil {
		return "", err
	}
	now := e.clock.Now()
	doc := Document{
		JobID:       job.ID,
		SourceURL:   job.SourceURL,
		Language:    job.Language,
		Niche:       job.Niche,
		GeneratedAt: now,
		PlanSHA256:  digest,
		Stats:       job.Stats,
		Clusters:    job.Clusters,
		Plan:        job.Plan,
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("marshal plan document: %w", err)
	}
	objectPath := storage.PlanPath(e.cfg.Prefix, job.ID, now)
	uri, err := e.blobs.PutObject(ctx, objectPath, contentTypeJSON, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("store plan document: %w", err)
	}
	e.logger.Info("plan archived",
		zap.String("job_id", job.ID),
		zap.String("uri", uri),
		zap.Int("bytes", len(body)),
	)
	return uri, nil
}

// Announce publishes a completion event for job.
func (e *Exporter) Announce(ctx context.Context, job plan.Job) error {
	if e.publisher == nil {
		return nil
	}
	digest, err := e.hasher.HashJSON(job.Plan)
	if err != nil {
		return err
	}
	completedAt := e.clock.Now()
	if job.CompletedAt != nil {
		completedAt = *job.CompletedAt
	}
	event := CompletedEvent{
		JobID:         job.ID,
		OwnerRef:      job.Owner,
		ProjectRef:    job.ProjectRef,
		SourceURL:     job.SourceURL,
		Niche:         job.Niche,
		Language:      job.Language,
		TotalArticles: len(job.Plan),
		Clusters:      len(job.Clusters),
		ExportURI:     job.ExportURI,
		PlanSHA256:    digest,
		CompletedAt:   completedAt,
	}
	attrs := map[string]string{}
	if job.ProjectRef != "" {
		attrs["project_ref"] = job.ProjectRef
	}
	id, err := e.publisher.Publish(ctx, publisher.Message{
		Type:       EventPlanCompleted,
		Key:        job.ID,
		Attributes: attrs,
		Payload:    event,
	})
	if err != nil {
		return fmt.Errorf("publish completion: %w", err)
	}
	e.logger.Debug("plan completion published", zap.String("job_id", job.ID), zap.String("message_id", id))
	return nil
}
