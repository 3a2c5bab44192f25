package server

import (
	"context"
	"errors"
	"fmt"

	"github.com/JakeFAU/contentplan/internal/plan"
	"github.com/JakeFAU/contentplan/internal/siteinfo"
)

// GenerateRequest describes a one-off plan run.
type GenerateRequest struct {
	SourceURL  string
	OwnerRef   string
	ProjectRef string
}

// Generate runs the pipeline for one site in the calling goroutine and returns
// the finished job. The job is stored like any API-created job, so it is also
// visible to the HTTP handlers of the same App.
func (a *App) Generate(ctx context.Context, req GenerateRequest) (plan.Job, error) {
	if len(a.workers) == 0 {
		return plan.Job{}, errors.New("no workers configured")
	}
	sourceURL := siteinfo.NormalizeURL(req.SourceURL)
	if sourceURL == "" {
		return plan.Job{}, errors.New("source url required")
	}
	jobID, err := a.ids.NewID()
	if err != nil {
		return plan.Job{}, fmt.Errorf("generate job id: %w", err)
	}
	now := a.clock.Now()
	job := plan.Job{
		ID:          jobID,
		Owner:       req.OwnerRef,
		ProjectRef:  req.ProjectRef,
		SourceURL:   sourceURL,
		Status:      plan.StatusProcessing,
		CurrentStep: "Queued",
		CreatedAt:   now,
	}
	if err := a.jobStore.CreateJob(ctx, job); err != nil {
		return plan.Job{}, fmt.Errorf("create job: %w", err)
	}

	a.workers[0].Process(ctx, plan.QueueItem{
		JobID:     jobID,
		SourceURL: sourceURL,
		Submitted: now.Unix(),
	})

	final, err := a.jobStore.GetJob(context.WithoutCancel(ctx), jobID)
	if err != nil {
		return plan.Job{}, fmt.Errorf("load job: %w", err)
	}
	if final.Status == plan.StatusFailed {
		return final, fmt.Errorf("plan failed: %s", final.Error)
	}
	return final, nil
}
