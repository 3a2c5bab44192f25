package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/JakeFAU/contentplan/internal/plan"
	"github.com/JakeFAU/contentplan/internal/siteinfo"
)

type createPlanRequest struct {
	SourceURL  string `json:"source_url"`
	OwnerRef   string `json:"owner_ref"`
	ProjectRef string `json:"project_ref"`
}

type createPlanResponse struct {
	JobID  string         `json:"job_id"`
	Status plan.JobStatus `json:"status"`
}

// createPlan handles POST /v1/plans. The job is stored in processing and
// queued; the response never waits for the pipeline.
func (s *Server) createPlan(w http.ResponseWriter, r *http.Request) {
	var req createPlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	sourceURL := siteinfo.NormalizeURL(req.SourceURL)
	if sourceURL == "" {
		writeError(w, http.StatusBadRequest, "source_url required")
		return
	}
	jobID, err := s.startJob(r.Context(), plan.Job{
		Owner:      strings.TrimSpace(req.OwnerRef),
		ProjectRef: strings.TrimSpace(req.ProjectRef),
		SourceURL:  sourceURL,
	})
	if err != nil {
		s.logger.Error("create plan failed", zap.Error(err), zap.String("source_url", sourceURL))
		status := http.StatusInternalServerError
		if errors.Is(err, context.DeadlineExceeded) {
			status = http.StatusServiceUnavailable
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, createPlanResponse{JobID: jobID, Status: plan.StatusProcessing})
}

func (s *Server) startJob(ctx context.Context, job plan.Job) (string, error) {
	jobID, err := s.deps.IDs.NewID()
	if err != nil {
		return "", fmt.Errorf("generate job id: %w", err)
	}
	now := s.deps.Clock.Now()
	job.ID = jobID
	job.Status = plan.StatusProcessing
	job.CurrentStep = "Queued"
	job.CreatedAt = now
	if err := s.deps.Store.CreateJob(ctx, job); err != nil {
		return "", fmt.Errorf("create job: %w", err)
	}
	queueCtx, cancel := context.WithTimeout(ctx, enqueueTimeout)
	defer cancel()
	item := plan.QueueItem{
		JobID:     jobID,
		SourceURL: job.SourceURL,
		Submitted: now.Unix(),
	}
	if err := s.deps.Enqueuer.Enqueue(queueCtx, item); err != nil {
		s.markUnqueued(jobID, err)
		return "", fmt.Errorf("enqueue job: %w", err)
	}
	return jobID, nil
}

// markUnqueued fails a job that was stored but never reached a worker.
func (s *Server) markUnqueued(jobID string, cause error) {
	ctx, cancel := context.WithTimeout(context.Background(), enqueueTimeout)
	defer cancel()
	_, err := s.deps.Store.UpdateIfActive(ctx, jobID, plan.JobUpdate{
		Status:      plan.Ptr(plan.StatusFailed),
		CurrentStep: plan.Ptr("Failed"),
		Error:       plan.Ptr(cause.Error()),
	})
	if err != nil {
		s.logger.Warn("mark unqueued job failed", zap.String("job_id", jobID), zap.Error(err))
	}
}

// getPlan handles GET /v1/plans/{job_id}.
func (s *Server) getPlan(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	job, err := s.deps.Store.GetJob(r.Context(), jobID)
	s.writeJob(w, job, err)
}

// findPlan handles GET /v1/plans?project_ref=...[&status=...] and
// GET /v1/plans?owner_ref=....
func (s *Server) findPlan(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	projectRef := strings.TrimSpace(q.Get("project_ref"))
	ownerRef := strings.TrimSpace(q.Get("owner_ref"))

	switch {
	case projectRef != "":
		statuses, err := parseStatuses(q.Get("status"))
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		job, err := s.deps.Store.LatestActiveForProject(r.Context(), projectRef, statuses...)
		s.writeJob(w, job, err)
	case ownerRef != "":
		job, err := s.deps.Store.LatestForOwner(r.Context(), ownerRef)
		s.writeJob(w, job, err)
	default:
		writeError(w, http.StatusBadRequest, "project_ref or owner_ref required")
	}
}

// cancelPlan handles POST /v1/plans/{job_id}/cancel. Only an active job can
// be cancelled; anything else is reported as not found.
func (s *Server) cancelPlan(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	cancelled, err := s.deps.Store.Cancel(r.Context(), jobID)
	if err != nil {
		s.logger.Error("cancel plan failed", zap.String("job_id", jobID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to cancel job")
		return
	}
	if !cancelled {
		writeError(w, http.StatusNotFound, "no active job")
		return
	}
	s.logger.Info("plan cancelled", zap.String("job_id", jobID))
	job, err := s.deps.Store.GetJob(r.Context(), jobID)
	s.writeJob(w, job, err)
}

func (s *Server) writeJob(w http.ResponseWriter, job plan.Job, err error) {
	if err != nil {
		if errors.Is(err, plan.ErrNotFound) {
			writeError(w, http.StatusNotFound, "job not found")
			return
		}
		s.logger.Error("load job failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load job")
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// parseStatuses reads a comma separated status filter. Only processing and
// pending are accepted.
func parseStatuses(raw string) ([]plan.JobStatus, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	var out []plan.JobStatus
	for _, part := range strings.Split(raw, ",") {
		switch st := plan.JobStatus(strings.ToLower(strings.TrimSpace(part))); st {
		case plan.StatusPending, plan.StatusProcessing:
			out = append(out, st)
		case "":
		default:
			return nil, fmt.Errorf("invalid status %q", part)
		}
	}
	return out, nil
}
