// Package api hosts the HTTP server, middleware, and REST handlers for plan
// jobs. Notable routes:
//   - POST /v1/plans to start a plan generation job.
//   - GET /v1/plans/{job_id} and GET /v1/plans?project_ref=|owner_ref= for progress.
//   - POST /v1/plans/{job_id}/cancel to stop a running job.
//   - GET /healthz / readyz for Kubernetes probes.
//   - GET /metrics for Prometheus scraping.
package api
