// Command contentplan generates SEO content plans.
//
// Architecture overview:
//   - HTTP API: internal/api.Server exposes health, readiness, metrics and the /v1/plans job endpoints. A created job
//     is persisted in the processing state and queued before the request returns 202.
//   - Dispatcher & queue: jobs flow through a bounded in-memory queue sized by dispatcher.queue_depth and are fanned
//     out to a fixed worker pool sized by dispatcher.workers.
//   - Pipeline: each worker runs language detection, a site scan (colly, promoted to chromedp for JavaScript shells),
//     niche analysis, pillar topics, batched cluster generation, long-tail expansion, keyword enrichment and
//     deduplication. Every write is conditional on the job still being active, so a cancel always wins.
//   - Persistence & fanout: jobs live in memory or Postgres. Finished plans are optionally archived to a blob store
//     (memory/local/GCS/S3) and announced on Pub/Sub.
//   - Configuration & plumbing: Viper populates config from files and CONTENTPLAN_* env vars (a .env file is loaded
//     first); zap provides structured logging; Prometheus metrics are served on /metrics; OpenTelemetry spans wrap
//     pipeline stages when tracing is enabled.
//
// Quick checklist:
//   - Serve: contentplan serve --config config.yaml
//   - One-off: contentplan generate --url https://example.nl --project p1
package main

import "github.com/JakeFAU/contentplan/cmd"

func main() {
	cmd.Execute()
}
