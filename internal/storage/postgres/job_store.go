// Package postgres provides the Postgres-backed job store.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/contentplan/internal/plan"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

const defaultTable = "plan_jobs"

// JobStoreConfig controls the Postgres connection pool used for jobs.
type JobStoreConfig struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type pgxIface interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	QueryRow(context.Context, string, ...any) pgx.Row
	Ping(context.Context) error
	Close()
}

// JobStore persists plan jobs in a single table. Conditional writes are one
// UPDATE guarded by the status column, so a cancel and a pipeline write never
// both win.
type JobStore struct {
	pool  pgxIface
	table string
	clock plan.Clock
}

// NewJobStore connects to Postgres using cfg.
func NewJobStore(ctx context.Context, cfg JobStoreConfig, clock plan.Clock) (*JobStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database.dsn is required")
	}
	table, err := tableName(cfg.Table)
	if err != nil {
		return nil, err
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &JobStore{pool: pool, table: table, clock: clock}, nil
}

// NewJobStoreWithPool constructs a store from an existing pool (primarily for testing).
func NewJobStoreWithPool(pool pgxIface, table string, clock plan.Clock) (*JobStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	name, err := tableName(table)
	if err != nil {
		return nil, err
	}
	return &JobStore{pool: pool, table: name, clock: clock}, nil
}

func tableName(name string) (string, error) {
	if name == "" {
		return defaultTable, nil
	}
	if !validTableName.MatchString(name) {
		return "", fmt.Errorf("invalid table name %q", name)
	}
	return name, nil
}

// Close releases the underlying pool resources.
func (s *JobStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// Ping checks that the database is reachable.
func (s *JobStore) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}

// EnsureSchema creates the jobs table and its lookup indexes when missing.
func (s *JobStore) EnsureSchema(ctx context.Context) error {
	ddl := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %[1]s (
	id           TEXT PRIMARY KEY,
	owner_ref    TEXT NOT NULL DEFAULT '',
	project_ref  TEXT NOT NULL DEFAULT '',
	source_url   TEXT NOT NULL,
	status       TEXT NOT NULL,
	progress     INTEGER NOT NULL DEFAULT 0,
	current_step TEXT NOT NULL DEFAULT '',
	language     TEXT NOT NULL DEFAULT '',
	niche        TEXT NOT NULL DEFAULT '',
	plan         JSONB,
	clusters     JSONB,
	stats        JSONB,
	error        TEXT NOT NULL DEFAULT '',
	export_uri   TEXT NOT NULL DEFAULT '',
	created_at   TIMESTAMPTZ NOT NULL,
	updated_at   TIMESTAMPTZ NOT NULL,
	completed_at TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS %[1]s_project_idx ON %[1]s (project_ref, created_at DESC);
CREATE INDEX IF NOT EXISTS %[1]s_owner_idx ON %[1]s (owner_ref, created_at DESC);`, s.table)
	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// CreateJob inserts the job in processing with zero progress.
func (s *JobStore) CreateJob(ctx context.Context, job plan.Job) error {
	now := s.clock.Now()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	query := fmt.Sprintf(`
INSERT INTO %s (id, owner_ref, project_ref, source_url, status, progress, current_step, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, 0, $6, $7, $7)`, s.table)
	_, err := s.pool.Exec(ctx, query,
		job.ID,
		job.Owner,
		job.ProjectRef,
		job.SourceURL,
		string(plan.StatusProcessing),
		job.CurrentStep,
		job.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// GetJob loads a job by id.
func (s *JobStore) GetJob(ctx context.Context, jobID string) (plan.Job, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, jobColumns, s.table)
	return s.scanOne(ctx, query, jobID)
}

// LatestActiveForProject returns the newest job for the project that is not
// cancelled or failed, optionally restricted to statuses.
func (s *JobStore) LatestActiveForProject(
	ctx context.Context,
	projectRef string,
	statuses ...plan.JobStatus,
) (plan.Job, error) {
	var filter any
	if len(statuses) > 0 {
		names := make([]string, len(statuses))
		for i, st := range statuses {
			names[i] = string(st)
		}
		filter = names
	}
	query := fmt.Sprintf(`
SELECT %s FROM %s
WHERE project_ref = $1
  AND status NOT IN ('cancelled', 'failed')
  AND ($2::text[] IS NULL OR status = ANY($2::text[]))
ORDER BY created_at DESC, id DESC
LIMIT 1`, jobColumns, s.table)
	return s.scanOne(ctx, query, projectRef, filter)
}

// LatestForOwner returns the newest job for owner.
func (s *JobStore) LatestForOwner(ctx context.Context, owner string) (plan.Job, error) {
	query := fmt.Sprintf(`
SELECT %s FROM %s
WHERE owner_ref = $1
ORDER BY created_at DESC, id DESC
LIMIT 1`, jobColumns, s.table)
	return s.scanOne(ctx, query, owner)
}

// UpdateIfActive applies update in a single statement that only matches
// pending or processing rows. Progress is kept with GREATEST so it never
// moves backwards.
func (s *JobStore) UpdateIfActive(ctx context.Context, jobID string, update plan.JobUpdate) (bool, error) {
	planJSON, err := marshalNullable(update.Plan, update.Plan != nil)
	if err != nil {
		return false, fmt.Errorf("marshal plan: %w", err)
	}
	clustersJSON, err := marshalNullable(update.Clusters, update.Clusters != nil)
	if err != nil {
		return false, fmt.Errorf("marshal clusters: %w", err)
	}
	statsJSON, err := marshalNullable(update.Stats, update.Stats != nil)
	if err != nil {
		return false, fmt.Errorf("marshal stats: %w", err)
	}
	var status any
	if update.Status != nil {
		status = string(*update.Status)
	}

	query := fmt.Sprintf(`
UPDATE %s SET
	status       = COALESCE($2::text, status),
	progress     = GREATEST(progress, COALESCE($3::int, progress)),
	current_step = COALESCE($4::text, current_step),
	language     = COALESCE($5::text, language),
	niche        = COALESCE($6::text, niche),
	plan         = COALESCE($7::jsonb, plan),
	clusters     = COALESCE($8::jsonb, clusters),
	stats        = COALESCE($9::jsonb, stats),
	error        = COALESCE($10::text, error),
	export_uri   = COALESCE($11::text, export_uri),
	completed_at = CASE WHEN $2::text IN ('completed', 'failed', 'cancelled') THEN $12 ELSE completed_at END,
	updated_at   = $12
WHERE id = $1 AND status IN ('pending', 'processing')`, s.table)

	tag, err := s.pool.Exec(ctx, query,
		jobID,
		status,
		nullable(update.Progress),
		nullable(update.CurrentStep),
		nullable(update.Language),
		nullable(update.Niche),
		planJSON,
		clustersJSON,
		statsJSON,
		nullable(update.Error),
		nullable(update.ExportURI),
		s.clock.Now(),
	)
	if err != nil {
		return false, fmt.Errorf("update job: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return true, nil
	}
	if _, err := s.GetJob(ctx, jobID); err != nil {
		return false, err
	}
	return false, nil
}

// Cancel moves an active job to cancelled.
func (s *JobStore) Cancel(ctx context.Context, jobID string) (bool, error) {
	query := fmt.Sprintf(`
UPDATE %s SET status = 'cancelled', updated_at = $2, completed_at = $2
WHERE id = $1 AND status IN ('pending', 'processing')`, s.table)
	tag, err := s.pool.Exec(ctx, query, jobID, s.clock.Now())
	if err != nil {
		return false, fmt.Errorf("cancel job: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

const jobColumns = `id, owner_ref, project_ref, source_url, status, progress, current_step, language, niche,
	plan, clusters, stats, error, export_uri, created_at, updated_at, completed_at`

func (s *JobStore) scanOne(ctx context.Context, query string, args ...any) (plan.Job, error) {
	var (
		job                  plan.Job
		status               string
		planRaw, clustersRaw []byte
		statsRaw             []byte
	)
	err := s.pool.QueryRow(ctx, query, args...).Scan(
		&job.ID,
		&job.Owner,
		&job.ProjectRef,
		&job.SourceURL,
		&status,
		&job.Progress,
		&job.CurrentStep,
		&job.Language,
		&job.Niche,
		&planRaw,
		&clustersRaw,
		&statsRaw,
		&job.Error,
		&job.ExportURI,
		&job.CreatedAt,
		&job.UpdatedAt,
		&job.CompletedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return plan.Job{}, plan.ErrNotFound
	}
	if err != nil {
		return plan.Job{}, fmt.Errorf("query job: %w", err)
	}
	job.Status = plan.JobStatus(status)
	if err := unmarshalNullable(planRaw, &job.Plan); err != nil {
		return plan.Job{}, fmt.Errorf("decode plan: %w", err)
	}
	if err := unmarshalNullable(clustersRaw, &job.Clusters); err != nil {
		return plan.Job{}, fmt.Errorf("decode clusters: %w", err)
	}
	if err := unmarshalNullable(statsRaw, &job.Stats); err != nil {
		return plan.Job{}, fmt.Errorf("decode stats: %w", err)
	}
	return job, nil
}

func nullable[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

func marshalNullable(v any, present bool) (any, error) {
	if !present {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return data, nil
}

func unmarshalNullable(raw []byte, out any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, out)
}
