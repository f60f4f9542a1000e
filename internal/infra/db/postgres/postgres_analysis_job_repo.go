package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"clm-paralegal/internal/domain"
	"clm-paralegal/internal/domain/model"
	"clm-paralegal/internal/domain/ports/repository"
)

var _ repository.AnalysisJobRepository = (*AnalysisJobRepo)(nil)

// AnalysisJobRepo keeps async analysis jobs in Postgres so they survive restarts
// and are visible to every replica behind the load balancer.
type AnalysisJobRepo struct {
	pool *pgxpool.Pool
}

func NewAnalysisJobRepo(pool *pgxpool.Pool) *AnalysisJobRepo {
	return &AnalysisJobRepo{pool: pool}
}

func (r *AnalysisJobRepo) EnsureSchema(ctx context.Context) error {
	stmts := []string{`
CREATE TABLE IF NOT EXISTS analysis_jobs (
  id          TEXT        PRIMARY KEY,
  status      TEXT        NOT NULL,
  include     TEXT[]      NOT NULL DEFAULT '{}',
  report      JSONB,
  last_error  TEXT        NOT NULL DEFAULT '',
  error_kind  TEXT        NOT NULL DEFAULT '',
  created_at  TIMESTAMPTZ NOT NULL,
  updated_at  TIMESTAMPTZ NOT NULL
);`,
		`CREATE INDEX IF NOT EXISTS analysis_jobs_finished_idx ON analysis_jobs (status, updated_at);`,
	}
	for _, q := range stmts {
		if _, err := r.pool.Exec(ctx, q); err != nil {
			return fmt.Errorf("ensure analysis_jobs: %w", err)
		}
	}
	return nil
}

func (r *AnalysisJobRepo) Save(ctx context.Context, job *model.AnalysisJob) error {
	if job == nil || job.ID == "" {
		return fmt.Errorf("job without id: %w", domain.ErrInvalidInput)
	}
	var report []byte
	if job.Report != nil {
		b, err := json.Marshal(job.Report)
		if err != nil {
			return fmt.Errorf("marshal report: %w", err)
		}
		report = b
	}
	include := make([]string, len(job.Include))
	for i, k := range job.Include {
		include[i] = string(k)
	}

	const q = `
INSERT INTO analysis_jobs (id, status, include, report, last_error, error_kind, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (id) DO UPDATE SET
  status = EXCLUDED.status,
  report = EXCLUDED.report,
  last_error = EXCLUDED.last_error,
  error_kind = EXCLUDED.error_kind,
  updated_at = EXCLUDED.updated_at;`
	_, err := r.pool.Exec(ctx, q,
		job.ID, string(job.Status), include, report, job.LastError, job.ErrorKind, job.CreatedAt, job.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save analysis job %s: %w", job.ID, err)
	}
	return nil
}

func (r *AnalysisJobRepo) FindByID(ctx context.Context, id string) (*model.AnalysisJob, error) {
	const q = `
SELECT id, status, include, report, last_error, error_kind, created_at, updated_at
FROM analysis_jobs WHERE id = $1;`

	var (
		job     model.AnalysisJob
		status  string
		include []string
		report  []byte
	)
	err := r.pool.QueryRow(ctx, q, id).Scan(
		&job.ID, &status, &include, &report, &job.LastError, &job.ErrorKind, &job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("analysis job %q: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("find analysis job: %w", err)
	}
	job.Status = model.AnalysisJobStatus(status)
	for _, k := range include {
		job.Include = append(job.Include, model.AnalysisKind(k))
	}
	if len(report) > 0 {
		var rep model.FullReport
		if err := json.Unmarshal(report, &rep); err != nil {
			return nil, fmt.Errorf("decode report: %w", err)
		}
		restoreKinds(&rep)
		job.Report = &rep
	}
	return &job, nil
}

// restoreKinds fills result kinds that the wire form of a failure does not carry.
func restoreKinds(rep *model.FullReport) {
	for k, res := range rep.Results {
		res.Kind = k
		rep.Results[k] = res
	}
	rep.Recommendation.Kind = model.AnalysisRecommendation
}

func (r *AnalysisJobRepo) DeleteFinishedBefore(ctx context.Context, t time.Time) (int, error) {
	const q = `
DELETE FROM analysis_jobs
WHERE status IN ('completed', 'failed') AND updated_at < $1;`
	tag, err := r.pool.Exec(ctx, q, t)
	if err != nil {
		return 0, fmt.Errorf("prune analysis jobs: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
