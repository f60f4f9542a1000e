package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"clm-paralegal/internal/domain"
	"clm-paralegal/internal/domain/model"
	"clm-paralegal/internal/domain/ports/repository"
	"clm-paralegal/internal/domain/ports/usecase"
	"clm-paralegal/internal/infra/metrics"
)

// AnalysisJobProcessor runs full analyses on the worker pool and keeps their
// status for polling until the retention window passes.
type AnalysisJobProcessor struct {
	jobs      repository.AnalysisJobRepository
	analyzer  usecase.FullAnalyzer
	pool      *Pool
	retention time.Duration
	log       zerolog.Logger
	now       func() time.Time
}

func NewAnalysisJobProcessor(
	jobs repository.AnalysisJobRepository,
	analyzer usecase.FullAnalyzer,
	pool *Pool,
	retention time.Duration,
	log *zerolog.Logger,
) *AnalysisJobProcessor {
	return &AnalysisJobProcessor{
		jobs:      jobs,
		analyzer:  analyzer,
		pool:      pool,
		retention: retention,
		log:       log.With().Str("component", "AnalysisJobProcessor").Logger(),
		now:       time.Now,
	}
}

// Enqueue records a pending job and hands it to the pool. A saturated pool
// yields domain.ErrQueueFull and the job is stored as failed.
func (p *AnalysisJobProcessor) Enqueue(ctx context.Context, text string, include []model.AnalysisKind) (*model.AnalysisJob, error) {
	now := p.now()
	job := &model.AnalysisJob{
		ID:        ulid.Make().String(),
		Include:   include,
		Status:    model.AnalysisJobPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := p.jobs.Save(ctx, job); err != nil {
		return nil, err
	}

	err := p.pool.Submit(func(ctx context.Context) error {
		return p.process(ctx, job.ID, text, include)
	})
	if err != nil {
		metrics.IncAnalysisJob("rejected")
		err = fmt.Errorf("%w: %w", domain.ErrQueueFull, err)
		p.finish(job, nil, err)
		return nil, err
	}
	metrics.IncAnalysisJob("queued")
	p.log.Info().Str("job_id", job.ID).Msg("analysis job queued")
	return job, nil
}

func (p *AnalysisJobProcessor) Get(ctx context.Context, id string) (*model.AnalysisJob, error) {
	return p.jobs.FindByID(ctx, id)
}

func (p *AnalysisJobProcessor) process(ctx context.Context, id, text string, include []model.AnalysisKind) error {
	job, err := p.jobs.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("load job %s: %w", id, err)
	}
	job.Status = model.AnalysisJobProcessing
	job.UpdatedAt = p.now()
	if err := p.jobs.Save(ctx, job); err != nil {
		return err
	}

	p.log.Info().Str("job_id", id).Msg("processing analysis job")
	start := time.Now()
	report, err := p.analyzer.RunFull(ctx, text, include)
	p.finish(job, report, err)
	p.log.Info().
		Str("job_id", id).
		Str("status", string(job.Status)).
		Dur("duration_ms", time.Since(start)).
		Msg("analysis job finished")
	return err
}

// finish writes the terminal status with a background context so shutdown
// does not leave the job looking in-flight.
func (p *AnalysisJobProcessor) finish(job *model.AnalysisJob, report *model.FullReport, err error) {
	job.Status = model.AnalysisJobCompleted
	job.Report = report
	if err != nil {
		job.Status = model.AnalysisJobFailed
		job.LastError = err.Error()
		job.ErrorKind = string(domain.KindOf(err))
		if !errors.Is(err, domain.ErrQueueFull) {
			metrics.IncAnalysisJob(string(model.AnalysisJobFailed))
		}
	} else {
		metrics.IncAnalysisJob(string(model.AnalysisJobCompleted))
	}
	job.UpdatedAt = p.now()
	if serr := p.jobs.Save(context.Background(), job); serr != nil {
		p.log.Error().Err(serr).Str("job_id", job.ID).Msg("failed to save analysis job")
	}
}

// Start prunes finished jobs past retention until ctx is done.
// This should be run in a goroutine.
func (p *AnalysisJobProcessor) Start(ctx context.Context) {
	interval := p.retention / 4
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Prune(ctx)
		}
	}
}

func (p *AnalysisJobProcessor) Prune(ctx context.Context) int {
	n, err := p.jobs.DeleteFinishedBefore(ctx, p.now().Add(-p.retention))
	if err != nil {
		p.log.Error().Err(err).Msg("prune analysis jobs")
		return 0
	}
	if n > 0 {
		p.log.Debug().Int("pruned", n).Msg("pruned finished analysis jobs")
	}
	return n
}
