package memstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"clm-paralegal/internal/domain"
	"clm-paralegal/internal/domain/model"
	"clm-paralegal/internal/domain/ports/repository"
)

var _ repository.AnalysisJobRepository = (*AnalysisJobRepo)(nil)

type AnalysisJobRepo struct {
	mu   sync.RWMutex
	jobs map[string]*model.AnalysisJob
}

func NewAnalysisJobRepo() *AnalysisJobRepo {
	return &AnalysisJobRepo{jobs: make(map[string]*model.AnalysisJob)}
}

func (r *AnalysisJobRepo) Save(_ context.Context, job *model.AnalysisJob) error {
	if job == nil || job.ID == "" {
		return fmt.Errorf("job without id: %w", domain.ErrInvalidInput)
	}
	cp := *job
	r.mu.Lock()
	r.jobs[job.ID] = &cp
	r.mu.Unlock()
	return nil
}

func (r *AnalysisJobRepo) FindByID(_ context.Context, id string) (*model.AnalysisJob, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	j, ok := r.jobs[id]
	if !ok {
		return nil, fmt.Errorf("analysis job %q: %w", id, domain.ErrNotFound)
	}
	cp := *j
	return &cp, nil
}

func (r *AnalysisJobRepo) DeleteFinishedBefore(_ context.Context, t time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, j := range r.jobs {
		finished := j.Status == model.AnalysisJobCompleted || j.Status == model.AnalysisJobFailed
		if finished && j.UpdatedAt.Before(t) {
			delete(r.jobs, id)
			n++
		}
	}
	return n, nil
}
