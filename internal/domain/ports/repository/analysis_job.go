package repository

import (
	"context"
	"time"

	"clm-paralegal/internal/domain/model"
)

// AnalysisJobRepository tracks asynchronous full analyses.
type AnalysisJobRepository interface {
	Save(ctx context.Context, job *model.AnalysisJob) error
	// FindByID returns domain.ErrNotFound for unknown ids.
	FindByID(ctx context.Context, id string) (*model.AnalysisJob, error)
	// DeleteFinishedBefore drops completed or failed jobs last updated before t.
	DeleteFinishedBefore(ctx context.Context, t time.Time) (int, error)
}
