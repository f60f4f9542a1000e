package usecase

import (
	"context"

	"clm-paralegal/internal/domain/model"
)

// FullAnalyzer defines the analysis operation needed by background workers.
type FullAnalyzer interface {
	RunFull(ctx context.Context, text string, include []model.AnalysisKind) (*model.FullReport, error)
}
