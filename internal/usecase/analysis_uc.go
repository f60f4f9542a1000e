// File: internal/usecase/analysis_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"clm-paralegal/internal/domain"
	"clm-paralegal/internal/domain/model"
	"clm-paralegal/internal/domain/ports/adapter"
	"clm-paralegal/internal/infra/logging"
	"clm-paralegal/internal/infra/metrics"
)

// Compile-time check
var _ AnalysisUseCase = (*analysisUC)(nil)

type AnalysisUseCase interface {
	// RunAgent runs one prompt agent. Failures come back inside the result.
	RunAgent(ctx context.Context, kind model.AnalysisKind, text string) model.AnalysisResult
	// RunRecommendation joins the five upstream results into a final recommendation.
	RunRecommendation(ctx context.Context, text string, inputs map[model.AnalysisKind]model.AnalysisResult) model.AnalysisResult
	// RunFull fans out the recommendation inputs plus any extra agents, then joins.
	RunFull(ctx context.Context, text string, include []model.AnalysisKind) (*model.FullReport, error)
	Agents() []model.AnalysisKind
}

type analysisUC struct {
	ai        adapter.Generator
	model     string
	minLength int
	dev       bool
	log       zerolog.Logger
}

func NewAnalysisUseCase(ai adapter.Generator, generationModel string, minLength int, dev bool, logger *zerolog.Logger) *analysisUC {
	return &analysisUC{
		ai:        ai,
		model:     generationModel,
		minLength: minLength,
		dev:       dev,
		log:       logger.With().Str("component", "AnalysisUseCase").Logger(),
	}
}

func (uc *analysisUC) Agents() []model.AnalysisKind { return AgentKinds() }

// validate applies the minimum-length rule shared by every agent.
func (uc *analysisUC) validate(text string) error {
	if utf8.RuneCountInString(strings.TrimSpace(text)) < uc.minLength {
		return fmt.Errorf("contract text must be at least %d characters: %w", uc.minLength, domain.ErrInvalidInput)
	}
	return nil
}

func invalidResult(kind model.AnalysisKind) model.AnalysisResult {
	return model.Failed(kind, domain.KindInvalidInput, "Please provide a valid contract text.")
}

func (uc *analysisUC) RunAgent(ctx context.Context, kind model.AnalysisKind, text string) model.AnalysisResult {
	a, ok := agents[kind]
	if !ok {
		metrics.IncAgentResult(string(kind), string(domain.KindInvalidInput))
		return model.Failed(kind, domain.KindInvalidInput, fmt.Sprintf("%v: %s", domain.ErrUnknownAgent, kind))
	}
	if err := uc.validate(text); err != nil {
		metrics.IncAgentResult(string(kind), string(domain.KindInvalidInput))
		return invalidResult(kind)
	}
	return uc.run(ctx, a, a.prompt(text))
}

func (uc *analysisUC) run(ctx context.Context, a agent, prompt string) model.AnalysisResult {
	log := logging.With(logging.WithAgent(ctx, string(a.kind)), &uc.log)
	done := logging.TraceDuration(log, "agent "+string(a.kind))
	defer done()

	gen, err := uc.ai.Generate(ctx, uc.model, prompt)
	if err == nil && a.clean != nil {
		gen.Text = a.clean(gen.Text)
		if gen.Text == "" {
			err = domain.ErrExtraction
		}
	}
	if err != nil {
		kind := domain.KindOf(err)
		metrics.IncAgentResult(string(a.kind), string(kind))
		log.Warn().Err(err).Str("kind", string(kind)).Msg("agent call failed")
		return model.Failed(a.kind, kind, failureMessage(kind, err, a.unavailable))
	}
	metrics.IncAgentResult(string(a.kind), "ok")
	log.Debug().Int("reply_len", len(gen.Text)).Str("reply", logging.Redact(gen.Text, uc.dev)).Msg("agent replied")
	return model.Succeeded(a.kind, gen.Text)
}

// failureMessage is the user-facing text for a failed call.
func failureMessage(kind domain.Kind, err error, unavailable string) string {
	switch kind {
	case domain.KindQuotaExceeded:
		return "AI quota exceeded. Please try again later."
	case domain.KindExtraction:
		return unavailable
	case domain.KindTimeout:
		return "AI call timed out. Please try again later."
	default:
		return err.Error()
	}
}

func (uc *analysisUC) RunRecommendation(ctx context.Context, text string, inputs map[model.AnalysisKind]model.AnalysisResult) model.AnalysisResult {
	kind := model.AnalysisRecommendation
	if err := uc.validate(text); err != nil {
		metrics.IncAgentResult(string(kind), string(domain.KindInvalidInput))
		return invalidResult(kind)
	}

	rendered := make(map[model.AnalysisKind]string, len(model.RecommendationInputs))
	var degraded []model.AnalysisKind
	for _, k := range model.RecommendationInputs {
		r, ok := inputs[k]
		if !ok || !r.OK() {
			degraded = append(degraded, k)
			rendered[k] = unavailablePlaceholder(r)
			continue
		}
		rendered[k] = r.Text
	}

	if len(degraded) == len(model.RecommendationInputs) {
		metrics.IncAgentResult(string(kind), string(domain.KindDegradedInput))
		names := make([]string, len(degraded))
		for i, k := range degraded {
			names[i] = string(k)
		}
		res := model.Failed(kind, domain.KindDegradedInput,
			fmt.Sprintf("%v: %s", domain.ErrDegradedInput, strings.Join(names, ", ")))
		res.DegradedInputs = degraded
		return res
	}

	a := agent{kind: kind, unavailable: "Unable to generate recommendation."}
	res := uc.run(ctx, a, recommendationPrompt(rendered, len(degraded)))
	res.DegradedInputs = degraded
	return res
}

func (uc *analysisUC) RunFull(ctx context.Context, text string, include []model.AnalysisKind) (*model.FullReport, error) {
	if err := uc.validate(text); err != nil {
		return nil, stageErr("full analysis", StageValidate, err)
	}

	kinds := append([]model.AnalysisKind(nil), model.RecommendationInputs...)
	seen := make(map[model.AnalysisKind]bool, len(kinds)+len(include))
	for _, k := range kinds {
		seen[k] = true
	}
	for _, k := range include {
		if _, ok := agents[k]; !ok {
			return nil, stageErr("full analysis", StageValidate, fmt.Errorf("%w: %s", domain.ErrUnknownAgent, k))
		}
		if !seen[k] {
			seen[k] = true
			kinds = append(kinds, k)
		}
	}

	results := make([]model.AnalysisResult, len(kinds))
	var g errgroup.Group
	for i, k := range kinds {
		g.Go(func() error {
			results[i] = uc.RunAgent(ctx, k, text)
			return nil
		})
	}
	// Agents report failures in their results; Wait never returns an error.
	_ = g.Wait()

	report := &model.FullReport{Results: make(map[model.AnalysisKind]model.AnalysisResult, len(kinds))}
	for _, r := range results {
		report.Results[r.Kind] = r
	}
	if err := ctx.Err(); err != nil && errors.Is(err, context.Canceled) {
		return nil, stageErr("full analysis", StageGenerate, err)
	}
	report.Recommendation = uc.RunRecommendation(ctx, text, report.Results)
	return report, nil
}
