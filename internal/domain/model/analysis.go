package model

import (
	"encoding/json"
	"errors"

	"clm-paralegal/internal/domain"
)

// AnalysisKind names the output of one prompt agent.
type AnalysisKind string

const (
	AnalysisRisk              AnalysisKind = "risk_analysis"
	AnalysisBias              AnalysisKind = "bias_analysis"
	AnalysisFraud             AnalysisKind = "fraud_indicators"
	AnalysisStressTest        AnalysisKind = "stress_test"
	AnalysisStatute           AnalysisKind = "statute_mapping"
	AnalysisLegalIntelligence AnalysisKind = "legal_intelligence"
	AnalysisSummary           AnalysisKind = "summary"
	AnalysisRecommendation    AnalysisKind = "final_recommendation"
)

// RecommendationInputs are the analyses the recommendation synthesizer joins on, in prompt order.
var RecommendationInputs = []AnalysisKind{
	AnalysisRisk,
	AnalysisLegalIntelligence,
	AnalysisBias,
	AnalysisStressTest,
	AnalysisFraud,
}

// Failure is the error half of an AnalysisResult.
type Failure struct {
	Kind    domain.Kind `json:"kind"`
	Message string      `json:"message"`
}

// AnalysisResult holds either Text or Failure, never both.
type AnalysisResult struct {
	Kind           AnalysisKind
	Text           string
	Failure        *Failure
	DegradedInputs []AnalysisKind
}

func Succeeded(kind AnalysisKind, text string) AnalysisResult {
	return AnalysisResult{Kind: kind, Text: text}
}

func Failed(kind AnalysisKind, errKind domain.Kind, message string) AnalysisResult {
	return AnalysisResult{Kind: kind, Failure: &Failure{Kind: errKind, Message: message}}
}

func (r AnalysisResult) OK() bool { return r.Failure == nil }

// Output returns the text on success or the failure message otherwise.
func (r AnalysisResult) Output() string {
	if r.Failure != nil {
		return r.Failure.Message
	}
	return r.Text
}

// MarshalJSON renders {"<kind>": text} on success and {"error": msg, "error_kind": kind} on failure.
func (r AnalysisResult) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, 3)
	if r.Failure != nil {
		out["error"] = r.Failure.Message
		out["error_kind"] = r.Failure.Kind
	} else {
		out[string(r.Kind)] = r.Text
	}
	if len(r.DegradedInputs) > 0 {
		out["degraded_inputs"] = r.DegradedInputs
	}
	return json.Marshal(out)
}

func (r *AnalysisResult) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = AnalysisResult{Kind: r.Kind}
	if v, ok := raw["degraded_inputs"]; ok {
		if err := json.Unmarshal(v, &r.DegradedInputs); err != nil {
			return err
		}
		delete(raw, "degraded_inputs")
	}
	if v, ok := raw["error"]; ok {
		f := &Failure{Kind: domain.KindService}
		if err := json.Unmarshal(v, &f.Message); err != nil {
			return err
		}
		if k, ok := raw["error_kind"]; ok {
			if err := json.Unmarshal(k, &f.Kind); err != nil {
				return err
			}
		}
		r.Failure = f
		return nil
	}
	delete(raw, "error_kind")
	if len(raw) != 1 {
		return errors.New("analysis result: expected exactly one output key")
	}
	for k, v := range raw {
		r.Kind = AnalysisKind(k)
		if err := json.Unmarshal(v, &r.Text); err != nil {
			return err
		}
	}
	return nil
}

// FullReport is the outcome of a fan-out analysis plus the joined recommendation.
type FullReport struct {
	Results        map[AnalysisKind]AnalysisResult `json:"results"`
	Recommendation AnalysisResult                  `json:"recommendation"`
}
