package apiv1

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"clm-paralegal/internal/domain"
	"clm-paralegal/internal/domain/model"
)

type analysisRequest struct {
	ContractText string               `json:"contract_text"`
	Include      []model.AnalysisKind `json:"include,omitempty"`
}

// recommendationRequest accepts each upstream analysis either as plain text or
// as a result object ({"<kind>": text} or {"error": ..., "error_kind": ...}).
type recommendationRequest struct {
	ContractText string                     `json:"contract_text"`
	Inputs       map[string]json.RawMessage `json:"inputs"`
}

func (s *Server) writeResult(w http.ResponseWriter, res model.AnalysisResult) {
	if res.OK() {
		writeJSON(w, http.StatusOK, res)
		return
	}
	setRetryAfter(w, res.Failure.Kind)
	writeJSON(w, statusFor(res.Failure.Kind), res)
}

func (s *Server) listAgents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"agents": s.analysis.Agents()})
}

func (s *Server) runAgent(w http.ResponseWriter, r *http.Request) {
	s.limitBody(w, r)
	var req analysisRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	kind := model.AnalysisKind(chi.URLParam(r, "kind"))
	s.writeResult(w, s.analysis.RunAgent(r.Context(), kind, req.ContractText))
}

func (s *Server) recommendation(w http.ResponseWriter, r *http.Request) {
	s.limitBody(w, r)
	var req recommendationRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	inputs := make(map[model.AnalysisKind]model.AnalysisResult, len(req.Inputs))
	for k, raw := range req.Inputs {
		kind := model.AnalysisKind(k)
		res, err := parseInput(kind, raw)
		if err != nil {
			s.writeError(w, r, fmt.Errorf("input %s: %w", k, errors.Join(domain.ErrInvalidInput, err)))
			return
		}
		inputs[kind] = res
	}
	s.writeResult(w, s.analysis.RunRecommendation(r.Context(), req.ContractText, inputs))
}

func parseInput(kind model.AnalysisKind, raw json.RawMessage) (model.AnalysisResult, error) {
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return model.Succeeded(kind, text), nil
	}
	res := model.AnalysisResult{Kind: kind}
	if err := json.Unmarshal(raw, &res); err != nil {
		return model.AnalysisResult{}, err
	}
	res.Kind = kind
	return res, nil
}

func (s *Server) fullAnalysis(w http.ResponseWriter, r *http.Request) {
	s.limitBody(w, r)
	var req analysisRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	report, err := s.analysis.RunFull(r.Context(), req.ContractText, req.Include)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// fullAnalysisPDF takes a multipart upload in field "file" and an optional
// comma-separated "include" field.
func (s *Server) fullAnalysisPDF(w http.ResponseWriter, r *http.Request) {
	s.limitBody(w, r)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		s.writeError(w, r, errors.Join(domain.ErrInvalidInput, err))
		return
	}
	file, hdr, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, r, errors.Join(domain.ErrInvalidInput, err))
		return
	}
	defer file.Close()

	text, err := s.pdf.ExtractText(r.Context(), file, hdr.Size)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	report, err := s.analysis.RunFull(r.Context(), text, splitKinds(r.FormValue("include")))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func splitKinds(s string) []model.AnalysisKind {
	var out []model.AnalysisKind
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, model.AnalysisKind(p))
		}
	}
	return out
}
