package apiv1

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"clm-paralegal/internal/infra/logging"
)

type ingestRequest struct {
	ContractText string `json:"contract_text"`
	Collection   string `json:"collection,omitempty"`
}

type askRequest struct {
	Question   string `json:"question"`
	SessionID  string `json:"session_id"`
	Collection string `json:"collection,omitempty"`
}

type profileRequest struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

func (s *Server) ingest(w http.ResponseWriter, r *http.Request) {
	s.limitBody(w, r)
	var req ingestRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.qa.IngestInto(r.Context(), req.Collection, req.ContractText)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ids := make([]string, len(res.Chunks))
	for i, c := range res.Chunks {
		ids[i] = c.ID
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"collection": res.Collection,
		"chunks":     len(res.Chunks),
		"ids":        ids,
	})
}

func (s *Server) ask(w http.ResponseWriter, r *http.Request) {
	s.limitBody(w, r)
	var req askRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	ctx := logging.WithSessID(r.Context(), req.SessionID)
	ans, err := s.qa.AskIn(ctx, req.Collection, req.Question, req.SessionID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ans)
}

func (s *Server) initSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.qa.InitSession(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"session_id": id})
}

func (s *Server) setProfile(w http.ResponseWriter, r *http.Request) {
	s.limitBody(w, r)
	var req profileRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.qa.SetProfileFact(r.Context(), chi.URLParam(r, "id"), req.Key, req.Value); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) sessionContext(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	text, err := s.qa.RenderContext(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"session_id": id, "context": text})
}
