package apiv1

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (s *Server) enqueueAnalysis(w http.ResponseWriter, r *http.Request) {
	s.limitBody(w, r)
	var req analysisRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	job, err := s.jobs.Enqueue(r.Context(), req.ContractText, req.Include)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/analyses/"+job.ID)
	writeJSON(w, http.StatusAccepted, job)
}

func (s *Server) getAnalysis(w http.ResponseWriter, r *http.Request) {
	job, err := s.jobs.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}
