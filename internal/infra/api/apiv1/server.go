package apiv1

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"clm-paralegal/internal/domain/model"
	"clm-paralegal/internal/domain/ports/adapter"
	"clm-paralegal/internal/usecase"
)

// JobQueue runs full analyses asynchronously.
type JobQueue interface {
	Enqueue(ctx context.Context, text string, include []model.AnalysisKind) (*model.AnalysisJob, error)
	Get(ctx context.Context, id string) (*model.AnalysisJob, error)
}

type Server struct {
	analysis  usecase.AnalysisUseCase
	qa        usecase.QAUseCase
	jobs      JobQueue
	pdf       adapter.TextExtractor
	maxUpload int64
	log       *zerolog.Logger
}

func NewServer(
	analysis usecase.AnalysisUseCase,
	qa usecase.QAUseCase,
	jobs JobQueue,
	pdf adapter.TextExtractor,
	maxUpload int64,
	logger *zerolog.Logger,
) *Server {
	l := logger.With().Str("component", "apiv1").Logger()
	return &Server{
		analysis:  analysis,
		qa:        qa,
		jobs:      jobs,
		pdf:       pdf,
		maxUpload: maxUpload,
		log:       &l,
	}
}

// RegisterAPIV1 mounts every contract-analysis route on r.
func RegisterAPIV1(r chi.Router, s *Server) {
	r.Post("/full-analysis", s.fullAnalysis)
	r.Post("/full-analysis-pdf", s.fullAnalysisPDF)

	r.Get("/agents", s.listAgents)
	r.Post("/agents/{kind}", s.runAgent)
	r.Post("/recommendation", s.recommendation)

	r.Route("/rag", func(r chi.Router) {
		r.Post("/ingest", s.ingest)
		r.Post("/ask-with-memory", s.ask)
	})

	r.Route("/sessions/{id}", func(r chi.Router) {
		r.Post("/", s.initSession)
		r.Put("/profile", s.setProfile)
		r.Get("/context", s.sessionContext)
	})

	r.Post("/analyses", s.enqueueAnalysis)
	r.Get("/analyses/{id}", s.getAnalysis)
}

func (s *Server) limitBody(w http.ResponseWriter, r *http.Request) {
	if s.maxUpload > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	}
}
