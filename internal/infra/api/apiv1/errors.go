package apiv1

import (
	"encoding/json"
	"errors"
	"net/http"

	"clm-paralegal/internal/domain"
	"clm-paralegal/internal/infra/logging"
	"clm-paralegal/internal/usecase"
)

// retryAfterSeconds is suggested to callers on quota and saturation errors.
const retryAfterSeconds = "30"

type errorBody struct {
	Error     string      `json:"error"`
	ErrorKind domain.Kind `json:"error_kind"`
	Stage     string      `json:"stage,omitempty"`
	TraceID   string      `json:"trace_id,omitempty"`
}

func statusFor(kind domain.Kind) int {
	switch kind {
	case domain.KindInvalidInput:
		return http.StatusBadRequest
	case domain.KindSessionNotFound, domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindQuotaExceeded:
		return http.StatusTooManyRequests
	case domain.KindSessionBusy:
		return http.StatusConflict
	case domain.KindQueueFull:
		return http.StatusServiceUnavailable
	case domain.KindDegradedInput:
		return http.StatusFailedDependency
	case domain.KindTimeout:
		return http.StatusGatewayTimeout
	case domain.KindExtraction, domain.KindService, domain.KindEmbeddingService, domain.KindNoEmbedding:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func setRetryAfter(w http.ResponseWriter, kind domain.Kind) {
	if kind == domain.KindQuotaExceeded || kind == domain.KindQueueFull {
		w.Header().Set("Retry-After", retryAfterSeconds)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := domain.KindOf(err)
	status := statusFor(kind)
	body := errorBody{Error: err.Error(), ErrorKind: kind, TraceID: logging.TraceID(r.Context())}
	if st, ok := usecase.StageOf(err); ok {
		body.Stage = string(st)
	}
	if status >= 500 {
		// upstream details stay in the log
		logging.With(r.Context(), s.log).Error().Err(err).Str("kind", string(kind)).Msg("request failed")
		if kind == domain.KindInternal {
			body.Error = "internal error"
		}
	}
	setRetryAfter(w, kind)
	writeJSON(w, status, body)
}

// decode reads a JSON body, reporting malformed or oversized input as invalid.
func decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return errors.Join(domain.ErrInvalidInput, errors.New("request body too large"))
		}
		return errors.Join(domain.ErrInvalidInput, err)
	}
	return nil
}
