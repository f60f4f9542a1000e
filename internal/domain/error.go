package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound         = errors.New("entity not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrQuotaExceeded    = errors.New("ai quota exceeded")
	ErrService          = errors.New("ai service error")
	ErrExtraction       = errors.New("unable to produce output")
	ErrSessionNotFound  = errors.New("session not found")
	ErrEmbeddingService = errors.New("embedding service error")
	ErrNoEmbedding      = errors.New("no embedding produced")
	ErrEmptyContract    = errors.New("contract produced no chunks")
	ErrUnknownAgent     = errors.New("unknown analysis agent")
	ErrDegradedInput    = errors.New("all upstream analyses unavailable")
	ErrSessionBusy      = errors.New("session is locked by another writer")
	ErrQueueFull        = errors.New("analysis queue is full")
)

// Kind is the caller-facing classification of an error.
type Kind string

const (
	KindNone             Kind = ""
	KindInvalidInput     Kind = "invalid_input"
	KindQuotaExceeded    Kind = "quota_exceeded"
	KindService          Kind = "service_error"
	KindExtraction       Kind = "extraction_error"
	KindSessionNotFound  Kind = "session_not_found"
	KindEmbeddingService Kind = "embedding_service_error"
	KindNoEmbedding      Kind = "no_embedding"
	KindDegradedInput    Kind = "degraded_input"
	KindNotFound         Kind = "not_found"
	KindSessionBusy      Kind = "session_busy"
	KindQueueFull        Kind = "queue_full"
	KindTimeout          Kind = "timeout"
	KindInternal         Kind = "internal"
)

// kindTable is ordered: the first matching sentinel wins. Quota is checked before
// embedding-service so a rate-limited embed call still reports quota.
var kindTable = []struct {
	err  error
	kind Kind
}{
	{ErrInvalidInput, KindInvalidInput},
	{ErrEmptyContract, KindInvalidInput},
	{ErrUnknownAgent, KindInvalidInput},
	{ErrQuotaExceeded, KindQuotaExceeded},
	{ErrSessionNotFound, KindSessionNotFound},
	{ErrSessionBusy, KindSessionBusy},
	{ErrQueueFull, KindQueueFull},
	{ErrNoEmbedding, KindNoEmbedding},
	{ErrEmbeddingService, KindEmbeddingService},
	{ErrExtraction, KindExtraction},
	{ErrDegradedInput, KindDegradedInput},
	{ErrNotFound, KindNotFound},
	{ErrService, KindService},
}

// KindOf resolves the classification of err by walking its wrap chain.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	for _, e := range kindTable {
		if errors.Is(err, e.err) {
			return e.kind
		}
	}
	if isTimeout(err) {
		return KindTimeout
	}
	return KindInternal
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}
