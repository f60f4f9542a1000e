package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/genai"

	"clm-paralegal/internal/domain"
)

// classifyStatus maps a provider HTTP status onto the domain taxonomy.
// base is the sentinel for non-quota failures (ErrService or ErrEmbeddingService).
// Deadlines are left unwrapped so they classify as timeouts.
func classifyStatus(provider string, status int, base, err error) error {
	if status == http.StatusTooManyRequests {
		return fmt.Errorf("%s: %w: %w", provider, domain.ErrQuotaExceeded, err)
	}
	if timedOut(err) {
		return fmt.Errorf("%s: %w", provider, err)
	}
	return fmt.Errorf("%s: %w: %w", provider, base, err)
}

func timedOut(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}

// geminiStatus extracts the HTTP status from a genai error, or 0.
func geminiStatus(err error) int {
	var v genai.APIError
	if errors.As(err, &v) {
		return v.Code
	}
	var p *genai.APIError
	if errors.As(err, &p) && p != nil {
		return p.Code
	}
	return 0
}
