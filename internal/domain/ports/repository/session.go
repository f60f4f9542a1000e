package repository

import (
	"context"

	"clm-paralegal/internal/domain/model"
)

// -----------------------------
// Sessions
// -----------------------------

// SessionStore keeps per-session profile facts and transcripts.
//
// Every method except Init and Lock returns domain.ErrSessionNotFound for an id
// that was never initialised.
type SessionStore interface {
	// Init creates the session if missing. It never resets an existing one.
	Init(ctx context.Context, sessionID string) error
	SetProfileFact(ctx context.Context, sessionID, key, value string) error
	AppendMessage(ctx context.Context, sessionID string, role model.Role, content string) error
	// Get returns a snapshot; callers may mutate it freely.
	Get(ctx context.Context, sessionID string) (*model.Session, error)
	// Lock serializes writers of one session. Different ids never contend.
	Lock(ctx context.Context, sessionID string) (unlock func(), err error)
}
