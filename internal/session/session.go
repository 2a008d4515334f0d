// Package session persists conversation transcripts between chat turns.
// Sessions are ephemeral working memory, not durable records: Redis entries
// expire on a TTL, and the in-memory fallback evaporates on restart.
package session

import (
	"context"

	"taskdeck.app/agent/common/llm"
)

// Store holds one transcript per session id.
type Store interface {
	// History returns the saved transcript, or an empty slice for an
	// unknown or expired session.
	History(ctx context.Context, sessionID string) ([]llm.Message, error)
	// Save replaces the transcript and refreshes its expiry.
	Save(ctx context.Context, sessionID string, messages []llm.Message) error
	// Clear drops a session.
	Clear(ctx context.Context, sessionID string) error
}
