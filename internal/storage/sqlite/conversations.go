package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/padmaraj-kv/powersplit-sub000/internal/models"
	"github.com/padmaraj-kv/powersplit-sub000/internal/storage"
)

// GetConversation loads the conversation state for a user session.
func (s *SQLiteStore) GetConversation(ctx context.Context, userID, sessionID string) (*models.ConversationState, error) {
	state := &models.ConversationState{UserID: userID, SessionID: sessionID}
	var (
		step, contextJSON    string
		lastError            sql.NullString
		createdAt, updatedAt int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT current_step, context, retry_count, last_error, created_at, updated_at
		 FROM conversation_states WHERE user_id = ? AND session_id = ?`,
		userID, sessionID,
	).Scan(&step, &contextJSON, &state.RetryCount, &lastError, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("conversation not found: %s/%s: %w", userID, sessionID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}

	if err := json.Unmarshal([]byte(contextJSON), &state.Context); err != nil {
		return nil, fmt.Errorf("failed to decode conversation context: %w", err)
	}
	state.CurrentStep = models.ConversationStep(step)
	state.LastError = lastError.String
	state.CreatedAt = fromMillis(createdAt)
	state.UpdatedAt = fromMillis(updatedAt)
	state.SyncFromContext()

	return state, nil
}

// SaveConversation inserts or replaces the conversation state.
func (s *SQLiteStore) SaveConversation(ctx context.Context, state *models.ConversationState) error {
	if state.CreatedAt.IsZero() {
		state.CreatedAt = s.now()
	}
	if state.UpdatedAt.IsZero() {
		state.UpdatedAt = state.CreatedAt
	}

	contextJSON, err := json.Marshal(state.Context)
	if err != nil {
		return fmt.Errorf("failed to encode conversation context: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO conversation_states (user_id, session_id, current_step, context, retry_count,
		 last_error, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (user_id, session_id) DO UPDATE SET
		   current_step = excluded.current_step,
		   context = excluded.context,
		   retry_count = excluded.retry_count,
		   last_error = excluded.last_error,
		   updated_at = excluded.updated_at`,
		state.UserID, state.SessionID, string(state.CurrentStep), string(contextJSON), state.RetryCount,
		nullString(state.LastError), toMillis(state.CreatedAt), toMillis(state.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save conversation: %w", err)
	}
	return nil
}
