package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/chatcat/chatcat/internal/model"
)

// Common errors for API key repository operations.
var (
	ErrAPIKeyExists = errors.New("API key already exists")
)

// AppendAPIKey records key as the newest key of the key's user. It is a single
// INSERT, so concurrent appends for the same user never lose a key.
func (r *Repository) AppendAPIKey(ctx context.Context, key *model.APIKey) error {
	query := `
		INSERT INTO api_keys (key, user_id, source_url, created_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err := r.pool.Exec(ctx, query,
		key.Key,
		key.UserID,
		key.SourceURL,
		key.CreatedAt,
	)

	if err != nil {
		switch {
		case isUniqueViolation(err):
			return ErrAPIKeyExists
		case isForeignKeyViolation(err):
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to append API key: %w", err)
	}

	return nil
}

// ListAPIKeys returns a user's keys in the order they were issued.
func (r *Repository) ListAPIKeys(ctx context.Context, userID string) ([]*model.APIKey, error) {
	query := `
		SELECT key, user_id, source_url, created_at
		FROM api_keys
		WHERE user_id = $1
		ORDER BY seq ASC
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list API keys: %w", err)
	}
	defer rows.Close()

	keys := make([]*model.APIKey, 0)
	for rows.Next() {
		var key model.APIKey
		if err := rows.Scan(&key.Key, &key.UserID, &key.SourceURL, &key.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan API key: %w", err)
		}
		keys = append(keys, &key)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating API keys: %w", err)
	}

	return keys, nil
}
