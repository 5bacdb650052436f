package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/AWS-JaeminJung/sauna-app/internal/models"
)

// SaveSession upserts the auth token of a chat.
func (db *DB) SaveSession(ctx context.Context, chatID int64, token string, user *models.User) error {
	var u models.User
	if user != nil {
		u = *user
	}
	now := time.Now()

	_, err := db.ExecContext(ctx, `
		INSERT INTO chat_sessions (chat_id, token, user_id, email, full_name, is_admin, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(chat_id) DO UPDATE SET
			token = excluded.token,
			user_id = excluded.user_id,
			email = excluded.email,
			full_name = excluded.full_name,
			is_admin = excluded.is_admin,
			updated_at = excluded.updated_at`,
		chatID, token, u.ID, u.Email, u.FullName, u.IsAdmin, now, now)
	return err
}

// LoadSession returns the stored token and user of a chat or ErrNotFound.
func (db *DB) LoadSession(ctx context.Context, chatID int64) (string, *models.User, error) {
	row := db.QueryRowContext(ctx, `
		SELECT token, COALESCE(user_id, ''), COALESCE(email, ''), COALESCE(full_name, ''), is_admin
		FROM chat_sessions WHERE chat_id = ?`, chatID)

	var token string
	var u models.User
	if err := row.Scan(&token, &u.ID, &u.Email, &u.FullName, &u.IsAdmin); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil, ErrNotFound
		}
		return "", nil, err
	}
	if u.ID == "" {
		return token, nil, nil
	}
	return token, &u, nil
}

// DeleteSession removes the stored token of a chat.
func (db *DB) DeleteSession(ctx context.Context, chatID int64) error {
	_, err := db.ExecContext(ctx, `DELETE FROM chat_sessions WHERE chat_id = ?`, chatID)
	return err
}
