package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Dan9191/feedback-app/internal/models"
)

// Repository provides database operations
type Repository struct {
	db *sql.DB
}

// NewRepository initializes a new repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// CreateUser creates a new user in the database
func (r *Repository) CreateUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (username, password_hash, email, first_name, last_name, account_id)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.db.ExecContext(ctx, query,
		user.Username, user.PasswordHash, user.Email, user.FirstName, user.LastName, user.AccountID)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", mapError(err))
	}
	return nil
}

// FindUserByUsername retrieves a user by username
func (r *Repository) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	user := &models.User{}
	query := `
		SELECT username, password_hash, email, first_name, last_name, account_id
		FROM users
		WHERE username = $1`
	err := r.db.QueryRowContext(ctx, query, username).
		Scan(&user.Username, &user.PasswordHash, &user.Email, &user.FirstName, &user.LastName, &user.AccountID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", mapError(err))
	}
	return user, nil
}

// DeleteUser removes a user and all of their feedback in a single transaction
func (r *Repository) DeleteUser(ctx context.Context, username string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// The foreign key cascades as well; deleting explicitly keeps the
	// invariant on connections where sqlite foreign keys are off.
	if _, err := tx.ExecContext(ctx, `DELETE FROM feedback WHERE username = $1`, username); err != nil {
		return fmt.Errorf("failed to delete feedback: %w", err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM users WHERE username = $1`, username)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if err := expectAffected(res); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit user deletion: %w", err)
	}
	return nil
}

// CreateFeedback inserts a feedback entry and fills in its ID
func (r *Repository) CreateFeedback(ctx context.Context, fb *models.Feedback) error {
	query := `
		INSERT INTO feedback (title, content, username)
		VALUES ($1, $2, $3)
		RETURNING id`
	err := r.db.QueryRowContext(ctx, query, fb.Title, fb.Content, fb.Username).Scan(&fb.ID)
	if err != nil {
		return fmt.Errorf("failed to create feedback: %w", mapError(err))
	}
	return nil
}

// FindFeedbackByID retrieves a feedback entry by ID
func (r *Repository) FindFeedbackByID(ctx context.Context, id int64) (*models.Feedback, error) {
	fb := &models.Feedback{}
	query := `
		SELECT id, title, content, username
		FROM feedback
		WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&fb.ID, &fb.Title, &fb.Content, &fb.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to find feedback: %w", mapError(err))
	}
	return fb, nil
}

// ListFeedbackByUsername returns a user's feedback ordered by ID
func (r *Repository) ListFeedbackByUsername(ctx context.Context, username string) ([]models.Feedback, error) {
	query := `
		SELECT id, title, content, username
		FROM feedback
		WHERE username = $1
		ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, username)
	if err != nil {
		return nil, fmt.Errorf("failed to list feedback: %w", err)
	}
	defer rows.Close()

	items := []models.Feedback{}
	for rows.Next() {
		var fb models.Feedback
		if err := rows.Scan(&fb.ID, &fb.Title, &fb.Content, &fb.Username); err != nil {
			return nil, fmt.Errorf("failed to scan feedback: %w", err)
		}
		items = append(items, fb)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list feedback: %w", err)
	}
	return items, nil
}

// UpdateFeedback overwrites title and content; ID and owner are never written
func (r *Repository) UpdateFeedback(ctx context.Context, fb *models.Feedback) error {
	query := `
		UPDATE feedback
		SET title = $1, content = $2
		WHERE id = $3`
	res, err := r.db.ExecContext(ctx, query, fb.Title, fb.Content, fb.ID)
	if err != nil {
		return fmt.Errorf("failed to update feedback: %w", err)
	}
	if err := expectAffected(res); err != nil {
		return fmt.Errorf("failed to update feedback: %w", err)
	}
	return nil
}

// DeleteFeedback removes a feedback entry
func (r *Repository) DeleteFeedback(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM feedback WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete feedback: %w", err)
	}
	if err := expectAffected(res); err != nil {
		return fmt.Errorf("failed to delete feedback: %w", err)
	}
	return nil
}

// RevokeSession records a session ID that must no longer be accepted
func (r *Repository) RevokeSession(ctx context.Context, id string, expiresAt time.Time) error {
	query := `
		INSERT INTO revoked_sessions (id, expires_at)
		VALUES ($1, $2)`
	_, err := r.db.ExecContext(ctx, query, id, expiresAt.UTC().Truncate(time.Second))
	if err = mapError(err); err != nil && !errors.Is(err, ErrDuplicate) {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	return nil
}

// SessionActive reports whether a signed-in session is still valid: its account
// exists with the same account ID and the session ID has not been revoked
func (r *Repository) SessionActive(ctx context.Context, id, username, accountID string) (bool, error) {
	query := `
		SELECT COUNT(*) FROM users
		WHERE username = $1 AND account_id = $2
		  AND NOT EXISTS (SELECT 1 FROM revoked_sessions WHERE id = $3)`
	var count int
	if err := r.db.QueryRowContext(ctx, query, username, accountID, id).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check session: %w", err)
	}
	return count > 0, nil
}

// PurgeExpiredRevocations deletes revocations whose session would have expired anyway
func (r *Repository) PurgeExpiredRevocations(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM revoked_sessions WHERE expires_at < $1`, now.UTC().Truncate(time.Second))
	if err != nil {
		return 0, fmt.Errorf("failed to purge revocations: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to purge revocations: %w", err)
	}
	return n, nil
}

func expectAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
