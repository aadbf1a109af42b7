package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"bitelogs/internal/apperr"
	"bitelogs/pkg/database"
	"bitelogs/pkg/models"
)

// User is an account row including its credentials.
type User struct {
	ID           int64
	Email        string
	DisplayName  string
	AvatarURL    string
	PasswordHash string
	IsAdmin      bool
	TokenVersion int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (u *User) Public() models.User {
	return models.User{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		AvatarURL:   u.AvatarURL,
		IsAdmin:     u.IsAdmin,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

// TokenState is what the middleware needs to accept a token.
type TokenState struct {
	TokenVersion int
	IsAdmin      bool
}

type Repo struct {
	DB *sqlx.DB
}

func NewRepo(db *sqlx.DB) *Repo {
	return &Repo{DB: db}
}

const userColumns = `id, email, display_name, avatar_url, password_hash, is_admin, token_version, created_at, updated_at`

// CreateUser inserts u and fills in its id and timestamps. A taken email
// is reported as a conflict.
func (r *Repo) CreateUser(ctx context.Context, u *User) error {
	row := r.DB.QueryRowxContext(ctx, r.DB.Rebind(`
		INSERT INTO users (email, password_hash, display_name, is_admin)
		VALUES (?, ?, ?, ?)
		RETURNING id, created_at, updated_at
	`), u.Email, u.PasswordHash, u.DisplayName, u.IsAdmin)

	if err := row.Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if database.IsUniqueViolation(err) {
			return apperr.Conflict("Email already registered")
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func scanUser(row interface{ Scan(...any) error }) (*User, error) {
	var (
		u      User
		avatar sql.NullString
	)
	if err := row.Scan(&u.ID, &u.Email, &u.DisplayName, &avatar, &u.PasswordHash,
		&u.IsAdmin, &u.TokenVersion, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	u.AvatarURL = avatar.String
	return &u, nil
}

func (r *Repo) GetByEmail(ctx context.Context, email string) (*User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	row := r.DB.QueryRowxContext(ctx, r.DB.Rebind(`
		SELECT `+userColumns+`
		FROM users
		WHERE LOWER(email) = ?
	`), email)

	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get by email: %w", err)
	}
	return u, nil
}

func (r *Repo) GetByID(ctx context.Context, id int64) (*User, error) {
	row := r.DB.QueryRowxContext(ctx, r.DB.Rebind(`
		SELECT `+userColumns+`
		FROM users
		WHERE id = ?
	`), id)

	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get by id: %w", err)
	}
	return u, nil
}

// GetTokenState returns nil when the user no longer exists.
func (r *Repo) GetTokenState(ctx context.Context, id int64) (*TokenState, error) {
	row := r.DB.QueryRowxContext(ctx, r.DB.Rebind(`
		SELECT token_version, is_admin
		FROM users
		WHERE id = ?
	`), id)

	var st TokenState
	if err := row.Scan(&st.TokenVersion, &st.IsAdmin); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get token state: %w", err)
	}
	return &st, nil
}

func (r *Repo) UpdatePasswordAndBumpTokenVersion(ctx context.Context, id int64, passwordHash string) (err error) {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update password: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, tx.Rebind(`
		UPDATE users
		SET password_hash = ?, token_version = token_version + 1, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`), passwordHash, id)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update password rows: %w", err)
	}
	if affected == 0 {
		return apperr.NotFound("User")
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit update password: %w", err)
	}
	return nil
}

func (r *Repo) BumpTokenVersion(ctx context.Context, id int64) error {
	res, err := r.DB.ExecContext(ctx, r.DB.Rebind(`
		UPDATE users
		SET token_version = token_version + 1
		WHERE id = ?
	`), id)
	if err != nil {
		return fmt.Errorf("bump token version: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("bump token version rows: %w", err)
	}
	if affected == 0 {
		return apperr.NotFound("User")
	}
	return nil
}

// UpdateAvatar stores a new avatar reference and returns the previous one.
func (r *Repo) UpdateAvatar(ctx context.Context, id int64, avatarURL string) (string, error) {
	u, err := r.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	if u == nil {
		return "", apperr.NotFound("User")
	}

	_, err = r.DB.ExecContext(ctx, r.DB.Rebind(`
		UPDATE users
		SET avatar_url = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`), avatarURL, id)
	if err != nil {
		return "", fmt.Errorf("update avatar: %w", err)
	}
	return u.AvatarURL, nil
}
