package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"aignite/internal/models"
)

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateEmail indicates a unique-constraint violation on users.email.
	ErrDuplicateEmail = errors.New("email already registered")
)

// uniqueViolation is the PostgreSQL error code for unique-constraint failures.
const uniqueViolation = "23505"

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	UpdateProfile(ctx context.Context, id int64, name *string, prefs *models.PreferencesUpdate) (*models.User, error)
}

type userRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewUserRepository(db *sqlx.DB, logger *zap.Logger) UserRepository {
	return &userRepository{db: db, logger: logger}
}

// Create inserts the user and fills in its generated fields. Email
// uniqueness is enforced by the database so concurrent registrations
// cannot race past the check.
func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	query := `INSERT INTO users (email, name, password_hash, preferences)
	          VALUES ($1, $2, $3, $4)
	          RETURNING id, created_at, updated_at`
	err := r.db.QueryRowxContext(ctx, query, user.Email, user.Name, user.PasswordHash, user.Preferences).
		StructScan(user)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return ErrDuplicateEmail
		}
		return err
	}
	return nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	query := `SELECT id, email, name, password_hash, preferences, created_at, updated_at
	          FROM users WHERE email = $1`
	if err := r.db.GetContext(ctx, &user, query, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	query := `SELECT id, email, name, password_hash, preferences, created_at, updated_at
	          FROM users WHERE id = $1`
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// UpdateProfile applies a partial profile change in a single statement.
// The preferences patch merges into the stored JSONB, so concurrent updates
// touching different keys cannot overwrite each other.
func (r *userRepository) UpdateProfile(ctx context.Context, id int64, name *string, prefs *models.PreferencesUpdate) (*models.User, error) {
	patch := []byte("{}")
	if prefs != nil {
		var err error
		if patch, err = json.Marshal(prefs); err != nil {
			return nil, err
		}
	}

	var user models.User
	query := `UPDATE users
	          SET name = COALESCE($2, name),
	              preferences = preferences || $3::jsonb,
	              updated_at = now()
	          WHERE id = $1
	          RETURNING id, email, name, password_hash, preferences, created_at, updated_at`
	err := r.db.QueryRowxContext(ctx, query, id, name, patch).StructScan(&user)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}
