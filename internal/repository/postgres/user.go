package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/utafrali/videohub/internal/domain"
	"github.com/utafrali/videohub/pkg/database"
	apperrors "github.com/utafrali/videohub/pkg/errors"
)

const (
	profileColumns = `id, username, email, full_name, avatar, cover_image, created_at, updated_at`
	userColumns    = `id, username, email, full_name, avatar, cover_image, password_hash, refresh_token, created_at, updated_at`
)

// UserRepository implements repository.UserRepository on PostgreSQL.
type UserRepository struct {
	db     database.DBTX
	tracer *database.QueryTracer
	now    func() time.Time
}

// NewUserRepository creates a repository over db. tracer may be nil.
func NewUserRepository(db database.DBTX, tracer *database.QueryTracer) *UserRepository {
	return &UserRepository{db: db, tracer: tracer, now: time.Now}
}

// Create inserts a new user.
func (r *UserRepository) Create(ctx context.Context, u *domain.User) (err error) {
	const query = `
		INSERT INTO users (id, username, email, full_name, avatar, cover_image, password_hash, refresh_token, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	ctx, end := r.tracer.Trace(ctx, "CreateUser", query)
	defer func() { end(err) }()

	_, err = r.db.Exec(ctx, query,
		u.ID,
		domain.NormalizeUsername(u.Username),
		domain.NormalizeEmail(u.Email),
		u.FullName,
		u.Avatar,
		u.CoverImage,
		u.PasswordHash,
		u.RefreshToken,
		u.CreatedAt,
		u.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert user %s: %w", u.Username, apperrors.ErrConflict)
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// FindByID returns the full user record.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.queryUser(ctx, "FindUserByID", query, id)
}

// FindByIdentifier returns the user matching username or email.
func (r *UserRepository) FindByIdentifier(ctx context.Context, username, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users
		WHERE ($1 <> '' AND LOWER(username) = $1) OR ($2 <> '' AND LOWER(email) = $2)
		LIMIT 1`
	return r.queryUser(ctx, "FindUserByIdentifier", query,
		domain.NormalizeUsername(username), domain.NormalizeEmail(email))
}

// FindProfileByID returns the user without credential columns.
func (r *UserRepository) FindProfileByID(ctx context.Context, id string) (u *domain.User, err error) {
	query := `SELECT ` + profileColumns + ` FROM users WHERE id = $1`

	ctx, end := r.tracer.Trace(ctx, "FindProfileByID", query)
	defer func() { end(ignoreNotFound(err)) }()

	u, err = scanProfile(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, notFoundOr(err, "find profile %s", id)
	}
	return u, nil
}

// UpdateByID applies the non-nil fields of patch and returns the profile.
func (r *UserRepository) UpdateByID(ctx context.Context, id string, patch domain.UserPatch) (u *domain.User, err error) {
	query := `
		UPDATE users
		SET full_name = COALESCE($2, full_name),
		    email = COALESCE($3, email),
		    avatar = COALESCE($4, avatar),
		    cover_image = COALESCE($5, cover_image),
		    updated_at = $6
		WHERE id = $1
		RETURNING ` + profileColumns

	var email *string
	if patch.Email != nil {
		e := domain.NormalizeEmail(*patch.Email)
		email = &e
	}
	var fullName *string
	if patch.FullName != nil {
		n := strings.TrimSpace(*patch.FullName)
		fullName = &n
	}

	ctx, end := r.tracer.Trace(ctx, "UpdateUserByID", query)
	defer func() { end(ignoreNotFound(err)) }()

	u, err = scanProfile(r.db.QueryRow(ctx, query,
		id, fullName, email, patch.Avatar, patch.CoverImage, r.now().UTC(),
	))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("update user %s: %w", id, apperrors.ErrConflict)
		}
		return nil, notFoundOr(err, "update user %s", id)
	}
	return u, nil
}

// Save persists the password digest and refresh token of u.
func (r *UserRepository) Save(ctx context.Context, u *domain.User) (err error) {
	const query = `
		UPDATE users
		SET password_hash = $2, refresh_token = $3, updated_at = $4
		WHERE id = $1`

	ctx, end := r.tracer.Trace(ctx, "SaveUserCredentials", query)
	defer func() { end(ignoreNotFound(err)) }()

	u.UpdatedAt = r.now().UTC()
	ct, err := r.db.Exec(ctx, query, u.ID, u.PasswordHash, u.RefreshToken, u.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save user %s: %w", u.ID, err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("save user %s: %w", u.ID, apperrors.ErrNotFound)
	}
	return nil
}

// ClearRefreshToken sets refresh_token to NULL.
func (r *UserRepository) ClearRefreshToken(ctx context.Context, id string) (err error) {
	const query = `UPDATE users SET refresh_token = NULL, updated_at = $2 WHERE id = $1`

	ctx, end := r.tracer.Trace(ctx, "ClearRefreshToken", query)
	defer func() { end(ignoreNotFound(err)) }()

	ct, err := r.db.Exec(ctx, query, id, r.now().UTC())
	if err != nil {
		return fmt.Errorf("clear refresh token %s: %w", id, err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("clear refresh token %s: %w", id, apperrors.ErrNotFound)
	}
	return nil
}

func (r *UserRepository) queryUser(ctx context.Context, op, query string, args ...any) (u *domain.User, err error) {
	ctx, end := r.tracer.Trace(ctx, op, query)
	defer func() { end(ignoreNotFound(err)) }()

	u = &domain.User{}
	err = r.db.QueryRow(ctx, query, args...).Scan(
		&u.ID, &u.Username, &u.Email, &u.FullName, &u.Avatar, &u.CoverImage,
		&u.PasswordHash, &u.RefreshToken, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, notFoundOr(err, "%s", op)
	}
	return u, nil
}

func scanProfile(row pgx.Row) (*domain.User, error) {
	u := &domain.User{}
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.FullName, &u.Avatar, &u.CoverImage, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	return u, nil
}

func notFoundOr(err error, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", msg, apperrors.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// ignoreNotFound keeps expected misses from marking spans as failed.
func ignoreNotFound(err error) error {
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil
	}
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == database.UniqueViolation
}
