package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/authgate/authgate/internal/models"
)

const uniqueViolation = "23505"

type Postgres struct {
	db *pgxpool.Pool
}

func NewPostgres(db *pgxpool.Pool) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) Close() {
	s.db.Close()
}

func (s *Postgres) CreateUser(ctx context.Context, u *models.User) (*models.User, error) {
	var out models.User
	err := s.db.QueryRow(ctx,
		`INSERT INTO users (username, email, password_hash, role)
		 VALUES ($1, NULLIF($2, ''), $3, $4)
		 RETURNING id, username, COALESCE(email, ''), password_hash, role, created_at, updated_at`,
		u.Username, u.Email, u.PasswordHash, u.Role,
	).Scan(&out.ID, &out.Username, &out.Email, &out.PasswordHash, &out.Role, &out.CreatedAt, &out.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return &out, nil
}

func (s *Postgres) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.getUser(ctx, "id = $1", id)
}

func (s *Postgres) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.getUser(ctx, "username = $1", username)
}

func (s *Postgres) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getUser(ctx, "email = $1", email)
}

func (s *Postgres) getUser(ctx context.Context, where string, arg any) (*models.User, error) {
	var u models.User
	err := s.db.QueryRow(ctx,
		`SELECT id, username, COALESCE(email, ''), password_hash, role, created_at, updated_at
		 FROM users WHERE `+where, arg,
	).Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

func (s *Postgres) CreateAPIKey(ctx context.Context, k *models.APIKey) (*models.APIKey, error) {
	var out models.APIKey
	err := s.db.QueryRow(ctx,
		`INSERT INTO api_keys (user_id, key_name, api_key, key_hash, expires_at)
		 VALUES ($1, NULLIF($2, ''), $3, $4, $5)
		 RETURNING id, user_id, COALESCE(key_name, ''), api_key, key_hash, is_active, last_used_at, created_at, expires_at`,
		k.UserID, k.KeyName, k.APIKey, k.KeyHash, k.ExpiresAt,
	).Scan(&out.ID, &out.UserID, &out.KeyName, &out.APIKey, &out.KeyHash,
		&out.IsActive, &out.LastUsedAt, &out.CreatedAt, &out.ExpiresAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("create api key: %w", err)
	}
	return &out, nil
}

func (s *Postgres) GetAPIKeyByHash(ctx context.Context, hash string) (*models.APIKey, error) {
	var k models.APIKey
	err := s.db.QueryRow(ctx,
		`SELECT id, user_id, COALESCE(key_name, ''), api_key, key_hash, is_active, last_used_at, created_at, expires_at
		 FROM api_keys WHERE key_hash = $1`, hash,
	).Scan(&k.ID, &k.UserID, &k.KeyName, &k.APIKey, &k.KeyHash,
		&k.IsActive, &k.LastUsedAt, &k.CreatedAt, &k.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get api key: %w", err)
	}
	return &k, nil
}

func (s *Postgres) ListAPIKeysByUser(ctx context.Context, userID uuid.UUID) ([]*models.APIKey, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, user_id, COALESCE(key_name, ''), api_key, key_hash, is_active, last_used_at, created_at, expires_at
		 FROM api_keys WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	defer rows.Close()

	var keys []*models.APIKey
	for rows.Next() {
		var k models.APIKey
		if err := rows.Scan(&k.ID, &k.UserID, &k.KeyName, &k.APIKey, &k.KeyHash,
			&k.IsActive, &k.LastUsedAt, &k.CreatedAt, &k.ExpiresAt); err != nil {
			return nil, fmt.Errorf("scan api key: %w", err)
		}
		keys = append(keys, &k)
	}
	return keys, rows.Err()
}

func (s *Postgres) TouchAPIKey(ctx context.Context, id uuid.UUID, usedAt time.Time) error {
	_, err := s.db.Exec(ctx, "UPDATE api_keys SET last_used_at = $1 WHERE id = $2", usedAt, id)
	if err != nil {
		return fmt.Errorf("touch api key: %w", err)
	}
	return nil
}

func (s *Postgres) DeactivateAPIKey(ctx context.Context, id, userID uuid.UUID) (bool, error) {
	tag, err := s.db.Exec(ctx,
		"UPDATE api_keys SET is_active = FALSE WHERE id = $1 AND user_id = $2", id, userID)
	if err != nil {
		return false, fmt.Errorf("deactivate api key: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Postgres) DeleteAPIKey(ctx context.Context, id, userID uuid.UUID) (bool, error) {
	tag, err := s.db.Exec(ctx,
		"DELETE FROM api_keys WHERE id = $1 AND user_id = $2", id, userID)
	if err != nil {
		return false, fmt.Errorf("delete api key: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Postgres) DeactivateExpiredAPIKeys(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx,
		"UPDATE api_keys SET is_active = FALSE WHERE is_active AND expires_at IS NOT NULL AND expires_at < $1", now)
	if err != nil {
		return 0, fmt.Errorf("deactivate expired api keys: %w", err)
	}
	return tag.RowsAffected(), nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
