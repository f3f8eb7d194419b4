package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pilab-dev/reelsync/domain"
	"github.com/rs/zerolog/log"
)

// UserRepository implements domain.UserStore.
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a SQLite-backed UserRepository.
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db.SqlDB}
}

// A NULL parameter keeps the stored column, so only the supplied fields of the
// update are written on conflict.
const upsertUserSQL = `
INSERT INTO users (user_id, name, email, address, phone, image, login_time, logout_time)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(user_id) DO UPDATE SET
    name        = COALESCE(excluded.name, users.name),
    email       = COALESCE(excluded.email, users.email),
    address     = COALESCE(excluded.address, users.address),
    phone       = COALESCE(excluded.phone, users.phone),
    image       = COALESCE(excluded.image, users.image),
    login_time  = COALESCE(excluded.login_time, users.login_time),
    logout_time = COALESCE(excluded.logout_time, users.logout_time)`

func (r *UserRepository) UpsertUser(ctx context.Context, upd domain.UserUpdate) error {
	if strings.TrimSpace(upd.ID) == "" {
		return domain.ErrInvalidUserKey
	}

	var image any
	if upd.Image != nil {
		image = upd.Image.Encode()
	}

	_, err := r.db.ExecContext(ctx, upsertUserSQL,
		upd.ID,
		nullable(upd.Name),
		nullable(upd.Email),
		nullable(upd.Address),
		nullable(upd.Phone),
		image,
		timestampArg(upd.LoginTime),
		timestampArg(upd.LogoutTime),
	)
	if err != nil {
		log.Error().Err(err).Str("user_id", upd.ID).Msg("Failed to upsert user")
		return fmt.Errorf("upsert user: %w", err)
	}

	return nil
}

func (r *UserRepository) GetUser(ctx context.Context, key string) (*domain.User, error) {
	var (
		name, email, address, phone, image sql.NullString
		login, logout                      sql.NullString
	)

	err := r.db.QueryRowContext(ctx,
		`SELECT name, email, address, phone, image, login_time, logout_time
		 FROM users WHERE user_id = ?`, key,
	).Scan(&name, &email, &address, &phone, &image, &login, &logout)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		log.Error().Err(err).Str("user_id", key).Msg("Failed to query user")
		return nil, fmt.Errorf("query user: %w", err)
	}

	return &domain.User{
		ID:         key,
		Name:       name.String,
		Email:      email.String,
		Address:    address.String,
		Phone:      phone.String,
		Image:      domain.DecodeAvatar(image.String),
		LoginTime:  domain.ParseTimestamp(login.String),
		LogoutTime: domain.ParseTimestamp(logout.String),
	}, nil
}

func (r *UserRepository) DeleteUser(ctx context.Context, key string) (int64, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM users WHERE user_id = ?", key)
	if err != nil {
		log.Error().Err(err).Str("user_id", key).Msg("Failed to delete user")
		return 0, fmt.Errorf("delete user: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		log.Error().Err(err).Str("user_id", key).Msg("Failed to count deleted users")
		return 0, fmt.Errorf("rows affected: %w", err)
	}

	return n, nil
}

func nullable(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func timestampArg(t *time.Time) any {
	if t == nil {
		return nil
	}
	return domain.FormatTimestamp(t)
}
