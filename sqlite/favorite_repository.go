package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/pilab-dev/reelsync/domain"
	"github.com/rs/zerolog/log"
)

// FavoriteRepository implements domain.FavoriteStore. Committed mutations are
// handed to the publisher after the write succeeds.
type FavoriteRepository struct {
	db        *sql.DB
	publisher domain.FavoriteEventPublisher
}

// NewFavoriteRepository creates a SQLite-backed FavoriteRepository. pub may be
// nil, in which case no events are emitted.
func NewFavoriteRepository(db *DB, pub domain.FavoriteEventPublisher) *FavoriteRepository {
	return &FavoriteRepository{db: db.SqlDB, publisher: pub}
}

func (r *FavoriteRepository) AddFavorite(ctx context.Context, fav domain.Favorite) error {
	if err := r.insertFavorite(ctx, fav); err != nil {
		return err
	}

	r.publish(domain.FavoriteAdded, fav)
	return nil
}

func (r *FavoriteRepository) insertFavorite(ctx context.Context, fav domain.Favorite) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		log.Error().Err(err).Str("user_id", fav.UserID).Msg("Failed to begin favorite transaction")
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var exists int
	err = tx.QueryRowContext(ctx, "SELECT 1 FROM users WHERE user_id = ?", fav.UserID).Scan(&exists)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrUserNotFound
		}
		log.Error().Err(err).Str("user_id", fav.UserID).Msg("Failed to check favorite owner")
		return fmt.Errorf("check owner: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO favorites (user_id, movie_id, poster, title) VALUES (?, ?, ?, ?)`,
		fav.UserID, fav.MovieID, fav.Poster, fav.Title,
	)
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return domain.ErrFavoriteExists
		case isForeignKeyViolation(err):
			return domain.ErrUserNotFound
		}
		log.Error().Err(err).
			Str("user_id", fav.UserID).
			Str("movie_id", fav.MovieID).
			Msg("Failed to insert favorite")
		return fmt.Errorf("insert favorite: %w", err)
	}

	if err := tx.Commit(); err != nil {
		log.Error().Err(err).Str("user_id", fav.UserID).Str("movie_id", fav.MovieID).Msg("Failed to commit favorite")
		return fmt.Errorf("commit favorite: %w", err)
	}

	return nil
}

func (r *FavoriteRepository) RemoveFavorite(ctx context.Context, userKey, movieKey string) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM favorites WHERE user_id = ? AND movie_id = ?", userKey, movieKey)
	if err != nil {
		log.Error().Err(err).
			Str("user_id", userKey).
			Str("movie_id", movieKey).
			Msg("Failed to delete favorite")
		return 0, fmt.Errorf("delete favorite: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		log.Error().Err(err).Str("user_id", userKey).Str("movie_id", movieKey).Msg("Failed to count deleted favorites")
		return 0, fmt.Errorf("rows affected: %w", err)
	}

	if n > 0 {
		r.publish(domain.FavoriteRemoved, domain.Favorite{UserID: userKey, MovieID: movieKey})
	}

	return n, nil
}

// ListFavorites returns the user's favorites in insertion order.
func (r *FavoriteRepository) ListFavorites(ctx context.Context, userKey string) ([]domain.Favorite, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT user_id, movie_id, poster, title FROM favorites
		 WHERE user_id = ? ORDER BY rowid`, userKey)
	if err != nil {
		log.Error().Err(err).Str("user_id", userKey).Msg("Failed to list favorites")
		return nil, fmt.Errorf("query favorites: %w", err)
	}
	defer rows.Close()

	favorites := make([]domain.Favorite, 0)
	for rows.Next() {
		var f domain.Favorite
		if err := rows.Scan(&f.UserID, &f.MovieID, &f.Poster, &f.Title); err != nil {
			log.Error().Err(err).Str("user_id", userKey).Msg("Failed to scan favorite")
			return nil, fmt.Errorf("scan favorite: %w", err)
		}
		favorites = append(favorites, f)
	}
	if err := rows.Err(); err != nil {
		log.Error().Err(err).Str("user_id", userKey).Msg("Failed to iterate favorites")
		return nil, fmt.Errorf("iterate favorites: %w", err)
	}

	return favorites, nil
}

func (r *FavoriteRepository) IsFavorite(ctx context.Context, userKey, movieKey string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		"SELECT 1 FROM favorites WHERE user_id = ? AND movie_id = ?", userKey, movieKey,
	).Scan(&one)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		log.Error().Err(err).Str("user_id", userKey).Str("movie_id", movieKey).Msg("Failed to check favorite")
		return false, fmt.Errorf("query favorite: %w", err)
	}
	return true, nil
}

func (r *FavoriteRepository) publish(kind domain.FavoriteEventKind, fav domain.Favorite) {
	if r.publisher == nil {
		return
	}
	r.publisher.Publish(domain.NewFavoriteEvent(kind, fav))
}
