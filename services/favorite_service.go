package services

import (
	"context"

	"github.com/pilab-dev/reelsync/domain"
	"github.com/pilab-dev/reelsync/log"
)

// FavoriteService is the synchronous favorites API for the UI layer. Integrity
// rejections (unknown user, duplicate pair) come back as false, not errors.
type FavoriteService struct {
	store  domain.FavoriteStore
	logger log.Logger
}

func NewFavoriteService(store domain.FavoriteStore, logger log.Logger) *FavoriteService {
	return &FavoriteService{store: store, logger: logger}
}

// AddFavorite reports whether a new row was inserted.
func (s *FavoriteService) AddFavorite(ctx context.Context, fav domain.Favorite) (bool, error) {
	err := s.store.AddFavorite(ctx, fav)
	if err != nil {
		if domain.IsIntegrityError(err) {
			s.logger.Debug(ctx, "Favorite not added", log.Fields{
				"user_id":  fav.UserID,
				"movie_id": fav.MovieID,
				"reason":   err.Error(),
			})
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// RemoveFavorite returns the number of rows deleted, 0 when the pair was absent.
func (s *FavoriteService) RemoveFavorite(ctx context.Context, userKey, movieKey string) (int64, error) {
	return s.store.RemoveFavorite(ctx, userKey, movieKey)
}

func (s *FavoriteService) IsFavorite(ctx context.Context, userKey, movieKey string) (bool, error) {
	return s.store.IsFavorite(ctx, userKey, movieKey)
}

func (s *FavoriteService) ListFavorites(ctx context.Context, userKey string) ([]domain.Favorite, error) {
	return s.store.ListFavorites(ctx, userKey)
}
