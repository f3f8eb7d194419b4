package domain

import (
	"context"
	"time"
)

// UserStore is the local user table.
type UserStore interface {
	// UpsertUser inserts the row or updates only the non-nil fields of upd.
	UpsertUser(ctx context.Context, upd UserUpdate) error
	// GetUser returns ErrUserNotFound when no row exists.
	GetUser(ctx context.Context, key string) (*User, error)
	// DeleteUser removes the user and, by cascade, its favorites.
	DeleteUser(ctx context.Context, key string) (int64, error)
}

// FavoriteStore is the local favorites table.
type FavoriteStore interface {
	// AddFavorite returns ErrUserNotFound if the owner is missing and
	// ErrFavoriteExists if the pair is already present.
	AddFavorite(ctx context.Context, fav Favorite) error
	// RemoveFavorite returns the number of rows deleted.
	RemoveFavorite(ctx context.Context, userKey, movieKey string) (int64, error)
	// ListFavorites makes no ordering promise to callers.
	ListFavorites(ctx context.Context, userKey string) ([]Favorite, error)
	IsFavorite(ctx context.Context, userKey, movieKey string) (bool, error)
}

// LocalStore is the per-device relational replica.
type LocalStore interface {
	UserStore
	FavoriteStore
}

// FavoriteEventPublisher receives committed local favorites mutations.
type FavoriteEventPublisher interface {
	Publish(evt FavoriteEvent)
}

// RemoteStore is the per-user cloud document plus its favorites
// sub-collection. Every write is a merge; documents are never replaced.
type RemoteStore interface {
	// ReadUserDocument returns ErrNotFound when the document is absent.
	ReadUserDocument(ctx context.Context, userKey string) (*RemoteUser, error)
	// EnsureUserDocument creates an empty document if none exists.
	EnsureUserDocument(ctx context.Context, userKey string) error
	// MergeUserFields writes only the non-empty fields.
	MergeUserFields(ctx context.Context, userKey string, fields ProfileFields) error
	// AppendOrUpdateSessionLog applies MergeSessionLog to the stored log and
	// merges extra in the same atomic write.
	AppendOrUpdateSessionLog(ctx context.Context, userKey string, login time.Time, logout *time.Time, extra ProfileFields) error

	ListFavoriteDocuments(ctx context.Context, userKey string) ([]Favorite, error)
	UpsertFavoriteDocument(ctx context.Context, fav Favorite) error
	DeleteFavoriteDocument(ctx context.Context, userKey, movieKey string) error
}
