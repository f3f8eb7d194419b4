package domain

import "github.com/google/uuid"

// Favorite is a (user, movie) membership with denormalized display fields.
// Attributes are immutable; favoriting again is a no-op.
type Favorite struct {
	UserID  string `json:"user_id" yaml:"user_id"`
	MovieID string `json:"movie_id" yaml:"movie_id"`
	Poster  string `json:"poster" yaml:"poster"`
	Title   string `json:"title" yaml:"title"`
}

// FavoriteEventKind distinguishes additions from removals.
type FavoriteEventKind string

const (
	FavoriteAdded   FavoriteEventKind = "added"
	FavoriteRemoved FavoriteEventKind = "removed"
)

// FavoriteEvent is emitted after a local favorites mutation commits. For
// removals only UserID and MovieID of Favorite are set.
type FavoriteEvent struct {
	ID       string
	Kind     FavoriteEventKind
	Favorite Favorite
}

// NewFavoriteEvent stamps a fresh event id.
func NewFavoriteEvent(kind FavoriteEventKind, fav Favorite) FavoriteEvent {
	return FavoriteEvent{ID: uuid.NewString(), Kind: kind, Favorite: fav}
}
