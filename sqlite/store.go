package sqlite

import "github.com/pilab-dev/reelsync/domain"

// LocalStore bundles the user and favorite repositories over one database.
type LocalStore struct {
	*UserRepository
	*FavoriteRepository
}

// NewLocalStore returns the device replica backed by db.
func NewLocalStore(db *DB, pub domain.FavoriteEventPublisher) *LocalStore {
	return &LocalStore{
		UserRepository:     NewUserRepository(db),
		FavoriteRepository: NewFavoriteRepository(db, pub),
	}
}

var (
	_ domain.UserStore     = (*UserRepository)(nil)
	_ domain.FavoriteStore = (*FavoriteRepository)(nil)
	_ domain.LocalStore    = (*LocalStore)(nil)
)
