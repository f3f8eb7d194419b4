// Package memstore is an in-process domain.RemoteStore with the same merge
// semantics as the MongoDB implementation. It backs offline mode and tests.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pilab-dev/reelsync/domain"
)

// Op names a RemoteStore method for failure injection.
type Op string

const (
	OpReadUser       Op = "ReadUserDocument"
	OpEnsureUser     Op = "EnsureUserDocument"
	OpMergeFields    Op = "MergeUserFields"
	OpSessionLog     Op = "AppendOrUpdateSessionLog"
	OpListFavorites  Op = "ListFavoriteDocuments"
	OpUpsertFavorite Op = "UpsertFavoriteDocument"
	OpDeleteFavorite Op = "DeleteFavoriteDocument"
)

// Store is safe for concurrent use.
type Store struct {
	mu        sync.Mutex
	users     map[string]*domain.RemoteUser
	favorites map[string]map[string]domain.Favorite
	failures  map[Op][]error
	calls     map[Op]int
}

// New returns an empty store.
func New() *Store {
	return &Store{
		users:     make(map[string]*domain.RemoteUser),
		favorites: make(map[string]map[string]domain.Favorite),
		failures:  make(map[Op][]error),
		calls:     make(map[Op]int),
	}
}

// FailNext makes the next call to op return err. Calls queue up.
func (s *Store) FailNext(op Op, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = append(s.failures[op], err)
}

// Calls reports how many times op was invoked, failed calls included.
func (s *Store) Calls(op Op) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

// must be called with mu held
func (s *Store) enter(op Op) error {
	s.calls[op]++
	queued := s.failures[op]
	if len(queued) == 0 {
		return nil
	}
	s.failures[op] = queued[1:]
	return queued[0]
}

func (s *Store) ReadUserDocument(_ context.Context, userKey string) (*domain.RemoteUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(OpReadUser); err != nil {
		return nil, err
	}

	u, ok := s.users[userKey]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	cp.ActivityLog = append([]domain.SessionLogEntry(nil), u.ActivityLog...)
	return &cp, nil
}

func (s *Store) EnsureUserDocument(_ context.Context, userKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(OpEnsureUser); err != nil {
		return err
	}

	s.user(userKey)
	return nil
}

func (s *Store) MergeUserFields(_ context.Context, userKey string, fields domain.ProfileFields) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(OpMergeFields); err != nil {
		return err
	}

	if fields.IsEmpty() {
		return nil
	}
	merge(s.user(userKey), fields)
	return nil
}

func (s *Store) AppendOrUpdateSessionLog(
	_ context.Context,
	userKey string,
	login time.Time,
	logout *time.Time,
	extra domain.ProfileFields,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(OpSessionLog); err != nil {
		return err
	}

	u := s.user(userKey)
	u.ActivityLog, _ = domain.MergeSessionLog(u.ActivityLog, login, logout)
	merge(u, extra)
	return nil
}

// ListFavoriteDocuments returns favorites sorted by movie key.
func (s *Store) ListFavoriteDocuments(_ context.Context, userKey string) ([]domain.Favorite, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(OpListFavorites); err != nil {
		return nil, err
	}

	favs := make([]domain.Favorite, 0, len(s.favorites[userKey]))
	for _, f := range s.favorites[userKey] {
		favs = append(favs, f)
	}
	sort.Slice(favs, func(i, j int) bool { return favs[i].MovieID < favs[j].MovieID })
	return favs, nil
}

func (s *Store) UpsertFavoriteDocument(_ context.Context, fav domain.Favorite) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(OpUpsertFavorite); err != nil {
		return err
	}

	byMovie, ok := s.favorites[fav.UserID]
	if !ok {
		byMovie = make(map[string]domain.Favorite)
		s.favorites[fav.UserID] = byMovie
	}
	byMovie[fav.MovieID] = fav
	return nil
}

func (s *Store) DeleteFavoriteDocument(_ context.Context, userKey, movieKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(OpDeleteFavorite); err != nil {
		return err
	}

	delete(s.favorites[userKey], movieKey)
	return nil
}

// must be called with mu held
func (s *Store) user(userKey string) *domain.RemoteUser {
	u, ok := s.users[userKey]
	if !ok {
		u = &domain.RemoteUser{UserID: userKey}
		s.users[userKey] = u
	}
	return u
}

func merge(u *domain.RemoteUser, f domain.ProfileFields) {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&u.Name, f.Name)
	set(&u.Email, f.Email)
	set(&u.Address, f.Address)
	set(&u.Phone, f.Phone)
	set(&u.Image, f.Image)
}

var _ domain.RemoteStore = (*Store)(nil)
