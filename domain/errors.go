package domain

import "errors"

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrFavoriteExists   = errors.New("movie is already a favorite")
	ErrNotFound         = errors.New("document not found")
	ErrInvalidUserKey   = errors.New("user key is empty")
	ErrNoFieldsToUpdate = errors.New("no fields to update")
)

// IsIntegrityError reports whether err is a local referential/uniqueness
// rejection rather than a storage failure.
func IsIntegrityError(err error) bool {
	return errors.Is(err, ErrUserNotFound) || errors.Is(err, ErrFavoriteExists)
}
