package identity

import "errors"

var (
	ErrProviderNotFound    = errors.New("identity provider not found")
	ErrFetchUserInfoFailed = errors.New("failed to fetch user info from provider")
	ErrMissingSubject      = errors.New("provider returned no subject id")
)
