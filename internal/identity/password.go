package identity

import (
	"strings"

	"github.com/pilab-dev/reelsync/domain"
)

// PasswordIdentity builds the identity of an email/password account. The auth
// layer owns the account id; no photo is ever attached.
func PasswordIdentity(accountID, displayName, email string) (*domain.Identity, error) {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return nil, ErrMissingSubject
	}

	return &domain.Identity{
		UserKey:     UserKey(domain.ProviderPassword, accountID),
		Provider:    domain.ProviderPassword,
		DisplayName: strings.TrimSpace(displayName),
		Email:       strings.TrimSpace(email),
	}, nil
}
