package domain

import (
	"strings"
	"time"
)

// DefaultDisplayName is used when an identity provider supplies no display name.
const DefaultDisplayName = "Anonymous"

// User is the on-device profile record. ID is the stable user key and never
// changes once the row exists.
type User struct {
	ID         string
	Name       string
	Email      string
	Address    string // ciphertext, see internal/crypto
	Phone      string // ciphertext, see internal/crypto
	Image      Avatar
	LoginTime  *time.Time
	LogoutTime *time.Time
}

// UserUpdate is a field-level upsert. A nil field means "leave unchanged"; a
// pointer to the zero value clears the column.
type UserUpdate struct {
	ID         string
	Name       *string
	Email      *string
	Address    *string
	Phone      *string
	Image      *Avatar
	LoginTime  *time.Time
	LogoutTime *time.Time
}

// IsEmpty reports whether the update carries no field besides the key.
func (u UserUpdate) IsEmpty() bool {
	return u.Name == nil && u.Email == nil && u.Address == nil && u.Phone == nil &&
		u.Image == nil && u.LoginTime == nil && u.LogoutTime == nil
}

// FullUpdate returns an update that writes every field of u.
func (u *User) FullUpdate() UserUpdate {
	upd := UserUpdate{
		ID:         u.ID,
		Name:       Ptr(u.Name),
		Email:      Ptr(u.Email),
		Address:    Ptr(u.Address),
		Phone:      Ptr(u.Phone),
		Image:      Ptr(u.Image),
		LoginTime:  u.LoginTime,
		LogoutTime: u.LogoutTime,
	}
	return upd
}

// Identity is what an authentication provider hands over after a successful
// sign-in. It seeds a brand-new local user and fills gaps in a known one.
type Identity struct {
	UserKey     string
	Provider    string // "google", "facebook", "password"
	DisplayName string
	Email       string
	AvatarURL   string
}

// Provider names as reported by internal/identity.
const (
	ProviderGoogle   = "google"
	ProviderFacebook = "facebook"
	ProviderPassword = "password"
)

// SeedUser builds the first local record for an identity. Social providers
// contribute their display name and photo; password accounts only ever carry a
// display name if one was set at sign-up.
func SeedUser(id Identity, now time.Time) *User {
	name := strings.TrimSpace(id.DisplayName)
	if name == "" {
		name = DefaultDisplayName
	}

	u := &User{
		ID:        id.UserKey,
		Name:      name,
		Email:     strings.TrimSpace(id.Email),
		LoginTime: Ptr(Truncate(now)),
	}

	switch id.Provider {
	case ProviderGoogle, ProviderFacebook:
		if id.AvatarURL != "" {
			u.Image = URLAvatar(id.AvatarURL)
		}
	}

	return u
}

// FillFromIdentity returns an update setting the name, email and (for
// Google and Facebook) avatar of u from id where u has none. The bool is
// false when nothing needs filling.
func FillFromIdentity(u *User, id Identity) (UserUpdate, bool) {
	upd := UserUpdate{ID: u.ID}

	if name := strings.TrimSpace(id.DisplayName); u.Name == "" && name != "" {
		upd.Name = &name
	}
	if email := strings.TrimSpace(id.Email); u.Email == "" && email != "" {
		upd.Email = &email
	}
	switch id.Provider {
	case ProviderGoogle, ProviderFacebook:
		if u.Image.IsZero() && id.AvatarURL != "" {
			upd.Image = Ptr(URLAvatar(id.AvatarURL))
		}
	}

	return upd, !upd.IsEmpty()
}

// ProfileFields is the sparse set of scalar fields sent in a remote merge
// write. Empty strings are omitted from the write.
type ProfileFields struct {
	Name    string
	Email   string
	Address string
	Phone   string
	Image   string
}

// IsEmpty reports whether no field would be written.
func (p ProfileFields) IsEmpty() bool {
	return p == ProfileFields{}
}

// ProfileFieldsForPush collects the non-empty scalar fields of u.
func ProfileFieldsForPush(u *User) ProfileFields {
	return ProfileFields{
		Name:    u.Name,
		Email:   u.Email,
		Address: u.Address,
		Phone:   u.Phone,
		Image:   u.Image.Encode(),
	}
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}
