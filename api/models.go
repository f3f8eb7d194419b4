package api

import "github.com/pilab-dev/reelsync/domain"

// Error codes returned in ErrorResponse.Error.
const (
	ErrCodeInvalidRequest = "invalid_request"
	ErrCodeNoActiveUser   = "no_active_user"
	ErrCodeNotFound       = "not_found"
	ErrCodeUnauthorized   = "unauthorized"
	ErrCodeRemoteFailure  = "remote_failure"
	ErrCodeServerError    = "server_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error            string `json:"error" yaml:"error"`
	ErrorDescription string `json:"error_description,omitempty" yaml:"error_description,omitempty"`
}

func NewErrorResponse(code, description string) *ErrorResponse {
	return &ErrorResponse{Error: code, ErrorDescription: description}
}

// LoginRequest signs a user in. Social providers take an access token
// obtained by the UI; "password" takes the account fields directly.
type LoginRequest struct {
	Provider    string `json:"provider" yaml:"provider"`
	AccessToken string `json:"access_token,omitempty" yaml:"access_token,omitempty"`
	AccountID   string `json:"account_id,omitempty" yaml:"account_id,omitempty"`
	DisplayName string `json:"display_name,omitempty" yaml:"display_name,omitempty"`
	Email       string `json:"email,omitempty" yaml:"email,omitempty"`
}

type SessionResponse struct {
	UserKey     string `json:"user_key" yaml:"user_key"`
	SignedIn    bool   `json:"signed_in" yaml:"signed_in"`
	RemoteError string `json:"remote_error,omitempty" yaml:"remote_error,omitempty"`
}

type AddFavoriteRequest struct {
	MovieID string `json:"movie_id" yaml:"movie_id"`
	Poster  string `json:"poster" yaml:"poster"`
	Title   string `json:"title" yaml:"title"`
}

type AddFavoriteResponse struct {
	Added bool `json:"added" yaml:"added"`
}

type RemoveFavoriteResponse struct {
	Removed int64 `json:"removed" yaml:"removed"`
}

type IsFavoriteResponse struct {
	MovieID  string `json:"movie_id" yaml:"movie_id"`
	Favorite bool   `json:"favorite" yaml:"favorite"`
}

type FavoritesResponse struct {
	Favorites []domain.Favorite `json:"favorites" yaml:"favorites"`
}

type LifecycleResponse struct {
	Signal  string `json:"signal" yaml:"signal"` // foreground, background or none
	Visible int    `json:"visible" yaml:"visible"`
}

type SyncResponse struct {
	Outcome string `json:"outcome" yaml:"outcome"`
	Error   string `json:"error,omitempty" yaml:"error,omitempty"`
}

// ProfileResponse carries decrypted phone and address.
type ProfileResponse struct {
	UserKey    string `json:"user_key" yaml:"user_key"`
	Name       string `json:"name" yaml:"name"`
	Email      string `json:"email" yaml:"email"`
	Phone      string `json:"phone,omitempty" yaml:"phone,omitempty"`
	Address    string `json:"address,omitempty" yaml:"address,omitempty"`
	Image      string `json:"image,omitempty" yaml:"image,omitempty"`
	LoginTime  string `json:"login_time,omitempty" yaml:"login_time,omitempty"`
	LogoutTime string `json:"logout_time,omitempty" yaml:"logout_time,omitempty"`
}

// ProfileFromUser renders u; the image is a URL or inline base64.
func ProfileFromUser(u *domain.User) ProfileResponse {
	return ProfileResponse{
		UserKey:    u.ID,
		Name:       u.Name,
		Email:      u.Email,
		Phone:      u.Phone,
		Address:    u.Address,
		Image:      u.Image.Encode(),
		LoginTime:  domain.FormatTimestamp(u.LoginTime),
		LogoutTime: domain.FormatTimestamp(u.LogoutTime),
	}
}

// ProfilePatch is a partial profile edit; absent fields are untouched.
type ProfilePatch struct {
	Name    *string `json:"name,omitempty" yaml:"name,omitempty"`
	Email   *string `json:"email,omitempty" yaml:"email,omitempty"`
	Phone   *string `json:"phone,omitempty" yaml:"phone,omitempty"`
	Address *string `json:"address,omitempty" yaml:"address,omitempty"`
	Image   *string `json:"image,omitempty" yaml:"image,omitempty"` // URL or base64 bytes
}
