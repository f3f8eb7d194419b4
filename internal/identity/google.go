package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/pilab-dev/reelsync/domain"
	"golang.org/x/oauth2"
	googleOAuth2 "golang.org/x/oauth2/google"
)

var GoogleUserInfoEndpoint = "https://www.googleapis.com/oauth2/v3/userinfo"

// GoogleProvider reads the OpenID userinfo document.
type GoogleProvider struct {
	baseProvider
}

// NewGoogleProvider adds the profile and email scopes when missing.
func NewGoogleProvider(cfg OAuthConfig) *GoogleProvider {
	cfg.Scopes = withScopes(cfg.Scopes, "openid",
		"https://www.googleapis.com/auth/userinfo.profile",
		"https://www.googleapis.com/auth/userinfo.email")

	return &GoogleProvider{baseProvider{cfg: cfg, endpoint: googleOAuth2.Endpoint}}
}

func (g *GoogleProvider) Name() string { return domain.ProviderGoogle }

func (g *GoogleProvider) Identity(ctx context.Context, token *oauth2.Token) (*domain.Identity, error) {
	resp, err := g.httpClient(ctx, token).Get(GoogleUserInfoEndpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: google: %v", ErrFetchUserInfoFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("google: read user info body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: google: status %d, body: %s", ErrFetchUserInfoFailed, resp.StatusCode, string(body))
	}

	var info struct {
		Sub     string `json:"sub"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
		Email   string `json:"email"`
	}
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("google: unmarshal user info: %w", err)
	}
	if info.Sub == "" {
		return nil, ErrMissingSubject
	}

	return &domain.Identity{
		UserKey:     UserKey(domain.ProviderGoogle, info.Sub),
		Provider:    domain.ProviderGoogle,
		DisplayName: info.Name,
		Email:       info.Email,
		AvatarURL:   info.Picture,
	}, nil
}

func withScopes(scopes []string, required ...string) []string {
	seen := make(map[string]bool, len(scopes)+len(required))
	out := make([]string, 0, len(scopes)+len(required))
	for _, s := range append(append([]string{}, scopes...), required...) {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

var _ Provider = (*GoogleProvider)(nil)
