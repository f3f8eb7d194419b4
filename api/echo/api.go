//nolint:varnamelen
package echo

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pilab-dev/reelsync/api"
	"github.com/pilab-dev/reelsync/domain"
	"github.com/pilab-dev/reelsync/internal/identity"
	"github.com/pilab-dev/reelsync/internal/lifecycle"
	"github.com/pilab-dev/reelsync/services"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// SyncAPI exposes the session engine to the UI layer over local HTTP.
type SyncAPI struct {
	session    *services.Session
	identities *identity.Registry
	gatherer   prometheus.Gatherer
	screens    *lifecycle.Tracker
}

// NewSyncAPI initializes the API. A nil gatherer serves the default registry.
func NewSyncAPI(session *services.Session, identities *identity.Registry, gatherer prometheus.Gatherer) *SyncAPI {
	if identities == nil {
		identities = identity.NewRegistry()
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	a := &SyncAPI{
		session:    session,
		identities: identities,
		gatherer:   gatherer,
	}
	a.screens = lifecycle.NewTracker(lifecycle.HandlerFuncs{
		Foreground: func(ctx context.Context) {
			logFailure(session.OnForeground(ctx), session.UserKey(), "Foreground session log merge failed")
		},
		Background: func(ctx context.Context) {
			logFailure(session.OnBackground(ctx), session.UserKey(), "Background session log merge failed")
		},
	})
	return a
}

// RegisterRoutes registers the sync routes.
func (a *SyncAPI) RegisterRoutes(e *echo.Echo) {
	e.POST("/session/login", a.LoginHandler)
	e.POST("/session/logout", a.LogoutHandler)

	e.GET("/favorites", a.ListFavoritesHandler)
	e.POST("/favorites", a.AddFavoriteHandler)
	e.GET("/favorites/:movieID", a.IsFavoriteHandler)
	e.DELETE("/favorites/:movieID", a.RemoveFavoriteHandler)

	e.POST("/lifecycle/foreground", a.ForegroundHandler)
	e.POST("/lifecycle/background", a.BackgroundHandler)
	e.POST("/lifecycle/screens/started", a.ScreenStartedHandler)
	e.POST("/lifecycle/screens/stopped", a.ScreenStoppedHandler)
	e.POST("/sync/startup", a.StartupSyncHandler)

	e.GET("/profile", a.GetProfileHandler)
	e.PATCH("/profile", a.PatchProfileHandler)

	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(a.gatherer, promhttp.HandlerOpts{})))
}

// LoginHandler resolves the identity and makes it the active user. Startup
// reconciliation is kicked off in the background.
func (a *SyncAPI) LoginHandler(c echo.Context) error {
	var req api.LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, api.NewErrorResponse(api.ErrCodeInvalidRequest, "Malformed login request"))
	}

	ctx := c.Request().Context()

	var (
		id  *domain.Identity
		err error
	)
	if req.Provider == domain.ProviderPassword {
		id, err = identity.PasswordIdentity(req.AccountID, req.DisplayName, req.Email)
	} else {
		var p identity.Provider
		if p, err = a.identities.Get(req.Provider); err != nil {
			return c.JSON(http.StatusBadRequest, api.NewErrorResponse(api.ErrCodeInvalidRequest, err.Error()))
		}
		if req.AccessToken == "" {
			return c.JSON(http.StatusBadRequest, api.NewErrorResponse(api.ErrCodeInvalidRequest, "access_token is required"))
		}
		id, err = p.Identity(ctx, &oauth2.Token{AccessToken: req.AccessToken})
	}
	if err != nil {
		log.Warn().Err(err).Str("provider", req.Provider).Msg("Identity resolution failed")
		return c.JSON(http.StatusUnauthorized, api.NewErrorResponse(api.ErrCodeUnauthorized, "Could not resolve identity"))
	}

	if err := a.session.Login(ctx, *id); err != nil {
		log.Error().Err(err).Str("user_id", id.UserKey).Msg("Login failed")
		return c.JSON(http.StatusInternalServerError, api.NewErrorResponse(api.ErrCodeServerError, "Login failed"))
	}

	logFailure(a.session.SyncAtStartup(ctx), id.UserKey, "Startup sync after login failed")

	return c.JSON(http.StatusOK, api.SessionResponse{UserKey: id.UserKey, SignedIn: true})
}

// LogoutHandler signs out. A failed session log merge is reported but the
// user is signed out regardless.
func (a *SyncAPI) LogoutHandler(c echo.Context) error {
	userKey := a.session.UserKey()

	err := a.session.Logout(c.Request().Context())
	switch {
	case errors.Is(err, services.ErrNoActiveUser):
		return noActiveUser(c)
	case err != nil:
		log.Warn().Err(err).Str("user_id", userKey).Msg("Signed out with unsynced session log")
		return c.JSON(http.StatusOK, api.SessionResponse{UserKey: userKey, RemoteError: err.Error()})
	}

	return c.JSON(http.StatusOK, api.SessionResponse{UserKey: userKey})
}

func (a *SyncAPI) ListFavoritesHandler(c echo.Context) error {
	userKey := a.session.UserKey()
	if userKey == "" {
		return noActiveUser(c)
	}

	favs, err := a.session.Favorites().ListFavorites(c.Request().Context(), userKey)
	if err != nil {
		log.Error().Err(err).Str("user_id", userKey).Msg("Failed to list favorites")
		return c.JSON(http.StatusInternalServerError, api.NewErrorResponse(api.ErrCodeServerError, "Failed to list favorites"))
	}

	return c.JSON(http.StatusOK, api.FavoritesResponse{Favorites: favs})
}

// AddFavoriteHandler answers 201 for a new favorite and 200 when the movie
// was already a favorite.
func (a *SyncAPI) AddFavoriteHandler(c echo.Context) error {
	userKey := a.session.UserKey()
	if userKey == "" {
		return noActiveUser(c)
	}

	var req api.AddFavoriteRequest
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.MovieID) == "" {
		return c.JSON(http.StatusBadRequest, api.NewErrorResponse(api.ErrCodeInvalidRequest, "movie_id is required"))
	}

	added, err := a.session.Favorites().AddFavorite(c.Request().Context(), domain.Favorite{
		UserID:  userKey,
		MovieID: req.MovieID,
		Poster:  req.Poster,
		Title:   req.Title,
	})
	if err != nil {
		log.Error().Err(err).Str("user_id", userKey).Str("movie_id", req.MovieID).Msg("Failed to add favorite")
		return c.JSON(http.StatusInternalServerError, api.NewErrorResponse(api.ErrCodeServerError, "Failed to add favorite"))
	}

	status := http.StatusOK
	if added {
		status = http.StatusCreated
	}
	return c.JSON(status, api.AddFavoriteResponse{Added: added})
}

func (a *SyncAPI) IsFavoriteHandler(c echo.Context) error {
	userKey := a.session.UserKey()
	if userKey == "" {
		return noActiveUser(c)
	}

	movieID := c.Param("movieID")
	ok, err := a.session.Favorites().IsFavorite(c.Request().Context(), userKey, movieID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userKey).Msg("Failed to check favorite")
		return c.JSON(http.StatusInternalServerError, api.NewErrorResponse(api.ErrCodeServerError, "Failed to check favorite"))
	}

	return c.JSON(http.StatusOK, api.IsFavoriteResponse{MovieID: movieID, Favorite: ok})
}

func (a *SyncAPI) RemoveFavoriteHandler(c echo.Context) error {
	userKey := a.session.UserKey()
	if userKey == "" {
		return noActiveUser(c)
	}

	n, err := a.session.Favorites().RemoveFavorite(c.Request().Context(), userKey, c.Param("movieID"))
	if err != nil {
		log.Error().Err(err).Str("user_id", userKey).Msg("Failed to remove favorite")
		return c.JSON(http.StatusInternalServerError, api.NewErrorResponse(api.ErrCodeServerError, "Failed to remove favorite"))
	}

	return c.JSON(http.StatusOK, api.RemoveFavoriteResponse{Removed: n})
}

// ForegroundHandler records the login time; the merge runs in the background.
func (a *SyncAPI) ForegroundHandler(c echo.Context) error {
	return a.lifecycle(c, a.session.OnForeground)
}

// BackgroundHandler records the logout time; the merge runs in the background.
func (a *SyncAPI) BackgroundHandler(c echo.Context) error {
	return a.lifecycle(c, a.session.OnBackground)
}

func (a *SyncAPI) lifecycle(c echo.Context, signal func(context.Context) <-chan error) error {
	userKey := a.session.UserKey()
	if userKey == "" {
		return noActiveUser(c)
	}

	logFailure(signal(c.Request().Context()), userKey, "Lifecycle session log merge failed")

	return c.NoContent(http.StatusAccepted)
}

// ScreenStartedHandler feeds a screen start into the visibility tracker; the
// first visible screen signals foreground.
func (a *SyncAPI) ScreenStartedHandler(c echo.Context) error {
	if a.session.UserKey() == "" {
		return noActiveUser(c)
	}

	sig := a.screens.ScreenStarted(c.Request().Context())
	return c.JSON(http.StatusOK, api.LifecycleResponse{Signal: sig.String(), Visible: a.screens.Visible()})
}

// ScreenStoppedHandler feeds a screen stop into the visibility tracker. Pass
// config_change=true when the screen is only being recreated.
func (a *SyncAPI) ScreenStoppedHandler(c echo.Context) error {
	if a.session.UserKey() == "" {
		return noActiveUser(c)
	}

	changing, _ := strconv.ParseBool(c.QueryParam("config_change"))
	sig := a.screens.ScreenStopped(c.Request().Context(), changing)
	return c.JSON(http.StatusOK, api.LifecycleResponse{Signal: sig.String(), Visible: a.screens.Visible()})
}

// StartupSyncHandler runs the profile pull and reconciliation synchronously.
func (a *SyncAPI) StartupSyncHandler(c echo.Context) error {
	outcome, err := a.session.RunStartupSync(c.Request().Context())
	switch {
	case errors.Is(err, services.ErrNoActiveUser):
		return noActiveUser(c)
	case err != nil:
		return c.JSON(http.StatusBadGateway, api.SyncResponse{Outcome: string(outcome), Error: err.Error()})
	}

	return c.JSON(http.StatusOK, api.SyncResponse{Outcome: string(outcome)})
}

func (a *SyncAPI) GetProfileHandler(c echo.Context) error {
	u, err := a.session.Profile(c.Request().Context())
	switch {
	case errors.Is(err, services.ErrNoActiveUser):
		return noActiveUser(c)
	case errors.Is(err, domain.ErrUserNotFound):
		return c.JSON(http.StatusNotFound, api.NewErrorResponse(api.ErrCodeNotFound, "Profile not found"))
	case err != nil:
		log.Error().Err(err).Msg("Failed to read profile")
		return c.JSON(http.StatusInternalServerError, api.NewErrorResponse(api.ErrCodeServerError, "Failed to read profile"))
	}

	return c.JSON(http.StatusOK, api.ProfileFromUser(u))
}

// PatchProfileHandler applies the edit locally and answers 202; the remote
// push happens in the background.
func (a *SyncAPI) PatchProfileHandler(c echo.Context) error {
	var patch api.ProfilePatch
	if err := c.Bind(&patch); err != nil {
		return c.JSON(http.StatusBadRequest, api.NewErrorResponse(api.ErrCodeInvalidRequest, "Malformed profile patch"))
	}

	edit := services.ProfileEdit{
		Name:    patch.Name,
		Email:   patch.Email,
		Phone:   patch.Phone,
		Address: patch.Address,
	}
	if patch.Image != nil {
		img := domain.DecodeAvatar(*patch.Image)
		edit.Image = &img
	}

	done, err := a.session.EditProfile(c.Request().Context(), edit)
	switch {
	case errors.Is(err, services.ErrNoActiveUser):
		return noActiveUser(c)
	case errors.Is(err, domain.ErrNoFieldsToUpdate):
		return c.JSON(http.StatusBadRequest, api.NewErrorResponse(api.ErrCodeInvalidRequest, "No fields to update"))
	case err != nil:
		log.Error().Err(err).Msg("Failed to update profile")
		return c.JSON(http.StatusInternalServerError, api.NewErrorResponse(api.ErrCodeServerError, "Failed to update profile"))
	}

	logFailure(done, a.session.UserKey(), "Profile push failed")

	return c.NoContent(http.StatusAccepted)
}

// logFailure logs the outcome of a background task without waiting for it.
func logFailure(done <-chan error, userKey, msg string) {
	go func() {
		if err := <-done; err != nil {
			log.Warn().Err(err).Str("user_id", userKey).Msg(msg)
		}
	}()
}

func noActiveUser(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, api.NewErrorResponse(api.ErrCodeNoActiveUser, "Sign in first"))
}
