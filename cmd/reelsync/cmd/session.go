package cmd

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/pilab-dev/reelsync/api"
	"github.com/pilab-dev/reelsync/domain"
	"github.com/pilab-dev/reelsync/internal/identity"
	"github.com/spf13/cobra"
	"golang.org/x/oauth2"
)

func newSessionCmd(a *app) *cobra.Command {
	sessionCmd := &cobra.Command{
		Use:   "session",
		Short: "Sign in and out, and record app visibility",
	}

	var req api.LoginRequest
	var skipSync bool
	loginCmd := &cobra.Command{
		Use:   "login",
		Short: "Sign a user in and reconcile with the cloud",
		Long: `Resolves the identity, records the login and merges the session log.
Social providers take --access-token; password accounts take --account-id.
Print the returned user key into REELSYNC_USER_KEY for later commands.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withEngine(cmd.Context(), func(eng *engine) error {
				ctx := cmd.Context()

				id, err := resolveIdentity(ctx, eng.identities, req)
				if err != nil {
					return err
				}
				err = eng.session.Login(ctx, *id)
				eng.record("session.login", id.UserKey, err)
				if err != nil {
					return err
				}

				resp := api.SessionResponse{UserKey: id.UserKey, SignedIn: true}
				if !skipSync {
					if _, err := eng.session.RunStartupSync(ctx); err != nil {
						resp.RemoteError = err.Error()
					}
				}

				return printResult(a.out, a.output, resp, func(tw *tabwriter.Writer) {
					fmt.Fprintf(tw, "Signed in as\t%s\n", resp.UserKey)
					if resp.RemoteError != "" {
						fmt.Fprintf(tw, "Sync error\t%s\n", resp.RemoteError)
					}
				})
			})
		},
	}
	loginCmd.Flags().StringVar(&req.Provider, "provider", domain.ProviderPassword, "google, facebook or password")
	loginCmd.Flags().StringVar(&req.AccessToken, "access-token", "", "OAuth access token for social providers")
	loginCmd.Flags().StringVar(&req.AccountID, "account-id", "", "account id for password accounts")
	loginCmd.Flags().StringVar(&req.DisplayName, "name", "", "display name for password accounts")
	loginCmd.Flags().StringVar(&req.Email, "email", "", "email for password accounts")
	loginCmd.Flags().BoolVar(&skipSync, "no-sync", false, "skip the startup reconciliation")

	logoutCmd := &cobra.Command{
		Use:   "logout",
		Short: "Record the logout and sign the user out",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withEngine(cmd.Context(), func(eng *engine) error {
				userKey, err := eng.activeUser()
				if err != nil {
					return err
				}

				resp := api.SessionResponse{UserKey: userKey}
				err = eng.session.Logout(cmd.Context())
				eng.record("session.logout", userKey, err)
				if err != nil {
					resp.RemoteError = err.Error()
				}

				return printResult(a.out, a.output, resp, func(tw *tabwriter.Writer) {
					fmt.Fprintf(tw, "Signed out\t%s\n", userKey)
					if resp.RemoteError != "" {
						fmt.Fprintf(tw, "Session log not synced\t%s\n", resp.RemoteError)
					}
				})
			})
		},
	}

	sessionCmd.AddCommand(
		loginCmd,
		logoutCmd,
		newSignalCmd(a, "foreground", "Record that the app came to the foreground", func(eng *engine, ctx context.Context) <-chan error {
			return eng.session.OnForeground(ctx)
		}),
		newSignalCmd(a, "background", "Record that the app went to the background", func(eng *engine, ctx context.Context) <-chan error {
			return eng.session.OnBackground(ctx)
		}),
	)
	return sessionCmd
}

// newSignalCmd waits for the session log merge so the process does not exit
// before it lands.
func newSignalCmd(a *app, use, short string, signal func(*engine, context.Context) <-chan error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withEngine(cmd.Context(), func(eng *engine) error {
				if _, err := eng.activeUser(); err != nil {
					return err
				}

				err := <-signal(eng, cmd.Context())
				resp := api.SessionResponse{UserKey: eng.session.UserKey(), SignedIn: true}
				if err != nil {
					resp.RemoteError = err.Error()
				}

				return printResult(a.out, a.output, resp, func(tw *tabwriter.Writer) {
					fmt.Fprintf(tw, "Recorded %s\t%s\n", use, resp.UserKey)
					if err != nil {
						fmt.Fprintf(tw, "Session log not synced\t%v\n", err)
					}
				})
			})
		},
	}
}

func resolveIdentity(ctx context.Context, reg *identity.Registry, req api.LoginRequest) (*domain.Identity, error) {
	if req.Provider == domain.ProviderPassword {
		return identity.PasswordIdentity(req.AccountID, req.DisplayName, req.Email)
	}

	p, err := reg.Get(req.Provider)
	if err != nil {
		return nil, err
	}
	if req.AccessToken == "" {
		return nil, errors.New("--access-token is required for " + req.Provider)
	}

	return p.Identity(ctx, &oauth2.Token{AccessToken: req.AccessToken})
}
