package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/pilab-dev/reelsync/api"
	"github.com/pilab-dev/reelsync/domain"
	"github.com/pilab-dev/reelsync/services"
	"github.com/spf13/cobra"
)

func newProfileCmd(a *app) *cobra.Command {
	profileCmd := &cobra.Command{
		Use:   "profile",
		Short: "Show or edit the active user's profile",
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show the profile with phone and address decrypted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withEngine(cmd.Context(), func(eng *engine) error {
				if _, err := eng.activeUser(); err != nil {
					return err
				}

				u, err := eng.session.Profile(cmd.Context())
				if err != nil {
					return err
				}

				p := api.ProfileFromUser(u)
				return printResult(a.out, a.output, p, func(tw *tabwriter.Writer) {
					fmt.Fprintf(tw, "User:\t%s\n", p.UserKey)
					fmt.Fprintf(tw, "Name:\t%s\n", p.Name)
					fmt.Fprintf(tw, "Email:\t%s\n", p.Email)
					fmt.Fprintf(tw, "Phone:\t%s\n", p.Phone)
					fmt.Fprintf(tw, "Address:\t%s\n", p.Address)
					if u.Image.Kind == domain.AvatarURL {
						fmt.Fprintf(tw, "Image:\t%s\n", p.Image)
					} else if !u.Image.IsZero() {
						fmt.Fprintf(tw, "Image:\t(%d bytes inline)\n", len(u.Image.Data))
					}
					fmt.Fprintf(tw, "Last login:\t%s\n", p.LoginTime)
					fmt.Fprintf(tw, "Last logout:\t%s\n", p.LogoutTime)
				})
			})
		},
	}

	editCmd := &cobra.Command{
		Use:   "edit",
		Short: "Change profile fields and push them to the cloud",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			edit := services.ProfileEdit{}
			for flag, dst := range map[string]**string{
				"name":    &edit.Name,
				"email":   &edit.Email,
				"phone":   &edit.Phone,
				"address": &edit.Address,
			} {
				if cmd.Flags().Changed(flag) {
					v, _ := cmd.Flags().GetString(flag)
					*dst = &v
				}
			}
			if cmd.Flags().Changed("image") {
				v, _ := cmd.Flags().GetString("image")
				img := domain.DecodeAvatar(v)
				edit.Image = &img
			}

			return a.withEngine(cmd.Context(), func(eng *engine) error {
				done, err := eng.session.EditProfile(cmd.Context(), edit)
				if err != nil {
					return err
				}

				resp := api.SessionResponse{UserKey: eng.session.UserKey(), SignedIn: true}
				if err := <-done; err != nil {
					resp.RemoteError = err.Error()
				}

				return printResult(a.out, a.output, resp, func(tw *tabwriter.Writer) {
					fmt.Fprintf(tw, "Profile updated\t%s\n", resp.UserKey)
					if resp.RemoteError != "" {
						fmt.Fprintf(tw, "Cloud push failed\t%s\n", resp.RemoteError)
					}
				})
			})
		},
	}
	editCmd.Flags().String("name", "", "display name")
	editCmd.Flags().String("email", "", "email address")
	editCmd.Flags().String("phone", "", "phone number (stored encrypted)")
	editCmd.Flags().String("address", "", "postal address (stored encrypted)")
	editCmd.Flags().String("image", "", "avatar URL or base64 image bytes")

	profileCmd.AddCommand(showCmd, editCmd)
	return profileCmd
}
