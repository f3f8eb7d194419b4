package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newAdminCmd(a *app) *cobra.Command {
	adminCmd := &cobra.Command{
		Use:   "admin",
		Short: "Maintenance commands",
	}

	deleteUserCmd := &cobra.Command{
		Use:   "delete-user USER_KEY",
		Short: "Delete a user and their favorites from the device",
		Long:  "Removes the local user row; favorites go with it. The cloud document is left untouched.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withEngine(cmd.Context(), func(eng *engine) error {
				n, err := eng.local.DeleteUser(cmd.Context(), args[0])
				if err != nil {
					return err
				}

				resp := struct {
					UserKey string `json:"user_key" yaml:"user_key"`
					Deleted int64  `json:"deleted" yaml:"deleted"`
				}{args[0], n}
				return printResult(a.out, a.output, resp, func(tw *tabwriter.Writer) {
					fmt.Fprintf(tw, "Deleted %d user(s)\t%s\n", n, args[0])
				})
			})
		},
	}

	pingCmd := &cobra.Command{
		Use:   "ping",
		Short: "Check that the remote store is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withEngine(cmd.Context(), func(eng *engine) error {
				status := "in-memory"
				if eng.mongo != nil {
					if err := eng.mongo.Ping(cmd.Context()); err != nil {
						return fmt.Errorf("remote store unreachable: %w", err)
					}
					status = "ok"
				}

				resp := struct {
					Remote string `json:"remote" yaml:"remote"`
				}{status}
				return printResult(a.out, a.output, resp, func(tw *tabwriter.Writer) {
					fmt.Fprintf(tw, "Remote:\t%s\n", status)
				})
			})
		},
	}

	adminCmd.AddCommand(deleteUserCmd, pingCmd)
	return adminCmd
}
