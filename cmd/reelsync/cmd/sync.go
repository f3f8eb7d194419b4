package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/pilab-dev/reelsync/api"
	"github.com/spf13/cobra"
)

func newSyncCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Pull the profile and reconcile favorites with the cloud",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withEngine(cmd.Context(), func(eng *engine) error {
				if _, err := eng.activeUser(); err != nil {
					return err
				}

				outcome, err := eng.session.RunStartupSync(cmd.Context())
				resp := api.SyncResponse{Outcome: string(outcome)}
				if err != nil {
					resp.Error = err.Error()
				}

				if perr := printResult(a.out, a.output, resp, func(tw *tabwriter.Writer) {
					fmt.Fprintf(tw, "Outcome:\t%s\n", outcome)
					if err != nil {
						fmt.Fprintf(tw, "Error:\t%v\n", err)
					}
				}); perr != nil {
					return perr
				}
				return err
			})
		},
	}
}
