package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/pilab-dev/reelsync/api"
	"github.com/pilab-dev/reelsync/domain"
	"github.com/spf13/cobra"
)

func newFavCmd(a *app) *cobra.Command {
	favCmd := &cobra.Command{
		Use:     "fav",
		Short:   "Manage the active user's favorite movies",
		Aliases: []string{"favorites"},
	}

	var title, poster string
	addCmd := &cobra.Command{
		Use:   "add MOVIE_ID",
		Short: "Add a movie to favorites",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withEngine(cmd.Context(), func(eng *engine) error {
				userKey, err := eng.activeUser()
				if err != nil {
					return err
				}

				added, err := eng.session.Favorites().AddFavorite(cmd.Context(), domain.Favorite{
					UserID:  userKey,
					MovieID: args[0],
					Poster:  poster,
					Title:   title,
				})
				if err != nil {
					return err
				}

				resp := api.AddFavoriteResponse{Added: added}
				return printResult(a.out, a.output, resp, func(tw *tabwriter.Writer) {
					if added {
						fmt.Fprintf(tw, "Added %s to favorites\n", args[0])
					} else {
						fmt.Fprintf(tw, "%s was not added (already a favorite or unknown user)\n", args[0])
					}
				})
			})
		},
	}
	addCmd.Flags().StringVar(&title, "title", "", "movie title")
	addCmd.Flags().StringVar(&poster, "poster", "", "poster image URL")

	rmCmd := &cobra.Command{
		Use:     "rm MOVIE_ID",
		Short:   "Remove a movie from favorites",
		Aliases: []string{"remove"},
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withEngine(cmd.Context(), func(eng *engine) error {
				userKey, err := eng.activeUser()
				if err != nil {
					return err
				}

				n, err := eng.session.Favorites().RemoveFavorite(cmd.Context(), userKey, args[0])
				if err != nil {
					return err
				}

				return printResult(a.out, a.output, api.RemoveFavoriteResponse{Removed: n}, func(tw *tabwriter.Writer) {
					fmt.Fprintf(tw, "Removed %d favorite(s)\n", n)
				})
			})
		},
	}

	lsCmd := &cobra.Command{
		Use:     "ls",
		Short:   "List favorites",
		Aliases: []string{"list"},
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withEngine(cmd.Context(), func(eng *engine) error {
				userKey, err := eng.activeUser()
				if err != nil {
					return err
				}

				favs, err := eng.session.Favorites().ListFavorites(cmd.Context(), userKey)
				if err != nil {
					return err
				}

				return printResult(a.out, a.output, api.FavoritesResponse{Favorites: favs}, func(tw *tabwriter.Writer) {
					fmt.Fprintln(tw, "MOVIE ID\tTITLE\tPOSTER")
					for _, f := range favs {
						fmt.Fprintf(tw, "%s\t%s\t%s\n", f.MovieID, f.Title, f.Poster)
					}
				})
			})
		},
	}

	checkCmd := &cobra.Command{
		Use:   "check MOVIE_ID",
		Short: "Report whether a movie is a favorite",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withEngine(cmd.Context(), func(eng *engine) error {
				userKey, err := eng.activeUser()
				if err != nil {
					return err
				}

				ok, err := eng.session.Favorites().IsFavorite(cmd.Context(), userKey, args[0])
				if err != nil {
					return err
				}

				return printResult(a.out, a.output, api.IsFavoriteResponse{MovieID: args[0], Favorite: ok}, func(tw *tabwriter.Writer) {
					fmt.Fprintf(tw, "%s\t%t\n", args[0], ok)
				})
			})
		},
	}

	favCmd.AddCommand(addCmd, rmCmd, lsCmd, checkCmd)
	return favCmd
}
