package main

import (
	"github.com/spf13/cobra"

	"github.com/jamesainslie/stripvault/pkg/archive/navigation"
	"github.com/jamesainslie/stripvault/pkg/archive/output"
)

var navCmd = &cobra.Command{
	Use:   "nav",
	Short: "Navigate a comic's archive",
	Long: `Find the first, last, next or previous archived strip of a comic.

Dates are yyyy-MM-dd; "today" is also accepted. When no strip lies in the
requested direction the nearest strip on the other side is reported.`,
}

var navFirstCmd = &cobra.Command{
	Use:   "first <comic>",
	Short: "Show the oldest archived strip",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return navigate(cmd, args, func(r *navigation.Resolver, id int) (navigation.Result, error) {
			return r.First(cmd.Context(), id)
		})
	},
}

var navLastCmd = &cobra.Command{
	Use:   "last <comic>",
	Short: "Show the newest archived strip",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return navigate(cmd, args, func(r *navigation.Resolver, id int) (navigation.Result, error) {
			return r.Last(cmd.Context(), id)
		})
	},
}

var navNextCmd = &cobra.Command{
	Use:   "next <comic> <date>",
	Short: "Show the first strip after a date",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		from, err := parseDate(args[1])
		if err != nil {
			return err
		}
		return navigate(cmd, args, func(r *navigation.Resolver, id int) (navigation.Result, error) {
			return r.Next(cmd.Context(), id, from)
		})
	},
}

var navPrevCmd = &cobra.Command{
	Use:     "prev <comic> <date>",
	Aliases: []string{"previous"},
	Short:   "Show the last strip before a date",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		from, err := parseDate(args[1])
		if err != nil {
			return err
		}
		return navigate(cmd, args, func(r *navigation.Resolver, id int) (navigation.Result, error) {
			return r.Previous(cmd.Context(), id, from)
		})
	},
}

func init() {
	navCmd.AddCommand(navFirstCmd, navLastCmd, navNextCmd, navPrevCmd)
	rootCmd.AddCommand(navCmd)
}

func navigate(cmd *cobra.Command, args []string, fn func(*navigation.Resolver, int) (navigation.Result, error)) error {
	a, err := openApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	comic, err := a.comic(args[0])
	if err != nil {
		return err
	}

	res, err := fn(a.resolver(), comic.ID)
	if err != nil {
		return err
	}
	return render(cmd, output.NavigationView{Comic: comic, Result: res})
}
