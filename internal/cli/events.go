package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newEventsCmd(open Opener, opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "events",
		Short: "List events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, open, func(ctx context.Context, app *App) error {
				events := app.Service.ListEvents()
				out := cmd.OutOrStdout()
				if opts.jsonOutput {
					return outputJSON(out, events)
				}
				if len(events) == 0 {
					fmt.Fprintln(out, "No events")
					return nil
				}
				for _, ev := range events {
					fmt.Fprintf(out, "%s\t%d items\t%d/%d purchased\t%s\n",
						ev.Name, ev.ItemCount, ev.Summary.PurchasedItems, ev.Summary.TotalItems,
						strings.Join(ev.Dates, ","))
					if ev.Metadata != nil && ev.Metadata.SpreadsheetURL != "" {
						_, _ = dimColor.Fprintf(out, "  %s\n", ev.Metadata.SpreadsheetURL)
					}
				}
				return nil
			})
		},
	}
}

func newRenameCmd(open Opener, opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <event> <new-name>",
		Short: "Rename an event",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, open, func(ctx context.Context, app *App) error {
				if err := app.Service.RenameEvent(ctx, args[0], args[1]); err != nil {
					return err
				}
				if opts.jsonOutput {
					return outputJSON(cmd.OutOrStdout(), map[string]string{"from": args[0], "to": strings.TrimSpace(args[1])})
				}
				printSuccess(cmd.OutOrStdout(), "Renamed %s to %s", args[0], strings.TrimSpace(args[1]))
				return nil
			})
		},
	}
}

func newDeleteCmd(open Opener, opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <event>",
		Short: "Delete an event and everything planned for it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, open, func(ctx context.Context, app *App) error {
				if err := app.Service.DeleteEvent(ctx, args[0]); err != nil {
					return err
				}
				if opts.jsonOutput {
					return outputJSON(cmd.OutOrStdout(), map[string]string{"deleted": args[0]})
				}
				printSuccess(cmd.OutOrStdout(), "Deleted %s", args[0])
				return nil
			})
		},
	}
}
