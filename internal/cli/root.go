// Package cli implements the junkai command line tool.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/junkai/internal/core"
)

// App is an opened planner: a service over the configured storage.
type App struct {
	Service *core.Service
	Close   func() error
}

// Opener opens the App a command runs against.
type Opener func(ctx context.Context) (*App, error)

// options holds the persistent flags.
type options struct {
	jsonOutput bool
}

// NewRootCommand builds the command tree. Every subcommand opens its App
// through open.
func NewRootCommand(open Opener, version string) *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:     "junkai",
		Version: version,
		Short:   "Plan purchases for doujinshi events",
		Long: `junkai keeps per-event shopping lists: which circles to visit on which
day, in which order, and what was bought.

Lists are imported from a shared spreadsheet or an exported CSV, kept in
sync with the spreadsheet, and exported back to CSV.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}
	root.SetVersionTemplate("{{.Version}}\n")
	root.PersistentFlags().BoolVar(&opts.jsonOutput, "json", false, "Output in JSON format")

	root.AddGroup(
		&cobra.Group{ID: "events", Title: "Events:"},
		&cobra.Group{ID: "transfer", Title: "Import & Export:"},
	)

	for _, c := range []*cobra.Command{
		newEventsCmd(open, opts),
		newRenameCmd(open, opts),
		newDeleteCmd(open, opts),
	} {
		c.GroupID = "events"
		root.AddCommand(c)
	}
	for _, c := range []*cobra.Command{
		newImportCmd(open, opts),
		newExportCmd(open, opts),
		newSyncCmd(open, opts),
	} {
		c.GroupID = "transfer"
		root.AddCommand(c)
	}
	return root
}

// withApp opens the App, runs fn and closes the App, keeping fn's error
// when both fail.
func withApp(cmd *cobra.Command, open Opener, fn func(ctx context.Context, app *App) error) (err error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	app, err := open(ctx)
	if err != nil {
		return fmt.Errorf("open planner: %w", err)
	}
	defer func() {
		if cerr := app.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close planner: %w", cerr)
		}
	}()
	return fn(ctx, app)
}
