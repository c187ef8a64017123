package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/junkai/internal/core"
)

func newImportCmd(open Opener, opts *options) *cobra.Command {
	var (
		event string
		url   string
		sheet string
	)
	cmd := &cobra.Command{
		Use:   "import [file.csv]",
		Short: "Import a CSV file or a shared spreadsheet into an event",
		Long: `Import rows into an event, creating it if needed.

Pass a CSV file (an earlier export or a downloaded sheet) or --url to read
a shared spreadsheet directly.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var src core.ImportSource
			switch {
			case len(args) == 1 && url != "":
				return errors.New("give either a file or --url, not both")
			case len(args) == 1:
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("open %s: %w", args[0], err)
				}
				defer f.Close()
				src = core.CSVFileSource{Name: filepath.Base(args[0]), Data: f}
			case url != "":
				src = core.SpreadsheetSource{URL: url, Sheet: sheet}
			default:
				return errors.New("a file or --url is required")
			}

			return withApp(cmd, open, func(ctx context.Context, app *App) error {
				report, err := app.Service.Import(ctx, event, src)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if opts.jsonOutput {
					return outputJSON(out, report)
				}
				verb := "Added"
				if report.Created {
					verb = "Created " + report.Event + " with"
				}
				printSuccess(out, "%s %d items", verb, report.Added)
				if report.Skipped > 0 {
					printWarning(out, "Skipped %d incomplete rows", report.Skipped)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&event, "event", "e", "", "Event name (required)")
	cmd.Flags().StringVar(&url, "url", "", "Spreadsheet URL to import from")
	cmd.Flags().StringVar(&sheet, "sheet", "", "Sheet name (default 品目表)")
	_ = cmd.MarkFlagRequired("event")
	return cmd
}

func newExportCmd(open Opener, _ *options) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export <event>",
		Short: "Export an event as CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, open, func(ctx context.Context, app *App) error {
				if output == "" || output == "-" {
					return app.Service.Export(args[0], cmd.OutOrStdout())
				}
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("create %s: %w", output, err)
				}
				if err := app.Service.Export(args[0], f); err != nil {
					f.Close()
					os.Remove(output)
					return err
				}
				if err := f.Close(); err != nil {
					return fmt.Errorf("write %s: %w", output, err)
				}
				printSuccess(cmd.ErrOrStderr(), "Wrote %s", output)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default stdout)")
	return cmd
}

func newSyncCmd(open Opener, opts *options) *cobra.Command {
	var (
		url   string
		sheet string
		yes   bool
	)
	cmd := &cobra.Command{
		Use:   "sync <event>",
		Short: "Update an event from its spreadsheet",
		Long: `Fetch the event's spreadsheet, show what would be deleted, updated
and added, and apply it after confirmation. --url and --sheet replace the
stored location.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, open, func(ctx context.Context, app *App) error {
				name := args[0]
				preview, err := app.Service.PrepareSync(ctx, name, core.SyncOptions{SpreadsheetURL: url, SheetName: sheet})
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if opts.jsonOutput && !yes {
					return outputJSON(out, preview)
				}
				if !opts.jsonOutput {
					printPreview(out, preview)
				}

				if !yes {
					ok, err := confirm(cmd.InOrStdin(), out, "Apply these changes?")
					if err != nil {
						return err
					}
					if !ok {
						_ = app.Service.CancelSync(ctx, name)
						fmt.Fprintln(out, "Sync cancelled")
						return nil
					}
				}

				result, err := app.Service.ConfirmSync(ctx, name, preview.ID)
				if err != nil {
					return err
				}
				if opts.jsonOutput {
					return outputJSON(out, result)
				}
				printSuccess(out, "Deleted %d, updated %d, added %d", result.Deleted, result.Updated, result.Added)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&url, "url", "", "Spreadsheet URL (default: the event's stored URL)")
	cmd.Flags().StringVar(&sheet, "sheet", "", "Sheet name (default: the stored sheet)")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Apply without asking")
	return cmd
}

func printPreview(w io.Writer, p *core.SyncPreview) {
	printHeader(w, fmt.Sprintf("%s: %d rows fetched from %s", p.Event, p.Summary.FetchedRows, p.SheetName))
	for _, it := range p.Diff.ToDelete {
		fmt.Fprintf(w, "  - %s\n", describeRow(it.Row()))
	}
	for _, u := range p.UpdateDiffs {
		fmt.Fprintf(w, "  ~ %s (%s)\n", describeRow(u.Incoming), strings.Join(u.Changed, ", "))
	}
	for _, r := range p.Diff.ToAdd {
		fmt.Fprintf(w, "  + %s\n", describeRow(r))
	}
	fmt.Fprintf(w, "%d to delete, %d to update, %d to add\n",
		p.Summary.DeleteRows, p.Summary.UpdateRows, p.Summary.AddRows)
}

// confirm asks a yes/no question. Anything but y or yes is no.
func confirm(in io.Reader, out io.Writer, question string) (bool, error) {
	fmt.Fprintf(out, "%s [y/N] ", question)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}
