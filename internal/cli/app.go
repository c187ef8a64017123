package cli

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/junkai/internal/config"
	"github.com/JonMunkholm/junkai/internal/core"
	"github.com/JonMunkholm/junkai/internal/logging"
	"github.com/JonMunkholm/junkai/internal/sheets"
	"github.com/JonMunkholm/junkai/internal/storage"
)

// OpenFromEnv opens the planner the server would use, configured from the
// environment and an optional .env file. Logs go to stderr so command
// output stays clean.
func OpenFromEnv(ctx context.Context) (*App, error) {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logging.New(os.Stderr, cfg.Logging.Level, cfg.Logging.Format))

	store, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}
	svc, err := core.NewService(ctx, store,
		core.WithFetcher(sheets.NewClient(cfg.Sheets)),
		core.WithDefaultSheetName(cfg.Sheets.DefaultSheetName),
		core.WithFetchTimeout(cfg.Sheets.FetchTimeout),
		core.WithMaxCSVBytes(cfg.Import.MaxFileSize),
	)
	if err != nil {
		store.Close()
		return nil, err
	}

	return &App{
		Service: svc,
		Close: func() error {
			return errors.Join(svc.Flush(context.Background()), store.Close())
		},
	}, nil
}

// Execute runs the command line tool and returns the process exit code.
func Execute(version string) int {
	root := NewRootCommand(OpenFromEnv, version)
	if err := root.ExecuteContext(context.Background()); err != nil {
		printError(root.ErrOrStderr(), err)
		return 1
	}
	return 0
}

// printError prints the user message for err, keeping the technical
// detail on a dimmed second line. Unrecognised errors print as is.
func printError(w io.Writer, err error) {
	if !core.IsUserFacing(err) {
		_, _ = errorColor.Fprintf(w, "✗ %s\n", err)
		return
	}
	_, _ = errorColor.Fprintf(w, "✗ %s\n", core.FormatUserError(err))
	_, _ = dimColor.Fprintf(w, "  %s\n", err)
}
