package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/Noratrieb/does-it-build/internal/version"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	ctx := context.Background()

	appl := &cli.Command{
		Name:    version.Name(),
		Usage:   "Track which rustc targets build on which nightlies",
		Version: version.Version() + " " + version.Commit(),
		Commands: []*cli.Command{
			serveCommand(),
			sweepCommand(),
		},
	}

	if err := appl.Run(ctx, os.Args); err != nil {
		slog.Error("failed to run", "error", err)
		os.Exit(1)
	}
}
