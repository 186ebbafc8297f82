package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/Noratrieb/does-it-build/internal/builder"
	"github.com/Noratrieb/does-it-build/internal/config"
	"github.com/Noratrieb/does-it-build/internal/model"
	"github.com/Noratrieb/does-it-build/internal/store"
)

var errExpectedNightly = errors.New("expected exactly one argument: the nightly to sweep, e.g. 2024-01-01")

func sweepCommand() *cli.Command {
	return &cli.Command{
		Name:      "sweep",
		Usage:     "Sweep one nightly across every target, record the results and exit",
		ArgsUsage: "<nightly>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the YAML config file (built-in defaults when omitted)",
			},
			&cli.StringFlag{
				Name:    "mode",
				Aliases: []string{"m"},
				Usage:   "Sweep only this build mode (core or miri-std)",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.NArg() != 1 {
				return fmt.Errorf("%w: got %d", errExpectedNightly, cmd.NArg())
			}
			night := cmd.Args().First()

			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cfg := config.Default()
			if path := cmd.String("config"); path != "" {
				loaded, err := config.Load(path)
				if err != nil {
					return err
				}
				cfg = loaded
			}

			modes := cfg.BuildModes()
			if raw := cmd.String("mode"); raw != "" {
				mode, err := model.ParseMode(raw)
				if err != nil {
					return err
				}
				modes = []model.Mode{mode}
			}

			st, err := store.Open(cfg.DBPath)
			if err != nil {
				return err
			}
			defer st.Close()

			b := builder.New(st, builderConfig(cfg), nil)
			for _, mode := range modes {
				slog.Info("sweeping", "nightly", night, "mode", mode)
				if err := b.Sweep(ctx, night, mode); err != nil {
					return fmt.Errorf("sweeping %s %s: %w", night, mode, err)
				}
			}
			return nil
		},
	}
}
