package main

import (
	"context"
	"errors"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/Noratrieb/does-it-build/internal/builder"
	"github.com/Noratrieb/does-it-build/internal/config"
	"github.com/Noratrieb/does-it-build/internal/server"
	"github.com/Noratrieb/does-it-build/internal/store"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the sweep loop and the web server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the YAML config file (built-in defaults when omitted)",
			},
			&cli.BoolFlag{
				Name:  "no-builder",
				Usage: "Serve recorded state only, without sweeping nightlies",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			ctx, cancel := context.WithCancel(ctx)
			defer cancel()

			cfg := config.Default()
			path := cmd.String("config")
			if path != "" {
				loaded, err := config.Load(path)
				if err != nil {
					return err
				}
				cfg = loaded
			}
			slog.Info("config loaded",
				"listen", cfg.Listen,
				"db", cfg.DBPath,
				"modes", cfg.Modes,
				"redis", cfg.RedisURL != "",
			)

			st, err := store.Open(cfg.DBPath)
			if err != nil {
				return err
			}
			defer st.Close()

			respCache, err := server.NewCache(ctx, cfg.RedisURL, cfg.CacheTTL)
			if err != nil {
				return err
			}
			defer respCache.Close()

			hub := server.NewHub()
			go hub.Run(ctx)

			var b *builder.Builder
			if !cmd.Bool("no-builder") {
				b = builder.New(st, builderConfig(cfg), nil)
			}

			// The server needs the trigger queue, the builder needs the
			// server as its event sink.
			var queue server.BuildQueue
			if b != nil {
				queue = b
			}
			srv := server.New(st, hub, respCache, queue)
			if b != nil {
				b.SetNotifier(srv)
			}

			// Config edits reach the running builder without a restart.
			// The listen address and database stay as started.
			if path != "" && b != nil {
				go func() {
					err := config.Watch(ctx, path, func(next *config.Config) {
						b.SetConfig(builderConfig(next))
						slog.Info("builder config reloaded", "modes", next.Modes)
					})
					if err != nil && !errors.Is(err, context.Canceled) {
						slog.Error("config watch stopped", "error", err)
					}
				}()
			}

			errc := make(chan error, 2)
			go func() {
				errc <- srv.Run(ctx, cfg.Listen)
			}()
			if b != nil {
				go func() {
					errc <- b.Run(ctx)
				}()
			}

			err = <-errc
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
}

func builderConfig(cfg *config.Config) builder.Config {
	return builder.Config{
		Modes:         cfg.BuildModes(),
		Concurrency:   cfg.Concurrency,
		BuildTimeout:  cfg.BuildTimeout,
		CheckInterval: cfg.CheckInterval,
		SkipTargets:   cfg.SkipTargets,
		ManifestURL:   cfg.ManifestURL,
		TriggerQueue:  cfg.TriggerQueue,
	}
}
