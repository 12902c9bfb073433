package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Tyrowin/wsrelay/internal/config"
	"github.com/Tyrowin/wsrelay/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the relay server",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")

		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if err := applyFlags(cmd, cfg); err != nil {
			return err
		}

		level := new(slog.LevelVar)
		level.Set(cfg.Log.SlogLevel())
		logger := newLogger(os.Stdout, cfg.Log.Format, level)
		slog.SetDefault(logger)

		logger.Info("relay starting",
			"addr", cfg.Server.Addr(),
			"config", configPath,
			"allowed_origins", cfg.Server.AllowedOrigins,
			"metrics", cfg.Metrics.Enabled,
		)

		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		srv := server.New(cfg, server.WithLogger(logger), server.WithLevel(level))

		if configPath != "" {
			go func() {
				err := config.Watch(ctx, configPath, logger, func(next *config.Config) {
					if err := applyFlags(cmd, next); err != nil {
						logger.Error("reloaded config rejected", "err", err)
						return
					}
					srv.Reload(next)
				})
				if err != nil {
					logger.Error("config watcher stopped", "err", err)
				}
			}()
		}

		if err := srv.ListenAndServe(ctx); err != nil {
			logger.Error("server stopped", "err", err)
			return err
		}
		logger.Info("relay stopped")
		return nil
	},
}

// applyFlags overlays the flags set on the command line onto cfg, so they
// win over both the file and the environment, and revalidates.
func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("host") {
		cfg.Server.Host, _ = flags.GetString("host")
	}
	if flags.Changed("port") {
		cfg.Server.Port, _ = flags.GetInt("port")
	}
	if flags.Changed("log-level") {
		cfg.Log.Level, _ = flags.GetString("log-level")
	}
	if flags.Changed("log-format") {
		cfg.Log.Format, _ = flags.GetString("log-format")
	}
	return cfg.Validate()
}

func newLogger(w io.Writer, format string, level *slog.LevelVar) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}
