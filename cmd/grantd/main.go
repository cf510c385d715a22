package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/grantd/grantd/internal/authority"
	"github.com/grantd/grantd/internal/config"
	"github.com/grantd/grantd/internal/logger"
	"github.com/grantd/grantd/internal/role"
	"github.com/grantd/grantd/internal/server"
	"github.com/grantd/grantd/internal/store"
)

func main() {
	var configPath string

	root := &cobra.Command{
		Use:   "grantd",
		Short: "grantd — local permission grant authority",
		Long:  "Serves role availability checks and app permission grant state over a local socket, with pushed snapshots for interactive settings UIs.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath)
		},
	}
	root.Flags().StringVarP(&configPath, "config", "c", "", "path to config file")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
	} else {
		cfg = config.Default()
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.File); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if _, err := config.EnsureBaseDir(); err != nil {
		return err
	}

	s, err := store.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer s.Close()

	caps := role.StaticCapabilities{}
	for _, c := range cfg.Roles.Capabilities {
		caps[c] = true
	}
	roles := role.NewRegistry(caps)
	if _, err := os.Stat(cfg.Roles.File); err == nil {
		if err := roles.LoadFile(cfg.Roles.File); err != nil {
			return err
		}
	} else {
		logger.Warn("no roles file, starting with empty registry", "path", cfg.Roles.File)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if _, err := os.Stat(cfg.Roles.File); err == nil {
		if err := roles.Watch(ctx, cfg.Roles.File); err != nil {
			logger.Warn("roles watch unavailable", "error", err)
		}
	}

	auth := authority.New(s)
	srv := server.New(s, auth, roles, cfg.Server.Socket)

	if cfg.Server.AdminTokenHash != "" {
		secret, err := server.GenerateOrLoadSecret(s, os.Getenv("GRANTD_JWT_SECRET"))
		if err != nil {
			return fmt.Errorf("jwt secret: %w", err)
		}
		srv.EnableAuth(secret, cfg.Server.AdminTokenHash)
	}

	logger.Info("grantd listening", "socket", cfg.Server.Socket, "db", cfg.Database.Path, "roles", len(roles.Names()))
	return srv.ListenAndServe(ctx)
}
