package main

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"rollcall/internal/auth"
	"rollcall/internal/config"
	"rollcall/internal/directory"
	"rollcall/internal/store"
)

func main() {
	cfg := config.Load()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))

	db, err := store.NewDB(context.Background(), cfg.DatabaseURL)
	if err != nil {
		logger.Error("db not reachable", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	cli := commandLine{
		out:      os.Stdout,
		users:    auth.NewUserRepository(db.Client),
		teachers: directory.NewService(directory.NewRepository(db.Client), nil, logger),
		issuer:   auth.NewIssuer(cfg.JWTIssuer, cfg.JWTSigningKey, cfg.AccessTTL, cfg.RefreshTTL),
		migrate: func(ctx context.Context) error {
			return store.Migrate(ctx, db.Client)
		},
	}
	if err := cli.run(os.Args); err != nil {
		if !errors.Is(err, errHelp) {
			logger.Error("command failed", "error", err)
		}
		_ = db.Close()
		os.Exit(1)
	}
}
