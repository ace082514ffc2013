package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"sealed-relay/internal/auth"
	"sealed-relay/internal/config"
	"sealed-relay/internal/hub"
	"sealed-relay/internal/server"
	"sealed-relay/internal/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// run keeps initialization in one place so deferred teardown (badger close,
// registry drain) happens on every exit path.
func run() error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)
	gin.SetMode(cfg.GinMode)

	st, err := store.Open(cfg.DataDir, logger)
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Error("close store", "err", err)
		}
	}()

	registry := hub.New(logger)
	defer registry.Close()

	challenges := auth.NewChallengeStore(cfg.ChallengeTTL())
	defer challenges.Close()

	router := server.NewRouter(server.Deps{
		Store:      st,
		Hub:        registry,
		Challenges: challenges,
		TokenConfig: auth.TokenConfig{
			Secret: cfg.MasterSecret,
			Expiry: cfg.TokenExpiry(),
			Issuer: "sealed-relay",
		},
	})

	logger.Info("listening", "port", cfg.Port)
	return server.Run(cfg, router)
}
