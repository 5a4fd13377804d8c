package main

import (
	"taskflow/internal/config"
	"taskflow/internal/logger"
	"taskflow/internal/server"
)

func main() {
	cfg := config.New()
	logger.Init(cfg.Server.Env)

	srv, err := server.New(cfg)
	if err != nil {
		logger.Fatal("Failed to create server", "error", err)
	}
	defer srv.Close()

	if err := srv.Run(); err != nil {
		logger.Fatal("Server error", "error", err)
	}
}
