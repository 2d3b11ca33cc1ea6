package main

import (
	"log"

	"askyourdocs-client/internal/config"
	"askyourdocs-client/internal/pkg/logger"
	"askyourdocs-client/internal/server"
)

func main() {
	// 1. Load Configuration
	cfg := config.Load()

	// 2. Logger
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// 3. Run Server
	srv := server.New(cfg, sysLogger)
	log.Printf("Stub backend on http://localhost:%s", cfg.App.Port)
	log.Fatal(srv.Run())
}
