package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"electionkeeper/internal/app/bootstrap"
)

// API process entrypoint.
// Data flow:
// 1) Load config.
// 2) Build app wiring (ports + adapters + use cases).
// 3) Serve HTTP until SIGINT/SIGTERM.
//
// @title Election Keeper API
// @version 1.0
// @description Election ledger commands and read models.
// @BasePath /
func main() {
	log.Println("electionkeeper api starting")
	app, err := bootstrap.BuildAPI()
	if err != nil {
		log.Fatalf("bootstrap api failed: %v", err)
	}
	defer func() {
		if err := app.Close(); err != nil {
			log.Printf("api shutdown close failed: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx); err != nil {
		log.Printf("electionkeeper api stopped with error: %v", err)
	}
}
