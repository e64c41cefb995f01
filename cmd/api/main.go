package main

import (
	"log"

	"brandscope-backend/internal/bootstrap"
	"brandscope-backend/internal/shared/config"
	"brandscope-backend/internal/shared/server"
)

func main() {
	cfg := config.Load()

	app, err := bootstrap.Build(cfg)
	if err != nil {
		log.Fatalf("bootstrap: %v", err)
	}

	if app.Scheduler != nil {
		if err := app.Scheduler.Start(); err != nil {
			log.Fatalf("scheduler: %v", err)
		}
		defer app.Scheduler.Stop()
	}

	addr := server.Addr(cfg.Port)
	log.Printf("Starting API server on %s", addr)

	if err := app.Router.Run(addr); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
