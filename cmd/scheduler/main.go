package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"jobpilot-backend/internal/bootstrap"
	"jobpilot-backend/internal/scheduler"
	"jobpilot-backend/internal/shared/config"
)

func main() {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.Build(cfg)
	if err != nil {
		log.Fatalf("bootstrap build: %v", err)
	}

	sched := scheduler.New(
		app.ScoringService,
		app.AppService,
		app.Learner,
		app.FeedbackRepo,
		cfg.ScoringInterval,
		cfg.DispatchInterval,
		cfg.LearningInterval,
	)
	if err := sched.Start(ctx); err != nil {
		log.Fatalf("scheduler start: %v", err)
	}

	<-ctx.Done()
	sched.Stop()
}
