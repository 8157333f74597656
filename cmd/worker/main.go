package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-notify-api/internal/application/digest"
	"github.com/go-notify-api/internal/config"
	"github.com/go-notify-api/internal/infrastructure/directory"
	"github.com/go-notify-api/internal/infrastructure/dynamo"
	"github.com/go-notify-api/internal/infrastructure/smtp"
	"github.com/go-notify-api/internal/queue"
	"github.com/go-notify-api/internal/worker"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()

	dynamoClient := dynamo.NewClient(cfg)
	dynamo.Bootstrap(context.Background(), dynamoClient, cfg.DynamoTables)

	contacts, err := directory.LoadStatic(cfg.ContactDirectoryFile)
	if err != nil {
		log.Fatalf("load contact directory: %v", err)
	}

	digestSvc := digest.NewService(
		dynamo.NewDigestRepo(dynamoClient, cfg.DynamoTables.DigestBatches),
		smtp.NewMailer(cfg),
		contacts,
	)

	scheduler, err := queue.NewScheduler(cfg.RedisAddr)
	if err != nil {
		log.Fatalf("build digest scheduler: %v", err)
	}
	go func() {
		if err := scheduler.Run(); err != nil {
			log.Fatalf("scheduler error: %v", err)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		scheduler.Shutdown()
		cancel()
	}()

	w := worker.New(cfg.RedisAddr, digestSvc)
	if err := w.Start(ctx); err != nil {
		log.Fatalf("worker error: %v", err)
	}
}
