package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-notify-api/internal/application/delivery"
	"github.com/go-notify-api/internal/config"
	"github.com/go-notify-api/internal/infrastructure/directory"
	"github.com/go-notify-api/internal/infrastructure/dynamo"
	jwtinfra "github.com/go-notify-api/internal/infrastructure/jwt"
	"github.com/go-notify-api/internal/infrastructure/smtp"
	"github.com/go-notify-api/internal/infrastructure/sns"
	"github.com/go-notify-api/internal/queue"
	transporthttp "github.com/go-notify-api/internal/transport/http"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()

	// Bootstrap DynamoDB tables (creates them if they don't exist).
	dynamoClient := dynamo.NewClient(cfg)
	dynamo.Bootstrap(context.Background(), dynamoClient, cfg.DynamoTables)

	// JWT provider (optional — graceful fallback if keys are missing).
	var jwtProvider *jwtinfra.Provider
	if p, err := jwtinfra.NewProvider(cfg); err == nil {
		jwtProvider = p
	} else {
		log.Printf("WARN: JWT provider not available: %v", err)
	}

	// SMTP mailer.
	mailer := smtp.NewMailer(cfg)

	// SNS push sender (optional — graceful fallback).
	var pushSender sns.PushSender
	if sender, err := sns.NewSender(cfg); err == nil {
		pushSender = sender
	} else {
		log.Printf("WARN: SNS sender not available: %v", err)
	}

	// Contact directory (file-backed; the profile service integration
	// replaces this in hosted deployments).
	var contacts delivery.ContactDirectory
	contacts, err := directory.LoadStatic(cfg.ContactDirectoryFile)
	if err != nil {
		log.Fatalf("load contact directory: %v", err)
	}

	// Queue client for the digest flush trigger.
	queueClient := queue.NewClient(cfg.RedisAddr)
	defer queueClient.Close()

	deps := &transporthttp.Deps{
		NotificationRepo: dynamo.NewNotificationRepo(dynamoClient, cfg.DynamoTables.Notifications),
		PreferenceRepo:   dynamo.NewPreferenceRepo(dynamoClient, cfg.DynamoTables.Preferences),
		UnreadCountRepo:  dynamo.NewUnreadCountRepo(dynamoClient, cfg.DynamoTables.UnreadCounts),
		DigestRepo:       dynamo.NewDigestRepo(dynamoClient, cfg.DynamoTables.DigestBatches),
		Mailer:           mailer,
		PushSender:       pushSender,
		Contacts:         contacts,
		JWTProvider:      jwtProvider,
		Queue:            queueClient,
	}

	router := transporthttp.NewRouter(cfg, deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on :%s (env=%s)", cfg.AppPort, cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}
	log.Println("Server stopped")
}
