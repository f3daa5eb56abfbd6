/*
Package main is the entry point for the Stage Chat application.

It is responsible for loading configuration, initializing the global logging system,
selecting the backing store set, wiring the optional image host and push dispatcher,
setting up the HTTP server, and gracefully handling operating system interrupt
signals (SIGINT, SIGTERM) to ensure a smooth server shutdown.
*/
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stagechat/internal/app/chat"
	"stagechat/internal/app/identity"
	"stagechat/internal/app/profile"
	"stagechat/internal/app/push"
	"stagechat/internal/app/room"
	"stagechat/internal/app/storage"
	"stagechat/internal/app/store/memory"
	"stagechat/internal/app/store/postgres"
	"stagechat/internal/configs"
	"stagechat/internal/handler"
	"stagechat/internal/pkg/logx"
)

func main() {
	// Load configuration from environment variables
	cfg, err := configs.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize global logger
	logx.Init(cfg.Environment == "development")
	logx.Logger().Info().
		Str("environment", cfg.Environment).
		Int("port", cfg.Port).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Bool("persistent_store", cfg.DatabaseDSN != "").
		Bool("storage_enabled", cfg.StorageEnabled()).
		Bool("push_enabled", cfg.PushEnabled()).
		Msg("Configuration loaded successfully")

	// Create a context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Select the store set. An empty DSN runs everything in memory.
	var (
		identityStore identity.Store
		rooms         room.Directory
		messages      room.MessageLog
		profiles      profile.Registry
	)

	if cfg.DatabaseDSN != "" {
		pool, err := postgres.NewPool(cfg.DatabaseDSN)
		if err != nil {
			logx.Fatal(err, "Failed to connect to the database")
		}
		defer pool.Close()

		identityStore = postgres.NewIdentityStore(pool)
		chatStore := postgres.NewChatStore(pool)
		rooms, messages = chatStore, chatStore
		profiles = postgres.NewProfileRegistry(pool)
	} else {
		logx.Warn("No database DSN configured, using in-memory stores")

		identityStore = memory.NewIdentityStore()
		chatStore := memory.NewChatStore()
		rooms, messages = chatStore, chatStore
		profiles = memory.NewProfileRegistry()
	}

	// Push subscriptions live in memory; browsers re-subscribe on load.
	subscriptions := memory.NewSubscriptionStore()

	var dispatcher *push.Dispatcher
	if cfg.PushEnabled() {
		sender := push.NewWebPushSender(cfg.VAPIDSubject, cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey)
		dispatcher = push.NewDispatcher(subscriptions, sender)
	}

	var imageHost storage.ImageHost
	if cfg.StorageEnabled() {
		imageHost, err = storage.NewImageHost(storage.ServiceConfig{
			S3BucketName:      cfg.S3BucketName,
			S3Endpoint:        cfg.S3Endpoint,
			S3PublicBaseURL:   cfg.S3PublicBaseURL,
			S3AccessKeyID:     cfg.S3AccessKeyID,
			S3SecretAccessKey: cfg.S3SecretAccessKey,
		})
		if err != nil {
			logx.Fatal(err, "Failed to initialize image host")
		}
	}

	hub := chat.NewHub()
	chatDeps := &chat.Deps{
		Auth:          identity.NewAuthenticator(identityStore),
		Rooms:         rooms,
		Messages:      messages,
		Profiles:      profiles,
		Subscriptions: subscriptions,
		Dispatcher:    dispatcher,
	}

	// Setup HTTP server and routes
	router := handler.Router(&handler.AppDeps{
		Hub:       hub,
		ChatDeps:  chatDeps,
		Config:    cfg,
		ImageHost: imageHost,
	})

	serverAddr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logx.Info(fmt.Sprintf("Stage Chat Server starting on http://localhost%s", serverAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logx.Fatal(err, "Server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server with a timeout of 5 seconds.
	<-ctx.Done()
	logx.Info("Received shutdown signal. Starting graceful shutdown...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logx.Fatal(err, "Server forced to shutdown")
	}

	hub.Shutdown()

	logx.Info("Server gracefully stopped.")
}
