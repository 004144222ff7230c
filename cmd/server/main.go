package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"

	"gwi.com/deepchat/internal/api"
	"gwi.com/deepchat/internal/auth"
	"gwi.com/deepchat/internal/config"
	"gwi.com/deepchat/internal/core"
	"gwi.com/deepchat/internal/identity"
	"gwi.com/deepchat/internal/store"
)

func main() {
	// Load configuration
	config.LoadConfig()

	// Setup logging
	level, err := log.ParseLevel(config.AppConfig.LogLevel)
	if err != nil {
		log.Warnf("Unknown LOG_LEVEL %q, using info", config.AppConfig.LogLevel)
		level = log.InfoLevel
	}
	log.SetLevel(level)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.Debug("Service starting in DEBUG mode")

	mintToken := flag.String("mint-token", "", "Print a bearer token for the given user id and exit")
	flag.Parse()

	tokens := auth.NewTokenManager(config.AppConfig.JWTSecret)
	if *mintToken != "" {
		token, err := tokens.GenerateJWT(*mintToken)
		if err != nil {
			log.Fatalf("Failed to mint token: %v", err)
		}
		fmt.Println(token)
		os.Exit(0)
	}

	// The store is dialed lazily on first use and redialed after a failure.
	stores := store.NewConnector(func(ctx context.Context) (store.Store, error) {
		return store.Open(ctx, config.AppConfig.DatabaseURL)
	})
	defer stores.Close()

	provider, err := core.NewCompletionProvider(context.Background(), config.AppConfig)
	if err != nil {
		log.Fatalf("Failed to initialize completion provider: %v", err)
	}
	if gemini, ok := provider.(*core.GeminiProvider); ok {
		defer gemini.Close()
	}

	var verifier *identity.Verifier
	if config.AppConfig.SigningSecret != "" {
		verifier, err = identity.NewVerifier(config.AppConfig.SigningSecret)
		if err != nil {
			log.Fatalf("Invalid SIGNING_SECRET: %v", err)
		}
	}

	chatService := core.NewChatService(stores)
	relayService := core.NewRelayService(stores, provider, config.AppConfig.RelayTimeout)

	// Initialize API Handler and Router
	apiHandler := api.NewAPIHandler(chatService, relayService, tokens, identity.NewSyncer(stores), verifier)
	router := api.NewRouter(apiHandler)

	serverAddr := fmt.Sprintf(":%s", config.AppConfig.HTTPPort)

	srv := &http.Server{
		Addr:        serverAddr,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		// Streams are cut off by the relay timeout first.
		WriteTimeout: config.AppConfig.RelayTimeout + 15*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown handling
	go func() {
		log.Infof("Starting server on %s. Press Ctrl+C to quit.", serverAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not listen on %s: %v", serverAddr, err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorf("Server forced to shutdown: %v", err)
	}

	log.Info("Server exiting gracefully")
}
