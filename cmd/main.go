package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"chat-hub/auth"
	"chat-hub/contract"
	"chat-hub/infrastructure/rest"
	"chat-hub/infrastructure/ws"
	"chat-hub/moderation"
	"chat-hub/repositories"
	"chat-hub/runtime"
	"chat-hub/runtime/workers"
	"chat-hub/services"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the server lifecycle, and centralizes
// error reporting so every defer (database close included) executes before exit.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Database (BadgerDB)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.INFO))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	// 3. Hub core: registry owned by the router, presence derived from it
	censor, err := buildCensor(config, log)
	if err != nil {
		return err
	}
	store := repositories.NewMessageStore(db, log)
	registry := runtime.NewRegistry()
	presence := runtime.NewPresenceBroadcaster(log)
	router := runtime.NewRouter(log, registry, store, censor, presence, config.BufferSize)
	chatService := services.NewChatService(router, store)

	// 4. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The wire protocol stays silent on failure; keep a trace of what was swallowed.
	go func() {
		for err := range router.Errors() {
			log.Warn(fmt.Sprintf("Swallowed hub error: %v", err))
		}
	}()

	sup := workers.NewSupervisor(log, config.RestartInterval)
	sup.Add(router)
	supDone := make(chan struct{})
	go func() {
		defer close(supDone)
		sup.Run(ctx)
	}()

	// 5. HTTP surface: websocket upgrade + chat history REST
	tokens := auth.NewTokenValidator(config.JWTSecret)
	wsHandler := ws.NewHandler(log, router, tokens,
		config.ConnectionBufferSize, config.MaxMessageSize, splitOrigins(config.AllowedOrigins))

	mux := chi.NewRouter()
	mux.Method(http.MethodGet, "/ws", wsHandler)
	mux.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	rest.NewChatHandler(log, chatService).Mount(mux)

	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	server := &http.Server{Addr: address, Handler: mux}

	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "address", address, "at", time.Now().UTC())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	// 6. Wait for Stop or Error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errChan:
		return err
	}

	// 7. Final Cleanup
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
	stop()
	<-supDone
	log.Info("Program stopped cleanly")

	return nil
}

func buildCensor(config Config, log *slog.Logger) (contract.ICensor, error) {
	if !config.EnableModeration {
		return moderation.Passthrough{}, nil
	}
	replacement, err := characterRune(config.CensorReplacement)
	if err != nil {
		return nil, err
	}
	lists, err := moderation.LoadWordlists()
	if err != nil {
		return nil, fmt.Errorf("loading wordlists: %w", err)
	}
	log.Info(fmt.Sprintf("%d censored words loaded [%s]",
		len(lists.Words), strings.Join(lists.Languages, ",")))
	return moderation.NewModerator(lists.Words, replacement)
}

func splitOrigins(csv string) []string {
	if csv == "" {
		return nil
	}
	var origins []string
	for _, o := range strings.Split(csv, ",") {
		if trimmed := strings.TrimSpace(o); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}
