package main

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/crewtrace/crewtrace/internal/api"
	"github.com/crewtrace/crewtrace/internal/config"
	"github.com/crewtrace/crewtrace/internal/db"
)

// runServe starts the ingestion server and blocks until the context is
// cancelled, then shuts the HTTP server down gracefully.
func runServe(ctx context.Context, env config.Env, cfg *config.TrackingConfig) {
	if len(env.AuthTokens) == 0 {
		log.Fatal("CREWTRACE_AUTH_TOKENS is required for the server (token=subject pairs)")
	}

	database, err := db.NewDB(env.DBPath)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	auth := api.NewStaticTokenAuthenticator(env.AuthTokens)
	mux := api.NewServer(database, auth, cfg).ServeMux()

	// Admin debugging routes (only expose on an operator-trusted listener).
	database.AttachAdminRoutes(mux)

	server := &http.Server{
		Addr:    env.ListenAddr,
		Handler: api.LoggingMiddleware(mux),
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()

		go func() {
			log.Printf("listening on %s", env.ListenAddr)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
		}
		log.Printf("HTTP server routine stopped")
	}()

	wg.Wait()
	log.Printf("Graceful shutdown complete")
}
