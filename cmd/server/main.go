// Copyright (c) 2026 John Earle
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Email integration gateway.
//
// Entry point for the gateway service. It:
//  1. Loads configuration from config.yaml
//  2. Connects to PostgreSQL and Redis
//  3. Builds the per-provider store registry and storage pipelines
//  4. Serves the Nylas webhook endpoint for message notifications
//  5. Serves the platform-facing API and health check
//  6. Handles graceful shutdown on SIGTERM/SIGINT
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/conduithq/email-gateway/internal/api"
	"github.com/conduithq/email-gateway/internal/attachment"
	"github.com/conduithq/email-gateway/internal/config"
	"github.com/conduithq/email-gateway/internal/dedup"
	"github.com/conduithq/email-gateway/internal/draft"
	"github.com/conduithq/email-gateway/internal/identity"
	"github.com/conduithq/email-gateway/internal/nylas"
	"github.com/conduithq/email-gateway/internal/pipeline"
	"github.com/conduithq/email-gateway/internal/queue"
	"github.com/conduithq/email-gateway/internal/resolve"
	"github.com/conduithq/email-gateway/internal/store"
	"github.com/conduithq/email-gateway/internal/sync"
	"github.com/conduithq/email-gateway/internal/webhook"
)

func main() {
	// Structured JSON logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	slog.Info("starting email integration gateway")

	// --- Load Configuration ---
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("configuration loaded",
		"providers", cfg.Providers,
		"messages_queue", cfg.MessagesQueue,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- Connect to PostgreSQL ---
	pgPool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to create Postgres pool", "error", err)
		os.Exit(1)
	}
	defer pgPool.Close()

	if err := pgPool.Ping(ctx); err != nil {
		slog.Error("failed to connect to PostgreSQL", "error", err)
		os.Exit(1)
	}
	slog.Info("connected to PostgreSQL")

	// --- Connect to Redis ---
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		slog.Error("invalid REDIS_URL", "error", err)
		os.Exit(1)
	}
	rdb := redis.NewClient(opt)

	publisher := queue.NewPublisher(rdb, cfg.MessagesQueue)
	if err := publisher.Ping(ctx); err != nil {
		slog.Error("failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	slog.Info("connected to Redis")

	// --- Stores ---
	accounts, err := store.NewAccountStore(ctx, pgPool)
	if err != nil {
		slog.Error("failed to initialise account store", "error", err)
		os.Exit(1)
	}
	integrations, err := store.NewIntegrationStore(ctx, pgPool)
	if err != nil {
		slog.Error("failed to initialise integration store", "error", err)
		os.Exit(1)
	}
	registry, err := store.NewRegistry(ctx, pgPool, cfg.Providers)
	if err != nil {
		slog.Error("failed to initialise provider stores", "error", err)
		os.Exit(1)
	}

	// --- Provider Client ---
	client := nylas.NewClient(cfg.NylasAPIURL)

	// --- Storage Pipelines ---
	// One runner per provider kind, built once at startup so an unknown
	// provider fails here rather than mid-sync.
	runners := make(map[string]*pipeline.Runner, len(cfg.Providers))
	for _, p := range cfg.Providers {
		handles, err := registry.Lookup(p)
		if err != nil {
			slog.Error("failed to build pipeline", "provider", p, "error", err)
			os.Exit(1)
		}
		runners[p] = pipeline.NewRunner(
			&pipeline.CustomerStage{Store: handles.Customers},
			&pipeline.ConversationStage{Store: handles.Conversations},
			&pipeline.MessageStage{Store: handles.Messages},
		)
	}
	runnerLookup := func(provider string) (*pipeline.Runner, error) {
		r, ok := runners[provider]
		if !ok {
			return nil, fmt.Errorf("unknown provider %q", provider)
		}
		return r, nil
	}

	// --- Sync Service ---
	resolver := resolve.NewResolver(accounts, integrations)
	filter := dedup.NewFilter(rdb)
	syncSvc := sync.NewService(resolver, client, filter, runnerLookup, publisher)

	// --- Draft Manager ---
	draftStores := func(provider string) (draft.ConversationStore, draft.MessageStore, error) {
		handles, err := registry.Lookup(provider)
		if err != nil {
			return nil, nil, err
		}
		return handles.Conversations, handles.Messages, nil
	}
	drafts := draft.NewManager(client, draftStores)

	// --- Attachments + Identity ---
	attachments := attachment.NewTransfer(client)
	ident := identity.NewResolver(client)

	// --- Webhook Server ---
	// Started before the API so Nylas endpoint validation succeeds as soon
	// as the process is up.
	handler := webhook.NewHandler(syncSvc, cfg.NylasClientSecret)
	ready, err := webhook.Serve(ctx, cfg.WebhookPort, handler)
	if err != nil {
		slog.Error("failed to start webhook server", "error", err)
		os.Exit(1)
	}
	<-ready

	// --- API + Health Server ---
	mux := http.NewServeMux()
	api.NewServer(syncSvc, drafts, attachments, ident, accounts, integrations).Register(mux)

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		// Check Redis
		if err := publisher.Ping(r.Context()); err != nil {
			http.Error(w, "redis unhealthy", http.StatusServiceUnavailable)
			return
		}
		// Check Postgres
		if err := pgPool.Ping(r.Context()); err != nil {
			http.Error(w, "postgres unhealthy", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy"}`))
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	// --- Graceful Shutdown ---
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
		sig := <-sigCh

		slog.Info("received shutdown signal", "signal", sig)
		cancel() // Stop the webhook server and background goroutines

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}

		rdb.Close()
		pgPool.Close()
	}()

	slog.Info("gateway API listening", "addr", addr)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("gateway stopped")
}
