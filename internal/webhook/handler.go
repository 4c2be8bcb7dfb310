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

// Package webhook handles incoming Nylas webhook notifications. When a
// subscribed mailbox receives a new message, Nylas POSTs a delta carrying
// only identifiers; this handler verifies the signature, acknowledges
// immediately, and hands the identifiers to the sync service in the
// background.
package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"

	"github.com/conduithq/email-gateway/internal/models"
)

// Delta is a single change notification from Nylas.
type Delta struct {
	Date       int64  `json:"date"`
	Object     string `json:"object"`
	Type       string `json:"type"`
	ObjectData struct {
		NamespaceID string `json:"namespace_id"`
		AccountID   string `json:"account_id"`
		Object      string `json:"object"`
		ID          string `json:"id"`
	} `json:"object_data"`
}

// Payload is the wrapper Nylas sends.
type Payload struct {
	Deltas []Delta `json:"deltas"`
}

// Syncer processes one message notification. Implemented by sync.Service.
type Syncer interface {
	SyncMessage(ctx context.Context, accountUID, messageID string) (*models.ConversationMessage, error)
}

// Handler processes Nylas webhook requests.
type Handler struct {
	syncer       Syncer
	clientSecret string // HMAC key for X-Nylas-Signature; empty disables verification
}

// NewHandler creates a webhook handler. An empty clientSecret disables
// signature verification (local development only).
func NewHandler(syncer Syncer, clientSecret string) *Handler {
	return &Handler{
		syncer:       syncer,
		clientSecret: clientSecret,
	}
}

// ServeNotification handles webhook requests.
//
// Nylas validation flow:
//   - When registering a webhook, Nylas sends a GET with ?challenge=<token>
//   - We must respond 200 OK with the token in plain text
//
// Normal notification flow:
//   - Nylas POSTs a JSON body with an array of deltas, signed via the
//     X-Nylas-Signature header (HMAC-SHA256 over the raw body)
//   - We respond 200 OK immediately and process in the background
func (h *Handler) ServeNotification(w http.ResponseWriter, r *http.Request) {
	// Handle validation probe
	if challenge := r.URL.Query().Get("challenge"); challenge != "" {
		slog.Info("webhook validation probe received")
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(challenge))
		return
	}

	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusOK)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		slog.Error("failed to read notification body", "error", err)
		w.WriteHeader(http.StatusOK)
		return
	}

	if !h.verifySignature(body, r.Header.Get("X-Nylas-Signature")) {
		slog.Warn("webhook signature mismatch, possible spoofed notification")
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	var payload Payload
	if err := json.Unmarshal(body, &payload); err != nil {
		slog.Info("notification body not valid JSON, treating as probe",
			"body_len", len(body),
		)
		w.WriteHeader(http.StatusOK)
		return
	}

	// Respond immediately — Nylas retries on anything but a fast 200
	w.WriteHeader(http.StatusOK)

	go h.processDeltas(context.Background(), payload.Deltas)
}

// verifySignature checks the HMAC-SHA256 signature over the raw body.
func (h *Handler) verifySignature(body []byte, signature string) bool {
	if h.clientSecret == "" {
		return true
	}

	mac := hmac.New(sha256.New, []byte(h.clientSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(signature))
}

// processDeltas runs each message-creation delta through the sync service.
func (h *Handler) processDeltas(ctx context.Context, deltas []Delta) {
	for _, d := range deltas {
		if d.Type != "message.created" {
			slog.Debug("skipping delta",
				"type", d.Type,
				"object", d.Object,
			)
			continue
		}

		accountUID := d.ObjectData.AccountID
		messageID := d.ObjectData.ID
		if accountUID == "" || messageID == "" {
			slog.Warn("delta missing identifiers",
				"account_id", accountUID,
				"message_id", messageID,
			)
			continue
		}

		slog.Info("processing message delta",
			"account_uid", accountUID,
			"message_id", messageID,
		)

		if _, err := h.syncer.SyncMessage(ctx, accountUID, messageID); err != nil {
			// Redelivery will retry; storage is idempotent.
			slog.Error("sync failed",
				"message_id", messageID,
				"error", err,
			)
		}
	}
}

// Serve starts the webhook HTTP server on the given port. It binds the port
// immediately and signals readiness via the returned channel before starting
// to accept connections.
func Serve(ctx context.Context, port int, handler *Handler) (<-chan struct{}, error) {
	mux := http.NewServeMux()
	mux.HandleFunc("/nylas/webhook", handler.ServeNotification)

	server := &http.Server{
		Handler: mux,
	}

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, fmt.Errorf("bind webhook port %d: %w", port, err)
	}

	ready := make(chan struct{})

	go func() {
		<-ctx.Done()
		slog.Info("webhook server shutting down")
		server.Close()
	}()

	go func() {
		slog.Info("webhook server listening", "port", port)
		close(ready)
		if err := server.Serve(ln); err != http.ErrServerClosed {
			slog.Error("webhook server error", "error", err)
		}
	}()

	return ready, nil
}
