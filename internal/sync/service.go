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

// Package sync orchestrates the message synchronization flow: resolve the
// account and integration behind a webhook notification, fetch the full
// message from the provider, normalize it, and run the storage pipeline.
package sync

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/conduithq/email-gateway/internal/models"
	"github.com/conduithq/email-gateway/internal/nylas"
	"github.com/conduithq/email-gateway/internal/pipeline"
	"github.com/conduithq/email-gateway/internal/store"
)

// Resolver maps an external account uid to internal records. Implemented by
// resolve.Resolver.
type Resolver interface {
	Resolve(ctx context.Context, uid string) (*models.Account, *models.Integration, error)
}

// Fetcher is the provider surface the service needs. Implemented by
// nylas.Client.
type Fetcher interface {
	GetMessage(ctx context.Context, accessToken, messageID string) (*nylas.Message, error)
	ListMessages(ctx context.Context, accessToken string, filter nylas.Filter) ([]nylas.Message, error)
}

// Deduper short-circuits already-processed message ids. Implemented by
// dedup.Filter.
type Deduper interface {
	Seen(ctx context.Context, messageID string) (bool, error)
	MarkSeen(ctx context.Context, messageID string) error
}

// Notifier publishes stored messages to the platform. Implemented by
// queue.Publisher.
type Notifier interface {
	PublishMessageEvent(ctx context.Context, provider string, msg *models.ConversationMessage, erxesAPIID string) error
}

// RunnerLookup returns the storage pipeline for a provider kind. Unknown
// kinds are an error, resolved at startup wiring rather than deep inside a
// sync.
type RunnerLookup func(provider string) (*pipeline.Runner, error)

// Service implements the gateway's message boundary operations.
type Service struct {
	resolver Resolver
	client   Fetcher
	dedup    Deduper
	runners  RunnerLookup
	notifier Notifier
}

// NewService creates the sync service. notifier may be nil when no platform
// queue is configured.
func NewService(resolver Resolver, client Fetcher, dedup Deduper, runners RunnerLookup, notifier Notifier) *Service {
	return &Service{
		resolver: resolver,
		client:   client,
		dedup:    dedup,
		runners:  runners,
		notifier: notifier,
	}
}

// SyncMessage processes one webhook notification: it fetches the referenced
// message and stores it through the pipeline. Two outcomes are clean no-ops
// returning (nil, nil): an unknown account (expected race with disconnects)
// and a suppressed self-send. Provider and storage errors are returned so
// webhook redelivery retries the event; every stage is idempotent, so a
// retry is always safe.
func (s *Service) SyncMessage(ctx context.Context, accountUID, messageID string) (*models.ConversationMessage, error) {
	account, integration, err := s.resolver.Resolve(ctx, accountUID)
	if err != nil {
		if store.IsNotFound(err) {
			slog.Info("sync skipped, account or integration missing",
				"uid", accountUID,
				"reason", err.Error(),
			)
			return nil, nil
		}
		return nil, fmt.Errorf("resolve account %s: %w", accountUID, err)
	}

	seen, err := s.dedup.Seen(ctx, messageID)
	if err != nil {
		slog.Warn("dedup check failed, proceeding", "error", err)
	} else if seen {
		slog.Debug("skipping duplicate message", "message_id", messageID)
		return nil, nil
	}

	msg, err := s.client.GetMessage(ctx, account.Token, messageID)
	if err != nil {
		slog.Error("fetch message failed",
			"message_id", messageID,
			"error", err,
		)
		return nil, err
	}

	doc, ok := normalize(account, integration, msg)
	if !ok {
		slog.Info("message suppressed, self-send without reply marker",
			"message_id", messageID,
		)
		return nil, nil
	}

	runner, err := s.runners(account.Kind)
	if err != nil {
		return nil, err
	}

	stored, err := runner.Run(ctx, &pipeline.Doc{NormalizedDoc: *doc})
	if err != nil {
		return nil, fmt.Errorf("store message %s: %w", messageID, err)
	}

	if err := s.dedup.MarkSeen(ctx, messageID); err != nil {
		slog.Warn("failed to mark message as seen", "message_id", messageID, "error", err)
	}

	if s.notifier != nil {
		if err := s.notifier.PublishMessageEvent(ctx, account.Kind, stored, integration.ErxesAPIID); err != nil {
			slog.Warn("publish stored message event failed",
				"message_id", stored.ID,
				"error", err,
			)
		}
	}

	slog.Info("message synced",
		"message_id", messageID,
		"conversation_id", stored.ConversationID,
	)

	return stored, nil
}

// GetMessages lists provider messages matching the filter.
func (s *Service) GetMessages(ctx context.Context, accessToken string, filter nylas.Filter) ([]nylas.Message, error) {
	return s.client.ListMessages(ctx, accessToken, filter)
}

// GetMessageByID fetches a single provider message.
func (s *Service) GetMessageByID(ctx context.Context, accessToken, messageID string) (*nylas.Message, error) {
	return s.client.GetMessage(ctx, accessToken, messageID)
}
