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

// Package queue publishes stored-message events to Redis for the platform
// API to consume. Publishing is best-effort — the message is already
// persisted by the time an event is emitted.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/conduithq/email-gateway/internal/models"
)

// Publisher sends stored-message events to a Redis list.
type Publisher struct {
	rdb       *redis.Client
	queueName string
}

// NewPublisher creates a publisher targeting the specified queue.
func NewPublisher(rdb *redis.Client, queueName string) *Publisher {
	return &Publisher{
		rdb:       rdb,
		queueName: queueName,
	}
}

// messageEvent is the envelope the platform consumes.
type messageEvent struct {
	EventID           string `json:"event_id"`
	Type              string `json:"type"`
	Provider          string `json:"provider"`
	ErxesAPIID        string `json:"erxes_api_id"`
	ConversationID    string `json:"conversation_id"`
	MessageID         string `json:"message_id"`
	ProviderMessageID string `json:"provider_message_id"`
	ToEmail           string `json:"to_email"`
	Kind              string `json:"kind"`
	OccurredAt        string `json:"occurred_at"`
}

// PublishMessageEvent emits a conversation-message.created event.
func (p *Publisher) PublishMessageEvent(ctx context.Context, provider string, msg *models.ConversationMessage, erxesAPIID string) error {
	event := messageEvent{
		EventID:           uuid.New().String(),
		Type:              "conversation-message.created",
		Provider:          provider,
		ErxesAPIID:        erxesAPIID,
		ConversationID:    msg.ConversationID,
		MessageID:         msg.ID,
		ProviderMessageID: msg.ProviderMessageID,
		ToEmail:           msg.ToEmail,
		Kind:              msg.Kind,
		OccurredAt:        time.Now().UTC().Format(time.RFC3339),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal message event: %w", err)
	}

	if err := p.rdb.LPush(ctx, p.queueName, payload).Err(); err != nil {
		return fmt.Errorf("redis LPUSH: %w", err)
	}

	slog.Info("published stored message event",
		"event_id", event.EventID,
		"message_id", msg.ID,
		"queue", p.queueName,
	)

	return nil
}

// Ping checks the Redis connection.
func (p *Publisher) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return p.rdb.Ping(ctx).Err()
}
