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

package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/conduithq/email-gateway/internal/models"
)

// MessageStore persists conversation messages, scoped to one provider
// namespace. The uniqueness constraint on the provider message id is the
// authoritative dedup guard for webhook redelivery.
type MessageStore struct {
	pool     *pgxpool.Pool
	provider string
}

// NewMessageStore creates a message store for a provider namespace and
// ensures its table exists.
func NewMessageStore(ctx context.Context, pool *pgxpool.Pool, provider string) (*MessageStore, error) {
	s := &MessageStore{pool: pool, provider: provider}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure conversation_messages schema: %w", err)
	}
	return s, nil
}

func (s *MessageStore) ensureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS conversation_messages (
			id                  TEXT PRIMARY KEY,
			provider            TEXT NOT NULL,
			conversation_id     TEXT NOT NULL,
			provider_message_id TEXT NOT NULL,
			to_email            TEXT DEFAULT '',
			kind                TEXT DEFAULT '',
			raw                 JSONB,
			created_at          TIMESTAMPTZ DEFAULT NOW(),
			UNIQUE(provider, provider_message_id)
		);
		CREATE INDEX IF NOT EXISTS idx_conv_messages_conversation ON conversation_messages(conversation_id);
	`)
	return err
}

// GetOrCreate finds a message by its provider message id or creates it.
// Redelivered webhooks hit the conflict path and observe the original row.
func (s *MessageStore) GetOrCreate(ctx context.Context, m models.ConversationMessage) (*models.ConversationMessage, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO conversation_messages (id, provider, conversation_id, provider_message_id, to_email, kind, raw)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (provider, provider_message_id) DO UPDATE SET provider_message_id = EXCLUDED.provider_message_id
		RETURNING id, conversation_id, provider_message_id, to_email, kind, raw, created_at
	`, m.ID, s.provider, m.ConversationID, m.ProviderMessageID, m.ToEmail, m.Kind, m.Raw)

	var out models.ConversationMessage
	err := row.Scan(&out.ID, &out.ConversationID, &out.ProviderMessageID,
		&out.ToEmail, &out.Kind, &out.Raw, &out.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("upsert conversation message: %w", err)
	}
	return &out, nil
}

// FindByConversationID returns the first message of a conversation. Draft
// conversations hold exactly one.
func (s *MessageStore) FindByConversationID(ctx context.Context, conversationID string) (*models.ConversationMessage, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, conversation_id, provider_message_id, to_email, kind, raw, created_at
		FROM conversation_messages
		WHERE provider = $1 AND conversation_id = $2
		ORDER BY created_at
		LIMIT 1
	`, s.provider, conversationID)

	var out models.ConversationMessage
	err := row.Scan(&out.ID, &out.ConversationID, &out.ProviderMessageID,
		&out.ToEmail, &out.Kind, &out.Raw, &out.CreatedAt)
	if isNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Delete removes a message. Used when a draft is discarded.
func (s *MessageStore) Delete(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `
		DELETE FROM conversation_messages WHERE provider = $1 AND id = $2
	`, s.provider, id)
	return err
}

func isNoRows(err error) bool {
	return err == pgx.ErrNoRows
}
