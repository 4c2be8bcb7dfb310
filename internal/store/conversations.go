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

// ConversationStore persists canonical thread containers, scoped to one
// provider namespace.
type ConversationStore struct {
	pool     *pgxpool.Pool
	provider string
}

// NewConversationStore creates a conversation store for a provider namespace
// and ensures its table exists.
func NewConversationStore(ctx context.Context, pool *pgxpool.Pool, provider string) (*ConversationStore, error) {
	s := &ConversationStore{pool: pool, provider: provider}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure conversations schema: %w", err)
	}
	return s, nil
}

func (s *ConversationStore) ensureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS conversations (
			id             TEXT PRIMARY KEY,
			provider       TEXT NOT NULL,
			thread_id      TEXT NOT NULL,
			integration_id TEXT NOT NULL,
			erxes_api_id   TEXT DEFAULT '',
			customer_id    TEXT DEFAULT '',
			to_email       TEXT DEFAULT '',
			draft_id       TEXT DEFAULT '',
			created_at     TIMESTAMPTZ DEFAULT NOW(),
			UNIQUE(provider, thread_id, integration_id)
		);
		CREATE INDEX IF NOT EXISTS idx_conversations_draft ON conversations(draft_id) WHERE draft_id <> '';
	`)
	return err
}

// GetOrCreate finds a conversation by thread + integration or creates it.
func (s *ConversationStore) GetOrCreate(ctx context.Context, c models.Conversation) (*models.Conversation, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO conversations (id, provider, thread_id, integration_id, erxes_api_id, customer_id, to_email, draft_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (provider, thread_id, integration_id) DO UPDATE SET thread_id = EXCLUDED.thread_id
		RETURNING id, thread_id, integration_id, erxes_api_id, customer_id, to_email, draft_id, created_at
	`, c.ID, s.provider, c.ThreadID, c.IntegrationID, c.ErxesAPIID, c.CustomerID, c.ToEmail, c.DraftID)

	var out models.Conversation
	err := row.Scan(&out.ID, &out.ThreadID, &out.IntegrationID, &out.ErxesAPIID,
		&out.CustomerID, &out.ToEmail, &out.DraftID, &out.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("upsert conversation: %w", err)
	}
	return &out, nil
}

// FindByDraftID locates the conversation holding an unsent draft.
func (s *ConversationStore) FindByDraftID(ctx context.Context, draftID string) (*models.Conversation, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, thread_id, integration_id, erxes_api_id, customer_id, to_email, draft_id, created_at
		FROM conversations
		WHERE provider = $1 AND draft_id = $2
	`, s.provider, draftID)
	return scanConversation(row)
}

// FindByID returns a conversation by internal id.
func (s *ConversationStore) FindByID(ctx context.Context, id string) (*models.Conversation, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, thread_id, integration_id, erxes_api_id, customer_id, to_email, draft_id, created_at
		FROM conversations
		WHERE provider = $1 AND id = $2
	`, s.provider, id)
	return scanConversation(row)
}

// Delete removes a conversation. Used when a draft is discarded.
func (s *ConversationStore) Delete(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `
		DELETE FROM conversations WHERE provider = $1 AND id = $2
	`, s.provider, id)
	return err
}

func scanConversation(row pgx.Row) (*models.Conversation, error) {
	var out models.Conversation
	err := row.Scan(&out.ID, &out.ThreadID, &out.IntegrationID, &out.ErxesAPIID,
		&out.CustomerID, &out.ToEmail, &out.DraftID, &out.CreatedAt)
	if isNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}
