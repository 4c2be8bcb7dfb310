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
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/conduithq/email-gateway/internal/models"
)

// IntegrationStore links accounts to platform integration ids.
type IntegrationStore struct {
	pool *pgxpool.Pool
}

// NewIntegrationStore creates an integration store and ensures its table exists.
func NewIntegrationStore(ctx context.Context, pool *pgxpool.Pool) (*IntegrationStore, error) {
	s := &IntegrationStore{pool: pool}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure integrations schema: %w", err)
	}
	slog.Info("integration store initialised")
	return s, nil
}

func (s *IntegrationStore) ensureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS integrations (
			id           TEXT PRIMARY KEY,
			account_id   TEXT NOT NULL UNIQUE,
			erxes_api_id TEXT NOT NULL,
			created_at   TIMESTAMPTZ DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_integrations_erxes ON integrations(erxes_api_id);
	`)
	return err
}

// FindByAccountID returns the integration owning the given account.
func (s *IntegrationStore) FindByAccountID(ctx context.Context, accountID string) (*models.Integration, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, account_id, erxes_api_id, created_at
		FROM integrations
		WHERE account_id = $1
	`, accountID)

	var i models.Integration
	err := row.Scan(&i.ID, &i.AccountID, &i.ErxesAPIID, &i.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &i, nil
}

// RemoveByErxesAPIID deletes the integration linked to a platform
// integration id. Called when the platform disconnects an integration.
func (s *IntegrationStore) RemoveByErxesAPIID(ctx context.Context, erxesAPIID string) error {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM integrations WHERE erxes_api_id = $1
	`, erxesAPIID)
	if err != nil {
		return err
	}
	slog.Info("integration removed", "erxes_api_id", erxesAPIID, "rows", tag.RowsAffected())
	return nil
}
