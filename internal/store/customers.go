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

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/conduithq/email-gateway/internal/models"
)

// CustomerStore persists counterpart identities, scoped to one provider
// namespace.
type CustomerStore struct {
	pool     *pgxpool.Pool
	provider string
}

// NewCustomerStore creates a customer store for a provider namespace and
// ensures its table exists.
func NewCustomerStore(ctx context.Context, pool *pgxpool.Pool, provider string) (*CustomerStore, error) {
	s := &CustomerStore{pool: pool, provider: provider}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure customers schema: %w", err)
	}
	return s, nil
}

func (s *CustomerStore) ensureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS customers (
			id             TEXT PRIMARY KEY,
			provider       TEXT NOT NULL,
			email          TEXT NOT NULL,
			name           TEXT DEFAULT '',
			integration_id TEXT NOT NULL,
			erxes_api_id   TEXT DEFAULT '',
			created_at     TIMESTAMPTZ DEFAULT NOW(),
			UNIQUE(provider, email, integration_id)
		);
	`)
	return err
}

// GetOrCreate finds a customer by its natural key (email + integration) or
// creates it. The uniqueness constraint makes concurrent creates converge on
// a single row.
func (s *CustomerStore) GetOrCreate(ctx context.Context, c models.Customer) (*models.Customer, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO customers (id, provider, email, name, integration_id, erxes_api_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (provider, email, integration_id) DO UPDATE SET email = EXCLUDED.email
		RETURNING id, email, name, integration_id, erxes_api_id, created_at
	`, c.ID, s.provider, c.Email, c.Name, c.IntegrationID, c.ErxesAPIID)

	var out models.Customer
	if err := row.Scan(&out.ID, &out.Email, &out.Name, &out.IntegrationID, &out.ErxesAPIID, &out.CreatedAt); err != nil {
		return nil, fmt.Errorf("upsert customer: %w", err)
	}
	return &out, nil
}

// FindByEmail looks a customer up by email within an integration.
func (s *CustomerStore) FindByEmail(ctx context.Context, email, integrationID string) (*models.Customer, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, email, name, integration_id, erxes_api_id, created_at
		FROM customers
		WHERE provider = $1 AND email = $2 AND integration_id = $3
	`, s.provider, email, integrationID)

	var out models.Customer
	err := row.Scan(&out.ID, &out.Email, &out.Name, &out.IntegrationID, &out.ErxesAPIID, &out.CreatedAt)
	if isNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}
