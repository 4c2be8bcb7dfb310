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
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/conduithq/email-gateway/internal/models"
)

// AccountStore provides read access to connected provider accounts. The
// platform owns account creation; the gateway looks accounts up by the
// external uid carried in webhook notifications.
type AccountStore struct {
	pool *pgxpool.Pool
}

// NewAccountStore creates an account store and ensures its table exists.
func NewAccountStore(ctx context.Context, pool *pgxpool.Pool) (*AccountStore, error) {
	s := &AccountStore{pool: pool}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure accounts schema: %w", err)
	}
	slog.Info("account store initialised")
	return s, nil
}

func (s *AccountStore) ensureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS accounts (
			id         TEXT PRIMARY KEY,
			uid        TEXT NOT NULL UNIQUE,
			email      TEXT NOT NULL,
			kind       TEXT NOT NULL,
			token      TEXT NOT NULL,
			created_at TIMESTAMPTZ DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_accounts_kind ON accounts(kind);
	`)
	return err
}

// FindByUID looks an account up by its external uid.
func (s *AccountStore) FindByUID(ctx context.Context, uid string) (*models.Account, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, uid, email, kind, token, created_at
		FROM accounts
		WHERE uid = $1
	`, uid)
	return scanAccount(row)
}

// FindByID looks an account up by its internal id.
func (s *AccountStore) FindByID(ctx context.Context, id string) (*models.Account, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, uid, email, kind, token, created_at
		FROM accounts
		WHERE id = $1
	`, id)
	return scanAccount(row)
}

// ListByKind returns all accounts for an integration kind.
func (s *AccountStore) ListByKind(ctx context.Context, kind string) ([]models.Account, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, uid, email, kind, token, created_at
		FROM accounts
		WHERE kind = $1
		ORDER BY email
	`, kind)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []models.Account
	for rows.Next() {
		var a models.Account
		if err := rows.Scan(&a.ID, &a.UID, &a.Email, &a.Kind, &a.Token, &a.CreatedAt); err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// Delete removes an account by internal id.
func (s *AccountStore) Delete(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	return err
}

func scanAccount(row pgx.Row) (*models.Account, error) {
	var a models.Account
	var createdAt time.Time
	err := row.Scan(&a.ID, &a.UID, &a.Email, &a.Kind, &a.Token, &createdAt)
	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	a.CreatedAt = createdAt
	return &a, nil
}
