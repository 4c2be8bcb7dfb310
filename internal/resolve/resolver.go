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

// Package resolve maps the opaque external account identifier carried in a
// webhook notification to the internal account and integration records.
package resolve

import (
	"context"
	"fmt"

	"github.com/conduithq/email-gateway/internal/models"
)

// AccountStore is the lookup surface the resolver needs. Implemented by
// store.AccountStore.
type AccountStore interface {
	FindByUID(ctx context.Context, uid string) (*models.Account, error)
}

// IntegrationStore is the integration lookup surface. Implemented by
// store.IntegrationStore.
type IntegrationStore interface {
	FindByAccountID(ctx context.Context, accountID string) (*models.Integration, error)
}

// Resolver resolves webhook account identifiers to internal entities.
type Resolver struct {
	accounts     AccountStore
	integrations IntegrationStore
}

// NewResolver creates a resolver over the given stores.
func NewResolver(accounts AccountStore, integrations IntegrationStore) *Resolver {
	return &Resolver{accounts: accounts, integrations: integrations}
}

// Resolve returns the account and integration owning the external uid. A
// miss on either surfaces store.ErrNotFound via the wrapped error; callers
// treat that as a clean no-op for the event.
func (r *Resolver) Resolve(ctx context.Context, uid string) (*models.Account, *models.Integration, error) {
	account, err := r.accounts.FindByUID(ctx, uid)
	if err != nil {
		return nil, nil, fmt.Errorf("account with uid %s: %w", uid, err)
	}

	integration, err := r.integrations.FindByAccountID(ctx, account.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("integration for account %s: %w", account.ID, err)
	}

	return account, integration, nil
}
