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
)

// Handles is the set of provider-scoped stores the pipeline and draft
// manager operate on.
type Handles struct {
	Customers     *CustomerStore
	Conversations *ConversationStore
	Messages      *MessageStore
}

// Registry maps provider kinds ("gmail", "nylas") to their store handles.
// It is built once at startup; unknown provider keys fail at lookup rather
// than deep inside a sync operation.
type Registry struct {
	handles map[string]*Handles
}

// NewRegistry builds store handles for each configured provider kind.
func NewRegistry(ctx context.Context, pool *pgxpool.Pool, providers []string) (*Registry, error) {
	r := &Registry{handles: make(map[string]*Handles, len(providers))}

	for _, p := range providers {
		customers, err := NewCustomerStore(ctx, pool, p)
		if err != nil {
			return nil, err
		}
		conversations, err := NewConversationStore(ctx, pool, p)
		if err != nil {
			return nil, err
		}
		messages, err := NewMessageStore(ctx, pool, p)
		if err != nil {
			return nil, err
		}

		r.handles[p] = &Handles{
			Customers:     customers,
			Conversations: conversations,
			Messages:      messages,
		}
	}

	return r, nil
}

// Lookup returns the store handles for a provider kind.
func (r *Registry) Lookup(provider string) (*Handles, error) {
	h, ok := r.handles[provider]
	if !ok {
		return nil, fmt.Errorf("unknown provider %q", provider)
	}
	return h, nil
}

// Providers returns the registered provider kinds.
func (r *Registry) Providers() []string {
	out := make([]string, 0, len(r.handles))
	for p := range r.handles {
		out = append(out, p)
	}
	return out
}
