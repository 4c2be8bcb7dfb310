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

// Package models defines the data structures shared across the gateway.
package models

import (
	"encoding/json"
	"time"
)

// Account represents one connected provider identity. Accounts are created
// by the platform when a user connects a mailbox; the gateway only reads them.
type Account struct {
	ID        string
	UID       string // opaque external account identifier (webhook key)
	Email     string
	Kind      string // "gmail", "nylas"
	Token     string // provider access token — never logged
	CreatedAt time.Time
}

// Integration links an Account to the platform-side integration id.
type Integration struct {
	ID         string
	AccountID  string
	ErxesAPIID string
	CreatedAt  time.Time
}

// IntegrationIDs is the pair of identifiers a stored document carries so the
// platform can route it back to the owning integration.
type IntegrationIDs struct {
	ID         string `json:"id"`
	ErxesAPIID string `json:"erxesApiId"`
}

// Customer is the counterpart identity resolved or created from a message's
// sender address.
type Customer struct {
	ID            string
	Email         string
	Name          string
	IntegrationID string
	ErxesAPIID    string
	CreatedAt     time.Time
}

// Conversation is the canonical thread container. DraftID is set only while
// an unsent draft exists for the thread.
type Conversation struct {
	ID            string
	ThreadID      string
	IntegrationID string
	ErxesAPIID    string
	CustomerID    string
	ToEmail       string
	DraftID       string
	CreatedAt     time.Time
}

// ConversationMessage is one stored message within a Conversation. Raw holds
// the provider message payload verbatim.
type ConversationMessage struct {
	ID                string
	ConversationID    string
	ProviderMessageID string
	ToEmail           string
	Kind              string
	Raw               json.RawMessage
	CreatedAt         time.Time
}

// NormalizedDoc is the canonical document shape produced by the message
// normalizer and consumed by the storage pipeline.
type NormalizedDoc struct {
	Kind              string
	ProviderMessageID string
	ThreadID          string
	FromEmail         string
	FromName          string
	Subject           string
	ToEmail           string
	IntegrationIDs    IntegrationIDs
	Message           json.RawMessage // raw provider message payload
}
