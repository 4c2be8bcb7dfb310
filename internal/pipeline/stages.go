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

package pipeline

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/conduithq/email-gateway/internal/models"
)

// CustomerStore is the find-or-create surface the customer stage needs.
// Implemented by store.CustomerStore.
type CustomerStore interface {
	GetOrCreate(ctx context.Context, c models.Customer) (*models.Customer, error)
}

// ConversationStore is the find-or-create surface the conversation stage needs.
type ConversationStore interface {
	GetOrCreate(ctx context.Context, c models.Conversation) (*models.Conversation, error)
}

// MessageStore is the find-or-create surface the message stage needs.
type MessageStore interface {
	GetOrCreate(ctx context.Context, m models.ConversationMessage) (*models.ConversationMessage, error)
}

// CustomerStage resolves or creates the counterpart identity from the
// message sender.
type CustomerStage struct {
	Store CustomerStore
}

func (s *CustomerStage) Name() string { return "customer" }

func (s *CustomerStage) Run(ctx context.Context, doc *Doc) error {
	customer, err := s.Store.GetOrCreate(ctx, models.Customer{
		ID:            uuid.New().String(),
		Email:         doc.FromEmail,
		Name:          doc.FromName,
		IntegrationID: doc.IntegrationIDs.ID,
		ErxesAPIID:    doc.IntegrationIDs.ErxesAPIID,
	})
	if err != nil {
		return err
	}

	doc.Customer = customer
	return nil
}

// ConversationStage resolves or creates the thread container.
type ConversationStage struct {
	Store ConversationStore
}

func (s *ConversationStage) Name() string { return "conversation" }

func (s *ConversationStage) Run(ctx context.Context, doc *Doc) error {
	if doc.Customer == nil {
		return fmt.Errorf("customer not resolved")
	}

	conversation, err := s.Store.GetOrCreate(ctx, models.Conversation{
		ID:            uuid.New().String(),
		ThreadID:      doc.ThreadID,
		IntegrationID: doc.IntegrationIDs.ID,
		ErxesAPIID:    doc.IntegrationIDs.ErxesAPIID,
		CustomerID:    doc.Customer.ID,
		ToEmail:       doc.ToEmail,
	})
	if err != nil {
		return err
	}

	doc.Conversation = conversation
	return nil
}

// MessageStage persists the message itself, deduplicated on the provider
// message id.
type MessageStage struct {
	Store MessageStore
}

func (s *MessageStage) Name() string { return "message" }

func (s *MessageStage) Run(ctx context.Context, doc *Doc) error {
	if doc.Conversation == nil {
		return fmt.Errorf("conversation not resolved")
	}

	stored, err := s.Store.GetOrCreate(ctx, models.ConversationMessage{
		ID:                uuid.New().String(),
		ConversationID:    doc.Conversation.ID,
		ProviderMessageID: doc.ProviderMessageID,
		ToEmail:           doc.ToEmail,
		Kind:              doc.Kind,
		Raw:               doc.Message,
	})
	if err != nil {
		return err
	}

	doc.Stored = stored
	return nil
}
