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

// Package draft manages the draft lifecycle across the provider and the
// internal store. A draft moves Drafting -> Sent or Drafting -> Discarded;
// discarding touches two independent systems, so removal is best-effort on
// each side with no two-phase commit. A caller observing a PartialError can
// retry just the phase that failed.
package draft

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/conduithq/email-gateway/internal/models"
	"github.com/conduithq/email-gateway/internal/nylas"
	"github.com/conduithq/email-gateway/internal/store"
)

// Draft actions.
const (
	ActionSave = "save"
	ActionSend = "send"
)

// RemoteClient is the provider surface the manager needs. Implemented by
// nylas.Client.
type RemoteClient interface {
	CreateDraft(ctx context.Context, accessToken string, draft nylas.DraftRequest) (*nylas.Draft, error)
	SendDraft(ctx context.Context, accessToken, draftID string, version int) (*nylas.Message, error)
	SendMessage(ctx context.Context, accessToken string, draft nylas.DraftRequest) (*nylas.Message, error)
	DeleteDraft(ctx context.Context, accessToken, draftID string, version int) error
}

// ConversationStore is the local conversation surface. Implemented by
// store.ConversationStore.
type ConversationStore interface {
	FindByDraftID(ctx context.Context, draftID string) (*models.Conversation, error)
	Delete(ctx context.Context, id string) error
}

// MessageStore is the local message surface. Implemented by
// store.MessageStore.
type MessageStore interface {
	FindByConversationID(ctx context.Context, conversationID string) (*models.ConversationMessage, error)
	Delete(ctx context.Context, id string) error
}

// StoreLookup resolves the provider-scoped stores for a provider kind.
type StoreLookup func(provider string) (ConversationStore, MessageStore, error)

// Result is the outcome of a Build call. Sent is set only when the action
// was "send".
type Result struct {
	Draft *nylas.Draft
	Sent  *nylas.Message
}

// Manager orchestrates draft creation, sending, and removal.
type Manager struct {
	client RemoteClient
	stores StoreLookup
}

// NewManager creates a draft manager.
func NewManager(client RemoteClient, stores StoreLookup) *Manager {
	return &Manager{client: client, stores: stores}
}

// Build constructs a draft on the provider side. With ActionSend the draft
// is sent immediately and the sent message is returned alongside it.
func (m *Manager) Build(ctx context.Context, accessToken string, req nylas.DraftRequest, action string) (*Result, error) {
	switch action {
	case ActionSave, ActionSend:
	default:
		return nil, fmt.Errorf("unknown draft action %q", action)
	}

	d, err := m.client.CreateDraft(ctx, accessToken, req)
	if err != nil {
		return nil, fmt.Errorf("build draft: %w", err)
	}

	if action == ActionSave {
		slog.Info("draft saved", "draft_id", d.ID)
		return &Result{Draft: d}, nil
	}

	sent, err := m.client.SendDraft(ctx, accessToken, d.ID, d.Version)
	if err != nil {
		return nil, fmt.Errorf("send draft %s: %w", d.ID, err)
	}

	slog.Info("draft sent", "draft_id", d.ID)
	return &Result{Draft: d, Sent: sent}, nil
}

// RemoveArgs identifies the draft to discard. FromProvider requests remote
// deletion before the local cleanup.
type RemoveArgs struct {
	AccessToken  string
	DraftID      string
	Version      int
	Provider     string
	FromProvider bool
}

// Remove discards a draft. The remote and local phases run independently: a
// remote failure is captured but never blocks the local cleanup, and vice
// versa. nil means both phases succeeded.
func (m *Manager) Remove(ctx context.Context, args RemoveArgs) error {
	var remoteErr error

	if args.FromProvider {
		if err := m.client.DeleteDraft(ctx, args.AccessToken, args.DraftID, args.Version); err != nil {
			remoteErr = err
			slog.Error("remote draft deletion failed",
				"draft_id", args.DraftID,
				"error", err,
			)
		} else {
			slog.Info("draft deleted from provider", "draft_id", args.DraftID)
		}
	}

	localErr := m.removeLocal(ctx, args.Provider, args.DraftID)
	if localErr != nil {
		slog.Error("local draft cleanup failed",
			"draft_id", args.DraftID,
			"error", localErr,
		)
	}

	if remoteErr == nil && localErr == nil {
		return nil
	}
	return &PartialError{Remote: remoteErr, Local: localErr}
}

// removeLocal deletes the conversation holding the draft and its message.
func (m *Manager) removeLocal(ctx context.Context, provider, draftID string) error {
	conversations, messages, err := m.stores(provider)
	if err != nil {
		return err
	}

	conv, err := conversations.FindByDraftID(ctx, draftID)
	if err != nil {
		return fmt.Errorf("find draft conversation: %w", err)
	}

	msg, err := messages.FindByConversationID(ctx, conv.ID)
	switch {
	case store.IsNotFound(err):
		// Already gone — still remove the conversation.
	case err != nil:
		return fmt.Errorf("find draft message: %w", err)
	default:
		if err := messages.Delete(ctx, msg.ID); err != nil {
			return fmt.Errorf("delete draft message: %w", err)
		}
	}

	if err := conversations.Delete(ctx, conv.ID); err != nil {
		return fmt.Errorf("delete draft conversation: %w", err)
	}

	slog.Info("draft removed locally", "draft_id", draftID, "conversation_id", conv.ID)
	return nil
}

// PartialError reports which phase of a draft removal failed. Either field
// may be nil.
type PartialError struct {
	Remote error
	Local  error
}

func (e *PartialError) Error() string {
	var parts []string
	if e.Remote != nil {
		parts = append(parts, fmt.Sprintf("remote: %v", e.Remote))
	}
	if e.Local != nil {
		parts = append(parts, fmt.Sprintf("local: %v", e.Local))
	}
	return "draft removal: " + strings.Join(parts, "; ")
}

// Unwrap exposes the underlying phase errors to errors.Is/As.
func (e *PartialError) Unwrap() []error {
	var errs []error
	if e.Remote != nil {
		errs = append(errs, e.Remote)
	}
	if e.Local != nil {
		errs = append(errs, e.Local)
	}
	return errs
}
