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

package draft

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/conduithq/email-gateway/internal/models"
	"github.com/conduithq/email-gateway/internal/nylas"
	"github.com/conduithq/email-gateway/internal/store"
)

// mockRemote implements RemoteClient for testing.
type mockRemote struct {
	mu         sync.Mutex
	createErr  error
	sendErr    error
	deleteErr  error
	deleted    []string
	sentDrafts []string
	nextID     string
}

func (m *mockRemote) CreateDraft(_ context.Context, _ string, req nylas.DraftRequest) (*nylas.Draft, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return nil, m.createErr
	}
	id := m.nextID
	if id == "" {
		id = "dr-1"
	}
	return &nylas.Draft{ID: id, Version: 0, Subject: req.Subject, To: req.To}, nil
}

func (m *mockRemote) SendDraft(_ context.Context, _, draftID string, version int) (*nylas.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return nil, m.sendErr
	}
	m.sentDrafts = append(m.sentDrafts, draftID)
	return &nylas.Message{ID: "msg-" + draftID}, nil
}

func (m *mockRemote) SendMessage(_ context.Context, _ string, _ nylas.DraftRequest) (*nylas.Message, error) {
	return &nylas.Message{ID: "msg-direct"}, nil
}

func (m *mockRemote) DeleteDraft(_ context.Context, _, draftID string, _ int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deleted = append(m.deleted, draftID)
	return nil
}

// mockLocal implements ConversationStore and MessageStore for testing.
type mockLocal struct {
	mu            sync.Mutex
	conversations map[string]*models.Conversation // keyed by draft id
	messages      map[string]*models.ConversationMessage
	deletedConvs  []string
	deletedMsgs   []string
	deleteConvErr error
}

func newMockLocal() *mockLocal {
	return &mockLocal{
		conversations: make(map[string]*models.Conversation),
		messages:      make(map[string]*models.ConversationMessage),
	}
}

func (m *mockLocal) FindByDraftID(_ context.Context, draftID string) (*models.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	conv, ok := m.conversations[draftID]
	if !ok {
		return nil, fmt.Errorf("conversation for draft %s: %w", draftID, store.ErrNotFound)
	}
	return conv, nil
}

func (m *mockLocal) FindByConversationID(_ context.Context, conversationID string) (*models.ConversationMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg, ok := m.messages[conversationID]
	if !ok {
		return nil, fmt.Errorf("message for conversation %s: %w", conversationID, store.ErrNotFound)
	}
	return msg, nil
}

func (m *mockLocal) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, isMsg := m.byMessageID(id); isMsg {
		m.deletedMsgs = append(m.deletedMsgs, id)
		return nil
	}
	if m.deleteConvErr != nil {
		return m.deleteConvErr
	}
	m.deletedConvs = append(m.deletedConvs, id)
	return nil
}

func (m *mockLocal) byMessageID(id string) (*models.ConversationMessage, bool) {
	for _, msg := range m.messages {
		if msg.ID == id {
			return msg, true
		}
	}
	return nil, false
}

func newTestManager(remote *mockRemote, local *mockLocal) *Manager {
	return NewManager(remote, func(provider string) (ConversationStore, MessageStore, error) {
		if provider != "nylas" {
			return nil, nil, fmt.Errorf("unknown provider %q", provider)
		}
		return local, local, nil
	})
}

// TestBuild_Save verifies save creates a draft without sending.
func TestBuild_Save(t *testing.T) {
	remote := &mockRemote{}
	m := newTestManager(remote, newMockLocal())

	result, err := m.Build(context.Background(), "tok", nylas.DraftRequest{Subject: "Hello"}, ActionSave)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Draft == nil || result.Draft.ID != "dr-1" {
		t.Fatalf("draft = %+v, want id dr-1", result.Draft)
	}
	if result.Sent != nil {
		t.Errorf("save must not send, got %+v", result.Sent)
	}
	if len(remote.sentDrafts) != 0 {
		t.Errorf("sent drafts = %v, want none", remote.sentDrafts)
	}
}

// TestBuild_Send verifies send creates then dispatches the draft.
func TestBuild_Send(t *testing.T) {
	remote := &mockRemote{}
	m := newTestManager(remote, newMockLocal())

	result, err := m.Build(context.Background(), "tok", nylas.DraftRequest{Subject: "Hello"}, ActionSend)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Sent == nil || result.Sent.ID != "msg-dr-1" {
		t.Fatalf("sent = %+v, want msg-dr-1", result.Sent)
	}
	if len(remote.sentDrafts) != 1 || remote.sentDrafts[0] != "dr-1" {
		t.Errorf("sent drafts = %v, want [dr-1]", remote.sentDrafts)
	}
}

// TestBuild_UnknownAction verifies action validation happens before any
// provider call.
func TestBuild_UnknownAction(t *testing.T) {
	remote := &mockRemote{createErr: fmt.Errorf("should not be called")}
	m := newTestManager(remote, newMockLocal())

	_, err := m.Build(context.Background(), "tok", nylas.DraftRequest{}, "archive")
	if err == nil {
		t.Fatal("expected error for unknown action")
	}
}

// TestBuild_SendFailureSurfaces verifies a send failure after draft creation
// is returned to the caller.
func TestBuild_SendFailureSurfaces(t *testing.T) {
	remote := &mockRemote{sendErr: &nylas.APIError{StatusCode: 409, Message: "version conflict"}}
	m := newTestManager(remote, newMockLocal())

	_, err := m.Build(context.Background(), "tok", nylas.DraftRequest{}, ActionSend)
	if err == nil {
		t.Fatal("expected send error")
	}

	var apiErr *nylas.APIError
	if !errors.As(err, &apiErr) {
		t.Errorf("expected wrapped *APIError, got %T: %v", err, err)
	}
}

// TestRemove_BothPhases verifies remote and local cleanup both run on the
// happy path.
func TestRemove_BothPhases(t *testing.T) {
	remote := &mockRemote{}
	local := newMockLocal()
	local.conversations["dr-1"] = &models.Conversation{ID: "conv-1", DraftID: "dr-1"}
	local.messages["conv-1"] = &models.ConversationMessage{ID: "msg-1", ConversationID: "conv-1"}
	m := newTestManager(remote, local)

	err := m.Remove(context.Background(), RemoveArgs{
		AccessToken:  "tok",
		DraftID:      "dr-1",
		Version:      2,
		Provider:     "nylas",
		FromProvider: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(remote.deleted) != 1 || remote.deleted[0] != "dr-1" {
		t.Errorf("remote deletions = %v, want [dr-1]", remote.deleted)
	}
	if len(local.deletedMsgs) != 1 || local.deletedMsgs[0] != "msg-1" {
		t.Errorf("deleted messages = %v, want [msg-1]", local.deletedMsgs)
	}
	if len(local.deletedConvs) != 1 || local.deletedConvs[0] != "conv-1" {
		t.Errorf("deleted conversations = %v, want [conv-1]", local.deletedConvs)
	}
}

// TestRemove_RemoteFailureStillCleansLocal verifies the local phase runs even
// when the provider deletion fails, and the failure is reported as partial.
func TestRemove_RemoteFailureStillCleansLocal(t *testing.T) {
	remote := &mockRemote{deleteErr: &nylas.APIError{StatusCode: 500, Message: "internal"}}
	local := newMockLocal()
	local.conversations["dr-1"] = &models.Conversation{ID: "conv-1", DraftID: "dr-1"}
	m := newTestManager(remote, local)

	err := m.Remove(context.Background(), RemoveArgs{
		AccessToken:  "tok",
		DraftID:      "dr-1",
		Provider:     "nylas",
		FromProvider: true,
	})
	if err == nil {
		t.Fatal("expected partial error")
	}

	var partial *PartialError
	if !errors.As(err, &partial) {
		t.Fatalf("expected *PartialError, got %T: %v", err, err)
	}
	if partial.Remote == nil {
		t.Error("remote phase error should be set")
	}
	if partial.Local != nil {
		t.Errorf("local phase should have succeeded, got %v", partial.Local)
	}
	if len(local.deletedConvs) != 1 {
		t.Errorf("local cleanup should still run, deleted = %v", local.deletedConvs)
	}
}

// TestRemove_LocalOnly verifies FromProvider=false skips the remote call.
func TestRemove_LocalOnly(t *testing.T) {
	remote := &mockRemote{deleteErr: fmt.Errorf("should not be called")}
	local := newMockLocal()
	local.conversations["dr-1"] = &models.Conversation{ID: "conv-1", DraftID: "dr-1"}
	m := newTestManager(remote, local)

	err := m.Remove(context.Background(), RemoveArgs{
		DraftID:  "dr-1",
		Provider: "nylas",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(local.deletedConvs) != 1 {
		t.Errorf("deleted conversations = %v, want [conv-1]", local.deletedConvs)
	}
}

// TestRemove_MissingMessageTolerated verifies a draft conversation without a
// stored message still gets cleaned up.
func TestRemove_MissingMessageTolerated(t *testing.T) {
	local := newMockLocal()
	local.conversations["dr-1"] = &models.Conversation{ID: "conv-1", DraftID: "dr-1"}
	m := newTestManager(&mockRemote{}, local)

	err := m.Remove(context.Background(), RemoveArgs{DraftID: "dr-1", Provider: "nylas"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(local.deletedConvs) != 1 {
		t.Errorf("conversation should be deleted, got %v", local.deletedConvs)
	}
}

// TestRemove_LocalFailureReported verifies local phase failures surface as
// partial errors with the remote phase intact.
func TestRemove_LocalFailureReported(t *testing.T) {
	remote := &mockRemote{}
	local := newMockLocal()
	local.conversations["dr-1"] = &models.Conversation{ID: "conv-1", DraftID: "dr-1"}
	local.deleteConvErr = fmt.Errorf("connection reset")
	m := newTestManager(remote, local)

	err := m.Remove(context.Background(), RemoveArgs{
		AccessToken:  "tok",
		DraftID:      "dr-1",
		Provider:     "nylas",
		FromProvider: true,
	})

	var partial *PartialError
	if !errors.As(err, &partial) {
		t.Fatalf("expected *PartialError, got %T: %v", err, err)
	}
	if partial.Local == nil {
		t.Error("local phase error should be set")
	}
	if partial.Remote != nil {
		t.Errorf("remote phase should have succeeded, got %v", partial.Remote)
	}
	if len(remote.deleted) != 1 {
		t.Errorf("remote deletion should have run, got %v", remote.deleted)
	}
}

// TestPartialError_Message verifies the error string names the failed phases.
func TestPartialError_Message(t *testing.T) {
	err := &PartialError{
		Remote: fmt.Errorf("timeout"),
		Local:  fmt.Errorf("not found"),
	}
	want := "draft removal: remote: timeout; local: not found"
	if err.Error() != want {
		t.Errorf("error = %q, want %q", err.Error(), want)
	}
}
