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

package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/conduithq/email-gateway/internal/models"
)

// mockSyncer implements Syncer for testing.
type mockSyncer struct {
	mu    sync.Mutex
	calls []string // "uid/messageID"
	done  chan struct{}
}

func newMockSyncer(expected int) *mockSyncer {
	return &mockSyncer{done: make(chan struct{}, expected)}
}

func (m *mockSyncer) SyncMessage(_ context.Context, accountUID, messageID string) (*models.ConversationMessage, error) {
	m.mu.Lock()
	m.calls = append(m.calls, accountUID+"/"+messageID)
	m.mu.Unlock()
	m.done <- struct{}{}
	return nil, nil
}

func (m *mockSyncer) wait(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-m.done:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for sync calls")
		}
	}
}

func signBody(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func deltaPayload(deltas ...Delta) []byte {
	body, _ := json.Marshal(Payload{Deltas: deltas})
	return body
}

func messageDelta(accountID, messageID string) Delta {
	d := Delta{Type: "message.created", Object: "message"}
	d.ObjectData.AccountID = accountID
	d.ObjectData.ID = messageID
	return d
}

// TestServeNotification_Challenge verifies the registration probe echo.
func TestServeNotification_Challenge(t *testing.T) {
	h := NewHandler(nil, "")

	req := httptest.NewRequest(http.MethodGet, "/nylas/webhook?challenge=probe-token", nil)
	rr := httptest.NewRecorder()

	h.ServeNotification(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	if body := rr.Body.String(); body != "probe-token" {
		t.Errorf("body = %q, want probe-token", body)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "text/plain" {
		t.Errorf("Content-Type = %q, want text/plain", ct)
	}
}

// TestServeNotification_ProcessesMessageDeltas verifies message.created
// deltas reach the syncer.
func TestServeNotification_ProcessesMessageDeltas(t *testing.T) {
	syncer := newMockSyncer(2)
	h := NewHandler(syncer, "")

	body := deltaPayload(
		messageDelta("uid-1", "m1"),
		messageDelta("uid-1", "m2"),
	)
	req := httptest.NewRequest(http.MethodPost, "/nylas/webhook", strings.NewReader(string(body)))
	rr := httptest.NewRecorder()

	h.ServeNotification(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusOK)
	}

	syncer.wait(t, 2)

	syncer.mu.Lock()
	defer syncer.mu.Unlock()
	if len(syncer.calls) != 2 {
		t.Fatalf("expected 2 sync calls, got %d", len(syncer.calls))
	}
	if syncer.calls[0] != "uid-1/m1" || syncer.calls[1] != "uid-1/m2" {
		t.Errorf("calls = %v, want [uid-1/m1 uid-1/m2]", syncer.calls)
	}
}

// TestServeNotification_SkipsOtherDeltaTypes verifies non-message deltas are
// ignored.
func TestServeNotification_SkipsOtherDeltaTypes(t *testing.T) {
	syncer := newMockSyncer(1)
	h := NewHandler(syncer, "")

	opened := Delta{Type: "message.opened", Object: "message"}
	opened.ObjectData.AccountID = "uid-1"
	opened.ObjectData.ID = "m-open"

	body := deltaPayload(opened, messageDelta("uid-1", "m-created"))
	req := httptest.NewRequest(http.MethodPost, "/nylas/webhook", strings.NewReader(string(body)))
	rr := httptest.NewRecorder()

	h.ServeNotification(rr, req)
	syncer.wait(t, 1)

	syncer.mu.Lock()
	defer syncer.mu.Unlock()
	if len(syncer.calls) != 1 || syncer.calls[0] != "uid-1/m-created" {
		t.Errorf("calls = %v, want [uid-1/m-created]", syncer.calls)
	}
}

// TestServeNotification_ValidSignature verifies a correctly signed body is
// accepted.
func TestServeNotification_ValidSignature(t *testing.T) {
	syncer := newMockSyncer(1)
	h := NewHandler(syncer, "secret-key")

	body := deltaPayload(messageDelta("uid-1", "m1"))
	req := httptest.NewRequest(http.MethodPost, "/nylas/webhook", strings.NewReader(string(body)))
	req.Header.Set("X-Nylas-Signature", signBody("secret-key", body))
	rr := httptest.NewRecorder()

	h.ServeNotification(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	syncer.wait(t, 1)
}

// TestServeNotification_InvalidSignature verifies spoofed notifications are
// rejected with 401 and never processed.
func TestServeNotification_InvalidSignature(t *testing.T) {
	syncer := newMockSyncer(1)
	h := NewHandler(syncer, "secret-key")

	body := deltaPayload(messageDelta("uid-1", "m1"))
	req := httptest.NewRequest(http.MethodPost, "/nylas/webhook", strings.NewReader(string(body)))
	req.Header.Set("X-Nylas-Signature", "deadbeef")
	rr := httptest.NewRecorder()

	h.ServeNotification(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusUnauthorized)
	}

	syncer.mu.Lock()
	defer syncer.mu.Unlock()
	if len(syncer.calls) != 0 {
		t.Errorf("spoofed notification must not be processed, calls = %v", syncer.calls)
	}
}

// TestServeNotification_InvalidJSON verifies malformed bodies get 200 so the
// provider does not retry garbage.
func TestServeNotification_InvalidJSON(t *testing.T) {
	h := NewHandler(nil, "")

	req := httptest.NewRequest(http.MethodPost, "/nylas/webhook", strings.NewReader("not json"))
	rr := httptest.NewRecorder()

	h.ServeNotification(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusOK)
	}
}

// TestProcessDeltas_MissingIdentifiers verifies deltas without identifiers
// are skipped.
func TestProcessDeltas_MissingIdentifiers(t *testing.T) {
	syncer := newMockSyncer(1)
	h := NewHandler(syncer, "")

	bad := Delta{Type: "message.created"}
	h.processDeltas(context.Background(), []Delta{bad})

	syncer.mu.Lock()
	defer syncer.mu.Unlock()
	if len(syncer.calls) != 0 {
		t.Errorf("delta without identifiers must be skipped, calls = %v", syncer.calls)
	}
}
