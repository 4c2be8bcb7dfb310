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

package nylas

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
)

// Participant is a sender or recipient on a message.
type Participant struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// Message represents a Nylas message object. Raw holds the undecoded
// response body when the message was fetched individually.
type Message struct {
	ID        string          `json:"id"`
	AccountID string          `json:"account_id"`
	ThreadID  string          `json:"thread_id"`
	Subject   string          `json:"subject"`
	From      []Participant   `json:"from"`
	To        []Participant   `json:"to"`
	Cc        []Participant   `json:"cc,omitempty"`
	Bcc       []Participant   `json:"bcc,omitempty"`
	Body      string          `json:"body"`
	Snippet   string          `json:"snippet,omitempty"`
	Files     []File          `json:"files,omitempty"`
	Unread    bool            `json:"unread"`
	Date      int64           `json:"date"`
	Raw       json.RawMessage `json:"-"`
}

// Draft represents a provider-side draft. Version increments on every edit
// and must be echoed back on send/delete.
type Draft struct {
	ID       string        `json:"id"`
	Version  int           `json:"version"`
	ThreadID string        `json:"thread_id"`
	Subject  string        `json:"subject"`
	To       []Participant `json:"to"`
	Body     string        `json:"body"`
}

// DraftRequest is the payload for building or sending a message.
type DraftRequest struct {
	Subject          string        `json:"subject,omitempty"`
	To               []Participant `json:"to,omitempty"`
	Cc               []Participant `json:"cc,omitempty"`
	Bcc              []Participant `json:"bcc,omitempty"`
	Body             string        `json:"body,omitempty"`
	ReplyToMessageID string        `json:"reply_to_message_id,omitempty"`
	FileIDs          []string      `json:"file_ids,omitempty"`
}

// File is a provider attachment handle.
type File struct {
	ID          string `json:"id"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Size        int    `json:"size"`
}

// AccountInfo is the record returned by the /account endpoint.
type AccountInfo struct {
	ID           string `json:"id"`
	Email        string `json:"email_address"`
	Name         string `json:"name"`
	Provider     string `json:"provider"`
	SyncState    string `json:"sync_state"`
	Organization string `json:"organization_unit"`
}

// Filter narrows message list queries.
type Filter struct {
	ThreadID string
	To       string
	From     string
	Unread   *bool
	Limit    int
	Offset   int
}

func (f Filter) encode() string {
	q := url.Values{}
	if f.ThreadID != "" {
		q.Set("thread_id", f.ThreadID)
	}
	if f.To != "" {
		q.Set("to", f.To)
	}
	if f.From != "" {
		q.Set("from", f.From)
	}
	if f.Unread != nil {
		q.Set("unread", strconv.FormatBool(*f.Unread))
	}
	if f.Limit > 0 {
		q.Set("limit", strconv.Itoa(f.Limit))
	}
	if f.Offset > 0 {
		q.Set("offset", strconv.Itoa(f.Offset))
	}
	return q.Encode()
}

// APIError is a failed Nylas call. The upstream status code and message are
// preserved for operator diagnostics.
type APIError struct {
	StatusCode int
	Type       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("nylas API error (HTTP %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("nylas API error (HTTP %d)", e.StatusCode)
}

// parseAPIError builds an APIError from an error response body. Nylas error
// bodies look like {"type": "...", "message": "..."}; anything else falls
// back to the raw body text.
func parseAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status}

	var parsed struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Message != "" {
		apiErr.Type = parsed.Type
		apiErr.Message = parsed.Message
	} else if len(body) > 0 {
		apiErr.Message = string(body)
	}

	return apiErr
}
