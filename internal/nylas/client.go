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

// Package nylas implements a thin client for the Nylas REST API. Each call
// is authenticated with the account access token handed in by the caller;
// the client holds no credential state of its own.
package nylas

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"
)

// DefaultBaseURL is the root of the Nylas API.
const DefaultBaseURL = "https://api.nylas.com"

const requestTimeout = 30 * time.Second

// Client talks to the Nylas API.
type Client struct {
	baseURL string
}

// NewClient creates a Nylas client. An empty baseURL selects the public API.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{baseURL: baseURL}
}

// httpClient builds an authenticated HTTP client for a single access token.
func (c *Client) httpClient(ctx context.Context, accessToken string) *http.Client {
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken})
	client := oauth2.NewClient(ctx, src)
	client.Timeout = requestTimeout
	return client
}

// ListMessages returns messages matching the given filter.
func (c *Client) ListMessages(ctx context.Context, accessToken string, filter Filter) ([]Message, error) {
	u := c.baseURL + "/messages"
	if q := filter.encode(); q != "" {
		u += "?" + q
	}

	var messages []Message
	if err := c.get(ctx, accessToken, u, &messages); err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return messages, nil
}

// GetMessage retrieves a single message by id. The returned message carries
// the raw response body in Raw so callers can persist the provider payload
// verbatim.
func (c *Client) GetMessage(ctx context.Context, accessToken, messageID string) (*Message, error) {
	u := fmt.Sprintf("%s/messages/%s", c.baseURL, url.PathEscape(messageID))

	body, err := c.getRaw(ctx, accessToken, u)
	if err != nil {
		return nil, fmt.Errorf("get message %s: %w", messageID, err)
	}

	var msg Message
	if err := json.Unmarshal(body, &msg); err != nil {
		return nil, fmt.Errorf("decode message %s: %w", messageID, err)
	}
	msg.Raw = body
	return &msg, nil
}

// SendMessage sends a message directly, without creating a draft first.
func (c *Client) SendMessage(ctx context.Context, accessToken string, draft DraftRequest) (*Message, error) {
	var msg Message
	if err := c.post(ctx, accessToken, c.baseURL+"/send", draft, &msg); err != nil {
		return nil, fmt.Errorf("send message: %w", err)
	}
	return &msg, nil
}

// CreateDraft builds a draft on the provider side.
func (c *Client) CreateDraft(ctx context.Context, accessToken string, draft DraftRequest) (*Draft, error) {
	var d Draft
	if err := c.post(ctx, accessToken, c.baseURL+"/drafts", draft, &d); err != nil {
		return nil, fmt.Errorf("create draft: %w", err)
	}
	return &d, nil
}

// SendDraft sends a previously created draft. Nylas requires the current
// draft version to guard against concurrent edits.
func (c *Client) SendDraft(ctx context.Context, accessToken, draftID string, version int) (*Message, error) {
	payload := map[string]interface{}{
		"draft_id": draftID,
		"version":  version,
	}

	var msg Message
	if err := c.post(ctx, accessToken, c.baseURL+"/send", payload, &msg); err != nil {
		return nil, fmt.Errorf("send draft %s: %w", draftID, err)
	}
	return &msg, nil
}

// DeleteDraft removes a draft from the provider.
func (c *Client) DeleteDraft(ctx context.Context, accessToken, draftID string, version int) error {
	u := fmt.Sprintf("%s/drafts/%s", c.baseURL, url.PathEscape(draftID))

	payload, err := json.Marshal(map[string]int{"version": version})
	if err != nil {
		return fmt.Errorf("marshal delete draft body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, u, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	if _, err := c.do(req, c.httpClient(ctx, accessToken)); err != nil {
		return fmt.Errorf("delete draft %s: %w", draftID, err)
	}
	return nil
}

// UploadFile uploads an attachment and returns the provider file handle.
func (c *Client) UploadFile(ctx context.Context, accessToken, filename, contentType string, data []byte) (*File, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("build multipart body: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("write multipart body: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/files", &buf)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	body, err := c.do(req, c.httpClient(ctx, accessToken))
	if err != nil {
		return nil, fmt.Errorf("upload file %s: %w", filename, err)
	}

	// The files endpoint returns an array with a single element.
	var files []File
	if err := json.Unmarshal(body, &files); err != nil {
		return nil, fmt.Errorf("decode upload response: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("upload file %s: empty response", filename)
	}
	if contentType != "" {
		files[0].ContentType = contentType
	}
	return &files[0], nil
}

// DownloadFile fetches the raw bytes of an attachment by file id.
func (c *Client) DownloadFile(ctx context.Context, accessToken, fileID string) ([]byte, error) {
	u := fmt.Sprintf("%s/files/%s/download", c.baseURL, url.PathEscape(fileID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	body, err := c.do(req, c.httpClient(ctx, accessToken))
	if err != nil {
		return nil, fmt.Errorf("download file %s: %w", fileID, err)
	}
	return body, nil
}

// Account returns the account record the access token belongs to. Used for
// email-from-token resolution.
func (c *Client) Account(ctx context.Context, accessToken string) (*AccountInfo, error) {
	var info AccountInfo
	if err := c.get(ctx, accessToken, c.baseURL+"/account", &info); err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	return &info, nil
}

func (c *Client) get(ctx context.Context, accessToken, u string, out interface{}) error {
	body, err := c.getRaw(ctx, accessToken, u)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) getRaw(ctx context.Context, accessToken, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	return c.do(req, c.httpClient(ctx, accessToken))
}

func (c *Client) post(ctx context.Context, accessToken, u string, in, out interface{}) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	body, err := c.do(req, c.httpClient(ctx, accessToken))
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// do executes the request and returns the response body. Any non-2xx status
// is mapped to an *APIError carrying the upstream status and message.
func (c *Client) do(req *http.Request, client *http.Client) ([]byte, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("nylas request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, parseAPIError(resp.StatusCode, body)
	}

	return body, nil
}
