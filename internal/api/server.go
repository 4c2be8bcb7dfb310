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

// Package api exposes the gateway's boundary operations over HTTP for the
// platform. Access tokens travel in request bodies, never in URLs, so they
// stay out of access logs.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/conduithq/email-gateway/internal/attachment"
	"github.com/conduithq/email-gateway/internal/draft"
	"github.com/conduithq/email-gateway/internal/identity"
	"github.com/conduithq/email-gateway/internal/models"
	"github.com/conduithq/email-gateway/internal/nylas"
	"github.com/conduithq/email-gateway/internal/store"
	"github.com/conduithq/email-gateway/internal/sync"
)

// maxUploadBytes caps attachment uploads at the Nylas limit.
const maxUploadBytes = 25 << 20

// Accounts is the account surface the API needs.
type Accounts interface {
	ListByKind(ctx context.Context, kind string) ([]models.Account, error)
	Delete(ctx context.Context, id string) error
}

// Integrations is the integration surface the API needs.
type Integrations interface {
	RemoveByErxesAPIID(ctx context.Context, erxesAPIID string) error
}

// Server wires the boundary operations to HTTP routes.
type Server struct {
	syncSvc      *sync.Service
	drafts       *draft.Manager
	attachments  *attachment.Transfer
	identity     *identity.Resolver
	accounts     Accounts
	integrations Integrations
}

// NewServer creates the API server.
func NewServer(
	syncSvc *sync.Service,
	drafts *draft.Manager,
	attachments *attachment.Transfer,
	ident *identity.Resolver,
	accounts Accounts,
	integrations Integrations,
) *Server {
	return &Server{
		syncSvc:      syncSvc,
		drafts:       drafts,
		attachments:  attachments,
		identity:     ident,
		accounts:     accounts,
		integrations: integrations,
	}
}

// Register attaches all routes to the mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /accounts", s.handleListAccounts)
	mux.HandleFunc("POST /accounts/remove", s.handleRemoveAccount)
	mux.HandleFunc("POST /integrations/remove", s.handleRemoveIntegration)
	mux.HandleFunc("POST /messages/list", s.handleListMessages)
	mux.HandleFunc("POST /messages/find", s.handleFindMessage)
	mux.HandleFunc("POST /send", s.handleSend)
	mux.HandleFunc("POST /drafts", s.handleDraft)
	mux.HandleFunc("POST /drafts/remove", s.handleRemoveDraft)
	mux.HandleFunc("POST /files/upload", s.handleUpload)
	mux.HandleFunc("POST /files/download", s.handleDownload)
	mux.HandleFunc("POST /email-from-token", s.handleEmailFromToken)
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.accounts.ListByKind(r.Context(), r.URL.Query().Get("kind"))
	if err != nil {
		writeError(w, err)
		return
	}

	// Tokens never leave the gateway.
	type accountView struct {
		ID    string `json:"_id"`
		UID   string `json:"uid"`
		Email string `json:"email"`
		Kind  string `json:"kind"`
	}
	views := make([]accountView, 0, len(accounts))
	for _, a := range accounts {
		views = append(views, accountView{ID: a.ID, UID: a.UID, Email: a.Email, Kind: a.Kind})
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleRemoveAccount(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID string `json:"_id"`
	}
	if !readJSON(w, r, &req) {
		return
	}
	if err := s.accounts.Delete(r.Context(), req.ID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

func (s *Server) handleRemoveIntegration(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IntegrationID string `json:"integrationId"`
	}
	if !readJSON(w, r, &req) {
		return
	}
	if err := s.integrations.RemoveByErxesAPIID(r.Context(), req.IntegrationID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccessToken string       `json:"accessToken"`
		Filter      nylas.Filter `json:"filter"`
	}
	if !readJSON(w, r, &req) {
		return
	}
	messages, err := s.syncSvc.GetMessages(r.Context(), req.AccessToken, req.Filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messages)
}

func (s *Server) handleFindMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccessToken string `json:"accessToken"`
		MessageID   string `json:"messageId"`
	}
	if !readJSON(w, r, &req) {
		return
	}
	msg, err := s.syncSvc.GetMessageByID(r.Context(), req.AccessToken, req.MessageID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, msg)
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccessToken string             `json:"accessToken"`
		Draft       nylas.DraftRequest `json:"draft"`
	}
	if !readJSON(w, r, &req) {
		return
	}
	result, err := s.drafts.Build(r.Context(), req.AccessToken, req.Draft, draft.ActionSend)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result.Sent)
}

func (s *Server) handleDraft(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccessToken string             `json:"accessToken"`
		Draft       nylas.DraftRequest `json:"draft"`
		Action      string             `json:"action"`
	}
	if !readJSON(w, r, &req) {
		return
	}
	if req.Action == "" {
		req.Action = draft.ActionSave
	}
	result, err := s.drafts.Build(r.Context(), req.AccessToken, req.Draft, req.Action)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleRemoveDraft(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccessToken string `json:"accessToken"`
		DraftID     string `json:"draftId"`
		Version     int    `json:"version"`
		Provider    string `json:"provider"`
		FromNylas   bool   `json:"fromNylas"`
	}
	if !readJSON(w, r, &req) {
		return
	}

	err := s.drafts.Remove(r.Context(), draft.RemoveArgs{
		AccessToken:  req.AccessToken,
		DraftID:      req.DraftID,
		Version:      req.Version,
		Provider:     req.Provider,
		FromProvider: req.FromNylas,
	})
	var partial *draft.PartialError
	if errors.As(err, &partial) {
		// Callers retry the failed phase, so report which one it was.
		resp := map[string]string{"status": "failed"}
		if partial.Remote != nil {
			resp["remote"] = partial.Remote.Error()
		}
		if partial.Local != nil {
			resp["local"] = partial.Local.Error()
		}
		writeJSON(w, http.StatusBadGateway, resp)
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// handleUpload accepts a multipart form with an accessToken field and a
// single file part, spools the part to a temp file, and hands it to the
// attachment transfer.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		http.Error(w, "invalid multipart form", http.StatusBadRequest)
		return
	}

	accessToken := r.FormValue("accessToken")
	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "file part is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	tmp, err := os.CreateTemp("", "gateway-upload-*")
	if err != nil {
		writeError(w, err)
		return
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, file); err != nil {
		tmp.Close()
		writeError(w, err)
		return
	}
	if err := tmp.Close(); err != nil {
		writeError(w, err)
		return
	}

	name := header.Filename
	if name == "" {
		name = filepath.Base(tmp.Name())
	}

	uploaded, err := s.attachments.Upload(r.Context(), accessToken, tmp.Name(), name,
		header.Header.Get("Content-Type"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, uploaded)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccessToken string `json:"accessToken"`
		FileID      string `json:"fileId"`
	}
	if !readJSON(w, r, &req) {
		return
	}
	data, err := s.attachments.Download(r.Context(), req.AccessToken, req.FileID)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (s *Server) handleEmailFromToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Kind        string `json:"kind"`
		AccessToken string `json:"accessToken"`
	}
	if !readJSON(w, r, &req) {
		return
	}
	email, err := s.identity.EmailFromAccessToken(r.Context(), req.Kind, req.AccessToken)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"email": email})
}

func readJSON(w http.ResponseWriter, r *http.Request, out interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("write response failed", "error", err)
	}
}

// writeError maps internal outcomes to status codes. Detailed error content
// is for operator logs; clients get a terse acknowledgment.
func writeError(w http.ResponseWriter, err error) {
	slog.Error("request failed", "error", err)

	var apiErr *nylas.APIError
	switch {
	case store.IsNotFound(err):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.As(err, &apiErr):
		http.Error(w, "provider request failed", http.StatusBadGateway)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
