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

package attachment

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/conduithq/email-gateway/internal/nylas"
)

// mockFileAPI implements FileAPI for testing.
type mockFileAPI struct {
	uploads   map[string][]byte // filename -> data
	downloads map[string][]byte // file id -> data
}

func newMockFileAPI() *mockFileAPI {
	return &mockFileAPI{
		uploads:   make(map[string][]byte),
		downloads: make(map[string][]byte),
	}
}

func (m *mockFileAPI) UploadFile(_ context.Context, _, filename, contentType string, data []byte) (*nylas.File, error) {
	m.uploads[filename] = data
	return &nylas.File{ID: "file-" + filename, Filename: filename, ContentType: contentType, Size: len(data)}, nil
}

func (m *mockFileAPI) DownloadFile(_ context.Context, _, fileID string) ([]byte, error) {
	return m.downloads[fileID], nil
}

// TestUpload verifies a local file round-trips to the provider.
func TestUpload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.pdf")
	if err := os.WriteFile(path, []byte("pdf-bytes"), 0o600); err != nil {
		t.Fatalf("write temp file: %v", err)
	}

	api := newMockFileAPI()
	tr := NewTransfer(api)

	file, err := tr.Upload(context.Background(), "tok", path, "report.pdf", "application/pdf")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if file.ID != "file-report.pdf" {
		t.Errorf("file id = %q, want file-report.pdf", file.ID)
	}
	if string(api.uploads["report.pdf"]) != "pdf-bytes" {
		t.Errorf("uploaded data = %q, want pdf-bytes", api.uploads["report.pdf"])
	}
}

// TestUpload_DefaultsName verifies the filename falls back to the path base.
func TestUpload_DefaultsName(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "invoice.txt")
	if err := os.WriteFile(path, []byte("x"), 0o600); err != nil {
		t.Fatalf("write temp file: %v", err)
	}

	api := newMockFileAPI()
	tr := NewTransfer(api)

	file, err := tr.Upload(context.Background(), "tok", path, "", "text/plain")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if file.Filename != "invoice.txt" {
		t.Errorf("filename = %q, want invoice.txt", file.Filename)
	}
}

// TestUpload_EmptyFile verifies empty files are rejected before any provider
// call.
func TestUpload_EmptyFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.bin")
	if err := os.WriteFile(path, nil, 0o600); err != nil {
		t.Fatalf("write temp file: %v", err)
	}

	api := newMockFileAPI()
	tr := NewTransfer(api)

	_, err := tr.Upload(context.Background(), "tok", path, "empty.bin", "")
	if err == nil {
		t.Fatal("expected error for empty file")
	}
	if len(api.uploads) != 0 {
		t.Errorf("no upload should happen, got %v", api.uploads)
	}
}

// TestUpload_MissingFile verifies unreadable paths fail.
func TestUpload_MissingFile(t *testing.T) {
	tr := NewTransfer(newMockFileAPI())

	_, err := tr.Upload(context.Background(), "tok", "/nonexistent/file", "x", "")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

// TestDownload verifies byte passthrough.
func TestDownload(t *testing.T) {
	api := newMockFileAPI()
	api.downloads["file-1"] = []byte("attachment-bytes")
	tr := NewTransfer(api)

	data, err := tr.Download(context.Background(), "tok", "file-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != "attachment-bytes" {
		t.Errorf("data = %q, want attachment-bytes", data)
	}
}
