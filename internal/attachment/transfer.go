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

// Package attachment moves binary attachments between local files and the
// provider.
package attachment

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/conduithq/email-gateway/internal/nylas"
)

// FileAPI is the provider file surface. Implemented by nylas.Client.
type FileAPI interface {
	UploadFile(ctx context.Context, accessToken, filename, contentType string, data []byte) (*nylas.File, error)
	DownloadFile(ctx context.Context, accessToken, fileID string) ([]byte, error)
}

// Transfer uploads and downloads attachments.
type Transfer struct {
	client FileAPI
}

// NewTransfer creates an attachment transfer over the given provider client.
func NewTransfer(client FileAPI) *Transfer {
	return &Transfer{client: client}
}

// Upload reads a local file and uploads it to the provider. An unreadable
// or empty file is a failure, never an empty successful upload.
func (t *Transfer) Upload(ctx context.Context, accessToken, path, name, contentType string) (*nylas.File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read attachment %s: %w", path, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("read attachment %s: file is empty", path)
	}

	if name == "" {
		name = filepath.Base(path)
	}

	file, err := t.client.UploadFile(ctx, accessToken, name, contentType, data)
	if err != nil {
		return nil, err
	}
	return file, nil
}

// Download returns the raw bytes of a provider attachment.
func (t *Transfer) Download(ctx context.Context, accessToken, fileID string) ([]byte, error) {
	return t.client.DownloadFile(ctx, accessToken, fileID)
}
