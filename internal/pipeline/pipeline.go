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

// Package pipeline turns a normalized provider message into persisted
// entities through an ordered sequence of idempotent find-or-create stages:
// customer, then conversation, then message. A failed stage aborts the
// remainder; there is no rollback — every stage is individually idempotent,
// so retrying the whole event is always safe.
package pipeline

import (
	"context"
	"fmt"

	"github.com/conduithq/email-gateway/internal/models"
)

// Doc is the accumulated document flowing through the stages. Each stage
// reads what earlier stages produced and adds its own result.
type Doc struct {
	models.NormalizedDoc

	Customer     *models.Customer
	Conversation *models.Conversation
	Stored       *models.ConversationMessage
}

// Stage is one step of the storage pipeline.
type Stage interface {
	Name() string
	Run(ctx context.Context, doc *Doc) error
}

// Runner executes stages in order, short-circuiting on the first error.
type Runner struct {
	stages []Stage
}

// NewRunner creates a runner over the given stages.
func NewRunner(stages ...Stage) *Runner {
	return &Runner{stages: stages}
}

// Run executes all stages against the document. On success doc.Stored holds
// the persisted conversation message.
func (r *Runner) Run(ctx context.Context, doc *Doc) (*models.ConversationMessage, error) {
	for _, stage := range r.stages {
		if err := stage.Run(ctx, doc); err != nil {
			return nil, fmt.Errorf("%s stage: %w", stage.Name(), err)
		}
	}

	if doc.Stored == nil {
		return nil, fmt.Errorf("pipeline completed without storing a message")
	}
	return doc.Stored, nil
}
