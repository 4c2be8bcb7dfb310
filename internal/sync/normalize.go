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

package sync

import (
	"encoding/json"
	"strings"

	"github.com/conduithq/email-gateway/internal/models"
	"github.com/conduithq/email-gateway/internal/nylas"
)

// normalize converts a provider message into the canonical document shape.
// ok is false when the message is suppressed: the sender is the account's
// own address and the subject carries no "Re:" marker, meaning the provider
// echoed the user's own outbound mail back through the webhook channel.
// Storing those would loop store/notify forever.
//
// The "Re:" check is a literal substring match; some mail clients localize
// the prefix, which this deliberately does not handle.
func normalize(account *models.Account, integration *models.Integration, msg *nylas.Message) (*models.NormalizedDoc, bool) {
	var from nylas.Participant
	if len(msg.From) > 0 {
		from = msg.From[0]
	}

	if from.Email == account.Email && !strings.Contains(msg.Subject, "Re:") {
		return nil, false
	}

	raw := msg.Raw
	if len(raw) == 0 {
		raw, _ = json.Marshal(msg)
	}

	return &models.NormalizedDoc{
		Kind:              account.Kind,
		ProviderMessageID: msg.ID,
		ThreadID:          msg.ThreadID,
		FromEmail:         from.Email,
		FromName:          from.Name,
		Subject:           msg.Subject,
		ToEmail:           account.Email,
		IntegrationIDs: models.IntegrationIDs{
			ID:         integration.ID,
			ErxesAPIID: integration.ErxesAPIID,
		},
		Message: raw,
	}, true
}
