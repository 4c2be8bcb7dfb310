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

// Package store provides Postgres-backed stores for the gateway's entities:
// accounts, integrations, customers, conversations, and conversation
// messages. Find-or-create operations rely on uniqueness constraints so two
// racing writers resolve to a single row — first writer wins, the second
// observes the existing record.
package store

import (
	"errors"
)

// ErrNotFound is returned when a lookup misses. Callers treat it as an
// expected race (e.g. an account disconnected while a webhook was in
// flight), not a fault.
var ErrNotFound = errors.New("not found")

// IsNotFound reports whether err is a missing-record outcome.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
