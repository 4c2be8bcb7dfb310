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

// Package identity resolves the email address behind an access token, using
// the token-validation endpoint of whichever provider issued it.
package identity

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	goauth2 "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"

	"github.com/conduithq/email-gateway/internal/nylas"
)

// AccountAPI is the Nylas account surface. Implemented by nylas.Client.
type AccountAPI interface {
	Account(ctx context.Context, accessToken string) (*nylas.AccountInfo, error)
}

// Resolver turns access tokens into account email addresses.
type Resolver struct {
	client AccountAPI
}

// NewResolver creates an identity resolver over the given provider client.
func NewResolver(client AccountAPI) *Resolver {
	return &Resolver{client: client}
}

// EmailFromAccessToken resolves the email address the token was issued for.
// Gmail tokens go through Google's tokeninfo endpoint; Nylas tokens through
// the Nylas account endpoint.
func (r *Resolver) EmailFromAccessToken(ctx context.Context, kind, accessToken string) (string, error) {
	switch kind {
	case "gmail":
		return r.googleEmail(ctx, accessToken)
	case "nylas":
		info, err := r.client.Account(ctx, accessToken)
		if err != nil {
			return "", fmt.Errorf("resolve nylas account: %w", err)
		}
		return info.Email, nil
	default:
		return "", fmt.Errorf("unknown integration kind %q", kind)
	}
}

func (r *Resolver) googleEmail(ctx context.Context, accessToken string) (string, error) {
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken})

	svc, err := goauth2.NewService(ctx, option.WithTokenSource(src))
	if err != nil {
		return "", fmt.Errorf("create oauth2 service: %w", err)
	}

	info, err := svc.Tokeninfo().AccessToken(accessToken).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("validate google token: %w", err)
	}
	if info.Email == "" {
		return "", fmt.Errorf("google token carries no email scope")
	}
	return info.Email, nil
}
