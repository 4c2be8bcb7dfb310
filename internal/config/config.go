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

// Package config loads configuration from config.yaml and environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the gateway.
type Config struct {
	// Postgres
	DatabaseURL string

	// Redis
	RedisURL      string
	MessagesQueue string

	// Nylas
	NylasAPIURL       string
	NylasClientSecret string // HMAC key for webhook signatures

	// Provider kinds served by this gateway
	Providers []string

	// Servers
	Port        int // API + health
	WebhookPort int
}

// rawConfig mirrors the YAML structure for unmarshalling.
type rawConfig struct {
	Providers []string `yaml:"providers"`
	Database  struct {
		URL string `yaml:"url"`
	} `yaml:"database"`
	Redis struct {
		URL    string `yaml:"url"`
		Queues struct {
			Messages string `yaml:"messages"`
		} `yaml:"queues"`
	} `yaml:"redis"`
	Nylas struct {
		APIURL       string `yaml:"api_url"`
		ClientSecret string `yaml:"client_secret"`
	} `yaml:"nylas"`
}

// Load reads configuration from config.yaml (with env var expansion) and
// environment variables for non-YAML settings.
func Load() (*Config, error) {
	configPath := envOrDefault("CONFIG_PATH", "/app/config/config.yaml")

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read config file %s: %w", configPath, err)
	}

	// Expand ${VAR} references in the YAML
	expanded := os.ExpandEnv(string(data))

	var raw rawConfig
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, fmt.Errorf("parse config YAML: %w", err)
	}

	cfg := &Config{
		DatabaseURL:       firstNonEmpty(raw.Database.URL, os.Getenv("DATABASE_URL")),
		RedisURL:          firstNonEmpty(raw.Redis.URL, envOrDefault("REDIS_URL", "redis://localhost:6379/0")),
		MessagesQueue:     firstNonEmpty(raw.Redis.Queues.Messages, envOrDefault("MESSAGES_QUEUE", "conversation-messages")),
		NylasAPIURL:       firstNonEmpty(raw.Nylas.APIURL, os.Getenv("NYLAS_API_URL")),
		NylasClientSecret: firstNonEmpty(raw.Nylas.ClientSecret, os.Getenv("NYLAS_CLIENT_SECRET")),
		Providers:         raw.Providers,
		Port:              envOrDefaultInt("PORT", 8080),
		WebhookPort:       envOrDefaultInt("WEBHOOK_PORT", 8081),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("database URL is required — set database.url or DATABASE_URL")
	}

	if len(cfg.Providers) == 0 {
		cfg.Providers = []string{"gmail", "nylas"}
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrDefaultInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
