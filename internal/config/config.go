// Copyright (C) 2025 Dyne.org foundation
// designed, written and maintained by Denis Roio <jaromil@dyne.org>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package config

import (
	"encoding/json"
	"os"
	"strings"
	"time"

	"aliengine/internal/engine"
	"aliengine/internal/fsops"
	"aliengine/internal/paths"
	"aliengine/internal/shellexec"
)

// Config represents the application configuration, read once at startup
// and treated as read-only afterwards.
type Config struct {
	ListenAddr string `json:"listen_addr,omitempty"`

	// Provider settings.
	APIKey         string   `json:"api_key,omitempty"`
	APIURL         string   `json:"api_url,omitempty"`
	DeepSeekAPIKey string   `json:"deepseek_api_key,omitempty"`
	Model          string   `json:"model,omitempty"`
	Temperature    *float32 `json:"temperature,omitempty"`
	MaxTokens      *int     `json:"max_tokens,omitempty"`

	// Execution policy.
	WorkspaceRoot       string   `json:"workspace_root,omitempty"`
	RestrictDirectives  bool     `json:"restrict_directives,omitempty"`
	ShellTimeoutSeconds int      `json:"shell_timeout_seconds,omitempty"`
	DangerousPatterns   []string `json:"dangerous_patterns,omitempty"`
	MaxFileSizeBytes    int64    `json:"max_file_size_bytes,omitempty"`
	MaxDirectoryDepth   int      `json:"max_directory_depth,omitempty"`
	MaxDirectoryEntries int      `json:"max_directory_entries,omitempty"`

	// Session bookkeeping.
	HistoryMaxMessages int `json:"history_max_messages,omitempty"`
	SessionTTLHours    int `json:"session_ttl_hours,omitempty"`
}

// DefaultConfig returns a config with default values.
func DefaultConfig() *Config {
	return &Config{
		ListenAddr:          ":8000",
		APIURL:              "https://api.openai.com/v1",
		Model:               "gpt-4o",
		WorkspaceRoot:       ".",
		ShellTimeoutSeconds: int(shellexec.DefaultTimeout.Seconds()),
		HistoryMaxMessages:  100,
		SessionTTLHours:     24,
	}
}

// LoadConfig loads configuration from a JSON file when present, then
// applies environment overrides. A missing API key is not an error: the
// chat client degrades to canned responses without one.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, config); err != nil {
			return nil, err
		}
	}

	if val := os.Getenv("OPENAI_API_KEY"); val != "" {
		config.APIKey = val
	}
	if val := os.Getenv("DEEPSEEK_API_KEY"); val != "" {
		config.DeepSeekAPIKey = val
	}
	if val := os.Getenv("OPENAI_API_URL"); val != "" {
		config.APIURL = val
	}
	if val := os.Getenv("DEFAULT_MODEL"); val != "" {
		config.Model = val
	} else if config.DeepSeekAPIKey != "" && config.Model == "gpt-4o" {
		// DeepSeek-only deployments default to its coder model.
		config.Model = "deepseek-coder"
	}
	if val := os.Getenv("ALIENGINE_ADDR"); val != "" {
		config.ListenAddr = val
	}
	if val := os.Getenv("ALIENGINE_WORKSPACE"); val != "" {
		config.WorkspaceRoot = val
	}

	if strings.TrimSpace(config.Model) == "" {
		config.Model = "gpt-4o"
	}
	if strings.TrimSpace(config.APIURL) == "" {
		config.APIURL = "https://api.openai.com/v1"
	}
	if config.HistoryMaxMessages <= 0 {
		config.HistoryMaxMessages = 100
	}
	if config.SessionTTLHours <= 0 {
		config.SessionTTLHours = 24
	}

	return config, nil
}

// ShellTimeout returns the configured shell timeout.
func (c *Config) ShellTimeout() time.Duration {
	if c.ShellTimeoutSeconds <= 0 {
		return shellexec.DefaultTimeout
	}
	return time.Duration(c.ShellTimeoutSeconds) * time.Second
}

// SessionTTL returns the inactivity window after which sessions expire.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLHours) * time.Hour
}

// FileLimits returns filesystem limits for executors.
func (c *Config) FileLimits() fsops.Limits {
	return fsops.Limits{
		MaxFileSizeBytes:    c.MaxFileSizeBytes,
		MaxDirectoryDepth:   c.MaxDirectoryDepth,
		MaxDirectoryEntries: c.MaxDirectoryEntries,
	}
}

// DirectivePolicy returns the path policy for embedded directives. The
// protocol historically runs at host-process privilege; deployments can
// opt into root confinement with restrict_directives.
func (c *Config) DirectivePolicy() paths.Policy {
	if c.RestrictDirectives {
		return paths.RootConstrained(c.WorkspaceRoot)
	}
	return paths.Unrestricted()
}

// FileAPIPolicy returns the root-constrained policy for the direct file
// operation API.
func (c *Config) FileAPIPolicy() paths.Policy {
	root := c.WorkspaceRoot
	if strings.TrimSpace(root) == "" {
		root = "."
	}
	return paths.RootConstrained(root)
}

// EngineOptions assembles the options for the directive engine.
func (c *Config) EngineOptions() engine.Options {
	return engine.Options{
		Policy:            c.DirectivePolicy(),
		ShellTimeout:      c.ShellTimeout(),
		DangerousPatterns: c.DangerousPatterns,
		Limits:            c.FileLimits(),
	}
}
