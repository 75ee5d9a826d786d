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
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearProviderEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"OPENAI_API_KEY", "DEEPSEEK_API_KEY", "OPENAI_API_URL",
		"DEFAULT_MODEL", "ALIENGINE_ADDR", "ALIENGINE_WORKSPACE",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	clearProviderEnv(t)

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("missing config file must not be an error: %v", err)
	}
	if cfg.ListenAddr != ":8000" {
		t.Errorf("unexpected listen addr %q", cfg.ListenAddr)
	}
	if cfg.Model != "gpt-4o" {
		t.Errorf("unexpected default model %q", cfg.Model)
	}
	if cfg.ShellTimeout() != 30*time.Second {
		t.Errorf("unexpected shell timeout %s", cfg.ShellTimeout())
	}
	if cfg.SessionTTL() != 24*time.Hour {
		t.Errorf("unexpected session TTL %s", cfg.SessionTTL())
	}
	if cfg.APIKey != "" {
		t.Error("expected no API key by default")
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	clearProviderEnv(t)

	path := filepath.Join(t.TempDir(), "config.json")
	payload := `{
  "listen_addr": ":9100",
  "model": "deepseek-chat",
  "workspace_root": "/srv/work",
  "shell_timeout_seconds": 5,
  "dangerous_patterns": ["drop table"]
}`
	if err := os.WriteFile(path, []byte(payload), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.ListenAddr != ":9100" || cfg.Model != "deepseek-chat" {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.ShellTimeout() != 5*time.Second {
		t.Errorf("unexpected shell timeout %s", cfg.ShellTimeout())
	}
	if len(cfg.DangerousPatterns) != 1 || cfg.DangerousPatterns[0] != "drop table" {
		t.Errorf("unexpected dangerous patterns %+v", cfg.DangerousPatterns)
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("DEFAULT_MODEL", "gpt-4o-mini")
	t.Setenv("ALIENGINE_ADDR", ":7000")
	t.Setenv("ALIENGINE_WORKSPACE", "/tmp/ws")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.APIKey != "sk-test" {
		t.Errorf("expected env API key, got %q", cfg.APIKey)
	}
	if cfg.Model != "gpt-4o-mini" {
		t.Errorf("expected env model, got %q", cfg.Model)
	}
	if cfg.ListenAddr != ":7000" {
		t.Errorf("expected env addr, got %q", cfg.ListenAddr)
	}
	if cfg.WorkspaceRoot != "/tmp/ws" {
		t.Errorf("expected env workspace, got %q", cfg.WorkspaceRoot)
	}
}

func TestDeepSeekOnlyDefaultsToCoderModel(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("DEEPSEEK_API_KEY", "ds-test")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Model != "deepseek-coder" {
		t.Errorf("expected deepseek-coder default, got %q", cfg.Model)
	}
}

func TestDirectivePolicyModes(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.DirectivePolicy().Restricted() {
		t.Error("directive policy must be unrestricted by default")
	}

	cfg.RestrictDirectives = true
	cfg.WorkspaceRoot = t.TempDir()
	if !cfg.DirectivePolicy().Restricted() {
		t.Error("expected restricted directive policy")
	}
}

func TestFileAPIPolicyAlwaysRestricted(t *testing.T) {
	cfg := DefaultConfig()
	cfg.WorkspaceRoot = ""
	if !cfg.FileAPIPolicy().Restricted() {
		t.Error("file API policy must always be root-constrained")
	}
}
