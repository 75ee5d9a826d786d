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

package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"aliengine/internal/config"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.WorkspaceRoot = t.TempDir()
	ts := httptest.NewServer(New(cfg, zerolog.Nop()).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, url string, payload interface{}) map[string]interface{} {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var decoded map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return decoded
}

func getJSON(t *testing.T, url string) (int, map[string]interface{}) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var decoded map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return resp.StatusCode, decoded
}

func TestRootEndpoint(t *testing.T) {
	ts := newTestServer(t)
	status, body := getJSON(t, ts.URL+"/")
	if status != http.StatusOK {
		t.Fatalf("unexpected status %d", status)
	}
	if msg, _ := body["message"].(string); msg == "" {
		t.Error("expected a banner message")
	}
}

func TestStatusEndpoint(t *testing.T) {
	ts := newTestServer(t)
	status, body := getJSON(t, ts.URL+"/api/status")
	if status != http.StatusOK {
		t.Fatalf("unexpected status %d", status)
	}
	if body["status"] != "running" {
		t.Errorf("unexpected status payload %+v", body)
	}
	services, ok := body["services"].(map[string]interface{})
	if !ok || services["openai"] != false || services["deepseek"] != false {
		t.Errorf("expected providers reported unconfigured, got %+v", body["services"])
	}
}

func TestModelsEndpointMockFallback(t *testing.T) {
	ts := newTestServer(t)
	status, body := getJSON(t, ts.URL+"/api/models")
	if status != http.StatusOK {
		t.Fatalf("unexpected status %d", status)
	}
	models, ok := body["models"].([]interface{})
	if !ok || len(models) == 0 {
		t.Fatalf("expected at least the mock model, got %+v", body)
	}
	first, _ := models[0].(map[string]interface{})
	if first["provider"] != "mock" {
		t.Errorf("expected mock provider without keys, got %+v", first)
	}
}

func TestFileOperationLifecycle(t *testing.T) {
	ts := newTestServer(t)
	url := ts.URL + "/api/files/operation"

	created := postJSON(t, url, map[string]interface{}{
		"operation": "create",
		"path":      "docs/readme.md",
		"content":   "# hello",
	})
	if created["success"] != true {
		t.Fatalf("create failed: %+v", created)
	}

	read := postJSON(t, url, map[string]interface{}{
		"operation": "read",
		"path":      "docs/readme.md",
	})
	if read["success"] != true || read["content"] != "# hello" {
		t.Fatalf("read failed: %+v", read)
	}

	listed := postJSON(t, url, map[string]interface{}{
		"operation": "list",
		"path":      "docs",
	})
	if listed["success"] != true {
		t.Fatalf("list failed: %+v", listed)
	}
	items, _ := listed["items"].([]interface{})
	if len(items) != 1 {
		t.Errorf("expected 1 item, got %+v", listed["items"])
	}

	renamed := postJSON(t, url, map[string]interface{}{
		"operation": "rename",
		"path":      "docs/readme.md",
		"new_path":  "docs/intro.md",
	})
	if renamed["success"] != true {
		t.Fatalf("rename failed: %+v", renamed)
	}

	found := postJSON(t, url, map[string]interface{}{
		"operation": "search",
		"path":      "docs",
		"pattern":   "hello",
	})
	if found["success"] != true {
		t.Fatalf("search failed: %+v", found)
	}

	deleted := postJSON(t, url, map[string]interface{}{
		"operation": "delete",
		"path":      "docs",
	})
	if deleted["success"] != true {
		t.Fatalf("delete failed: %+v", deleted)
	}
}

func TestFileOperationRejectsTraversal(t *testing.T) {
	ts := newTestServer(t)
	body := postJSON(t, ts.URL+"/api/files/operation", map[string]interface{}{
		"operation": "read",
		"path":      "../../etc/passwd",
	})
	if body["success"] != false {
		t.Fatalf("expected traversal rejection, got %+v", body)
	}
}

func TestFileOperationWriteRequiresContent(t *testing.T) {
	ts := newTestServer(t)
	body := postJSON(t, ts.URL+"/api/files/operation", map[string]interface{}{
		"operation": "write",
		"path":      "a.txt",
	})
	if body["success"] != false {
		t.Fatalf("expected missing content rejection, got %+v", body)
	}
}

func TestTerminalExecute(t *testing.T) {
	ts := newTestServer(t)
	body := postJSON(t, ts.URL+"/api/terminal/execute", map[string]interface{}{
		"command": "echo hello",
	})
	if body["success"] != true {
		t.Fatalf("echo failed: %+v", body)
	}
}

func TestTerminalRejectsDangerousCommand(t *testing.T) {
	ts := newTestServer(t)
	body := postJSON(t, ts.URL+"/api/terminal/execute", map[string]interface{}{
		"command": "rm -rf /",
	})
	if body["success"] != false {
		t.Fatalf("expected rejection, got %+v", body)
	}
	if errMsg, _ := body["error"].(string); errMsg == "" {
		t.Error("expected a rejection reason")
	}
}

func TestChatWithMockProviderAndHistory(t *testing.T) {
	ts := newTestServer(t)
	body := postJSON(t, ts.URL+"/api/chat", map[string]interface{}{
		"message": "hello there",
	})
	response, _ := body["response"].(string)
	sessionID, _ := body["session_id"].(string)
	if response == "" || sessionID == "" {
		t.Fatalf("unexpected chat response %+v", body)
	}

	status, hist := getJSON(t, ts.URL+"/api/history/"+sessionID)
	if status != http.StatusOK {
		t.Fatalf("unexpected history status %d", status)
	}
	messages, _ := hist["history"].([]interface{})
	if len(messages) != 2 {
		t.Errorf("expected user and assistant turns, got %d", len(messages))
	}
}

func TestHistoryUnknownSession(t *testing.T) {
	ts := newTestServer(t)
	status, _ := getJSON(t, ts.URL+"/api/history/does-not-exist")
	if status != http.StatusNotFound {
		t.Errorf("expected 404, got %d", status)
	}
}

func TestChatRequiresMessage(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Post(ts.URL+"/api/chat", "application/json", bytes.NewReader([]byte(`{}`)))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t)
	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/api/chat", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("expected 204 for preflight, got %d", resp.StatusCode)
	}
	if resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Error("expected permissive CORS header")
	}
}
