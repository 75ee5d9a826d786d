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

//go:build !windows

package shellexec

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestRunner() *Runner {
	return NewRunner(0, zerolog.Nop())
}

func TestRunCapturesStdout(t *testing.T) {
	res := newTestRunner().Run(context.Background(), "echo hello", "", 0)
	if !res.Success {
		t.Fatalf("expected success, got %+v", res)
	}
	if strings.TrimSpace(res.Stdout) != "hello" {
		t.Errorf("expected hello on stdout, got %q", res.Stdout)
	}
	if res.ExitCode != 0 {
		t.Errorf("expected exit code 0, got %d", res.ExitCode)
	}
}

func TestRunHonorsWorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	res := newTestRunner().Run(context.Background(), "pwd", dir, 0)
	if !res.Success {
		t.Fatalf("expected success, got %+v", res)
	}
	// The temp dir may resolve through symlinks, compare both forms.
	resolved, err := filepath.EvalSymlinks(dir)
	if err != nil {
		t.Fatal(err)
	}
	got := strings.TrimSpace(res.Stdout)
	if got != dir && got != resolved {
		t.Errorf("expected working directory %q, got %q", dir, got)
	}
}

func TestRunReportsExitCode(t *testing.T) {
	res := newTestRunner().Run(context.Background(), "exit 3", "", 0)
	if res.Success {
		t.Fatal("expected failure")
	}
	if res.ExitCode != 3 {
		t.Errorf("expected exit code 3, got %d", res.ExitCode)
	}
}

func TestRunCapturesStderr(t *testing.T) {
	res := newTestRunner().Run(context.Background(), "echo oops >&2; exit 1", "", 0)
	if res.Success {
		t.Fatal("expected failure")
	}
	if !strings.Contains(res.Stderr, "oops") {
		t.Errorf("expected stderr captured, got %q", res.Stderr)
	}
}

func TestRunTimeout(t *testing.T) {
	res := newTestRunner().Run(context.Background(), "sleep 5", "", 200*time.Millisecond)
	if res.Success {
		t.Fatal("expected timeout failure")
	}
	if res.ExitCode != -1 {
		t.Errorf("expected exit code -1 on timeout, got %d", res.ExitCode)
	}
	if !strings.Contains(res.Stderr, "timed out") {
		t.Errorf("expected timeout message, got %q", res.Stderr)
	}
	if !res.TimedOut() {
		t.Error("expected TimedOut() to report true")
	}
}
