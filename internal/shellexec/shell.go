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

// Package shellexec runs external commands through the system shell with
// a working directory, a timeout, and captured output. Shell injection is
// an accepted risk surface here, bounded only by the blacklist filter;
// callers that need real confinement must provide it outside this process.
package shellexec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// DefaultTimeout bounds command execution when the caller does not
// specify one.
const DefaultTimeout = 30 * time.Second

// Result captures the outcome of one shell command.
type Result struct {
	Success  bool   `json:"success"`
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	ExitCode int    `json:"exit_code"`
}

// Runner executes shell commands. It is safe for concurrent use.
type Runner struct {
	timeout time.Duration
	log     zerolog.Logger
}

// NewRunner returns a runner with the given default timeout. A
// non-positive timeout falls back to DefaultTimeout.
func NewRunner(timeout time.Duration, log zerolog.Logger) *Runner {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Runner{timeout: timeout, log: log}
}

// Run executes command through the system shell in workdir. An empty
// workdir means the current directory; a zero timeout uses the runner's
// default. Timeout expiry kills the whole process group and yields
// success=false with exit code -1; Run itself never returns an error for
// command failure, only a Result describing it.
func (r *Runner) Run(ctx context.Context, command, workdir string, timeout time.Duration) Result {
	if timeout <= 0 {
		timeout = r.timeout
	}
	if workdir == "" {
		if wd, err := os.Getwd(); err == nil {
			workdir = wd
		}
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := shellCommand(ctx, command)
	cmd.Dir = workdir
	cmd.SysProcAttr = sysProcAttr()
	cmd.Cancel = func() error {
		return terminateProcessGroup(cmd)
	}
	cmd.WaitDelay = 5 * time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	started := time.Now()
	err := cmd.Run()
	elapsed := time.Since(started)

	result := Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	switch {
	case ctx.Err() == context.DeadlineExceeded:
		result.ExitCode = -1
		result.Stderr = fmt.Sprintf("command execution timed out after %s", timeout)
		r.log.Warn().Str("command", command).Dur("elapsed", elapsed).Msg("Shell command timed out")
	case err != nil:
		result.ExitCode = exitCodeFrom(err)
		if strings.TrimSpace(result.Stderr) == "" {
			result.Stderr = err.Error()
		}
		r.log.Debug().Str("command", command).Int("exit_code", result.ExitCode).Msg("Shell command failed")
	default:
		result.Success = true
		result.ExitCode = 0
		r.log.Debug().Str("command", command).Dur("elapsed", elapsed).Msg("Shell command completed")
	}

	return result
}

// TimedOut reports whether a result carries the timeout sentinel.
func (res Result) TimedOut() bool {
	return !res.Success && res.ExitCode == -1 && strings.Contains(res.Stderr, "timed out")
}

func exitCodeFrom(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}
