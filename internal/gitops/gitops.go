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

// Package gitops drives a handful of git operations through the git
// binary. Arguments are passed as a vector, never through a shell, so
// repository URLs and commit messages cannot inject commands.
package gitops

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/rs/zerolog"
)

// Request describes one git operation.
type Request struct {
	Operation       string   `json:"operation"`
	RepositoryURL   string   `json:"repository_url,omitempty"`
	DestinationPath string   `json:"destination_path,omitempty"`
	Branch          string   `json:"branch,omitempty"`
	CommitMessage   string   `json:"commit_message,omitempty"`
	Files           []string `json:"files,omitempty"`
}

// Response reports the outcome of one git operation.
type Response struct {
	Success bool   `json:"success"`
	Output  string `json:"output,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Service executes git operations. Safe for concurrent use.
type Service struct {
	log zerolog.Logger
}

// NewService returns a git operation service.
func NewService(log zerolog.Logger) *Service {
	return &Service{log: log}
}

func fail(format string, args ...interface{}) Response {
	return Response{Error: fmt.Sprintf(format, args...)}
}

// Execute dispatches a git operation. All failures come back in the
// response; Execute never panics or propagates errors.
func (s *Service) Execute(ctx context.Context, req Request) Response {
	if _, err := exec.LookPath("git"); err != nil {
		return fail("Git is not installed or not in PATH")
	}

	switch strings.ToLower(req.Operation) {
	case "clone":
		return s.clone(ctx, req)
	case "pull", "status", "fetch":
		return s.inRepo(ctx, req, strings.ToLower(req.Operation))
	case "commit":
		return s.commit(ctx, req)
	case "push":
		return s.push(ctx, req)
	}
	return fail("Unsupported git operation: %s", req.Operation)
}

func (s *Service) clone(ctx context.Context, req Request) Response {
	if req.RepositoryURL == "" {
		return fail("Repository URL not provided")
	}
	destination := req.DestinationPath
	if destination == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fail("failed to determine working directory: %v", err)
		}
		destination = wd
	}

	args := []string{"clone", req.RepositoryURL}
	if req.Branch != "" {
		args = append(args, "--branch", req.Branch)
	}
	args = append(args, destination)

	return s.runGit(ctx, "", args...)
}

func (s *Service) inRepo(ctx context.Context, req Request, operation string) Response {
	if req.DestinationPath == "" {
		return fail("Destination path not provided")
	}
	if _, err := os.Stat(req.DestinationPath); err != nil {
		return fail("Path not found: %s", req.DestinationPath)
	}
	return s.runGit(ctx, req.DestinationPath, operation)
}

func (s *Service) commit(ctx context.Context, req Request) Response {
	if req.DestinationPath == "" {
		return fail("Destination path not provided")
	}
	if _, err := os.Stat(req.DestinationPath); err != nil {
		return fail("Path not found: %s", req.DestinationPath)
	}
	if req.CommitMessage == "" {
		return fail("Commit message is required")
	}

	if len(req.Files) > 0 {
		for _, file := range req.Files {
			if res := s.runGit(ctx, req.DestinationPath, "add", file); !res.Success {
				return fail("Failed to add %s: %s", file, res.Error)
			}
		}
	} else {
		if res := s.runGit(ctx, req.DestinationPath, "add", "."); !res.Success {
			return fail("Failed to add files: %s", res.Error)
		}
	}

	res := s.runGit(ctx, req.DestinationPath, "commit", "-m", req.CommitMessage)
	if !res.Success {
		if strings.Contains(res.Error, "nothing to commit") || strings.Contains(res.Output, "nothing to commit") {
			return fail("Nothing to commit, working tree clean")
		}
	}
	return res
}

func (s *Service) push(ctx context.Context, req Request) Response {
	if req.DestinationPath == "" {
		return fail("Destination path not provided")
	}
	if _, err := os.Stat(req.DestinationPath); err != nil {
		return fail("Path not found: %s", req.DestinationPath)
	}

	branch := req.Branch
	if branch == "" {
		if res := s.runGit(ctx, req.DestinationPath, "branch", "--show-current"); res.Success {
			branch = strings.TrimSpace(res.Output)
		}
	}

	args := []string{"push"}
	if branch != "" {
		args = append(args, "origin", branch)
	}
	return s.runGit(ctx, req.DestinationPath, args...)
}

func (s *Service) runGit(ctx context.Context, dir string, args ...string) Response {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	s.log.Debug().Strs("args", args).Bool("ok", err == nil).Msg("Ran git")

	if err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return Response{Output: stdout.String(), Error: msg}
	}
	return Response{Success: true, Output: stdout.String()}
}
