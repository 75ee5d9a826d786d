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

// Package engine drives the embedded-command pipeline for one input
// text: extract directives, validate, execute in source order, then
// rewrite the text with each outcome. One directive's failure never
// aborts its siblings; only the orchestrator's own malfunction may
// escape as an error.
package engine

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"aliengine/internal/directive"
	"aliengine/internal/fsops"
	"aliengine/internal/paths"
	"aliengine/internal/shellexec"
)

// Engine processes directive-bearing text. Safe for concurrent use:
// concurrent texts run independent sequential pipelines, sharing only
// the filesystem.
type Engine struct {
	policy    paths.Policy
	files     *fsops.Executor
	shell     *shellexec.Runner
	blacklist *shellexec.Blacklist
	timeout   time.Duration
	log       zerolog.Logger
}

// Options configures an engine.
type Options struct {
	// Policy validates every directive path. Embedded directives run
	// unrestricted by default; deployments wanting confinement pass a
	// root-constrained policy.
	Policy paths.Policy

	// ShellTimeout bounds run directives; zero means the runner default.
	ShellTimeout time.Duration

	// DangerousPatterns overrides the stock blacklist when non-nil.
	DangerousPatterns []string

	Limits fsops.Limits
}

// New builds an engine from options.
func New(opts Options, log zerolog.Logger) *Engine {
	blacklist := shellexec.DefaultBlacklist()
	if opts.DangerousPatterns != nil {
		blacklist = shellexec.NewBlacklist(opts.DangerousPatterns)
	}
	return &Engine{
		policy:    opts.Policy,
		files:     fsops.NewExecutor(opts.Limits, log),
		shell:     shellexec.NewRunner(opts.ShellTimeout, log),
		blacklist: blacklist,
		timeout:   opts.ShellTimeout,
		log:       log,
	}
}

// Files exposes the engine's file executor for direct API use.
func (e *Engine) Files() *fsops.Executor {
	return e.files
}

// Shell exposes the engine's shell runner for direct API use.
func (e *Engine) Shell() *shellexec.Runner {
	return e.shell
}

// Blacklist exposes the engine's dangerous-pattern filter.
func (e *Engine) Blacklist() *shellexec.Blacklist {
	return e.blacklist
}

// Process extracts and executes every directive in text, returning the
// rewritten text and one result per directive in source order. Text with
// no directive tokens comes back unchanged with an empty result list.
func (e *Engine) Process(ctx context.Context, text string) (string, []Result) {
	directives := directive.ExtractAll(text)
	if len(directives) == 0 {
		return text, nil
	}

	e.log.Info().Int("count", len(directives)).Msg("Extracted directives from response")

	results := make([]Result, 0, len(directives))
	for _, d := range directives {
		results = append(results, e.execute(ctx, d))
	}

	return rewrite(text, directives, results), results
}

// execute runs a single directive. Every failure is captured in the
// result; nothing escapes to abort sibling directives.
func (e *Engine) execute(ctx context.Context, d directive.Directive) Result {
	if !d.Recognized() {
		return failure(d.Operation, d.Path, "Unsupported operation: "+d.Operation)
	}

	rawPath := d.Path
	if d.Operation == directive.OpRun && rawPath == "" {
		rawPath = "."
	}

	path, err := e.policy.Validate(rawPath)
	if err != nil {
		return failure(d.Operation, d.Path, err.Error())
	}

	switch d.Operation {
	case directive.OpRead:
		content, err := e.files.Read(ctx, path)
		if err != nil {
			return failure(d.Operation, d.Path, err.Error())
		}
		return Result{
			Operation: d.Operation, Path: d.Path, Success: true,
			Message: "Successfully read file: " + d.Path,
			Content: content,
		}

	case directive.OpWrite:
		if !d.HasContent || d.Content == "" {
			return failure(d.Operation, d.Path, "no content provided for write operation")
		}
		if err := e.files.Write(ctx, path, d.Content); err != nil {
			return failure(d.Operation, d.Path, err.Error())
		}
		return Result{
			Operation: d.Operation, Path: d.Path, Success: true,
			Message: "Successfully wrote to file: " + d.Path,
		}

	case directive.OpCreate:
		if err := e.files.Create(ctx, path, d.Content); err != nil {
			return failure(d.Operation, d.Path, err.Error())
		}
		return Result{
			Operation: d.Operation, Path: d.Path, Success: true,
			Message: "Successfully created file: " + d.Path,
		}

	case directive.OpAppend:
		if err := e.files.Append(ctx, path, d.Content); err != nil {
			return failure(d.Operation, d.Path, err.Error())
		}
		return Result{
			Operation: d.Operation, Path: d.Path, Success: true,
			Message: "Successfully appended to file: " + d.Path,
		}

	case directive.OpDelete:
		if err := e.files.Delete(ctx, path); err != nil {
			return failure(d.Operation, d.Path, err.Error())
		}
		return Result{
			Operation: d.Operation, Path: d.Path, Success: true,
			Message: "Successfully deleted: " + d.Path,
		}

	case directive.OpList:
		items, err := e.files.List(ctx, path, false)
		if err != nil {
			return failure(d.Operation, d.Path, err.Error())
		}
		return Result{
			Operation: d.Operation, Path: d.Path, Success: true,
			Message: "Successfully listed directory: " + d.Path,
			Items:   items,
		}

	case directive.OpRun:
		return e.executeRun(ctx, d, path)
	}

	return failure(d.Operation, d.Path, "Unsupported operation: "+d.Operation)
}

// executeRun handles the run directive: PATH is the working directory
// and CONTENT is the command line.
func (e *Engine) executeRun(ctx context.Context, d directive.Directive, workdir string) Result {
	if !d.HasContent || d.Content == "" {
		return failure(d.Operation, d.Path, "no command provided for run operation")
	}

	if pattern, hit := e.blacklist.Match(d.Content); hit {
		e.log.Warn().Str("pattern", pattern).Msg("Blocked dangerous shell command")
		return failure(d.Operation, d.Path,
			"Command rejected for security reasons: contains potentially unsafe operations")
	}

	// A file path as working directory falls back to its parent, the
	// way the protocol has always behaved.
	if info, err := os.Stat(workdir); err != nil || !info.IsDir() {
		workdir = filepath.Dir(workdir)
	}

	res := e.shell.Run(ctx, d.Content, workdir, e.timeout)

	message := "Command executed successfully"
	if !res.Success {
		message = "Command execution failed"
		if res.TimedOut() {
			message = res.Stderr
		}
	}

	return Result{
		Operation: d.Operation, Path: d.Path, Success: res.Success,
		Message: message,
		Exec:    &res,
	}
}
