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

// Package fsops performs the filesystem side of the command protocol:
// read, write, create, append, delete, list and rename. Paths reaching
// this package have already cleared the path policy; no operation here
// re-validates them. Every failure is a coded error suitable for
// rendering into an operation result.
package fsops

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"aliengine/internal/apperr"
)

// Limits bounds file sizes and directory traversal.
type Limits struct {
	MaxFileSizeBytes    int64
	MaxDirectoryDepth   int
	MaxDirectoryEntries int
}

const (
	defaultMaxFileSizeBytes    int64 = 10 * 1024 * 1024
	defaultMaxDirectoryDepth         = 8
	defaultMaxDirectoryEntries       = 2000
)

// DefaultLimits returns the default resource limits.
func DefaultLimits() Limits {
	return Limits{
		MaxFileSizeBytes:    defaultMaxFileSizeBytes,
		MaxDirectoryDepth:   defaultMaxDirectoryDepth,
		MaxDirectoryEntries: defaultMaxDirectoryEntries,
	}
}

func (l Limits) normalized() Limits {
	if l.MaxFileSizeBytes <= 0 {
		l.MaxFileSizeBytes = defaultMaxFileSizeBytes
	}
	if l.MaxDirectoryDepth <= 0 {
		l.MaxDirectoryDepth = defaultMaxDirectoryDepth
	}
	if l.MaxDirectoryEntries <= 0 {
		l.MaxDirectoryEntries = defaultMaxDirectoryEntries
	}
	return l
}

// Entry describes one directory member as returned by List.
type Entry struct {
	Name        string    `json:"name"`
	IsDirectory bool      `json:"is_directory"`
	Size        int64     `json:"size"`
	Modified    time.Time `json:"modified"`
}

// Executor performs file operations. It is safe for concurrent use; the
// filesystem itself is the only shared state.
type Executor struct {
	limits Limits
	log    zerolog.Logger
}

// NewExecutor returns an executor with the given limits.
func NewExecutor(limits Limits, log zerolog.Logger) *Executor {
	return &Executor{limits: limits.normalized(), log: log}
}

// Read returns the full content of a text file. Binary content yields a
// descriptive sentinel string instead of an error, so callers can still
// report success without dumping undecodable bytes.
func (e *Executor) Read(ctx context.Context, path string) (string, error) {
	if err := ensureContext(ctx); err != nil {
		return "", err
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", apperr.Newf(apperr.CodeNotFound, "file not found: %s", path)
		}
		return "", apperr.Wrap(apperr.CodeExecutionFailed, "failed to read file", err)
	}
	if info.IsDir() {
		return "", apperr.Newf(apperr.CodeIsADirectory, "%s is a directory, not a file", path)
	}
	if info.Size() > e.limits.MaxFileSizeBytes {
		return "", apperr.Newf(apperr.CodeExecutionFailed,
			"file exceeds maximum size of %d bytes", e.limits.MaxFileSizeBytes)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return "", apperr.Wrap(apperr.CodeExecutionFailed, "failed to read file", err)
	}

	if !IsTextContent(content) {
		return fmt.Sprintf("(binary file: %d bytes, content not displayable as text)", len(content)), nil
	}

	return string(content), nil
}

// Write stores content at path, overwriting any existing file and
// creating intermediate directories as needed.
func (e *Executor) Write(ctx context.Context, path, content string) error {
	if err := ensureContext(ctx); err != nil {
		return err
	}
	if int64(len(content)) > e.limits.MaxFileSizeBytes {
		return apperr.Newf(apperr.CodeExecutionFailed,
			"content exceeds maximum size of %d bytes", e.limits.MaxFileSizeBytes)
	}
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return apperr.Newf(apperr.CodeIsADirectory, "%s is a directory, not a file", path)
	}
	if err := ensureParentDir(path); err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return apperr.Wrap(apperr.CodeExecutionFailed, "failed to write file", err)
	}
	e.log.Debug().Str("path", path).Int("bytes", len(content)).Msg("Wrote file")
	return nil
}

// Create makes a new file with optional content, failing when the target
// already exists.
func (e *Executor) Create(ctx context.Context, path, content string) error {
	if err := ensureContext(ctx); err != nil {
		return err
	}
	if _, err := os.Lstat(path); err == nil {
		return apperr.Newf(apperr.CodeAlreadyExists, "%s already exists", path)
	} else if !os.IsNotExist(err) {
		return apperr.Wrap(apperr.CodeExecutionFailed, "failed to create file", err)
	}
	return e.Write(ctx, path, content)
}

// Append adds content to the end of a file, creating it first if absent.
// Content must be non-empty.
func (e *Executor) Append(ctx context.Context, path, content string) error {
	if err := ensureContext(ctx); err != nil {
		return err
	}
	if content == "" {
		return apperr.New(apperr.CodeMissingArgument, "no content provided for append operation")
	}
	if err := ensureParentDir(path); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return apperr.Wrap(apperr.CodeExecutionFailed, "failed to append to file", err)
	}
	defer f.Close()
	if _, err := f.WriteString(content); err != nil {
		return apperr.Wrap(apperr.CodeExecutionFailed, "failed to append to file", err)
	}
	return nil
}

// Delete removes a file, or a directory together with its contents.
func (e *Executor) Delete(ctx context.Context, path string) error {
	if err := ensureContext(ctx); err != nil {
		return err
	}
	if _, err := os.Lstat(path); err != nil {
		if os.IsNotExist(err) {
			return apperr.Newf(apperr.CodeNotFound, "path not found: %s", path)
		}
		return apperr.Wrap(apperr.CodeExecutionFailed, "failed to delete", err)
	}
	if _, err := runCoreCommand(ctx, newRemoveCommand(), []string{"-r", "-f", path}); err != nil {
		return apperr.Wrap(apperr.CodeExecutionFailed, "failed to delete", err)
	}
	e.log.Debug().Str("path", path).Msg("Deleted path")
	return nil
}

// List returns the entries of a directory. In recursive mode the result
// is flattened, with each entry named by its path relative to the listed
// directory; non-recursive mode lists immediate children only.
func (e *Executor) List(ctx context.Context, path string, recursive bool) ([]Entry, error) {
	if err := ensureContext(ctx); err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperr.Newf(apperr.CodeNotFound, "directory not found: %s", path)
		}
		return nil, apperr.Wrap(apperr.CodeExecutionFailed, "failed to list directory", err)
	}
	if !info.IsDir() {
		return nil, apperr.Newf(apperr.CodeNotADirectory, "%s is not a directory", path)
	}

	if recursive {
		return e.listRecursive(ctx, path)
	}
	return e.listImmediate(ctx, path)
}

func (e *Executor) listImmediate(ctx context.Context, path string) ([]Entry, error) {
	dirents, err := os.ReadDir(path)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeExecutionFailed, "failed to read directory", err)
	}
	if len(dirents) > e.limits.MaxDirectoryEntries {
		return nil, apperr.Newf(apperr.CodeExecutionFailed,
			"directory contains more than %d entries", e.limits.MaxDirectoryEntries)
	}

	entries := make([]Entry, 0, len(dirents))
	for _, d := range dirents {
		if err := ensureContext(ctx); err != nil {
			return nil, err
		}
		info, err := d.Info()
		if err != nil {
			continue
		}
		entries = append(entries, entryFromInfo(d.Name(), info))
	}
	return entries, nil
}

func (e *Executor) listRecursive(ctx context.Context, path string) ([]Entry, error) {
	var entries []Entry
	err := filepath.Walk(path, func(p string, info os.FileInfo, err error) error {
		if ctxErr := ensureContext(ctx); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			return err
		}
		if p == path {
			return nil
		}

		rel, err := filepath.Rel(path, p)
		if err != nil {
			return err
		}
		if strings.Count(rel, string(os.PathSeparator))+1 > e.limits.MaxDirectoryDepth {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if len(entries) >= e.limits.MaxDirectoryEntries {
			return apperr.Newf(apperr.CodeExecutionFailed,
				"directory contains more than %d entries", e.limits.MaxDirectoryEntries)
		}

		entries = append(entries, entryFromInfo(rel, info))
		return nil
	})
	if err != nil {
		if _, ok := err.(*apperr.Error); ok {
			return nil, err
		}
		return nil, apperr.Wrap(apperr.CodeExecutionFailed, "failed to list directory", err)
	}
	return entries, nil
}

// Rename moves a file or directory to a new path, creating destination
// parent directories as needed.
func (e *Executor) Rename(ctx context.Context, path, newPath string) error {
	if err := ensureContext(ctx); err != nil {
		return err
	}
	if strings.TrimSpace(newPath) == "" {
		return apperr.New(apperr.CodeMissingArgument, "new path not provided for rename operation")
	}
	if _, err := os.Lstat(path); err != nil {
		if os.IsNotExist(err) {
			return apperr.Newf(apperr.CodeNotFound, "path not found: %s", path)
		}
		return apperr.Wrap(apperr.CodeExecutionFailed, "failed to rename", err)
	}
	if err := ensureParentDir(newPath); err != nil {
		return err
	}
	if _, err := runCoreCommand(ctx, newMoveCommand(), []string{path, newPath}); err != nil {
		return apperr.Wrap(apperr.CodeExecutionFailed, "failed to rename", err)
	}
	e.log.Debug().Str("from", path).Str("to", newPath).Msg("Renamed path")
	return nil
}

func entryFromInfo(name string, info os.FileInfo) Entry {
	size := info.Size()
	if info.IsDir() {
		size = 0
	}
	return Entry{
		Name:        name,
		IsDirectory: info.IsDir(),
		Size:        size,
		Modified:    info.ModTime(),
	}
}

func ensureParentDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return apperr.Wrap(apperr.CodeExecutionFailed, "failed to create parent directories", err)
	}
	return nil
}

// IsTextContent reports whether data decodes as displayable text.
func IsTextContent(data []byte) bool {
	if len(data) == 0 {
		return true
	}
	if !utf8.Valid(data) {
		return false
	}

	const sampleSize = 8192
	limit := len(data)
	if limit > sampleSize {
		limit = sampleSize
	}

	var nonPrintable int
	for _, b := range data[:limit] {
		switch b {
		case '\n', '\r', '\t':
			continue
		}
		if b == 0 {
			return false
		}
		if b < 0x20 || b == 0x7f {
			nonPrintable++
		}
	}

	return nonPrintable*20 < limit
}

func ensureContext(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
