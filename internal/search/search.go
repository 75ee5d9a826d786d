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

// Package search runs regex content searches over a directory tree. A
// pattern that fails to compile is retried as a literal string instead of
// surfacing the compile error; binary files are skipped silently. Files
// without matches are omitted from results entirely.
package search

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"aliengine/internal/apperr"
	"aliengine/internal/fsops"
)

// Match is one regex hit inside a file. Line numbers are 1-based.
type Match struct {
	Line    int    `json:"line"`
	Content string `json:"content"`
	Match   string `json:"match"`
}

// FileResult groups the matches of a single file. File is relative to
// the search root.
type FileResult struct {
	File    string  `json:"file"`
	Matches []Match `json:"matches"`
}

// Engine performs content searches. It is stateless apart from limits.
type Engine struct {
	maxFileSize int64
	log         zerolog.Logger
}

// NewEngine returns a search engine. Files larger than maxFileSize are
// skipped; a non-positive value uses the fsops default.
func NewEngine(maxFileSize int64, log zerolog.Logger) *Engine {
	if maxFileSize <= 0 {
		maxFileSize = fsops.DefaultLimits().MaxFileSizeBytes
	}
	return &Engine{maxFileSize: maxFileSize, log: log}
}

// Search scans files under root for pattern. Non-recursive mode scans
// only the immediate files of root; recursive mode walks the whole tree.
// Traversal follows the order the underlying directory listing provides.
func (e *Engine) Search(ctx context.Context, root, pattern string, recursive bool) ([]FileResult, error) {
	if strings.TrimSpace(pattern) == "" {
		return nil, apperr.New(apperr.CodeMissingArgument, "search pattern is required")
	}

	info, err := os.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperr.Newf(apperr.CodeNotFound, "path not found: %s", root)
		}
		return nil, apperr.Wrap(apperr.CodeExecutionFailed, "failed to search", err)
	}
	if !info.IsDir() {
		return nil, apperr.Newf(apperr.CodeNotADirectory, "%s is not a directory", root)
	}

	re := compileOrLiteral(pattern)

	var results []FileResult
	collect := func(filePath string) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		fileResult, ok := e.searchFile(filePath, root, re)
		if ok {
			results = append(results, fileResult)
		}
		return nil
	}

	if recursive {
		err = filepath.Walk(root, func(p string, info os.FileInfo, err error) error {
			if err != nil {
				return nil // unreadable entries do not fail the search
			}
			if info.Mode().IsRegular() {
				return collect(p)
			}
			return nil
		})
	} else {
		var dirents []os.DirEntry
		dirents, err = os.ReadDir(root)
		if err != nil {
			return nil, apperr.Wrap(apperr.CodeExecutionFailed, "failed to read directory", err)
		}
		for _, d := range dirents {
			if d.IsDir() {
				continue
			}
			if err = collect(filepath.Join(root, d.Name())); err != nil {
				break
			}
		}
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeExecutionFailed, "search aborted", err)
	}

	return results, nil
}

// compileOrLiteral compiles pattern as a regex, falling back to a
// literal-string match when compilation fails.
func compileOrLiteral(pattern string) *regexp.Regexp {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return regexp.MustCompile(regexp.QuoteMeta(pattern))
	}
	return re
}

// searchFile scans one file and reports its matches. Binary and
// unreadable files contribute nothing.
func (e *Engine) searchFile(filePath, root string, re *regexp.Regexp) (FileResult, bool) {
	info, err := os.Stat(filePath)
	if err != nil || info.Size() > e.maxFileSize {
		return FileResult{}, false
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return FileResult{}, false
	}
	if !fsops.IsTextContent(data) {
		return FileResult{}, false
	}

	content := string(data)
	locations := re.FindAllStringIndex(content, -1)
	if len(locations) == 0 {
		return FileResult{}, false
	}

	rel, err := filepath.Rel(root, filePath)
	if err != nil {
		rel = filePath
	}

	matches := make([]Match, 0, len(locations))
	for _, loc := range locations {
		start, end := loc[0], loc[1]
		matches = append(matches, Match{
			Line:    1 + strings.Count(content[:start], "\n"),
			Content: lineAround(content, start),
			Match:   content[start:end],
		})
	}

	return FileResult{File: rel, Matches: matches}, true
}

// lineAround returns the full line containing the byte offset. The line
// runs from the previous newline to the next one, or to end of file.
func lineAround(content string, offset int) string {
	lineStart := strings.LastIndexByte(content[:offset], '\n') + 1
	lineEnd := strings.IndexByte(content[offset:], '\n')
	if lineEnd == -1 {
		return content[lineStart:]
	}
	return content[lineStart : offset+lineEnd]
}
