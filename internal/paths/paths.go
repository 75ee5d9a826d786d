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

// Package paths decides whether a filesystem path is permitted before any
// executor touches it. Two policy modes exist: unrestricted (embedded
// directives run at host-process privilege, a documented trust boundary)
// and root-constrained (the direct file API refuses traversal outside a
// configured base directory).
package paths

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"aliengine/internal/apperr"
)

const maxPathLength = 4096

// Policy selects the validation mode. An empty Root means unrestricted;
// a non-empty Root confines every path under that directory.
type Policy struct {
	Root string
}

// Unrestricted returns a policy that accepts any path the host OS accepts.
func Unrestricted() Policy {
	return Policy{}
}

// RootConstrained returns a policy confining paths under root.
func RootConstrained(root string) Policy {
	return Policy{Root: root}
}

// Restricted reports whether the policy confines paths under a root.
func (p Policy) Restricted() bool {
	return p.Root != ""
}

// Validate checks a path against the policy and returns the path an
// executor should use. Rejection is always an invalid_path coded error.
func (p Policy) Validate(path string) (string, error) {
	if err := checkPathString(path); err != nil {
		return "", err
	}

	if !p.Restricted() {
		return filepath.Clean(path), nil
	}

	if filepath.IsAbs(path) {
		return "", apperr.New(apperr.CodeInvalidPath, "absolute paths are not allowed")
	}
	if hasParentSegment(path) {
		return "", apperr.New(apperr.CodeInvalidPath, "directory traversal is not allowed")
	}

	rootAbs, err := filepath.Abs(p.Root)
	if err != nil {
		return "", apperr.Wrap(apperr.CodeInvalidPath, "invalid base directory", err)
	}

	resolved := filepath.Clean(filepath.Join(rootAbs, filepath.Clean(path)))
	if !HasPathPrefix(resolved, rootAbs) {
		return "", apperr.New(apperr.CodeInvalidPath, "path escapes the configured root")
	}

	return resolved, nil
}

// checkPathString validates raw path input before resolution.
func checkPathString(path string) error {
	if strings.TrimSpace(path) == "" {
		return apperr.New(apperr.CodeInvalidPath, "path cannot be empty")
	}
	if strings.IndexByte(path, 0) != -1 {
		return apperr.New(apperr.CodeInvalidPath, "path contains null byte")
	}
	if !utf8.ValidString(path) {
		return apperr.New(apperr.CodeInvalidPath, "path is not valid UTF-8")
	}
	if len(path) > maxPathLength {
		return apperr.New(apperr.CodeInvalidPath,
			fmt.Sprintf("path exceeds maximum length of %d characters", maxPathLength))
	}
	return nil
}

// hasParentSegment reports whether any path segment is "..". Checking
// segments rather than a substring keeps names like "notes..txt" legal.
func hasParentSegment(path string) bool {
	normalized := strings.ReplaceAll(path, "\\", "/")
	for _, segment := range strings.Split(normalized, "/") {
		if segment == ".." {
			return true
		}
	}
	return false
}

// HasPathPrefix returns true when path is within base.
func HasPathPrefix(path, base string) bool {
	rel, err := filepath.Rel(base, path)
	if err != nil {
		return false
	}
	return rel == "." || (!strings.HasPrefix(rel, ".."+string(filepath.Separator)) && rel != "..")
}
