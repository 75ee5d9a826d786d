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

package shellexec

import "strings"

// DefaultDangerousPatterns is the stock blacklist applied to shell
// commands before execution. A single case-insensitive substring hit
// blocks the whole command. This is a best-effort deterrent, not a
// sandbox: it does not survive obfuscation and confines nothing.
var DefaultDangerousPatterns = []string{
	"rm -rf",
	"format",
	"del /s",
	"deltree",
	"shutdown",
	"reboot",
	":(){:|:&};:",
	"chmod -r 777",
	"mkfs",
	"dd if=/dev/zero",
	"mv /* /dev/null",
	"> /dev/sda",
	"wget",
	"curl",
}

// Blacklist checks command text against a fixed set of dangerous
// substrings. The zero value blocks nothing.
type Blacklist struct {
	patterns []string
}

// NewBlacklist builds a blacklist from the given patterns. Patterns are
// matched case-insensitively; empty entries are dropped.
func NewBlacklist(patterns []string) *Blacklist {
	b := &Blacklist{}
	for _, p := range patterns {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		b.patterns = append(b.patterns, p)
	}
	return b
}

// DefaultBlacklist returns a blacklist with the stock pattern set.
func DefaultBlacklist() *Blacklist {
	return NewBlacklist(DefaultDangerousPatterns)
}

// Match returns the first pattern contained in the command, if any.
func (b *Blacklist) Match(command string) (string, bool) {
	if b == nil {
		return "", false
	}
	lowered := strings.ToLower(command)
	for _, p := range b.patterns {
		if strings.Contains(lowered, p) {
			return p, true
		}
	}
	return "", false
}

// IsDangerous reports whether the command hits any blacklist pattern.
func (b *Blacklist) IsDangerous(command string) bool {
	_, hit := b.Match(command)
	return hit
}
