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

package engine

import (
	"strings"

	"aliengine/internal/directive"
)

// rewrite replaces each directive's source span in the original text with
// a rendering of its result. Replacement works on the original byte
// offsets, never on a mutated string, so each span is substituted exactly
// once and adjacent directive text cannot be double-replaced.
func rewrite(text string, directives []directive.Directive, results []Result) string {
	if len(directives) == 0 {
		return text
	}

	var b strings.Builder
	cursor := 0
	for i, d := range directives {
		b.WriteString(text[cursor:d.Span.Start])
		b.WriteString(renderResult(d, results[i]))
		cursor = d.Span.End
	}
	b.WriteString(text[cursor:])
	return b.String()
}

// renderResult produces the human-readable marker inserted in place of a
// directive token.
func renderResult(d directive.Directive, res Result) string {
	if !res.Success {
		return "❌ " + res.Message
	}
	if d.Operation == directive.OpRead {
		return "```\n" + res.Content + "\n```"
	}
	return "✅ " + res.Message
}
