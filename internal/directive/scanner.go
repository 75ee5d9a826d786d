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

package directive

import "strings"

const (
	openMarker  = "{{command:"
	closeMarker = "}}"
	separator   = '|'
)

// Scanner walks input text and yields directives in the order their
// tokens appear. Scanning has no side effects, so running it twice over
// the same text yields the same sequence.
type Scanner struct {
	text string
	pos  int
}

// NewScanner returns a scanner over the given text.
func NewScanner(text string) *Scanner {
	return &Scanner{text: text}
}

// Next returns the next directive and true, or a zero directive and false
// once the text is exhausted. Malformed candidates (no separator after the
// operation, or no close delimiter) are skipped.
func (s *Scanner) Next() (Directive, bool) {
	for {
		start := strings.Index(s.text[s.pos:], openMarker)
		if start == -1 {
			s.pos = len(s.text)
			return Directive{}, false
		}
		start += s.pos

		d, end, ok := s.parseAt(start)
		if !ok {
			// Not a well-formed token; resume after the open marker so
			// a later token is still found.
			s.pos = start + len(openMarker)
			continue
		}

		s.pos = end
		return d, true
	}
}

// parseAt attempts to parse one token starting at the open marker offset.
// It returns the directive, the byte offset just past the close delimiter,
// and whether the parse succeeded.
func (s *Scanner) parseAt(start int) (Directive, int, bool) {
	cursor := start + len(openMarker)

	opEnd := cursor
	for opEnd < len(s.text) && isIdentByte(s.text[opEnd]) {
		opEnd++
	}
	if opEnd == cursor || opEnd >= len(s.text) || s.text[opEnd] != separator {
		return Directive{}, 0, false
	}
	operation := s.text[cursor:opEnd]

	// PATH runs to the next separator or the close delimiter, whichever
	// comes first.
	pathStart := opEnd + 1
	rest := s.text[pathStart:]
	sepIdx := strings.IndexByte(rest, separator)
	closeIdx := strings.Index(rest, closeMarker)
	if closeIdx == -1 {
		return Directive{}, 0, false
	}

	if sepIdx == -1 || sepIdx > closeIdx {
		// No content part.
		end := pathStart + closeIdx + len(closeMarker)
		return Directive{
			Operation: operation,
			Path:      rest[:closeIdx],
			Span:      Span{Start: start, End: end},
		}, end, true
	}

	// CONTENT runs from after the separator to the first close delimiter.
	contentStart := sepIdx + 1
	contentEnd := strings.Index(rest[contentStart:], closeMarker)
	if contentEnd == -1 {
		return Directive{}, 0, false
	}
	end := pathStart + contentStart + contentEnd + len(closeMarker)
	return Directive{
		Operation:  operation,
		Path:       rest[:sepIdx],
		Content:    rest[contentStart : contentStart+contentEnd],
		HasContent: true,
		Span:       Span{Start: start, End: end},
	}, end, true
}

func isIdentByte(b byte) bool {
	return b == '_' ||
		(b >= 'a' && b <= 'z') ||
		(b >= 'A' && b <= 'Z') ||
		(b >= '0' && b <= '9')
}

// ExtractAll runs a scanner to completion and collects every directive.
func ExtractAll(text string) []Directive {
	var out []Directive
	scanner := NewScanner(text)
	for {
		d, ok := scanner.Next()
		if !ok {
			return out
		}
		out = append(out, d)
	}
}
