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

// Package directive recovers structured operation requests embedded in
// free-form text. The token grammar is flat on purpose:
//
//	{{command:OPERATION|PATH}}
//	{{command:OPERATION|PATH|CONTENT}}
//
// OPERATION is an identifier (letters, digits, underscore), PATH runs to
// the next separator or close delimiter, and CONTENT runs to the first
// close delimiter. CONTENT may contain separators and newlines but cannot
// contain the close delimiter itself; there is no escape sequence, so
// content holding "}}" mis-parses. That limitation is inherited from the
// protocol and documented rather than fixed.
package directive

// Recognized operation identifiers. Tokens with other identifiers are
// still extracted so the caller can report them as unsupported.
const (
	OpRead   = "read"
	OpWrite  = "write"
	OpCreate = "create"
	OpAppend = "append"
	OpDelete = "delete"
	OpList   = "list"
	OpRun    = "run"
)

// Span is the exact byte range of a directive's textual representation in
// the original input. text[Span.Start:Span.End] reproduces the matched
// token verbatim, which the rewriter relies on for in-place replacement.
type Span struct {
	Start int
	End   int
}

// Directive is one structured command recovered from text. It is created
// by the Scanner and never mutated afterwards.
type Directive struct {
	Operation  string
	Path       string
	Content    string
	HasContent bool
	Span       Span
}

// Recognized reports whether the operation identifier is part of the
// protocol. Unrecognized directives are extracted anyway.
func (d Directive) Recognized() bool {
	switch d.Operation {
	case OpRead, OpWrite, OpCreate, OpAppend, OpDelete, OpList, OpRun:
		return true
	}
	return false
}
