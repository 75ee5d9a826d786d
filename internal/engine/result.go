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
	"aliengine/internal/fsops"
	"aliengine/internal/shellexec"
)

// Result is the outcome of one directive. Exactly one result exists per
// extracted directive, in source order; a result is never mutated after
// the executor call that produced it.
type Result struct {
	Operation string `json:"operation"`
	Path      string `json:"path"`
	Success   bool   `json:"success"`
	Message   string `json:"message"`

	// Payload, populated per operation: Content for read, Items for
	// list, Exec for run.
	Content string            `json:"content,omitempty"`
	Items   []fsops.Entry     `json:"items,omitempty"`
	Exec    *shellexec.Result `json:"exec,omitempty"`
}

func failure(operation, path, message string) Result {
	return Result{Operation: operation, Path: path, Message: message}
}
