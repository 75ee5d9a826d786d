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

package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestCodeOf(t *testing.T) {
	err := New(CodeNotFound, "missing")
	if CodeOf(err) != CodeNotFound {
		t.Errorf("expected not_found, got %s", CodeOf(err))
	}
	if Is(nil, CodeInternal) {
		t.Error("nil error must not match any code")
	}
	if CodeOf(errors.New("plain")) != CodeInternal {
		t.Error("expected internal code for uncoded error")
	}
}

func TestWrapUnwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(CodeExecutionFailed, "failed to write file", cause)
	if !errors.Is(err, cause) {
		t.Error("expected wrapped cause to be found by errors.Is")
	}
	if !Is(err, CodeExecutionFailed) {
		t.Error("expected code match")
	}
	if Is(err, CodeNotFound) {
		t.Error("unexpected code match")
	}
}

func TestCodeSurvivesFmtWrapping(t *testing.T) {
	err := fmt.Errorf("outer: %w", New(CodeInvalidPath, "bad path"))
	if !Is(err, CodeInvalidPath) {
		t.Error("expected code to survive fmt.Errorf wrapping")
	}
}
