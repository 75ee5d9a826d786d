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

import "testing"

func TestExtractAllSingleToken(t *testing.T) {
	text := "Let me check that. {{command:read|src/main.go}} Done."
	directives := ExtractAll(text)
	if len(directives) != 1 {
		t.Fatalf("expected 1 directive, got %d", len(directives))
	}
	d := directives[0]
	if d.Operation != OpRead {
		t.Errorf("expected operation %q, got %q", OpRead, d.Operation)
	}
	if d.Path != "src/main.go" {
		t.Errorf("expected path src/main.go, got %q", d.Path)
	}
	if d.HasContent {
		t.Error("expected no content part")
	}
	if got := text[d.Span.Start:d.Span.End]; got != "{{command:read|src/main.go}}" {
		t.Errorf("span does not reproduce token, got %q", got)
	}
}

func TestExtractAllWithContent(t *testing.T) {
	text := "{{command:write|notes.txt|line one\nline two}}"
	directives := ExtractAll(text)
	if len(directives) != 1 {
		t.Fatalf("expected 1 directive, got %d", len(directives))
	}
	d := directives[0]
	if d.Operation != OpWrite || d.Path != "notes.txt" {
		t.Fatalf("unexpected directive %+v", d)
	}
	if !d.HasContent || d.Content != "line one\nline two" {
		t.Errorf("expected multi-line content, got %q", d.Content)
	}
}

func TestContentKeepsSeparators(t *testing.T) {
	text := "{{command:run|.|grep -c foo a.txt | wc -l}}"
	directives := ExtractAll(text)
	if len(directives) != 1 {
		t.Fatalf("expected 1 directive, got %d", len(directives))
	}
	if directives[0].Content != "grep -c foo a.txt | wc -l" {
		t.Errorf("content lost separators: %q", directives[0].Content)
	}
}

func TestContentStopsAtFirstCloseDelimiter(t *testing.T) {
	text := "{{command:write|a.txt|object }} trailing}}"
	directives := ExtractAll(text)
	if len(directives) != 1 {
		t.Fatalf("expected 1 directive, got %d", len(directives))
	}
	if directives[0].Content != "object " {
		t.Errorf("expected content to stop at first close delimiter, got %q", directives[0].Content)
	}
}

func TestExtractAllPreservesOrder(t *testing.T) {
	text := "a {{command:create|one.txt|x}} b {{command:read|two.txt}} c {{command:delete|three.txt}}"
	directives := ExtractAll(text)
	if len(directives) != 3 {
		t.Fatalf("expected 3 directives, got %d", len(directives))
	}
	want := []string{OpCreate, OpRead, OpDelete}
	for i, op := range want {
		if directives[i].Operation != op {
			t.Errorf("directive %d: expected %q, got %q", i, op, directives[i].Operation)
		}
	}
	for i := 1; i < len(directives); i++ {
		if directives[i].Span.Start < directives[i-1].Span.End {
			t.Errorf("directive %d span overlaps previous", i)
		}
	}
}

func TestMalformedTokenSkipped(t *testing.T) {
	// First candidate has no separator after the operation; the scanner
	// must still find the valid token after it.
	text := "{{command:broken {{command:read|ok.txt}}"
	directives := ExtractAll(text)
	if len(directives) != 1 {
		t.Fatalf("expected 1 directive, got %d", len(directives))
	}
	if directives[0].Path != "ok.txt" {
		t.Errorf("expected path ok.txt, got %q", directives[0].Path)
	}
}

func TestUnterminatedTokenIgnored(t *testing.T) {
	if got := ExtractAll("{{command:read|never closed"); len(got) != 0 {
		t.Fatalf("expected no directives, got %d", len(got))
	}
}

func TestNoTokens(t *testing.T) {
	if got := ExtractAll("plain text, no protocol here"); len(got) != 0 {
		t.Fatalf("expected no directives, got %d", len(got))
	}
}

func TestUnrecognizedOperationExtracted(t *testing.T) {
	directives := ExtractAll("{{command:chmod|script.sh}}")
	if len(directives) != 1 {
		t.Fatalf("expected 1 directive, got %d", len(directives))
	}
	if directives[0].Operation != "chmod" {
		t.Errorf("expected operation chmod, got %q", directives[0].Operation)
	}
	if directives[0].Recognized() {
		t.Error("chmod must not be a recognized operation")
	}
}

func TestScannerIsRepeatable(t *testing.T) {
	text := "{{command:read|a}} {{command:read|b}}"
	first := ExtractAll(text)
	second := ExtractAll(text)
	if len(first) != len(second) {
		t.Fatalf("scan lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("directive %d differs between scans", i)
		}
	}
}
