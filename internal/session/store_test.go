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

package session

import (
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestGetOrCreateAssignsID(t *testing.T) {
	store := NewStore(10, time.Hour, zerolog.Nop())
	sess := store.GetOrCreate("", "gpt-4o")
	if sess.ID == "" {
		t.Fatal("expected generated session ID")
	}
	if sess.Model != "gpt-4o" {
		t.Errorf("expected model recorded, got %q", sess.Model)
	}

	again := store.GetOrCreate(sess.ID, "other")
	if again.ID != sess.ID {
		t.Error("expected existing session to be reused")
	}
	if again.Model != "gpt-4o" {
		t.Error("reuse must not overwrite the session model")
	}
}

func TestAppendAndHistory(t *testing.T) {
	store := NewStore(10, time.Hour, zerolog.Nop())
	sess := store.GetOrCreate("", "m")

	store.Append(sess.ID, Message{Role: "user", Content: "hi"})
	store.Append(sess.ID, Message{Role: "assistant", Content: "hello"})

	history := store.History(sess.ID)
	if len(history) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(history))
	}
	if history[0].Role != "user" || history[1].Role != "assistant" {
		t.Errorf("unexpected history order %+v", history)
	}
	if history[0].Timestamp.IsZero() {
		t.Error("expected timestamp to be filled in")
	}
}

func TestHistoryUnknownSession(t *testing.T) {
	store := NewStore(10, time.Hour, zerolog.Nop())
	if got := store.History("nope"); got != nil {
		t.Errorf("expected nil history for unknown session, got %+v", got)
	}
}

func TestAppendTrimsToCap(t *testing.T) {
	store := NewStore(3, time.Hour, zerolog.Nop())
	sess := store.GetOrCreate("", "m")

	for i := 0; i < 5; i++ {
		store.Append(sess.ID, Message{Role: "user", Content: fmt.Sprintf("msg-%d", i)})
	}

	history := store.History(sess.ID)
	if len(history) != 3 {
		t.Fatalf("expected history trimmed to 3, got %d", len(history))
	}
	if history[0].Content != "msg-2" {
		t.Errorf("expected oldest messages dropped, got %q first", history[0].Content)
	}
	if sess.MessageCount != 5 {
		t.Errorf("message count must track all appends, got %d", sess.MessageCount)
	}
}

func TestCleanupExpiresIdleSessions(t *testing.T) {
	store := NewStore(10, time.Hour, zerolog.Nop())

	current := time.Now()
	store.now = func() time.Time { return current }

	old := store.GetOrCreate("", "m")
	current = current.Add(2 * time.Hour)
	fresh := store.GetOrCreate("", "m")

	removed := store.Cleanup()
	if removed != 1 {
		t.Fatalf("expected 1 session removed, got %d", removed)
	}
	if store.History(old.ID) != nil {
		t.Error("expected idle session to be gone")
	}
	if store.Len() != 1 {
		t.Errorf("expected 1 live session, got %d", store.Len())
	}
	_ = fresh
}
