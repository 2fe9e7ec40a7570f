package store

import (
	"fmt"
	"testing"
	"time"
)

func TestPruneOlderThanZeroRemovesAll(t *testing.T) {
	s := openTestStore(t)

	for i := 0; i < 10; i++ {
		ts := fmt.Sprintf("2024-01-01T00:00:0%dZ", i%10)
		if _, err := s.Append(testEvent("s1", "agent-1", "tool_call", ts)); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	// The cutoff for zero days is the current instant, so everything
	// already inserted is older.
	removed, err := s.PruneOlderThan(0)
	if err != nil {
		t.Fatalf("PruneOlderThan failed: %v", err)
	}
	if removed != 10 {
		t.Errorf("removed = %d, want 10", removed)
	}

	count, err := s.Count()
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 0 {
		t.Errorf("count = %d after full prune, want 0", count)
	}
}

func TestPruneOlderThanLargeRemovesNone(t *testing.T) {
	s := openTestStore(t)

	for i := 0; i < 5; i++ {
		if _, err := s.Append(testEvent("s1", "agent-1", "tool_call", "2024-01-01T00:00:00Z")); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	removed, err := s.PruneOlderThan(100000)
	if err != nil {
		t.Fatalf("PruneOlderThan failed: %v", err)
	}
	if removed != 0 {
		t.Errorf("removed = %d, want 0", removed)
	}

	count, err := s.Count()
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 5 {
		t.Errorf("count = %d, want 5", count)
	}
}

func TestPruneRemovesIndexEntries(t *testing.T) {
	s := openTestStore(t)

	if _, err := s.Append(testEvent("s1", "agent-1", "tool_call", "2024-01-01T00:00:00Z")); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	if _, err := s.DeleteBefore(time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("DeleteBefore failed: %v", err)
	}

	events, err := s.Query(Query{SessionID: "s1"})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("session index still serves %d pruned events", len(events))
	}

	sessions, err := s.Sessions()
	if err != nil {
		t.Fatalf("Sessions failed: %v", err)
	}
	if len(sessions) != 0 {
		t.Errorf("pruned session still listed: %v", sessions)
	}

	sources, err := s.Sources()
	if err != nil {
		t.Fatalf("Sources failed: %v", err)
	}
	if len(sources) != 0 {
		t.Errorf("pruned source still listed: %v", sources)
	}
}

func TestDeleteBeforeCutoffKeepsNewer(t *testing.T) {
	s := openTestStore(t)

	if _, err := s.Append(testEvent("old", "agent-1", "tool_call", "2024-01-01T00:00:00Z")); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	cutoff := time.Now()
	time.Sleep(10 * time.Millisecond)

	if _, err := s.Append(testEvent("new", "agent-1", "tool_call", "2024-01-01T00:00:01Z")); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	removed, err := s.DeleteBefore(cutoff)
	if err != nil {
		t.Fatalf("DeleteBefore failed: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}

	events, err := s.Query(Query{})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(events) != 1 || events[0].SessionID != "new" {
		t.Errorf("surviving events = %+v, want only session 'new'", events)
	}
}

func TestRetentionLoopStopsOnClose(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	s.SetRetention(RetentionPolicy{
		MaxAge:          time.Hour,
		CleanupInterval: 10 * time.Millisecond,
	})

	time.Sleep(30 * time.Millisecond)

	// Close must stop the cleanup goroutine without racing it.
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
}

func TestSetRetentionZeroDisables(t *testing.T) {
	s := openTestStore(t)

	s.SetRetention(RetentionPolicy{MaxAge: time.Hour, CleanupInterval: time.Millisecond})
	s.SetRetention(RetentionPolicy{})

	if s.retention != nil {
		t.Error("retention state not cleared")
	}
}
