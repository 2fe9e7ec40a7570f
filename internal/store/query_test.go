package store

import (
	"fmt"
	"testing"
)

func TestQueryOrdersByTimestampDescending(t *testing.T) {
	s := openTestStore(t)

	// Insert out of timestamp order on purpose.
	timestamps := []string{
		"2024-01-01T00:00:02Z",
		"2024-01-01T00:00:00Z",
		"2024-01-01T00:00:03Z",
		"2024-01-01T00:00:01Z",
	}
	for _, ts := range timestamps {
		if _, err := s.Append(testEvent("s1", "agent-1", "tool_call", ts)); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	events, err := s.Query(Query{})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}

	if len(events) != 4 {
		t.Fatalf("got %d events, want 4", len(events))
	}
	for i := 1; i < len(events); i++ {
		if events[i-1].Timestamp < events[i].Timestamp {
			t.Errorf("events out of order at %d: %s before %s",
				i, events[i-1].Timestamp, events[i].Timestamp)
		}
	}
	if events[0].Timestamp != "2024-01-01T00:00:03Z" {
		t.Errorf("newest first = %s", events[0].Timestamp)
	}
}

func TestQueryFiltersCombineWithAND(t *testing.T) {
	s := openTestStore(t)

	seed := []struct {
		session, source, typ string
	}{
		{"s1", "agent-1", "tool_call"},
		{"s1", "agent-1", "tool_result"},
		{"s1", "agent-2", "tool_call"},
		{"s2", "agent-1", "tool_call"},
	}
	for i, e := range seed {
		ts := fmt.Sprintf("2024-01-01T00:00:0%dZ", i)
		if _, err := s.Append(testEvent(e.session, e.source, e.typ, ts)); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	tests := []struct {
		name string
		q    Query
		want int
	}{
		{"no filters", Query{}, 4},
		{"session only", Query{SessionID: "s1"}, 3},
		{"source only", Query{SourceApp: "agent-1"}, 3},
		{"type only", Query{EventType: "tool_call"}, 3},
		{"session and source", Query{SessionID: "s1", SourceApp: "agent-1"}, 2},
		{"session, source and type", Query{SessionID: "s1", SourceApp: "agent-1", EventType: "tool_call"}, 1},
		{"no match", Query{SessionID: "s1", SourceApp: "agent-3"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events, err := s.Query(tt.q)
			if err != nil {
				t.Fatalf("Query failed: %v", err)
			}
			if len(events) != tt.want {
				t.Errorf("got %d events, want %d", len(events), tt.want)
			}
			for _, e := range events {
				if tt.q.SessionID != "" && e.SessionID != tt.q.SessionID {
					t.Errorf("event %d leaked through session filter", e.ID)
				}
				if tt.q.SourceApp != "" && e.SourceApp != tt.q.SourceApp {
					t.Errorf("event %d leaked through source filter", e.ID)
				}
				if tt.q.EventType != "" && e.EventType != tt.q.EventType {
					t.Errorf("event %d leaked through type filter", e.ID)
				}
			}
		})
	}
}

func TestQueryLimit(t *testing.T) {
	s := openTestStore(t)

	for i := 0; i < 150; i++ {
		ts := fmt.Sprintf("2024-01-01T00:%02d:%02dZ", i/60, i%60)
		if _, err := s.Append(testEvent("s1", "agent-1", "tool_call", ts)); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	events, err := s.Query(Query{Limit: 10})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(events) != 10 {
		t.Errorf("limit 10: got %d events", len(events))
	}

	// Zero and negative limits fall back to the default.
	events, err = s.Query(Query{Limit: 0})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(events) != DefaultLimit {
		t.Errorf("limit 0: got %d events, want %d", len(events), DefaultLimit)
	}

	events, err = s.Query(Query{Limit: -5})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(events) != DefaultLimit {
		t.Errorf("limit -5: got %d events, want %d", len(events), DefaultLimit)
	}
}

func TestSessionsOrderedByRecency(t *testing.T) {
	s := openTestStore(t)

	// s2 has the most recent event, then s3, then s1.
	seed := []struct{ session, ts string }{
		{"s1", "2024-01-01T00:00:00Z"},
		{"s3", "2024-01-01T00:00:05Z"},
		{"s1", "2024-01-01T00:00:02Z"},
		{"s2", "2024-01-01T00:00:09Z"},
		{"s3", "2024-01-01T00:00:01Z"},
	}
	for _, e := range seed {
		if _, err := s.Append(testEvent(e.session, "agent-1", "tool_call", e.ts)); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	sessions, err := s.Sessions()
	if err != nil {
		t.Fatalf("Sessions failed: %v", err)
	}

	want := []string{"s2", "s3", "s1"}
	if len(sessions) != len(want) {
		t.Fatalf("got %d sessions %v, want %v", len(sessions), sessions, want)
	}
	for i := range want {
		if sessions[i] != want[i] {
			t.Errorf("sessions[%d] = %s, want %s", i, sessions[i], want[i])
		}
	}
}

func TestSourcesOrderedLexicographically(t *testing.T) {
	s := openTestStore(t)

	for i, source := range []string{"zeta", "alpha", "mid", "alpha"} {
		ts := fmt.Sprintf("2024-01-01T00:00:0%dZ", i)
		if _, err := s.Append(testEvent("s1", source, "tool_call", ts)); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	sources, err := s.Sources()
	if err != nil {
		t.Fatalf("Sources failed: %v", err)
	}

	want := []string{"alpha", "mid", "zeta"}
	if len(sources) != len(want) {
		t.Fatalf("got %d sources %v, want %v", len(sources), sources, want)
	}
	for i := range want {
		if sources[i] != want[i] {
			t.Errorf("sources[%d] = %s, want %s", i, sources[i], want[i])
		}
	}
}

func TestEmptyStoreQueries(t *testing.T) {
	s := openTestStore(t)

	events, err := s.Query(Query{})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("got %d events from empty store", len(events))
	}

	sessions, err := s.Sessions()
	if err != nil {
		t.Fatalf("Sessions failed: %v", err)
	}
	if len(sessions) != 0 {
		t.Errorf("got %d sessions from empty store", len(sessions))
	}

	sources, err := s.Sources()
	if err != nil {
		t.Fatalf("Sources failed: %v", err)
	}
	if len(sources) != 0 {
		t.Errorf("got %d sources from empty store", len(sources))
	}
}
