package stats

import (
	"regexp"
	"testing"
	"time"
)

func testSnapshot() Snapshot {
	return Snapshot{
		Timestamp: time.Unix(1_700_000_000, 0).UTC(),
		Connections: []Connection{
			{ID: "a", Fields: map[string]Value{
				"connection_id":   Text("a"),
				"codec":           Text("vp8"),
				"rtp.packetsLost": Number(3),
				"bitrate":         Number(100),
			}},
			{ID: "b", Fields: map[string]Value{
				"connection_id":   Text("b"),
				"codec":           Text("opus"),
				"rtp.packetsLost": Number(0),
				"bitrate":         Number(50),
			}},
		},
	}
}

func TestFilters_MatchAllIsIdentity(t *testing.T) {
	snap := testSnapshot()
	got := Filters{}.Apply(snap)
	if len(got.Connections) != len(snap.Connections) {
		t.Fatalf("expected %d connections, got %d", len(snap.Connections), len(got.Connections))
	}
	for i, conn := range got.Connections {
		if len(conn.Fields) != len(snap.Connections[i].Fields) {
			t.Errorf("connection %q: expected %d fields, got %d",
				conn.ID, len(snap.Connections[i].Fields), len(conn.Fields))
		}
	}
}

func TestFilters_ConnectionMatchOnKeyValuePair(t *testing.T) {
	snap := testSnapshot()
	f := Filters{Connection: regexp.MustCompile(`codec:vp8`)}
	got := f.Apply(snap)
	if len(got.Connections) != 1 || got.Connections[0].ID != "a" {
		t.Fatalf("expected only connection 'a', got %+v", got.Connections)
	}
}

func TestFilters_ConnectionMatchIsPartial(t *testing.T) {
	snap := testSnapshot()
	// Matches the rendered number of 'bitrate:100', not an exact pair.
	f := Filters{Connection: regexp.MustCompile(`:10`)}
	got := f.Apply(snap)
	if len(got.Connections) != 1 || got.Connections[0].ID != "a" {
		t.Fatalf("expected only connection 'a', got %+v", got.Connections)
	}
}

func TestFilters_KeyFilterExcludesNonMatchingFields(t *testing.T) {
	snap := testSnapshot()
	f := Filters{Key: regexp.MustCompile(`^rtp[.]`)}
	got := f.Apply(snap)
	if len(got.Connections) != 2 {
		t.Fatalf("expected 2 connections, got %d", len(got.Connections))
	}
	for _, conn := range got.Connections {
		if _, ok := conn.Fields["rtp.packetsLost"]; !ok {
			t.Errorf("connection %q: expected rtp.packetsLost to survive", conn.ID)
		}
		if _, ok := conn.Fields["codec"]; ok {
			t.Errorf("connection %q: expected codec to be filtered out", conn.ID)
		}
		if len(conn.Fields) != 1 {
			t.Errorf("connection %q: expected 1 field, got %d", conn.ID, len(conn.Fields))
		}
	}
}

func TestFilters_NoMatchDropsEverything(t *testing.T) {
	snap := testSnapshot()
	f := Filters{Connection: regexp.MustCompile(`codec:h264`)}
	if got := f.Apply(snap); len(got.Connections) != 0 {
		t.Fatalf("expected no connections, got %+v", got.Connections)
	}
}
