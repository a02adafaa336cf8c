package stats

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func rawConnections(t *testing.T, body string) []json.RawMessage {
	t.Helper()
	values, err := SplitReport([]byte(body))
	if err != nil {
		t.Fatalf("SplitReport: %v", err)
	}
	return values
}

func TestParse_FlattensNestedObjects(t *testing.T) {
	ts := time.Unix(1_700_000_000, 0).UTC()
	values := rawConnections(t, `[
		{"connection_id": "a", "rtp": {"packets": 10, "nack": {"count": 2}}, "codec": "vp8", "active": true, "missing": null}
	]`)

	snap, err := Parse(ts, values)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(snap.Connections) != 1 {
		t.Fatalf("expected 1 connection, got %d", len(snap.Connections))
	}
	conn := snap.Connections[0]
	if conn.ID != "a" {
		t.Fatalf("expected connection ID 'a', got %q", conn.ID)
	}

	expect := map[string]Value{
		"connection_id":  Text("a"),
		"rtp.packets":    Number(10),
		"rtp.nack.count": Number(2),
		"codec":          Text("vp8"),
		"active":         Bool(true),
		"missing":        Absent,
	}
	if len(conn.Fields) != len(expect) {
		t.Fatalf("expected %d fields, got %d: %v", len(expect), len(conn.Fields), conn.Keys())
	}
	for k, want := range expect {
		got, ok := conn.Fields[k]
		if !ok {
			t.Errorf("missing field %q", k)
			continue
		}
		if got != want {
			t.Errorf("field %q: expected %v, got %v", k, want, got)
		}
	}
}

func TestParse_MissingConnectionIDIsMalformed(t *testing.T) {
	ts := time.Unix(1_700_000_000, 0).UTC()
	for _, body := range []string{
		`[{"bitrate": 100}]`,
		`[{"connection_id": 42}]`,
	} {
		values := rawConnections(t, body)
		if _, err := Parse(ts, values); !errors.Is(err, ErrMalformed) {
			t.Errorf("body %s: expected ErrMalformed, got %v", body, err)
		}
	}
}

func TestParse_NonObjectConnectionIsMalformed(t *testing.T) {
	values := rawConnections(t, `[42]`)
	if _, err := Parse(time.Now(), values); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}

func TestSplitReport_RejectsNonArray(t *testing.T) {
	if _, err := SplitReport([]byte(`{"connection_id": "a"}`)); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
	if _, err := SplitReport([]byte(`not json`)); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}

func TestValue_CanonicalStrings(t *testing.T) {
	cases := []struct {
		value Value
		want  string
	}{
		{Number(100), "100"},
		{Number(10.5), "10.5"},
		{Text("vp8"), "vp8"},
		{Bool(true), "true"},
		{Bool(false), "false"},
		{Absent, ""},
	}
	for _, c := range cases {
		if got := c.value.String(); got != c.want {
			t.Errorf("String() of %#v: expected %q, got %q", c.value, c.want, got)
		}
	}
}
