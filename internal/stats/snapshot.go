package stats

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
)

// ErrMalformed marks a structurally invalid stats report. The engine logs
// and skips the tick; it never terminates the source sequence.
var ErrMalformed = errors.New("malformed stats report")

// Connection holds one connection's flattened stats fields.
type Connection struct {
	ID     string
	Fields map[string]Value
}

// Keys returns the connection's field names in sorted order.
func (c Connection) Keys() []string {
	keys := make([]string, 0, len(c.Fields))
	for k := range c.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Snapshot is one tick's worth of per-connection stats. It is immutable
// once produced.
type Snapshot struct {
	Timestamp   time.Time
	Connections []Connection
}

// Parse converts the raw per-connection JSON objects of one report into a
// Snapshot. Nested objects are flattened into dot-joined keys, JSON null
// becomes Absent. Every connection must carry a string "connection_id".
func Parse(ts time.Time, values []json.RawMessage) (Snapshot, error) {
	conns := make([]Connection, 0, len(values))
	for i, raw := range values {
		conn, err := parseConnection(raw)
		if err != nil {
			return Snapshot{}, fmt.Errorf("connection %d: %w", i, err)
		}
		conns = append(conns, conn)
	}
	return Snapshot{Timestamp: ts, Connections: conns}, nil
}

// SplitReport decodes a report body into its per-connection raw objects.
func SplitReport(body []byte) ([]json.RawMessage, error) {
	var values []json.RawMessage
	if err := json.Unmarshal(body, &values); err != nil {
		return nil, fmt.Errorf("%w: not a JSON array: %v", ErrMalformed, err)
	}
	return values, nil
}

func parseConnection(raw json.RawMessage) (Connection, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return Connection{}, fmt.Errorf("%w: not a JSON object: %v", ErrMalformed, err)
	}

	fields := make(map[string]Value)
	flatten("", obj, fields)

	id, ok := fields["connection_id"]
	if !ok || id.Kind() != KindText {
		return Connection{}, fmt.Errorf("%w: missing 'connection_id'", ErrMalformed)
	}
	return Connection{ID: id.String(), Fields: fields}, nil
}

func flatten(prefix string, obj map[string]any, out map[string]Value) {
	for k, v := range obj {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch val := v.(type) {
		case json.Number:
			f, err := val.Float64()
			if err != nil {
				log.Warn().Str("key", key).Str("value", val.String()).Msg("unparsable number ignored")
				continue
			}
			out[key] = Number(f)
		case string:
			out[key] = Text(val)
		case bool:
			out[key] = Bool(val)
		case nil:
			out[key] = Absent
		case map[string]any:
			flatten(key, val, out)
		default:
			log.Warn().Str("key", key).Msg("unexpected stats value ignored")
		}
	}
}
