package stats

import "regexp"

// Filters selects which connections and which keys take part in
// aggregation. Both regexes use partial matching and are compiled once at
// startup; a nil regex means match everything.
type Filters struct {
	Connection *regexp.Regexp
	Key        *regexp.Regexp
}

// Apply returns a Snapshot containing only the connections with at least
// one "key:value" pair matching the connection filter, each reduced to the
// fields whose key matches the key filter.
func (f Filters) Apply(s Snapshot) Snapshot {
	out := Snapshot{Timestamp: s.Timestamp}
	for _, conn := range s.Connections {
		if !f.matchConnection(conn) {
			continue
		}
		fields := make(map[string]Value, len(conn.Fields))
		for k, v := range conn.Fields {
			if f.Key == nil || f.Key.MatchString(k) {
				fields[k] = v
			}
		}
		out.Connections = append(out.Connections, Connection{ID: conn.ID, Fields: fields})
	}
	return out
}

func (f Filters) matchConnection(conn Connection) bool {
	if f.Connection == nil {
		return true
	}
	for k, v := range conn.Fields {
		if f.Connection.MatchString(k + ":" + v.String()) {
			return true
		}
	}
	return false
}
