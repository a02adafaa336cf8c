package stats

import (
	"sort"
	"time"
)

// AggregatedField is one field name folded across every retained
// connection. Sum is Absent when no connection contributed a number, which
// is distinct from numbers summing to zero.
type AggregatedField struct {
	Sum    Value
	Values map[string]Value // by connection ID
}

// Aggregated is the cluster-wide view of one filtered Snapshot.
type Aggregated struct {
	Timestamp       time.Time
	Fields          map[string]AggregatedField
	ConnectionCount int
}

// Keys returns the aggregated field names in sorted order.
func (a Aggregated) Keys() []string {
	keys := make([]string, 0, len(a.Fields))
	for k := range a.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Aggregate folds a filtered Snapshot into per-field sums alongside the raw
// per-connection values. Connections lacking a field contribute Absent.
func Aggregate(s Snapshot) Aggregated {
	fields := make(map[string]AggregatedField)
	for _, conn := range s.Connections {
		for k, v := range conn.Fields {
			agg, ok := fields[k]
			if !ok {
				agg = AggregatedField{Sum: Absent, Values: make(map[string]Value)}
			}
			agg.Values[conn.ID] = v
			if n, isNum := v.Float(); isNum {
				if sum, hasSum := agg.Sum.Float(); hasSum {
					agg.Sum = Number(sum + n)
				} else {
					agg.Sum = Number(n)
				}
			}
			fields[k] = agg
		}
	}

	// Connections that lack a field entirely still show up as Absent in
	// that field's value map.
	for _, agg := range fields {
		for _, conn := range s.Connections {
			if _, ok := agg.Values[conn.ID]; !ok {
				agg.Values[conn.ID] = Absent
			}
		}
	}

	return Aggregated{
		Timestamp:       s.Timestamp,
		Fields:          fields,
		ConnectionCount: len(s.Connections),
	}
}
