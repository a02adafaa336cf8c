package stats

// FieldDelta holds per-second rates of change for one field, at sum and
// per-connection granularity. Entries are Absent when either side of the
// subtraction is missing or non-numeric.
type FieldDelta struct {
	Sum    Value
	Values map[string]Value // by connection ID
}

// Delta is the rate-of-change view between two consecutive aggregated
// snapshots.
type Delta struct {
	Fields map[string]FieldDelta
}

// ComputeDelta derives per-second deltas from the previous and current
// aggregated snapshots. With no previous snapshot, or non-positive elapsed
// time, every delta is Absent. Fields present only in the previous snapshot
// are dropped; fields new in the current one get Absent deltas.
func ComputeDelta(prev *Aggregated, cur Aggregated) Delta {
	out := Delta{Fields: make(map[string]FieldDelta, len(cur.Fields))}

	var elapsed float64
	if prev != nil {
		elapsed = cur.Timestamp.Sub(prev.Timestamp).Seconds()
	}

	for key, curField := range cur.Fields {
		fd := FieldDelta{Sum: Absent, Values: make(map[string]Value, len(curField.Values))}
		for connID := range curField.Values {
			fd.Values[connID] = Absent
		}

		if prev == nil || elapsed <= 0 {
			out.Fields[key] = fd
			continue
		}
		prevField, ok := prev.Fields[key]
		if !ok {
			out.Fields[key] = fd
			continue
		}

		fd.Sum = rate(prevField.Sum, curField.Sum, elapsed)
		for connID, curVal := range curField.Values {
			fd.Values[connID] = rate(prevField.Values[connID], curVal, elapsed)
		}
		out.Fields[key] = fd
	}
	return out
}

func rate(prev, cur Value, elapsed float64) Value {
	p, ok1 := prev.Float()
	c, ok2 := cur.Float()
	if !ok1 || !ok2 {
		return Absent
	}
	return Number((c - p) / elapsed)
}
