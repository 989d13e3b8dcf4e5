package trace

// Summary aggregates statistics from a SimulationTrace.
type Summary struct {
	TotalRecords int
	ByKind       map[Kind]int
	// PerNode maps node → kind → count.
	PerNode map[int]map[Kind]int
	// FirstTime and LastTime bound the recorded activity.
	FirstTime float64
	LastTime  float64
}

// Summarize computes aggregate statistics from a SimulationTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(st *SimulationTrace) *Summary {
	summary := &Summary{
		ByKind:  make(map[Kind]int),
		PerNode: make(map[int]map[Kind]int),
	}
	if st.Len() == 0 {
		return summary
	}

	summary.TotalRecords = len(st.Records)
	summary.FirstTime = st.Records[0].Time
	for _, r := range st.Records {
		summary.ByKind[r.Kind]++
		perNode, ok := summary.PerNode[r.Node]
		if !ok {
			perNode = make(map[Kind]int)
			summary.PerNode[r.Node] = perNode
		}
		perNode[r.Kind]++
		if r.Time < summary.FirstTime {
			summary.FirstTime = r.Time
		}
		if r.Time > summary.LastTime {
			summary.LastTime = r.Time
		}
	}

	return summary
}
