package trace

// Level controls the verbosity of tracing.
type Level string

const (
	// LevelNone disables tracing (zero overhead).
	LevelNone Level = "none"
	// LevelEvents captures every transmit, deliver, collide, drop and wait.
	LevelEvents Level = "events"
)

// validLevels maps accepted trace level strings.
var validLevels = map[Level]bool{
	LevelNone:   true,
	LevelEvents: true,
	"":          true, // empty defaults to none
}

// IsValidLevel returns true if the given level string is a recognized trace level.
func IsValidLevel(level string) bool {
	return validLevels[Level(level)]
}

// SimulationTrace collects records during one trial.
// A nil *SimulationTrace is valid and records nothing.
type SimulationTrace struct {
	Level   Level
	Records []Record
}

// New returns a trace ready for recording, or nil when level disables tracing.
func New(level Level) *SimulationTrace {
	if level != LevelEvents {
		return nil
	}
	return &SimulationTrace{
		Level:   level,
		Records: make([]Record, 0),
	}
}

// Record appends r. Safe on a nil trace.
func (st *SimulationTrace) Record(r Record) {
	if st == nil {
		return
	}
	st.Records = append(st.Records, r)
}

// Len returns the number of records; 0 for a nil trace.
func (st *SimulationTrace) Len() int {
	if st == nil {
		return 0
	}
	return len(st.Records)
}
