package trace

// TraceLevel controls the verbosity of decision tracing.
type TraceLevel string

const (
	// TraceLevelNone disables tracing (zero overhead).
	TraceLevelNone TraceLevel = "none"
	// TraceLevelStaffing captures hire, quit and setup decisions.
	TraceLevelStaffing TraceLevel = "staffing"
	// TraceLevelPhases captures staffing decisions and every deliverable phase.
	TraceLevelPhases TraceLevel = "phases"
)

// validTraceLevels maps accepted trace level strings.
var validTraceLevels = map[TraceLevel]bool{
	TraceLevelNone:     true,
	TraceLevelStaffing: true,
	TraceLevelPhases:   true,
	"":                 true, // empty defaults to none
}

// IsValidTraceLevel returns true if the given level string is a recognized trace level.
func IsValidTraceLevel(level string) bool {
	return validTraceLevels[TraceLevel(level)]
}

// TraceConfig controls trace collection behavior.
type TraceConfig struct {
	Level TraceLevel
}

// SimulationTrace collects decision records during one replication.
// A nil *SimulationTrace is valid and records nothing.
type SimulationTrace struct {
	Config   TraceConfig
	Phases   []PhaseRecord
	Staffing []StaffingRecord
}

// NewSimulationTrace creates a SimulationTrace ready for recording.
// Returns nil for TraceLevelNone so callers can pass the result straight through.
func NewSimulationTrace(config TraceConfig) *SimulationTrace {
	if config.Level == TraceLevelNone || config.Level == "" {
		return nil
	}
	return &SimulationTrace{
		Config:   config,
		Phases:   make([]PhaseRecord, 0),
		Staffing: make([]StaffingRecord, 0),
	}
}

// RecordPhase appends a phase record when phases are traced.
func (st *SimulationTrace) RecordPhase(record PhaseRecord) {
	if st == nil || st.Config.Level != TraceLevelPhases {
		return
	}
	st.Phases = append(st.Phases, record)
}

// RecordStaffing appends a staffing record.
func (st *SimulationTrace) RecordStaffing(record StaffingRecord) {
	if st == nil {
		return
	}
	st.Staffing = append(st.Staffing, record)
}
