// Package trace provides decision-trace recording for replaying a single replication.
// This package has no dependencies on sim/ or its domain packages; it stores pure data types.
package trace

// PhaseOutcome is how a phase's acquisition race resolved.
type PhaseOutcome string

const (
	OutcomeCompleted PhaseOutcome = "completed"
	OutcomeTimedOut  PhaseOutcome = "timed-out"
)

// PhaseRecord captures one Build, Monitor or Rebuild phase of a deliverable.
type PhaseRecord struct {
	Deliverable    string
	Kind           string // "build", "monitor" or "rebuild"
	Index          int    // monitor number 1..6; 0 for build and rebuild
	Cycle          int    // 0 for the initial build, incremented per maintenance cycle
	StartNotBefore int64
	MustStartBy    int64
	RequestedAt    int64 // tick the pool request was made
	ResolvedAt     int64 // tick the slot was granted or the deadline passed
	Outcome        PhaseOutcome
	Duration       int // ticks the slot was held; 0 on timeout
}

// Waited returns the ticks between request and resolution.
func (r PhaseRecord) Waited() int64 { return r.ResolvedAt - r.RequestedAt }

// StaffingAction is a staffing controller decision.
type StaffingAction string

const (
	ActionSetupFire StaffingAction = "setup-fire"
	ActionHire      StaffingAction = "hire"
	ActionQuit      StaffingAction = "quit"
)

// StaffingRecord captures a single staffing decision and the headcount after it.
type StaffingRecord struct {
	Clock         int64
	Action        StaffingAction
	PendingRehire int
	Headcount     int
}
