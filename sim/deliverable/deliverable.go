package deliverable

import "fmt"

// Status is the deliverable's overall state.
type Status string

const (
	StatusPending Status = "pending" // initial build not yet completed
	StatusActive  Status = "active"  // built at least once and cycling
	StatusFailed  Status = "failed"  // a Build or Rebuild missed its deadline
)

// Deliverable is one model in the backlog. It is mutated only by its own tasks.
type Deliverable struct {
	Name    string
	Status  Status
	Phase   Phase // current or most recent phase
	Cycle   int   // completed maintenance cycles
	BuiltAt int64 // tick the initial build completed, -1 if never

	LastCompletedAt int64 // tick the latest Build or Rebuild completed, -1 if never
	FailedAt        int64 // -1 unless Status is StatusFailed
}

func newDeliverable(name string) *Deliverable {
	return &Deliverable{
		Name:            name,
		Status:          StatusPending,
		BuiltAt:         -1,
		LastCompletedAt: -1,
		FailedAt:        -1,
	}
}

func (d *Deliverable) String() string {
	return fmt.Sprintf("Deliverable: (Name: %s, Status: %s, Phase: %s, Cycle: %d)", d.Name, d.Status, d.Phase, d.Cycle)
}

// Tally counts phase outcomes across every deliverable of one replication.
type Tally struct {
	BuildsCompleted   int
	BuildsFailed      int
	RebuildsCompleted int
	RebuildsFailed    int
	MonitorsCompleted int
	MonitorsFailed    int
}

func (t *Tally) add(kind Kind, completed bool) {
	switch {
	case kind == KindBuild && completed:
		t.BuildsCompleted++
	case kind == KindBuild:
		t.BuildsFailed++
	case kind == KindRebuild && completed:
		t.RebuildsCompleted++
	case kind == KindRebuild:
		t.RebuildsFailed++
	case completed:
		t.MonitorsCompleted++
	default:
		t.MonitorsFailed++
	}
}
