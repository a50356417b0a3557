// Defines the Request struct that models a single claim on a worker pool slot.
// Tracks priority, enqueue order, and grant/release timestamps.

package sim

import (
	"fmt"
)

// RequestState represents the lifecycle state of a pool request.
type RequestState string

const (
	StateWaiting   RequestState = "waiting"
	StateGranted   RequestState = "granted"
	StateWithdrawn RequestState = "withdrawn"
	StateReleased  RequestState = "released"
)

// Phase priorities. Lower is more urgent; staffing moves outrank all deliverable work.
const (
	PriorityHire    = 0
	PriorityFire    = 0
	PriorityRebuild = 1
	PriorityMonitor = 2
	PriorityBuild   = 3
)

// Request models one claim on a pool slot, from enqueue to release.
// A granted Request is the grant handle: it is passed back to Release.
type Request struct {
	ID       uint64 // Pool-unique identifier, in enqueue order
	Label    string // Human-readable owner description, e.g. "model-03/build"
	Priority int    // Lower = served first
	Owner    TaskID // Task woken on grant; zero for detached requests

	State      RequestState
	EnqueuedAt int64 // Tick the request entered the pool
	GrantedAt  int64 // Tick the slot was granted (valid once State != StateWaiting)
	ReleasedAt int64 // Tick the slot was returned (valid once State == StateReleased)

	seq   uint64 // FIFO tie-breaker within a priority
	index int    // position in the WaitQueue heap, -1 when not queued
}

// NewRequest creates a request in the waiting state.
func NewRequest(label string, priority int, owner TaskID) *Request {
	return &Request{
		Label:    label,
		Priority: priority,
		Owner:    owner,
		State:    StateWaiting,
		index:    -1,
	}
}

// Waited returns how many ticks the request spent queued before its grant.
func (r *Request) Waited() int64 {
	if r.State == StateWaiting || r.State == StateWithdrawn {
		return 0
	}
	return r.GrantedAt - r.EnqueuedAt
}

func (r Request) String() string {
	return fmt.Sprintf("Request: (ID: %d, Label: %s, Priority: %d, State: %s, EnqueuedAt: %d)", r.ID, r.Label, r.Priority, r.State, r.EnqueuedAt)
}
