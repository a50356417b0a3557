package sim

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Pool models a bounded set of interchangeable worker slots.
//
// Acquisition is priority-ordered and non-preemptive: waiters are served in
// ascending priority number (FIFO within a priority), and a granted slot is
// never revoked. A free slot and a non-empty wait queue never coexist, because
// every Release immediately hands the slot to the head of the queue.
//
// Pool knows nothing about tasks or time beyond the tick passed in; the
// Simulator wakes the owners of requests it grants.
type Pool struct {
	name     string
	capacity int
	inUse    int
	peak     int
	waitQ    WaitQueue
	nextSeq  uint64
	granted  int // total grants ever made, for diagnostics
}

// NewPool creates a pool with capacity slots, all free.
func NewPool(name string, capacity int) *Pool {
	if capacity < 0 {
		panic(fmt.Sprintf("NewPool(%q): capacity must be non-negative, got %d", name, capacity))
	}
	return &Pool{name: name, capacity: capacity}
}

// Name returns the pool name.
func (p *Pool) Name() string { return p.name }

// Capacity returns the fixed number of slots.
func (p *Pool) Capacity() int { return p.capacity }

// InUse returns the number of slots currently granted.
func (p *Pool) InUse() int { return p.inUse }

// Available returns the number of free slots.
func (p *Pool) Available() int { return p.capacity - p.inUse }

// Waiting returns the number of queued requests.
func (p *Pool) Waiting() int { return p.waitQ.Len() }

// Peak returns the highest InUse observed.
func (p *Pool) Peak() int { return p.peak }

// Granted returns the total number of grants made so far.
func (p *Pool) Granted() int { return p.granted }

// Head returns the most urgent waiter without removing it, or nil.
func (p *Pool) Head() *Request { return p.waitQ.Peek() }

// Enqueue submits req at tick now. It returns true when the slot is granted
// immediately; otherwise req waits in priority order.
func (p *Pool) Enqueue(req *Request, now int64) bool {
	if req.State != StateWaiting || req.index >= 0 {
		panic(fmt.Sprintf("pool %s: enqueue of request %d in state %s", p.name, req.ID, req.State))
	}
	p.nextSeq++
	req.seq = p.nextSeq
	if req.ID == 0 {
		req.ID = p.nextSeq
	}
	req.EnqueuedAt = now

	if p.inUse < p.capacity {
		p.grant(req, now)
		return true
	}
	p.waitQ.Enqueue(req)
	logrus.Tracef("pool %s: queued %s (p%d), waiting=%d", p.name, req.Label, req.Priority, p.waitQ.Len())
	return false
}

// Withdraw removes a still-waiting request from the queue.
// Returns false when req was not waiting (already granted or withdrawn).
func (p *Pool) Withdraw(req *Request) bool {
	if req.State != StateWaiting {
		return false
	}
	if !p.waitQ.Remove(req) {
		return false
	}
	req.State = StateWithdrawn
	logrus.Tracef("pool %s: withdrew %s (p%d)", p.name, req.Label, req.Priority)
	return true
}

// Release returns req's slot at tick now and immediately grants it to the
// head of the queue. It returns the newly granted request, or nil.
func (p *Pool) Release(req *Request, now int64) *Request {
	if req.State != StateGranted {
		panic(fmt.Sprintf("pool %s: release of request %d (%s) in state %s", p.name, req.ID, req.Label, req.State))
	}
	req.State = StateReleased
	req.ReleasedAt = now
	p.inUse--
	if p.inUse < 0 {
		panic(fmt.Sprintf("pool %s: in-use count went negative", p.name))
	}

	next := p.waitQ.Dequeue()
	if next == nil {
		return nil
	}
	p.grant(next, now)
	return next
}

func (p *Pool) grant(req *Request, now int64) {
	p.inUse++
	if p.inUse > p.capacity {
		panic(fmt.Sprintf("pool %s: %d grants exceed capacity %d", p.name, p.inUse, p.capacity))
	}
	if p.inUse > p.peak {
		p.peak = p.inUse
	}
	p.granted++
	req.State = StateGranted
	req.GrantedAt = now
	logrus.Tracef("pool %s: granted %s (p%d) after %d ticks, in-use=%d/%d", p.name, req.Label, req.Priority, now-req.EnqueuedAt, p.inUse, p.capacity)
}

func (p *Pool) String() string {
	return fmt.Sprintf("Pool: (Name: %s, InUse: %d/%d, Waiting: %s)", p.name, p.inUse, p.capacity, p.waitQ.String())
}
