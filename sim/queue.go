// Implements the WaitQueue, which holds all pool requests waiting for a slot.
// Requests are ordered by priority, then by enqueue order.

package sim

import (
	"container/heap"
	"fmt"
	"strings"
)

// WaitQueue is a priority queue of pending pool requests.
// Lower priority numbers are served first; equal priorities are served
// First-Come-First-Served. Arbitrary requests can be withdrawn in O(log n),
// which the AcquireWithin race relies on.
type WaitQueue struct {
	items []*Request
}

// Len implements heap.Interface
func (wq *WaitQueue) Len() int { return len(wq.items) }

// Less implements heap.Interface
func (wq *WaitQueue) Less(i, j int) bool {
	a, b := wq.items[i], wq.items[j]
	if a.Priority != b.Priority {
		return a.Priority < b.Priority
	}
	return a.seq < b.seq
}

// Swap implements heap.Interface
func (wq *WaitQueue) Swap(i, j int) {
	wq.items[i], wq.items[j] = wq.items[j], wq.items[i]
	wq.items[i].index = i
	wq.items[j].index = j
}

// Push implements heap.Interface
func (wq *WaitQueue) Push(x any) {
	r := x.(*Request)
	r.index = len(wq.items)
	wq.items = append(wq.items, r)
}

// Pop implements heap.Interface
func (wq *WaitQueue) Pop() any {
	old := wq.items
	n := len(old)
	r := old[n-1]
	old[n-1] = nil
	r.index = -1
	wq.items = old[:n-1]
	return r
}

// Enqueue adds a request in priority order.
func (wq *WaitQueue) Enqueue(r *Request) {
	heap.Push(wq, r)
}

// Dequeue removes and returns the most urgent request, or nil when empty.
func (wq *WaitQueue) Dequeue() *Request {
	if len(wq.items) == 0 {
		return nil
	}
	return heap.Pop(wq).(*Request)
}

// Peek returns the most urgent request without removing it.
// Returns nil if the queue is empty.
func (wq *WaitQueue) Peek() *Request {
	if len(wq.items) == 0 {
		return nil
	}
	return wq.items[0]
}

// Remove withdraws r from the queue. Returns false if r is not queued here.
func (wq *WaitQueue) Remove(r *Request) bool {
	if r.index < 0 || r.index >= len(wq.items) || wq.items[r.index] != r {
		return false
	}
	heap.Remove(wq, r.index)
	return true
}

func (wq *WaitQueue) String() string {
	var sb strings.Builder
	sb.WriteString("[")
	for i, r := range wq.items {
		sb.WriteString(fmt.Sprintf("%s/p%d", r.Label, r.Priority))
		if i < len(wq.items)-1 {
			sb.WriteString(" ")
		}
	}
	sb.WriteString("]")
	return sb.String()
}
