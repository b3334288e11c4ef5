// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ds

import (
	"sync/atomic"
	"unsafe"
)

// mpscNode is one link in an MPSC chain; next is published to the
// consumer with a release store once data is fully written.
type mpscNode struct {
	next *mpscNode
	kv   KV
}

// MPSC is Dmitry Vyukov's intrusive, unbounded, node-based
// multi-producer single-consumer queue: producers publish with a single
// atomic exchange (wait-free), the consumer walks tail->next with no
// atomics of its own beyond an acquire load of the link a producer is
// racing to install.
//
// Insert is safe for any number of concurrent producers. Delete/TryPop
// must only be called from one goroutine at a time.
type MPSC struct {
	head atomic.Pointer[mpscNode] // producer target, atomically updated
	tail *mpscNode                // consumer target, single-writer
	rec  Recorder
}

// NewMPSC creates an empty MPSC queue, seeded with one stub node.
func NewMPSC() *MPSC {
	stub := &mpscNode{}
	q := &MPSC{tail: stub}
	q.head.Store(stub)
	return q
}

// Insert enqueues key/value. Wait-free; always succeeds. Safe for
// concurrent producers.
func (q *MPSC) Insert(key, value uint64) error {
	start := monotonicNow()
	n := &mpscNode{kv: KV{Key: key, Value: value}}

	prev := q.head.Swap(n)
	atomic.StorePointer((*unsafe.Pointer)(unsafe.Pointer(&prev.next)), unsafe.Pointer(n))

	q.rec.Adjust(1)
	q.rec.Record(OpInsert, start, false)
	return nil
}

// Delete dequeues the oldest element. Returns ErrNotFound if the queue is
// logically empty, or ErrBusy if a producer is between its exchange and
// its link store — the caller should retry (TryPop does this
// automatically). Consumer-only.
func (q *MPSC) Delete() (KV, error) {
	start := monotonicNow()
	tail := q.tail
	next := (*mpscNode)(atomic.LoadPointer((*unsafe.Pointer)(unsafe.Pointer(&tail.next))))

	if tail == q.head.Load() {
		q.rec.Record(OpDelete, start, true)
		return KV{}, ErrNotFound
	}
	if next == nil {
		q.rec.Record(OpDelete, start, true)
		return KV{}, ErrBusy
	}

	elem := next.kv
	q.tail = next
	q.rec.Adjust(-1)
	q.rec.Record(OpDelete, start, false)
	return elem, nil
}

// mpscMaxRetries bounds how many times TryPop spins on a stalled
// producer before giving up and reporting empty.
const mpscMaxRetries = 100

// TryPop dequeues the oldest element, retrying internally on the
// transient stalled-producer state up to a bounded number of times.
// Returns (element, true) on success, (zero, false) if the queue was
// empty or remained busy past the retry budget. Consumer-only.
func (q *MPSC) TryPop() (KV, bool) {
	for i := 0; i < mpscMaxRetries; i++ {
		elem, err := q.Delete()
		switch err {
		case nil:
			return elem, true
		case ErrNotFound:
			return KV{}, false
		case ErrBusy:
			continue
		default:
			return KV{}, false
		}
	}
	return KV{}, false
}

// Search scans the live chain for key. It is a best-effort snapshot scan,
// not a standard queue operation, and may miss concurrent mutations.
func (q *MPSC) Search(key uint64) (uint64, error) {
	start := monotonicNow()
	const maxIterations = 100000
	curr := q.tail
	for i := 0; i < maxIterations; i++ {
		if curr == nil {
			break
		}
		if curr != q.tail && curr.kv.Key == key {
			q.rec.Record(OpSearch, start, false)
			return curr.kv.Value, nil
		}
		curr = (*mpscNode)(atomic.LoadPointer((*unsafe.Pointer)(unsafe.Pointer(&curr.next))))
	}
	q.rec.Record(OpSearch, start, true)
	return 0, ErrNotFound
}

// Verify walks from tail toward head, confirming the chain is reachable
// and accepting the transient stalled-producer state (tail != head but
// tail.next == nil) rather than treating it as corruption.
func (q *MPSC) Verify() error {
	start := monotonicNow()
	const maxIterations = 100000
	head := q.head.Load()
	if head == nil || q.tail == nil {
		q.rec.Record(OpVerify, start, true)
		return ErrCorrupt
	}
	curr := q.tail
	for i := 0; i < maxIterations; i++ {
		if curr == head {
			q.rec.Record(OpVerify, start, false)
			return nil
		}
		next := (*mpscNode)(atomic.LoadPointer((*unsafe.Pointer)(unsafe.Pointer(&curr.next))))
		if next == nil {
			q.rec.Record(OpVerify, start, false)
			return nil // stalled producer, not corruption
		}
		curr = next
	}
	q.rec.Record(OpVerify, start, true)
	return ErrCorrupt
}

// Iterate calls fn for every live element, oldest first, stopping early
// if fn returns false. Returns the number visited.
func (q *MPSC) Iterate(fn func(key, value uint64) bool) uint64 {
	start := monotonicNow()
	const maxIterations = 100000
	var count uint64
	curr := (*mpscNode)(atomic.LoadPointer((*unsafe.Pointer)(unsafe.Pointer(&q.tail.next))))
	for i := 0; i < maxIterations && curr != nil; i++ {
		if !fn(curr.kv.Key, curr.kv.Value) {
			break
		}
		count++
		curr = (*mpscNode)(atomic.LoadPointer((*unsafe.Pointer)(unsafe.Pointer(&curr.next))))
	}
	q.rec.Record(OpIterate, start, false)
	return count
}

// Stats returns a snapshot of the queue's operation statistics.
func (q *MPSC) Stats() Stats {
	return q.rec.Snapshot()
}

// ResetStats zeroes the queue's operation statistics.
func (q *MPSC) ResetStats() {
	q.rec.Reset()
}

// Describe returns the queue's static metadata.
func (q *MPSC) Describe() Metadata {
	return Metadata{
		Name:            "mpsc",
		Description:     "Vyukov intrusive unbounded multi-producer single-consumer queue",
		NodeSize:        unsafe.Sizeof(mpscNode{}),
		RequiresLocking: false,
	}
}
