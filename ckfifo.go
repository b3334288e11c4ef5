// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ds

import (
	"sync/atomic"
	"unsafe"
)

// ckNode is one stub/data node in a CkFIFO. The queue always keeps one
// leading stub node before the oldest real element (Ck's "dummy node" FIFO
// shape): dequeue reads through the current head's next link rather than
// the head itself, so the head node is always one step behind the oldest
// live value.
type ckNode struct {
	next *ckNode
	kv   KV
}

// CkFIFO is a single-producer single-consumer FIFO built from a singly
// linked stub-node list, in the style of Concurrency Kit's ck_fifo_spsc:
// the producer appends past a known tail, the consumer advances past a
// known head, and nodes the consumer has already passed stay chained by
// their next links from garbage up to head, so the producer can recycle
// them instead of allocating afresh.
type CkFIFO struct {
	head         atomic.Pointer[ckNode]
	tail         atomic.Pointer[ckNode]
	headSnapshot *ckNode // producer-only bookkeeping for recycle()
	garbage      atomic.Pointer[ckNode]
	rec          Recorder
}

// NewCkFIFO creates an empty CkFIFO, seeded with one stub node.
func NewCkFIFO() *CkFIFO {
	stub := &ckNode{}
	q := &CkFIFO{headSnapshot: stub}
	q.head.Store(stub)
	q.tail.Store(stub)
	q.garbage.Store(stub)
	return q
}

// recycle returns a garbage node the producer may reuse instead of
// allocating, or nil if nothing is known-recyclable yet. Producer-only.
func (q *CkFIFO) recycle() *ckNode {
	garbage := q.garbage.Load()
	if q.headSnapshot == garbage {
		q.headSnapshot = q.head.Load()
		if q.headSnapshot == garbage {
			return nil
		}
	}
	n := garbage
	q.garbage.Store(n.next)
	return n
}

// Insert enqueues key/value, reusing a passed-consumer node when one is
// available instead of allocating. Producer-only; always succeeds.
func (q *CkFIFO) Insert(key, value uint64) error {
	start := monotonicNow()
	n := q.recycle()
	if n == nil {
		n = &ckNode{}
	}
	n.next = nil
	n.kv = KV{Key: key, Value: value}

	tail := q.tail.Load()
	atomic.StorePointer((*unsafe.Pointer)(unsafe.Pointer(&tail.next)), unsafe.Pointer(n))
	q.tail.Store(n)

	q.rec.Adjust(1)
	q.rec.Record(OpInsert, start, false)
	return nil
}

// Dequeue removes and returns the oldest element. Returns ErrNotFound if
// empty. Consumer-only.
func (q *CkFIFO) Dequeue() (KV, error) {
	start := monotonicNow()
	head := q.head.Load()
	next := (*ckNode)(atomic.LoadPointer((*unsafe.Pointer)(unsafe.Pointer(&head.next))))
	if next == nil {
		q.rec.Record(OpDelete, start, true)
		return KV{}, ErrNotFound
	}
	elem := next.kv
	q.head.Store(next)
	// head is now garbage the producer may recycle via recycle().
	q.rec.Adjust(-1)
	q.rec.Record(OpDelete, start, false)
	return elem, nil
}

// TryPop is Dequeue reported as (element, ok).
func (q *CkFIFO) TryPop() (KV, bool) {
	elem, err := q.Dequeue()
	if err != nil {
		return KV{}, false
	}
	return elem, true
}

// Search always returns ErrInvalid: this FIFO, like its Ck original, does
// not support search by key — it is a pure producer/consumer queue.
func (q *CkFIFO) Search(key uint64) (uint64, error) {
	return 0, ErrInvalid
}

// Verify walks from head toward tail, confirming the chain is intact and
// reaches tail within a bounded number of steps.
func (q *CkFIFO) Verify() error {
	start := monotonicNow()
	const maxSteps = 100000
	head := q.head.Load()
	tail := q.tail.Load()
	if head == nil || tail == nil {
		q.rec.Record(OpVerify, start, true)
		return ErrCorrupt
	}
	cursor := head
	for i := 0; i < maxSteps; i++ {
		if cursor == tail {
			q.rec.Record(OpVerify, start, false)
			return nil
		}
		next := (*ckNode)(atomic.LoadPointer((*unsafe.Pointer)(unsafe.Pointer(&cursor.next))))
		if next == nil {
			q.rec.Record(OpVerify, start, true)
			return ErrCorrupt
		}
		cursor = next
	}
	q.rec.Record(OpVerify, start, true)
	return ErrCorrupt
}

// Iterate calls fn for every live element, oldest first, stopping early
// if fn returns false. Returns the number visited.
func (q *CkFIFO) Iterate(fn func(key, value uint64) bool) uint64 {
	start := monotonicNow()
	const maxSteps = 100000
	head := q.head.Load()
	tail := q.tail.Load()
	var count uint64
	cursor := head
	for i := 0; i < maxSteps && cursor != tail; i++ {
		next := cursor.next
		if next == nil {
			break
		}
		if !fn(next.kv.Key, next.kv.Value) {
			break
		}
		count++
		cursor = next
	}
	q.rec.Record(OpIterate, start, false)
	return count
}

// Stats returns a snapshot of the FIFO's operation statistics.
func (q *CkFIFO) Stats() Stats {
	return q.rec.Snapshot()
}

// ResetStats zeroes the FIFO's operation statistics.
func (q *CkFIFO) ResetStats() {
	q.rec.Reset()
}

// Describe returns the FIFO's static metadata.
func (q *CkFIFO) Describe() Metadata {
	return Metadata{
		Name:            "ck_fifo_spsc",
		Description:     "Ck-style stub-list single-producer single-consumer FIFO",
		NodeSize:        unsafe.Sizeof(ckNode{}),
		RequiresLocking: false,
	}
}
