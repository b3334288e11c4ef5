// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ds

import (
	"unsafe"

	"code.hybscloud.com/atomix"
)

// KV is the (key, value) element every container in this package stores.
type KV struct {
	Key   uint64
	Value uint64
}

// SPSCRing is a single-producer single-consumer bounded FIFO ring,
// following Folly's ProducerConsumerQueue / Lamport's ring buffer with
// cached index optimization: the producer caches its last observed view
// of the consumer's index (and vice versa), so the common case of
// Insert/Dequeue touches no cache line the other side is writing.
//
// Capacity rounds up to the next power of two. Insert must only be
// called from one goroutine; Dequeue must only be called from one
// (possibly different) goroutine.
type SPSCRing struct {
	_          pad
	head       atomix.Uint64 // consumer reads from here
	_          pad
	cachedTail uint64 // consumer's cached view of tail
	_          pad
	tail       atomix.Uint64 // producer writes here
	_          pad
	cachedHead uint64 // producer's cached view of head
	_          pad
	buffer     []KV
	mask       uint64
	rec        Recorder
}

// NewSPSCRing creates a ring of at least capacity slots.
func NewSPSCRing(capacity int) (*SPSCRing, error) {
	if capacity < 2 {
		return nil, ErrInvalid
	}
	n := uint64(roundToPow2(capacity))
	return &SPSCRing{
		buffer: make([]KV, n),
		mask:   n - 1,
	}, nil
}

// Insert enqueues kv. Returns ErrFull if the ring is at capacity.
// Producer-only.
func (q *SPSCRing) Insert(key, value uint64) error {
	start := monotonicNow()
	tail := q.tail.LoadRelaxed()
	if tail-q.cachedHead > q.mask {
		q.cachedHead = q.head.LoadAcquire()
		if tail-q.cachedHead > q.mask {
			q.rec.Record(OpInsert, start, true)
			return ErrFull
		}
	}

	q.buffer[tail&q.mask] = KV{Key: key, Value: value}
	q.tail.StoreRelease(tail + 1)
	q.rec.Adjust(1)
	q.rec.Record(OpInsert, start, false)
	return nil
}

// Dequeue removes and returns the oldest element. Returns ErrNotFound if
// the ring is empty. Consumer-only.
func (q *SPSCRing) Dequeue() (KV, error) {
	start := monotonicNow()
	head := q.head.LoadRelaxed()
	if head >= q.cachedTail {
		q.cachedTail = q.tail.LoadAcquire()
		if head >= q.cachedTail {
			q.rec.Record(OpDelete, start, true)
			return KV{}, ErrNotFound
		}
	}

	elem := q.buffer[head&q.mask]
	q.buffer[head&q.mask] = KV{}
	q.head.StoreRelease(head + 1)
	q.rec.Adjust(-1)
	q.rec.Record(OpDelete, start, false)
	return elem, nil
}

// TryPop is Dequeue reported as (element, ok) instead of an error, for
// polling call sites that treat emptiness as routine rather than
// exceptional.
func (q *SPSCRing) TryPop() (KV, bool) {
	elem, err := q.Dequeue()
	if err != nil {
		return KV{}, false
	}
	return elem, true
}

// Search reports whether key is currently present in the ring. Search
// walks the live span between head and tail; it is a best-effort,
// non-linearizing probe, not a standard ring operation.
func (q *SPSCRing) Search(key uint64) (uint64, error) {
	start := monotonicNow()
	head := q.head.LoadAcquire()
	tail := q.tail.LoadAcquire()
	for i := head; i != tail; i++ {
		elem := q.buffer[i&q.mask]
		if elem.Key == key {
			q.rec.Record(OpSearch, start, false)
			return elem.Value, nil
		}
	}
	q.rec.Record(OpSearch, start, true)
	return 0, ErrNotFound
}

// Verify checks head/tail/capacity invariants: tail must not lead head by
// more than capacity slots.
func (q *SPSCRing) Verify() error {
	start := monotonicNow()
	head := q.head.LoadAcquire()
	tail := q.tail.LoadAcquire()
	if tail-head > q.mask+1 {
		q.rec.Record(OpVerify, start, true)
		return ErrCorrupt
	}
	q.rec.Record(OpVerify, start, false)
	return nil
}

// Iterate calls fn for every element currently live in the ring, oldest
// first, stopping early if fn returns false. Returns the number visited.
func (q *SPSCRing) Iterate(fn func(key, value uint64) bool) uint64 {
	start := monotonicNow()
	head := q.head.LoadAcquire()
	tail := q.tail.LoadAcquire()
	var count uint64
	for i := head; i != tail; i++ {
		elem := q.buffer[i&q.mask]
		if !fn(elem.Key, elem.Value) {
			break
		}
		count++
	}
	q.rec.Record(OpIterate, start, false)
	return count
}

// Cap returns the ring's capacity.
func (q *SPSCRing) Cap() int {
	return int(q.mask + 1)
}

// Stats returns a snapshot of the ring's operation statistics.
func (q *SPSCRing) Stats() Stats {
	return q.rec.Snapshot()
}

// ResetStats zeroes the ring's operation statistics.
func (q *SPSCRing) ResetStats() {
	q.rec.Reset()
}

// Describe returns the ring's static metadata.
func (q *SPSCRing) Describe() Metadata {
	return Metadata{
		Name:            "spsc_ring",
		Description:     "Folly-style single-producer single-consumer ring buffer",
		NodeSize:        unsafe.Sizeof(KV{}),
		RequiresLocking: false,
	}
}
