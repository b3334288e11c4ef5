// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ds

import (
	"unsafe"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// mpmcSlot holds one ring slot's sequence number alongside its element,
// padded out to its own cache line to keep neighboring slots from
// ping-ponging between producer and consumer cores.
type mpmcSlot struct {
	seq atomix.Uint64
	kv  KV
	_   padShort
}

// MPMC is Dmitry Vyukov's CAS-based bounded multi-producer
// multi-consumer array queue: each of the n physical slots carries a
// sequence number that lets a single CAS on the shared tail/head index
// both claim a slot and detect whether it is actually free/filled,
// without the two-pass claim-then-publish FAA protocol a ring needs when
// it allocates 2n slots instead.
//
// Capacity rounds up to the next power of two.
type MPMC struct {
	_        pad
	tail     atomix.Uint64 // producer index
	_        pad
	head     atomix.Uint64 // consumer index
	_        pad
	buffer   []mpmcSlot
	mask     uint64
	capacity uint64
	rec      Recorder
}

// NewMPMC creates an MPMC queue of at least capacity slots.
func NewMPMC(capacity int) (*MPMC, error) {
	if capacity < 2 {
		return nil, ErrInvalid
	}
	n := uint64(roundToPow2(capacity))
	q := &MPMC{
		buffer:   make([]mpmcSlot, n),
		mask:     n - 1,
		capacity: n,
	}
	for i := uint64(0); i < n; i++ {
		q.buffer[i].seq.StoreRelaxed(i)
	}
	return q, nil
}

// Insert enqueues key/value. Returns ErrFull if the queue is at capacity.
// Safe for any number of concurrent producers.
func (q *MPMC) Insert(key, value uint64) error {
	start := monotonicNow()
	sw := spin.Wait{}
	for {
		tail := q.tail.LoadAcquire()
		slot := &q.buffer[tail&q.mask]
		seq := slot.seq.LoadAcquire()
		diff := int64(seq) - int64(tail)

		if diff == 0 {
			if q.tail.CompareAndSwapAcqRel(tail, tail+1) {
				slot.kv = KV{Key: key, Value: value}
				slot.seq.StoreRelease(tail + 1)
				q.rec.Adjust(1)
				q.rec.Record(OpInsert, start, false)
				return nil
			}
		} else if diff < 0 {
			q.rec.Record(OpInsert, start, true)
			return ErrFull
		}
		sw.Once()
	}
}

// Delete dequeues the oldest element. Returns ErrNotFound if the queue is
// empty. Safe for any number of concurrent consumers.
func (q *MPMC) Delete() (KV, error) {
	start := monotonicNow()
	sw := spin.Wait{}
	for {
		head := q.head.LoadAcquire()
		slot := &q.buffer[head&q.mask]
		seq := slot.seq.LoadAcquire()
		diff := int64(seq) - int64(head+1)

		if diff == 0 {
			if q.head.CompareAndSwapAcqRel(head, head+1) {
				elem := slot.kv
				slot.kv = KV{}
				slot.seq.StoreRelease(head + q.capacity)
				q.rec.Adjust(-1)
				q.rec.Record(OpDelete, start, false)
				return elem, nil
			}
		} else if diff < 0 {
			q.rec.Record(OpDelete, start, true)
			return KV{}, ErrNotFound
		}
		sw.Once()
	}
}

// TryPop is Delete reported as (element, ok).
func (q *MPMC) TryPop() (KV, bool) {
	elem, err := q.Delete()
	if err != nil {
		return KV{}, false
	}
	return elem, true
}

// Search scans the live span of the ring for key. Best-effort,
// non-linearizing: concurrent producers/consumers may shift the live
// span during the scan.
func (q *MPMC) Search(key uint64) (uint64, error) {
	start := monotonicNow()
	head := q.head.LoadAcquire()
	tail := q.tail.LoadAcquire()
	for i := head; i != tail; i++ {
		slot := &q.buffer[i&q.mask]
		kv := slot.kv
		if kv.Key == key {
			q.rec.Record(OpSearch, start, false)
			return kv.Value, nil
		}
	}
	q.rec.Record(OpSearch, start, true)
	return 0, ErrNotFound
}

// Verify checks that tail never trails head and never leads it by more
// than capacity.
func (q *MPMC) Verify() error {
	start := monotonicNow()
	head := q.head.LoadAcquire()
	tail := q.tail.LoadAcquire()
	if int64(tail-head) < 0 || tail-head > q.capacity {
		q.rec.Record(OpVerify, start, true)
		return ErrCorrupt
	}
	q.rec.Record(OpVerify, start, false)
	return nil
}

// Iterate calls fn for every element in the live span, oldest first,
// stopping early if fn returns false. Returns the number visited.
func (q *MPMC) Iterate(fn func(key, value uint64) bool) uint64 {
	start := monotonicNow()
	head := q.head.LoadAcquire()
	tail := q.tail.LoadAcquire()
	var count uint64
	for i := head; i != tail; i++ {
		kv := q.buffer[i&q.mask].kv
		if !fn(kv.Key, kv.Value) {
			break
		}
		count++
	}
	q.rec.Record(OpIterate, start, false)
	return count
}

// Cap returns the queue's capacity.
func (q *MPMC) Cap() int {
	return int(q.capacity)
}

// Stats returns a snapshot of the queue's operation statistics.
func (q *MPMC) Stats() Stats {
	return q.rec.Snapshot()
}

// ResetStats zeroes the queue's operation statistics.
func (q *MPMC) ResetStats() {
	q.rec.Reset()
}

// Describe returns the queue's static metadata.
func (q *MPMC) Describe() Metadata {
	return Metadata{
		Name:            "mpmc",
		Description:     "Vyukov CAS-based bounded multi-producer multi-consumer array queue",
		NodeSize:        unsafe.Sizeof(mpmcSlot{}),
		RequiresLocking: false,
	}
}
