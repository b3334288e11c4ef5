// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ds

import (
	"sync"
	"unsafe"
)

// listNode links one element into a List. pprev points at the slot that
// holds a pointer to this node — either another node's next field or the
// head's first field — so delete can unlink in O(1) without walking back
// from the head, mirroring the arena original's pprev double indirection.
type listNode struct {
	next  *listNode
	pprev **listNode
	key   uint64
	value uint64
}

// List is a doubly-linked, head-insertion, mutex-serialized unordered
// set of (key, value) pairs with unique keys. Concurrent access is safe;
// internally it takes a single mutex around every mutating or traversing
// operation, matching the arena original's note that the list needs
// external locking in any context where pprev bookkeeping must stay
// consistent across concurrent mutators.
type List struct {
	mu    sync.Mutex
	first *listNode
	count uint64
	rec   Recorder
}

// NewList creates an empty List.
func NewList() *List {
	return &List{}
}

func (l *List) addHead(n *listNode) {
	first := l.first
	if first != nil {
		n.next = first
		first.pprev = &n.next
	} else {
		n.next = nil
	}
	l.first = n
	n.pprev = &l.first
}

func unlink(n *listNode) {
	*n.pprev = n.next
	if n.next != nil {
		n.next.pprev = n.pprev
	}
}

func (l *List) find(key uint64) *listNode {
	for n := l.first; n != nil; n = n.next {
		if n.key == key {
			return n
		}
	}
	return nil
}

// Insert adds key/value to the list, or updates value in place if key is
// already present. Always returns SUCCESS absent a caller contract
// violation.
func (l *List) Insert(key, value uint64) error {
	start := monotonicNow()
	l.mu.Lock()
	defer l.mu.Unlock()

	if n := l.find(key); n != nil {
		n.value = value
		l.rec.Record(OpInsert, start, false)
		return nil
	}

	n := &listNode{key: key, value: value}
	l.addHead(n)
	l.count++
	l.rec.Adjust(1)
	l.rec.Record(OpInsert, start, false)
	return nil
}

// Delete removes key from the list. Returns ErrNotFound if key is absent.
func (l *List) Delete(key uint64) error {
	start := monotonicNow()
	l.mu.Lock()
	defer l.mu.Unlock()

	n := l.find(key)
	if n == nil {
		l.rec.Record(OpDelete, start, true)
		return ErrNotFound
	}
	unlink(n)
	l.count--
	l.rec.Adjust(-1)
	l.rec.Record(OpDelete, start, false)
	return nil
}

// Search reports whether key is present, returning its value if so.
func (l *List) Search(key uint64) (uint64, error) {
	start := monotonicNow()
	l.mu.Lock()
	defer l.mu.Unlock()

	n := l.find(key)
	if n == nil {
		l.rec.Record(OpSearch, start, true)
		return 0, ErrNotFound
	}
	l.rec.Record(OpSearch, start, false)
	return n.value, nil
}

// Verify walks the whole list checking every pprev back-link and the
// element count, returning ErrCorrupt at the first inconsistency or if
// the walk exceeds a generous iteration bound (guards against a cycle).
func (l *List) Verify() error {
	start := monotonicNow()
	l.mu.Lock()
	defer l.mu.Unlock()

	const maxIterations = 100000
	expectedPprev := &l.first
	var count uint64
	for n := l.first; n != nil; n = n.next {
		count++
		if n.pprev != expectedPprev {
			l.rec.Record(OpVerify, start, true)
			return ErrCorrupt
		}
		if count >= maxIterations {
			l.rec.Record(OpVerify, start, true)
			return ErrCorrupt
		}
		expectedPprev = &n.next
	}
	if count != l.count {
		l.rec.Record(OpVerify, start, true)
		return ErrCorrupt
	}
	l.rec.Record(OpVerify, start, false)
	return nil
}

// Iterate calls fn for every (key, value) pair in head-to-tail order,
// stopping early if fn returns false. It returns the number of elements
// visited.
func (l *List) Iterate(fn func(key, value uint64) bool) uint64 {
	start := monotonicNow()
	l.mu.Lock()
	defer l.mu.Unlock()

	var count uint64
	for n := l.first; n != nil; n = n.next {
		if !fn(n.key, n.value) {
			break
		}
		count++
	}
	l.rec.Record(OpIterate, start, false)
	return count
}

// Stats returns a snapshot of the list's operation statistics.
func (l *List) Stats() Stats {
	return l.rec.Snapshot()
}

// ResetStats zeroes the list's operation statistics.
func (l *List) ResetStats() {
	l.rec.Reset()
}

// Describe returns the list's static metadata.
func (l *List) Describe() Metadata {
	return Metadata{
		Name:            "list",
		Description:     "Doubly-linked list (mutex-serialized)",
		NodeSize:        unsafe.Sizeof(listNode{}),
		RequiresLocking: true,
	}
}
