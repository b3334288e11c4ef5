// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ds

import "unsafe"

// Options configures container creation and algorithm selection.
type Options struct {
	// Producer/Consumer constraints (determines which bounded algorithm
	// Build selects).
	singleProducer bool
	singleConsumer bool

	// Capacity (rounds up to next power of 2); ignored by node-based
	// unbounded containers (MPSC, MSQueue, List, BST, CkFIFO), which are
	// constructed directly via their own New* functions.
	capacity int
}

// Builder creates bounded containers with fluent configuration.
//
// Builder provides a fluent API for configuring and creating the two
// bounded array-backed containers, SPSCRing and MPMC. It selects between
// them by declared producer/consumer constraints the same way earlier
// builder generations selected among SPSC/MPSC/SPMC/MPMC.
//
// Example:
//
//	// SPSC ring (optimal for a single producer/single consumer pipeline stage)
//	q := ds.Build(ds.New(1024).SingleProducer().SingleConsumer())
//
//	// MPMC array (default, general purpose)
//	q := ds.Build(ds.New(4096))
type Builder struct {
	opts Options
}

// New creates a container builder with the given capacity.
//
// Capacity rounds up to the next power of 2. For example, capacity=4
// results in actual capacity=4, capacity=1000 results in actual
// capacity=1024.
//
// Panics if capacity < 2.
func New(capacity int) *Builder {
	if capacity < 2 {
		panic("ds: capacity must be >= 2")
	}
	return &Builder{opts: Options{capacity: capacity}}
}

// SingleProducer declares that only one goroutine will insert.
// Enables the SPSCRing algorithm when combined with SingleConsumer.
func (b *Builder) SingleProducer() *Builder {
	b.opts.singleProducer = true
	return b
}

// SingleConsumer declares that only one goroutine will dequeue.
// Enables the SPSCRing algorithm when combined with SingleProducer.
func (b *Builder) SingleConsumer() *Builder {
	b.opts.singleConsumer = true
	return b
}

// Bounded is the shape shared by the two array-backed containers Build
// can return. It omits the oldest-element accessor (SPSCRing calls it
// Dequeue, MPMC calls it Delete) since TryPop already exposes that
// behavior under one name common to both.
type Bounded interface {
	Insert(key, value uint64) error
	TryPop() (KV, bool)
	Search(key uint64) (uint64, error)
	Verify() error
	Iterate(fn func(key, value uint64) bool) uint64
	Cap() int
	Stats() Stats
	ResetStats()
	Describe() Metadata
}

// Build creates a Bounded container with automatic algorithm selection.
//
// Algorithm selection:
//
//	SingleProducer + SingleConsumer → SPSCRing (Lamport ring buffer)
//	Otherwise                       → MPMC (Vyukov CAS-based array queue)
//
// Panics if the underlying constructor rejects the capacity, which
// cannot happen for capacities accepted by New.
func Build(b *Builder) Bounded {
	if b.opts.singleProducer && b.opts.singleConsumer {
		q, err := NewSPSCRing(b.opts.capacity)
		if err != nil {
			panic(err)
		}
		return q
	}
	q, err := NewMPMC(b.opts.capacity)
	if err != nil {
		panic(err)
	}
	return q
}

// BuildSPSCRing creates an SPSCRing with compile-time type safety.
// Panics if builder is not configured with SingleProducer().SingleConsumer().
func BuildSPSCRing(b *Builder) *SPSCRing {
	if !b.opts.singleProducer || !b.opts.singleConsumer {
		panic("ds: BuildSPSCRing requires SingleProducer().SingleConsumer()")
	}
	q, err := NewSPSCRing(b.opts.capacity)
	if err != nil {
		panic(err)
	}
	return q
}

// BuildMPMC creates an MPMC with compile-time type safety.
// Panics if builder has either constraint set.
func BuildMPMC(b *Builder) *MPMC {
	if b.opts.singleProducer || b.opts.singleConsumer {
		panic("ds: BuildMPMC requires no constraints")
	}
	q, err := NewMPMC(b.opts.capacity)
	if err != nil {
		panic(err)
	}
	return q
}

// roundToPow2 rounds n up to the next power of 2.
func roundToPow2(n int) int {
	if n < 2 {
		return 2
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return n + 1
}

// ptrSize is the size of a pointer in bytes.
const ptrSize = int(unsafe.Sizeof(uintptr(0)))

// pad is cache line padding to prevent false sharing.
type pad [64]byte

// padShort is padding to fill cache line after an 8-byte field.
type padShort [64 - 8]byte

// padPtr is padding to fill cache line after a pointer-sized field.
type padPtr [64 - ptrSize]byte
