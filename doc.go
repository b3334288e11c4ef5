// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package ds provides a set of concurrent key/value data structures
// tuned for different producer/consumer and access patterns:
//
//   - List: coarse-grained mutex-protected doubly-linked (pprev) list
//   - SPSCRing: single-producer single-consumer Lamport ring buffer
//   - CkFIFO: single-producer single-consumer stub-list FIFO with node recycling
//   - MPSC: multi-producer single-consumer unbounded intrusive queue
//   - MPMC: multi-producer multi-consumer CAS-based bounded array queue
//   - MSQueue: multi-producer multi-consumer unbounded Michael-Scott queue
//   - BST: concurrent non-blocking binary search tree
//
// # Quick Start
//
//	q, err := ds.NewMPMC(1024)
//	if err != nil {
//	    // capacity < 2
//	}
//	if err := q.Insert(key, value); err != nil {
//	    // ds.ErrFull: queue is at capacity
//	}
//	elem, err := q.Delete()
//	if err != nil {
//	    // ds.ErrNotFound: queue is empty
//	}
//
// The bounded containers (SPSCRing, MPMC) can also be created through a
// fluent Builder that selects the algorithm from declared constraints:
//
//	q := ds.Build(ds.New(1024).SingleProducer().SingleConsumer()) // → SPSCRing
//	q := ds.Build(ds.New(4096))                                    // → MPMC
//
// # Common Patterns
//
// Pipeline stage (SPSCRing):
//
//	q, _ := ds.NewSPSCRing(1024)
//
//	go func() { // producer
//	    sw := spin.Wait{}
//	    for _, item := range items {
//	        for q.Insert(item.Key, item.Value) != nil {
//	            sw.Once()
//	        }
//	    }
//	}()
//
//	go func() { // consumer
//	    for {
//	        elem, err := q.Dequeue()
//	        if err != nil {
//	            continue
//	        }
//	        process(elem)
//	    }
//	}()
//
// Event aggregation (MPSC): many producer goroutines feed one consumer.
//
// Worker pool (MPMC or MSQueue): many submitters feed many workers.
//
// # Element Type
//
// Every container stores fixed KV{Key, Value uint64} elements rather than
// an arbitrary generic type. Callers that need to pass larger payloads
// should store an index or pointer-sized handle in Value and keep the
// backing object in a side table.
//
// # Error Handling
//
// Operations return one of a small set of sentinel errors
// (ErrNotFound, ErrExists, ErrNoMem, ErrInvalid, ErrCorrupt, ErrBusy,
// ErrFull) or nil. ResultOf classifies any error, including
// [code.hybscloud.com/iox]'s ErrWouldBlock, into the closed Result
// enumeration used by the Op/Recorder introspection layer:
//
//	r := ds.ResultOf(err)
//	if r == ds.Full {
//	    // back off
//	}
//
// IsWouldBlock, IsSemantic, and IsNonFailure delegate to iox for
// ecosystem-consistent semantic classification.
//
// # Capacity
//
// Bounded containers (SPSCRing, MPMC) round capacity up to the next
// power of 2; NewSPSCRing(3) and NewMPMC(3) both yield capacity 4.
// Minimum capacity is 2. Unbounded containers (MPSC, MSQueue, List,
// CkFIFO, BST) take no capacity argument.
//
// # Thread Safety
//
// Each container documents its own access-pattern constraints:
//
//   - List: any number of concurrent producers and consumers (mutex-protected)
//   - SPSCRing: exactly one producer goroutine, one consumer goroutine
//   - CkFIFO: exactly one producer goroutine, one consumer goroutine
//   - MPSC: any number of producers, exactly one consumer goroutine
//   - MPMC: any number of concurrent producers and consumers
//   - MSQueue: any number of concurrent producers and consumers
//   - BST: any number of concurrent callers
//
// Violating these constraints causes undefined behavior including data
// corruption and races.
//
// # Statistics
//
// Every container embeds a Recorder that tracks per-OpType call counts,
// failures, cumulative latency, and current/high-water element counts,
// exposed via Stats()/ResetStats(). Describe() returns static Metadata
// (name, description, node size, locking requirement) for introspection
// and tooling.
//
// # Race Detection
//
// Go's race detector tracks explicit synchronization primitives (mutex,
// channels, WaitGroup) but cannot observe happens-before relationships
// established purely through atomic acquire-release memory orderings.
// The lock-free containers here (SPSCRing, CkFIFO, MPSC, MPMC, MSQueue,
// BST) are correct but may report false positives under the race
// detector; their concurrency stress tests skip themselves at runtime
// when RaceEnabled is true.
//
// # Dependencies
//
// This package uses [code.hybscloud.com/iox] for semantic errors,
// [code.hybscloud.com/atomix] for atomic primitives with explicit memory
// ordering, and [code.hybscloud.com/spin] for CPU pause/backoff
// instructions during CAS retry loops.
package ds
