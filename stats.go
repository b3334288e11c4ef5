// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ds

import (
	"time"

	"code.hybscloud.com/atomix"
)

// opStats accumulates relaxed per-operation counters: how many times an
// operation ran, how many of those failed, and the cumulative time spent.
// These are observational only — never used to decide correctness.
// Increments use AddAcqRel; reads and resets use relaxed ordering.
type opStats struct {
	count       atomix.Uint64
	failures    atomix.Uint64
	totalTimeNs atomix.Uint64
}

// Recorder tracks per-operation statistics and element counts for a
// container. It is embedded by value in every container's head struct.
// Increments use AddAcqRel; loads, stores and the high-water CAS use
// relaxed ordering. Recorder is observational bookkeeping, never part of
// a container's linearization.
type Recorder struct {
	ops             [opTypeCount]opStats
	currentElements atomix.Int64
	maxElements     atomix.Int64
}

// Record adds one sample for op, taking elapsed since start and whether
// the operation failed.
func (r *Recorder) Record(op OpType, start time.Time, failed bool) {
	s := &r.ops[op]
	s.count.AddAcqRel(1)
	if failed {
		s.failures.AddAcqRel(1)
	}
	s.totalTimeNs.AddAcqRel(uint64(time.Since(start).Nanoseconds()))
}

// Adjust updates the live element count by delta, tracking the high-water
// mark alongside it. Call with +1 on a successful insert and -1 on a
// successful delete/pop.
func (r *Recorder) Adjust(delta int64) {
	cur := r.currentElements.AddAcqRel(delta)
	for {
		max := r.maxElements.LoadRelaxed()
		if cur <= max {
			return
		}
		if r.maxElements.CompareAndSwapRelaxed(max, cur) {
			return
		}
	}
}

// OpStats is the snapshot of one operation's accumulated counters.
type OpStats struct {
	Count       uint64
	Failures    uint64
	TotalTimeNs uint64
}

// Stats is a point-in-time snapshot of a Recorder.
type Stats struct {
	Ops             [opTypeCount]OpStats
	CurrentElements int64
	MaxElements     int64
}

// Snapshot reads the current counters. Reads are relaxed and independent,
// so a snapshot taken concurrently with mutation is approximate — that
// matches the statistics being observational, not linearizing.
func (r *Recorder) Snapshot() Stats {
	var s Stats
	for i := range r.ops {
		s.Ops[i] = OpStats{
			Count:       r.ops[i].count.LoadRelaxed(),
			Failures:    r.ops[i].failures.LoadRelaxed(),
			TotalTimeNs: r.ops[i].totalTimeNs.LoadRelaxed(),
		}
	}
	s.CurrentElements = r.currentElements.LoadRelaxed()
	s.MaxElements = r.maxElements.LoadRelaxed()
	return s
}

// Reset zeroes every counter. Concurrent operations racing with Reset may
// have their contribution dropped; Reset is meant for use between test
// phases, not as a steady-state operation.
func (r *Recorder) Reset() {
	for i := range r.ops {
		r.ops[i].count.StoreRelaxed(0)
		r.ops[i].failures.StoreRelaxed(0)
		r.ops[i].totalTimeNs.StoreRelaxed(0)
	}
	r.currentElements.StoreRelaxed(0)
	r.maxElements.StoreRelaxed(0)
}

// monotonicNow returns a monotonic timestamp suitable for statistics
// timing. time.Now() already carries a monotonic reading on every
// supported Go platform, so no CLOCK_MONOTONIC wrapper is needed.
func monotonicNow() time.Time {
	return time.Now()
}
