// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ds

// OpType names a container operation, for statistics bucketing and for a
// harness that dispatches Op values onto a container. The set mirrors the
// operations every container in this package exposes; POP is included
// alongside the scan-oriented operations because several containers (the
// queue family) expose a dedicated TryPop in addition to Dequeue.
type OpType int

const (
	OpInit OpType = iota
	OpInsert
	OpDelete
	OpSearch
	OpVerify
	OpIterate
	OpPop
	opTypeCount
)

func (t OpType) String() string {
	switch t {
	case OpInit:
		return "INIT"
	case OpInsert:
		return "INSERT"
	case OpDelete:
		return "DELETE"
	case OpSearch:
		return "SEARCH"
	case OpVerify:
		return "VERIFY"
	case OpIterate:
		return "ITERATE"
	case OpPop:
		return "POP"
	default:
		return "UNKNOWN"
	}
}

// Op encapsulates a single operation for dispatch between a driver and a
// container, matching the shape a kernel-side or userspace test harness
// would construct. This package never dispatches Op itself — building and
// consuming a dispatch loop is the harness's job, out of this package's
// scope — it only defines the struct so a harness binding can share it.
type Op struct {
	Type   OpType
	Key    uint64
	Value  uint64
	Result Result
}

// Metadata describes a container's static properties: its name, a short
// description, its node size in bytes, and whether it relies on a lock
// (rather than a lock-free algorithm) to be used safely from multiple
// goroutines.
type Metadata struct {
	Name             string
	Description      string
	NodeSize         uintptr
	RequiresLocking  bool
}
