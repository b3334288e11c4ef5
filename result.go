// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ds

import (
	"errors"

	"code.hybscloud.com/iox"
)

// Result is a closed enumeration mirroring the sentinel errors every
// container in this package can return. It exists for callers (such as a
// harness binding Op/OpType below) that want a comparable code instead of
// an error value.
type Result int

const (
	Success Result = iota
	NotFound
	Exists
	NoMem
	Invalid
	Corrupt
	Busy
	Full
)

func (r Result) String() string {
	switch r {
	case Success:
		return "SUCCESS"
	case NotFound:
		return "NOT_FOUND"
	case Exists:
		return "EXISTS"
	case NoMem:
		return "NOMEM"
	case Invalid:
		return "INVALID"
	case Corrupt:
		return "CORRUPT"
	case Busy:
		return "BUSY"
	case Full:
		return "FULL"
	default:
		return "UNKNOWN"
	}
}

// Sentinel errors returned by container operations. Every error a
// container returns is one of these; the queue family reports a full
// queue as ErrFull and an empty one as ErrNotFound.
var (
	ErrNotFound = errors.New("ds: not found")
	ErrExists   = errors.New("ds: key already exists")
	ErrNoMem    = errors.New("ds: out of memory")
	ErrInvalid  = errors.New("ds: invalid argument")
	ErrCorrupt  = errors.New("ds: structure corrupt")
	ErrBusy     = errors.New("ds: busy, retry")
	ErrFull     = errors.New("ds: full")
)

// ErrWouldBlock indicates an operation cannot proceed immediately. No
// container in this package returns it; ResultOf maps it to NotFound. It
// is a control flow signal, not a failure — callers should retry with
// backoff rather than propagate it as an error.
//
// This is an alias for [iox.ErrWouldBlock] for ecosystem consistency.
var ErrWouldBlock = iox.ErrWouldBlock

// IsWouldBlock reports whether err indicates the operation would block.
func IsWouldBlock(err error) bool {
	return iox.IsWouldBlock(err)
}

// IsSemantic reports whether err is a control flow signal (not a failure).
func IsSemantic(err error) bool {
	return iox.IsSemantic(err)
}

// IsNonFailure reports whether err represents a non-failure condition.
func IsNonFailure(err error) bool {
	return iox.IsNonFailure(err)
}

// ResultOf maps one of this package's sentinel errors (or nil) to its
// Result code. Unrecognized non-nil errors map to Corrupt, since every
// operation in this package is documented to return only the sentinels
// above.
func ResultOf(err error) Result {
	switch {
	case err == nil:
		return Success
	case errors.Is(err, ErrNotFound):
		return NotFound
	case errors.Is(err, ErrExists):
		return Exists
	case errors.Is(err, ErrNoMem):
		return NoMem
	case errors.Is(err, ErrInvalid):
		return Invalid
	case errors.Is(err, ErrCorrupt):
		return Corrupt
	case errors.Is(err, ErrBusy):
		return Busy
	case errors.Is(err, ErrFull):
		return Full
	case errors.Is(err, ErrWouldBlock):
		return NotFound
	default:
		return Corrupt
	}
}
