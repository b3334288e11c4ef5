// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package arena implements a per-context page fragment allocator backing
// the containers in the parent package: a Region is carved into fixed-size
// pages, each page carrying a trailing live-object refcount, and each
// allocating context (one per producer goroutine, never shared) owns a
// private (page, offset) cursor into the page it is currently bump
// allocating from.
package arena

import (
	"sync"

	"code.hybscloud.com/atomix"
)

// PageSize is the size in bytes of one arena page, matching the page
// fragment allocator's page granularity.
const PageSize = 4096

// refcountSize is the trailing per-page live-object counter, mirrored from
// the page-refcounted allocator's last 8 bytes of every page.
const refcountSize = 8

// maxObjectSize is the usable byte budget of one page; a request whose
// rounded size is maxObjectSize or more returns ErrTooLarge.
const maxObjectSize = PageSize - refcountSize

// Ptr is an opaque handle into a Region. It is an index, not a raw
// pointer: Go's garbage collector already owns and moves nothing in this
// arena's backing storage (each page is a long-lived []byte held by the
// Region), so a plain
// integer offset avoids the lifetime hazards of handing out unsafe
// pointers into a slice whose backing array outlives individual
// allocations only by refcounting, not by the GC.
type Ptr struct {
	page   int32
	offset int32
}

// Nil is the invalid handle {-1, -1}; no valid allocation ever has this
// value.
var Nil = Ptr{page: -1, offset: -1}

// IsNil reports whether p is the Nil handle.
func (p Ptr) IsNil() bool {
	return p.page < 0
}

type page struct {
	buf      []byte
	refcount atomix.Uint64
	free     bool
}

// Region is a growable collection of fixed-size pages from which Cursor values bump
// allocate. A Region is safe for concurrent use by multiple Cursors; a
// single Cursor is not safe for concurrent use by more than one goroutine
// — per-context cursor ownership is the caller's responsibility, exactly
// as the per-CPU page-fragment cursors it is grounded on.
type Region struct {
	mu       sync.Mutex
	pages    []*page
	freeList []int32
	stats    Stats
}

// NewRegion creates an empty Region. Pages are allocated lazily as
// cursors exhaust their current page.
func NewRegion() *Region {
	return &Region{}
}

// acquirePage returns an index of a page with a fresh PageSize-refcountSize
// byte budget, reusing a freed page when one is available.
func (r *Region) acquirePage() int32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	if n := len(r.freeList); n > 0 {
		idx := r.freeList[n-1]
		r.freeList = r.freeList[:n-1]
		p := r.pages[idx]
		p.free = false
		p.refcount.StoreRelease(0)
		for i := range p.buf {
			p.buf[i] = 0
		}
		return idx
	}

	p := &page{buf: make([]byte, PageSize-refcountSize)}
	idx := int32(len(r.pages))
	r.pages = append(r.pages, p)
	return idx
}

func (r *Region) pageAt(idx int32) *page {
	r.mu.Lock()
	p := r.pages[idx]
	r.mu.Unlock()
	return p
}

// releasePage decrements idx's refcount and, if it drops to zero, returns
// the page to the Region's freelist.
func (r *Region) releasePage(idx int32) {
	p := r.pageAt(idx)
	if p.refcount.AddAcqRel(^uint64(0)) == 0 { // fetch-and-subtract-one via two's complement
		r.mu.Lock()
		p.free = true
		r.freeList = append(r.freeList, idx)
		r.mu.Unlock()
	}
}

// Stats mirrors the original page-fragment allocator's arena_stats:
// cumulative counters plus the current live-allocation/bytes gauges.
type Stats struct {
	TotalAllocs        atomix.Uint64
	TotalFrees         atomix.Uint64
	CurrentAllocations atomix.Int64
	BytesAllocated     atomix.Uint64
	BytesFreed         atomix.Uint64
	FailedAllocs       atomix.Uint64
}

// Snapshot is a point-in-time copy of Stats with plain fields, convenient
// for comparison in tests and for handing to a caller.
type Snapshot struct {
	TotalAllocs        uint64
	TotalFrees         uint64
	CurrentAllocations int64
	BytesAllocated     uint64
	BytesFreed         uint64
	FailedAllocs       uint64
}

// Stats returns a snapshot of the Region's cumulative allocator statistics.
func (r *Region) Stats() Snapshot {
	return Snapshot{
		TotalAllocs:        r.stats.TotalAllocs.LoadRelaxed(),
		TotalFrees:         r.stats.TotalFrees.LoadRelaxed(),
		CurrentAllocations: r.stats.CurrentAllocations.LoadRelaxed(),
		BytesAllocated:     r.stats.BytesAllocated.LoadRelaxed(),
		BytesFreed:         r.stats.BytesFreed.LoadRelaxed(),
		FailedAllocs:       r.stats.FailedAllocs.LoadRelaxed(),
	}
}

// Cursor is a per-context allocation cursor: one page index plus a
// descending byte offset into that page. A Cursor is created per
// producer/restricted execution context and must never be shared across
// goroutines, matching the per-CPU page_frag_cur_page/page_frag_cur_offset
// arrays it is grounded on.
type Cursor struct {
	region *Region
	page   int32
	offset int32
}

// NewCursor hands out a fresh per-context cursor over r. Call one per
// allocating goroutine.
func (r *Region) NewCursor() *Cursor {
	return &Cursor{region: r, page: -1}
}

func roundUp8(n int) int {
	return (n + 7) &^ 7
}

// Alloc bump-allocates size bytes from the cursor's current page,
// refilling from the Region when the page is exhausted or absent.
// Returns ErrTooLarge if the rounded size is maxObjectSize (PageSize-8)
// bytes or more.
func (c *Cursor) Alloc(size int) (Ptr, error) {
	size = roundUp8(size)
	if size <= 0 {
		size = 8
	}
	if size >= maxObjectSize {
		c.region.stats.FailedAllocs.AddAcqRel(1)
		return Nil, ErrTooLarge
	}

	if c.page < 0 {
		c.page = c.region.acquirePage()
		c.offset = PageSize - refcountSize
	}

	offset := c.offset - int32(size)
	if offset < 0 {
		c.page = c.region.acquirePage()
		c.offset = PageSize - refcountSize
		offset = c.offset - int32(size)
	}

	p := c.region.pageAt(c.page)
	p.refcount.AddAcqRel(1)
	c.offset = offset

	c.region.stats.TotalAllocs.AddAcqRel(1)
	c.region.stats.CurrentAllocations.AddAcqRel(1)
	c.region.stats.BytesAllocated.AddAcqRel(uint64(size))

	return Ptr{page: c.page, offset: offset}, nil
}

// Free releases one allocation from p's owning page, returning the page
// to the Region's freelist once its refcount reaches zero.
func (r *Region) Free(p Ptr) {
	if p.IsNil() {
		return
	}
	r.stats.TotalFrees.AddAcqRel(1)
	r.stats.CurrentAllocations.AddAcqRel(-1)
	r.releasePage(p.page)
}

// Bytes returns the byte slice backing the allocation at p, sized to the
// allocation's rounded-up size. Callers index/reslice as needed for the
// element type stored there.
func (r *Region) Bytes(p Ptr, size int) []byte {
	size = roundUp8(size)
	page := r.pageAt(p.page)
	return page.buf[p.offset : int(p.offset)+size]
}

// ErrTooLarge is returned by Alloc when size cannot fit within one page.
var ErrTooLarge = errTooLarge{}

type errTooLarge struct{}

func (errTooLarge) Error() string { return "arena: allocation too large for one page" }
