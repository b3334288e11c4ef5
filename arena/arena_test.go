// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package arena_test

import (
	"testing"

	"code.hybscloud.com/ds/arena"
)

func TestCursorAllocBasic(t *testing.T) {
	r := arena.NewRegion()
	c := r.NewCursor()

	p1, err := c.Alloc(16)
	if err != nil {
		t.Fatalf("Alloc: got err %v, want nil", err)
	}
	if p1.IsNil() {
		t.Fatalf("Alloc: got nil Ptr, want valid handle")
	}

	p2, err := c.Alloc(16)
	if err != nil {
		t.Fatalf("Alloc: got err %v, want nil", err)
	}
	if p1 == p2 {
		t.Fatalf("Alloc: two allocations got the same handle %v", p1)
	}

	snap := r.Stats()
	if snap.TotalAllocs != 2 {
		t.Fatalf("TotalAllocs: got %d, want 2", snap.TotalAllocs)
	}
	if snap.CurrentAllocations != 2 {
		t.Fatalf("CurrentAllocations: got %d, want 2", snap.CurrentAllocations)
	}
}

func TestCursorAllocTooLarge(t *testing.T) {
	r := arena.NewRegion()
	c := r.NewCursor()

	_, err := c.Alloc(arena.PageSize)
	if err != arena.ErrTooLarge {
		t.Fatalf("Alloc: got err %v, want ErrTooLarge", err)
	}
}

func TestCursorAllocAtBoundary(t *testing.T) {
	r := arena.NewRegion()
	c := r.NewCursor()

	// P-8 is the documented failing boundary: the trailing 8-byte
	// refcount leaves only P-8 bytes available for objects.
	if _, err := c.Alloc(arena.PageSize - 8); err != arena.ErrTooLarge {
		t.Fatalf("Alloc(P-8): got err %v, want ErrTooLarge", err)
	}
	if _, err := c.Alloc(arena.PageSize - 16); err != nil {
		t.Fatalf("Alloc(P-16): got err %v, want nil", err)
	}
}

func TestRegionFreeReclaimsPage(t *testing.T) {
	r := arena.NewRegion()
	c := r.NewCursor()

	p, err := c.Alloc(64)
	if err != nil {
		t.Fatalf("Alloc: got err %v, want nil", err)
	}
	r.Free(p)

	snap := r.Stats()
	if snap.TotalFrees != 1 {
		t.Fatalf("TotalFrees: got %d, want 1", snap.TotalFrees)
	}
	if snap.CurrentAllocations != 0 {
		t.Fatalf("CurrentAllocations: got %d, want 0", snap.CurrentAllocations)
	}
}

func TestCursorRefillsOnExhaustion(t *testing.T) {
	r := arena.NewRegion()
	c := r.NewCursor()

	// Allocate enough 256-byte objects to force at least one page refill.
	const n = (arena.PageSize / 256) + 4
	seen := make(map[arena.Ptr]bool, n)
	for i := 0; i < n; i++ {
		p, err := c.Alloc(256)
		if err != nil {
			t.Fatalf("Alloc #%d: got err %v, want nil", i, err)
		}
		if seen[p] {
			t.Fatalf("Alloc #%d: duplicate handle %v", i, p)
		}
		seen[p] = true
	}
}

func TestBytesRoundTrip(t *testing.T) {
	r := arena.NewRegion()
	c := r.NewCursor()

	p, err := c.Alloc(8)
	if err != nil {
		t.Fatalf("Alloc: got err %v, want nil", err)
	}
	b := r.Bytes(p, 8)
	if len(b) != 8 {
		t.Fatalf("Bytes: got len %d, want 8", len(b))
	}
	b[0] = 0xAB
	b2 := r.Bytes(p, 8)
	if b2[0] != 0xAB {
		t.Fatalf("Bytes: got %x, want ab", b2[0])
	}
}
