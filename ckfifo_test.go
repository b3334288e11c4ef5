// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ds_test

import (
	"errors"
	"testing"

	"code.hybscloud.com/ds"
)

func TestCkFIFOBasic(t *testing.T) {
	q := ds.NewCkFIFO()

	if _, err := q.Dequeue(); !errors.Is(err, ds.ErrNotFound) {
		t.Fatalf("Dequeue on empty: got err %v, want ErrNotFound", err)
	}

	for i := uint64(0); i < 5; i++ {
		if err := q.Insert(i, i*10); err != nil {
			t.Fatalf("Insert(%d): got err %v, want nil", i, err)
		}
	}

	for i := uint64(0); i < 5; i++ {
		elem, err := q.Dequeue()
		if err != nil {
			t.Fatalf("Dequeue #%d: got err %v, want nil", i, err)
		}
		if elem.Key != i || elem.Value != i*10 {
			t.Fatalf("Dequeue #%d: got %+v, want key=%d value=%d", i, elem, i, i*10)
		}
	}

	if _, err := q.Dequeue(); !errors.Is(err, ds.ErrNotFound) {
		t.Fatalf("Dequeue after drain: got err %v, want ErrNotFound", err)
	}
}

func TestCkFIFORecyclesNodes(t *testing.T) {
	q := ds.NewCkFIFO()
	// Churn enough to exercise recycle(): insert/dequeue repeatedly so the
	// producer observes and reuses consumer-passed nodes.
	for round := 0; round < 1000; round++ {
		if err := q.Insert(uint64(round), uint64(round)); err != nil {
			t.Fatalf("Insert round %d: got err %v, want nil", round, err)
		}
		elem, err := q.Dequeue()
		if err != nil {
			t.Fatalf("Dequeue round %d: got err %v, want nil", round, err)
		}
		if elem.Key != uint64(round) {
			t.Fatalf("Dequeue round %d: got key %d, want %d", round, elem.Key, round)
		}
	}
	if err := q.Verify(); err != nil {
		t.Fatalf("Verify: got err %v, want nil", err)
	}
}

func TestCkFIFOSearchUnsupported(t *testing.T) {
	q := ds.NewCkFIFO()
	_ = q.Insert(1, 1)
	if _, err := q.Search(1); !errors.Is(err, ds.ErrInvalid) {
		t.Fatalf("Search: got err %v, want ErrInvalid", err)
	}
}

func TestCkFIFOIterate(t *testing.T) {
	q := ds.NewCkFIFO()
	for i := uint64(0); i < 3; i++ {
		_ = q.Insert(i, i)
	}
	var keys []uint64
	q.Iterate(func(key, value uint64) bool {
		keys = append(keys, key)
		return true
	})
	if len(keys) != 3 {
		t.Fatalf("Iterate: got %d keys, want 3", len(keys))
	}
}
