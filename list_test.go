// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ds_test

import (
	"errors"
	"testing"

	"code.hybscloud.com/ds"
)

func TestListInsertSearchDelete(t *testing.T) {
	l := ds.NewList()

	if err := l.Insert(1, 100); err != nil {
		t.Fatalf("Insert: got err %v, want nil", err)
	}
	if err := l.Insert(2, 200); err != nil {
		t.Fatalf("Insert: got err %v, want nil", err)
	}

	v, err := l.Search(1)
	if err != nil || v != 100 {
		t.Fatalf("Search(1): got (%d, %v), want (100, nil)", v, err)
	}

	if err := l.Insert(1, 999); err != nil {
		t.Fatalf("Insert (update): got err %v, want nil", err)
	}
	v, err = l.Search(1)
	if err != nil || v != 999 {
		t.Fatalf("Search(1) after update: got (%d, %v), want (999, nil)", v, err)
	}

	if err := l.Delete(1); err != nil {
		t.Fatalf("Delete(1): got err %v, want nil", err)
	}
	if _, err := l.Search(1); !errors.Is(err, ds.ErrNotFound) {
		t.Fatalf("Search(1) after delete: got err %v, want ErrNotFound", err)
	}

	if err := l.Delete(42); !errors.Is(err, ds.ErrNotFound) {
		t.Fatalf("Delete(42): got err %v, want ErrNotFound", err)
	}
}

func TestListVerify(t *testing.T) {
	l := ds.NewList()
	for i := uint64(0); i < 10; i++ {
		if err := l.Insert(i, i*10); err != nil {
			t.Fatalf("Insert(%d): got err %v, want nil", i, err)
		}
	}
	if err := l.Verify(); err != nil {
		t.Fatalf("Verify: got err %v, want nil", err)
	}
	if err := l.Delete(5); err != nil {
		t.Fatalf("Delete(5): got err %v, want nil", err)
	}
	if err := l.Verify(); err != nil {
		t.Fatalf("Verify after delete: got err %v, want nil", err)
	}
}

func TestListIterate(t *testing.T) {
	l := ds.NewList()
	want := map[uint64]uint64{1: 10, 2: 20, 3: 30}
	for k, v := range want {
		if err := l.Insert(k, v); err != nil {
			t.Fatalf("Insert(%d): got err %v, want nil", k, err)
		}
	}

	got := make(map[uint64]uint64)
	n := l.Iterate(func(key, value uint64) bool {
		got[key] = value
		return true
	})
	if n != uint64(len(want)) {
		t.Fatalf("Iterate: got count %d, want %d", n, len(want))
	}
	for k, v := range want {
		if got[k] != v {
			t.Fatalf("Iterate: key %d got %d, want %d", k, got[k], v)
		}
	}
}

func TestListIterateStopsEarly(t *testing.T) {
	l := ds.NewList()
	for i := uint64(0); i < 5; i++ {
		_ = l.Insert(i, i)
	}
	var visited int
	l.Iterate(func(key, value uint64) bool {
		visited++
		return false
	})
	if visited != 1 {
		t.Fatalf("Iterate: got %d visits, want 1 (stop on first)", visited)
	}
}

func TestListDescribe(t *testing.T) {
	l := ds.NewList()
	md := l.Describe()
	if md.Name != "list" {
		t.Fatalf("Describe: got name %q, want %q", md.Name, "list")
	}
	if !md.RequiresLocking {
		t.Fatalf("Describe: got RequiresLocking false, want true")
	}
}
