// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ds_test

import (
	"errors"
	"sync"
	"testing"

	"code.hybscloud.com/ds"
)

func TestMSQueueBasic(t *testing.T) {
	q := ds.NewMSQueue()

	if _, err := q.Delete(); !errors.Is(err, ds.ErrNotFound) {
		t.Fatalf("Delete on empty: got err %v, want ErrNotFound", err)
	}

	for i := uint64(0); i < 5; i++ {
		if err := q.Insert(i, i*10); err != nil {
			t.Fatalf("Insert(%d): got err %v, want nil", i, err)
		}
	}
	for i := uint64(0); i < 5; i++ {
		elem, err := q.Delete()
		if err != nil {
			t.Fatalf("Delete #%d: got err %v, want nil", i, err)
		}
		if elem.Key != i {
			t.Fatalf("Delete #%d: got key %d, want %d", i, elem.Key, i)
		}
	}
	if _, err := q.Delete(); !errors.Is(err, ds.ErrNotFound) {
		t.Fatalf("Delete after drain: got err %v, want ErrNotFound", err)
	}
}

func TestMSQueueConcurrentProducersConsumers(t *testing.T) {
	if ds.RaceEnabled {
		t.Skip("skipping lock-free concurrency test under the race detector")
	}
	const producers = 4
	const perProducer = 1000
	const total = producers * perProducer

	q := ds.NewMSQueue()

	var producersWG sync.WaitGroup
	for p := 0; p < producers; p++ {
		producersWG.Add(1)
		go func(base uint64) {
			defer producersWG.Done()
			for i := uint64(0); i < perProducer; i++ {
				for q.Insert(base+i, base+i) != nil {
				}
			}
		}(uint64(p * perProducer))
	}
	producersWG.Wait()

	seen := make(map[uint64]bool, total)
	for len(seen) < total {
		if elem, ok := q.TryPop(); ok {
			if seen[elem.Key] {
				t.Fatalf("key %d observed more than once", elem.Key)
			}
			seen[elem.Key] = true
		}
	}
}

func TestMSQueueSearchVerifyIterate(t *testing.T) {
	q := ds.NewMSQueue()
	for i := uint64(0); i < 4; i++ {
		_ = q.Insert(i, i+100)
	}
	if v, err := q.Search(2); err != nil || v != 102 {
		t.Fatalf("Search(2): got (%d, %v), want (102, nil)", v, err)
	}
	if _, err := q.Search(42); !errors.Is(err, ds.ErrNotFound) {
		t.Fatalf("Search(42): got err %v, want ErrNotFound", err)
	}
	if err := q.Verify(); err != nil {
		t.Fatalf("Verify: got err %v, want nil", err)
	}
	var keys []uint64
	q.Iterate(func(key, value uint64) bool {
		keys = append(keys, key)
		return true
	})
	if len(keys) != 4 {
		t.Fatalf("Iterate: got %d keys, want 4", len(keys))
	}
}
