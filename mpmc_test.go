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

func TestMPMCBasic(t *testing.T) {
	q, err := ds.NewMPMC(4)
	if err != nil {
		t.Fatalf("NewMPMC: got err %v, want nil", err)
	}

	for i := uint64(0); i < 4; i++ {
		if err := q.Insert(i, i); err != nil {
			t.Fatalf("Insert(%d): got err %v, want nil", i, err)
		}
	}
	if err := q.Insert(99, 99); !errors.Is(err, ds.ErrFull) {
		t.Fatalf("Insert on full queue: got err %v, want ErrFull", err)
	}

	seen := make(map[uint64]bool)
	for i := 0; i < 4; i++ {
		elem, err := q.Delete()
		if err != nil {
			t.Fatalf("Delete #%d: got err %v, want nil", i, err)
		}
		seen[elem.Key] = true
	}
	if len(seen) != 4 {
		t.Fatalf("Delete: got %d distinct keys, want 4", len(seen))
	}
	if _, err := q.Delete(); !errors.Is(err, ds.ErrNotFound) {
		t.Fatalf("Delete on empty: got err %v, want ErrNotFound", err)
	}
}

func TestMPMCConcurrentProducersConsumers(t *testing.T) {
	if ds.RaceEnabled {
		t.Skip("skipping lock-free concurrency test under the race detector")
	}
	const producers = 4
	const perProducer = 2000
	const total = producers * perProducer

	q, err := ds.NewMPMC(256)
	if err != nil {
		t.Fatalf("NewMPMC: got err %v, want nil", err)
	}

	var producersWG sync.WaitGroup
	var results sync.Map // key -> struct{}, written by producers and consumers alike

	var consumersWG sync.WaitGroup
	stop := make(chan struct{})
	for c := 0; c < 2; c++ {
		consumersWG.Add(1)
		go func() {
			defer consumersWG.Done()
			for {
				if elem, ok := q.TryPop(); ok {
					results.Store(elem.Key, struct{}{})
					continue
				}
				select {
				case <-stop:
					return
				default:
				}
			}
		}()
	}

	for p := 0; p < producers; p++ {
		producersWG.Add(1)
		go func(base uint64) {
			defer producersWG.Done()
			for i := uint64(0); i < perProducer; i++ {
				key := base + i
				for q.Insert(key, key) != nil {
				}
			}
		}(uint64(p * perProducer))
	}
	producersWG.Wait()

	// Producers are done; drain whatever is left single-threaded, then
	// stop the background consumers.
	for {
		elem, ok := q.TryPop()
		if !ok {
			break
		}
		results.Store(elem.Key, struct{}{})
	}
	close(stop)
	consumersWG.Wait()

	var count int
	results.Range(func(key, _ any) bool {
		count++
		return true
	})
	if count != total {
		t.Fatalf("got %d distinct keys, want %d", count, total)
	}
}

func TestMPMCVerify(t *testing.T) {
	q, _ := ds.NewMPMC(8)
	for i := uint64(0); i < 5; i++ {
		_ = q.Insert(i, i)
	}
	if err := q.Verify(); err != nil {
		t.Fatalf("Verify: got err %v, want nil", err)
	}
}
