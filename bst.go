// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ds

import (
	"sync/atomic"
	"unsafe"
)

// bstNode is the common shape of both tree node kinds; isLeaf
// discriminates which of the two concrete types a pointer actually
// refers to, mirroring the original's tagged bst_tree_node base struct.
type bstNode struct {
	isLeaf      bool
	infiniteKey uint8 // 0 = real key, 1 = sentinel ∞1, 2 = sentinel ∞2
}

// bstLeaf stores one key/value pair. Every live key in the tree lives in
// exactly one leaf; internal nodes only route.
type bstLeaf struct {
	bstNode
	kv KV
}

// bstOpState is an internal node's update-word state: CLEAN means no
// operation is in flight under this node; IFLAG/DFLAG/MARK mark an
// insert or delete in progress, the same four states as Ellen et al.'s
// update field.
type bstOpState int32

const (
	bstClean bstOpState = iota
	bstIFlag
	bstDFlag
	bstMark
)

// bstUpdate is an internal node's update word: a state plus a pointer
// to the operation record that produced it. The paper packs both into
// the spare low bits of a 4-byte-aligned pointer; Go has no sanctioned
// way to steal bits from a pointer without hiding it from the garbage
// collector, so this wraps both fields in one immutable struct instead
// and CASes the struct pointer — one atomic word, swapped in one CAS,
// exactly like the packed version, just boxed.
type bstUpdate struct {
	state bstOpState
	info  unsafe.Pointer // *bstInsertInfo, *bstDeleteInfo, or nil when clean
}

// newBstClean allocates a fresh CLEAN update word. Every transition back
// to CLEAN — initial construction, helpInsert, helpDelete's backtrack,
// helpMarked — must call this rather than share one sentinel pointer:
// two unrelated clean states need distinct identities, or a CAS holding
// a snapshot from before a completed insert/delete round-trip could
// match a later, unrelated clean state and corrupt the tree, exactly
// the ABA hazard the update word exists to prevent.
func newBstClean() *bstUpdate {
	return &bstUpdate{state: bstClean}
}

// bstInsertInfo is the operation record an in-flight Insert publishes:
// enough for any thread to finish swinging parent's child pointer onto
// the new subtree and clear the flag.
type bstInsertInfo struct {
	parent      *bstInternal
	leaf        *bstLeaf
	newInternal *bstInternal
	leafIsRight bool
}

// bstDeleteInfo is the operation record an in-flight Delete publishes.
// pupdate is the exact update pointer observed on parent during search;
// the mark CAS uses it as the expected old value, so any structural
// change to parent since (e.g. a concurrent Insert flagging it) makes
// that CAS fail and the deletion backtrack and retry from a fresh
// search, instead of silently splicing against a stale view of parent.
type bstDeleteInfo struct {
	grandparent   *bstInternal
	parent        *bstInternal
	leaf          *bstLeaf
	pupdate       *bstUpdate
	parentIsRight bool
	leafIsRight   bool
}

// bstInternal routes left/right by comparing against routingKey: values
// less than routingKey live under left, the rest under right. left and
// right are CAS'd as unsafe.Pointer since Go's atomic.Pointer cannot be
// parameterized over an interface/union of *bstLeaf | *bstInternal.
type bstInternal struct {
	bstNode
	routingKey uint64
	left       unsafe.Pointer // *bstLeaf or *bstInternal
	right      unsafe.Pointer // *bstLeaf or *bstInternal
	update     atomic.Pointer[bstUpdate]
}

func bstLoadLeft(n *bstInternal) unsafe.Pointer {
	return atomic.LoadPointer(&n.left)
}

func bstLoadRight(n *bstInternal) unsafe.Pointer {
	return atomic.LoadPointer(&n.right)
}

func bstIsLeaf(p unsafe.Pointer) (*bstLeaf, bool) {
	if p == nil {
		return nil, false
	}
	n := (*bstNode)(p)
	if n.isLeaf {
		return (*bstLeaf)(p), true
	}
	return nil, false
}

// bstMaxRetries bounds the search/insert/delete CAS retry loops, matching
// the original's BST_MAX_RETRIES and its insert/delete retry budgets.
const bstMaxRetries = 100

// bstSearchResult mirrors bst_search_result, plus the update words
// observed on parent and grandparent while walking past them: Insert
// and Delete need those exact pointers both to detect a dirty ancestor
// and as the expected old value for their own flagging CAS.
type bstSearchResult struct {
	grandparent    *bstInternal
	parent         *bstInternal
	leaf           *bstLeaf
	updGrandparent *bstUpdate
	updParent      *bstUpdate
	parentIsRight  bool
	leafIsRight    bool
	found          bool
}

// BST is a leaf-oriented lock-free binary search tree keyed by uint64,
// after Ellen et al.'s 2010 non-blocking BST: every key/value pair lives
// in a leaf, internal nodes only hold routing keys, and every internal
// node carries an update word coordinating in-flight Insert/Delete
// operations so concurrent mutators never race past each other's
// half-finished structural changes.
//
// Keys ~0-1 and ~0 (the two largest uint64 values) are reserved for the
// sentinel leaves and rejected by Insert.
type BST struct {
	root     *bstInternal
	leafInf1 *bstLeaf
	leafInf2 *bstLeaf
	rec      Recorder
}

// NewBST creates an empty tree, seeded with a root internal node and the
// two sentinel leaves at infinite keys ∞1 < ∞2.
func NewBST() *BST {
	inf1 := &bstLeaf{bstNode: bstNode{isLeaf: true, infiniteKey: 1}, kv: KV{Key: ^uint64(0) - 1}}
	inf2 := &bstLeaf{bstNode: bstNode{isLeaf: true, infiniteKey: 2}, kv: KV{Key: ^uint64(0)}}
	root := &bstInternal{
		bstNode:    bstNode{isLeaf: false, infiniteKey: 2},
		routingKey: ^uint64(0),
	}
	root.left = unsafe.Pointer(inf1)
	root.right = unsafe.Pointer(inf2)
	root.update.Store(newBstClean())
	return &BST{root: root, leafInf1: inf1, leafInf2: inf2}
}

// search walks from the root to the leaf that would hold key, tracking
// parent and grandparent (and their update words) so Insert/Delete can
// attempt a CAS in place. If it passes through an internal node flagged
// DFLAG or MARK — a delete in progress that could splice that node away
// — the path found under it cannot be trusted for mutation, so search
// restarts from the root rather than yielding to a recursive helper.
// Restarts are capped at bstMaxRetries, after which search returns a
// result with a nil leaf; the descent itself is not capped, so leaves at
// any depth are reachable.
func (t *BST) search(key uint64) bstSearchResult {
	var parent, grandparent *bstInternal
	var updParent, updGrandparent *bstUpdate
	var parentIsRight, leafIsRight bool
	node := unsafe.Pointer(t.root)
	restarts := 0

	for {
		leaf, isLeaf := bstIsLeaf(node)
		if isLeaf {
			return bstSearchResult{
				grandparent:    grandparent,
				parent:         parent,
				leaf:           leaf,
				updGrandparent: updGrandparent,
				updParent:      updParent,
				parentIsRight:  parentIsRight,
				leafIsRight:    leafIsRight,
				found:          leaf.infiniteKey == 0 && leaf.kv.Key == key,
			}
		}
		internal := (*bstInternal)(node)
		upd := internal.update.Load()
		if upd.state == bstDFlag || upd.state == bstMark {
			restarts++
			if restarts >= bstMaxRetries {
				return bstSearchResult{}
			}
			grandparent, parent = nil, nil
			updGrandparent, updParent = nil, nil
			parentIsRight, leafIsRight = false, false
			node = unsafe.Pointer(t.root)
			continue
		}

		grandparent = parent
		updGrandparent = updParent
		parentIsRight = leafIsRight
		parent = internal
		updParent = upd

		if key < internal.routingKey {
			node = bstLoadLeft(internal)
			leafIsRight = false
		} else {
			node = bstLoadRight(internal)
			leafIsRight = true
		}
	}
}

// Insert adds key/value to the tree, or updates value in place if key is
// already present — the tree has no use for EXISTS, matching the list's
// own update-in-place semantics. Returns ErrInvalid if key collides with
// a reserved sentinel value, or ErrBusy if it could not make progress
// within the retry budget against concurrent mutators. Safe for any
// number of concurrent callers.
func (t *BST) Insert(key, value uint64) error {
	start := monotonicNow()
	if key >= ^uint64(0)-1 {
		t.rec.Record(OpInsert, start, true)
		return ErrInvalid
	}

	for retry := 0; retry < bstMaxRetries; retry++ {
		result := t.search(key)
		if result.parent == nil || result.leaf == nil {
			continue
		}
		if result.found {
			if t.updateLeaf(result, value) {
				t.rec.Record(OpInsert, start, false)
				return nil
			}
			continue
		}
		// A parent mid-deletion, or whose own parent is mid-deletion,
		// cannot safely take a new child: retry against a fresh search.
		if result.updParent.state != bstClean {
			continue
		}
		if result.updGrandparent != nil && result.updGrandparent.state != bstClean {
			continue
		}

		newLeaf := &bstLeaf{bstNode: bstNode{isLeaf: true}, kv: KV{Key: key, Value: value}}
		newInternal := &bstInternal{bstNode: bstNode{isLeaf: false}}
		newInternal.update.Store(newBstClean())
		if key < result.leaf.kv.Key {
			newInternal.routingKey = result.leaf.kv.Key
			newInternal.left = unsafe.Pointer(newLeaf)
			newInternal.right = unsafe.Pointer(result.leaf)
		} else {
			newInternal.routingKey = key
			newInternal.left = unsafe.Pointer(result.leaf)
			newInternal.right = unsafe.Pointer(newLeaf)
		}

		info := &bstInsertInfo{
			parent:      result.parent,
			leaf:        result.leaf,
			newInternal: newInternal,
			leafIsRight: result.leafIsRight,
		}
		iflag := &bstUpdate{state: bstIFlag, info: unsafe.Pointer(info)}
		if !result.parent.update.CompareAndSwap(result.updParent, iflag) {
			continue
		}
		t.helpInsert(result.parent, iflag)
		t.rec.Adjust(1)
		t.rec.Record(OpInsert, start, false)
		return nil
	}
	t.rec.Record(OpInsert, start, true)
	return ErrBusy
}

// helpInsert completes a flagged insert: swings parent's child pointer
// from the old leaf onto the new subtree, then clears the flag. Any
// thread holding the same iflag pointer (read fresh off parent.update)
// can call this and race harmlessly with the original inserter — both
// CASes are no-ops for whichever one arrives second.
func (t *BST) helpInsert(parent *bstInternal, iflag *bstUpdate) {
	info := (*bstInsertInfo)(iflag.info)
	oldChild := unsafe.Pointer(info.leaf)
	newChild := unsafe.Pointer(info.newInternal)
	if info.leafIsRight {
		atomic.CompareAndSwapPointer(&parent.right, oldChild, newChild)
	} else {
		atomic.CompareAndSwapPointer(&parent.left, oldChild, newChild)
	}
	parent.update.CompareAndSwap(iflag, newBstClean())
}

// updateLeaf replaces result.leaf with a new leaf carrying value, CAS'd
// into the parent slot result.leaf currently occupies. A fresh leaf
// rather than a field write keeps a concurrent Search from ever
// observing a torn key/value pair.
func (t *BST) updateLeaf(result bstSearchResult, value uint64) bool {
	newLeaf := &bstLeaf{bstNode: result.leaf.bstNode, kv: KV{Key: result.leaf.kv.Key, Value: value}}
	oldChild := unsafe.Pointer(result.leaf)
	newChild := unsafe.Pointer(newLeaf)
	if result.leafIsRight {
		return atomic.CompareAndSwapPointer(&result.parent.right, oldChild, newChild)
	}
	return atomic.CompareAndSwapPointer(&result.parent.left, oldChild, newChild)
}

// Delete removes key from the tree, promoting its sibling into the
// grandparent. Returns ErrNotFound if key is absent, or ErrBusy if it
// could not make progress within the retry budget. Safe for any number
// of concurrent callers.
//
// Deletion flags grandparent (DFLAG), then marks parent (MARK) using
// the exact update word observed on parent during search as the CAS's
// expected old value. If a concurrent Insert has touched parent in the
// meantime — even flagging and clearing it again — that pointer no
// longer matches, the mark CAS fails, and this call backtracks and
// retries against a fresh search instead of splicing grandparent based
// on a stale view of parent's children.
func (t *BST) Delete(key uint64) error {
	start := monotonicNow()
	for retry := 0; retry < bstMaxRetries; retry++ {
		result := t.search(key)
		if result.leaf == nil {
			continue
		}
		if !result.found {
			t.rec.Record(OpDelete, start, true)
			return ErrNotFound
		}
		if result.grandparent == nil || result.parent == nil {
			continue
		}
		if result.updParent.state != bstClean {
			continue
		}

		info := &bstDeleteInfo{
			grandparent:   result.grandparent,
			parent:        result.parent,
			leaf:          result.leaf,
			pupdate:       result.updParent,
			parentIsRight: result.parentIsRight,
			leafIsRight:   result.leafIsRight,
		}
		dflag := &bstUpdate{state: bstDFlag, info: unsafe.Pointer(info)}
		if !result.grandparent.update.CompareAndSwap(result.updGrandparent, dflag) {
			continue
		}
		if t.helpDelete(result.grandparent, dflag) {
			t.rec.Adjust(-1)
			t.rec.Record(OpDelete, start, false)
			return nil
		}
		// helpDelete backtracked grandparent to CLEAN; retry from a
		// fresh search rather than reusing this now-stale path.
	}
	t.rec.Record(OpDelete, start, true)
	return ErrBusy
}

// helpDelete marks parent for removal and, on success, splices it out
// of grandparent. Returns false if the mark CAS lost to a concurrent
// mutator of parent, after restoring grandparent to CLEAN so the caller
// (or another thread) can retry with fresh information.
func (t *BST) helpDelete(grandparent *bstInternal, dflag *bstUpdate) bool {
	info := (*bstDeleteInfo)(dflag.info)
	mark := &bstUpdate{state: bstMark, info: dflag.info}
	if info.parent.update.CompareAndSwap(info.pupdate, mark) {
		t.helpMarked(info, grandparent, dflag)
		return true
	}
	if cur := info.parent.update.Load(); cur.state == bstMark && cur.info == dflag.info {
		// Another thread already marked parent for this same delete.
		t.helpMarked(info, grandparent, dflag)
		return true
	}
	grandparent.update.CompareAndSwap(dflag, newBstClean())
	return false
}

// helpMarked splices parent out of grandparent, replacing it with
// parent's surviving child (the sibling of the deleted leaf), then
// clears grandparent's flag.
func (t *BST) helpMarked(info *bstDeleteInfo, grandparent *bstInternal, dflag *bstUpdate) {
	var sibling unsafe.Pointer
	if info.leafIsRight {
		sibling = bstLoadLeft(info.parent)
	} else {
		sibling = bstLoadRight(info.parent)
	}
	oldChild := unsafe.Pointer(info.parent)
	if info.parentIsRight {
		atomic.CompareAndSwapPointer(&grandparent.right, oldChild, sibling)
	} else {
		atomic.CompareAndSwapPointer(&grandparent.left, oldChild, sibling)
	}
	grandparent.update.CompareAndSwap(dflag, newBstClean())
}

// Search reports whether key is present, returning its value if so.
// Wait-free: a pure read, no CAS or helping involved.
func (t *BST) Search(key uint64) (uint64, error) {
	start := monotonicNow()
	result := t.search(key)
	if !result.found {
		t.rec.Record(OpSearch, start, true)
		return 0, ErrNotFound
	}
	t.rec.Record(OpSearch, start, false)
	return result.leaf.kv.Value, nil
}

// TryPop removes and returns the minimum element (leftmost leaf),
// useful for priority-queue-style consumption of the tree in key order.
// Returns (KV{}, false) if the tree holds no real keys.
func (t *BST) TryPop() (KV, bool) {
	start := monotonicNow()
	node := unsafe.Pointer(t.root)
	for i := 0; i < 1000; i++ {
		leaf, isLeaf := bstIsLeaf(node)
		if isLeaf {
			if leaf.infiniteKey != 0 {
				t.rec.Record(OpPop, start, true)
				return KV{}, false
			}
			kv := leaf.kv
			if t.Delete(kv.Key) != nil {
				t.rec.Record(OpPop, start, true)
				return KV{}, false
			}
			t.rec.Record(OpPop, start, false)
			return kv, true
		}
		internal := (*bstInternal)(node)
		node = bstLoadLeft(internal)
	}
	t.rec.Record(OpPop, start, true)
	return KV{}, false
}

// Verify checks that the root and both sentinels exist and that a
// bounded breadth-first walk from the root finds only internal nodes
// with two live children, matching the original's bounded-BFS integrity
// check (at most 100 nodes visited).
func (t *BST) Verify() error {
	start := monotonicNow()
	if t.root == nil || t.leafInf1 == nil || t.leafInf2 == nil {
		t.rec.Record(OpVerify, start, true)
		return ErrInvalid
	}
	if t.leafInf1.infiniteKey != 1 || t.leafInf2.infiniteKey != 2 {
		t.rec.Record(OpVerify, start, true)
		return ErrInvalid
	}

	const maxNodes = 100
	queue := make([]unsafe.Pointer, 0, maxNodes)
	queue = append(queue, unsafe.Pointer(t.root))
	for head := 0; head < len(queue) && head < maxNodes; head++ {
		node := queue[head]
		if node == nil {
			t.rec.Record(OpVerify, start, true)
			return ErrCorrupt
		}
		if _, isLeaf := bstIsLeaf(node); isLeaf {
			continue
		}
		internal := (*bstInternal)(node)
		left := bstLoadLeft(internal)
		right := bstLoadRight(internal)
		if left == nil || right == nil {
			t.rec.Record(OpVerify, start, true)
			return ErrCorrupt
		}
		if len(queue) < maxNodes {
			queue = append(queue, left)
		}
		if len(queue) < maxNodes {
			queue = append(queue, right)
		}
	}
	t.rec.Record(OpVerify, start, false)
	return nil
}

// Iterate performs a bounded in-order traversal (at most 100 leaves,
// matching the original), calling fn(key, value) for every live key in
// ascending order. Stops early if fn returns false, and also stops once
// 100 internal nodes are pending on its stack. Returns the number of
// elements visited.
func (t *BST) Iterate(fn func(key, value uint64) bool) uint64 {
	start := monotonicNow()
	const maxNodes = 100
	stack := make([]*bstInternal, 0, maxNodes)
	var count uint64
	current := unsafe.Pointer(t.root)

	for current != nil || len(stack) > 0 {
		for current != nil {
			leaf, isLeaf := bstIsLeaf(current)
			if isLeaf {
				_ = leaf
				break
			}
			if len(stack) >= maxNodes {
				break
			}
			internal := (*bstInternal)(current)
			stack = append(stack, internal)
			current = bstLoadLeft(internal)
		}

		leaf, isLeaf := bstIsLeaf(current)
		if isLeaf && leaf != nil {
			if leaf.infiniteKey == 0 {
				if !fn(leaf.kv.Key, leaf.kv.Value) {
					break
				}
				count++
			}
			if len(stack) > 0 {
				parent := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				current = bstLoadRight(parent)
			} else {
				current = nil
			}
		} else {
			break
		}
		if count >= maxNodes {
			break
		}
	}
	t.rec.Record(OpIterate, start, false)
	return count
}

// Stats returns a snapshot of the tree's operation statistics.
func (t *BST) Stats() Stats {
	return t.rec.Snapshot()
}

// ResetStats zeroes the tree's operation statistics.
func (t *BST) ResetStats() {
	t.rec.Reset()
}

// Describe returns the tree's static metadata.
func (t *BST) Describe() Metadata {
	return Metadata{
		Name:            "ellen_bst",
		Description:     "Ellen binary search tree (lock-free, leaf-oriented, flag/descriptor protocol)",
		NodeSize:        unsafe.Sizeof(bstInternal{}),
		RequiresLocking: false,
	}
}
