// Package slotalloc implements an O(1) non-negative integer id allocator
// that reuses freed ids first, backed by two intrusive linked lists
// sharing one storage vector.
package slotalloc

const unreachable = -1

// freeHead and liveHead are the two reserved list-head indices. All
// user-visible ids are physicalIndex - 2, so they stay non-negative.
const (
	freeHead = 0
	liveHead = 1
	headCount = 2
)

type entry struct {
	prev, next int32
	allocated  bool
}

// Allocator allocates and frees non-negative integer ids, most recently
// freed first. The zero value is not usable; use New.
type Allocator struct {
	entries []entry
}

// New returns an empty allocator.
func New() *Allocator {
	a := &Allocator{
		entries: make([]entry, headCount, headCount+16),
	}
	a.entries[freeHead] = entry{unreachable, unreachable, false}
	a.entries[liveHead] = entry{unreachable, unreachable, true}
	return a
}

// FromBitmap reconstructs an allocator whose id space is [0, len(live))
// with allocation status matching live. This produces the same end state
// as allocating len(live) ids in order and then freeing every id whose
// entry is false, in order — which is how StorageTable rehydrates its
// allocator from a data file's allocation flags.
func FromBitmap(live []bool) *Allocator {
	a := New()
	for range live {
		a.Allocate()
	}
	for id, isLive := range live {
		if !isLive {
			a.Free(id)
		}
	}
	return a
}

// Allocate returns a fresh or reused id and marks it live. O(1).
func (a *Allocator) Allocate() int {
	if a.entries[freeHead].next == unreachable {
		id := int32(len(a.entries))
		a.entries = append(a.entries, entry{freeHead, unreachable, false})
		a.entries[freeHead].next = id
	}

	id := a.entries[freeHead].next
	next := a.entries[id].next
	a.entries[freeHead].next = next
	if next != unreachable {
		a.entries[next].prev = freeHead
	}

	liveNext := a.entries[liveHead].next
	a.entries[id] = entry{liveHead, liveNext, true}
	if liveNext != unreachable {
		a.entries[liveNext].prev = id
	}
	a.entries[liveHead].next = id

	return int(id) - headCount
}

// Free returns id to the free list. Out-of-range or already-free ids are
// a silent no-op.
func (a *Allocator) Free(id int) {
	physical := int32(id) + headCount
	if !a.IsAllocated(id) {
		return
	}

	prev := a.entries[physical].prev
	next := a.entries[physical].next
	a.entries[prev].next = next
	if next != unreachable {
		a.entries[next].prev = prev
	}

	freeNext := a.entries[freeHead].next
	a.entries[physical] = entry{freeHead, freeNext, false}
	if freeNext != unreachable {
		a.entries[freeNext].prev = physical
	}
	a.entries[freeHead].next = physical
}

// IsAllocated bounds-checks id and reports its allocation flag.
func (a *Allocator) IsAllocated(id int) bool {
	physical := int64(id) + headCount
	if physical < headCount || physical >= int64(len(a.entries)) {
		return false
	}
	return a.entries[physical].allocated
}

// TraverseLive walks the live list from most-recently-allocated to least.
func (a *Allocator) TraverseLive(fn func(id int)) {
	for i := a.entries[liveHead].next; i != unreachable; i = a.entries[i].next {
		fn(int(i) - headCount)
	}
}

// TraverseFree walks the free list from most-recently-freed to least.
func (a *Allocator) TraverseFree(fn func(id int)) {
	for i := a.entries[freeHead].next; i != unreachable; i = a.entries[i].next {
		fn(int(i) - headCount)
	}
}

// LiveIDs collects TraverseLive's output into a slice, most-recent-first.
func (a *Allocator) LiveIDs() []int {
	ids := make([]int, 0, len(a.entries))
	a.TraverseLive(func(id int) { ids = append(ids, id) })
	return ids
}
