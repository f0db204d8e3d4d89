package operator

import (
	"sort"

	mapset "github.com/deckarep/golang-set"
)

// RoutingTable maps a traversal distance to a set of destination
// operator IDs (spec.md §3: "ordered sequence indexed by d where each
// slot is either empty or a set of u32 with no duplicates"). spec.md
// §9's Design Notes explicitly permit a sparse representation over the
// literal dense array the C++ original uses, as long as MaxIdx and
// per-slot iteration are preserved — this is that sparse form, with
// each slot backed by a github.com/deckarep/golang-set Set so
// duplicate targets collapse for free.
type RoutingTable struct {
	buckets map[uint16]mapset.Set
	maxIdx  int32 // -1 when empty
}

// NewRoutingTable returns an empty table.
func NewRoutingTable() *RoutingTable {
	return &RoutingTable{buckets: make(map[uint16]mapset.Set), maxIdx: -1}
}

// MaxIdx returns the last non-empty slot index, or -1 if the table is
// empty.
func (t *RoutingTable) MaxIdx() int32 { return t.maxIdx }

// Empty reports whether the table has no connections at all.
func (t *RoutingTable) Empty() bool { return len(t.buckets) == 0 }

// Slot returns the target set at distance d, or nil if empty.
func (t *RoutingTable) Slot(d uint16) mapset.Set {
	return t.buckets[d]
}

// Add inserts target into the bucket at distance d, creating the
// bucket if needed (spec.md §4.3 addConnectionInternal).
func (t *RoutingTable) Add(d uint16, target uint32) {
	s, ok := t.buckets[d]
	if !ok {
		s = mapset.NewThreadUnsafeSet()
		t.buckets[d] = s
	}
	s.Add(target)
	if int32(d) > t.maxIdx {
		t.maxIdx = int32(d)
	}
}

// Remove deletes target from the bucket at distance d. A distance with
// no bucket, or a target not present, is a silent no-op — spec.md §9
// flags the original's bounds check on removeConnectionInternal as
// suspicious and asks implementations to treat out-of-range distances
// as no-ops rather than propagate an error.
func (t *RoutingTable) Remove(d uint16, target uint32) {
	s, ok := t.buckets[d]
	if !ok {
		return
	}
	s.Remove(target)
	if s.Cardinality() == 0 {
		delete(t.buckets, d)
		t.recomputeMaxIdx()
	}
}

// Move relocates target from oldDist to newDist. A no-op if target was
// not present at oldDist.
func (t *RoutingTable) Move(target uint32, oldDist, newDist uint16) {
	s, ok := t.buckets[oldDist]
	if !ok || !s.Contains(target) {
		return
	}
	t.Remove(oldDist, target)
	t.Add(newDist, target)
}

func (t *RoutingTable) recomputeMaxIdx() {
	max := int32(-1)
	for d := range t.buckets {
		if int32(d) > max {
			max = int32(d)
		}
	}
	t.maxIdx = max
}

// Distances returns the occupied distance keys in ascending order, for
// deterministic iteration during serialization and JSON rendering.
func (t *RoutingTable) Distances() []uint16 {
	ds := make([]uint16, 0, len(t.buckets))
	for d := range t.buckets {
		ds = append(ds, d)
	}
	sort.Slice(ds, func(i, j int) bool { return ds[i] < ds[j] })
	return ds
}

// Targets returns the targets at distance d as a sorted uint32 slice
// (sorted only so JSON/test output is deterministic; spec.md does not
// require an ordering among targets within one slot).
func (t *RoutingTable) Targets(d uint16) []uint32 {
	s, ok := t.buckets[d]
	if !ok {
		return nil
	}
	out := make([]uint32, 0, s.Cardinality())
	for _, v := range s.ToSlice() {
		out = append(out, v.(uint32))
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Equals compares two routing tables for identical slot contents.
func (t *RoutingTable) Equals(other *RoutingTable) bool {
	if len(t.buckets) != len(other.buckets) {
		return false
	}
	for d, s := range t.buckets {
		os, ok := other.buckets[d]
		if !ok || s.Cardinality() != os.Cardinality() {
			return false
		}
		if !s.Equal(os) {
			return false
		}
	}
	return true
}

// Clone returns a deep copy.
func (t *RoutingTable) Clone() *RoutingTable {
	cp := NewRoutingTable()
	for d, s := range t.buckets {
		ns := mapset.NewThreadUnsafeSet()
		for _, v := range s.ToSlice() {
			ns.Add(v)
		}
		cp.buckets[d] = ns
	}
	cp.maxIdx = t.maxIdx
	return cp
}
