package controller

import "github.com/holiman/bloomfilter/v2"

// idHash adapts a uint32 operator ID to the hash.Hash64 interface
// bloomfilter/v2 expects, letting TopController track "this ID was
// added" without hashing arbitrary byte slices.
type idHash uint64

func (h idHash) Write(p []byte) (int, error) { return len(p), nil }
func (h idHash) Sum(b []byte) []byte         { return b }
func (h idHash) Reset()                      {}
func (h idHash) Size() int                   { return 8 }
func (h idHash) BlockSize() int              { return 8 }
func (h idHash) Sum64() uint64               { return uint64(h) }

// operatorIndex is a best-effort, rebuildable Bloom filter over every
// live operator ID across all layers. It exists purely as a fast
// negative pre-check ahead of the authoritative per-layer map lookup
// (spec.md never requires it; see SPEC_FULL.md's domain-stack table) —
// a "definitely absent" answer short-circuits the lookup, and every
// "maybe" answer is confirmed by the real lookup, so a false positive
// (the filter's only failure mode) never affects correctness.
type operatorIndex struct {
	filter *bloomfilter.Filter
}

func newOperatorIndex(expectedN uint64) *operatorIndex {
	if expectedN < 16 {
		expectedN = 16
	}
	f, err := bloomfilter.NewOptimal(expectedN, 0.01)
	if err != nil {
		return &operatorIndex{}
	}
	return &operatorIndex{filter: f}
}

func (idx *operatorIndex) add(id uint32) {
	if idx.filter == nil {
		return
	}
	idx.filter.Add(idHash(id))
}

// mayContain reports whether id might be a live operator. false means
// "definitely not present"; true means "maybe" and the caller must
// still confirm with the authoritative lookup.
func (idx *operatorIndex) mayContain(id uint32) bool {
	if idx.filter == nil {
		return true
	}
	return idx.filter.Contains(idHash(id))
}
