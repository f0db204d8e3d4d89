// Package operator implements the engine's processing nodes (spec.md
// §3 "Operator", §4.3) and their shared traversal contract. Three
// variants exist — ADD, IN, OUT — as a closed set; operator.Kind is a
// sum type over them rather than an open interface hierarchy, per
// spec.md §9's Design Notes preference for "tagged variants with an
// interface over deep inheritance".
package operator

import (
	"math"

	"github.com/opnetlab/opnet/bus"
	"github.com/opnetlab/opnet/payload"
	"github.com/opnetlab/opnet/serialize"
)

// Kind identifies which of the closed set of operator variants a node
// is.
type Kind uint16

const (
	KindAdd Kind = iota
	KindIn
	KindOut
)

func (k Kind) String() string {
	switch k {
	case KindAdd:
		return "ADD"
	case KindIn:
		return "IN"
	case KindOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Operator is the shared capability set every variant exposes
// (spec.md §4.3).
type Operator interface {
	Id() uint32
	Kind() Kind

	// MessageInt delivers an integer datum; variant-specific
	// accumulation semantics apply (spec.md §4.3.3-4.3.5).
	MessageInt(v int32)
	// MessageFloat64/MessageFloat32 round-to-nearest-ties-away-from-zero
	// and clamp to the int32 range before delegating to MessageInt; NaN
	// and +/-Inf are discarded (spec.md §4.3).
	MessageFloat64(v float64)
	MessageFloat32(v float32)

	// ProcessData runs the variant's per-step accumulation-to-payload
	// logic, emitting through disp as needed.
	ProcessData(disp bus.Dispatcher)

	// Traverse advances a payload this operator owns through its
	// routing table (spec.md §4.3.1). Precondition: payload.Active and
	// payload.CurrentOperatorId == this operator's ID.
	Traverse(disp bus.Dispatcher, p *payload.Payload)

	Routing() *RoutingTable
	AddConnectionInternal(target uint32, distance uint16)
	RemoveConnectionInternal(target uint32, distance uint16)
	MoveConnectionInternal(target uint32, oldDist, newDist uint16)

	// ChangeParams applies a variant-specific parameter mutation.
	ChangeParams(params []int32)

	Serialize() []byte
	Equals(other Operator) bool
}

// RoundClampToInt32 implements spec.md §4.3's floating-path message
// rule: round to nearest with ties away from zero, then clamp to
// [math.MinInt32, math.MaxInt32]. It does not handle NaN/±Inf; callers
// discard those with math.IsNaN/math.IsInf before calling this.
func RoundClampToInt32(v float64) int32 {
	r := roundHalfAwayFromZero(v)
	if r > math.MaxInt32 {
		return math.MaxInt32
	}
	if r < math.MinInt32 {
		return math.MinInt32
	}
	return int32(r)
}

func roundHalfAwayFromZero(v float64) float64 {
	if v >= 0 {
		return math.Floor(v + 0.5)
	}
	return math.Ceil(v - 0.5)
}

// SaturatingAdd32 adds b into a, clamping the result to the int32
// range instead of wrapping (spec.md §4.3.3's "saturating add").
func SaturatingAdd32(a, b int32) int32 {
	sum := int64(a) + int64(b)
	if sum > math.MaxInt32 {
		return math.MaxInt32
	}
	if sum < math.MinInt32 {
		return math.MinInt32
	}
	return int32(sum)
}

// traverseShared implements the traversal contract of spec.md §4.3.1,
// identical across all three variants: it is a property of the
// routing table, not of variant-specific state.
func traverseShared(rt *RoutingTable, disp bus.Dispatcher, p *payload.Payload) {
	if p == nil || !p.Active {
		return
	}
	d := p.DistanceTraveled
	slot := rt.Slot(d)
	if slot == nil || slot.Cardinality() == 0 {
		// Dead end: nothing to deliver, payload self-destructs.
		p.Active = false
		return
	}
	for _, t := range slot.ToSlice() {
		disp.ScheduleMessage(t.(uint32), p.Message)
	}
	if int32(d) == rt.MaxIdx() {
		p.Active = false
	} else {
		p.DistanceTraveled = d + 1
	}
}

// writeHeader appends the shared on-wire prefix of spec.md §4.3.2:
// [u16 opType][u32 operatorId][u16 numBuckets] followed by each
// bucket's [u16 distance][u16 numTargets][u32 targetId]*, buckets in
// ascending distance order for byte-stable output.
func writeHeader(w *serialize.Writer, opType Kind, id uint32, rt *RoutingTable) {
	w.WriteUint16(uint16(opType))
	w.WriteUint32(id)
	distances := rt.Distances()
	w.WriteUint16(uint16(len(distances)))
	for _, d := range distances {
		targets := rt.Targets(d)
		w.WriteUint16(d)
		w.WriteUint16(uint16(len(targets)))
		for _, t := range targets {
			w.WriteUint32(t)
		}
	}
}

// readHeader parses the shared prefix written by writeHeader, returning
// the operator ID and populated routing table. The opType tag itself
// must already have been consumed by the caller (layer.go peeks it to
// decide which variant constructor to invoke).
func readHeader(r *serialize.Reader) (id uint32, rt *RoutingTable, err error) {
	id, err = r.ReadUint32()
	if err != nil {
		return 0, nil, err
	}
	numBuckets, err := r.ReadUint16()
	if err != nil {
		return 0, nil, err
	}
	rt = NewRoutingTable()
	for i := uint16(0); i < numBuckets; i++ {
		distance, err := r.ReadUint16()
		if err != nil {
			return 0, nil, err
		}
		numTargets, err := r.ReadUint16()
		if err != nil {
			return 0, nil, err
		}
		for j := uint16(0); j < numTargets; j++ {
			targetId, err := r.ReadUint32()
			if err != nil {
				return 0, nil, err
			}
			rt.Add(distance, targetId)
		}
	}
	return id, rt, nil
}

// PeekType reads just the opType tag without consuming the rest of the
// block, so layer deserialization can dispatch to the right variant
// constructor. It advances r past the tag.
func PeekType(r *serialize.Reader) (Kind, error) {
	v, err := r.ReadUint16()
	if err != nil {
		return 0, err
	}
	return Kind(v), nil
}
