// Package layer implements the operator-owning container (spec.md §3
// "Layer", §4.4) in its three closed variants: INPUT, OUTPUT, INTERNAL.
// As with operator.Kind, these are a sum type with a shared base rather
// than a class hierarchy (spec.md §9 Design Notes).
package layer

import (
	"sort"

	"github.com/opnetlab/opnet/bus"
	"github.com/opnetlab/opnet/common"
	"github.com/opnetlab/opnet/operator"
	"github.com/opnetlab/opnet/payload"
	"github.com/opnetlab/opnet/serialize"
)

// Kind identifies which of the three layer variants a layer is. The
// numeric values are the wire-format tags of spec.md §4.4.2.
type Kind uint8

const (
	KindInput    Kind = 0
	KindOutput   Kind = 1
	KindInternal Kind = 3
)

func (k Kind) String() string {
	switch k {
	case KindInput:
		return "INPUT"
	case KindOutput:
		return "OUTPUT"
	case KindInternal:
		return "INTERNAL"
	default:
		return "UNKNOWN"
	}
}

// Layer is the shared capability set every variant exposes (spec.md §4.4).
type Layer interface {
	Kind() Kind
	ReservedRange() common.IdRange
	RangeFinal() bool

	AddOperator(op operator.Operator) error
	GenerateNextId() (uint32, error)
	GetOperator(id uint32) (operator.Operator, bool)
	AllOperators() []operator.Operator

	MessageOperator(id uint32, v int32) bool
	ProcessOperatorData(id uint32, disp bus.Dispatcher) bool
	TraverseOperatorPayload(disp bus.Dispatcher, p *payload.Payload) bool

	CreateOperator(params []int32)
	DeleteOperator(id uint32) bool
	ChangeOperatorParam(id uint32, params []int32) bool
	AddOperatorConnection(id uint32, params []int32) bool
	RemoveOperatorConnection(id uint32, params []int32) bool
	MoveOperatorConnection(id uint32, params []int32) bool

	Serialize() []byte
	Equals(other Layer) bool
}

// base implements the invariants and bookkeeping shared by all three
// layer variants (spec.md §4.4): membership, ID generation, and the
// update-dispatch helpers. Variant types embed it and add their own
// construction/serialization envelope and any extra operations.
type base struct {
	kind          Kind
	reservedRange common.IdRange
	rangeFinal    bool
	ops           map[uint32]operator.Operator
	hasOps        bool
	minId         uint32
	maxId         uint32
}

func newBase(kind Kind, r common.IdRange, rangeFinal bool) *base {
	return &base{kind: kind, reservedRange: r, rangeFinal: rangeFinal, ops: make(map[uint32]operator.Operator)}
}

func (b *base) Kind() Kind                    { return b.kind }
func (b *base) ReservedRange() common.IdRange { return b.reservedRange }
func (b *base) RangeFinal() bool              { return b.rangeFinal }

// AddOperator validates that op.Id() lies within the reserved range
// (or, for a non-final range, is >= reservedRange.Min()), rejects
// duplicates, updates the observed min/max, and grows the reserved
// range when appropriate (spec.md §4.4's addOperator contract).
func (b *base) AddOperator(op operator.Operator) error {
	id := op.Id()
	if _, exists := b.ops[id]; exists {
		return common.ErrDuplicate
	}
	if b.rangeFinal {
		if !b.reservedRange.Contains(id) {
			return common.ErrInvalidId
		}
	} else {
		if id < b.reservedRange.Min() {
			return common.ErrInvalidId
		}
		if id > b.reservedRange.Max() {
			grown, err := b.reservedRange.SetMax(id)
			if err != nil {
				return err
			}
			b.reservedRange = grown
		}
	}
	b.ops[id] = op
	if !b.hasOps || id < b.minId {
		b.minId = id
	}
	if !b.hasOps || id > b.maxId {
		b.maxId = id
	}
	b.hasOps = true
	return nil
}

// GenerateNextId returns reservedRange.Min() when empty, else
// currentMaxId+1, growing a non-final range or failing with
// ErrLayerFull on a final one whose range is exhausted (spec.md §4.4).
func (b *base) GenerateNextId() (uint32, error) {
	var candidate uint32
	if !b.hasOps {
		candidate = b.reservedRange.Min()
	} else {
		if b.maxId == ^uint32(0) {
			return 0, common.ErrIdOverflow
		}
		candidate = b.maxId + 1
	}
	if candidate > b.reservedRange.Max() {
		if b.rangeFinal {
			return 0, common.ErrLayerFull
		}
		grown, err := b.reservedRange.SetMax(candidate)
		if err != nil {
			return 0, err
		}
		b.reservedRange = grown
	}
	return candidate, nil
}

func (b *base) GetOperator(id uint32) (operator.Operator, bool) {
	op, ok := b.ops[id]
	return op, ok
}

// AllOperators returns every owned operator ordered by ascending ID —
// the ordering spec.md §4.4.2 requires for serialization, and a
// convenient default for JSON rendering too.
func (b *base) AllOperators() []operator.Operator {
	ids := make([]uint32, 0, len(b.ops))
	for id := range b.ops {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]operator.Operator, 0, len(ids))
	for _, id := range ids {
		out = append(out, b.ops[id])
	}
	return out
}

func (b *base) MessageOperator(id uint32, v int32) bool {
	op, ok := b.ops[id]
	if !ok {
		return false
	}
	op.MessageInt(v)
	return true
}

func (b *base) ProcessOperatorData(id uint32, disp bus.Dispatcher) bool {
	op, ok := b.ops[id]
	if !ok {
		return false
	}
	op.ProcessData(disp)
	return true
}

func (b *base) TraverseOperatorPayload(disp bus.Dispatcher, p *payload.Payload) bool {
	op, ok := b.ops[p.CurrentOperatorId]
	if !ok {
		return false
	}
	op.Traverse(disp, p)
	return true
}

// DeleteOperator removes an operator. A no-op (returns false) on a
// rangeFinal layer (spec.md §4.4: "a no-op on a rangeFinal layer").
func (b *base) DeleteOperator(id uint32) bool {
	if b.rangeFinal {
		return false
	}
	if _, ok := b.ops[id]; !ok {
		return false
	}
	delete(b.ops, id)
	b.recomputeMinMax()
	return true
}

func (b *base) recomputeMinMax() {
	b.hasOps = false
	for id := range b.ops {
		if !b.hasOps || id < b.minId {
			b.minId = id
		}
		if !b.hasOps || id > b.maxId {
			b.maxId = id
		}
		b.hasOps = true
	}
}

// CreateOperator constructs a new operator of the variant named by
// params[0] (0=ADD, 1=IN, 2=OUT) using GenerateNextId, or is a no-op on
// a rangeFinal layer (spec.md §4.4, §4.6: INTERNAL defaults to ADD but
// "other variants permitted via creation events"). ADD construction
// params are [kind, weight, threshold]; IN/OUT take no further params.
func (b *base) CreateOperator(params []int32) {
	if b.rangeFinal || len(params) < 1 {
		return
	}
	kind := operator.Kind(params[0])
	id, err := b.GenerateNextId()
	if err != nil {
		return
	}
	var op operator.Operator
	switch kind {
	case operator.KindAdd:
		var weight, threshold int32
		if len(params) >= 2 {
			weight = params[1]
		}
		if len(params) >= 3 {
			threshold = params[2]
		}
		op = operator.NewAdd(id, weight, threshold)
	case operator.KindIn:
		op = operator.NewIn(id)
	case operator.KindOut:
		op = operator.NewOut(id)
	default:
		return
	}
	_ = b.AddOperator(op)
}

func (b *base) ChangeOperatorParam(id uint32, params []int32) bool {
	op, ok := b.ops[id]
	if !ok {
		return false
	}
	op.ChangeParams(params)
	return true
}

func (b *base) AddOperatorConnection(id uint32, params []int32) bool {
	op, ok := b.ops[id]
	if !ok || len(params) < 2 {
		return false
	}
	op.AddConnectionInternal(uint32(params[0]), uint16(params[1]))
	return true
}

func (b *base) RemoveOperatorConnection(id uint32, params []int32) bool {
	op, ok := b.ops[id]
	if !ok || len(params) < 2 {
		return false
	}
	op.RemoveConnectionInternal(uint32(params[0]), uint16(params[1]))
	return true
}

func (b *base) MoveOperatorConnection(id uint32, params []int32) bool {
	op, ok := b.ops[id]
	if !ok || len(params) < 3 {
		return false
	}
	op.MoveConnectionInternal(uint32(params[0]), uint16(params[1]), uint16(params[2]))
	return true
}

// serializePayload writes [u32 reservedMin][u32 reservedMax] followed
// by each operator's length-prefixed block in ascending ID order
// (spec.md §4.4.2).
func (b *base) serializePayload() []byte {
	w := serialize.NewWriter()
	w.WriteUint32(b.reservedRange.Min())
	w.WriteUint32(b.reservedRange.Max())
	for _, op := range b.AllOperators() {
		block := op.Serialize()
		w.WriteUint32(uint32(len(block)))
		w.WriteBytes(block)
	}
	return w.Bytes()
}

// envelope wraps a payload with the [u8 kind][u8 rangeFinal][u32 size]
// header of spec.md §4.4.2.
func envelope(kind Kind, rangeFinal bool, payload []byte) []byte {
	w := serialize.NewWriter()
	w.WriteUint8(uint8(kind))
	if rangeFinal {
		w.WriteUint8(1)
	} else {
		w.WriteUint8(0)
	}
	w.WriteUint32(uint32(len(payload)))
	w.WriteBytes(payload)
	return w.Bytes()
}

// decodedPayload is the parsed form of a layer payload, before any
// variant-specific post-processing (e.g. INPUT/OUTPUT's "recreate the
// three channels if missing" rule).
type decodedPayload struct {
	reservedRange common.IdRange
	ops           map[uint32]operator.Operator
}

// decodePayload parses [u32 reservedMin][u32 reservedMax] followed by
// length-prefixed operator blocks until the payload is exhausted.
func decodePayload(payloadBytes []byte) (*decodedPayload, error) {
	r := serialize.NewReader(payloadBytes)
	min, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}
	max, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}
	rng, err := common.NewIdRange(min, max)
	if err != nil {
		return nil, err
	}
	ops := make(map[uint32]operator.Operator)
	for !r.AtEnd() {
		blockSize, err := r.ReadUint32()
		if err != nil {
			return nil, err
		}
		blockBytes, err := r.ReadBytes(int(blockSize))
		if err != nil {
			return nil, err
		}
		op, err := DeserializeOperator(blockBytes)
		if err != nil {
			return nil, err
		}
		ops[op.Id()] = op
	}
	return &decodedPayload{reservedRange: rng, ops: ops}, nil
}

// DeserializeOperator parses one operator block (spec.md §4.3.2),
// dispatching on its opType tag.
func DeserializeOperator(block []byte) (operator.Operator, error) {
	r := serialize.NewReader(block)
	kind, err := operator.PeekType(r)
	if err != nil {
		return nil, err
	}
	switch kind {
	case operator.KindAdd:
		return operator.DeserializeAdd(r)
	case operator.KindIn:
		return operator.DeserializeIn(r)
	case operator.KindOut:
		return operator.DeserializeOut(r)
	default:
		return nil, common.ErrCorrupt
	}
}

// DeserializeLayer reads one complete layer block (envelope + payload)
// from r, dispatching on the kind tag (spec.md §4.4.2). It consumes
// exactly the envelope's declared payloadSize bytes.
func DeserializeLayer(r *serialize.Reader) (Layer, error) {
	kindTag, err := r.ReadUint8()
	if err != nil {
		return nil, err
	}
	finalFlag, err := r.ReadUint8()
	if err != nil {
		return nil, err
	}
	size, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}
	payloadBytes, err := r.ReadBytes(int(size))
	if err != nil {
		return nil, err
	}
	rangeFinal := finalFlag != 0
	switch Kind(kindTag) {
	case KindInput:
		return DeserializeInputLayer(rangeFinal, payloadBytes)
	case KindOutput:
		return DeserializeOutputLayer(rangeFinal, payloadBytes)
	case KindInternal:
		return DeserializeInternalLayer(rangeFinal, payloadBytes)
	default:
		return nil, common.ErrCorrupt
	}
}

// equalsBase compares kind, rangeFinal, reservedRange and a pointwise
// operator-map comparison (spec.md §4.4 Layer.equals).
func equalsBase(a, b *base) bool {
	if a.kind != b.kind || a.rangeFinal != b.rangeFinal {
		return false
	}
	if a.reservedRange != b.reservedRange {
		return false
	}
	if len(a.ops) != len(b.ops) {
		return false
	}
	for id, op := range a.ops {
		other, ok := b.ops[id]
		if !ok || !op.Equals(other) {
			return false
		}
	}
	return true
}
