package operator

import (
	"math"

	"github.com/opnetlab/opnet/bus"
	"github.com/opnetlab/opnet/payload"
	"github.com/opnetlab/opnet/rng"
	"github.com/opnetlab/opnet/serialize"
)

// In is the input-channel operator variant (spec.md §4.3.4). Its
// inbox is transient and never serialized.
type In struct {
	id      uint32
	routing *RoutingTable
	inbox   []int32
}

// NewIn constructs an IN operator with an empty inbox.
func NewIn(id uint32) *In {
	return &In{id: id, routing: NewRoutingTable()}
}

func (o *In) Id() uint32              { return o.id }
func (o *In) Kind() Kind              { return KindIn }
func (o *In) Routing() *RoutingTable  { return o.routing }

// MessageInt implements spec.md §4.3.4: negative values coerce to 0,
// all others append to inbox preserving arrival order.
func (o *In) MessageInt(v int32) {
	if v < 0 {
		v = 0
	}
	o.inbox = append(o.inbox, v)
}

func (o *In) MessageFloat64(v float64) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return
	}
	o.MessageInt(RoundClampToInt32(v))
}

func (o *In) MessageFloat32(v float32) {
	o.MessageFloat64(float64(v))
}

// ProcessData implements spec.md §4.3.4: each inbox value becomes a
// payload scheduled for next step if the operator has any routing
// entries (otherwise the value is discarded); inbox is then cleared.
func (o *In) ProcessData(disp bus.Dispatcher) {
	if !o.routing.Empty() {
		for _, v := range o.inbox {
			p := payload.New(v, o.id)
			disp.SchedulePayloadForNextStep(p)
		}
	}
	o.inbox = nil
}

func (o *In) Traverse(disp bus.Dispatcher, p *payload.Payload) {
	traverseShared(o.routing, disp, p)
}

func (o *In) AddConnectionInternal(target uint32, distance uint16) {
	o.routing.Add(distance, target)
}

func (o *In) RemoveConnectionInternal(target uint32, distance uint16) {
	o.routing.Remove(distance, target)
}

func (o *In) MoveConnectionInternal(target uint32, oldDist, newDist uint16) {
	o.routing.Move(target, oldDist, newDist)
}

// ChangeParams is a no-op for IN (spec.md §4.3.4).
func (o *In) ChangeParams(params []int32) {}

// Serialize writes the IN on-wire block: the shared header with an
// empty variant-specific tail (spec.md §4.3.2: "IN: empty").
func (o *In) Serialize() []byte {
	w := serialize.NewWriter()
	writeHeader(w, KindIn, o.id, o.routing)
	return w.Bytes()
}

// DeserializeIn reads an IN block whose opType tag has already been
// consumed.
func DeserializeIn(r *serialize.Reader) (*In, error) {
	id, rt, err := readHeader(r)
	if err != nil {
		return nil, err
	}
	return &In{id: id, routing: rt}, nil
}

// Equals ignores inbox (transient), per spec.md §4.3.4.
func (o *In) Equals(other Operator) bool {
	oo, ok := other.(*In)
	if !ok {
		return false
	}
	return o.id == oo.id && o.routing.Equals(oo.routing)
}

// InboxLen reports the number of pending inbox values (test/debug aid).
func (o *In) InboxLen() int { return len(o.inbox) }

// RandomInit wires direct connections (no update-event indirection):
// spec.md §4.6 permits this for IN specifically because it runs before
// the simulation starts, so there is no concurrent step in flight.
func (o *In) RandomInit(connRange [2]uint32, r *rng.Randomizer) {
	n := r.GetInt(0, MaxConnections)
	for i := int32(0); i < n; i++ {
		target := uint32(r.GetInt(int32(connRange[0]), int32(connRange[1])))
		distance := uint16(r.GetInt(0, MaxDistance))
		o.routing.Add(distance, target)
	}
}
