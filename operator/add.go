package operator

import (
	"math"

	"github.com/opnetlab/opnet/bus"
	"github.com/opnetlab/opnet/payload"
	"github.com/opnetlab/opnet/rng"
	"github.com/opnetlab/opnet/serialize"
	"github.com/opnetlab/opnet/update"
)

// MaxConnections bounds the number of connections RandomInit may
// create for an ADD operator (original_source's Randomizer.cpp picks a
// connection count uniformly in [0, MAX_CONNECTIONS]).
const MaxConnections = 8

// MaxDistance bounds the distance RandomInit may assign a connection.
const MaxDistance = 4

// Add is the accumulator-add operator variant (spec.md §4.3.3).
type Add struct {
	id        uint32
	routing   *RoutingTable
	Weight    int32
	Threshold int32
	Acc       int32
}

// NewAdd constructs an ADD operator with the given id and parameters.
func NewAdd(id uint32, weight, threshold int32) *Add {
	return &Add{id: id, routing: NewRoutingTable(), Weight: weight, Threshold: threshold}
}

func (a *Add) Id() uint32    { return a.id }
func (a *Add) Kind() Kind    { return KindAdd }
func (a *Add) Routing() *RoutingTable { return a.routing }

// MessageInt saturating-adds v into Acc; zero is a no-op in effect
// (adding zero never changes Acc) though spec.md calls this out
// explicitly since some implementations special-case it.
func (a *Add) MessageInt(v int32) {
	if v == 0 {
		return
	}
	a.Acc = SaturatingAdd32(a.Acc, v)
}

func (a *Add) MessageFloat64(v float64) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return
	}
	a.MessageInt(RoundClampToInt32(v))
}

func (a *Add) MessageFloat32(v float32) {
	a.MessageFloat64(float64(v))
}

// ProcessData implements spec.md §4.3.3: if Acc > Threshold, emit a
// payload carrying Acc+Weight (saturating) when the operator has any
// routing entries; Acc is reset to 0 in all cases.
func (a *Add) ProcessData(disp bus.Dispatcher) {
	if a.Acc > a.Threshold {
		if !a.routing.Empty() {
			out := SaturatingAdd32(a.Acc, a.Weight)
			p := payload.New(out, a.id)
			disp.SchedulePayloadForNextStep(p)
		}
	}
	a.Acc = 0
}

func (a *Add) Traverse(disp bus.Dispatcher, p *payload.Payload) {
	traverseShared(a.routing, disp, p)
}

func (a *Add) AddConnectionInternal(target uint32, distance uint16) {
	a.routing.Add(distance, target)
}

func (a *Add) RemoveConnectionInternal(target uint32, distance uint16) {
	a.routing.Remove(distance, target)
}

func (a *Add) MoveConnectionInternal(target uint32, oldDist, newDist uint16) {
	a.routing.Move(target, oldDist, newDist)
}

// ChangeParams implements spec.md §4.3.3: params[0] selects the field
// (0 -> weight, 1 -> threshold), params[1] is the new value. Any other
// selector, or fewer than 2 params, is ignored.
func (a *Add) ChangeParams(params []int32) {
	if len(params) < 2 {
		return
	}
	switch params[0] {
	case 0:
		a.Weight = params[1]
	case 1:
		a.Threshold = params[1]
	}
}

// Serialize writes the ADD on-wire block (spec.md §4.3.2): the shared
// header followed by [i32 weight][i32 threshold][i32 accumulatedData].
// Acc is persisted — see DESIGN.md's resolution of spec.md §9's open
// question on ADD's accumulator, which the wire format settles by
// dictating this exact tail.
func (a *Add) Serialize() []byte {
	w := serialize.NewWriter()
	writeHeader(w, KindAdd, a.id, a.routing)
	w.WriteInt32(a.Weight)
	w.WriteInt32(a.Threshold)
	w.WriteInt32(a.Acc)
	return w.Bytes()
}

// DeserializeAdd reads an ADD block whose opType tag has already been
// consumed by the caller.
func DeserializeAdd(r *serialize.Reader) (*Add, error) {
	id, rt, err := readHeader(r)
	if err != nil {
		return nil, err
	}
	weight, err := r.ReadInt32()
	if err != nil {
		return nil, err
	}
	threshold, err := r.ReadInt32()
	if err != nil {
		return nil, err
	}
	acc, err := r.ReadInt32()
	if err != nil {
		return nil, err
	}
	return &Add{id: id, routing: rt, Weight: weight, Threshold: threshold, Acc: acc}, nil
}

// Equals compares persistent state. Acc is included (for ADD it is
// persisted, per the wire format) along with Weight, Threshold and the
// routing table.
func (a *Add) Equals(other Operator) bool {
	o, ok := other.(*Add)
	if !ok {
		return false
	}
	return a.id == o.id && a.Weight == o.Weight && a.Threshold == o.Threshold &&
		a.Acc == o.Acc && a.routing.Equals(o.routing)
}

// RandomInit assigns random Weight/Threshold and submits between 0 and
// MaxConnections ADD_CONNECTION update events targeting random IDs in
// connRange at random distances in [0,MaxDistance] — spec.md §4.6: ADD
// operators go through the update-queue indirection rather than
// mutating routing directly, since randomInit may run while the
// network is otherwise live.
func (a *Add) RandomInit(connRange [2]uint32, r *rng.Randomizer, disp bus.Dispatcher) {
	a.Weight = r.GetInt(math.MinInt32, math.MaxInt32)
	a.Threshold = r.GetInt(math.MinInt32, math.MaxInt32)
	n := r.GetInt(0, MaxConnections)
	for i := int32(0); i < n; i++ {
		target := uint32(r.GetInt(int32(connRange[0]), int32(connRange[1])))
		distance := uint16(r.GetInt(0, MaxDistance))
		disp.SubmitUpdate(update.Event{
			Kind:             update.AddConnection,
			TargetOperatorId: a.id,
			Params:           []int32{update.IdToInt32(target), int32(distance)},
		})
	}
}
