package operator

import (
	"math"

	"github.com/opnetlab/opnet/bus"
	"github.com/opnetlab/opnet/payload"
	"github.com/opnetlab/opnet/serialize"
)

// DefaultTextBatchSize is the default number of elements DrainText
// converts and removes per call (spec.md §4.3.5).
const DefaultTextBatchSize = 512

// Out is the output-sink operator variant (spec.md §4.3.5). It never
// emits payloads.
type Out struct {
	id        uint32
	routing   *RoutingTable
	data      []int32
	batchSize int
}

// NewOut constructs an OUT operator with an empty persistent buffer.
func NewOut(id uint32) *Out {
	return &Out{id: id, routing: NewRoutingTable(), batchSize: DefaultTextBatchSize}
}

func (o *Out) Id() uint32             { return o.id }
func (o *Out) Kind() Kind             { return KindOut }
func (o *Out) Routing() *RoutingTable { return o.routing }

// MessageInt appends v to the persistent data buffer.
func (o *Out) MessageInt(v int32) {
	o.data = append(o.data, v)
}

func (o *Out) MessageFloat64(v float64) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return
	}
	o.MessageInt(RoundClampToInt32(v))
}

func (o *Out) MessageFloat32(v float32) {
	o.MessageFloat64(float64(v))
}

// ProcessData is a no-op for OUT (spec.md §4.3.5).
func (o *Out) ProcessData(disp bus.Dispatcher) {}

func (o *Out) Traverse(disp bus.Dispatcher, p *payload.Payload) {
	traverseShared(o.routing, disp, p)
}

func (o *Out) AddConnectionInternal(target uint32, distance uint16) {
	o.routing.Add(distance, target)
}

func (o *Out) RemoveConnectionInternal(target uint32, distance uint16) {
	o.routing.Remove(distance, target)
}

func (o *Out) MoveConnectionInternal(target uint32, oldDist, newDist uint16) {
	o.routing.Move(target, oldDist, newDist)
}

// ChangeParams is a no-op for OUT.
func (o *Out) ChangeParams(params []int32) {}

// Serialize writes the OUT on-wire block: the shared header followed
// by [u16 count][i32 datum]*count (spec.md §4.3.2).
func (o *Out) Serialize() []byte {
	w := serialize.NewWriter()
	writeHeader(w, KindOut, o.id, o.routing)
	w.WriteUint16(uint16(len(o.data)))
	for _, v := range o.data {
		w.WriteInt32(v)
	}
	return w.Bytes()
}

// DeserializeOut reads an OUT block whose opType tag has already been
// consumed.
func DeserializeOut(r *serialize.Reader) (*Out, error) {
	id, rt, err := readHeader(r)
	if err != nil {
		return nil, err
	}
	count, err := r.ReadUint16()
	if err != nil {
		return nil, err
	}
	data := make([]int32, 0, count)
	for i := uint16(0); i < count; i++ {
		v, err := r.ReadInt32()
		if err != nil {
			return nil, err
		}
		data = append(data, v)
	}
	return &Out{id: id, routing: rt, data: data, batchSize: DefaultTextBatchSize}, nil
}

// Equals compares data exactly (spec.md §4.3.5).
func (o *Out) Equals(other Operator) bool {
	oo, ok := other.(*Out)
	if !ok || o.id != oo.id || len(o.data) != len(oo.data) || !o.routing.Equals(oo.routing) {
		return false
	}
	for i := range o.data {
		if o.data[i] != oo.data[i] {
			return false
		}
	}
	return true
}

// HasOutput reports whether the data buffer holds any values.
func (o *Out) HasOutput() bool { return len(o.data) > 0 }

// TextCount reports how many elements are currently buffered.
func (o *Out) TextCount() int32 { return int32(len(o.data)) }

// SetBatchSize adjusts how many elements DrainText converts per call.
func (o *Out) SetBatchSize(n int) {
	if n > 0 {
		o.batchSize = n
	}
}

// ClearTextOutput discards all buffered data.
func (o *Out) ClearTextOutput() { o.data = nil }

// DrainText converts up to batchSize buffered values to bytes (each
// value's top 8 value-bits via valueToByte) and removes them from the
// front of the buffer, returning the resulting string. If fewer than
// batchSize values remain they are all drained and the buffer empties.
func (o *Out) DrainText() string {
	n := len(o.data)
	if n > o.batchSize {
		n = o.batchSize
	}
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		out[i] = valueToByte(o.data[i])
	}
	o.data = o.data[n:]
	return string(out)
}

// valueToByte maps an OUT datum to a single byte: c = max(v,0) >> (32-8-1),
// i.e. the top 8 value-bits of a non-negative 32-bit integer (spec.md
// §4.3.5).
func valueToByte(v int32) byte {
	if v < 0 {
		v = 0
	}
	return byte((uint32(v) >> 23) & 0xFF)
}
