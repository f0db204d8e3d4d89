package layer

import (
	"github.com/opnetlab/opnet/bus"
	"github.com/opnetlab/opnet/common"
	"github.com/opnetlab/opnet/operator"
	"github.com/opnetlab/opnet/rng"
)

// InternalLayer holds ADD operators by default; rangeFinal defaults to
// false (spec.md §4.4.3) but either is permitted.
type InternalLayer struct {
	*base
}

// NewInternalLayer builds an empty INTERNAL layer over r.
func NewInternalLayer(r common.IdRange, rangeFinal bool) *InternalLayer {
	return &InternalLayer{base: newBase(KindInternal, r, rangeFinal)}
}

// DeserializeInternalLayer parses an INTERNAL layer's envelope+payload.
func DeserializeInternalLayer(rangeFinal bool, payloadBytes []byte) (*InternalLayer, error) {
	dp, err := decodePayload(payloadBytes)
	if err != nil {
		return nil, err
	}
	l := &InternalLayer{base: newBase(KindInternal, dp.reservedRange, rangeFinal)}
	for id, op := range dp.ops {
		l.ops[id] = op
	}
	l.recomputeMinMax()
	return l, nil
}

// RandomInit creates between capacity/2 and capacity ADD operators
// using GenerateNextId and runs each one's RandomInit against
// connRange (spec.md §4.4.3).
func (l *InternalLayer) RandomInit(capacity int, connRange [2]uint32, r *rng.Randomizer, disp bus.Dispatcher) error {
	if capacity <= 0 {
		return nil
	}
	min := capacity / 2
	n := int(r.GetInt(int32(min), int32(capacity)))
	for i := 0; i < n; i++ {
		id, err := l.GenerateNextId()
		if err != nil {
			return err
		}
		add := operator.NewAdd(id, 0, 0)
		if err := l.AddOperator(add); err != nil {
			return err
		}
		add.RandomInit(connRange, r, disp)
	}
	return nil
}

func (l *InternalLayer) Serialize() []byte {
	return envelope(l.kind, l.rangeFinal, l.serializePayload())
}

func (l *InternalLayer) Equals(other Layer) bool {
	o, ok := other.(*InternalLayer)
	if !ok {
		return false
	}
	return equalsBase(l.base, o.base)
}
