package layer

import (
	"github.com/opnetlab/opnet/bus"
	"github.com/opnetlab/opnet/common"
	"github.com/opnetlab/opnet/operator"
	"github.com/opnetlab/opnet/rng"
)

// Channel offsets within an INPUT or OUTPUT layer's reserved range
// (spec.md §3: "three operators ... corresponding to channels {text,
// image, audio} in that order").
const (
	ChannelText  = 0
	ChannelImage = 1
	ChannelAudio = 2
)

// InputLayer holds exactly three IN operators at reservedRange.Min()+{0,1,2}
// (spec.md §4.4.1).
type InputLayer struct {
	*base
}

// NewInputLayer builds an INPUT layer over r, creating the three
// channel operators immediately.
func NewInputLayer(r common.IdRange) (*InputLayer, error) {
	if r.Count() != 3 {
		return nil, common.ErrInvalidRange
	}
	l := &InputLayer{base: newBase(KindInput, r, true)}
	for _, off := range []uint32{ChannelText, ChannelImage, ChannelAudio} {
		if err := l.AddOperator(operator.NewIn(r.Min() + off)); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// DeserializeInputLayer parses an INPUT layer's envelope+payload. If
// the decoded operator set does not satisfy the "three typed channels"
// invariant, the layer is cleared and the channels are re-created in
// place (spec.md §4.4.1).
func DeserializeInputLayer(rangeFinal bool, payloadBytes []byte) (*InputLayer, error) {
	dp, err := decodePayload(payloadBytes)
	if err != nil {
		return nil, err
	}
	l := &InputLayer{base: newBase(KindInput, dp.reservedRange, true)}
	if validChannelSet(dp, dp.reservedRange, operator.KindIn) {
		for id, op := range dp.ops {
			l.ops[id] = op
		}
		l.recomputeMinMax()
		return l, nil
	}
	for _, off := range []uint32{ChannelText, ChannelImage, ChannelAudio} {
		if err := l.AddOperator(operator.NewIn(dp.reservedRange.Min() + off)); err != nil {
			return nil, err
		}
	}
	return l, nil
}

func validChannelSet(dp *decodedPayload, r common.IdRange, wantKind operator.Kind) bool {
	if r.Count() != 3 || len(dp.ops) != 3 {
		return false
	}
	for _, off := range []uint32{ChannelText, ChannelImage, ChannelAudio} {
		op, ok := dp.ops[r.Min()+off]
		if !ok || op.Kind() != wantKind {
			return false
		}
	}
	return true
}

// InputText enqueues one message delivery per byte of s to the text
// channel (spec.md §4.4.1's inputText).
func (l *InputLayer) InputText(disp bus.Dispatcher, s string) {
	textId := l.reservedRange.Min() + ChannelText
	for i := 0; i < len(s); i++ {
		disp.ScheduleMessage(textId, int32(s[i]))
	}
}

// RandomInit wires the INPUT channels directly (spec.md §4.6: IN's
// randomInit differs from ADD's by mutating routing in place, since it
// always runs before the simulation starts).
func (l *InputLayer) RandomInit(connRange [2]uint32, r *rng.Randomizer) {
	for _, op := range l.AllOperators() {
		in, ok := op.(*operator.In)
		if !ok {
			continue
		}
		in.RandomInit(connRange, r)
	}
}

func (l *InputLayer) Serialize() []byte {
	return envelope(l.kind, l.rangeFinal, l.serializePayload())
}

func (l *InputLayer) Equals(other Layer) bool {
	o, ok := other.(*InputLayer)
	if !ok {
		return false
	}
	return equalsBase(l.base, o.base)
}
