package layer

import (
	"github.com/opnetlab/opnet/common"
	"github.com/opnetlab/opnet/operator"
)

// OutputLayer holds exactly three OUT operators at reservedRange.Min()+{0,1,2}
// (spec.md §4.4.1).
type OutputLayer struct {
	*base
}

// NewOutputLayer builds an OUTPUT layer over r, creating the three
// channel operators immediately.
func NewOutputLayer(r common.IdRange) (*OutputLayer, error) {
	if r.Count() != 3 {
		return nil, common.ErrInvalidRange
	}
	l := &OutputLayer{base: newBase(KindOutput, r, true)}
	for _, off := range []uint32{ChannelText, ChannelImage, ChannelAudio} {
		if err := l.AddOperator(operator.NewOut(r.Min() + off)); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// DeserializeOutputLayer parses an OUTPUT layer's envelope+payload,
// recreating the three channels in place if the decoded set doesn't
// satisfy the invariant (spec.md §4.4.1).
func DeserializeOutputLayer(rangeFinal bool, payloadBytes []byte) (*OutputLayer, error) {
	dp, err := decodePayload(payloadBytes)
	if err != nil {
		return nil, err
	}
	l := &OutputLayer{base: newBase(KindOutput, dp.reservedRange, true)}
	if validChannelSet(dp, dp.reservedRange, operator.KindOut) {
		for id, op := range dp.ops {
			l.ops[id] = op
		}
		l.recomputeMinMax()
		return l, nil
	}
	for _, off := range []uint32{ChannelText, ChannelImage, ChannelAudio} {
		if err := l.AddOperator(operator.NewOut(dp.reservedRange.Min() + off)); err != nil {
			return nil, err
		}
	}
	return l, nil
}

func (l *OutputLayer) textOp() *operator.Out {
	textId := l.reservedRange.Min() + ChannelText
	op, ok := l.GetOperator(textId)
	if !ok {
		return nil
	}
	out, _ := op.(*operator.Out)
	return out
}

// HasTextOutput, TextOutput, TextCount, SetTextBatchSize and
// ClearTextOutput all delegate to the text-channel OUT operator
// (spec.md §4.4.1).
func (l *OutputLayer) HasTextOutput() bool {
	if op := l.textOp(); op != nil {
		return op.HasOutput()
	}
	return false
}

func (l *OutputLayer) TextOutput() string {
	if op := l.textOp(); op != nil {
		return op.DrainText()
	}
	return ""
}

func (l *OutputLayer) TextCount() int32 {
	if op := l.textOp(); op != nil {
		return op.TextCount()
	}
	return 0
}

func (l *OutputLayer) SetTextBatchSize(n int) {
	if op := l.textOp(); op != nil {
		op.SetBatchSize(n)
	}
}

func (l *OutputLayer) ClearTextOutput() {
	if op := l.textOp(); op != nil {
		op.ClearTextOutput()
	}
}

func (l *OutputLayer) Serialize() []byte {
	return envelope(l.kind, l.rangeFinal, l.serializePayload())
}

func (l *OutputLayer) Equals(other Layer) bool {
	o, ok := other.(*OutputLayer)
	if !ok {
		return false
	}
	return equalsBase(l.base, o.base)
}
