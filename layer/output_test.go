package layer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opnetlab/opnet/common"
	"github.com/opnetlab/opnet/operator"
	"github.com/opnetlab/opnet/serialize"
)

func TestNewOutputLayerRejectsWrongSizedRange(t *testing.T) {
	_, err := NewOutputLayer(mustRange(t, 0, 1))
	assert.ErrorIs(t, err, common.ErrInvalidRange)
}

func TestOutputLayerTextChannelDelegation(t *testing.T) {
	l, err := NewOutputLayer(mustRange(t, 0, 2))
	require.NoError(t, err)
	textId := l.ReservedRange().Min() + ChannelText
	l.MessageOperator(textId, int32('x')<<23)

	assert.True(t, l.HasTextOutput())
	assert.Equal(t, int32(1), l.TextCount())
	assert.Equal(t, "x", l.TextOutput())
	assert.False(t, l.HasTextOutput())
}

func TestOutputLayerClearTextOutput(t *testing.T) {
	l, err := NewOutputLayer(mustRange(t, 0, 2))
	require.NoError(t, err)
	textId := l.ReservedRange().Min() + ChannelText
	l.MessageOperator(textId, 'x')
	l.ClearTextOutput()
	assert.False(t, l.HasTextOutput())
}

func TestOutputLayerSetTextBatchSize(t *testing.T) {
	l, err := NewOutputLayer(mustRange(t, 0, 2))
	require.NoError(t, err)
	l.SetTextBatchSize(1)
	textId := l.ReservedRange().Min() + ChannelText
	l.MessageOperator(textId, 'a')
	l.MessageOperator(textId, 'b')
	assert.Len(t, l.TextOutput(), 1)
}

func TestOutputLayerSerializeRoundTrip(t *testing.T) {
	l, err := NewOutputLayer(mustRange(t, 0, 2))
	require.NoError(t, err)
	block := l.Serialize()
	back, err := DeserializeLayer(serialize.NewReader(block))
	require.NoError(t, err)
	assert.True(t, l.Equals(back))
}

func TestDeserializeOutputLayerRecreatesChannelsWhenInvalid(t *testing.T) {
	bad := NewInternalLayer(mustRange(t, 0, 2), true)
	require.NoError(t, bad.AddOperator(operator.NewAdd(0, 0, 0)))
	payloadBytes := bad.serializePayload()

	l, err := DeserializeOutputLayer(true, payloadBytes)
	require.NoError(t, err)
	ops := l.AllOperators()
	require.Len(t, ops, 3)
	for _, op := range ops {
		assert.Equal(t, operator.KindOut, op.Kind())
	}
}
