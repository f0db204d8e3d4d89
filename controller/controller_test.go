package controller

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opnetlab/opnet/common"
	"github.com/opnetlab/opnet/layer"
	"github.com/opnetlab/opnet/operator"
	"github.com/opnetlab/opnet/payload"
	"github.com/opnetlab/opnet/rng"
	"github.com/opnetlab/opnet/update"
)

type fakeDispatcher struct {
	messages []struct {
		target uint32
		value  int32
	}
	scheduled []*payload.Payload
	updates   []update.Event
}

func (f *fakeDispatcher) ScheduleMessage(targetId uint32, message int32) {
	f.messages = append(f.messages, struct {
		target uint32
		value  int32
	}{targetId, message})
}
func (f *fakeDispatcher) SchedulePayloadForNextStep(p *payload.Payload) {
	f.scheduled = append(f.scheduled, p)
}
func (f *fakeDispatcher) SubmitUpdate(e update.Event) { f.updates = append(f.updates, e) }

func newTestRandomizer(seed int64) *rng.Randomizer {
	return rng.NewRandomizer(rng.NewSeededSource(seed))
}

func TestRandomizeNetworkBuildsThreeLayers(t *testing.T) {
	c := New()
	r := newTestRandomizer(1)
	require.NoError(t, c.RandomizeNetwork(4, r, &fakeDispatcher{}))

	require.Len(t, c.Layers(), 3)
	assert.Equal(t, layer.KindInput, c.Layers()[0].Kind())
	assert.Equal(t, layer.KindOutput, c.Layers()[1].Kind())
	assert.Equal(t, layer.KindInternal, c.Layers()[2].Kind())
	assert.True(t, c.Layers()[2].ReservedRange().Min() == 6)
}

func TestRandomizeNetworkZeroInternalStillValid(t *testing.T) {
	c := New()
	r := newTestRandomizer(2)
	require.NoError(t, c.RandomizeNetwork(0, r, &fakeDispatcher{}))
	assert.Equal(t, 6, c.OperatorCount())

	// numInternal==0 must still produce a valid, if empty, INTERNAL
	// reserved range ([6,6]), not the degenerate [6,5].
	internal := c.Layers()[2]
	assert.Equal(t, uint32(6), internal.ReservedRange().Min())
	assert.Equal(t, uint32(6), internal.ReservedRange().Max())
	assert.Empty(t, internal.AllOperators())
}

func TestRandomizeNetworkRejectsNegativeCount(t *testing.T) {
	c := New()
	r := newTestRandomizer(3)
	err := c.RandomizeNetwork(-1, r, &fakeDispatcher{})
	assert.ErrorIs(t, err, common.ErrInvalidArgument)
}

func TestSaveLoadConfigurationRoundTrip(t *testing.T) {
	c := New()
	r := newTestRandomizer(5)
	require.NoError(t, c.RandomizeNetwork(3, r, &fakeDispatcher{}))

	blob := c.SaveConfiguration()

	c2 := New()
	require.NoError(t, c2.LoadConfiguration(blob))
	assert.Equal(t, c.OperatorCount(), c2.OperatorCount())
	assert.Equal(t, c.LayerCount(), c2.LayerCount())
}

func TestLoadConfigurationRejectsTwoDynamicLayers(t *testing.T) {
	// Two non-final layers: neither INPUT nor OUTPUT (both always
	// rangeFinal), so build two INTERNAL layers instead.
	a := layer.NewInternalLayer(idrange(t, 0, 5), false)
	b := layer.NewInternalLayer(idrange(t, 6, 11), false)
	blob := append(a.Serialize(), b.Serialize()...)

	c := New()
	err := c.LoadConfiguration(blob)
	assert.ErrorIs(t, err, common.ErrInvalidTopology)
	assert.Equal(t, 0, c.LayerCount())
}

func TestLoadConfigurationRejectsOverlap(t *testing.T) {
	a := layer.NewInternalLayer(idrange(t, 0, 5), true)
	b := layer.NewInternalLayer(idrange(t, 3, 11), false)
	blob := append(a.Serialize(), b.Serialize()...)

	c := New()
	err := c.LoadConfiguration(blob)
	assert.ErrorIs(t, err, common.ErrInvalidTopology)
}

func TestLoadConfigurationRejectsDynamicLayerNotLast(t *testing.T) {
	a := layer.NewInternalLayer(idrange(t, 0, 5), false)
	b := layer.NewInternalLayer(idrange(t, 6, 11), true)
	blob := append(a.Serialize(), b.Serialize()...)

	c := New()
	err := c.LoadConfiguration(blob)
	assert.ErrorIs(t, err, common.ErrInvalidTopology)
}

func TestLoadConfigurationFailureResetsState(t *testing.T) {
	c := New()
	r := newTestRandomizer(9)
	require.NoError(t, c.RandomizeNetwork(2, r, &fakeDispatcher{}))
	require.Greater(t, c.OperatorCount(), 0)

	bad := layer.NewInternalLayer(idrange(t, 0, 5), false)
	err := c.LoadConfiguration(bad.Serialize())
	assert.Error(t, err)
	assert.Equal(t, 0, c.OperatorCount())
}

func TestFindLayerAndGetOperatorPtr(t *testing.T) {
	c := New()
	r := newTestRandomizer(11)
	require.NoError(t, c.RandomizeNetwork(2, r, &fakeDispatcher{}))

	l, ok := c.FindLayerForOperator(0)
	require.True(t, ok)
	assert.Equal(t, layer.KindInput, l.Kind())

	op, ok := c.GetOperatorPtr(0)
	require.True(t, ok)
	assert.Equal(t, uint32(0), op.Id())

	_, ok = c.GetOperatorPtr(999999)
	assert.False(t, ok)
}

func TestMessageOpAndProcessOpData(t *testing.T) {
	c := New()
	r := newTestRandomizer(13)
	require.NoError(t, c.RandomizeNetwork(0, r, &fakeDispatcher{}))

	assert.True(t, c.MessageOp(0, 'h'))
	assert.False(t, c.MessageOp(999999, 'h'))

	disp := &fakeDispatcher{}
	assert.True(t, c.ProcessOpData(0, disp))
}

func TestInputTextAndOutput(t *testing.T) {
	c := New()
	r := newTestRandomizer(17)
	require.NoError(t, c.RandomizeNetwork(0, r, &fakeDispatcher{}))

	disp := &fakeDispatcher{}
	assert.True(t, c.InputText(disp, "a"))
	assert.Len(t, disp.messages, 1)

	c.SetTextBatchSize(10)
	c.ClearTextOutput()
	assert.Equal(t, int32(0), c.GetTextCount())
	assert.Equal(t, "", c.GetOutput())
}

func TestHandleCreateOperatorDelegatesToDynamicLayer(t *testing.T) {
	c := New()
	r := newTestRandomizer(19)
	require.NoError(t, c.RandomizeNetwork(0, r, &fakeDispatcher{}))

	before := c.OperatorCount()
	c.HandleCreateOperator([]int32{int32(operator.KindAdd), 1, 1})
	assert.Equal(t, before+1, c.OperatorCount())
}

func TestHandleDeleteOperatorDelegates(t *testing.T) {
	c := New()
	r := newTestRandomizer(21)
	require.NoError(t, c.RandomizeNetwork(0, r, &fakeDispatcher{}))
	c.HandleCreateOperator([]int32{int32(operator.KindAdd), 1, 1})

	l := c.dynamicLayer()
	ops := l.AllOperators()
	require.Len(t, ops, 1)
	id := ops[0].Id()

	c.HandleDeleteOperator(id)
	assert.Empty(t, l.AllOperators())
}

func TestHandleConnectionEventsDelegateAndDropSilently(t *testing.T) {
	c := New()
	r := newTestRandomizer(23)
	require.NoError(t, c.RandomizeNetwork(0, r, &fakeDispatcher{}))

	// targets a nonexistent operator: should not panic, just drop.
	c.HandleAddConnection(999999, []int32{1, 0})
	c.HandleRemoveConnection(999999, []int32{1, 0})
	c.HandleMoveConnection(999999, []int32{1, 0, 1})
	c.HandleChangeParams(999999, []int32{0, 1})

	// targets a real operator.
	c.HandleAddConnection(0, []int32{3, 0})
	c.HandleChangeParams(0, []int32{0, 5})
}

func idrange(t *testing.T, min, max uint32) common.IdRange {
	t.Helper()
	r, err := common.NewIdRange(min, max)
	require.NoError(t, err)
	return r
}
