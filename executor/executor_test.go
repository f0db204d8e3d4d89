package executor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opnetlab/opnet/bus"
	"github.com/opnetlab/opnet/payload"
	"github.com/opnetlab/opnet/update"
)

// fakeController is a minimal routeController: traverse always
// delivers one message to dest and deactivates the payload; messageOp
// reports presence via a fixed operator set.
type fakeController struct {
	knownOperators map[uint32]bool
	traverseCalls  int
	processCalls   []uint32
	traverseDest   uint32
}

func (f *fakeController) TraversePayload(disp bus.Dispatcher, p *payload.Payload) bool {
	f.traverseCalls++
	if f.traverseDest != 0 {
		disp.ScheduleMessage(f.traverseDest, p.Message)
	}
	p.Active = false
	return true
}

func (f *fakeController) MessageOp(id uint32, v int32) bool {
	return f.knownOperators[id]
}

func (f *fakeController) ProcessOpData(id uint32, disp bus.Dispatcher) bool {
	f.processCalls = append(f.processCalls, id)
	return f.knownOperators[id]
}

func newTestExecutor(fc *fakeController) (*StepExecutor, *bus.Bus) {
	b := bus.New()
	e := New(fc, b)
	b.Bind(e, e, discardUpdates{})
	return e, b
}

type discardUpdates struct{}

func (discardUpdates) Submit(e update.Event) {}

func TestStepTraversesThenProcesses(t *testing.T) {
	fc := &fakeController{knownOperators: map[uint32]bool{5: true}, traverseDest: 5}
	e, b := newTestExecutor(fc)

	p := payload.New(42, 1)
	e.ScheduleNext(p)
	e.Advance()
	require.Equal(t, 1, e.PayloadCount())

	e.Step()
	assert.Equal(t, 1, fc.traverseCalls)
	assert.Equal(t, []uint32{5}, fc.processCalls)
	_ = b
}

func TestDeliverAndFlagDropsDanglingTarget(t *testing.T) {
	fc := &fakeController{knownOperators: map[uint32]bool{}}
	e, _ := newTestExecutor(fc)
	ok := e.DeliverAndFlag(999, 1)
	assert.False(t, ok)
}

func TestPendingCountTracksFlaggedOperators(t *testing.T) {
	fc := &fakeController{knownOperators: map[uint32]bool{7: true}}
	e, _ := newTestExecutor(fc)
	assert.Equal(t, 0, e.PendingCount())
	e.DeliverAndFlag(7, 1)
	assert.Equal(t, 1, e.PendingCount())
	e.Step()
	assert.Equal(t, 0, e.PendingCount())
}

func TestDeliverAndFlagSucceedsAndFlags(t *testing.T) {
	fc := &fakeController{knownOperators: map[uint32]bool{7: true}}
	e, _ := newTestExecutor(fc)
	ok := e.DeliverAndFlag(7, 1)
	assert.True(t, ok)
	e.Step() // nothing in current, but toProcess[7] should run
	assert.Equal(t, []uint32{7}, fc.processCalls)
}

func TestAdvanceMovesNextToCurrent(t *testing.T) {
	fc := &fakeController{knownOperators: map[uint32]bool{}}
	e, _ := newTestExecutor(fc)
	p := payload.New(1, 1)
	e.ScheduleNext(p)
	assert.Equal(t, int64(0), e.CurrentStep())
	e.Advance()
	assert.Equal(t, int64(1), e.CurrentStep())
	assert.Len(t, e.CurrentPayloads(), 1)
	assert.Empty(t, e.NextPayloads())
}

func TestSweepCurrentDropsInactivePayloads(t *testing.T) {
	fc := &fakeController{knownOperators: map[uint32]bool{}}
	e, _ := newTestExecutor(fc)
	active := payload.New(1, 1)
	dead := payload.New(2, 1)
	dead.Active = false
	e.ScheduleNext(active)
	e.ScheduleNext(dead)
	e.Advance()
	e.Step()
	assert.Empty(t, e.CurrentPayloads()) // fakeController deactivates every traversed payload
}

func TestSaveLoadStateRoundTrip(t *testing.T) {
	fc := &fakeController{knownOperators: map[uint32]bool{3: true}}
	e, _ := newTestExecutor(fc)
	e.ScheduleNext(payload.New(11, 2))
	e.Advance()
	e.ScheduleNext(payload.New(22, 4))
	e.DeliverAndFlag(3, 9)

	blob := e.SaveState()

	e2, _ := newTestExecutor(fc)
	require.NoError(t, e2.LoadState(blob))
	assert.Equal(t, e.PayloadCount(), e2.PayloadCount())
	assert.Equal(t, int64(0), e2.CurrentStep())
}

func TestLoadStateRejectsTruncatedData(t *testing.T) {
	fc := &fakeController{knownOperators: map[uint32]bool{}}
	e, _ := newTestExecutor(fc)
	err := e.LoadState([]byte{1, 2, 3})
	assert.Error(t, err)
}
