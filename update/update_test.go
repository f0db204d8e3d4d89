package update

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type recordingHandler struct {
	calls []string
	queue *Queue // used to submit re-entrant events mid-drain
}

func (h *recordingHandler) HandleCreateOperator(params []int32) {
	h.calls = append(h.calls, "create")
}
func (h *recordingHandler) HandleDeleteOperator(targetId uint32) {
	h.calls = append(h.calls, "delete")
}
func (h *recordingHandler) HandleAddConnection(targetId uint32, params []int32) {
	h.calls = append(h.calls, "add")
	if h.queue != nil && targetId == 1 {
		// re-entrant submit during drain: should still be processed this pass.
		h.queue.Submit(Event{Kind: ChangeParams, TargetOperatorId: 2})
	}
}
func (h *recordingHandler) HandleRemoveConnection(targetId uint32, params []int32) {
	h.calls = append(h.calls, "remove")
}
func (h *recordingHandler) HandleMoveConnection(targetId uint32, params []int32) {
	h.calls = append(h.calls, "move")
}
func (h *recordingHandler) HandleChangeParams(targetId uint32, params []int32) {
	h.calls = append(h.calls, "change")
}

func TestQueueFIFO(t *testing.T) {
	q := NewQueue()
	q.Submit(Event{Kind: CreateOperator})
	q.Submit(Event{Kind: DeleteOperator})
	q.Submit(Event{Kind: AddConnection})

	h := &recordingHandler{}
	q.ProcessAll(h)

	assert.Equal(t, []string{"create", "delete", "add"}, h.calls)
	assert.Equal(t, 0, q.Len())
}

func TestQueueReentrantSubmitDuringDrain(t *testing.T) {
	q := NewQueue()
	h := &recordingHandler{queue: q}
	q.Submit(Event{Kind: AddConnection, TargetOperatorId: 1})

	q.ProcessAll(h)

	assert.Equal(t, []string{"add", "change"}, h.calls)
	assert.Equal(t, 0, q.Len())
}

func TestIdConversionRoundTrip(t *testing.T) {
	id := uint32(0xFFFFFFFF)
	assert.Equal(t, id, Int32ToId(IdToInt32(id)))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "ADD_CONNECTION", AddConnection.String())
	assert.Equal(t, "DELETE_OPERATOR", DeleteOperator.String())
	assert.Equal(t, "UNKNOWN", Kind(99).String())
}
