// Package bus implements the scheduling-bus indirection of spec.md
// §4.9: the mechanism that lets an operator enqueue message deliveries
// and payload schedules without holding a reference to the
// StepExecutor, and submit structural mutations without holding a
// reference to the UpdateQueue.
//
// spec.md §9's Design Notes call out that the C++ original used
// process-wide singletons (Scheduler::get(), UpdateScheduler::get())
// holding raw pointers, and asks for an explicit, non-global
// replacement. Bus is that replacement: it is constructed once by the
// simulator façade and threaded into every operator/layer call as a
// plain argument, never reached through a package-level variable.
package bus

import (
	"github.com/opnetlab/opnet/internal/log"
	"github.com/opnetlab/opnet/payload"
	"github.com/opnetlab/opnet/update"
)

// MessageSink realizes a message delivery within the current step,
// flagging the destination operator for processing next step.
// Implemented by executor.StepExecutor via controller.TopController.
type MessageSink interface {
	DeliverAndFlag(targetId uint32, message int32) bool
}

// PayloadSink schedules a newly emitted payload for the next step.
// Implemented by executor.StepExecutor.
type PayloadSink interface {
	ScheduleNext(p *payload.Payload)
}

// UpdateSink accepts a structural mutation event. Implemented by
// update.Queue.
type UpdateSink interface {
	Submit(e update.Event)
}

// Dispatcher is the capability set an Operator or Layer needs during
// traverse/processData/randomInit. *Bus implements it.
type Dispatcher interface {
	ScheduleMessage(targetId uint32, message int32)
	SchedulePayloadForNextStep(p *payload.Payload)
	SubmitUpdate(e update.Event)
}

// Bus is the concrete, non-owning indirection. It holds references to
// the executor and update queue for the lifetime of one simulator
// instance; Unbind clears them at shutdown so no dangling pointers
// outlive the simulator (spec.md §5 Ownership: "no cycles").
type Bus struct {
	messages MessageSink
	payloads PayloadSink
	updates  UpdateSink
}

// New returns an unbound Bus. Bind it before driving any step.
func New() *Bus {
	return &Bus{}
}

// Bind attaches the executor and update-queue implementations. Called
// once at simulator construction.
func (b *Bus) Bind(messages MessageSink, payloads PayloadSink, updates UpdateSink) {
	b.messages = messages
	b.payloads = payloads
	b.updates = updates
}

// Unbind clears all references, called at simulator shutdown.
func (b *Bus) Unbind() {
	b.messages = nil
	b.payloads = nil
	b.updates = nil
}

// Bound reports whether the bus has an executor and queue attached.
func (b *Bus) Bound() bool {
	return b.messages != nil && b.payloads != nil && b.updates != nil
}

func (b *Bus) ScheduleMessage(targetId uint32, message int32) {
	if b.messages == nil {
		log.Warn("scheduling bus not initialized, dropping message", "target", targetId)
		return
	}
	b.messages.DeliverAndFlag(targetId, message)
}

func (b *Bus) SchedulePayloadForNextStep(p *payload.Payload) {
	if b.payloads == nil {
		log.Warn("scheduling bus not initialized, dropping payload", "origin", p.CurrentOperatorId)
		return
	}
	b.payloads.ScheduleNext(p)
}

func (b *Bus) SubmitUpdate(e update.Event) {
	if b.updates == nil {
		log.Warn("scheduling bus not initialized, dropping update event", "kind", e.Kind.String())
		return
	}
	b.updates.Submit(e)
}
