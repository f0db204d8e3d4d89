// Package executor implements the two-phase discrete-time step driver
// (spec.md §4.8): traversal of in-flight payloads, then processing of
// operators flagged by message delivery during that traversal.
package executor

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru"

	"github.com/opnetlab/opnet/bus"
	"github.com/opnetlab/opnet/common"
	"github.com/opnetlab/opnet/internal/log"
	"github.com/opnetlab/opnet/payload"
	"github.com/opnetlab/opnet/serialize"
)

// routeController is the subset of controller.TopController the
// executor needs: enough to traverse payloads, deliver messages, and
// run processData, without importing the controller package (which
// would create a cycle once the simulator façade wires both together
// through bus.Dispatcher instead).
type routeController interface {
	TraversePayload(disp bus.Dispatcher, p *payload.Payload) bool
	MessageOp(id uint32, v int32) bool
	ProcessOpData(id uint32, disp bus.Dispatcher) bool
}

const danglingLogCacheSize = 256

// StepExecutor owns the current/next payload buffers and the set of
// operators flagged for processing, and drives the two-phase step of
// spec.md §4.8.
type StepExecutor struct {
	controller routeController
	disp       bus.Dispatcher

	current     []*payload.Payload
	next        []*payload.Payload
	toProcess   map[uint32]struct{}
	currentStep int64

	danglingLog *lru.Cache
}

// New builds an executor bound to controller and the dispatcher it
// should pass down into traverse/processData calls.
func New(controller routeController, disp bus.Dispatcher) *StepExecutor {
	cache, err := lru.New(danglingLogCacheSize)
	if err != nil {
		cache = nil
	}
	return &StepExecutor{
		controller:  controller,
		disp:        disp,
		toProcess:   make(map[uint32]struct{}),
		danglingLog: cache,
	}
}

// CurrentStep reports the executor's monotonic step counter.
func (e *StepExecutor) CurrentStep() int64 { return e.currentStep }

// PayloadCount reports the number of payloads across both buffers,
// used by the simulator façade's status snapshot and its "system is
// inactive" idle check.
func (e *StepExecutor) PayloadCount() int {
	return len(e.current) + len(e.next)
}

// PendingCount reports the number of operators flagged for processing
// at the next process phase. A message delivered via DeliverAndFlag
// (e.g. submit-text) flags its target here without creating any
// payload, so the idle check must consult this too.
func (e *StepExecutor) PendingCount() int {
	return len(e.toProcess)
}

// CurrentPayloads and NextPayloads expose read-only views for JSON
// rendering (spec.md §6's print-current-payloads/print-next-payloads).
func (e *StepExecutor) CurrentPayloads() []*payload.Payload { return e.current }
func (e *StepExecutor) NextPayloads() []*payload.Payload    { return e.next }

// Step runs one traversal-then-process pass (spec.md §4.8 step()).
func (e *StepExecutor) Step() {
	for _, p := range e.current {
		if !p.Active {
			continue
		}
		e.controller.TraversePayload(e.disp, p)
	}
	e.sweepCurrent()

	for id := range e.toProcess {
		e.controller.ProcessOpData(id, e.disp)
	}
	e.toProcess = make(map[uint32]struct{})
}

func (e *StepExecutor) sweepCurrent() {
	kept := e.current[:0]
	for _, p := range e.current {
		if p.Active {
			kept = append(kept, p)
		}
	}
	e.current = kept
}

// Advance appends next to current (payloads still in flight stay in
// current), clears next, and increments currentStep (spec.md §4.8
// advance()).
func (e *StepExecutor) Advance() {
	e.current = append(e.current, e.next...)
	e.next = nil
	e.currentStep++
}

// DeliverAndFlag implements bus.MessageSink: realize one message
// delivery within the current step, flagging the destination for
// processing at the next process phase. Failed deliveries (unknown
// target) are silently dropped, rate-limited via danglingLog so a
// storm of dangling deliveries doesn't flood the log (spec.md §4.3.1,
// §7: "failed deliveries ... are silently dropped").
func (e *StepExecutor) DeliverAndFlag(targetId uint32, message int32) bool {
	if !e.controller.MessageOp(targetId, message) {
		e.logDanglingOnce(targetId)
		return false
	}
	e.toProcess[targetId] = struct{}{}
	return true
}

func (e *StepExecutor) logDanglingOnce(targetId uint32) {
	if e.danglingLog == nil {
		log.Debug("message delivery dropped: no such operator", "target", targetId)
		return
	}
	if _, seen := e.danglingLog.Get(targetId); seen {
		return
	}
	e.danglingLog.Add(targetId, struct{}{})
	log.Warn("message delivery dropped: no such operator", "target", targetId)
}

// ScheduleNext implements bus.PayloadSink: append a newly emitted
// payload to the next-step buffer.
func (e *StepExecutor) ScheduleNext(p *payload.Payload) {
	e.next = append(e.next, p)
}

const payloadBlockBodySize = 12 // [u16 type][u32 operatorId][i32 message][u16 distance]

// SaveState serializes current, next, and toProcess per spec.md §4.8's
// format. Only active payloads are written.
func (e *StepExecutor) SaveState() []byte {
	activeCurrent := activeOnly(e.current)
	activeNext := activeOnly(e.next)

	w := serialize.NewWriter()
	w.WriteUint64(uint64(len(activeCurrent)))
	w.WriteUint64(uint64(len(activeNext)))
	w.WriteUint64(uint64(len(e.toProcess)))
	for _, p := range activeCurrent {
		writePayloadBlock(w, p)
	}
	for _, p := range activeNext {
		writePayloadBlock(w, p)
	}
	for id := range e.toProcess {
		w.WriteUint32(id)
	}
	return w.Bytes()
}

func activeOnly(list []*payload.Payload) []*payload.Payload {
	out := make([]*payload.Payload, 0, len(list))
	for _, p := range list {
		if p.Active {
			out = append(out, p)
		}
	}
	return out
}

func writePayloadBlock(w *serialize.Writer, p *payload.Payload) {
	w.WriteUint8(payloadBlockBodySize)
	w.WriteUint16(0x0000)
	w.WriteUint32(p.CurrentOperatorId)
	w.WriteInt32(p.Message)
	w.WriteUint16(p.DistanceTraveled)
}

// LoadState replaces the executor's buffers from data in spec.md
// §4.8's format. Loaded payloads are marked active; currentStep resets
// to 0. Failure leaves the executor unmodified.
func (e *StepExecutor) LoadState(data []byte) error {
	r := serialize.NewReader(data)
	currentCount, err := r.ReadUint64()
	if err != nil {
		return err
	}
	nextCount, err := r.ReadUint64()
	if err != nil {
		return err
	}
	toProcessCount, err := r.ReadUint64()
	if err != nil {
		return err
	}

	current, err := readPayloadBlocks(r, currentCount)
	if err != nil {
		return err
	}
	next, err := readPayloadBlocks(r, nextCount)
	if err != nil {
		return err
	}
	toProcess := make(map[uint32]struct{}, toProcessCount)
	for i := uint64(0); i < toProcessCount; i++ {
		id, err := r.ReadUint32()
		if err != nil {
			return err
		}
		toProcess[id] = struct{}{}
	}

	e.current = current
	e.next = next
	e.toProcess = toProcess
	e.currentStep = 0
	return nil
}

func readPayloadBlocks(r *serialize.Reader, count uint64) ([]*payload.Payload, error) {
	out := make([]*payload.Payload, 0, count)
	for i := uint64(0); i < count; i++ {
		n, err := r.ReadUint8()
		if err != nil {
			return nil, err
		}
		blockBytes, err := r.ReadBytes(int(n))
		if err != nil {
			return nil, err
		}
		p, err := decodePayloadBlock(blockBytes)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func decodePayloadBlock(block []byte) (*payload.Payload, error) {
	br := serialize.NewReader(block)
	payloadType, err := br.ReadUint16()
	if err != nil {
		return nil, err
	}
	if payloadType != 0x0000 {
		return nil, fmt.Errorf("%w: unknown payload block type %d", common.ErrCorrupt, payloadType)
	}
	operatorId, err := br.ReadUint32()
	if err != nil {
		return nil, err
	}
	message, err := br.ReadInt32()
	if err != nil {
		return nil, err
	}
	distance, err := br.ReadUint16()
	if err != nil {
		return nil, err
	}
	return &payload.Payload{
		Message:           message,
		CurrentOperatorId: operatorId,
		DistanceTraveled:  distance,
		Active:            true,
	}, nil
}

var (
	_ bus.MessageSink = (*StepExecutor)(nil)
	_ bus.PayloadSink = (*StepExecutor)(nil)
)
