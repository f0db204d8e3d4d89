// Package payload defines the in-flight message record that travels
// across an operator's routing table one distance unit per step
// (spec.md §3, "Payload").
package payload

// Payload is a mutable in-flight message. CurrentOperatorId identifies
// the operator whose routing table is being walked; it never changes
// as the payload travels — only DistanceTraveled advances.
type Payload struct {
	Message           int32
	CurrentOperatorId uint32
	DistanceTraveled  uint16
	Active            bool
}

// New constructs an active payload at distance 0, as emitted by an
// operator's process phase.
func New(message int32, originId uint32) *Payload {
	return &Payload{
		Message:           message,
		CurrentOperatorId: originId,
		DistanceTraveled:  0,
		Active:            true,
	}
}

// Clone returns a deep copy (Payload has no pointer fields, so this is
// a value copy, but the helper keeps call sites explicit about intent
// when payloads move between executor buffers).
func (p *Payload) Clone() *Payload {
	cp := *p
	return &cp
}
