package simulator

import (
	"encoding/json"

	"github.com/opnetlab/opnet/layer"
	"github.com/opnetlab/opnet/operator"
	"github.com/opnetlab/opnet/payload"
)

// The JSON shapes below intentionally use slices, not maps, for every
// ordered collection (layers, operators, routing slots) so Go's
// field/slice marshaling order — which matches insertion order —
// satisfies spec.md §6's determinism requirement without any extra
// sorting at render time; the ordering work already happened in
// layer.AllOperators / RoutingTable.Distances.

type networkView struct {
	Layers []layerView `json:"layers"`
}

type layerView struct {
	Kind          string        `json:"kind"`
	RangeFinal    bool          `json:"rangeFinal"`
	ReservedRange rangeView     `json:"reservedRange"`
	OperatorCount int           `json:"operatorCount"`
	Operators     []operatorView `json:"operators"`
}

type rangeView struct {
	Min uint32 `json:"min"`
	Max uint32 `json:"max"`
}

type operatorView struct {
	OpType     string        `json:"opType"`
	OperatorId uint32        `json:"operatorId"`
	Routing    []routingSlot `json:"routing"`
	Weight     *int32        `json:"weight,omitempty"`
	Threshold  *int32        `json:"threshold,omitempty"`
	Acc        *int32        `json:"acc,omitempty"`
	DataCount  *int32        `json:"dataCount,omitempty"`
}

type routingSlot struct {
	Distance uint16   `json:"distance"`
	Targets  []uint32 `json:"targets"`
}

func buildNetworkView(layers []layer.Layer) networkView {
	out := networkView{Layers: make([]layerView, 0, len(layers))}
	for _, l := range layers {
		ops := l.AllOperators()
		lv := layerView{
			Kind:          l.Kind().String(),
			RangeFinal:    l.RangeFinal(),
			ReservedRange: rangeView{Min: l.ReservedRange().Min(), Max: l.ReservedRange().Max()},
			OperatorCount: len(ops),
			Operators:     make([]operatorView, 0, len(ops)),
		}
		for _, op := range ops {
			lv.Operators = append(lv.Operators, buildOperatorView(op))
		}
		out.Layers = append(out.Layers, lv)
	}
	return out
}

func buildOperatorView(op operator.Operator) operatorView {
	rt := op.Routing()
	ov := operatorView{
		OpType:     op.Kind().String(),
		OperatorId: op.Id(),
		Routing:    make([]routingSlot, 0),
	}
	for _, d := range rt.Distances() {
		ov.Routing = append(ov.Routing, routingSlot{Distance: d, Targets: rt.Targets(d)})
	}
	switch v := op.(type) {
	case *operator.Add:
		ov.Weight = &v.Weight
		ov.Threshold = &v.Threshold
		ov.Acc = &v.Acc
	case *operator.Out:
		n := v.TextCount()
		ov.DataCount = &n
	}
	return ov
}

// NetworkJSON renders every layer per spec.md §6: layers ordered by
// reservedRange, operators by ID, routing slots by distance.
func (s *Simulator) NetworkJSON(pretty bool) (string, error) {
	s.mu.Lock()
	view := buildNetworkView(s.controller.Layers())
	s.mu.Unlock()
	return marshalView(view, pretty)
}

type payloadView struct {
	Message           int32  `json:"message"`
	CurrentOperatorId uint32 `json:"currentOperatorId"`
	DistanceTraveled  uint16 `json:"distanceTraveled"`
	Active            bool   `json:"active"`
}

func buildPayloadViews(payloads []*payload.Payload) []payloadView {
	out := make([]payloadView, 0, len(payloads))
	for _, p := range payloads {
		out = append(out, payloadView{
			Message:           p.Message,
			CurrentOperatorId: p.CurrentOperatorId,
			DistanceTraveled:  p.DistanceTraveled,
			Active:            p.Active,
		})
	}
	return out
}

// CurrentPayloadsJSON renders the executor's current-step buffer
// (spec.md §6's print-current-payloads).
func (s *Simulator) CurrentPayloadsJSON(pretty bool) (string, error) {
	s.mu.Lock()
	view := buildPayloadViews(s.executor.CurrentPayloads())
	s.mu.Unlock()
	return marshalView(view, pretty)
}

// NextPayloadsJSON renders the executor's next-step buffer (spec.md
// §6's print-next-payloads).
func (s *Simulator) NextPayloadsJSON(pretty bool) (string, error) {
	s.mu.Lock()
	view := buildPayloadViews(s.executor.NextPayloads())
	s.mu.Unlock()
	return marshalView(view, pretty)
}

func marshalView(v interface{}, pretty bool) (string, error) {
	var (
		b   []byte
		err error
	)
	if pretty {
		b, err = json.MarshalIndent(v, "", "  ")
	} else {
		b, err = json.Marshal(v)
	}
	if err != nil {
		return "", err
	}
	return string(b), nil
}
