// Package controller implements the TopController (spec.md §4.5): the
// owner of every layer, the router from operator ID to containing
// layer, and the point where system-wide topology invariants are
// enforced and the full configuration is persisted.
package controller

import (
	"fmt"
	"sort"

	"github.com/opnetlab/opnet/bus"
	"github.com/opnetlab/opnet/common"
	"github.com/opnetlab/opnet/internal/log"
	"github.com/opnetlab/opnet/layer"
	"github.com/opnetlab/opnet/operator"
	"github.com/opnetlab/opnet/payload"
	"github.com/opnetlab/opnet/rng"
	"github.com/opnetlab/opnet/serialize"
	"github.com/opnetlab/opnet/update"
)

// TopController owns an ordered list of layers and is the single
// routing point from operator ID to layer (spec.md §4.5).
type TopController struct {
	layers []layer.Layer
	idx    *operatorIndex
}

// New returns an empty controller.
func New() *TopController {
	return &TopController{idx: newOperatorIndex(16)}
}

// Layers returns the controller's layers in their current (sorted,
// validated) order.
func (c *TopController) Layers() []layer.Layer { return c.layers }

// RandomizeNetwork implements spec.md §4.5's randomizeNetwork: a fresh
// INPUT layer over [0,2], OUTPUT over [3,5], and an INTERNAL layer
// over [6,6+numInternal-1] (empty-but-valid if numInternal==0). The
// connection range for RandomInit spans [3, 6+numInternal-1] so INPUT
// and INTERNAL operators may target INTERNAL or OUTPUT channels.
func (c *TopController) RandomizeNetwork(numInternal int, r *rng.Randomizer, disp bus.Dispatcher) error {
	if numInternal < 0 {
		return common.ErrInvalidArgument
	}
	c.layers = nil

	inputRange, err := common.NewIdRange(0, 2)
	if err != nil {
		return err
	}
	outputRange, err := common.NewIdRange(3, 5)
	if err != nil {
		return err
	}
	internalMax := uint32(5 + numInternal)
	if numInternal == 0 {
		internalMax = 6 // empty but valid [6,6] range (spec.md:243)
	}
	internalRange, err := common.NewIdRange(6, internalMax)
	if err != nil {
		return err
	}

	inputLayer, err := layer.NewInputLayer(inputRange)
	if err != nil {
		return err
	}
	outputLayer, err := layer.NewOutputLayer(outputRange)
	if err != nil {
		return err
	}
	internalLayer := layer.NewInternalLayer(internalRange, false)

	connRange := [2]uint32{3, internalMax}
	inputLayer.RandomInit(connRange, r)
	if numInternal > 0 {
		if err := internalLayer.RandomInit(numInternal, connRange, r, disp); err != nil {
			return err
		}
	}

	c.layers = []layer.Layer{inputLayer, outputLayer, internalLayer}
	if err := c.validate(); err != nil {
		c.layers = nil
		return err
	}
	c.rebuildIndex()
	return nil
}

// LoadConfiguration implements spec.md §4.5's loadConfiguration: reads
// layer blocks sequentially until the input is exhausted, sorts, and
// validates. Any failure resets the controller to empty.
func (c *TopController) LoadConfiguration(data []byte) error {
	r := serialize.NewReader(data)
	var loaded []layer.Layer
	for !r.AtEnd() {
		l, err := layer.DeserializeLayer(r)
		if err != nil {
			c.layers = nil
			return fmt.Errorf("load configuration: %w", err)
		}
		loaded = append(loaded, l)
	}
	c.layers = loaded
	if err := c.validate(); err != nil {
		c.layers = nil
		return err
	}
	c.rebuildIndex()
	return nil
}

// SaveConfiguration concatenates each layer's serialized block in the
// controller's current (sorted) order (spec.md §4.5).
func (c *TopController) SaveConfiguration() []byte {
	var out []byte
	for _, l := range c.layers {
		out = append(out, l.Serialize()...)
	}
	return out
}

// validate enforces spec.md §4.5.1: sort by reservedRange; require
// exactly one non-final layer and require it last; require no overlaps
// between adjacent ranges.
func (c *TopController) validate() error {
	sort.Slice(c.layers, func(i, j int) bool {
		return c.layers[i].ReservedRange().Less(c.layers[j].ReservedRange())
	})

	nonFinalCount := 0
	nonFinalIdx := -1
	for i, l := range c.layers {
		if !l.RangeFinal() {
			nonFinalCount++
			nonFinalIdx = i
		}
	}
	if nonFinalCount != 1 {
		return fmt.Errorf("%w: expected exactly one dynamic layer, found %d", common.ErrInvalidTopology, nonFinalCount)
	}
	if nonFinalIdx != len(c.layers)-1 {
		return fmt.Errorf("%w: dynamic layer must have the greatest reserved range", common.ErrInvalidTopology)
	}
	for i := 0; i+1 < len(c.layers); i++ {
		if c.layers[i].ReservedRange().Overlaps(c.layers[i+1].ReservedRange()) {
			return fmt.Errorf("%w: overlapping reserved ranges %s and %s",
				common.ErrInvalidTopology, c.layers[i].ReservedRange(), c.layers[i+1].ReservedRange())
		}
	}
	return nil
}

func (c *TopController) rebuildIndex() {
	idx := newOperatorIndex(uint64(len(c.layers) * 8))
	for _, l := range c.layers {
		for _, op := range l.AllOperators() {
			idx.add(op.Id())
		}
	}
	c.idx = idx
}

// FindLayerForOperator returns the unique layer whose reservedRange
// contains id, if any.
func (c *TopController) FindLayerForOperator(id uint32) (layer.Layer, bool) {
	for _, l := range c.layers {
		if l.ReservedRange().Contains(id) {
			return l, true
		}
	}
	return nil, false
}

// GetOperatorPtr returns the operator with the given ID, if it exists
// in any layer.
func (c *TopController) GetOperatorPtr(id uint32) (operator.Operator, bool) {
	if !c.idx.mayContain(id) {
		return nil, false
	}
	l, ok := c.FindLayerForOperator(id)
	if !ok {
		return nil, false
	}
	return l.GetOperator(id)
}

// MessageOp delivers v to the operator named by id, if it exists.
func (c *TopController) MessageOp(id uint32, v int32) bool {
	if !c.idx.mayContain(id) {
		return false
	}
	l, ok := c.FindLayerForOperator(id)
	if !ok {
		return false
	}
	return l.MessageOperator(id, v)
}

// ProcessOpData runs processData on the operator named by id.
func (c *TopController) ProcessOpData(id uint32, disp bus.Dispatcher) bool {
	l, ok := c.FindLayerForOperator(id)
	if !ok {
		return false
	}
	return l.ProcessOperatorData(id, disp)
}

// TraversePayload routes p to the layer owning p.CurrentOperatorId.
func (c *TopController) TraversePayload(disp bus.Dispatcher, p *payload.Payload) bool {
	l, ok := c.FindLayerForOperator(p.CurrentOperatorId)
	if !ok {
		return false
	}
	return l.TraverseOperatorPayload(disp, p)
}

// InputText locates the INPUT layer and forwards s to its text
// channel.
func (c *TopController) InputText(disp bus.Dispatcher, s string) bool {
	for _, l := range c.layers {
		if in, ok := l.(*layer.InputLayer); ok {
			in.InputText(disp, s)
			return true
		}
	}
	return false
}

func (c *TopController) outputLayer() *layer.OutputLayer {
	for _, l := range c.layers {
		if out, ok := l.(*layer.OutputLayer); ok {
			return out
		}
	}
	return nil
}

// GetOutput drains the OUTPUT layer's text channel.
func (c *TopController) GetOutput() string {
	if out := c.outputLayer(); out != nil {
		return out.TextOutput()
	}
	return ""
}

// GetTextCount reports the OUTPUT layer's pending text-channel count.
func (c *TopController) GetTextCount() int32 {
	if out := c.outputLayer(); out != nil {
		return out.TextCount()
	}
	return 0
}

// ClearTextOutput clears the OUTPUT layer's text channel.
func (c *TopController) ClearTextOutput() {
	if out := c.outputLayer(); out != nil {
		out.ClearTextOutput()
	}
}

// SetTextBatchSize adjusts the OUTPUT layer's text-channel batch size.
func (c *TopController) SetTextBatchSize(n int) {
	if out := c.outputLayer(); out != nil {
		out.SetTextBatchSize(n)
	}
}

// OperatorCount sums operators across all layers.
func (c *TopController) OperatorCount() int {
	n := 0
	for _, l := range c.layers {
		n += len(l.AllOperators())
	}
	return n
}

// LayerCount reports the number of layers.
func (c *TopController) LayerCount() int { return len(c.layers) }

// --- update.Handler implementation (spec.md §4.7) ---
//
// Every handler below is best-effort: an event targeting a
// non-existent operator, or a dynamic-layer-only event arriving when
// there is no dynamic layer (should not happen given validate(), but
// defensive anyway), is silently dropped, never surfaced as an error
// (spec.md §4.7, §7).

func (c *TopController) dynamicLayer() layer.Layer {
	for _, l := range c.layers {
		if !l.RangeFinal() {
			return l
		}
	}
	return nil
}

func (c *TopController) HandleCreateOperator(params []int32) {
	d := c.dynamicLayer()
	if d == nil {
		return
	}
	d.CreateOperator(params)
	c.rebuildIndex()
}

func (c *TopController) HandleDeleteOperator(targetId uint32) {
	l, ok := c.FindLayerForOperator(targetId)
	if !ok {
		return
	}
	if l.DeleteOperator(targetId) {
		c.rebuildIndex()
	}
}

func (c *TopController) HandleAddConnection(targetId uint32, params []int32) {
	l, ok := c.FindLayerForOperator(targetId)
	if !ok {
		return
	}
	if !l.AddOperatorConnection(targetId, params) {
		log.Debug("update event dropped: add connection", "target", targetId)
	}
}

func (c *TopController) HandleRemoveConnection(targetId uint32, params []int32) {
	l, ok := c.FindLayerForOperator(targetId)
	if !ok {
		return
	}
	if !l.RemoveOperatorConnection(targetId, params) {
		log.Debug("update event dropped: remove connection", "target", targetId)
	}
}

func (c *TopController) HandleMoveConnection(targetId uint32, params []int32) {
	l, ok := c.FindLayerForOperator(targetId)
	if !ok {
		return
	}
	if !l.MoveOperatorConnection(targetId, params) {
		log.Debug("update event dropped: move connection", "target", targetId)
	}
}

func (c *TopController) HandleChangeParams(targetId uint32, params []int32) {
	l, ok := c.FindLayerForOperator(targetId)
	if !ok {
		return
	}
	if !l.ChangeOperatorParam(targetId, params) {
		log.Debug("update event dropped: change params", "target", targetId)
	}
}

var _ update.Handler = (*TopController)(nil)
