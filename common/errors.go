package common

import "errors"

// Error kinds the core distinguishes (spec.md §7). Callers wrap these
// with fmt.Errorf("...: %w", ErrX) to attach context; errors.Is still
// matches the sentinel.
var (
	// ErrTruncated is returned when a serialization read runs out of
	// bytes before a primitive's fixed width is satisfied.
	ErrTruncated = errors.New("truncated input")

	// ErrCorrupt is returned when a serialization read finds a tag or
	// length field inconsistent with the remaining bytes.
	ErrCorrupt = errors.New("corrupt input")

	// ErrInvalidRange is returned by IdRange construction/mutation when
	// min > max, or when SetMax would shrink the range.
	ErrInvalidRange = errors.New("invalid id range")

	// ErrInvalidId is returned when an operator ID falls outside its
	// layer's reserved range.
	ErrInvalidId = errors.New("invalid operator id")

	// ErrDuplicate is returned when an operator ID already exists in a
	// layer.
	ErrDuplicate = errors.New("duplicate operator id")

	// ErrLayerFull is returned when a rangeFinal layer cannot allocate
	// another ID.
	ErrLayerFull = errors.New("layer is full")

	// ErrIdOverflow is returned when ID generation would exceed
	// math.MaxUint32.
	ErrIdOverflow = errors.New("operator id space exhausted")

	// ErrInvalidTopology is returned when system-wide layer invariants
	// (exactly one dynamic layer, last after sorting, no overlaps) are
	// violated.
	ErrInvalidTopology = errors.New("invalid topology")

	// ErrInvalidArgument is returned for malformed caller input (e.g. a
	// negative step count).
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInvalidState is returned when an operation is not allowed in
	// the simulator's current state (e.g. run called while running).
	ErrInvalidState = errors.New("invalid state")

	// ErrNotFound is returned when a lookup (operator, layer) misses.
	ErrNotFound = errors.New("not found")
)
