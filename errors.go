package pencils

import "github.com/pkg/errors"

var (
	// ErrIncompatibleTopology indicates the topology's dimensionality doesn't
	// match the number of decomposed axes, or the global shape doesn't leave
	// at least one non-decomposed axis.
	ErrIncompatibleTopology = errors.New("pencils: topology incompatible with decomposition")

	// ErrDuplicateDecompAxis indicates the same array axis is decomposed over
	// more than one grid axis.
	ErrDuplicateDecompAxis = errors.New("pencils: duplicated decomposed axis")

	// ErrAxisOutOfRange indicates an axis index outside the array's rank.
	ErrAxisOutOfRange = errors.New("pencils: axis out of range")

	// ErrContainerMismatch indicates a block whose container family doesn't
	// match the pencil's storage kind.
	ErrContainerMismatch = errors.New("pencils: block container family doesn't match pencil storage")

	// ErrDimensionMismatch indicates a block whose shape doesn't match the
	// pencil's local memory shape plus the extra dimensions.
	ErrDimensionMismatch = errors.New("pencils: block shape doesn't match pencil local shape")

	// ErrIncompatibleTransposition indicates source and destination arrays
	// that cannot be connected by a single transposition: different
	// topologies, global shapes or extra dimensions, or pencils differing in
	// more than one decomposed-axis position.
	ErrIncompatibleTransposition = errors.New("pencils: arrays are not compatible for transposition")
)
