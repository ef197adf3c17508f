package pencils

import "github.com/pkg/errors"

//go:generate go tool enumer -type=ExchangeMethod,PermuteDims,BufferStrategy -output=gen_options_enumer.go options.go

// ExchangeMethod selects how the non-self blocks of a transposition travel
// over the sub-communicator.
type ExchangeMethod int

const (
	// ExchangePairwise runs P-1 phases of paired send/receive exchanges.
	// This is the default.
	ExchangePairwise ExchangeMethod = iota

	// ExchangeAlltoallv issues a single all-to-all collective with counts
	// and displacements into the scratch buffers.
	ExchangeAlltoallv
)

// PermuteDims selects whether the pack step may lay blocks out in the
// destination's memory order.
type PermuteDims int

const (
	// PermuteAuto packs each block in the destination's memory order so the
	// receiver unpacks with a contiguous inner loop. This is the default.
	PermuteAuto PermuteDims = iota

	// PermuteNever packs in the source's memory order; the receiver's
	// unpack performs the full permutation.
	PermuteNever
)

// BufferStrategy selects where the transposition scratch buffers come from.
type BufferStrategy int

const (
	// BufferReusePencil reuses the buffers owned by the source (send side)
	// and destination (receive side) pencils, growing them as needed. This
	// is the default.
	BufferReusePencil BufferStrategy = iota

	// BufferPerCall allocates fresh buffers for each transposition.
	BufferPerCall
)

// TransposeOptions configures a transposition. The zero value selects the
// defaults: pairwise exchange, automatic dimension permutation, and reuse
// of the pencils' scratch buffers.
type TransposeOptions struct {
	Method  ExchangeMethod
	Permute PermuteDims
	Buffers BufferStrategy
}

// mergeTransposeOptions resolves the variadic optional config into one
// value, erroring out if more than one was given.
func mergeTransposeOptions(options []*TransposeOptions) (TransposeOptions, error) {
	if len(options) > 1 {
		return TransposeOptions{}, errors.Errorf("only one TransposeOptions can be provided, got %d", len(options))
	}
	if len(options) == 1 && options[0] != nil {
		return *options[0], nil
	}
	return TransposeOptions{}, nil
}
