package pencils

import (
	"encoding/binary"
	"fmt"
	"slices"
	"strings"

	"github.com/gomlx/pencils/comm"
	"github.com/gomlx/pencils/internal/utils"
	"github.com/gomlx/pencils/types/permutations"
	"github.com/pkg/errors"
)

// Range is a half-open interval [Lo, Hi) of indices along one axis.
type Range struct {
	Lo, Hi int
}

// Len returns the number of indices in the range.
func (r Range) Len() int { return r.Hi - r.Lo }

// Empty returns whether the range contains no indices.
func (r Range) Empty() bool { return r.Hi <= r.Lo }

// Intersect returns the intersection of two ranges. The result may be empty.
func (r Range) Intersect(o Range) Range {
	return Range{Lo: max(r.Lo, o.Lo), Hi: min(r.Hi, o.Hi)}
}

// String implements the fmt.Stringer interface.
func (r Range) String() string { return fmt.Sprintf("[%d, %d)", r.Lo, r.Hi) }

// partitionRange returns the i-th of P contiguous ranges tiling [0, L):
// range i is [i*L/P, (i+1)*L/P) with integer division, so range lengths
// differ by at most one (the longer ranges are not necessarily the first
// ones, e.g. L=10, P=3 gives 3, 3, 4). The split is deterministic and
// identical on every rank.
func partitionRange(L, P, i int) Range {
	return Range{Lo: i * L / P, Hi: (i + 1) * L / P}
}

// Pencil describes one decomposition of a global dense array over a
// Cartesian process grid: which array axes are split over which grid axes,
// plus the in-memory order of the axes of the local block.
//
// A Pencil is immutable after construction and may be shared by any number
// of arrays. Construction is collective over the topology's communicator:
// the parameters are broadcast from rank 0 and checked, so a rank holding
// different parameters fails on every rank.
//
// The pencil also owns the scratch byte buffers reused across
// transpositions; they are exclusively held while a transposition uses the
// pencil as source or destination, which is why concurrent transpositions
// sharing a pencil are forbidden.
type Pencil struct {
	topo    *comm.Cartesian
	storage StorageKind

	// globalSize is the logical shape of the full distributed array.
	globalSize []int

	// decompDims[g] is the logical axis split over grid axis g.
	decompDims []int

	// perm is the memory order of the local block: memory axis i holds
	// logical axis perm[i].
	perm permutations.Permutation

	// gridAxisOf[a] is the grid axis splitting logical axis a, or -1.
	gridAxisOf []int

	// localRanges[a] is this rank's range along logical axis a.
	localRanges []Range

	sendBuf, recvBuf []byte
}

// PencilOptions configures optional Pencil parameters.
type PencilOptions struct {
	// Permutation is the memory order of the local block. The zero value
	// (identity) lays the block out in logical order.
	Permutation permutations.Permutation
}

// NewPencil creates the decomposition descriptor for a global array of shape
// globalSize whose decompDims[g]-th axis is split over grid axis g of the
// topology. Collective: every rank of the topology's communicator must call
// it with the same parameters.
//
// Validation fails with ErrIncompatibleTopology, ErrAxisOutOfRange,
// ErrDuplicateDecompAxis, or the permutation errors, identically on every
// rank and before any communication.
func NewPencil(kind StorageKind, globalSize, decompDims []int, topo *comm.Cartesian,
	options ...*PencilOptions) (*Pencil, error) {
	if topo == nil {
		return nil, errors.Wrapf(ErrIncompatibleTopology, "topology is nil")
	}
	var opts PencilOptions
	if len(options) > 1 {
		return nil, errors.Errorf("only one PencilOptions can be provided, got %d", len(options))
	} else if len(options) == 1 && options[0] != nil {
		opts = *options[0]
	}

	n := len(globalSize)
	for a, size := range globalSize {
		if size < 1 {
			return nil, errors.Errorf("pencils: global size must be positive, got %d along axis %d", size, a)
		}
	}
	if len(decompDims) != topo.NumDims() {
		return nil, errors.Wrapf(ErrIncompatibleTopology,
			"%d decomposed axes over a %d-dimensional grid", len(decompDims), topo.NumDims())
	}
	if n < len(decompDims)+1 {
		return nil, errors.Wrapf(ErrIncompatibleTopology,
			"global rank %d must exceed the grid dimensionality %d", n, len(decompDims))
	}
	gridAxisOf := make([]int, n)
	for a := range gridAxisOf {
		gridAxisOf[a] = -1
	}
	for g, a := range decompDims {
		if a < 0 || a >= n {
			return nil, errors.Wrapf(ErrAxisOutOfRange,
				"decomposed axis %d out of the global rank %d", a, n)
		}
		if gridAxisOf[a] >= 0 {
			return nil, errors.Wrapf(ErrDuplicateDecompAxis,
				"axis %d is split over grid axes %d and %d", a, gridAxisOf[a], g)
		}
		gridAxisOf[a] = g
	}
	if !opts.Permutation.IsIdentity() && opts.Permutation.Rank() != n {
		return nil, errors.Wrapf(permutations.ErrArityMismatch,
			"memory permutation has rank %d, global shape has rank %d", opts.Permutation.Rank(), n)
	}

	p := &Pencil{
		topo:       topo,
		storage:    kind,
		globalSize: slices.Clone(globalSize),
		decompDims: slices.Clone(decompDims),
		perm:       opts.Permutation,
		gridAxisOf: gridAxisOf,
	}
	coords := topo.Coords()
	p.localRanges = make([]Range, n)
	for a := range p.localRanges {
		p.localRanges[a] = p.rangeAt(coords, a)
	}

	if err := p.checkAgreement(); err != nil {
		return nil, err
	}
	return p, nil
}

// checkAgreement broadcasts the pencil parameters from rank 0 and verifies
// every rank holds the same ones, making construction fail collectively.
func (p *Pencil) checkAgreement() error {
	desc := []byte(p.String())
	c := p.topo.Comm()

	header := make([]byte, 8)
	binary.LittleEndian.PutUint64(header, uint64(len(desc)))
	if err := c.Bcast(0, header); err != nil {
		return err
	}
	rootLen := int(binary.LittleEndian.Uint64(header))
	rootDesc := desc
	if c.Rank() != 0 {
		rootDesc = make([]byte, rootLen)
	}
	if err := c.Bcast(0, rootDesc); err != nil {
		return err
	}
	agree := byte(1)
	if string(rootDesc) != string(desc) {
		agree = 0
	}
	flags, err := c.Allgather([]byte{agree})
	if err != nil {
		return err
	}
	for rank, flag := range flags {
		if len(flag) != 1 || flag[0] != 1 {
			return errors.Errorf("pencils: rank %d disagrees on pencil parameters: rank 0 has %s, rank %d has %s",
				rank, rootDesc, c.Rank(), desc)
		}
	}
	return nil
}

// rangeAt returns the range a process at the given grid coordinate owns
// along logical axis a.
func (p *Pencil) rangeAt(coords []int, a int) Range {
	g := p.gridAxisOf[a]
	if g < 0 {
		return Range{Lo: 0, Hi: p.globalSize[a]}
	}
	return partitionRange(p.globalSize[a], p.topo.AxisSize(g), coords[g])
}

// GlobalSize returns a copy of the logical shape of the full array.
func (p *Pencil) GlobalSize() []int { return slices.Clone(p.globalSize) }

// NumDims returns the rank of the global array.
func (p *Pencil) NumDims() int { return len(p.globalSize) }

// DecompDims returns a copy of the decomposed axes, one per grid axis.
func (p *Pencil) DecompDims() []int { return slices.Clone(p.decompDims) }

// Permutation returns the memory order of the local block.
func (p *Pencil) Permutation() permutations.Permutation { return p.perm }

// Topology returns the process grid the pencil is decomposed over.
func (p *Pencil) Topology() *comm.Cartesian { return p.topo }

// Storage returns the container family of blocks allocated on this pencil.
func (p *Pencil) Storage() StorageKind { return p.storage }

// GridAxisOf returns the grid axis splitting logical axis a, or -1 if a is
// not decomposed.
func (p *Pencil) GridAxisOf(a int) int { return p.gridAxisOf[a] }

// LocalRange returns this rank's range along logical axis a.
func (p *Pencil) LocalRange(a int) (Range, error) {
	if a < 0 || a >= len(p.globalSize) {
		return Range{}, errors.Wrapf(ErrAxisOutOfRange, "axis %d of a rank-%d array", a, len(p.globalSize))
	}
	return p.localRanges[a], nil
}

// RemoteRange returns the range along logical axis a owned by the process at
// the given grid coordinate.
func (p *Pencil) RemoteRange(coords []int, a int) (Range, error) {
	if a < 0 || a >= len(p.globalSize) {
		return Range{}, errors.Wrapf(ErrAxisOutOfRange, "axis %d of a rank-%d array", a, len(p.globalSize))
	}
	if len(coords) != p.topo.NumDims() {
		return Range{}, errors.Errorf("pencils: coordinate %v doesn't match grid dimensionality %d",
			coords, p.topo.NumDims())
	}
	return p.rangeAt(coords, a), nil
}

// LocalSizeLogical returns the shape of this rank's block in logical order.
func (p *Pencil) LocalSizeLogical() []int {
	sizes := make([]int, len(p.localRanges))
	for a, r := range p.localRanges {
		sizes[a] = r.Len()
	}
	return sizes
}

// LocalSizeMemory returns the shape of this rank's block in memory order,
// i.e. the permutation applied to the logical shape.
func (p *Pencil) LocalSizeMemory() []int {
	return applyPerm(p.perm, p.LocalSizeLogical())
}

// LocalLen returns the number of elements in this rank's block, excluding
// extra dimensions.
func (p *Pencil) LocalLen() int { return utils.Prod(p.LocalSizeLogical()) }

// memAxes returns, for each memory position, the logical axis stored there.
func (p *Pencil) memAxes() []int {
	if indices := p.perm.Indices(); indices != nil {
		return indices
	}
	axes := make([]int, len(p.globalSize))
	for a := range axes {
		axes[a] = a
	}
	return axes
}

// sendBuffer returns the pencil-owned send scratch of at least n bytes.
func (p *Pencil) sendBuffer(n int) []byte {
	if cap(p.sendBuf) < n {
		p.sendBuf = allocBytes(n)
	}
	return p.sendBuf[:n]
}

// recvBuffer returns the pencil-owned receive scratch of at least n bytes.
func (p *Pencil) recvBuffer(n int) []byte {
	if cap(p.recvBuf) < n {
		p.recvBuf = allocBytes(n)
	}
	return p.recvBuf[:n]
}

// Equal returns whether two pencils describe the same decomposition: same
// topology object, storage, global shape, decomposed axes and permutation.
func (p *Pencil) Equal(o *Pencil) bool {
	return p.topo == o.topo &&
		p.storage == o.storage &&
		slices.Equal(p.globalSize, o.globalSize) &&
		slices.Equal(p.decompDims, o.decompDims) &&
		p.perm.Equal(o.perm)
}

// CongruentTo returns whether two pencils hold the same global array over
// the same topology, in any decomposition, permutation or storage.
func (p *Pencil) CongruentTo(o *Pencil) bool {
	return p.topo == o.topo && slices.Equal(p.globalSize, o.globalSize)
}

// String implements the fmt.Stringer interface. The rendering is also the
// fingerprint broadcast to check inter-rank agreement.
func (p *Pencil) String() string {
	var sb strings.Builder
	_, _ = fmt.Fprintf(&sb, "Pencil(global=%v, decomp=%v, perm=%s, storage=%s)",
		p.globalSize, p.decompDims, p.perm, p.storage)
	return sb.String()
}

// applyPerm applies a validated permutation; arity errors cannot happen for
// tuples produced alongside the permutation itself.
func applyPerm(perm permutations.Permutation, t []int) []int {
	out, err := perm.Apply(t)
	if err != nil {
		panic(err)
	}
	return out
}

// PencilBuilder derives a new pencil from an existing one, reusing its
// topology and, unless overridden, its parameters.
//
//	yPencil, err := xPencil.Derive().
//		WithDecompDims(0, 2).
//		WithPermutation(perm).
//		Build()
type PencilBuilder struct {
	base       *Pencil
	storage    StorageKind
	decompDims []int
	perm       permutations.Permutation
}

// Derive starts building a pencil that shares this pencil's topology and
// global shape.
func (p *Pencil) Derive() *PencilBuilder {
	return &PencilBuilder{
		base:       p,
		storage:    p.storage,
		decompDims: p.decompDims,
		perm:       p.perm,
	}
}

// WithDecompDims overrides the decomposed axes.
func (b *PencilBuilder) WithDecompDims(dims ...int) *PencilBuilder {
	b.decompDims = dims
	return b
}

// WithPermutation overrides the memory permutation.
func (b *PencilBuilder) WithPermutation(perm permutations.Permutation) *PencilBuilder {
	b.perm = perm
	return b
}

// WithStorage overrides the storage kind.
func (b *PencilBuilder) WithStorage(kind StorageKind) *PencilBuilder {
	b.storage = kind
	return b
}

// Build creates the derived pencil. Collective, like NewPencil.
func (b *PencilBuilder) Build() (*Pencil, error) {
	return NewPencil(b.storage, b.base.globalSize, b.decompDims, b.base.topo,
		&PencilOptions{Permutation: b.perm})
}
