package pencils

import (
	"fmt"
	"reflect"
	"slices"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/pencils/comm"
	"github.com/gomlx/pencils/internal/utils"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats/scalar"
)

// Array is the local block of a distributed dense array, allocated on a
// Pencil. The user indexes it in logical order; underneath, the block is
// stored in the pencil's memory order, with E extra trailing "component"
// dimensions that are neither distributed nor permuted.
//
// Logical indices are local to the block (0-based from the start of this
// rank's ranges); global positions come from the pencil's LocalRange.
type Array[T any] struct {
	pencil *Pencil
	block  Block[T]

	// extraDims are the trailing component dimensions.
	extraDims []int

	// logicalDims is the local spatial shape in logical order.
	logicalDims []int

	// memDims is the stored shape: spatial dims in memory order, then the
	// extra dims. memStrides are its dense row-major strides.
	memDims    []int
	memStrides []int

	// spaceStrides[a] is the memory stride of logical axis a.
	spaceStrides []int

	dtype dtypes.DType
}

func newArrayShape[T any](p *Pencil, extraDims []int) (*Array[T], error) {
	for i, d := range extraDims {
		if d < 1 {
			return nil, errors.Errorf("pencils: extra dimension %d has invalid size %d", i, d)
		}
	}
	a := &Array[T]{
		pencil:      p,
		extraDims:   slices.Clone(extraDims),
		logicalDims: p.LocalSizeLogical(),
	}
	a.memDims = append(p.LocalSizeMemory(), a.extraDims...)
	a.memStrides = utils.Strides(a.memDims)
	a.spaceStrides = make([]int, len(a.logicalDims))
	for pos, axis := range p.memAxes() {
		a.spaceStrides[axis] = a.memStrides[pos]
	}
	var t T
	a.dtype = dtypes.FromGoType(reflect.TypeOf(t))
	return a, nil
}

// NewArray allocates an array on the pencil, with the given extra trailing
// component dimensions, in the pencil's container family. The contents
// start zeroed.
func NewArray[T any](p *Pencil, extraDims ...int) (*Array[T], error) {
	a, err := newArrayShape[T](p, extraDims)
	if err != nil {
		return nil, err
	}
	a.block = AllocBlock[T](p.Storage(), utils.Prod(a.memDims))
	return a, nil
}

// Wrap presents an existing block as an array on the pencil. It fails with
// ErrContainerMismatch if the block's container family differs from the
// pencil's storage kind, and ErrDimensionMismatch if the block doesn't hold
// exactly the local memory shape plus the extra dimensions.
func Wrap[T any](p *Pencil, block Block[T], extraDims ...int) (*Array[T], error) {
	if block.Kind() != p.Storage() {
		return nil, errors.Wrapf(ErrContainerMismatch, "block is %s, pencil storage is %s",
			block.Kind(), p.Storage())
	}
	a, err := newArrayShape[T](p, extraDims)
	if err != nil {
		return nil, err
	}
	if block.Len() != utils.Prod(a.memDims) {
		return nil, errors.Wrapf(ErrDimensionMismatch, "block holds %d elements, local shape %v holds %d",
			block.Len(), a.memDims, utils.Prod(a.memDims))
	}
	a.block = block
	return a, nil
}

// Pencil returns the decomposition the array lives on.
func (a *Array[T]) Pencil() *Pencil { return a.pencil }

// Parent returns the raw backing slice in memory order. Linear indexing of
// the parent matches iteration of the stored block in its native order.
func (a *Array[T]) Parent() []T { return a.block.Data() }

// Block returns the backing block with its container family tag.
func (a *Array[T]) Block() Block[T] { return a.block }

// DType returns the element type tag.
func (a *Array[T]) DType() dtypes.DType { return a.dtype }

// Shape returns the local shape in logical order, extra dimensions last.
func (a *Array[T]) Shape() []int {
	return append(slices.Clone(a.logicalDims), a.extraDims...)
}

// SpaceDims returns the local spatial shape in logical order.
func (a *Array[T]) SpaceDims() []int { return slices.Clone(a.logicalDims) }

// ExtraDims returns the trailing component dimensions.
func (a *Array[T]) ExtraDims() []int { return slices.Clone(a.extraDims) }

// MemoryShape returns the stored shape: spatial dimensions in memory order,
// then the extra dimensions.
func (a *Array[T]) MemoryShape() []int { return slices.Clone(a.memDims) }

// Len returns the total number of elements of the local block.
func (a *Array[T]) Len() int { return a.block.Len() }

// offset translates a logical index tuple (spatial axes first, then extra)
// into a flat offset of the parent block. It panics on arity or bounds
// violations, like slice indexing.
func (a *Array[T]) offset(indices []int) int {
	n := len(a.logicalDims)
	if len(indices) != n+len(a.extraDims) {
		panic(fmt.Sprintf("pencils: array indexed with %d indices, needs %d spatial + %d extra",
			len(indices), n, len(a.extraDims)))
	}
	off := 0
	for axis, idx := range indices[:n] {
		if idx < 0 || idx >= a.logicalDims[axis] {
			panic(fmt.Sprintf("pencils: index %d out of range [0, %d) along logical axis %d",
				idx, a.logicalDims[axis], axis))
		}
		off += idx * a.spaceStrides[axis]
	}
	for i, idx := range indices[n:] {
		if idx < 0 || idx >= a.extraDims[i] {
			panic(fmt.Sprintf("pencils: index %d out of range [0, %d) along extra dimension %d",
				idx, a.extraDims[i], i))
		}
		off += idx * a.memStrides[n+i]
	}
	return off
}

// At returns the element at the given logical index (spatial axes in
// logical order, then extra dimensions). It panics on out-of-range indices.
func (a *Array[T]) At(indices ...int) T {
	return a.block.data[a.offset(indices)]
}

// Set stores v at the given logical index. It panics on out-of-range
// indices.
func (a *Array[T]) Set(v T, indices ...int) {
	a.block.data[a.offset(indices)] = v
}

// Fill sets every element of the local block to v.
func (a *Array[T]) Fill(v T) {
	data := a.block.data
	for i := range data {
		data[i] = v
	}
}

// Similar allocates a fresh array on the same pencil with the same extra
// dimensions.
func (a *Array[T]) Similar() *Array[T] {
	out, err := NewArray[T](a.pencil, a.extraDims...)
	if err != nil {
		// The shape was validated when a was built.
		panic(err)
	}
	return out
}

// SimilarBlock allocates a plain block of arbitrary shape in the same
// container family. The result is not an Array: it carries no pencil.
func (a *Array[T]) SimilarBlock(dims ...int) Block[T] {
	return AllocBlock[T](a.block.Kind(), utils.Prod(dims))
}

// SimilarOn allocates a fresh array with the same extra dimensions on a
// different pencil.
func (a *Array[T]) SimilarOn(p *Pencil) (*Array[T], error) {
	return NewArray[T](p, a.extraDims...)
}

// CopyFrom copies the contents of src, which must live on the same pencil
// with the same extra dimensions. Moving data between different pencils is
// a transposition, not a copy.
func (a *Array[T]) CopyFrom(src *Array[T]) error {
	if !a.pencil.Equal(src.pencil) || !slices.Equal(a.extraDims, src.extraDims) {
		return errors.Errorf("pencils: CopyFrom needs arrays on the same pencil, got %s and %s",
			a.pencil, src.pencil)
	}
	copy(a.block.data, src.block.data)
	return nil
}

// globalIter iterates the local block: fn receives the global logical
// position, the extra-dimension index, and the flat parent offset.
func (a *Array[T]) globalIter(fn func(global, extra []int, off int)) {
	n := len(a.logicalDims)
	global := make([]int, n)
	extra := make([]int, len(a.extraDims))
	local := make([]int, n)
	var spatial func(axis int)
	var components func(i, off int)
	components = func(i, off int) {
		if i == len(a.extraDims) {
			fn(global, extra, off)
			return
		}
		for k := 0; k < a.extraDims[i]; k++ {
			extra[i] = k
			components(i+1, off+k*a.memStrides[n+i])
		}
	}
	spatial = func(axis int) {
		if axis == n {
			off := 0
			for ax, idx := range local {
				off += idx * a.spaceStrides[ax]
			}
			components(0, off)
			return
		}
		lo := a.pencil.localRanges[axis].Lo
		for idx := 0; idx < a.logicalDims[axis]; idx++ {
			local[axis] = idx
			global[axis] = lo + idx
			spatial(axis + 1)
		}
	}
	if utils.Prod(a.logicalDims) == 0 {
		return
	}
	spatial(0)
}

// FillGlobal sets every element from a function of its global logical
// position and extra-dimension index. The slices passed to fn are reused
// between calls.
func (a *Array[T]) FillGlobal(fn func(global, extra []int) T) {
	a.globalIter(func(global, extra []int, off int) {
		a.block.data[off] = fn(global, extra)
	})
}

// ForEachGlobal calls fn for every element of the local block with its
// global logical position and extra-dimension index. The slices passed to
// fn are reused between calls.
func (a *Array[T]) ForEachGlobal(fn func(global, extra []int, v T)) {
	a.globalIter(func(global, extra []int, off int) {
		fn(global, extra, a.block.data[off])
	})
}

// MemoryLocalRanges returns this rank's global index ranges in memory
// order: the spatial ranges permuted to storage order, then the full extra
// dimensions. Together with MemoryGlobalShape and Parent, this is what an
// I/O layer needs to define hyperslabs without interpreting the
// permutation.
func (a *Array[T]) MemoryLocalRanges() []Range {
	axes := a.pencil.memAxes()
	out := make([]Range, 0, len(a.memDims))
	for _, axis := range axes {
		out = append(out, a.pencil.localRanges[axis])
	}
	for _, d := range a.extraDims {
		out = append(out, Range{Lo: 0, Hi: d})
	}
	return out
}

// MemoryGlobalShape returns the global dimensions in memory order, extra
// dimensions last.
func (a *Array[T]) MemoryGlobalShape() []int {
	out := applyPerm(a.pencil.perm, a.pencil.globalSize)
	return append(out, a.extraDims...)
}

// Comm returns the communicator of the pencil's topology.
func (a *Array[T]) Comm() *comm.Comm { return a.pencil.topo.Comm() }

// Equal reports whether two arrays hold the same local contents at every
// logical position. It is process-local, not collective: each rank compares
// only its own block, and ranks may disagree. Gather the arrays to compare
// globally.
func Equal[T comparable](a, b *Array[T]) bool {
	if !sameLocalShape(a, b) {
		return false
	}
	if a.pencil.perm.Equal(b.pencil.perm) {
		return slices.Equal(a.block.data, b.block.data)
	}
	equal := true
	a.globalIter(func(global, extra []int, off int) {
		if !equal {
			return
		}
		bOff := b.offset(localIndices(b, global, extra))
		if a.block.data[off] != b.block.data[bOff] {
			equal = false
		}
	})
	return equal
}

// ApproxEqual reports whether two float arrays agree elementwise within the
// given absolute-or-relative tolerance. Process-local, like Equal.
func ApproxEqual[T interface{ ~float32 | ~float64 }](a, b *Array[T], tol float64) bool {
	if !sameLocalShape(a, b) {
		return false
	}
	equal := true
	a.globalIter(func(global, extra []int, off int) {
		if !equal {
			return
		}
		bOff := off
		if !a.pencil.perm.Equal(b.pencil.perm) {
			bOff = b.offset(localIndices(b, global, extra))
		}
		if !scalar.EqualWithinAbsOrRel(float64(a.block.data[off]), float64(b.block.data[bOff]), tol, tol) {
			equal = false
		}
	})
	return equal
}

// sameLocalShape reports whether the two arrays hold the same block of the
// same global array: same topology, decomposition and extra dimensions.
// Permutations may differ.
func sameLocalShape[T any](a, b *Array[T]) bool {
	return a.pencil.topo == b.pencil.topo &&
		slices.Equal(a.pencil.globalSize, b.pencil.globalSize) &&
		slices.Equal(a.pencil.decompDims, b.pencil.decompDims) &&
		slices.Equal(a.extraDims, b.extraDims)
}

// localIndices translates a global position back to b-local indices.
func localIndices[T any](b *Array[T], global, extra []int) []int {
	indices := make([]int, 0, len(global)+len(extra))
	for axis, g := range global {
		indices = append(indices, g-b.pencil.localRanges[axis].Lo)
	}
	return append(indices, extra...)
}
