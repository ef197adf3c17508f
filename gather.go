package pencils

import (
	"github.com/gomlx/pencils/internal/utils"
	"github.com/pkg/errors"
)

// scatterTag keeps Scatter's point-to-point traffic away from the small
// per-phase tags the transposition engine uses.
const scatterTag = 1 << 20

// logicalLoops returns the loop geometry for visiting a's whole local block
// in logical order, extras trailing: dimensions, a's memory strides in that
// order, and the strides of a contiguous logical-order buffer of the block.
func logicalLoops[T any](a *Array[T]) (dims, memStrides, bufStrides []int) {
	n := len(a.logicalDims)
	dims = append(append(make([]int, 0, n+len(a.extraDims)), a.logicalDims...), a.extraDims...)
	memStrides = make([]int, 0, len(dims))
	memStrides = append(memStrides, a.spaceStrides...)
	memStrides = append(memStrides, a.memStrides[n:]...)
	return dims, memStrides, utils.Strides(dims)
}

// Gather assembles the full distributed array on root and returns it as a
// dense row-major block in logical order, extra dimensions last. Every
// other rank returns nil. Collective over the topology's communicator.
//
// The gathered layout is independent of the pencil's decomposition and
// permutation, which is what makes it the reference for redistribution
// invariance.
func Gather[T any](a *Array[T], root int) ([]T, error) {
	c := a.Comm()
	if root < 0 || root >= c.Size() {
		return nil, errors.Errorf("pencils: gather root %d out of communicator size %d", root, c.Size())
	}

	// Serialize the local block in logical order.
	dims, memStrides, bufStrides := logicalLoops(a)
	local := make([]T, utils.Prod(dims))
	if len(local) > 0 {
		copyStrided(local, a.block.data, dims, bufStrides, memStrides, 0, 0)
	}

	parts, err := c.Gatherv(root, BlockOf(StorageHost, local).Bytes())
	if err != nil {
		return nil, errors.WithMessage(err, "gathering distributed array")
	}
	if c.Rank() != root {
		return nil, nil
	}

	p := a.pencil
	globalDims := append(p.GlobalSize(), a.extraDims...)
	globalStrides := utils.Strides(globalDims)
	global := make([]T, utils.Prod(globalDims))
	for rank, part := range parts {
		block, err := bytesAsElems[T](part)
		if err != nil {
			return nil, err
		}
		coords := p.topo.CoordsOf(rank)
		dims, off := remoteLoops(p, coords, a.extraDims, globalStrides)
		if utils.Prod(dims) != len(block) {
			return nil, errors.Errorf("pencils: rank %d sent %d elements, its block holds %d",
				rank, len(block), utils.Prod(dims))
		}
		if len(block) == 0 {
			continue
		}
		copyStrided(global, block, dims, globalStrides, utils.Strides(dims), off, 0)
	}
	return global, nil
}

// Scatter distributes a dense row-major global block (logical order, extra
// dimensions last) from root into the array. On non-root ranks global is
// ignored. Collective over the topology's communicator.
func Scatter[T any](a *Array[T], root int, global []T) error {
	c := a.Comm()
	if root < 0 || root >= c.Size() {
		return errors.Errorf("pencils: scatter root %d out of communicator size %d", root, c.Size())
	}
	p := a.pencil

	dims, memStrides, bufStrides := logicalLoops(a)
	local := make([]T, utils.Prod(dims))

	if c.Rank() == root {
		globalDims := append(p.GlobalSize(), a.extraDims...)
		globalStrides := utils.Strides(globalDims)
		if len(global) != utils.Prod(globalDims) {
			return errors.Wrapf(ErrDimensionMismatch, "scatter source holds %d elements, global shape %v holds %d",
				len(global), globalDims, utils.Prod(globalDims))
		}
		for rank := 0; rank < c.Size(); rank++ {
			coords := p.topo.CoordsOf(rank)
			rdims, off := remoteLoops(p, coords, a.extraDims, globalStrides)
			block := local
			if rank != root {
				block = make([]T, utils.Prod(rdims))
			}
			if len(block) > 0 {
				copyStrided(block, global, rdims, utils.Strides(rdims), globalStrides, 0, off)
			}
			if rank != root {
				if err := c.Send(rank, scatterTag, BlockOf(StorageHost, block).Bytes()); err != nil {
					return errors.WithMessagef(err, "scattering to rank %d", rank)
				}
			}
		}
	} else {
		buf := BlockOf(StorageHost, local).Bytes()
		n, err := c.Recv(root, scatterTag, buf)
		if err != nil {
			return errors.WithMessage(err, "receiving scattered block")
		}
		if n != len(buf) {
			return errors.Errorf("pencils: scatter delivered %d bytes, local block needs %d", n, len(buf))
		}
	}

	if len(local) > 0 {
		copyStrided(a.block.data, local, dims, memStrides, bufStrides, 0, 0)
	}
	return nil
}

// remoteLoops returns the logical dimensions of the block owned by the
// process at coords (extras appended) and the offset of its first element
// in a dense global logical-order block with the given strides.
func remoteLoops(p *Pencil, coords []int, extraDims, globalStrides []int) (dims []int, off int) {
	n := p.NumDims()
	dims = make([]int, 0, n+len(extraDims))
	for a := 0; a < n; a++ {
		r := p.rangeAt(coords, a)
		dims = append(dims, r.Len())
		off += r.Lo * globalStrides[a]
	}
	return append(dims, extraDims...), off
}
