package pencils

import (
	"slices"

	"github.com/gomlx/pencils/comm"
	"github.com/gomlx/pencils/internal/utils"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Transpose redistributes src into dst, whose pencils must share a topology
// and differ in at most one decomposed-axis position. Global shape and
// extra dimensions must match; permutations may differ arbitrarily.
//
// The redistribution is an all-to-all within the sub-communicator of the
// grid axis whose decomposed axis changes: each process sends every peer
// the part of its block the peer owns in the destination layout, and
// receives the complement. The block this process keeps is copied locally,
// overlapping the exchange. If the pencils have equal decompositions the
// whole operation is a local copy, re-permuting the block if the memory
// orders differ.
//
// Collective: every rank of the sub-communicator must enter transpositions
// in the same order. Not safe for concurrent use of either pencil's scratch
// buffers: concurrent transpositions sharing a pencil are forbidden. On
// failure the destination contents are undefined.
func Transpose[T any](dst, src *Array[T], options ...*TransposeOptions) error {
	opts, err := mergeTransposeOptions(options)
	if err != nil {
		return err
	}
	if dst == nil || src == nil {
		return errors.Wrapf(ErrIncompatibleTransposition, "nil array")
	}
	sp, dp := src.pencil, dst.pencil
	if sp.topo != dp.topo {
		return errors.Wrapf(ErrIncompatibleTransposition, "pencils live on different topologies")
	}
	if !slices.Equal(sp.globalSize, dp.globalSize) {
		return errors.Wrapf(ErrIncompatibleTransposition, "global shapes differ: %v vs %v",
			sp.globalSize, dp.globalSize)
	}
	if !slices.Equal(src.extraDims, dst.extraDims) {
		return errors.Wrapf(ErrIncompatibleTransposition, "extra dimensions differ: %v vs %v",
			src.extraDims, dst.extraDims)
	}

	gridAxis := -1
	for g := range sp.decompDims {
		if sp.decompDims[g] == dp.decompDims[g] {
			continue
		}
		if gridAxis >= 0 {
			return errors.Wrapf(ErrIncompatibleTransposition,
				"pencils differ in more than one decomposed-axis position: %v vs %v",
				sp.decompDims, dp.decompDims)
		}
		gridAxis = g
	}
	if gridAxis < 0 {
		// Same decomposition: a local copy, possibly changing memory order.
		localTranspose(dst, src)
		return nil
	}
	return transposeAlong(dst, src, gridAxis, opts)
}

// transposeAlong runs the all-to-all redistribution within the
// sub-communicator of the given grid axis.
func transposeAlong[T any](dst, src *Array[T], gridAxis int, opts TransposeOptions) error {
	sp, dp := src.pencil, dst.pencil
	topo := sp.topo
	sub := topo.Sub(gridAxis)
	p := sub.Size()
	r := sub.Rank()
	n := sp.NumDims()
	elemsPerPoint := utils.Prod(src.extraDims)
	size := elemSize[T]()

	// Block extents in logical coordinates, per peer coordinate along the
	// grid axis. Peer q of the sub-communicator sits at coordinate q.
	coords := topo.Coords()
	sendExt := make([][]Range, p)
	recvExt := make([][]Range, p)
	sendElems := make([]int, p)
	recvElems := make([]int, p)
	for q := 0; q < p; q++ {
		coords[gridAxis] = q
		sendExt[q] = make([]Range, n)
		recvExt[q] = make([]Range, n)
		sendElems[q] = elemsPerPoint
		recvElems[q] = elemsPerPoint
		for a := 0; a < n; a++ {
			sendExt[q][a] = sp.localRanges[a].Intersect(dp.rangeAt(coords, a))
			recvExt[q][a] = dp.localRanges[a].Intersect(sp.rangeAt(coords, a))
			sendElems[q] *= max(sendExt[q][a].Len(), 0)
			recvElems[q] *= max(recvExt[q][a].Len(), 0)
		}
	}

	sendDispls := make([]int, p)
	recvDispls := make([]int, p)
	totalSend, totalRecv := 0, 0
	for q := 0; q < p; q++ {
		sendDispls[q] = totalSend
		recvDispls[q] = totalRecv
		if q != r {
			totalSend += sendElems[q]
			totalRecv += recvElems[q]
		}
	}

	var sendBuf, recvBuf []byte
	if opts.Buffers == BufferPerCall {
		sendBuf = allocBytes(totalSend * size)
		recvBuf = allocBytes(totalRecv * size)
	} else {
		sendBuf = sp.sendBuffer(totalSend * size)
		recvBuf = dp.recvBuffer(totalRecv * size)
	}
	sendData, err := bytesAsElems[T](sendBuf)
	if err != nil {
		return err
	}
	recvData, err := bytesAsElems[T](recvBuf)
	if err != nil {
		return err
	}

	// In-buffer layout of each block: the destination's memory order, so
	// the receiver consumes it without a reshuffle, unless permuting is
	// disabled.
	bufOrder := dp.memAxes()
	if opts.Permute == PermuteNever {
		bufOrder = sp.memAxes()
	}

	klog.V(2).Infof("pencils: transpose along grid axis %d: rank %d/%d, %d send + %d recv elements, %s",
		gridAxis, r, p, totalSend, totalRecv, opts.Method)

	for q := 0; q < p; q++ {
		if q == r || sendElems[q] == 0 {
			continue
		}
		packBlock(sendData[sendDispls[q]:sendDispls[q]+sendElems[q]], src, sendExt[q], bufOrder)
	}

	// The kept block never touches the network; this copy overlaps with
	// the exchange. It writes a region of dst disjoint from every received
	// block, and the transposition returns only once it is done.
	localDone := make(chan struct{})
	go func() {
		defer close(localDone)
		if sendElems[r] > 0 {
			copyLocalBlock(dst, src, sendExt[r])
		}
	}()
	defer func() { <-localDone }()

	switch opts.Method {
	case ExchangeAlltoallv:
		err = exchangeAlltoallv(sub, r, sendBuf, recvBuf, sendElems, recvElems, sendDispls, recvDispls, size)
		if err != nil {
			return err
		}
		for q := 0; q < p; q++ {
			if q == r || recvElems[q] == 0 {
				continue
			}
			unpackBlock(dst, recvData[recvDispls[q]:recvDispls[q]+recvElems[q]], recvExt[q], bufOrder)
		}
	case ExchangePairwise:
		err = exchangePairwise(sub, r, p, sendBuf, recvBuf, sendElems, recvElems, sendDispls, recvDispls, size,
			func(q int) {
				if recvElems[q] > 0 {
					unpackBlock(dst, recvData[recvDispls[q]:recvDispls[q]+recvElems[q]], recvExt[q], bufOrder)
				}
			})
		if err != nil {
			return err
		}
	default:
		return errors.Errorf("pencils: unknown exchange method %s", opts.Method)
	}
	return nil
}

// exchangePairwise runs P-1 phases of paired exchanges: with a power-of-two
// P rank r meets r XOR k at phase k, otherwise it sends to (r+k) mod P and
// receives from (r-k) mod P. Each phase carries a distinct tag, and
// onReceived unpacks peer q's block as soon as its receive completes.
func exchangePairwise(sub *comm.Comm, r, p int,
	sendBuf, recvBuf []byte, sendElems, recvElems, sendDispls, recvDispls []int, size int,
	onReceived func(q int)) error {
	powerOfTwo := p&(p-1) == 0
	for k := 1; k < p; k++ {
		sendTo := (r + k) % p
		recvFrom := (r - k + p) % p
		if powerOfTwo {
			sendTo = r ^ k
			recvFrom = sendTo
		}
		sendBlock := sendBuf[sendDispls[sendTo]*size : (sendDispls[sendTo]+sendElems[sendTo])*size]
		recvBlock := recvBuf[recvDispls[recvFrom]*size : (recvDispls[recvFrom]+recvElems[recvFrom])*size]
		got, err := sub.Sendrecv(sendTo, k, sendBlock, recvFrom, k, recvBlock)
		if err != nil {
			return errors.WithMessagef(err, "transposition phase %d with peers %d/%d", k, sendTo, recvFrom)
		}
		if got != len(recvBlock) {
			return errors.Errorf("pencils: peer %d sent %d bytes at phase %d, expected %d",
				recvFrom, got, k, len(recvBlock))
		}
		onReceived(recvFrom)
	}
	return nil
}

// exchangeAlltoallv issues the whole exchange as one collective; the self
// counts are zero since the kept block is copied directly.
func exchangeAlltoallv(sub *comm.Comm, r int,
	sendBuf, recvBuf []byte, sendElems, recvElems, sendDispls, recvDispls []int, size int) error {
	p := len(sendElems)
	sendCounts := make([]int, p)
	recvCounts := make([]int, p)
	sendOffsets := make([]int, p)
	recvOffsets := make([]int, p)
	for q := 0; q < p; q++ {
		if q == r {
			continue
		}
		sendCounts[q] = sendElems[q] * size
		recvCounts[q] = recvElems[q] * size
		sendOffsets[q] = sendDispls[q] * size
		recvOffsets[q] = recvDispls[q] * size
	}
	err := sub.Alltoallv(sendBuf, sendCounts, sendOffsets, recvBuf, recvCounts, recvOffsets)
	return errors.WithMessage(err, "transposition all-to-all")
}

// packBlock serializes the logical block ext of src into buf, laid out
// contiguously in bufOrder (a memory-order axis sequence, extras trailing).
// The loop nest follows the source's memory order, so the innermost reads
// are stride-1 in the source whenever its layout allows.
func packBlock[T any](buf []T, src *Array[T], ext []Range, bufOrder []int) {
	loopOrder := src.pencil.memAxes()
	dims, srcStrides, srcOff := blockLoops(src, ext, loopOrder, src.pencil.localRanges)
	bufStrides := bufferLoopStrides(ext, bufOrder, src.extraDims, loopOrder)
	copyStrided(buf, src.block.data, dims, bufStrides, srcStrides, 0, srcOff)
}

// unpackBlock deserializes buf (laid out in bufOrder) into the logical
// block ext of dst. The loop nest follows the destination's memory order,
// so the innermost writes are stride-1 in the destination.
func unpackBlock[T any](dst *Array[T], buf []T, ext []Range, bufOrder []int) {
	loopOrder := dst.pencil.memAxes()
	dims, dstStrides, dstOff := blockLoops(dst, ext, loopOrder, dst.pencil.localRanges)
	bufStrides := bufferLoopStrides(ext, bufOrder, dst.extraDims, loopOrder)
	copyStrided(dst.block.data, buf, dims, dstStrides, bufStrides, dstOff, 0)
}

// copyLocalBlock moves the logical block ext straight from src storage to
// dst storage, performing any permutation change. The loop nest follows the
// destination's memory order.
func copyLocalBlock[T any](dst, src *Array[T], ext []Range) {
	loopOrder := dst.pencil.memAxes()
	dims, dstStrides, dstOff := blockLoops(dst, ext, loopOrder, dst.pencil.localRanges)
	_, srcStrides, srcOff := blockLoops(src, ext, loopOrder, src.pencil.localRanges)
	copyStrided(dst.block.data, src.block.data, dims, dstStrides, srcStrides, dstOff, srcOff)
}

// localTranspose copies the whole local block between two pencils with
// equal decompositions, re-permuting if the memory orders differ. With
// equal permutations this is a flat copy.
func localTranspose[T any](dst, src *Array[T]) {
	if src.pencil.perm.Equal(dst.pencil.perm) {
		copy(dst.block.data, src.block.data)
		return
	}
	copyLocalBlock(dst, src, src.pencil.localRanges)
}

// blockLoops builds the loop geometry for visiting the logical block ext of
// array a in the given axis order (extras appended): the per-loop
// dimensions, a's memory strides in loop order, and the offset of the
// block's first element, relative to base (the array's own local ranges).
func blockLoops[T any](a *Array[T], ext []Range, loopOrder []int, base []Range) (dims, strides []int, off int) {
	n := len(loopOrder)
	dims = make([]int, 0, n+len(a.extraDims))
	strides = make([]int, 0, n+len(a.extraDims))
	for _, axis := range loopOrder {
		dims = append(dims, ext[axis].Len())
		strides = append(strides, a.spaceStrides[axis])
	}
	for e, d := range a.extraDims {
		dims = append(dims, d)
		strides = append(strides, a.memStrides[n+e])
	}
	for axis, r := range ext {
		off += (r.Lo - base[axis].Lo) * a.spaceStrides[axis]
	}
	return dims, strides, off
}

// bufferLoopStrides returns the strides of a contiguous buffer holding the
// block ext in bufOrder (extras trailing), reordered to the given loop
// order.
func bufferLoopStrides(ext []Range, bufOrder []int, extraDims, loopOrder []int) []int {
	n := len(bufOrder)
	bufDims := make([]int, 0, n+len(extraDims))
	for _, axis := range bufOrder {
		bufDims = append(bufDims, ext[axis].Len())
	}
	bufDims = append(bufDims, extraDims...)
	bufStrides := utils.Strides(bufDims)

	strideOfAxis := make([]int, n)
	for pos, axis := range bufOrder {
		strideOfAxis[axis] = bufStrides[pos]
	}
	strides := make([]int, 0, n+len(extraDims))
	for _, axis := range loopOrder {
		strides = append(strides, strideOfAxis[axis])
	}
	return append(strides, bufStrides[n:]...)
}

// copyStrided copies an N-d block of the given dimensions between two flat
// slices, one index arithmetic walk per element except for the contiguous
// innermost case, which degenerates to copy.
func copyStrided[T any](dst, src []T, dims, dstStrides, srcStrides []int, dstOff, srcOff int) {
	if len(dims) == 0 {
		dst[dstOff] = src[srcOff]
		return
	}
	count := dims[0]
	if len(dims) == 1 {
		ds, ss := dstStrides[0], srcStrides[0]
		if ds == 1 && ss == 1 {
			copy(dst[dstOff:dstOff+count], src[srcOff:srcOff+count])
			return
		}
		for i := 0; i < count; i++ {
			dst[dstOff+i*ds] = src[srcOff+i*ss]
		}
		return
	}
	for i := 0; i < count; i++ {
		copyStrided(dst, src, dims[1:], dstStrides[1:], srcStrides[1:],
			dstOff+i*dstStrides[0], srcOff+i*srcStrides[0])
	}
}
