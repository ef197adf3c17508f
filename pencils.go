// Package pencils implements distributed dense N-dimensional arrays with
// pencil decompositions: the global array is split across a Cartesian grid
// of SPMD processes along a chosen subset of its axes, and the same logical
// data can be redistributed between decompositions ("transpositions") with
// an all-to-all confined to one grid axis at a time.
//
// Among its pieces:
//
//   - comm.Cartesian arranges an SPMD communicator as a process grid with
//     per-axis sub-communicators.
//   - Pencil describes one decomposition: which array axes are split over
//     which grid axes, plus the in-memory order of the local block.
//   - Array is the local block of a distributed array on a Pencil, indexed
//     logically whatever the memory order.
//   - Transpose moves an Array between two Pencils that differ in one
//     decomposed axis.
//
// The classic spectral-solver setup builds three pencils over a 2D process
// grid -- x-, y- and z-oriented -- and hops between them:
//
//	topo, err := comm.NewCartesian(c, []int{2, 2})
//	xPencil, err := pencils.NewPencil(pencils.StorageHost, []int{64, 32, 32}, []int{1, 2}, topo)
//	yPencil, err := xPencil.Derive().WithDecompDims(0, 2).WithPermutation(yxz).Build()
//	ux, err := pencils.NewArray[float64](xPencil)
//	uy, err := pencils.NewArray[float64](yPencil)
//	...
//	err = pencils.Transpose(uy, ux)
//
// Everything here is SPMD and single-threaded per rank: collective
// operations must be entered by every rank of the relevant communicator in
// the same order, and concurrent transpositions sharing a pencil are
// undefined.
package pencils
