package pencils

import (
	"testing"

	"github.com/gomlx/pencils/comm"
	"github.com/gomlx/pencils/types/permutations"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

// singleRankPencil builds a pencil over a 1-rank world, enough for the
// process-local array semantics.
func singleRankPencil(t *testing.T, globalSize []int, perm permutations.Permutation) *Pencil {
	t.Helper()
	var pencil *Pencil
	err := comm.Run(1, func(c *comm.Comm) error {
		topo, err := comm.NewCartesian(c, []int{1})
		if err != nil {
			return err
		}
		pencil, err = NewPencil(StorageHost, globalSize, []int{0}, topo,
			&PencilOptions{Permutation: perm})
		return err
	})
	require.NoError(t, err)
	return pencil
}

func TestIndexingConsistency(t *testing.T) {
	// A[i, j, k] must equal parent[perm(i, j, k)] for every logical index.
	perm, err := permutations.New(2, 0, 1)
	require.NoError(t, err)
	p := singleRankPencil(t, []int{3, 4, 5}, perm)

	a, err := NewArray[int](p)
	require.NoError(t, err)
	require.Equal(t, []int{3, 4, 5}, a.Shape())
	require.Equal(t, []int{5, 3, 4}, a.MemoryShape())

	counter := 0
	for i := 0; i < 3; i++ {
		for j := 0; j < 4; j++ {
			for k := 0; k < 5; k++ {
				a.Set(counter, i, j, k)
				counter++
			}
		}
	}
	parent := a.Parent()
	for i := 0; i < 3; i++ {
		for j := 0; j < 4; j++ {
			for k := 0; k < 5; k++ {
				// Memory order is (k, i, j) with the last axis fastest.
				off := k*(3*4) + i*4 + j
				require.Equal(t, a.At(i, j, k), parent[off],
					"At(%d, %d, %d) doesn't match parent offset %d", i, j, k, off)
			}
		}
	}

	require.Panics(t, func() { a.At(0, 0) })
	require.Panics(t, func() { a.At(3, 0, 0) })
}

func TestExtraDims(t *testing.T) {
	p := singleRankPencil(t, []int{4, 6}, permutations.Identity())
	a, err := NewArray[float64](p, 3)
	require.NoError(t, err)
	require.Equal(t, []int{4, 6, 3}, a.Shape())
	require.Equal(t, []int{4, 6, 3}, a.MemoryShape())
	require.Equal(t, []int{3}, a.ExtraDims())
	require.Equal(t, 4*6*3, a.Len())

	a.Set(2.5, 1, 2, 1)
	require.Equal(t, 2.5, a.At(1, 2, 1))

	// Extra dimensions are not permuted: they stay trailing and fastest.
	perm, err := permutations.New(1, 0)
	require.NoError(t, err)
	pp := singleRankPencil(t, []int{4, 6}, perm)
	b, err := NewArray[float64](pp, 3)
	require.NoError(t, err)
	require.Equal(t, []int{6, 4, 3}, b.MemoryShape())
	b.Set(1.5, 1, 2, 2)
	// Memory offset of (i=1, j=2, c=2) under (j, i, c) order.
	require.Equal(t, 1.5, b.Parent()[2*(4*3)+1*3+2])
}

func TestWrapErrors(t *testing.T) {
	p := singleRankPencil(t, []int{4, 6}, permutations.Identity())

	// Wrong container family.
	_, err := Wrap(p, AllocBlock[int](StorageDevice, 24))
	require.ErrorIs(t, err, ErrContainerMismatch)

	// Wrong element count.
	_, err = Wrap(p, AllocBlock[int](StorageHost, 23))
	require.ErrorIs(t, err, ErrDimensionMismatch)

	// Extra dims change the expected count.
	_, err = Wrap(p, AllocBlock[int](StorageHost, 24), 2)
	require.ErrorIs(t, err, ErrDimensionMismatch)

	// A matching block wraps and aliases.
	block := AllocBlock[int](StorageHost, 24)
	a, err := Wrap(p, block)
	require.NoError(t, err)
	a.Set(7, 2, 3)
	require.Equal(t, 7, block.Data()[2*6+3])
}

func TestSimilarAndCopy(t *testing.T) {
	p := singleRankPencil(t, []int{4, 6}, permutations.Identity())
	a, err := NewArray[int](p, 2)
	require.NoError(t, err)
	a.FillGlobal(func(global, extra []int) int {
		return 100*global[0] + 10*global[1] + extra[0]
	})

	b := a.Similar()
	require.Equal(t, a.Shape(), b.Shape())
	require.NoError(t, b.CopyFrom(a))
	require.True(t, Equal(a, b))

	b.Set(-1, 0, 0, 0)
	require.False(t, Equal(a, b))

	// Similar blocks are plain storage of the same family.
	blk := a.SimilarBlock(5, 5)
	require.Equal(t, StorageHost, blk.Kind())
	require.Equal(t, 25, blk.Len())

	// CopyFrom rejects arrays on a different pencil.
	perm, err := permutations.New(1, 0)
	require.NoError(t, err)
	pp := singleRankPencil(t, []int{4, 6}, perm)
	cArr, err := NewArray[int](pp, 2)
	require.NoError(t, err)
	require.Error(t, cArr.CopyFrom(a))
}

func TestApproxEqual(t *testing.T) {
	p := singleRankPencil(t, []int{4, 6}, permutations.Identity())
	a, err := NewArray[float64](p)
	require.NoError(t, err)
	b, err := NewArray[float64](p)
	require.NoError(t, err)

	a.FillGlobal(func(global, _ []int) float64 { return float64(10*global[0] + global[1]) })
	require.NoError(t, b.CopyFrom(a))
	b.Set(b.At(1, 1)+1e-12, 1, 1)

	require.False(t, Equal(a, b))
	require.True(t, ApproxEqual(a, b, 1e-9))
	require.False(t, ApproxEqual(a, b, 1e-16))
}

func TestMemoryRangesForIO(t *testing.T) {
	// The surface the I/O layer consumes: ranges and global dims in memory
	// order, never the permutation itself.
	err := comm.Run(2, func(c *comm.Comm) error {
		topo, err := comm.NewCartesian(c, []int{2})
		if err != nil {
			return err
		}
		perm, err := permutations.New(1, 0)
		if err != nil {
			return err
		}
		p, err := NewPencil(StorageHost, []int{8, 10}, []int{0}, topo,
			&PencilOptions{Permutation: perm})
		if err != nil {
			return err
		}
		a, err := NewArray[float32](p, 2)
		if err != nil {
			return err
		}
		if got := a.MemoryGlobalShape(); got[0] != 10 || got[1] != 8 || got[2] != 2 {
			return errors.Errorf("MemoryGlobalShape = %v", got)
		}
		ranges := a.MemoryLocalRanges()
		// Memory axis 0 is logical axis 1 (whole), memory axis 1 is the
		// decomposed logical axis 0, then the extra dimension.
		if ranges[0] != (Range{0, 10}) {
			return errors.Errorf("memory range 0 = %s", ranges[0])
		}
		want := partitionRange(8, 2, c.Rank())
		if ranges[1] != want {
			return errors.Errorf("memory range 1 = %s, want %s", ranges[1], want)
		}
		if ranges[2] != (Range{0, 2}) {
			return errors.Errorf("memory range 2 = %s", ranges[2])
		}
		if a.Comm().Size() != 2 {
			return errors.New("array must expose its communicator")
		}
		return nil
	})
	require.NoError(t, err)
}
