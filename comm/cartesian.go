package comm

import (
	"fmt"
	"strings"

	"github.com/gomlx/pencils/internal/utils"
	"github.com/pkg/errors"
)

// Cartesian arranges the ranks of a communicator on an M-dimensional grid,
// in row-major order of grid coordinates (the last grid axis varies
// fastest), and carries one sub-communicator per grid axis: sub-communicator
// i groups the ranks sharing every grid coordinate except the i-th.
//
// Immutable after construction. Construction is collective.
type Cartesian struct {
	comm *Comm

	// dims is the grid shape; its product equals comm.Size().
	dims []int

	// coords is this rank's coordinate on the grid.
	coords []int

	// subs[i] is the sub-communicator along grid axis i; this rank's
	// position in it is coords[i].
	subs []*Comm
}

// NewCartesian maps the communicator onto a grid of the given dimensions.
// It fails with ErrGridSizeMismatch unless the product of dims equals the
// communicator size. Collective: every rank of c must call it with the
// same dims.
func NewCartesian(c *Comm, dims []int) (*Cartesian, error) {
	if len(dims) < 1 {
		return nil, errors.Errorf("comm: Cartesian grid needs at least one axis")
	}
	for i, d := range dims {
		if d < 1 {
			return nil, errors.Errorf("comm: Cartesian grid axis %d has invalid size %d", i, d)
		}
	}
	if utils.Prod(dims) != c.Size() {
		return nil, errors.Wrapf(ErrGridSizeMismatch,
			"grid %v holds %d ranks, communicator has %d", dims, utils.Prod(dims), c.Size())
	}

	g := &Cartesian{
		comm:   c,
		dims:   append([]int(nil), dims...),
		coords: coordsOf(c.Rank(), dims),
		subs:   make([]*Comm, len(dims)),
	}

	// Along axis i, ranks that differ only in coordinate i share a
	// sub-communicator: the color is the flat index of the remaining
	// coordinates, the key the coordinate itself.
	for axis := range dims {
		color := 0
		for j, coord := range g.coords {
			if j == axis {
				continue
			}
			color = color*dims[j] + coord
		}
		sub, err := c.Split(color, g.coords[axis])
		if err != nil {
			return nil, errors.WithMessagef(err, "splitting sub-communicator along grid axis %d", axis)
		}
		g.subs[axis] = sub
	}
	return g, nil
}

// coordsOf converts a row-major flat rank to per-axis grid coordinates.
func coordsOf(rank int, dims []int) []int {
	coords := make([]int, len(dims))
	remaining := rank
	for i := len(dims) - 1; i >= 0; i-- {
		coords[i] = remaining % dims[i]
		remaining /= dims[i]
	}
	return coords
}

// Comm returns the underlying communicator.
func (g *Cartesian) Comm() *Comm { return g.comm }

// NumDims returns the number of grid axes.
func (g *Cartesian) NumDims() int { return len(g.dims) }

// Dims returns a copy of the grid shape.
func (g *Cartesian) Dims() []int { return append([]int(nil), g.dims...) }

// AxisSize returns the number of ranks along the given grid axis.
func (g *Cartesian) AxisSize(axis int) int { return g.dims[axis] }

// Coords returns a copy of this rank's grid coordinate.
func (g *Cartesian) Coords() []int { return append([]int(nil), g.coords...) }

// CoordsOf returns the grid coordinate of the given rank.
func (g *Cartesian) CoordsOf(rank int) []int { return coordsOf(rank, g.dims) }

// RankOf returns the rank at the given grid coordinate.
func (g *Cartesian) RankOf(coords []int) (int, error) {
	if len(coords) != len(g.dims) {
		return 0, errors.Errorf("comm: coordinate %v doesn't match grid dimensionality %d",
			coords, len(g.dims))
	}
	rank := 0
	for i, coord := range coords {
		if coord < 0 || coord >= g.dims[i] {
			return 0, errors.Errorf("comm: coordinate %v out of grid %v along axis %d",
				coords, g.dims, i)
		}
		rank = rank*g.dims[i] + coord
	}
	return rank, nil
}

// Sub returns the sub-communicator along the given grid axis. This rank's
// position in it equals Coords()[axis].
func (g *Cartesian) Sub(axis int) *Comm { return g.subs[axis] }

// String implements the fmt.Stringer interface.
func (g *Cartesian) String() string {
	var sb strings.Builder
	sb.WriteString("Cartesian(")
	for i, d := range g.dims {
		if i > 0 {
			sb.WriteString("x")
		}
		_, _ = fmt.Fprintf(&sb, "%d", d)
	}
	sb.WriteString(")")
	return sb.String()
}
