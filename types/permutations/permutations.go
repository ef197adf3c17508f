// Package permutations implements static index permutations, used to describe
// the in-memory order of the axes of a distributed array.
//
// A Permutation is a bijection on {0, ..., N-1}. The zero value is the
// identity, which acts on tuples of any arity; an explicit permutation is
// created with New and acts only on tuples of its own arity.
package permutations

import (
	"fmt"
	"slices"
	"strings"

	"github.com/gomlx/pencils/internal/utils"
	"github.com/pkg/errors"
)

var (
	// ErrInvalidPermutation indicates the given indices are not a bijection on {0, ..., N-1}.
	ErrInvalidPermutation = errors.New("permutations: indices are not a permutation of 0..N-1")

	// ErrArityMismatch indicates a tuple whose arity doesn't match the permutation's rank.
	ErrArityMismatch = errors.New("permutations: tuple arity doesn't match permutation rank")
)

// Permutation is a static bijection on axis indices.
//
// The zero value (and Identity()) is the identity permutation, which applies
// to tuples of any arity. Permutations are immutable value types: all
// operations return new values.
type Permutation struct {
	// indices is nil for the identity permutation.
	// Otherwise indices[i] is the source position for output position i:
	// Apply(t)[i] == t[indices[i]].
	indices []int
}

// Identity returns the identity permutation. It applies to tuples of any arity.
func Identity() Permutation {
	return Permutation{}
}

// New creates an explicit permutation from the given indices:
// Apply(t)[i] == t[indices[i]].
//
// It returns ErrInvalidPermutation if the indices are not a bijection on
// {0, ..., len(indices)-1}. If the indices are in natural order the result
// collapses to the identity.
func New(indices ...int) (Permutation, error) {
	seen := utils.MakeSet[int](len(indices))
	inOrder := true
	for i, idx := range indices {
		if idx < 0 || idx >= len(indices) {
			return Permutation{}, errors.Wrapf(ErrInvalidPermutation,
				"index %d at position %d is out of range [0, %d)", idx, i, len(indices))
		}
		if seen.Has(idx) {
			return Permutation{}, errors.Wrapf(ErrInvalidPermutation,
				"index %d is duplicated", idx)
		}
		seen.Insert(idx)
		inOrder = inOrder && idx == i
	}
	if inOrder {
		return Identity(), nil
	}
	return Permutation{indices: slices.Clone(indices)}, nil
}

// IsIdentity returns whether p is the identity permutation.
func (p Permutation) IsIdentity() bool {
	return p.indices == nil
}

// Rank returns the arity of an explicit permutation, or 0 for the identity
// (which acts on any arity).
func (p Permutation) Rank() int {
	return len(p.indices)
}

// Indices returns a copy of the explicit indices, or nil for the identity.
func (p Permutation) Indices() []int {
	return slices.Clone(p.indices)
}

func (p Permutation) checkArity(n int) error {
	if p.indices != nil && len(p.indices) != n {
		return errors.Wrapf(ErrArityMismatch, "permutation rank is %d, tuple arity is %d",
			len(p.indices), n)
	}
	return nil
}

// Apply reorders t so that output position i holds t[σ[i]].
//
// It returns ErrArityMismatch if t's arity doesn't match the permutation's
// rank. The identity accepts any arity and returns a copy of t.
func (p Permutation) Apply(t []int) ([]int, error) {
	if err := p.checkArity(len(t)); err != nil {
		return nil, err
	}
	if p.indices == nil {
		return slices.Clone(t), nil
	}
	out := make([]int, len(t))
	for i, idx := range p.indices {
		out[i] = t[idx]
	}
	return out, nil
}

// InvApply returns the tuple u with Apply(u) == t, i.e., u[σ[i]] = t[i].
func (p Permutation) InvApply(t []int) ([]int, error) {
	if err := p.checkArity(len(t)); err != nil {
		return nil, err
	}
	if p.indices == nil {
		return slices.Clone(t), nil
	}
	out := make([]int, len(t))
	for i, idx := range p.indices {
		out[idx] = t[i]
	}
	return out, nil
}

// Compose returns the permutation equivalent to applying q first and then p
// to the result: Compose(p, q).Apply(t) == p.Apply(q.Apply(t)).
//
// It returns ErrArityMismatch if both are explicit with different ranks.
func (p Permutation) Compose(q Permutation) (Permutation, error) {
	if p.indices == nil {
		return q, nil
	}
	if q.indices == nil {
		return p, nil
	}
	if len(p.indices) != len(q.indices) {
		return Permutation{}, errors.Wrapf(ErrArityMismatch,
			"cannot compose permutations of ranks %d and %d", len(p.indices), len(q.indices))
	}
	// p.Apply(q.Apply(t))[i] == q.Apply(t)[p[i]] == t[q[p[i]]].
	indices := make([]int, len(p.indices))
	for i, idx := range p.indices {
		indices[i] = q.indices[idx]
	}
	return New(indices...)
}

// Inverse returns the permutation q with Compose(p, q) and Compose(q, p)
// both the identity.
func (p Permutation) Inverse() Permutation {
	if p.indices == nil {
		return p
	}
	indices := make([]int, len(p.indices))
	for i, idx := range p.indices {
		indices[idx] = i
	}
	return Permutation{indices: indices}
}

// Append extends the permutation to act identically on k trailing positions.
// Appending to the identity returns the identity.
func (p Permutation) Append(k int) Permutation {
	if p.indices == nil || k == 0 {
		return p
	}
	indices := make([]int, 0, len(p.indices)+k)
	indices = append(indices, p.indices...)
	for i := range k {
		indices = append(indices, len(p.indices)+i)
	}
	return Permutation{indices: indices}
}

// Prepend extends the permutation to act identically on k leading positions.
func (p Permutation) Prepend(k int) Permutation {
	if p.indices == nil || k == 0 {
		return p
	}
	indices := make([]int, 0, len(p.indices)+k)
	for i := range k {
		indices = append(indices, i)
	}
	for _, idx := range p.indices {
		indices = append(indices, idx+k)
	}
	return Permutation{indices: indices}
}

// Equal returns whether p and q are the same permutation. Explicit
// permutations whose indices are in natural order never exist (New collapses
// them), so comparing indices suffices.
func (p Permutation) Equal(q Permutation) bool {
	return slices.Equal(p.indices, q.indices)
}

// String implements the fmt.Stringer interface.
func (p Permutation) String() string {
	if p.indices == nil {
		return "Identity"
	}
	var sb strings.Builder
	sb.WriteString("Permutation(")
	for i, idx := range p.indices {
		if i > 0 {
			sb.WriteString(", ")
		}
		_, _ = fmt.Fprintf(&sb, "%d", idx)
	}
	sb.WriteString(")")
	return sb.String()
}
