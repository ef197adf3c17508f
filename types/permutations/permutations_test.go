package permutations

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	testCases := []struct {
		name    string
		indices []int
		wantErr error
		wantId  bool
	}{
		{name: "empty is identity", indices: nil, wantId: true},
		{name: "natural order collapses to identity", indices: []int{0, 1, 2}, wantId: true},
		{name: "swap", indices: []int{1, 0}},
		{name: "rotation", indices: []int{1, 2, 0}},
		{name: "out of range", indices: []int{0, 3, 1}, wantErr: ErrInvalidPermutation},
		{name: "negative", indices: []int{0, -1}, wantErr: ErrInvalidPermutation},
		{name: "duplicate", indices: []int{0, 1, 1}, wantErr: ErrInvalidPermutation},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p, err := New(tc.indices...)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.wantId, p.IsIdentity())
		})
	}
}

func TestApplyInvApply(t *testing.T) {
	p, err := New(2, 0, 1)
	require.NoError(t, err)

	got, err := p.Apply([]int{10, 20, 30})
	require.NoError(t, err)
	require.Equal(t, []int{30, 10, 20}, got)

	back, err := p.InvApply(got)
	require.NoError(t, err)
	require.Equal(t, []int{10, 20, 30}, back)

	// Identity applies to any arity.
	id := Identity()
	got, err = id.Apply([]int{1, 2, 3, 4, 5})
	require.NoError(t, err)
	require.Equal(t, []int{1, 2, 3, 4, 5}, got)

	// Arity mismatch.
	_, err = p.Apply([]int{1, 2})
	require.ErrorIs(t, err, ErrArityMismatch)
	_, err = p.InvApply([]int{1, 2, 3, 4})
	require.ErrorIs(t, err, ErrArityMismatch)
}

func TestRoundTripAllPermutationsOfRank3(t *testing.T) {
	perms := [][]int{
		{0, 1, 2}, {0, 2, 1}, {1, 0, 2}, {1, 2, 0}, {2, 0, 1}, {2, 1, 0},
	}
	tuple := []int{7, 11, 13}
	for _, indices := range perms {
		p, err := New(indices...)
		require.NoError(t, err)

		applied, err := p.Apply(tuple)
		require.NoError(t, err)
		back, err := p.InvApply(applied)
		require.NoError(t, err)
		require.Equal(t, tuple, back, "InvApply(Apply(t)) != t for %s", p)

		inv, err := p.Inverse().Apply(applied)
		require.NoError(t, err)
		require.Equal(t, tuple, inv, "Inverse().Apply != InvApply for %s", p)
	}
}

func TestCompose(t *testing.T) {
	p, err := New(1, 2, 0)
	require.NoError(t, err)
	q, err := New(2, 1, 0)
	require.NoError(t, err)

	pq, err := p.Compose(q)
	require.NoError(t, err)

	tuple := []int{3, 5, 7}
	qt, err := q.Apply(tuple)
	require.NoError(t, err)
	want, err := p.Apply(qt)
	require.NoError(t, err)
	got, err := pq.Apply(tuple)
	require.NoError(t, err)
	require.Equal(t, want, got)

	// Composing with the inverse yields the identity.
	pInvP, err := p.Inverse().Compose(p)
	require.NoError(t, err)
	require.True(t, pInvP.IsIdentity())

	// Rank mismatch.
	r, err := New(1, 0)
	require.NoError(t, err)
	_, err = p.Compose(r)
	require.ErrorIs(t, err, ErrArityMismatch)
}

func TestAppendPrepend(t *testing.T) {
	p, err := New(1, 0)
	require.NoError(t, err)

	ap := p.Append(2)
	got, err := ap.Apply([]int{1, 2, 3, 4})
	require.NoError(t, err)
	require.Equal(t, []int{2, 1, 3, 4}, got)

	pp := p.Prepend(2)
	got, err = pp.Apply([]int{1, 2, 3, 4})
	require.NoError(t, err)
	require.Equal(t, []int{1, 2, 4, 3}, got)

	require.True(t, Identity().Append(3).IsIdentity())
	require.True(t, Identity().Prepend(3).IsIdentity())
}

func TestString(t *testing.T) {
	require.Equal(t, "Identity", Identity().String())
	p, err := New(2, 0, 1)
	require.NoError(t, err)
	require.Equal(t, "Permutation(2, 0, 1)", p.String())
}
