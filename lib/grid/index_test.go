package grid

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIndex(t *testing.T) {
	tests := []struct {
		i, j, k, dim int
		layout       Layout
		idx          int
	}{
		{0, 0, 0, 4, Real, 0},
		{0, 0, 3, 4, Real, 3},
		{0, 1, 0, 4, Real, 4},
		{1, 0, 0, 4, Real, 16},
		{3, 3, 3, 4, Real, 63},
		{0, 0, 3, 4, Padded, 3},
		{0, 1, 0, 4, Padded, 6},
		{1, 0, 0, 4, Padded, 24},
		{3, 3, 3, 4, Padded, 3 + 6*(3+4*3)},
		{0, 1, 0, 5, Padded, 6},
		{0, 0, 2, 4, ComplexHermitian, 2},
		{0, 1, 0, 4, ComplexHermitian, 3},
		{1, 0, 0, 4, ComplexHermitian, 12},
		{27, 27, 27, 64, Real, 27 + 64*(27+64*27)},
	}

	for i := range tests {
		idx := Index(tests[i].i, tests[i].j, tests[i].k,
			tests[i].dim, tests[i].layout)
		assert.Equal(t, tests[i].idx, idx, "%d) Index(%d, %d, %d, %d, %s)",
			i, tests[i].i, tests[i].j, tests[i].k, tests[i].dim,
			tests[i].layout)
	}
}

func TestIndexRealInjective(t *testing.T) {
	for _, dim := range []int{1, 2, 3, 8, 17} {
		seen := map[int]bool{}
		for i := 0; i < dim; i++ {
			for j := 0; j < dim; j++ {
				for k := 0; k < dim; k++ {
					idx := Index(i, j, k, dim, Real)
					assert.False(t, seen[idx], "dim = %d, (%d, %d, %d) "+
						"aliases offset %d", dim, i, j, k, idx)
					seen[idx] = true
					assert.True(t, idx >= 0 && idx < dim*dim*dim)
				}
			}
		}
		assert.Equal(t, dim*dim*dim, len(seen), "dim = %d", dim)
	}
}

func TestIndexPaddedInjective(t *testing.T) {
	for _, dim := range []int{2, 7, 8} {
		seen := map[int]bool{}
		n := Padded.SlabLen(dim, dim)
		for i := 0; i < dim; i++ {
			for j := 0; j < dim; j++ {
				for k := 0; k < dim; k++ {
					idx := Index(i, j, k, dim, Padded)
					assert.False(t, seen[idx])
					assert.True(t, idx >= 0 && idx < n)
					seen[idx] = true
				}
			}
		}
		assert.Equal(t, dim*dim*dim, len(seen))
	}
}

func TestIndexPanics(t *testing.T) {
	tests := []struct {
		i, j, k, dim int
		layout       Layout
	}{
		{-1, 0, 0, 4, Real},
		{4, 0, 0, 4, Real},
		{0, 4, 0, 4, Padded},
		{0, 0, 4, 4, Padded},
		{0, 0, 3, 4, ComplexHermitian},
		{0, 0, 0, 4, Layout(17)},
	}

	for i := range tests {
		assert.Panics(t, func() {
			Index(tests[i].i, tests[i].j, tests[i].k,
				tests[i].dim, tests[i].layout)
		}, "%d) expected a panic", i)
	}
}

func TestLayoutRowLen(t *testing.T) {
	assert.Equal(t, 64, Real.RowLen(64))
	assert.Equal(t, 66, Padded.RowLen(64))
	assert.Equal(t, 33, ComplexHermitian.RowLen(64))
	assert.Equal(t, 6, Padded.RowLen(5))
	assert.Equal(t, 3, ComplexHermitian.RowLen(5))

	assert.Equal(t, 16*64*66, Padded.SlabLen(16, 64))
	assert.Equal(t, "ComplexHermitian", ComplexHermitian.String())
}
