package grid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGridIndex(t *testing.T) {
	g := New("test", Real, 8, 2, 3)
	assert.Equal(t, 3*8*8, len(g.Data))
	assert.Equal(t, 3*8*8, g.Cells())

	assert.True(t, g.Owns(2))
	assert.True(t, g.Owns(4))
	assert.False(t, g.Owns(1))
	assert.False(t, g.Owns(5))

	assert.Equal(t, 0, g.Index(2, 0, 0))
	assert.Equal(t, Index(2, 3, 4, 8, Real), g.Index(4, 3, 4))

	assert.Panics(t, func() { g.Index(5, 0, 0) })
	assert.Panics(t, func() { g.Index(1, 0, 0) })

	g.Add(3, 1, 1, 2.5)
	g.Add(3, 1, 1, 1.5)
	assert.Equal(t, 4.0, g.At(3, 1, 1))
	g.Set(3, 1, 1, 7)
	assert.Equal(t, 7.0, g.At(3, 1, 1))
	g.Zero()
	assert.Equal(t, 0.0, g.At(3, 1, 1))
}

func TestNewPanics(t *testing.T) {
	assert.Panics(t, func() { New("x", ComplexHermitian, 8, 0, 8) })
	assert.Panics(t, func() { New("x", Real, 8, 4, 5) })
	assert.Panics(t, func() { New("x", Real, 0, 0, 0) })
}

func TestCopy(t *testing.T) {
	dim := 5
	src := New("src", Real, dim, 1, 2)
	padded := New("padded", Padded, dim, 1, 2)
	back := New("back", Real, dim, 1, 2)

	for i := range src.Data {
		src.Data[i] = float64(i + 1)
	}
	padded.Fill(-1)

	require.NoError(t, Copy(padded, src))
	require.NoError(t, Copy(back, padded))
	assert.Equal(t, src.Data, back.Data)

	// Padding is left alone.
	row := Padded.RowLen(dim)
	for i := 0; i < 2; i++ {
		for j := 0; j < dim; j++ {
			for k := dim; k < row; k++ {
				assert.Equal(t, -1.0, padded.Data[k+row*(j+dim*i)])
			}
		}
	}

	other := New("other", Real, dim, 0, 2)
	assert.Error(t, Copy(other, src))
}

func TestComplexGrid(t *testing.T) {
	g := NewComplex("c", 8, 4, 4)
	assert.Equal(t, 4*8*5, len(g.Data))
	assert.Equal(t, 0, g.Index(4, 0, 0))
	assert.Equal(t, 5*(1+8*1)+2, g.Index(5, 1, 2))
	assert.Panics(t, func() { g.Index(3, 0, 0) })
	assert.Panics(t, func() { g.Index(4, 0, 5) })
}

func TestNewGrids(t *testing.T) {
	gs, err := NewGrids(16, 4, 4, 0)
	require.NoError(t, err)

	assert.Equal(t, 4*16*16, len(gs.Stars.Data))
	assert.Equal(t, 4*16*18, len(gs.StarsPadded.Data))
	assert.Equal(t, 4*16*9, len(gs.SfrFiltered.Data))
	assert.Equal(t, 1.0, gs.XH.At(5, 0, 0))
	assert.Equal(t, -1.0, gs.ZAtIonization.At(7, 15, 15))
	assert.Equal(t, 0.0, gs.MvirCrit.At(4, 0, 0))

	n := int64(6*4*16*16*8 + 2*4*16*18*8 + 2*4*16*9*16)
	assert.Equal(t, n, Bytes(16, 4))

	assert.False(t, gs.Released())
	gs.Release()
	assert.True(t, gs.Released())
	assert.Nil(t, gs.MvirCrit)
}

func TestNewGridsErrors(t *testing.T) {
	_, err := NewGrids(0, 0, 0, 0)
	assert.Error(t, err)
	_, err = NewGrids(16, 12, 8, 0)
	assert.Error(t, err)
	_, err = NewGrids(16, 0, 16, Bytes(16, 16)-1)
	assert.Error(t, err)
	_, err = NewGrids(16, 0, 16, Bytes(16, 16))
	assert.NoError(t, err)
}
