package grid

import (
	"fmt"
)

// Grid is the part of a dim^3 scalar field owned by one slab. Only the planes
// Offset <= i < Offset + Width are stored.
type Grid struct {
	Name   string
	Layout Layout
	// Dim is the number of cells on one side of the global grid.
	Dim int
	// Offset and Width give the range of the leading axis stored here.
	Offset, Width int
	Data          []float64
}

// New allocates the slab [offset, offset + width) of a scalar grid. layout
// must be Real or Padded.
func New(name string, layout Layout, dim, offset, width int) *Grid {
	if layout != Real && layout != Padded {
		panic(fmt.Sprintf("Internal error: scalar grid '%s' cannot use "+
			"the %s layout.", name, layout))
	}
	checkSlab(name, dim, offset, width)

	return &Grid{
		Name: name, Layout: layout, Dim: dim, Offset: offset, Width: width,
		Data: make([]float64, layout.SlabLen(width, dim)),
	}
}

func checkSlab(name string, dim, offset, width int) {
	if dim <= 0 || offset < 0 || width < 0 || offset+width > dim {
		panic(fmt.Sprintf("Internal error: grid '%s' given slab [%d, %d) "+
			"for dim = %d.", name, offset, offset+width, dim))
	}
}

// Owns returns true if the global plane i is stored in this slab.
func (g *Grid) Owns(i int) bool {
	return i >= g.Offset && i < g.Offset+g.Width
}

// Index returns the offset into Data of the global cell (i, j, k). It panics
// if i is not in this slab.
func (g *Grid) Index(i, j, k int) int {
	if !g.Owns(i) {
		panic(fmt.Sprintf("Internal error: plane i = %d is not in the "+
			"slab [%d, %d) of grid '%s'.", i, g.Offset, g.Offset+g.Width,
			g.Name))
	}
	return Index(i-g.Offset, j, k, g.Dim, g.Layout)
}

// At returns the value of the global cell (i, j, k).
func (g *Grid) At(i, j, k int) float64 { return g.Data[g.Index(i, j, k)] }

// Set sets the value of the global cell (i, j, k).
func (g *Grid) Set(i, j, k int, x float64) { g.Data[g.Index(i, j, k)] = x }

// Add adds x to the global cell (i, j, k).
func (g *Grid) Add(i, j, k int, x float64) { g.Data[g.Index(i, j, k)] += x }

// Fill sets every value in the buffer, including padding, to x.
func (g *Grid) Fill(x float64) {
	for i := range g.Data {
		g.Data[i] = x
	}
}

// Zero sets every value in the buffer to zero.
func (g *Grid) Zero() { g.Fill(0) }

// Cells returns the number of cells in the slab, not counting padding.
func (g *Grid) Cells() int { return g.Width * g.Dim * g.Dim }

// Copy copies every cell of src into dst. The two grids may have different
// scalar layouts but must cover the same slab of the same global grid.
// Padding values in dst are left untouched.
func Copy(dst, src *Grid) error {
	if dst.Dim != src.Dim || dst.Offset != src.Offset ||
		dst.Width != src.Width {
		return fmt.Errorf("Cannot copy grid '%s' (dim = %d, slab [%d, %d)) "+
			"into grid '%s' (dim = %d, slab [%d, %d)).",
			src.Name, src.Dim, src.Offset, src.Offset+src.Width,
			dst.Name, dst.Dim, dst.Offset, dst.Offset+dst.Width)
	}

	if dst.Layout == src.Layout {
		copy(dst.Data, src.Data)
		return nil
	}

	dim := src.Dim
	for i := 0; i < src.Width; i++ {
		for j := 0; j < dim; j++ {
			for k := 0; k < dim; k++ {
				dst.Data[Index(i, j, k, dim, dst.Layout)] =
					src.Data[Index(i, j, k, dim, src.Layout)]
			}
		}
	}

	return nil
}

// ComplexGrid is the slab of a frequency-space grid. It always uses the
// ComplexHermitian layout.
type ComplexGrid struct {
	Name          string
	Dim           int
	Offset, Width int
	Data          []complex128
}

// NewComplex allocates the slab [offset, offset + width) of a frequency-space
// grid.
func NewComplex(name string, dim, offset, width int) *ComplexGrid {
	checkSlab(name, dim, offset, width)
	return &ComplexGrid{
		Name: name, Dim: dim, Offset: offset, Width: width,
		Data: make([]complex128, ComplexHermitian.SlabLen(width, dim)),
	}
}

// Index returns the offset into Data of the mode (i, j, k), where i is
// global and k < Dim/2 + 1.
func (g *ComplexGrid) Index(i, j, k int) int {
	if i < g.Offset || i >= g.Offset+g.Width {
		panic(fmt.Sprintf("Internal error: plane i = %d is not in the "+
			"slab [%d, %d) of grid '%s'.", i, g.Offset, g.Offset+g.Width,
			g.Name))
	}
	return Index(i-g.Offset, j, k, g.Dim, ComplexHermitian)
}
