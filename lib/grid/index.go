/*package grid contains the buffers used by the reionization grids and the
indexing rules for the three memory layouts those buffers can be stored in.

Every offset into a grid buffer must come from Index. The layouts are:

   Real             - dim x dim x dim, no padding.
   Padded           - the last axis is padded to 2*(dim/2+1) values so that an
                      in-place real-to-complex transform fits in the buffer.
   ComplexHermitian - the last axis has dim/2+1 complex values, the
                      non-redundant half of a transform of real data.

The leading axis of a buffer only covers the caller's slab, so the i passed to
Index is slab-local.
*/
package grid

import (
	"fmt"
)

// Layout is a tag describing how a grid buffer is laid out in memory.
type Layout int

const (
	Padded Layout = iota
	Real
	ComplexHermitian
)

func (layout Layout) String() string {
	switch layout {
	case Padded:
		return "Padded"
	case Real:
		return "Real"
	case ComplexHermitian:
		return "ComplexHermitian"
	}
	return fmt.Sprintf("Layout(%d)", int(layout))
}

// Valid returns true if layout is one of the three known layouts.
func (layout Layout) Valid() bool {
	return layout == Padded || layout == Real || layout == ComplexHermitian
}

// RowLen returns the stride of the last (transform) axis for a grid with dim
// cells on a side.
func (layout Layout) RowLen(dim int) int {
	switch layout {
	case Padded:
		return 2 * (dim/2 + 1)
	case Real:
		return dim
	case ComplexHermitian:
		return dim/2 + 1
	}
	panic(fmt.Sprintf("Internal error: invalid grid layout %d.", int(layout)))
}

// cells returns the number of addressable (non-padding) values along the
// last axis.
func (layout Layout) cells(dim int) int {
	if layout == ComplexHermitian {
		return dim/2 + 1
	}
	return dim
}

// SlabLen returns the number of values needed to store nx planes of a grid
// with dim cells on a side.
func (layout Layout) SlabLen(nx, dim int) int {
	return nx * dim * layout.RowLen(dim)
}

// Index returns the offset of the cell (i, j, k) in a buffer with the given
// layout. It panics if the layout is invalid or if any coordinate lies
// outside the grid, since that can only happen because of a bug upstream.
func Index(i, j, k, dim int, layout Layout) int {
	if !layout.Valid() {
		panic(fmt.Sprintf("Internal error: invalid grid layout %d.",
			int(layout)))
	}
	if i < 0 || i >= dim || j < 0 || j >= dim ||
		k < 0 || k >= layout.cells(dim) {
		panic(fmt.Sprintf("Internal error: cell (%d, %d, %d) is outside "+
			"a %s grid with dim = %d.", i, j, k, layout, dim))
	}

	return k + layout.RowLen(dim)*(j+dim*i)
}
