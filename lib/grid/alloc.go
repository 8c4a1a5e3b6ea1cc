package grid

import (
	"fmt"
	"unsafe"
)

// Grids owns every buffer used by the reionization step on one slab.
// Buffers are allocated together by NewGrids and dropped together by Release.
type Grids struct {
	Dim, Offset, Width int

	// Baryon grids built from galaxies.
	Stars, Sfr *Grid
	// Copies of the baryon grids in the layout expected by the filter.
	StarsPadded, SfrPadded *Grid
	// Transform scratch space for the filter.
	StarsFiltered, SfrFiltered *ComplexGrid

	// Grids produced by the filter.
	XH, ZAtIonization, JAtIonization *Grid

	MvirCrit *Grid
}

const (
	realGrids    = 6
	paddedGrids  = 2
	complexGrids = 2
)

// Bytes returns the number of bytes NewGrids will allocate for a slab of the
// given width.
func Bytes(dim, width int) int64 {
	f64 := int64(unsafe.Sizeof(float64(0)))
	c128 := int64(unsafe.Sizeof(complex128(0)))

	realBytes := int64(Real.SlabLen(width, dim)) * f64
	paddedBytes := int64(Padded.SlabLen(width, dim)) * f64
	complexBytes := int64(ComplexHermitian.SlabLen(width, dim)) * c128

	return realGrids*realBytes + paddedGrids*paddedBytes +
		complexGrids*complexBytes
}

// NewGrids allocates all the grids for the slab [offset, offset + width) of a
// grid with dim cells on a side. If maxBytes is positive and the allocation
// would be larger than maxBytes, an error is returned instead.
//
// Grids are initialized to a fully neutral universe that has not been
// ionized: XH = 1, ZAtIonization = -1, and everything else zero.
func NewGrids(dim, offset, width int, maxBytes int64) (*Grids, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("GridDim = %d, but it must be positive.", dim)
	} else if offset < 0 || width < 0 || offset+width > dim {
		return nil, fmt.Errorf("The slab [%d, %d) does not fit in a grid "+
			"with GridDim = %d.", offset, offset+width, dim)
	}

	if n := Bytes(dim, width); maxBytes > 0 && n > maxBytes {
		return nil, fmt.Errorf("The reionization grids for a slab of "+
			"width %d need %.3g GB, but MaxGridMemoryGB only allows %.3g GB.",
			width, GB(n), GB(maxBytes))
	}

	gs := &Grids{
		Dim: dim, Offset: offset, Width: width,

		Stars: New("stars", Real, dim, offset, width),
		Sfr:   New("sfr", Real, dim, offset, width),

		StarsPadded: New("stars_padded", Padded, dim, offset, width),
		SfrPadded:   New("sfr_padded", Padded, dim, offset, width),

		StarsFiltered: NewComplex("stars_filtered", dim, offset, width),
		SfrFiltered:   NewComplex("sfr_filtered", dim, offset, width),

		XH:            New("xH", Real, dim, offset, width),
		ZAtIonization: New("z_at_ionization", Real, dim, offset, width),
		JAtIonization: New("J_21_at_ionization", Real, dim, offset, width),
		MvirCrit:      New("Mvir_crit", Real, dim, offset, width),
	}

	gs.XH.Fill(1)
	gs.ZAtIonization.Fill(-1)

	return gs, nil
}

// Release drops every buffer. Any later use of the grids is a bug and will
// panic with a nil dereference.
func (gs *Grids) Release() {
	gs.Stars, gs.Sfr = nil, nil
	gs.StarsPadded, gs.SfrPadded = nil, nil
	gs.StarsFiltered, gs.SfrFiltered = nil, nil
	gs.XH, gs.ZAtIonization, gs.JAtIonization = nil, nil, nil
	gs.MvirCrit = nil
}

// Released returns true if Release has been called.
func (gs *Grids) Released() bool { return gs.Stars == nil }

// GB converts a byte count to gigabytes.
func GB(n int64) float64 { return float64(n) / (1 << 30) }
