package reion

import (
	"fmt"
	"math"
	"strings"
)

const (
	// UnitMassMsol is the internal mass unit, 1e10 Msol/h, without the
	// factor of h.
	UnitMassMsol = 1e10
	// UnitTimeYr is the internal time unit, (Mpc/h) / (km/s), in years and
	// without the factor of h.
	UnitTimeYr = 9.77792e11
)

// Boundary is the rule used for positions outside [0, BoxSize).
type Boundary int

const (
	// Periodic wraps positions back into the box.
	Periodic Boundary = iota
	// Strict treats positions outside the box as a bug upstream.
	Strict
)

func (b Boundary) String() string {
	switch b {
	case Periodic:
		return "periodic"
	case Strict:
		return "strict"
	}
	return fmt.Sprintf("Boundary(%d)", int(b))
}

// ParseBoundary converts the name used in config files to a Boundary.
func ParseBoundary(s string) (Boundary, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "periodic", "":
		return Periodic, nil
	case "strict":
		return Strict, nil
	}
	return Periodic, fmt.Errorf("Boundary = '%s', but the only valid "+
		"values are 'periodic' and 'strict'.", s)
}

// Params are the run-wide constants needed by the reionization grids.
type Params struct {
	// GridDim is the number of cells on one side of the grid.
	GridDim int
	// BoxSize is the side length of the simulation box in Mpc/h.
	BoxSize float64
	HubbleH float64

	Boundary Boundary

	// AtomicCoolingMass is the floor of the critical mass field.
	AtomicCoolingMass float64
	// Sobacchi & Mesinger (2013) critical mass parameters:
	// M0 ((1+z)/10)^A J^B (1 - ((1+z)/(1+z_ion))^C)^D
	SMParamM0, SMParamA, SMParamB, SMParamC, SMParamD float64

	// MaxGridBytes limits the size of each worker's grids. Zero means no
	// limit.
	MaxGridBytes int64
}

// DefaultParams returns the parameters used when a config file leaves
// values unset.
func DefaultParams() Params {
	return Params{
		GridDim:  64,
		BoxSize:  100,
		HubbleH:  0.678,
		Boundary: Periodic,

		AtomicCoolingMass: 1e8,
		SMParamM0:         2.8e9,
		SMParamA:          -2.1,
		SMParamB:          0.17,
		SMParamC:          2.0,
		SMParamD:          2.5,
	}
}

// Validate returns an error naming the first invalid parameter.
func (p *Params) Validate() error {
	switch {
	case p.GridDim < 1:
		return fmt.Errorf("GridDim = %d, but it must be positive.", p.GridDim)
	case !(p.BoxSize > 0) || math.IsInf(p.BoxSize, 0):
		return fmt.Errorf("BoxSize = %g, but it must be positive and finite.",
			p.BoxSize)
	case !(p.HubbleH > 0) || math.IsInf(p.HubbleH, 0):
		return fmt.Errorf("HubbleH = %g, but it must be positive and finite.",
			p.HubbleH)
	case p.Boundary != Periodic && p.Boundary != Strict:
		return fmt.Errorf("Boundary = %s is not a known boundary policy.",
			p.Boundary)
	case !(p.AtomicCoolingMass >= 0):
		return fmt.Errorf("AtomicCoolingMass = %g, but it must be "+
			"non-negative.", p.AtomicCoolingMass)
	case !(p.SMParamM0 > 0):
		return fmt.Errorf("SMParamM0 = %g, but it must be positive.",
			p.SMParamM0)
	case p.MaxGridBytes < 0:
		return fmt.Errorf("The grid memory limit, %d bytes, is negative.",
			p.MaxGridBytes)
	}

	for _, x := range []struct {
		name string
		val  float64
	}{
		{"SMParamA", p.SMParamA}, {"SMParamB", p.SMParamB},
		{"SMParamC", p.SMParamC}, {"SMParamD", p.SMParamD},
	} {
		if math.IsNaN(x.val) || math.IsInf(x.val, 0) {
			return fmt.Errorf("%s = %g, but it must be finite.", x.name, x.val)
		}
	}

	return nil
}

// MassUnit converts internal masses to Msol.
func (p *Params) MassUnit() float64 { return UnitMassMsol / p.HubbleH }

// SfrUnit converts internal star formation rates to Msol/yr.
func (p *Params) SfrUnit() float64 {
	return (UnitMassMsol / p.HubbleH) / (UnitTimeYr / p.HubbleH)
}

// CellIndex returns the index along one axis of the cell containing the
// coordinate x. It panics on non-finite coordinates, and, for Strict
// boundaries, on coordinates outside [0, BoxSize).
func (p *Params) CellIndex(x float64) int {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		panic(fmt.Sprintf("Internal error: non-finite coordinate %g.", x))
	}

	switch p.Boundary {
	case Periodic:
		x = math.Mod(x, p.BoxSize)
		if x < 0 {
			x += p.BoxSize
		}
		return p.clampedIndex(x)
	case Strict:
		if x < 0 || x >= p.BoxSize {
			panic(fmt.Sprintf("Internal error: coordinate %g is outside "+
				"the box [0, %g).", x, p.BoxSize))
		}
		return p.clampedIndex(x)
	}

	panic(fmt.Sprintf("Internal error: unknown boundary policy %d.",
		int(p.Boundary)))
}

// clampedIndex converts x in [0, BoxSize] to a cell index. x == BoxSize, which
// is what wrapping a tiny negative coordinate produces, is in the last cell.
func (p *Params) clampedIndex(x float64) int {
	i := int(x / p.BoxSize * float64(p.GridDim))
	if i >= p.GridDim {
		i = p.GridDim - 1
	}
	return i
}

// Cell returns the global cell containing pos.
func (p *Params) Cell(pos [3]float64) [3]int {
	return [3]int{p.CellIndex(pos[0]), p.CellIndex(pos[1]),
		p.CellIndex(pos[2])}
}
