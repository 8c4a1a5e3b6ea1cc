package reion

import (
	"fmt"

	"github.com/phil-mansfield/reion/lib/grid"
)

// OwnsHalo returns true if the halo's cell is in the local slab.
func (ctx *Context) OwnsHalo(h *Halo) bool {
	return ctx.Slab.Contains(ctx.Params.CellIndex(h.Pos[0]))
}

// AssignIonizationToHalos sets the CellIonization of every halo to the
// ionized fraction, 1 - xH, of the cell containing it. Every halo must be in
// the slab of xH; a halo outside it panics.
func (ctx *Context) AssignIonizationToHalos(halos []Halo, xH *grid.Grid) error {
	if xH.Dim != ctx.Params.GridDim {
		return fmt.Errorf("Grid '%s' has dim = %d, but GridDim = %d.",
			xH.Name, xH.Dim, ctx.Params.GridDim)
	} else if xH.Layout != grid.Real {
		return fmt.Errorf("Grid '%s' uses the %s layout, but halo "+
			"ionization needs the Real layout.", xH.Name, xH.Layout)
	}

	for i := range halos {
		c := ctx.Params.Cell(halos[i].Pos)
		halos[i].CellIonization = 1 - xH.At(c[0], c[1], c[2])
	}

	ctx.Log.WithField("halos", len(halos)).
		Debug("Assigned cell ionization to halos.")
	return nil
}
