package reion

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/phil-mansfield/reion/lib/grid"
	"github.com/phil-mansfield/reion/lib/mpi"
)

// MvirCrit returns the critical virial mass of a cell at redshift z that
// ionized at redshift zIon under photoionization rate j. Cells that have not
// yet ionized get the atomic cooling floor.
func (p *Params) MvirCrit(z, zIon, j float64) float64 {
	if !(zIon > z) {
		return p.AtomicCoolingMass
	}

	m := p.SMParamM0 * math.Pow((1+z)/10, p.SMParamA) *
		math.Pow(j, p.SMParamB) *
		math.Pow(1-math.Pow((1+z)/(1+zIon), p.SMParamC), p.SMParamD)
	return math.Max(p.AtomicCoolingMass, m)
}

// CalculateMvirCrit fills the MvirCrit grid of the local slab from the
// ionization redshift and photoionization grids. It needs no communication.
func (ctx *Context) CalculateMvirCrit(snapshot int, z float64) {
	gs := ctx.Grids
	zIon, j, out := gs.ZAtIonization, gs.JAtIonization, gs.MvirCrit
	if zIon.Layout != grid.Real || j.Layout != grid.Real ||
		out.Layout != grid.Real {
		panic("Internal error: critical mass grids must use the Real layout.")
	}

	// All three grids share a layout and slab, so cells line up.
	for n := range out.Data {
		out.Data[n] = ctx.Params.MvirCrit(z, zIon.Data[n], j.Data[n])
	}

	ctx.mvirCritSnapshot, ctx.mvirCritRedshift = snapshot, z

	ctx.Log.WithFields(logrus.Fields{
		"snapshot": snapshot, "redshift": z,
	}).Debug("Calculated critical mass grid.")
}

// AssignMvirCritToGalaxies copies the critical mass of each associated
// galaxy's cell onto the galaxy, asking other workers for cells outside the
// local slab. It is a collective operation and fails if the grid was not
// calculated for the table's snapshot and redshift.
func (ctx *Context) AssignMvirCritToGalaxies(table *AssociationTable) error {
	if table.Snapshot != ctx.mvirCritSnapshot ||
		table.Redshift != ctx.mvirCritRedshift {
		return fmt.Errorf("Galaxies were mapped for snapshot %d at z = %g, "+
			"but the critical mass grid was calculated for snapshot %d at "+
			"z = %g.", table.Snapshot, table.Redshift, ctx.mvirCritSnapshot,
			ctx.mvirCritRedshift)
	}

	mvir := ctx.Grids.MvirCrit
	workers, rank := ctx.Slabs.Workers(), ctx.Rank()
	dim := ctx.Params.GridDim

	reqCounts := table.Counts(workers)
	reqCounts[rank] = 0
	reqIdx := make([]int64, 0, mpi.Total(reqCounts))
	for r := 0; r < workers; r++ {
		lo, hi := table.SlabRange(r)
		if r == rank {
			for _, a := range table.Entries[lo:hi] {
				a.Galaxy.MvirCrit = mvir.At(a.Cell[0], a.Cell[1], a.Cell[2])
			}
			continue
		}

		offset := ctx.Slabs.Offsets[r]
		for _, a := range table.Entries[lo:hi] {
			idx := grid.Index(a.Cell[0]-offset, a.Cell[1], a.Cell[2],
				dim, grid.Real)
			reqIdx = append(reqIdx, int64(idx))
		}
	}

	// Requests go out, answers come back along the same counts reversed.
	ansCounts, err := mpi.ExchangeCounts(ctx.Comm, reqCounts)
	if err != nil {
		return err
	}
	ansIdx := make([]int64, mpi.Total(ansCounts))
	err = ctx.Comm.AlltoallvInt64(
		reqIdx, reqCounts, mpi.Displacements(reqCounts),
		ansIdx, ansCounts, mpi.Displacements(ansCounts),
	)
	if err != nil {
		return err
	}

	ans := make([]float64, len(ansIdx))
	for n, idx := range ansIdx {
		if idx < 0 || idx >= int64(len(mvir.Data)) {
			return fmt.Errorf("A worker requested the critical mass of "+
				"cell %d, but this slab only has %d cells.",
				idx, len(mvir.Data))
		}
		ans[n] = mvir.Data[idx]
	}

	reply := make([]float64, len(reqIdx))
	err = ctx.Comm.AlltoallvFloat64(
		ans, ansCounts, mpi.Displacements(ansCounts),
		reply, reqCounts, mpi.Displacements(reqCounts),
	)
	if err != nil {
		return err
	}

	n := 0
	for r := 0; r < workers; r++ {
		if r == rank {
			continue
		}
		lo, hi := table.SlabRange(r)
		for _, a := range table.Entries[lo:hi] {
			a.Galaxy.MvirCrit = reply[n]
			n++
		}
	}

	ctx.Log.WithFields(logrus.Fields{
		"snapshot": table.Snapshot, "redshift": ctx.mvirCritRedshift,
		"remote": len(reqIdx), "served": len(ansIdx),
	}).Debug("Assigned critical masses to galaxies.")

	return nil
}
