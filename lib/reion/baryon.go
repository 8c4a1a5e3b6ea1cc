package reion

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"

	"github.com/phil-mansfield/reion/lib/grid"
	"github.com/phil-mansfield/reion/lib/mpi"
)

// depositFields is the number of values sent per galaxy: stellar mass and
// star formation rate.
const depositFields = 2

// ConstructBaryonGrids deposits the stellar mass and star formation rate of
// every associated galaxy into the cell that contains it, converts both
// grids to Msol and Msol/yr, and copies them into the padded buffers used by
// the filter. Deposits into other workers' slabs are shipped to them. It is
// a collective operation.
//
// Contributions are summed in the order of the rank that sent them, and
// within a rank in table order, so the grids do not depend on timing.
func (ctx *Context) ConstructBaryonGrids(table *AssociationTable) error {
	gs := ctx.Grids
	gs.Stars.Zero()
	gs.Sfr.Zero()

	workers, rank := ctx.Slabs.Workers(), ctx.Rank()
	dim := ctx.Params.GridDim

	sendCounts := table.Counts(workers)
	sendCounts[rank] = 0

	sendIdx := make([]int64, 0, mpi.Total(sendCounts))
	sendVal := make([]float64, 0, depositFields*mpi.Total(sendCounts))
	for r := 0; r < workers; r++ {
		if r == rank {
			continue
		}
		offset := ctx.Slabs.Offsets[r]
		lo, hi := table.SlabRange(r)
		for _, a := range table.Entries[lo:hi] {
			idx := grid.Index(a.Cell[0]-offset, a.Cell[1], a.Cell[2],
				dim, grid.Real)
			sendIdx = append(sendIdx, int64(idx))
			sendVal = append(sendVal, a.Galaxy.StellarMass, a.Galaxy.Sfr)
		}
	}

	recvCounts, err := mpi.ExchangeCounts(ctx.Comm, sendCounts)
	if err != nil {
		return err
	}

	recvIdx := make([]int64, mpi.Total(recvCounts))
	err = ctx.Comm.AlltoallvInt64(
		sendIdx, sendCounts, mpi.Displacements(sendCounts),
		recvIdx, recvCounts, mpi.Displacements(recvCounts),
	)
	if err != nil {
		return err
	}

	sendValCounts := scaleCounts(sendCounts, depositFields)
	recvValCounts := scaleCounts(recvCounts, depositFields)
	recvVal := make([]float64, mpi.Total(recvValCounts))
	err = ctx.Comm.AlltoallvFloat64(
		sendVal, sendValCounts, mpi.Displacements(sendValCounts),
		recvVal, recvValCounts, mpi.Displacements(recvValCounts),
	)
	if err != nil {
		return err
	}

	recvDisp := mpi.Displacements(recvCounts)
	for r := 0; r < workers; r++ {
		if r == rank {
			lo, hi := table.SlabRange(r)
			for _, a := range table.Entries[lo:hi] {
				gs.Stars.Add(a.Cell[0], a.Cell[1], a.Cell[2],
					a.Galaxy.StellarMass)
				gs.Sfr.Add(a.Cell[0], a.Cell[1], a.Cell[2], a.Galaxy.Sfr)
			}
			continue
		}

		for n := recvDisp[r]; n < recvDisp[r]+recvCounts[r]; n++ {
			idx := recvIdx[n]
			if idx < 0 || idx >= int64(len(gs.Stars.Data)) {
				return fmt.Errorf("Worker %d sent a deposit to cell %d, "+
					"but this slab only has %d cells.", r, idx,
					len(gs.Stars.Data))
			}
			gs.Stars.Data[idx] += recvVal[depositFields*n]
			gs.Sfr.Data[idx] += recvVal[depositFields*n+1]
		}
	}

	floats.Scale(ctx.Params.MassUnit(), gs.Stars.Data)
	floats.Scale(ctx.Params.SfrUnit(), gs.Sfr.Data)

	if err := grid.Copy(gs.StarsPadded, gs.Stars); err != nil {
		return err
	}
	if err := grid.Copy(gs.SfrPadded, gs.Sfr); err != nil {
		return err
	}

	ctx.Log.WithFields(logrus.Fields{
		"snapshot": table.Snapshot,
		"sent":     mpi.Total(sendCounts), "received": mpi.Total(recvCounts),
		"stars":    floats.Sum(gs.Stars.Data), "sfr": floats.Sum(gs.Sfr.Data),
	}).Debug("Constructed baryon grids.")

	return nil
}

func scaleCounts(counts []int, n int) []int {
	out := make([]int, len(counts))
	for i := range counts {
		out[i] = n * counts[i]
	}
	return out
}

// GridTotal returns the sum of a Real grid over every worker's slab. It is a
// collective operation.
func (ctx *Context) GridTotal(g *grid.Grid) (float64, error) {
	if g.Layout != grid.Real {
		return 0, fmt.Errorf("Cannot total grid '%s' with the %s layout.",
			g.Name, g.Layout)
	}
	send, recv := []float64{floats.Sum(g.Data)}, []float64{0}
	if err := ctx.Comm.AllreduceSumFloat64(send, recv); err != nil {
		return 0, err
	}
	return recv[0], nil
}

// GlobalNeutralFraction returns the volume-weighted neutral fraction of the
// whole box. It is a collective operation.
func (ctx *Context) GlobalNeutralFraction() (float64, error) {
	total, err := ctx.GridTotal(ctx.Grids.XH)
	if err != nil {
		return 0, err
	}
	dim := float64(ctx.Params.GridDim)
	return total / (dim * dim * dim), nil
}
