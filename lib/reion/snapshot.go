package reion

import (
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
)

// Filter turns the padded baryon grids into the ionization grids: XH,
// ZAtIonization, and JAtIonization. It is called on every worker at once and
// may communicate.
type Filter interface {
	Filter(ctx *Context, snapshot int, redshift float64) error
}

// RunSnapshot runs every grid step for one snapshot: it maps galaxies to
// slabs, builds the baryon grids, runs the filter, calculates the critical
// mass grid, and assigns critical masses to the galaxies. A nil filter
// leaves the ionization grids as they were, and so does a box that has
// finished reionizing: once no cell is neutral the filter is not called
// again. It is a collective operation.
func (ctx *Context) RunSnapshot(
	snapshot int, z float64, gals []Galaxy, filter Filter,
) (*AssociationTable, error) {
	log := ctx.Log.WithFields(logrus.Fields{
		"snapshot": snapshot, "redshift": z,
	})

	table := ctx.MapGalaxiesToSlabs(snapshot, z, gals)
	if err := ctx.ConstructBaryonGrids(table); err != nil {
		return nil, err
	}
	if err := ctx.Comm.Barrier(); err != nil {
		return nil, err
	}

	if filter != nil {
		ongoing, err := ctx.ReionizationOngoing()
		if err != nil {
			return nil, err
		}

		if ongoing {
			if err := filter.Filter(ctx, snapshot, z); err != nil {
				return nil, err
			}
		} else {
			log.Debug("Box is fully ionized, skipping the filter.")
		}
	}

	ctx.CalculateMvirCrit(snapshot, z)
	if err := ctx.Comm.Barrier(); err != nil {
		return nil, err
	}

	if err := ctx.AssignMvirCritToGalaxies(table); err != nil {
		return nil, err
	}

	log.WithField("galaxies", table.Len()).Info("Finished reionization step.")
	return table, nil
}

// ReionizationOngoing returns true if any cell of any worker's slab still
// has a neutral fraction above zero. It is a collective operation.
func (ctx *Context) ReionizationOngoing() (bool, error) {
	neutral := 0.0
	if floats.Max(ctx.Grids.XH.Data) > 0 {
		neutral = 1
	}

	send, recv := []float64{neutral}, []float64{0}
	if err := ctx.Comm.AllreduceSumFloat64(send, recv); err != nil {
		return false, err
	}
	return recv[0] > 0, nil
}
