/*package reion couples galaxies to the slab-decomposed reionization grids.

A Context belongs to one worker. It owns that worker's slab of every grid,
the slab directory shared by all workers, and the communicator used to reach
them. A snapshot is processed in this order:

   MapGalaxiesToSlabs -> ConstructBaryonGrids -> (Filter) ->
   CalculateMvirCrit -> AssignMvirCritToGalaxies

RunSnapshot does all of this with the synchronization points in between.
AssignIonizationToHalos can be called at any point after the filter has run.
*/
package reion

import (
	"github.com/sirupsen/logrus"

	"github.com/phil-mansfield/reion/lib/grid"
	"github.com/phil-mansfield/reion/lib/mpi"
	"github.com/phil-mansfield/reion/lib/slab"
)

// Context is one worker's view of the reionization grids.
type Context struct {
	Params Params
	Comm   mpi.Comm
	Slabs  *slab.Directory
	// Slab is the part of the grid owned by this worker.
	Slab  slab.Slab
	Grids *grid.Grids
	Log   logrus.FieldLogger

	// Snapshot and redshift MvirCrit was last computed for.
	mvirCritSnapshot int
	mvirCritRedshift float64
}

// NewContext builds the slab directory, checks that every worker agrees on
// it, and allocates this worker's grids. It is a collective operation.
func NewContext(
	p Params, comm mpi.Comm, log logrus.FieldLogger,
) (*Context, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	log = log.WithField("rank", comm.Rank())

	dir, err := slab.NewDirectory(p.GridDim, comm.Size())
	if err != nil {
		return nil, err
	}
	if err := dir.Check(); err != nil {
		return nil, err
	}
	if err := dir.Verify(comm); err != nil {
		return nil, err
	}

	s := dir.Slab(comm.Rank())
	log.WithFields(logrus.Fields{
		"offset": s.Offset, "width": s.Width,
	}).Debugf("Allocating %.2f GB for the reionization grids.",
		grid.GB(grid.Bytes(p.GridDim, s.Width)))

	gs, err := grid.NewGrids(p.GridDim, s.Offset, s.Width, p.MaxGridBytes)
	if err != nil {
		return nil, err
	}

	return &Context{
		Params: p, Comm: comm, Slabs: dir, Slab: s, Grids: gs, Log: log,
		mvirCritSnapshot: -1,
	}, nil
}

// Rank returns the rank of the worker that owns the Context.
func (ctx *Context) Rank() int { return ctx.Comm.Rank() }

// Close releases the grids. The Context cannot be used afterwards.
func (ctx *Context) Close() {
	if ctx.Grids != nil {
		ctx.Grids.Release()
	}
}
