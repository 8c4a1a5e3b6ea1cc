package gridio

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/phil-mansfield/reion/lib/format"
	"github.com/phil-mansfield/reion/lib/grid"
	"github.com/phil-mansfield/reion/lib/reion"
)

// SlabFileFormat names the file each worker writes for each grid inside a
// snapshot's grid directory.
const SlabFileFormat = "{%s,name}.{%03d,output}.zst"

// SlabFileName returns the name of the file holding rank's slab of the named
// grid.
func SlabFileName(dir, name string, rank int) string {
	fname, err := format.ExpandFileName(SlabFileFormat,
		format.FileVars{Name: name, Output: rank})
	if err != nil {
		panic(fmt.Sprintf("Internal error: %s", err.Error()))
	}
	return filepath.Join(dir, fname)
}

// Solver runs the external ionization solver on the input slabs in dir and
// leaves the output slabs next to them.
type Solver func(dir string, snapshot int, z float64) error

// Exchange hands the baryon grids to an external ionization solver through
// slab files. It writes StarsPadded and SfrPadded, runs Solver on rank 0,
// and reads back XH, ZAtIonization, and JAtIonization.
type Exchange struct {
	// DirFormat is the grid directory of each snapshot, e.g.
	// "grids/snap{%03d,snapshot}".
	DirFormat string
	// Solver may be nil if the outputs are produced some other way before
	// the filter runs.
	Solver Solver
}

// Dir returns the grid directory of a snapshot.
func (ex *Exchange) Dir(snapshot int) (string, error) {
	return format.ExpandFileName(ex.DirFormat,
		format.FileVars{Snapshot: snapshot})
}

// Inputs and outputs of the external solver.
func inputs(gs *grid.Grids) []*grid.Grid {
	return []*grid.Grid{gs.StarsPadded, gs.SfrPadded}
}

func outputs(gs *grid.Grids) []*grid.Grid {
	return []*grid.Grid{gs.XH, gs.ZAtIonization, gs.JAtIonization}
}

// WriteInputs writes this worker's slabs of the solver's input grids.
func (ex *Exchange) WriteInputs(
	ctx *reion.Context, snapshot int, z float64,
) error {
	dir, err := ex.Dir(snapshot)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	for _, g := range inputs(ctx.Grids) {
		fname := SlabFileName(dir, g.Name, ctx.Rank())
		if err := Write(fname, g, snapshot, z); err != nil {
			return err
		}
	}
	return nil
}

// ReadOutputs reads this worker's slabs of the solver's output grids.
func (ex *Exchange) ReadOutputs(ctx *reion.Context, snapshot int) error {
	dir, err := ex.Dir(snapshot)
	if err != nil {
		return err
	}

	for _, g := range outputs(ctx.Grids) {
		fname := SlabFileName(dir, g.Name, ctx.Rank())
		hd, err := ReadInto(fname, g)
		if err != nil {
			return err
		}
		if hd.Snapshot != int64(snapshot) {
			return fmt.Errorf("%s was written for snapshot %d, not "+
				"snapshot %d.", fname, hd.Snapshot, snapshot)
		}
	}
	return nil
}

// WriteOutputs writes this worker's slabs of the solver's output grids. It
// is what an in-process solver uses to hand its results to ReadOutputs.
func (ex *Exchange) WriteOutputs(
	ctx *reion.Context, snapshot int, z float64,
) error {
	dir, err := ex.Dir(snapshot)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	for _, g := range outputs(ctx.Grids) {
		fname := SlabFileName(dir, g.Name, ctx.Rank())
		if err := Write(fname, g, snapshot, z); err != nil {
			return err
		}
	}
	return nil
}

// Filter implements reion.Filter. It is a collective operation.
func (ex *Exchange) Filter(ctx *reion.Context, snapshot int, z float64) error {
	log := ctx.Log.WithFields(logrus.Fields{
		"snapshot": snapshot, "redshift": z,
	})

	if err := ex.WriteInputs(ctx, snapshot, z); err != nil {
		return err
	}
	if err := ctx.Comm.Barrier(); err != nil {
		return err
	}

	if ex.Solver != nil && ctx.Rank() == 0 {
		dir, err := ex.Dir(snapshot)
		if err != nil {
			return err
		}
		log.WithField("dir", dir).Info("Running ionization solver.")
		if err := ex.Solver(dir, snapshot, z); err != nil {
			return fmt.Errorf("Ionization solver failed: %w", err)
		}
	}
	if err := ctx.Comm.Barrier(); err != nil {
		return err
	}

	if err := ex.ReadOutputs(ctx, snapshot); err != nil {
		return err
	}
	log.Debug("Read ionization grids.")
	return nil
}
