package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/phil-mansfield/reion/lib/catio"
	"github.com/phil-mansfield/reion/lib/config"
	r_error "github.com/phil-mansfield/reion/lib/error"
	"github.com/phil-mansfield/reion/lib/format"
	"github.com/phil-mansfield/reion/lib/grid"
	"github.com/phil-mansfield/reion/lib/gridio"
	"github.com/phil-mansfield/reion/lib/mpi"
	"github.com/phil-mansfield/reion/lib/reion"
)

// Mode is the work a command does for one snapshot on one worker.
type Mode func(
	ctx *reion.Context, con *config.ReionConfig, snap int, z float64,
) error

// Launch starts con.Workers workers and has each of them run mode on every
// snapshot in order.
func Launch(con *config.ReionConfig, mode Mode) error {
	if con.GridDir == "" {
		return fmt.Errorf("GridDir must be set to deposit or read grids.")
	}

	snaps, err := con.SnapshotList()
	if err != nil {
		return err
	}
	zs, err := con.RedshiftList(snaps)
	if err != nil {
		return err
	}
	p, err := con.Params()
	if err != nil {
		return err
	}

	return mpi.Launch(con.Workers, func(comm mpi.Comm) error {
		ctx, err := reion.NewContext(p, comm, r_error.Logger)
		if err != nil {
			return err
		}
		defer ctx.Close()

		for i := range snaps {
			if err := mode(ctx, con, snaps[i], zs[i]); err != nil {
				return fmt.Errorf("Snapshot %d: %w", snaps[i], err)
			}
		}
		return nil
	})
}

// Deposit writes this worker's slabs of the baryon grids.
func Deposit(
	ctx *reion.Context, con *config.ReionConfig, snap int, z float64,
) error {
	gals, err := readGalaxies(ctx, con, snap)
	if err != nil {
		return err
	}

	table := ctx.MapGalaxiesToSlabs(snap, z, gals)
	if err := ctx.ConstructBaryonGrids(table); err != nil {
		return err
	}

	ex := &gridio.Exchange{DirFormat: con.GridDir}
	if err := ex.WriteInputs(ctx, snap, z); err != nil {
		return err
	}

	stars, err := ctx.GridTotal(ctx.Grids.Stars)
	if err != nil {
		return err
	}
	ctx.Log.WithFields(logrus.Fields{
		"snapshot": snap, "redshift": z, "stellar_mass": stars,
	}).Info("Wrote baryon grids.")
	return nil
}

// Feedback runs the full reionization step and writes the critical masses
// of this worker's galaxies and the cell ionizations of the halos in its
// slab.
func Feedback(
	ctx *reion.Context, con *config.ReionConfig, snap int, z float64,
) error {
	gals, err := readGalaxies(ctx, con, snap)
	if err != nil {
		return err
	}

	ex := &gridio.Exchange{DirFormat: con.GridDir}
	if solverCommand != "" {
		ex.Solver = ShellSolver(solverCommand)
	}
	if _, err := ctx.RunSnapshot(snap, z, gals, ex); err != nil {
		return err
	}

	outDir, err := expandSnapshot(con.OutputDir, snap)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return err
	}

	err = writeFile(outputName(outDir, "galaxies", ctx.Rank()),
		func(f *os.File) error { return catio.WriteGalaxyMvirCrit(f, gals) })
	if err != nil {
		return err
	}

	if con.HaloCatalog != "" {
		halos, err := readHalos(ctx, con, snap)
		if err != nil {
			return err
		}
		if err := ctx.AssignIonizationToHalos(halos, ctx.Grids.XH); err != nil {
			return err
		}
		err = writeFile(outputName(outDir, "halos", ctx.Rank()),
			func(f *os.File) error { return catio.WriteHaloIonization(f, halos) })
		if err != nil {
			return err
		}
	}

	xH, err := ctx.GlobalNeutralFraction()
	if err != nil {
		return err
	}
	if ctx.Rank() == 0 {
		ctx.Log.WithFields(logrus.Fields{
			"snapshot": snap, "redshift": z, "xH": xH,
		}).Info("Global neutral fraction.")
	}
	return nil
}

// ShellSolver returns a gridio.Solver which runs command with sh. The
// snapshot's grid directory, snapshot, and redshift are passed through the
// environment.
func ShellSolver(command string) gridio.Solver {
	return func(dir string, snapshot int, z float64) error {
		cmd := exec.Command("sh", "-c", command)
		cmd.Env = append(os.Environ(),
			"REION_GRID_DIR="+dir,
			"REION_SNAPSHOT="+strconv.Itoa(snapshot),
			"REION_REDSHIFT="+strconv.FormatFloat(z, 'g', -1, 64),
		)
		cmd.Stdout, cmd.Stderr = os.Stderr, os.Stderr
		return cmd.Run()
	}
}

func readGalaxies(
	ctx *reion.Context, con *config.ReionConfig, snap int,
) ([]reion.Galaxy, error) {
	fname, err := expandSnapshot(con.GalaxyCatalog, snap)
	if err != nil {
		return nil, err
	}
	rd, closer, err := catio.TextFile(fname, catio.GalaxyConfig)
	if err != nil {
		return nil, err
	}
	defer closer()

	return catio.ReadGalaxies(rd, ctx.Rank(), ctx.Comm.Size())
}

func readHalos(
	ctx *reion.Context, con *config.ReionConfig, snap int,
) ([]reion.Halo, error) {
	fname, err := expandSnapshot(con.HaloCatalog, snap)
	if err != nil {
		return nil, err
	}
	rd, closer, err := catio.TextFile(fname, catio.HaloConfig)
	if err != nil {
		return nil, err
	}
	defer closer()

	return catio.ReadHalos(rd, ctx.OwnsHalo)
}

func expandSnapshot(fileFormat string, snap int) (string, error) {
	return format.ExpandFileName(fileFormat, format.FileVars{Snapshot: snap})
}

func outputName(dir, name string, rank int) string {
	return filepath.Join(dir, fmt.Sprintf("%s.%03d.txt", name, rank))
}

func writeFile(fname string, write func(f *os.File) error) error {
	f, err := os.Create(fname)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func gridGB(dim, width int) float64 {
	return grid.GB(grid.Bytes(dim, width))
}

func checkMemory(dim, width int, maxBytes int64) error {
	n := grid.Bytes(dim, width)
	if maxBytes > 0 && n > maxBytes {
		return fmt.Errorf("A slab %d planes wide needs %.3f GB of grids, "+
			"but MaxGridMemoryGB is %.3f.", width, grid.GB(n),
			grid.GB(maxBytes))
	}
	return nil
}
