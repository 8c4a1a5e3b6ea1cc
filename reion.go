package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/phil-mansfield/reion/lib/config"
	r_error "github.com/phil-mansfield/reion/lib/error"
	"github.com/phil-mansfield/reion/lib/slab"
)

// solverCommand is the shell command feedback runs between writing the
// baryon grids and reading the ionization grids.
var solverCommand string

func init() {
	Root.AddCommand(exampleCmd)
	Root.AddCommand(checkCmd)
	Root.AddCommand(depositCmd)
	Root.AddCommand(feedbackCmd)

	feedbackCmd.Flags().StringVar(&solverCommand, "solver", "",
		"Shell command that turns the baryon grids into ionization grids. "+
			"It is run once per snapshot with REION_GRID_DIR, "+
			"REION_SNAPSHOT, and REION_REDSHIFT set. If empty, the "+
			"ionization grids must already be in GridDir.")
}

func main() {
	if err := Root.Execute(); err != nil {
		os.Exit(1)
	}
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "reion",
	Short: "Couples galaxies to slab-decomposed reionization grids.",
	Long: `reion deposits the stellar mass and star formation rate of galaxies onto
reionization grids split between workers, and feeds the ionization state of
those grids back to galaxies and halos. Every command except example takes a
config file; run 'reion example' to see one.`,
	DisableAutoGenTag: true,
}

var exampleCmd = &cobra.Command{
	Use:   "example",
	Short: "Print an example config file.",
	Run: func(cmd *cobra.Command, args []string) {
		os.Stdout.WriteString(config.Example + "\n")
	},
	DisableAutoGenTag: true,
}

// checkCmd runs reion's "check" mode which tests for errors in the
// configuration without running anything.
var checkCmd = &cobra.Command{
	Use:   "check <config file>",
	Short: "Check a config file for errors.",
	Long: `check validates a config file, confirms that every snapshot has a redshift
and a galaxy catalog, and prints how the grid will be split between workers.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		con := readConfig(args[0])
		if err := Check(con); err != nil {
			r_error.External("%s", err.Error())
		}
		fmt.Println("No errors detected.")
	},
	DisableAutoGenTag: true,
}

var depositCmd = &cobra.Command{
	Use:   "deposit <config file>",
	Short: "Write the baryon grids of every snapshot.",
	Long: `deposit builds the stellar mass and star formation rate grids from the galaxy
catalog of every snapshot and writes each worker's slab to GridDir, where
the ionization solver can pick them up.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		con := readConfig(args[0])
		if err := Launch(con, Deposit); err != nil {
			r_error.Report(err)
		}
	},
	DisableAutoGenTag: true,
}

var feedbackCmd = &cobra.Command{
	Use:   "feedback <config file>",
	Short: "Assign critical masses and cell ionizations.",
	Long: `feedback runs the full reionization step for every snapshot: it builds the
baryon grids, runs the ionization solver, calculates the critical mass grid,
and writes the critical mass of every galaxy and the cell ionization of every
halo to OutputDir.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		con := readConfig(args[0])
		if err := Launch(con, Feedback); err != nil {
			r_error.Report(err)
		}
	},
	DisableAutoGenTag: true,
}

func readConfig(fname string) *config.ReionConfig {
	con, err := config.Read(fname)
	if err != nil {
		r_error.External("%s", err.Error())
	}

	level, _ := con.Level()
	r_error.Logger.SetLevel(level)
	return con
}

// Check tests for errors that Validate can't find without touching the file
// system and logs the slab layout.
func Check(con *config.ReionConfig) error {
	snaps, err := con.SnapshotList()
	if err != nil {
		return err
	}
	if _, err := con.RedshiftList(snaps); err != nil {
		return err
	}

	for _, snap := range snaps {
		if _, err := catalogName(con.GalaxyCatalog, snap); err != nil {
			return err
		}
		if con.HaloCatalog == "" {
			continue
		}
		if _, err := catalogName(con.HaloCatalog, snap); err != nil {
			return err
		}
	}

	dir, err := slab.NewDirectory(con.GridDim, con.Workers)
	if err != nil {
		return err
	}
	p, err := con.Params()
	if err != nil {
		return err
	}

	for rank := 0; rank < dir.Workers(); rank++ {
		s := dir.Slab(rank)
		if err := checkMemory(p.GridDim, s.Width, p.MaxGridBytes); err != nil {
			return err
		}
		fmt.Printf("worker %3d: planes [%d, %d), %.3f GB\n", rank,
			s.Offset, s.End(), gridGB(p.GridDim, s.Width))
	}
	return nil
}

// catalogName returns the catalog file of a snapshot and checks that it
// exists.
func catalogName(format string, snap int) (string, error) {
	fname, err := expandSnapshot(format, snap)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(fname); err != nil {
		return "", fmt.Errorf("Catalog for snapshot %d: %w", snap, err)
	}
	return fname, nil
}
