/*package config reads the INI-style configuration files that drive a
reionization run.
*/
package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/gcfg.v1"

	"github.com/phil-mansfield/reion/lib/catio"
	"github.com/phil-mansfield/reion/lib/format"
	"github.com/phil-mansfield/reion/lib/reion"
)

const Example = `[Reion]

#######################
# Required Parameters #
#######################

# Number of cells on one side of the reionization grid.
GridDim = 64
# Side length of the simulation box in Mpc/h.
BoxSize = 100
# Dimensionless Hubble parameter.
HubbleH = 0.678

# Number of workers the grid is split between. Must be no larger than
# GridDim. When running under mpirun this must equal the number of processes.
Workers = 4

# Snapshots to process, written as a sequence format (e.g. 0..100 - 63).
Snapshots = 20..30
# Redshifts of the snapshots, either as a comma-separated list with one entry
# per snapshot or as the name of a text file with the columns
# "snapshot redshift".
Redshifts = 10.5, 10.2, 9.9, 9.6, 9.3, 9.0, 8.7, 8.4, 8.1, 7.8, 7.5

# File formats for the inputs and outputs of each snapshot. Variables are
# written as {verb,rule}, where rule is "snapshot", "output" (the worker
# rank), or "name" (the grid name, for GridDir only).
GalaxyCatalog = galaxies/snap{%03d,snapshot}.txt
HaloCatalog = halos/snap{%03d,snapshot}.txt
GridDir = grids/snap{%03d,snapshot}
OutputDir = output/snap{%03d,snapshot}

#######################
# Optional Parameters #
#######################

# How positions outside [0, BoxSize) are handled: "periodic" wraps them back
# into the box and "strict" treats them as an error. Default is periodic.
# Boundary = periodic

# Floor of the critical mass field, in Msol.
# AtomicCoolingMass = 1e8

# Parameters of the Sobacchi & Mesinger (2013) critical mass model:
# M0 ((1+z)/10)^A J^B (1 - ((1+z)/(1+z_ion))^C)^D
# SMParamM0 = 2.8e9
# SMParamA = -2.1
# SMParamB = 0.17
# SMParamC = 2.0
# SMParamD = 2.5

# Largest amount of memory, in GB, each worker may use for its grids. Zero
# means no limit.
# MaxGridMemoryGB = 0

# One of panic, fatal, error, warn, info, debug, or trace. Default is info.
# LogLevel = info`

// ReionConfig holds the [Reion] section of a config file.
type ReionConfig struct {
	// Required
	GridDim          int
	BoxSize, HubbleH float64
	Workers          int

	Snapshots, Redshifts string

	GalaxyCatalog, HaloCatalog string
	GridDir, OutputDir         string

	// Optional
	Boundary string

	AtomicCoolingMass float64
	SMParamM0         float64
	SMParamA          float64
	SMParamB          float64
	SMParamC          float64
	SMParamD          float64

	MaxGridMemoryGB float64
	LogLevel        string
}

// Wrapper is the type gcfg reads config files into.
type Wrapper struct {
	Reion ReionConfig
}

// DefaultWrapper returns a Wrapper with every optional parameter set to its
// default value.
func DefaultWrapper() *Wrapper {
	p := reion.DefaultParams()
	return &Wrapper{ReionConfig{
		Boundary:          p.Boundary.String(),
		AtomicCoolingMass: p.AtomicCoolingMass,
		SMParamM0:         p.SMParamM0,
		SMParamA:          p.SMParamA,
		SMParamB:          p.SMParamB,
		SMParamC:          p.SMParamC,
		SMParamD:          p.SMParamD,
		LogLevel:          "info",
	}}
}

// Read reads and validates a config file.
func Read(fname string) (*ReionConfig, error) {
	w := DefaultWrapper()
	if err := gcfg.ReadFileInto(w, fname); err != nil {
		return nil, err
	}
	if err := w.Reion.Validate(); err != nil {
		return nil, fmt.Errorf("Config file '%s' is invalid: %w", fname, err)
	}
	return &w.Reion, nil
}

// ReadString reads and validates config text.
func ReadString(text string) (*ReionConfig, error) {
	w := DefaultWrapper()
	if err := gcfg.ReadStringInto(w, text); err != nil {
		return nil, err
	}
	if err := w.Reion.Validate(); err != nil {
		return nil, err
	}
	return &w.Reion, nil
}

func (con *ReionConfig) ValidWorkers() bool {
	return con.Workers > 0 && con.Workers <= con.GridDim
}

func (con *ReionConfig) ValidMaxGridMemoryGB() bool {
	return con.MaxGridMemoryGB >= 0 && !math.IsInf(con.MaxGridMemoryGB, 0)
}

// Validate returns an error naming the first invalid parameter. It does not
// touch the file system.
func (con *ReionConfig) Validate() error {
	if _, err := con.Params(); err != nil {
		return err
	}

	switch {
	case !con.ValidWorkers():
		return fmt.Errorf("Workers = %d, but it must be in [1, GridDim] = "+
			"[1, %d].", con.Workers, con.GridDim)
	case !con.ValidMaxGridMemoryGB():
		return fmt.Errorf("MaxGridMemoryGB = %g, but it must be "+
			"non-negative.", con.MaxGridMemoryGB)
	case con.Snapshots == "":
		return fmt.Errorf("Snapshots must be set.")
	case con.Redshifts == "":
		return fmt.Errorf("Redshifts must be set.")
	case con.GalaxyCatalog == "":
		return fmt.Errorf("GalaxyCatalog must be set.")
	case con.OutputDir == "":
		return fmt.Errorf("OutputDir must be set.")
	}

	if _, err := con.SnapshotList(); err != nil {
		return err
	}
	if _, err := con.Level(); err != nil {
		return err
	}

	formats := []struct{ name, val string }{
		{"GalaxyCatalog", con.GalaxyCatalog},
		{"HaloCatalog", con.HaloCatalog},
		{"GridDir", con.GridDir},
		{"OutputDir", con.OutputDir},
	}
	for _, f := range formats {
		if f.val == "" {
			continue
		}
		if _, err := format.NewFileFormatComponents(f.val); err != nil {
			return fmt.Errorf("%s is invalid: %w", f.name, err)
		}
	}

	return nil
}

// Params converts the config into the parameters used by the grids.
func (con *ReionConfig) Params() (reion.Params, error) {
	boundary, err := reion.ParseBoundary(con.Boundary)
	if err != nil {
		return reion.Params{}, err
	}

	p := reion.Params{
		GridDim:  con.GridDim,
		BoxSize:  con.BoxSize,
		HubbleH:  con.HubbleH,
		Boundary: boundary,

		AtomicCoolingMass: con.AtomicCoolingMass,
		SMParamM0:         con.SMParamM0,
		SMParamA:          con.SMParamA,
		SMParamB:          con.SMParamB,
		SMParamC:          con.SMParamC,
		SMParamD:          con.SMParamD,

		MaxGridBytes: int64(con.MaxGridMemoryGB * (1 << 30)),
	}
	return p, p.Validate()
}

// SnapshotList expands Snapshots.
func (con *ReionConfig) SnapshotList() ([]int, error) {
	return format.ExpandSnapshotFormat(con.Snapshots)
}

// Level returns the logrus level named by LogLevel.
func (con *ReionConfig) Level() (logrus.Level, error) {
	if con.LogLevel == "" {
		return logrus.InfoLevel, nil
	}
	level, err := logrus.ParseLevel(con.LogLevel)
	if err != nil {
		return logrus.InfoLevel, fmt.Errorf("LogLevel = '%s' is not a "+
			"known log level.", con.LogLevel)
	}
	return level, nil
}

// RedshiftList returns the redshift of each snapshot in snaps. Redshifts may
// be a comma-separated list with one entry per snapshot or the name of a
// text file with the columns "snapshot redshift".
func (con *ReionConfig) RedshiftList(snaps []int) ([]float64, error) {
	if _, err := os.Stat(con.Redshifts); err == nil {
		return readRedshiftFile(con.Redshifts, snaps)
	}

	tok := strings.Split(con.Redshifts, ",")
	if len(tok) != len(snaps) {
		return nil, fmt.Errorf("Redshifts has %d entries, but Snapshots "+
			"has %d.", len(tok), len(snaps))
	}

	zs := make([]float64, len(tok))
	for i := range tok {
		z, err := strconv.ParseFloat(strings.TrimSpace(tok[i]), 64)
		if err != nil {
			return nil, fmt.Errorf("Redshift %d, '%s', is not a number.",
				i, strings.TrimSpace(tok[i]))
		}
		zs[i] = z
	}
	return zs, nil
}

func readRedshiftFile(fname string, snaps []int) ([]float64, error) {
	rd, closer, err := catio.TextFile(fname)
	if err != nil {
		return nil, err
	}
	defer closer()

	icols, fcols, err := rd.Read([]int{0}, []int{1})
	if err != nil {
		return nil, fmt.Errorf("Could not read redshift file '%s': %w",
			fname, err)
	}

	table := map[int]float64{}
	for i := range icols[0] {
		table[int(icols[0][i])] = fcols[0][i]
	}

	zs := make([]float64, len(snaps))
	for i, snap := range snaps {
		z, ok := table[snap]
		if !ok {
			return nil, fmt.Errorf("Redshift file '%s' has no entry for "+
				"snapshot %d.", fname, snap)
		}
		zs[i] = z
	}
	return zs, nil
}
