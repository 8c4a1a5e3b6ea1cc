package catio

import (
	"fmt"
	"io"

	"github.com/phil-mansfield/reion/lib/reion"
)

// Column layouts of the galaxy and halo catalogs.
var (
	GalaxyColumns = map[string]int{
		"id": 0, "x": 1, "y": 2, "z": 3, "type": 4, "ghost": 5,
		"stellar_mass": 6, "sfr": 7,
	}
	HaloColumns = map[string]int{"id": 0, "x": 1, "y": 2, "z": 3}
)

// GalaxyConfig and HaloConfig are DefaultConfig with the column names of
// each catalog filled in.
var (
	GalaxyConfig = withColumns(GalaxyColumns)
	HaloConfig   = withColumns(HaloColumns)
)

func withColumns(names map[string]int) TextConfig {
	config := DefaultConfig
	config.ColumnNames = names
	return config
}

// keepRow returns true if row belongs to the given rank when rows are dealt
// out round-robin between workers.
func keepRow(row, rank, workers int) bool { return row%workers == rank }

// ReadGalaxies reads every row of a galaxy catalog that belongs to rank.
// Rows are dealt out round-robin so that each galaxy is read by exactly one
// of the workers.
func ReadGalaxies(rd Reader, rank, workers int) ([]reion.Galaxy, error) {
	if rank < 0 || rank >= workers {
		return nil, fmt.Errorf("Rank %d is not in [0, %d).", rank, workers)
	}

	gals := []reion.Galaxy{}
	row := 0
	for b := 0; b < rd.Blocks(); b++ {
		icols, fcols, err := rd.ReadBlock(b,
			[]string{"id", "type", "ghost"},
			[]string{"x", "y", "z", "stellar_mass", "sfr"},
		)
		if err != nil {
			return nil, err
		}

		for i := range icols[0] {
			if keepRow(row, rank, workers) {
				gals = append(gals, reion.Galaxy{
					ID:          icols[0][i],
					Type:        int(icols[1][i]),
					Ghost:       icols[2][i] != 0,
					Pos:         [3]float64{fcols[0][i], fcols[1][i], fcols[2][i]},
					StellarMass: fcols[3][i],
					Sfr:         fcols[4][i],
				})
			}
			row++
		}
	}

	return gals, nil
}

// ReadHalos reads every row of a halo catalog for which keep returns true.
// A nil keep reads every halo.
func ReadHalos(rd Reader, keep func(h *reion.Halo) bool) ([]reion.Halo, error) {
	halos := []reion.Halo{}
	for b := 0; b < rd.Blocks(); b++ {
		icols, fcols, err := rd.ReadBlock(b,
			[]string{"id"}, []string{"x", "y", "z"})
		if err != nil {
			return nil, err
		}

		for i := range icols[0] {
			h := reion.Halo{
				ID:  icols[0][i],
				Pos: [3]float64{fcols[0][i], fcols[1][i], fcols[2][i]},
			}
			if keep == nil || keep(&h) {
				halos = append(halos, h)
			}
		}
	}

	return halos, nil
}

// WriteGalaxyMvirCrit writes the critical masses of galaxies as
// "id x y z mvir_crit".
func WriteGalaxyMvirCrit(w io.Writer, gals []reion.Galaxy) error {
	id := make([]int64, len(gals))
	fcols := [][]float64{
		make([]float64, len(gals)), make([]float64, len(gals)),
		make([]float64, len(gals)), make([]float64, len(gals)),
	}
	for i := range gals {
		id[i] = gals[i].ID
		for dim := 0; dim < 3; dim++ {
			fcols[dim][i] = gals[i].Pos[dim]
		}
		fcols[3][i] = gals[i].MvirCrit
	}

	return WriteCols(w, []string{"id", "x", "y", "z", "mvir_crit"},
		[][]int64{id}, fcols, []int{0, 1, 2, 3, 4})
}

// WriteHaloIonization writes the cell ionization of halos as
// "id x y z cell_ionization".
func WriteHaloIonization(w io.Writer, halos []reion.Halo) error {
	id := make([]int64, len(halos))
	fcols := [][]float64{
		make([]float64, len(halos)), make([]float64, len(halos)),
		make([]float64, len(halos)), make([]float64, len(halos)),
	}
	for i := range halos {
		id[i] = halos[i].ID
		for dim := 0; dim < 3; dim++ {
			fcols[dim][i] = halos[i].Pos[dim]
		}
		fcols[3][i] = halos[i].CellIonization
	}

	return WriteCols(w, []string{"id", "x", "y", "z", "cell_ionization"},
		[][]int64{id}, fcols, []int{0, 1, 2, 3, 4})
}
