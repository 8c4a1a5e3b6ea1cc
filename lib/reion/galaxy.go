package reion

// Galaxy is the part of a galaxy record the reionization grids read and
// write. Masses and rates are in internal units.
type Galaxy struct {
	ID  int64
	Pos [3]float64
	// Type 0 is a central, 1 a satellite, 2 an orphan. Larger values mark
	// galaxies that have merged or been disrupted.
	Type  int
	Ghost bool

	StellarMass float64
	Sfr         float64

	// MvirCrit is written by AssignMvirCritToGalaxies.
	MvirCrit float64
}

// Eligible returns true if the galaxy contributes to the grids.
func (g *Galaxy) Eligible() bool { return g.Type < 3 && !g.Ghost }

// Halo is a halo that needs the ionization state of its cell.
type Halo struct {
	ID  int64
	Pos [3]float64

	// CellIonization is written by AssignIonizationToHalos.
	CellIonization float64
}

const (
	// ionizedCell is the ionized fraction above which a cell counts as
	// reionized.
	ionizedCell = 0.995
	// MinReionizedTvir is the lowest virial temperature, in K, at which a
	// halo in a reionized cell can still cool.
	MinReionizedTvir = 1e5
)

// VirialTemperature converts a virial velocity in km/s to a temperature in K.
func VirialTemperature(vvir float64) float64 { return 35.9 * vvir * vvir }

// ReionizationCoolingAllowed returns false if a halo with virial velocity
// vvir (km/s) sits in an ionized cell and is too cold to keep cooling.
func ReionizationCoolingAllowed(cellIonization, vvir float64) bool {
	if cellIonization > ionizedCell {
		return VirialTemperature(vvir) >= MinReionizedTvir
	}
	return true
}
