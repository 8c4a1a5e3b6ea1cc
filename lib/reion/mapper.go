package reion

import (
	"sort"

	"github.com/sirupsen/logrus"
)

// Association links one eligible galaxy to the cell and slab that contain it.
type Association struct {
	// Index is the position of the galaxy in the slice passed to
	// MapGalaxiesToSlabs.
	Index  int
	Slab   int
	Cell   [3]int
	Galaxy *Galaxy
}

// AssociationTable lists this worker's eligible galaxies sorted by the slab
// that owns them. It is only valid for the snapshot and redshift it was
// built for.
type AssociationTable struct {
	Snapshot int
	Redshift float64
	Entries  []Association
}

// Len returns the number of associated galaxies.
func (t *AssociationTable) Len() int { return len(t.Entries) }

// SlabRange returns the range of Entries owned by the given rank.
func (t *AssociationTable) SlabRange(rank int) (lo, hi int) {
	lo = sort.Search(len(t.Entries), func(i int) bool {
		return t.Entries[i].Slab >= rank
	})
	hi = sort.Search(len(t.Entries), func(i int) bool {
		return t.Entries[i].Slab > rank
	})
	return lo, hi
}

// Counts returns the number of entries owned by each rank.
func (t *AssociationTable) Counts(workers int) []int {
	counts := make([]int, workers)
	for i := range t.Entries {
		counts[t.Entries[i].Slab]++
	}
	return counts
}

// MapGalaxiesToSlabs finds the cell and owning slab of every eligible galaxy.
// Ineligible galaxies get a MvirCrit of zero and are left out of the table.
// The table is sorted by slab and, within a slab, by input order. gals must
// not be resized while the table is in use.
func (ctx *Context) MapGalaxiesToSlabs(
	snapshot int, z float64, gals []Galaxy,
) *AssociationTable {
	table := &AssociationTable{
		Snapshot: snapshot, Redshift: z,
		Entries: make([]Association, 0, len(gals)),
	}

	for i := range gals {
		gal := &gals[i]
		if !gal.Eligible() {
			gal.MvirCrit = 0
			continue
		}

		cell := ctx.Params.Cell(gal.Pos)
		table.Entries = append(table.Entries, Association{
			Index: i, Slab: ctx.Slabs.Owner(cell[0]), Cell: cell, Galaxy: gal,
		})
	}

	sort.SliceStable(table.Entries, func(i, j int) bool {
		return table.Entries[i].Slab < table.Entries[j].Slab
	})

	ctx.Log.WithFields(logrus.Fields{
		"snapshot": snapshot, "galaxies": len(gals),
		"associated": len(table.Entries),
	}).Debug("Mapped galaxies to slabs.")

	return table
}
