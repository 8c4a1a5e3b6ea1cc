/*package slab splits the leading axis of a cubic grid into contiguous slabs,
one per worker.

Every worker computes the same Directory independently from the grid
dimension and the worker count. Verify can be used after startup to confirm
that all workers agree.
*/
package slab

import (
	"fmt"
	"sort"

	"github.com/phil-mansfield/reion/lib/mpi"
)

// Slab is the range [Offset, Offset + Width) of the leading axis.
type Slab struct {
	Offset, Width int
}

// End returns the first plane after the slab.
func (s Slab) End() int { return s.Offset + s.Width }

// Contains returns true if plane i is in the slab.
func (s Slab) Contains(i int) bool { return i >= s.Offset && i < s.End() }

// Directory records which slab every worker owns.
type Directory struct {
	Dim     int
	Offsets []int
	Widths  []int
}

// NewDirectory splits dim planes between workers. Widths differ by at most
// one, with the extra planes going to the lowest ranks.
func NewDirectory(dim, workers int) (*Directory, error) {
	if dim < 1 {
		return nil, fmt.Errorf("GridDim = %d, but it must be positive.", dim)
	} else if workers < 1 {
		return nil, fmt.Errorf("Workers = %d, but it must be positive.",
			workers)
	} else if workers > dim {
		return nil, fmt.Errorf("Workers = %d, but GridDim = %d. Each "+
			"worker must own at least one plane of the grid.", workers, dim)
	}

	d := &Directory{
		Dim: dim, Offsets: make([]int, workers), Widths: make([]int, workers),
	}

	base, extra := dim/workers, dim%workers
	offset := 0
	for rank := range d.Widths {
		d.Widths[rank] = base
		if rank < extra {
			d.Widths[rank]++
		}
		d.Offsets[rank] = offset
		offset += d.Widths[rank]
	}

	return d, nil
}

// Workers returns the number of slabs.
func (d *Directory) Workers() int { return len(d.Widths) }

// Slab returns the slab owned by the given rank.
func (d *Directory) Slab(rank int) Slab {
	return Slab{d.Offsets[rank], d.Widths[rank]}
}

// Owner returns the rank of the worker whose slab contains plane i. It
// panics if i is outside [0, Dim).
func (d *Directory) Owner(i int) int {
	if i < 0 || i >= d.Dim {
		panic(fmt.Sprintf("Internal error: plane %d is outside a grid with "+
			"GridDim = %d.", i, d.Dim))
	}
	// Index of the first slab starting after i, minus one.
	return sort.Search(len(d.Offsets), func(r int) bool {
		return d.Offsets[r] > i
	}) - 1
}

// Check returns an error if the slabs do not cover [0, Dim) exactly once.
func (d *Directory) Check() error {
	if len(d.Offsets) != len(d.Widths) || len(d.Widths) == 0 {
		return fmt.Errorf("Slab directory has %d offsets and %d widths.",
			len(d.Offsets), len(d.Widths))
	}

	end := 0
	for rank := range d.Widths {
		if d.Offsets[rank] != end {
			return fmt.Errorf("Slab %d starts at %d, but slab %d ends at %d.",
				rank, d.Offsets[rank], rank-1, end)
		} else if d.Widths[rank] < 1 {
			return fmt.Errorf("Slab %d has width %d.", rank, d.Widths[rank])
		}
		end += d.Widths[rank]
	}

	if end != d.Dim {
		return fmt.Errorf("Slab widths sum to %d, but GridDim = %d.",
			end, d.Dim)
	}
	return nil
}

// Equal returns true if two directories describe the same partition.
func (d *Directory) Equal(other *Directory) bool {
	if d.Dim != other.Dim || len(d.Widths) != len(other.Widths) {
		return false
	}
	for i := range d.Widths {
		if d.Widths[i] != other.Widths[i] || d.Offsets[i] != other.Offsets[i] {
			return false
		}
	}
	return true
}

// Verify broadcasts rank 0's directory and returns an error if the caller's
// directory differs from it or if the communicator size does not match the
// number of slabs. It is a collective operation.
func (d *Directory) Verify(comm mpi.Comm) error {
	if comm.Size() != d.Workers() {
		return fmt.Errorf("The slab directory has %d slabs, but %d workers "+
			"are running.", d.Workers(), comm.Size())
	}

	buf := d.encode()
	if err := comm.BcastInt64(buf, 0); err != nil {
		return err
	}

	root, err := decode(buf)
	if err != nil {
		return err
	}
	if !d.Equal(root) {
		return fmt.Errorf("Worker %d computed the slab directory %v, but "+
			"worker 0 computed %v.", comm.Rank(), d, root)
	}
	return nil
}

func (d *Directory) String() string {
	return fmt.Sprintf("{Dim: %d, Offsets: %v, Widths: %v}",
		d.Dim, d.Offsets, d.Widths)
}

// encode packs the directory as [dim, workers, offsets..., widths...].
func (d *Directory) encode() []int64 {
	buf := make([]int64, 2+2*len(d.Widths))
	buf[0], buf[1] = int64(d.Dim), int64(len(d.Widths))
	for i := range d.Widths {
		buf[2+i] = int64(d.Offsets[i])
		buf[2+len(d.Widths)+i] = int64(d.Widths[i])
	}
	return buf
}

func decode(buf []int64) (*Directory, error) {
	n := int(buf[1])
	if len(buf) != 2+2*n {
		return nil, fmt.Errorf("Broadcast slab directory has %d workers, "+
			"but the local directory has %d.", n, (len(buf)-2)/2)
	}

	d := &Directory{
		Dim: int(buf[0]), Offsets: make([]int, n), Widths: make([]int, n),
	}
	for i := 0; i < n; i++ {
		d.Offsets[i] = int(buf[2+i])
		d.Widths[i] = int(buf[2+n+i])
	}
	return d, nil
}
