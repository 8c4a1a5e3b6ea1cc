/*package gridio reads and writes single slabs of reionization grids.

A slab file is a fixed-size header followed by the slab's values. The values
are split into eight byte planes, most significant plane last, and each plane
is compressed with zstd separately. Neighboring cells usually share their
high bytes, so those planes compress to almost nothing.
*/
package gridio

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/DataDog/zstd"

	"github.com/phil-mansfield/reion/lib/grid"
)

const (
	// MagicNumber is an arbirary number at the start of all slab files
	// which should help identify when the code is run on somehting else by
	// accident.
	MagicNumber = 0xbadf00d1
	// ReverseMagicNumber is the magic number if read on a machine with
	// flipped endianness.
	ReverseMagicNumber = 0xd100dfba
	Version            = 1

	// compressionLevel is the zstd level used for every byte plane.
	compressionLevel = 1
)

// Header describes the slab stored in a file.
type Header struct {
	Version uint32
	Layout  uint32
	// Dim is the size of the global grid and [Offset, Offset + Width) is the
	// range of the leading axis stored in the file.
	Dim, Offset, Width int64
	// Len is the number of values in the file, including padding.
	Len int64

	Snapshot int64
	Redshift float64
}

// Check returns an error if the header does not describe a valid slab.
func (hd *Header) Check() error {
	layout := grid.Layout(hd.Layout)
	switch {
	case layout != grid.Real && layout != grid.Padded:
		return fmt.Errorf("Slab files can only store Real or Padded "+
			"grids, not %s.", layout)
	case hd.Dim < 1 || hd.Offset < 0 || hd.Width < 0 ||
		hd.Offset+hd.Width > hd.Dim:
		return fmt.Errorf("The slab [%d, %d) does not fit in a grid with "+
			"dim = %d.", hd.Offset, hd.Offset+hd.Width, hd.Dim)
	case hd.Len != int64(layout.SlabLen(int(hd.Width), int(hd.Dim))):
		return fmt.Errorf("A %s slab of width %d with dim = %d has %d "+
			"values, but the header says %d.", layout, hd.Width, hd.Dim,
			layout.SlabLen(int(hd.Width), int(hd.Dim)), hd.Len)
	}
	return nil
}

// Matches returns an error if the header describes a different slab than g.
func (hd *Header) Matches(g *grid.Grid) error {
	if hd.Dim != int64(g.Dim) || hd.Offset != int64(g.Offset) ||
		hd.Width != int64(g.Width) {
		return fmt.Errorf("The file holds the slab [%d, %d) of a grid with "+
			"dim = %d, but grid '%s' is the slab [%d, %d) of a grid with "+
			"dim = %d.", hd.Offset, hd.Offset+hd.Width, hd.Dim, g.Name,
			g.Offset, g.Offset+g.Width, g.Dim)
	}
	return nil
}

// Write writes g to fname.
func Write(fname string, g *grid.Grid, snapshot int, z float64) error {
	f, err := os.Create(fname)
	if err != nil {
		return err
	}

	wr := bufio.NewWriter(f)
	if err := WriteTo(wr, g, snapshot, z); err != nil {
		f.Close()
		return fmt.Errorf("Could not write grid '%s' to %s: %w",
			g.Name, fname, err)
	}
	if err := wr.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// WriteTo writes g to an io.Writer in little-endian order.
func WriteTo(w io.Writer, g *grid.Grid, snapshot int, z float64) error {
	hd := &Header{
		Version: Version, Layout: uint32(g.Layout),
		Dim: int64(g.Dim), Offset: int64(g.Offset), Width: int64(g.Width),
		Len: int64(len(g.Data)), Snapshot: int64(snapshot), Redshift: z,
	}
	if err := hd.Check(); err != nil {
		return err
	}

	order := binary.LittleEndian
	if err := binary.Write(w, order, uint32(MagicNumber)); err != nil {
		return err
	}
	if err := binary.Write(w, order, hd); err != nil {
		return err
	}

	return writeCompressedFloats(w, g.Data)
}

// Read reads a slab file into a new grid.
func Read(fname, name string) (*grid.Grid, *Header, error) {
	f, err := os.Open(fname)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	g, hd, err := ReadFrom(bufio.NewReader(f), name)
	if err != nil {
		return nil, nil, fmt.Errorf("Could not read %s: %w", fname, err)
	}
	return g, hd, nil
}

// ReadInto reads a slab file into g. The file must hold the same slab as g,
// but may use a different layout.
func ReadInto(fname string, g *grid.Grid) (*Header, error) {
	tmp, hd, err := Read(fname, g.Name)
	if err != nil {
		return nil, err
	}
	if err := hd.Matches(g); err != nil {
		return nil, fmt.Errorf("Could not read %s: %w", fname, err)
	}
	return hd, grid.Copy(g, tmp)
}

// ReadFrom reads a slab from an io.Reader into a new grid with the given
// name.
func ReadFrom(rd io.Reader, name string) (*grid.Grid, *Header, error) {
	order, err := checkMagic(rd)
	if err != nil {
		return nil, nil, err
	}

	hd := &Header{}
	if err := binary.Read(rd, order, hd); err != nil {
		return nil, nil, err
	}
	if hd.Version > Version {
		return nil, nil, fmt.Errorf("The file was written with slab file "+
			"version %d, but this code can only read up to version %d.",
			hd.Version, Version)
	}
	if err := hd.Check(); err != nil {
		return nil, nil, err
	}

	g := grid.New(name, grid.Layout(hd.Layout), int(hd.Dim),
		int(hd.Offset), int(hd.Width))
	if err := readCompressedFloats(rd, g.Data); err != nil {
		return nil, nil, err
	}
	return g, hd, nil
}

// checkMagic reads in the file's magic number and returns the byte order
// of the file.
func checkMagic(rd io.Reader) (binary.ByteOrder, error) {
	var magicNumber uint32
	if err := binary.Read(rd, binary.LittleEndian, &magicNumber); err != nil {
		return nil, err
	}

	switch magicNumber {
	case MagicNumber:
		return binary.LittleEndian, nil
	case ReverseMagicNumber:
		return binary.BigEndian, nil
	}
	return nil, fmt.Errorf("This is not a slab file. All slab files begin "+
		"with either the 32-bit integer %x or %x. This file begins with %x.",
		MagicNumber, ReverseMagicNumber, magicNumber)
}

// floatToByte writes one byte plane of x into b.
func floatToByte(x []float64, b []byte, plane int) {
	for i := range x {
		b[i] = byte(math.Float64bits(x[i]) >> (8 * plane))
	}
}

// byteToFloat adds one byte plane to the bits stored in u.
func byteToFloat(b []byte, u []uint64, plane int) {
	for i := range u {
		u[i] |= uint64(b[i]) << (8 * plane)
	}
}

// writeCompressedFloats writes x as eight length-prefixed zstd blocks, one
// per byte plane.
func writeCompressedFloats(w io.Writer, x []float64) error {
	b := make([]byte, len(x))
	var buf []byte

	for plane := 0; plane < 8; plane++ {
		floatToByte(x, b, plane)

		var err error
		buf, err = zstd.CompressLevel(buf, b, compressionLevel)
		if err != nil {
			return err
		}

		err = binary.Write(w, binary.LittleEndian, int64(len(buf)))
		if err != nil {
			return err
		}
		if _, err = w.Write(buf); err != nil {
			return err
		}
	}

	return nil
}

// readCompressedFloats is the inverse of writeCompressedFloats.
func readCompressedFloats(rd io.Reader, x []float64) error {
	u := make([]uint64, len(x))
	var buf, b []byte

	for plane := 0; plane < 8; plane++ {
		n := int64(0)
		if err := binary.Read(rd, binary.LittleEndian, &n); err != nil {
			return err
		}
		if n < 0 {
			return fmt.Errorf("Byte plane %d has negative length %d.",
				plane, n)
		}

		buf = resizeBytes(buf, int(n))
		if _, err := io.ReadFull(rd, buf); err != nil {
			return err
		}

		var err error
		b, err = zstd.Decompress(b[:0], buf)
		if err != nil {
			return err
		}
		if len(b) != len(x) {
			return fmt.Errorf("Byte plane %d has %d values, but the "+
				"header says %d.", plane, len(b), len(x))
		}

		byteToFloat(b, u, plane)
	}

	for i := range x {
		x[i] = math.Float64frombits(u[i])
	}
	return nil
}

// resizeBytes resizes a byte buffer to have length n.
func resizeBytes(b []byte, n int) []byte {
	if cap(b) >= n {
		return b[:n]
	}
	b = b[:cap(b)]
	return append(b, make([]byte, n-len(b))...)
}
