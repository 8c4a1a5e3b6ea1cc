/*package catio reads and writes the whitespace-separated text catalogs used
for galaxies and halos.

Catalogs are read in blocks so that very large files never need to sit in
memory all at once. Lines may contain '#' comments.
*/
package catio

import (
	"bytes"
	"fmt"
	"io/ioutil"
	"os"
)

// TextConfig contains information neccessary for parsing catalogs.
type TextConfig struct {
	Separator byte // Character used to separated fields
	Comment   byte // Character used to start comments.
	SkipLines int  // Number of lines to skip at the start of file.
	// Map from column names to column indices.
	ColumnNames map[string]int
	// Largest amount of text you want to read at one time.
	MaxBlockSize int
	MaxLineSize  int // Largest possible line size.
}

// DefaultConfig is a TextConfig which can read the galaxy and halo catalogs.
var DefaultConfig = TextConfig{
	Separator:   ' ',
	Comment:     '#',
	SkipLines:   0,
	ColumnNames: map[string]int{},

	MaxBlockSize: 1 << 30,
	MaxLineSize:  1 << 20,
}

// Reader reads columns out of a text catalog, potentially in blocks.
// Columns may be given as []int indices or as []string names found in
// TextConfig.ColumnNames.
type Reader interface {
	// Blocks returns the number of blocks in the file.
	Blocks() int
	// ReadBlock reads the given integer and floating point columns from
	// block i.
	ReadBlock(i int, intCols, floatCols interface{}) (
		[][]int64, [][]float64, error,
	)
	// Read reads the columns from every block and concatenates them.
	Read(intCols, floatCols interface{}) ([][]int64, [][]float64, error)
}

// TextFile creates a Reader for a text catalog on disk. The file is closed
// when closer is called.
func TextFile(fname string, config ...TextConfig) (
	rd Reader, closer func() error, err error,
) {
	f, err := os.Open(fname)
	if err != nil {
		return nil, nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, err
	}

	t, err := newTextReader(f, int(info.Size()), config...)
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("Could not read catalog '%s': %w",
			fname, err)
	}
	return t, f.Close, nil
}

// Text creates a Reader for a block of text.
func Text(text []byte, config ...TextConfig) (Reader, error) {
	return newTextReader(bytes.NewReader(text), len(text), config...)
}

// Stdin creates a Reader for the text currently in stdin.
func Stdin(config ...TextConfig) (Reader, error) {
	text, err := ioutil.ReadAll(os.Stdin)
	if err != nil {
		return nil, err
	}
	return Text(text, config...)
}
