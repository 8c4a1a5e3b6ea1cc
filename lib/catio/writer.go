package catio

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// CommentString returns the header line describing the columns of a
// catalog, e.g. "# Column contents: id(0) x(1) y(2)".
func CommentString(names []string) string {
	tokens := []string{"# Column contents:"}
	for i := range names {
		tokens = append(tokens, fmt.Sprintf("%s(%d)", names[i], i))
	}
	return strings.Join(tokens, " ")
}

// FormatCols formats integer and floating point columns as aligned lines of
// text. order lists the columns to print, counting integer columns first.
// Floats are written with enough digits to be read back exactly.
func FormatCols(
	intCols [][]int64, floatCols [][]float64, order []int,
) ([]string, error) {
	height := -1
	for i := range intCols {
		if height == -1 {
			height = len(intCols[i])
		} else if height != len(intCols[i]) {
			return nil, fmt.Errorf("Columns of unequal height.")
		}
	}
	for i := range floatCols {
		if height == -1 {
			height = len(floatCols[i])
		} else if height != len(floatCols[i]) {
			return nil, fmt.Errorf("Columns of unequal height.")
		}
	}
	if height <= 0 {
		return []string{}, nil
	}

	orderedCols := make([][]string, len(order))
	for i, idx := range order {
		switch {
		case idx < 0 || idx >= len(intCols)+len(floatCols):
			return nil, fmt.Errorf("Column ordering out of range.")
		case idx < len(intCols):
			orderedCols[i] = formatIntCol(intCols[idx])
		default:
			orderedCols[i] = formatFloatCol(floatCols[idx-len(intCols)])
		}
	}

	lines := make([]string, height)
	tokens := make([]string, len(orderedCols))
	for i := 0; i < height; i++ {
		for j := range orderedCols {
			tokens[j] = orderedCols[j][i]
		}
		lines[i] = strings.Join(tokens, " ")
	}

	return lines, nil
}

// pad right-aligns every string to the width of the longest one.
func pad(col []string) []string {
	width := 0
	for i := range col {
		if len(col[i]) > width {
			width = len(col[i])
		}
	}
	for i := range col {
		col[i] = fmt.Sprintf("%*s", width, col[i])
	}
	return col
}

func formatIntCol(col []int64) []string {
	out := make([]string, len(col))
	for i := range col {
		out[i] = strconv.FormatInt(col[i], 10)
	}
	return pad(out)
}

func formatFloatCol(col []float64) []string {
	out := make([]string, len(col))
	for i := range col {
		out[i] = strconv.FormatFloat(col[i], 'g', -1, 64)
	}
	return pad(out)
}

// WriteCols writes a column header followed by the formatted columns. names
// follows the same ordering as order.
func WriteCols(
	w io.Writer, names []string,
	intCols [][]int64, floatCols [][]float64, order []int,
) error {
	if len(names) != len(order) {
		return fmt.Errorf("%d column names given for %d columns.",
			len(names), len(order))
	}

	lines, err := FormatCols(intCols, floatCols, order)
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintln(w, CommentString(names)); err != nil {
		return err
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
