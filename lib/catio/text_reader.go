package catio

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
)

type textReader struct {
	rd          io.ReadSeeker
	config      TextConfig
	size        int
	blockStarts []int
	blockEnds   []int
	buf         []byte
}

// newTextReader creates a new textReader associated with the I/O stream rd,
// which contains size bytes. An optional config can be provided, otherwise
// DefaultConfig will be used.
func newTextReader(
	rd io.ReadSeeker, size int, config ...TextConfig,
) (*textReader, error) {
	reader := &textReader{config: DefaultConfig, size: size, rd: rd}
	if len(config) > 0 {
		reader.config = config[0]
	}
	if reader.config.MaxBlockSize < reader.config.MaxLineSize {
		return nil, fmt.Errorf("MaxBlockSize = %d is smaller than "+
			"MaxLineSize = %d.", reader.config.MaxBlockSize,
			reader.config.MaxLineSize)
	}

	// Figure out how many blocks are in the file.
	blocks := 1 + size/reader.config.MaxBlockSize
	if (blocks-1)*reader.config.MaxBlockSize == size && blocks > 1 {
		blocks--
	}

	reader.blockStarts = make([]int, blocks)
	reader.blockEnds = make([]int, blocks)

	// Find the start of each block.
	buf := make([]byte, reader.config.MaxLineSize)
	for i := 0; i < blocks; i++ {
		start, err := reader.blockStart(i, buf)
		if err != nil {
			return nil, err
		}
		reader.blockStarts[i] = start
	}

	// Find the end of each block.
	for i := 0; i < len(reader.blockEnds)-1; i++ {
		reader.blockEnds[i] = reader.blockStarts[i+1]
	}
	reader.blockEnds[blocks-1] = size

	maxSize := 0
	for i := range reader.blockStarts {
		size := reader.blockEnds[i] - reader.blockStarts[i]
		if size > maxSize {
			maxSize = size
		}
	}
	reader.buf = make([]byte, maxSize)

	return reader, nil
}

// blockStart returns the index of the starting byte of the specified block.
// It requires a buffer that is large enough to read any line of the catalog.
func (t *textReader) blockStart(block int, buf []byte) (int, error) {
	if block == 0 {
		return 0, nil
	}

	// starting and ending indices of the line surrounding the block break
	lineEnd := block * t.config.MaxBlockSize
	if lineEnd > t.size {
		lineEnd = t.size
	}
	lineStart := lineEnd - len(buf)

	// Find the start of the line...
	if _, err := t.rd.Seek(int64(lineStart), io.SeekStart); err != nil {
		return 0, err
	}
	// ...and read it
	if _, err := io.ReadFull(t.rd, buf); err != nil {
		return 0, err
	}

	// The block starts after the last line break before the block edge.
	idx := bytes.LastIndexByte(buf, '\n')
	if idx == -1 {
		return 0, fmt.Errorf("Catalog has a line longer than "+
			"MaxLineSize = %d bytes.", len(buf))
	}

	return idx + 1 + lineStart, nil
}

// columnIndices converts the generic columns variable into integer indices.
// If columns is []int, it returns them, if columns is []string, it looks up
// the corresponding ints.
func (t *textReader) columnIndices(columns interface{}) ([]int, error) {
	switch cols := columns.(type) {
	case nil:
		return []int{}, nil
	case []int:
		return cols, nil
	case []string:
		idxs := make([]int, len(cols))
		for i := range cols {
			idx, ok := t.config.ColumnNames[cols[i]]
			if !ok {
				return nil, fmt.Errorf("Catalog has no column named '%s'.",
					cols[i])
			}
			idxs[i] = idx
		}
		return idxs, nil
	}
	return nil, fmt.Errorf("Columns argument must be []int or []string, "+
		"not %T.", columns)
}

func (t *textReader) Blocks() int { return len(t.blockStarts) }

func (t *textReader) Read(intCols, floatCols interface{}) (
	[][]int64, [][]float64, error,
) {
	icols, fcols, err := t.ReadBlock(0, intCols, floatCols)
	if err != nil {
		return nil, nil, err
	}

	for i := 1; i < t.Blocks(); i++ {
		ib, fb, err := t.ReadBlock(i, intCols, floatCols)
		if err != nil {
			return nil, nil, err
		}
		for j := range icols {
			icols[j] = append(icols[j], ib[j]...)
		}
		for j := range fcols {
			fcols[j] = append(fcols[j], fb[j]...)
		}
	}

	return icols, fcols, nil
}

func (t *textReader) ReadBlock(i int, intCols, floatCols interface{}) (
	[][]int64, [][]float64, error,
) {
	if i < 0 || i >= t.Blocks() {
		return nil, nil, fmt.Errorf("Block %d requested, but the catalog "+
			"only has %d blocks.", i, t.Blocks())
	}

	iIdx, err := t.columnIndices(intCols)
	if err != nil {
		return nil, nil, err
	}
	fIdx, err := t.columnIndices(floatCols)
	if err != nil {
		return nil, nil, err
	}

	// Read raw bytes.
	n := t.blockEnds[i] - t.blockStarts[i]
	_, err = t.rd.Seek(int64(t.blockStarts[i]), io.SeekStart)
	if err != nil {
		return nil, nil, err
	}
	if _, err = io.ReadFull(t.rd, t.buf[:n]); err != nil {
		return nil, nil, err
	}

	// Separate and clean lines
	lines, nComm := split(t.buf[:n], '\n', t.config.Comment)
	skip := 0
	if i == 0 {
		skip = t.config.SkipLines
	}
	if skip > len(lines) {
		skip = len(lines)
	}
	lines = uncomment(lines[skip:], t.config.Comment, nComm)
	lines = trim(lines, t.config.Separator)

	return parse(lines, t.config.Separator, iIdx, fIdx)
}

// split splits a byte splice at each separating flag. Faster than
// bytes.Split() because slicing is used instead of allocations and because
// only one separator is used.
//
// Some of the calculations associated with uncommenting are done here for a
// slight performance boost.
func split(data []byte, sep, comm byte) (lines [][]byte, nComm int) {
	n := 0
	for _, c := range data {
		if c == sep {
			n++
		}
		if c == comm {
			nComm++
		}
	}

	tokens := make([][]byte, n+1)

	idx := 0
	for j := 0; j < n; j++ {
		data = data[idx:]
		idx = bytes.IndexByte(data, sep)
		tokens[j] = data[:idx]
		idx++
	}
	tokens[n] = data[idx:]

	return tokens, nComm
}

// uncomment removes file comments  in the form of "data # comment". Optimized
// for the common case where comments are rare and at the start of the file.
func uncomment(lines [][]byte, comm byte, nComm int) [][]byte {
	if nComm == 0 {
		return lines
	}

	for i, line := range lines {
		commentStart := bytes.IndexByte(line, comm)
		if commentStart == -1 {
			continue
		}

		lines[i] = line[:commentStart]

		n := 1
		for _, c := range line[commentStart+1:] {
			if c == comm {
				n++
			}
		}

		nComm -= n
		if nComm <= 0 {
			return lines
		}
	}

	return lines
}

// isSpace returns true for the separator and for the other whitespace that
// shows up in hand-edited catalogs.
func isSpace(c, sep byte) bool {
	return c == sep || c == '\t' || c == '\r'
}

// trim removes empty lines.
func trim(lines [][]byte, sep byte) [][]byte {
	j := 0

LineLoop:
	for i, line := range lines {
		for _, c := range line {
			if !isSpace(c, sep) {
				lines[j] = lines[i]
				j++
				continue LineLoop
			}
		}
	}

	return lines[:j]
}

func parse(lines [][]byte, sep byte, icolIdxs, fcolIdxs []int) (
	[][]int64, [][]float64, error,
) {
	icols := make([][]int64, len(icolIdxs))
	fcols := make([][]float64, len(fcolIdxs))

	for i := range icols {
		icols[i] = make([]int64, len(lines))
	}
	for i := range fcols {
		fcols[i] = make([]float64, len(lines))
	}

	if len(lines) == 0 {
		return icols, fcols, nil
	}

	width := len(fields(lines[0], sep, nil))
	for _, idx := range append(append([]int{}, icolIdxs...), fcolIdxs...) {
		if idx < 0 || idx >= width {
			return nil, nil, fmt.Errorf("Column %d requested, but the "+
				"catalog only has %d columns.", idx, width)
		}
	}

	buf := make([][]byte, width)
	var err error
	for i, line := range lines {
		words := fields(line, sep, buf)
		if len(words) != width {
			return nil, nil, fmt.Errorf(
				"Data (not file) line %d has %d columns, not %d.",
				i+1, len(words), width,
			)
		}

		for j := range icolIdxs {
			icols[j][i], err = strconv.ParseInt(
				string(words[icolIdxs[j]]), 10, 64,
			)
			if err != nil {
				return nil, nil, fmt.Errorf("Data (not file) line %d: %w",
					i+1, err)
			}
		}
		for j := range fcolIdxs {
			fcols[j][i], err = strconv.ParseFloat(
				string(words[fcolIdxs[j]]), 64,
			)
			if err != nil {
				return nil, nil, fmt.Errorf("Data (not file) line %d: %w",
					i+1, err)
			}
		}
	}

	return icols, fcols, nil
}

// fields is an optimized and buffered analog to the standard library's
// bytes.FieldsFunc() function. buf is grown if it is too small.
func fields(data []byte, sep byte, buf [][]byte) [][]byte {
	buf = buf[:0]
	fieldStart := -1

	for i, c := range data {
		if fieldStart < 0 && !isSpace(c, sep) {
			fieldStart = i
		} else if fieldStart >= 0 && isSpace(c, sep) {
			buf = append(buf, data[fieldStart:i])
			fieldStart = -1
		}
	}

	if fieldStart >= 0 {
		buf = append(buf, data[fieldStart:])
	}

	return buf
}
