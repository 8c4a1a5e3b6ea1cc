package catio

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phil-mansfield/reion/lib/reion"
)

const galaxyText = `# id x y z type ghost stellar_mass sfr
1 43 43 43 0 0 21.5 10.75
2 21 21 21 1 0 10.5 5.25 # satellite
3	67 67 67 3 0 33.5 16.75

4 88 88 88 0 1 44 22
`

func TestTextRead(t *testing.T) {
	rd, err := Text([]byte(galaxyText), GalaxyConfig)
	require.NoError(t, err)
	assert.Equal(t, 1, rd.Blocks())

	icols, fcols, err := rd.Read([]string{"id", "type"}, []int{1, 7})
	require.NoError(t, err)
	assert.Equal(t, [][]int64{{1, 2, 3, 4}, {0, 1, 3, 0}}, icols)
	assert.Equal(t, [][]float64{{43, 21, 67, 88}, {10.75, 5.25, 16.75, 22}},
		fcols)
}

func TestTextReadBlocks(t *testing.T) {
	lines := []string{"# header"}
	for i := 0; i < 200; i++ {
		lines = append(lines, fmt.Sprintf("%d %d.5", i, i))
	}
	text := []byte(strings.Join(lines, "\n") + "\n")

	config := DefaultConfig
	config.MaxBlockSize, config.MaxLineSize = 64, 32
	rd, err := Text(text, config)
	require.NoError(t, err)
	assert.Greater(t, rd.Blocks(), 1)

	icols, fcols, err := rd.Read([]int{0}, []int{1})
	require.NoError(t, err)
	require.Equal(t, 200, len(icols[0]))
	for i := 0; i < 200; i++ {
		assert.Equal(t, int64(i), icols[0][i])
		assert.Equal(t, float64(i)+0.5, fcols[0][i])
	}
}

func TestTextReadErrors(t *testing.T) {
	rd, err := Text([]byte("1 2 3\n4 5\n"))
	require.NoError(t, err)
	_, _, err = rd.Read([]int{0}, nil)
	assert.Error(t, err)

	rd, err = Text([]byte("1 2 3\n4 5 6\n"))
	require.NoError(t, err)
	_, _, err = rd.Read([]int{3}, nil)
	assert.Error(t, err)
	_, _, err = rd.Read([]string{"mass"}, nil)
	assert.Error(t, err)
	_, _, err = rd.Read(nil, []float32{})
	assert.Error(t, err)
	_, _, err = rd.ReadBlock(1, []int{0}, nil)
	assert.Error(t, err)

	rd, err = Text([]byte("1 2.5 3\n"))
	require.NoError(t, err)
	_, _, err = rd.Read([]int{1}, nil)
	assert.Error(t, err)

	config := DefaultConfig
	config.MaxBlockSize, config.MaxLineSize = 8, 16
	_, err = Text([]byte("1 2 3\n"), config)
	assert.Error(t, err)
}

func TestEmptyCatalog(t *testing.T) {
	rd, err := Text([]byte{})
	require.NoError(t, err)
	icols, fcols, err := rd.Read([]int{0}, []int{1})
	require.NoError(t, err)
	assert.Equal(t, [][]int64{{}}, icols)
	assert.Equal(t, [][]float64{{}}, fcols)
}

func TestReadGalaxies(t *testing.T) {
	all := []reion.Galaxy{}
	for rank := 0; rank < 3; rank++ {
		rd, err := Text([]byte(galaxyText), GalaxyConfig)
		require.NoError(t, err)
		gals, err := ReadGalaxies(rd, rank, 3)
		require.NoError(t, err)
		all = append(all, gals...)
	}

	require.Equal(t, 4, len(all))
	// Rank 0 reads rows 0 and 3.
	assert.Equal(t, int64(1), all[0].ID)
	assert.Equal(t, int64(4), all[1].ID)
	assert.True(t, all[1].Ghost)
	assert.Equal(t, [3]float64{88, 88, 88}, all[1].Pos)
	assert.Equal(t, 3, all[3].Type)
	assert.Equal(t, 33.5, all[3].StellarMass)
	assert.Equal(t, 16.75, all[3].Sfr)

	rd, err := Text([]byte(galaxyText), GalaxyConfig)
	require.NoError(t, err)
	_, err = ReadGalaxies(rd, 3, 3)
	assert.Error(t, err)
}

func TestWriteAndReadBack(t *testing.T) {
	gals := []reion.Galaxy{
		{ID: 7, Pos: [3]float64{1.25, 2, 99.875}, MvirCrit: 1.2345678901e9},
		{ID: 12345, Pos: [3]float64{0, 0.1, 0.2}, MvirCrit: 1e8},
	}
	buf := &bytes.Buffer{}
	require.NoError(t, WriteGalaxyMvirCrit(buf, gals))
	assert.True(t, strings.HasPrefix(buf.String(),
		"# Column contents: id(0) x(1) y(2) z(3) mvir_crit(4)\n"))

	rd, err := Text(buf.Bytes())
	require.NoError(t, err)
	icols, fcols, err := rd.Read([]int{0}, []int{1, 2, 3, 4})
	require.NoError(t, err)
	assert.Equal(t, []int64{7, 12345}, icols[0])
	assert.Equal(t, []float64{1.25, 0}, fcols[0])
	assert.Equal(t, []float64{99.875, 0.2}, fcols[2])
	assert.Equal(t, []float64{1.2345678901e9, 1e8}, fcols[3])

	halos := []reion.Halo{{ID: 3, Pos: [3]float64{4, 5, 6},
		CellIonization: 0.25}}
	buf.Reset()
	require.NoError(t, WriteHaloIonization(buf, halos))
	rd, err = Text(buf.Bytes(), HaloConfig)
	require.NoError(t, err)
	read, err := ReadHalos(rd, nil)
	require.NoError(t, err)
	assert.Equal(t, []reion.Halo{{ID: 3, Pos: [3]float64{4, 5, 6}}}, read)
}

func TestReadHalosFilter(t *testing.T) {
	text := "1 10 0 0\n2 60 0 0\n3 20 5 5\n"
	rd, err := Text([]byte(text), HaloConfig)
	require.NoError(t, err)

	halos, err := ReadHalos(rd, func(h *reion.Halo) bool {
		return h.Pos[0] < 50
	})
	require.NoError(t, err)
	require.Equal(t, 2, len(halos))
	assert.Equal(t, int64(1), halos[0].ID)
	assert.Equal(t, int64(3), halos[1].ID)
}

func TestFormatCols(t *testing.T) {
	lines, err := FormatCols([][]int64{{1, 100}}, [][]float64{{0.5, 12}},
		[]int{1, 0})
	require.NoError(t, err)
	assert.Equal(t, []string{"0.5   1", " 12 100"}, lines)

	_, err = FormatCols([][]int64{{1, 2}}, [][]float64{{1}}, []int{0, 1})
	assert.Error(t, err)
	_, err = FormatCols([][]int64{{1}}, nil, []int{1})
	assert.Error(t, err)

	lines, err = FormatCols(nil, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{}, lines)
}
