package config

import (
	"io/ioutil"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phil-mansfield/reion/lib/reion"
)

func TestExample(t *testing.T) {
	con, err := ReadString(Example)
	require.NoError(t, err)

	p, err := con.Params()
	require.NoError(t, err)
	assert.Equal(t, 64, p.GridDim)
	assert.Equal(t, 100.0, p.BoxSize)
	assert.Equal(t, 0.678, p.HubbleH)
	assert.Equal(t, reion.Periodic, p.Boundary)
	assert.Equal(t, reion.DefaultParams().SMParamA, p.SMParamA)
	assert.Equal(t, int64(0), p.MaxGridBytes)

	snaps, err := con.SnapshotList()
	require.NoError(t, err)
	assert.Equal(t, 11, len(snaps))
	zs, err := con.RedshiftList(snaps)
	require.NoError(t, err)
	assert.Equal(t, 10.5, zs[0])
	assert.Equal(t, 7.5, zs[10])

	level, err := con.Level()
	require.NoError(t, err)
	assert.Equal(t, logrus.InfoLevel, level)
}

func TestOptionalParameters(t *testing.T) {
	text := Example + `
Boundary = strict
AtomicCoolingMass = 3e8
SMParamD = 1.5
MaxGridMemoryGB = 0.5
LogLevel = debug`

	con, err := ReadString(text)
	require.NoError(t, err)
	p, err := con.Params()
	require.NoError(t, err)
	assert.Equal(t, reion.Strict, p.Boundary)
	assert.Equal(t, 3e8, p.AtomicCoolingMass)
	assert.Equal(t, 1.5, p.SMParamD)
	assert.Equal(t, int64(1<<29), p.MaxGridBytes)

	level, err := con.Level()
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, level)
}

func TestValidate(t *testing.T) {
	replace := func(old, new string) string {
		require.True(t, strings.Contains(Example, old), old)
		return strings.Replace(Example, old, new, 1)
	}

	bad := []string{
		replace("GridDim = 64", "GridDim = 0"),
		replace("Workers = 4", "Workers = 65"),
		replace("Workers = 4", "Workers = 0"),
		replace("BoxSize = 100", "BoxSize = -100"),
		replace("Snapshots = 20..30", "Snapshots = 30..20"),
		replace("Snapshots = 20..30", ""),
		replace("GalaxyCatalog = galaxies/snap{%03d,snapshot}.txt",
			"GalaxyCatalog = galaxies/snap{%03d,snapshot.txt"),
		replace("# Boundary = periodic", "Boundary = reflective"),
		replace("# LogLevel = info", "LogLevel = loud"),
		replace("# MaxGridMemoryGB = 0", "MaxGridMemoryGB = -1"),
		replace("HubbleH = 0.678", "HubbleH = 0"),
	}

	for i := range bad {
		_, err := ReadString(bad[i])
		assert.Error(t, err, "%d)", i)
	}

	_, err := ReadString("[Reion]\nNotAParameter = 1\n")
	assert.Error(t, err)
}

func TestRedshiftList(t *testing.T) {
	con := &ReionConfig{Redshifts: "8, 7.5 ,7"}
	zs, err := con.RedshiftList([]int{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, []float64{8, 7.5, 7}, zs)

	_, err = con.RedshiftList([]int{1, 2})
	assert.Error(t, err)
	con.Redshifts = "8, seven, 6"
	_, err = con.RedshiftList([]int{1, 2, 3})
	assert.Error(t, err)

	fname := filepath.Join(t.TempDir(), "redshifts.txt")
	text := "# snapshot redshift\n10 9.5\n11 9.25\n12 9\n"
	require.NoError(t, ioutil.WriteFile(fname, []byte(text), 0644))

	con.Redshifts = fname
	zs, err = con.RedshiftList([]int{12, 10})
	require.NoError(t, err)
	assert.Equal(t, []float64{9, 9.5}, zs)

	_, err = con.RedshiftList([]int{13})
	assert.Error(t, err)
}

func TestRead(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "reion.config")
	require.NoError(t, ioutil.WriteFile(fname, []byte(Example), 0644))
	con, err := Read(fname)
	require.NoError(t, err)
	assert.Equal(t, 4, con.Workers)

	_, err = Read(filepath.Join(t.TempDir(), "missing.config"))
	assert.Error(t, err)
}
