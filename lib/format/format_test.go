package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsSequenceFormatToken(t *testing.T) {
	tests := []struct {
		tok   string
		valid bool
	}{
		{"", false},
		{"1", true},
		{"a", false},
		{"1..30", true},
		{"a..30", false},
		{"1..a", false},
		{"30..1", false},
		{"a..b", false},
		{"1..30..60", false},
		{"12..12", true},
	}

	for i := range tests {
		err := isSequenceFormatToken(tests[i].tok)
		if tests[i].valid {
			assert.NoError(t, err, "%d) '%s'", i, tests[i].tok)
		} else {
			assert.Error(t, err, "%d) '%s'", i, tests[i].tok)
		}
	}
}

func TestParseSequenceFormatToken(t *testing.T) {
	tests := []struct {
		tok string
		seq []int
	}{
		{"0", []int{0}},
		{"1000", []int{1000}},
		{"1..4", []int{1, 2, 3, 4}},
		{"7..7", []int{7}},
	}

	for i := range tests {
		assert.Equal(t, tests[i].seq, parseSequenceFormatToken(tests[i].tok),
			"%d) '%s'", i, tests[i].tok)
	}
	assert.Panics(t, func() { parseSequenceFormatToken("1..2..3") })
}

func TestTokeniseSequenceFormat(t *testing.T) {
	tests := []struct {
		format string
		tok    []string
	}{
		{"0", []string{"0"}},
		{"10..20", []string{"10..20"}},
		{"a..b", []string{"a..b"}},
		{"0+1", []string{"0", "+", "1"}},
		{"  0-       1    ", []string{"0", "-", "1"}},
		{"-0..100 + 0..200-9", []string{"-", "0..100", "+", "0..200",
			"-", "9"}},
		{"+-+-", []string{"+", "-", "+", "-"}},
	}

	for i := range tests {
		tok, err := tokeniseSequenceFormat(tests[i].format)
		require.NoError(t, err, "%d) '%s'", i, tests[i].format)
		assert.Equal(t, tests[i].tok, tok, "%d) '%s'", i, tests[i].format)
	}

	for _, format := range []string{"", "   "} {
		_, err := tokeniseSequenceFormat(format)
		assert.Error(t, err, "'%s'", format)
	}
}

func TestAddsSubsSequenceFormat(t *testing.T) {
	tests := []struct {
		tok, adds, subs []string
	}{
		{[]string{"1"}, []string{"1"}, []string{}},
		{[]string{"-", "1"}, []string{}, []string{"1"}},
		{[]string{"1", "+", "2..10"}, []string{"1", "2..10"}, []string{}},
		{[]string{"1", "-", "2"}, []string{"1"}, []string{"2"}},
		{[]string{"-", "1", "-", "2"}, []string{}, []string{"1", "2"}},
	}

	for i := range tests {
		adds, subs, err := addsSubsSequenceFormat(tests[i].tok)
		require.NoError(t, err, "%d) %v", i, tests[i].tok)
		assert.Equal(t, tests[i].adds, adds, "%d) %v", i, tests[i].tok)
		assert.Equal(t, tests[i].subs, subs, "%d) %v", i, tests[i].tok)
	}

	invalid := [][]string{
		{}, {"1", "2"}, {"1", "+"}, {"1", "+", "+", "2"},
		{"1", "-", "+", "2"}, {"1", "*", "2"}, {"a", "+", "2"},
		{"1", "+", "a..2"},
	}
	for _, tok := range invalid {
		_, _, err := addsSubsSequenceFormat(tok)
		assert.Error(t, err, "%v", tok)
	}
}

func TestExpandSequenceFormat(t *testing.T) {
	tests := []struct {
		format string
		n      []int
	}{
		{"1", []int{1}},
		{"+ 1..5", []int{1, 2, 3, 4, 5}},
		{"1+ 2", []int{1, 2}},
		{"3..5 + 1 + 7..9", []int{1, 3, 4, 5, 7, 8, 9}},
		{"-3 + 3..5 - 4", []int{5}},
		{"1..10 - 2..9", []int{1, 10}},
		{"20..30 - 23 - 27..28", []int{20, 21, 22, 24, 25, 26, 29, 30}},
	}

	for i := range tests {
		n, err := ExpandSequenceFormat(tests[i].format)
		require.NoError(t, err, "%d) '%s'", i, tests[i].format)
		assert.Equal(t, tests[i].n, n, "%d) '%s'", i, tests[i].format)
	}

	for _, format := range []string{
		"", "a", "10..a", "-1", "1 + 1", "3..5 - 1", "3..5 - 4 - 4",
		"3..5 + 6-", "0..2000000",
	} {
		_, err := ExpandSequenceFormat(format)
		assert.Error(t, err, "'%s'", format)
	}
}

func TestStartsEndsFormatString(t *testing.T) {
	tests := []struct {
		format       string
		starts, ends []int
	}{
		{"galaxies.txt", []int{}, []int{}},
		{"g{%d,snapshot}.txt", []int{1}, []int{14}},
		{"{%s,name}.{%03d,output}.zst", []int{0, 10}, []int{9, 23}},
	}

	for i := range tests {
		starts, ends, err := startsEndsFormatString(tests[i].format)
		require.NoError(t, err, "%d) '%s'", i, tests[i].format)
		assert.Equal(t, tests[i].starts, starts, "%d) '%s'", i, tests[i].format)
		assert.Equal(t, tests[i].ends, ends, "%d) '%s'", i, tests[i].format)
	}

	for _, format := range []string{"{", "}", "{{}}", "{}{", "}{}"} {
		_, _, err := startsEndsFormatString(format)
		assert.Error(t, err, "'%s'", format)
	}
}

func TestNewFileFormatComponents(t *testing.T) {
	comp, err := NewFileFormatComponents(
		"grids/snap{%03d,snapshot}/{%s,name}.{%03d, output}.zst")
	require.NoError(t, err)
	assert.Equal(t, []string{"grids/snap", "/", ".", ".zst"}, comp.Separators)
	assert.Equal(t, []string{"snapshot", "name", "output"}, comp.Vars)
	assert.Equal(t, []string{"%03d", "%s", "%03d"}, comp.Verbs)

	comp, err = NewFileFormatComponents("halos.txt")
	require.NoError(t, err)
	assert.Equal(t, []string{"halos.txt"}, comp.Separators)
	assert.Empty(t, comp.Vars)
}

func TestCheckVerb(t *testing.T) {
	tests := []struct {
		verb, rule string
		valid      bool
	}{
		{"%d", "snapshot", true},
		{"%04x", "output", true},
		{"%s", "output", false},
		{"%q", "name", true},
		{"%d", "name", false},
		{"%3d", "0..10", true},
		{"d", "snapshot", false},
		{"%", "snapshot", false},
		{"%d%d", "output", false},
	}

	for i := range tests {
		err := checkVerb(tests[i].verb, tests[i].rule)
		if tests[i].valid {
			assert.NoError(t, err, "%d) %s, %s", i, tests[i].verb, tests[i].rule)
		} else {
			assert.Error(t, err, "%d) %s, %s", i, tests[i].verb, tests[i].rule)
		}
	}
}

func TestExpandFileFormat(t *testing.T) {
	vars := FileVars{Snapshot: 7, Output: 2, Name: "xH"}
	tests := []struct {
		format string
		names  []string
	}{
		{"galaxies.txt", []string{"galaxies.txt"}},
		{"snap{%03d,snapshot}.txt", []string{"snap007.txt"}},
		{"out/{%s,name}.{%d,output}.zst", []string{"out/xH.2.zst"}},
		{"gals{%d,snapshot}.{%d,0..2}", []string{
			"gals7.0", "gals7.1", "gals7.2",
		}},
		{"{%d,0..1}_{%02d,3 + 5}", []string{
			"0_03", "0_05", "1_03", "1_05",
		}},
		{"{ %x , snapshot }", []string{"7"}},
	}

	for i := range tests {
		names, err := ExpandFileFormat(tests[i].format, vars)
		require.NoError(t, err, "%d) %s", i, tests[i].format)
		assert.Equal(t, tests[i].names, names, "%d) %s", i, tests[i].format)
	}
}

func TestExpandFileFormatErrors(t *testing.T) {
	vars := FileVars{Snapshot: 1}
	for _, format := range []string{
		"snap{%03d}", "snap{snapshot}", "{%d,snapshot,output}",
		"{%s,snapshot}", "{%d,name}", "{%d%d,snapshot}", "{%d,a..b}",
		"{%d,snapshot", "{%d,0..2000}{%d,0..2000}",
	} {
		_, err := ExpandFileFormat(format, vars)
		assert.Error(t, err, format)
	}
}

func TestExpandFileName(t *testing.T) {
	name, err := ExpandFileName("g{%03d,snapshot}", FileVars{Snapshot: 12})
	require.NoError(t, err)
	assert.Equal(t, "g012", name)

	_, err = ExpandFileName("g{%d,0..3}", FileVars{})
	assert.Error(t, err)
}

func TestExpandSnapshotFormat(t *testing.T) {
	snaps, err := ExpandSnapshotFormat("10..14 - 12")
	require.NoError(t, err)
	assert.Equal(t, []int{10, 11, 13, 14}, snaps)

	_, err = ExpandSnapshotFormat("10..")
	assert.Error(t, err)
}
