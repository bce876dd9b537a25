package ranking

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spigell/resume-screener/internal/scoring"
)

func sample() []scoring.Record {
	return []scoring.Record{
		{Name: "b.pdf", Score: 10, Reasoning: "Temp local scoring: 2 matching keywords."},
		{Name: "a.txt", Score: 45, Reasoning: "Temp local scoring: 9 matching keywords."},
		{Name: "c.txt", Score: 10, Reasoning: "Temp local scoring: 2 matching keywords."},
		{Name: "d.docx", Score: 0, Reasoning: "Temp local scoring: 0 matching keywords."},
		{Name: "e.txt", Score: 10, Reasoning: "Temp local scoring: 2 matching keywords."},
	}
}

func names(records []scoring.Record) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.Name)
	}
	return out
}

func TestRankOrdersByScoreAndIsStable(t *testing.T) {
	input := sample()
	ranked := Rank(input)

	assert.Equal(t, []string{"a.txt", "b.pdf", "c.txt", "e.txt", "d.docx"}, names(ranked.Records()))
	assert.Equal(t, "b.pdf", input[0].Name, "input must not be reordered")
}

func TestRankEmpty(t *testing.T) {
	ranked := Rank(nil)

	assert.Equal(t, 0, ranked.Len())
	assert.Empty(t, ranked.Records())

	_, ok := ranked.Top()
	assert.False(t, ok)

	var buf bytes.Buffer
	require.NoError(t, ranked.WriteCSV(&buf))
	assert.Equal(t, "name,score,reasoning\n", buf.String())

	buf.Reset()
	require.NoError(t, ranked.WriteTable(&buf))
	assert.Contains(t, buf.String(), "no candidates")
}

func TestTop(t *testing.T) {
	top, ok := Rank(sample()).Top()
	require.True(t, ok)
	assert.Equal(t, "a.txt", top.Name)
	assert.Equal(t, 45, top.Score)
}

func TestAbove(t *testing.T) {
	ranked := Rank(sample())

	assert.Equal(t, []string{"a.txt", "b.pdf", "c.txt", "e.txt"}, names(ranked.Above(10).Records()))
	assert.Equal(t, 5, ranked.Len(), "Above must not modify the set")
	assert.Equal(t, 0, ranked.Above(99).Len())
}

func TestWriteCSVRoundTrip(t *testing.T) {
	records := append(sample(), scoring.Record{Name: "smith, john.pdf", Score: 5, Reasoning: `said "hi", twice`})
	ranked := Rank(records)

	var buf bytes.Buffer
	require.NoError(t, ranked.WriteCSV(&buf))

	rows, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, ranked.Len()+1)
	assert.Equal(t, Header, rows[0])

	for i, record := range ranked.Records() {
		assert.Equal(t, record.Name, rows[i+1][0])
		assert.Equal(t, strconv.Itoa(record.Score), rows[i+1][1])
	}

	parsed, err := ReadCSV(&buf)
	require.NoError(t, err)
	assert.Equal(t, ranked.Records(), parsed.Records())
}

func TestWriteCSVPlainRowsSplitOnComma(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Rank(sample()).WriteCSV(&buf))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 6)
	assert.Equal(t, "name,score,reasoning", lines[0])

	first := strings.Split(lines[1], ",")
	assert.Equal(t, []string{"a.txt", "45", "Temp local scoring: 9 matching keywords."}, first)
}

func TestReadCSVErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "empty", input: ""},
		{name: "wrong header", input: "candidate,score,reasoning\n"},
		{name: "non integer score", input: "name,score,reasoning\ncv.txt,high,meh\n"},
		{name: "missing column", input: "name,score,reasoning\ncv.txt,10\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadCSV(strings.NewReader(tt.input))
			assert.ErrorIs(t, err, ErrInvalidExport)
		})
	}
}

func TestWriteTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Rank(sample()).WriteTable(&buf))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 6)
	assert.True(t, strings.HasPrefix(lines[0], "#"))
	assert.Contains(t, lines[0], "REASONING")
	assert.Contains(t, lines[1], "a.txt")
	assert.Contains(t, lines[1], "45")
}

func TestToFileAndDump(t *testing.T) {
	ranked := Rank(sample())

	path := filepath.Join(t.TempDir(), "ranked.csv")
	require.NoError(t, os.WriteFile(path, []byte(strings.Repeat("stale content\n", 50)), 0o644))
	require.NoError(t, ranked.ToFile(path))

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	parsed, err := ReadCSV(file)
	require.NoError(t, err)
	assert.Equal(t, ranked.Records(), parsed.Records())

	tmp, err := ranked.DumpToTmpFile()
	require.NoError(t, err)
	defer os.Remove(tmp)

	assert.True(t, strings.HasPrefix(filepath.Base(tmp), "ranked_candidates_"))
	assert.Equal(t, ".csv", filepath.Ext(tmp))

	dumped, err := os.ReadFile(tmp)
	require.NoError(t, err)

	var expected strings.Builder
	require.NoError(t, ranked.WriteCSV(&expected))
	assert.Equal(t, expected.String(), string(dumped))
}
