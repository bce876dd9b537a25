// Package ranking orders score records and renders them as a table or CSV.
package ranking

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spigell/resume-screener/internal/scoring"
)

// Header is the column order of the CSV export.
var Header = []string{"name", "score", "reasoning"}

var ErrInvalidExport = errors.New("invalid ranked export")

// ResultSet is an ordered list of score records, best first.
type ResultSet struct {
	records []scoring.Record
}

// Rank sorts the records by score, highest first. Records with equal scores
// keep their input order. The input slice is left untouched.
func Rank(records []scoring.Record) *ResultSet {
	ranked := slices.Clone(records)
	slices.SortStableFunc(ranked, func(a, b scoring.Record) int {
		return b.Score - a.Score
	})

	return &ResultSet{records: ranked}
}

// Records returns a copy of the ordered records.
func (r *ResultSet) Records() []scoring.Record {
	if r == nil {
		return nil
	}
	return slices.Clone(r.records)
}

func (r *ResultSet) Len() int {
	if r == nil {
		return 0
	}
	return len(r.records)
}

// Top returns the highest ranked record. ok is false for an empty set.
func (r *ResultSet) Top() (scoring.Record, bool) {
	if r.Len() == 0 {
		return scoring.Record{}, false
	}
	return r.records[0], true
}

// Above returns the records scoring at least minScore, keeping their order.
func (r *ResultSet) Above(minScore int) *ResultSet {
	kept := make([]scoring.Record, 0, r.Len())
	for _, record := range r.Records() {
		if record.Score >= minScore {
			kept = append(kept, record)
		}
	}
	return &ResultSet{records: kept}
}

// WriteCSV writes the header and one row per record.
func (r *ResultSet) WriteCSV(w io.Writer) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(Header); err != nil {
		return err
	}

	for _, record := range r.Records() {
		row := []string{record.Name, strconv.Itoa(record.Score), record.Reasoning}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

// WriteTable renders the set as an aligned text table.
func (r *ResultSet) WriteTable(w io.Writer) error {
	if r.Len() == 0 {
		_, err := fmt.Fprintln(w, "no candidates to show")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tNAME\tSCORE\tREASONING")
	for i, record := range r.Records() {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\n", i+1, record.Name, record.Score, record.Reasoning)
	}

	return tw.Flush()
}

// ToFile writes the CSV export to path, replacing any existing file.
func (r *ResultSet) ToFile(path string) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer file.Close()

	if err := r.WriteCSV(file); err != nil {
		return err
	}
	return file.Close()
}

// DumpToTmpFile writes the CSV export to a new temporary file and returns its name.
func (r *ResultSet) DumpToTmpFile() (string, error) {
	file, err := os.CreateTemp("", "ranked_candidates_*.csv")
	if err != nil {
		return "", err
	}
	defer file.Close()

	if err := r.WriteCSV(file); err != nil {
		return "", err
	}
	return file.Name(), file.Close()
}

// ReadCSV parses an export produced by WriteCSV. Row order is kept as is.
func ReadCSV(rd io.Reader) (*ResultSet, error) {
	reader := csv.NewReader(rd)
	reader.FieldsPerRecord = len(Header)

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: missing header", ErrInvalidExport)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidExport, err)
	}

	for i, column := range Header {
		if strings.TrimSpace(header[i]) != column {
			return nil, fmt.Errorf("%w: unexpected header %q", ErrInvalidExport, strings.Join(header, ","))
		}
	}

	records := make([]scoring.Record, 0)
	for line := 2; ; line++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidExport, err)
		}

		score, err := strconv.Atoi(strings.TrimSpace(row[1]))
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: score %q is not an integer", ErrInvalidExport, line, row[1])
		}

		records = append(records, scoring.Record{Name: row[0], Score: score, Reasoning: row[2]})
	}

	return &ResultSet{records: records}, nil
}
