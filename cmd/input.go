package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"go.dedis.ch/mpchist/types"
	"golang.org/x/xerrors"
)

// -----------------------------------------------------------------------------
// Input

// RecordFromFile reads a record from a file, see ReadRecord.
func RecordFromFile(path string) (types.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, xerrors.Errorf("failed to open input: %w", err)
	}
	defer f.Close()

	record, err := ReadRecord(f)
	if err != nil {
		return nil, xerrors.Errorf("%s: %w", path, err)
	}

	return record, nil
}

// ReadRecord reads one count per bin. Counts are separated by new lines,
// commas or semicolons, and anything after a '#' is a comment.
func ReadRecord(r io.Reader) (types.Record, error) {
	record := types.Record{}

	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++

		text, _, _ := strings.Cut(scanner.Text(), "#")

		fields := strings.FieldsFunc(text, func(c rune) bool {
			return c == ',' || c == ';'
		})

		for _, field := range fields {
			field = strings.TrimSpace(field)
			if field == "" {
				continue
			}

			count, err := strconv.ParseUint(field, 10, 64)
			if err != nil {
				return nil, xerrors.Errorf("line %d: invalid count %q", line, field)
			}

			record = append(record, count)
		}
	}

	err := scanner.Err()
	if err != nil {
		return nil, xerrors.Errorf("failed to read record: %w", err)
	}

	return record, nil
}

// -----------------------------------------------------------------------------
// Output

// PrintResult writes the opened histogram of a run.
func PrintResult(w io.Writer, name string, parties int, result types.Result, k uint64) {
	fmt.Fprintf(w, "Result of %s between %d parties:\n", name, parties)

	width := len(strconv.Itoa(len(result)))
	for i, count := range result {
		fmt.Fprintf(w, "  bin %*d: %d\n", width, i, count)
	}

	fmt.Fprintf(w, "Note, that results with less or equal %d counts have been suppressed\n", k)
}
