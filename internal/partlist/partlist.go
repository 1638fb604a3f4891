// Package partlist reads the CSV part inventory that drives a conversion run.
package partlist

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// printSuffix marks a printed variant of a base part (3001pr0001).
const printSuffix = "pr"

// Read parses the CSV file at path. See Parse.
func Read(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("partlist: open %s: %w", path, err)
	}
	defer f.Close()

	parts, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("partlist: read %s: %w", path, err)
	}
	return parts, nil
}

// Parse returns the part numbers in the first column of a CSV stream. The
// first row is a header. Print variants are reduced to their base part and
// duplicates are dropped, keeping first-seen order.
func Parse(r io.Reader) ([]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	if _, err := cr.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, err
	}

	seen := make(map[string]struct{})
	var parts []string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(rec) == 0 {
			continue
		}
		p := BasePart(rec[0])
		if p == "" {
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		parts = append(parts, p)
	}
	return parts, nil
}

// BasePart strips surrounding space and any print suffix.
func BasePart(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.Index(s, printSuffix); i >= 0 {
		s = s[:i]
	}
	return s
}

// FileName is the part file for a part number.
func FileName(part string) string {
	return part + ".dat"
}
