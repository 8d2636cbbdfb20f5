package resolver

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/hupe1980/vemos/record"
	"github.com/hupe1980/vemos/vemoserr"
)

// ResolveDescription builds records from a description file, one record per line:
//
//	id; (group1, group2); (match1, match2); Type1: path1; Type2: path2
//
// Every line carries exactly one field per configured data type after the
// three leading fields. Missing reverse matches are added and reported in
// Result.Repairs.
func ResolveDescription(ctx context.Context, r io.Reader, types []record.DataType) (*Result, error) {
	if err := record.ValidateDataTypes(types); err != nil {
		return nil, err
	}

	cr := csv.NewReader(r)
	cr.Comma = ';'
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = true

	set := record.NewSet()
	groupings := record.NewGroupings()
	level1 := record.OriginalLevel(1)

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			line := 0
			if errors.As(err, &perr) {
				line = perr.Line
			}
			return nil, vemoserr.NewIngestionError("", line, "malformed description line", err)
		}
		line, _ := cr.FieldPos(0)

		rec, err := parseDescriptionRow(row, types)
		if err != nil {
			return nil, vemoserr.NewIngestionError("", line, err.Error(), nil)
		}
		if err := set.Add(rec); err != nil {
			return nil, vemoserr.NewIngestionError("", line, "duplicate record", err)
		}
		for _, g := range rec.Groups {
			groupings.Add(level1, g, rec.ID)
		}
	}

	return &Result{Records: set, Groupings: groupings, Repairs: set.RepairMatches()}, nil
}

func parseDescriptionRow(row []string, types []record.DataType) (*record.Record, error) {
	if len(row) != len(types)+3 {
		return nil, fmt.Errorf("expected %d fields, got %d", len(types)+3, len(row))
	}
	id := strings.TrimSpace(row[0])
	if id == "" {
		return nil, errors.New("empty record id")
	}
	rec := record.New(id, parseParenList(row[1]))
	rec.Matches = parseParenList(row[2])

	for _, item := range row[3:] {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		name, p, ok := strings.Cut(item, ":")
		if !ok {
			return nil, fmt.Errorf("file entry %q is not of the form Type: path", item)
		}
		name = strings.TrimSpace(name)
		if _, known := record.Lookup(types, name); !known {
			return nil, fmt.Errorf("unknown data type %q", name)
		}
		if p = strings.TrimSpace(p); p != "" {
			rec.Files[name] = normalizePath(p)
		}
	}
	return rec, nil
}

// parseParenList parses "(a, b)" into [a b]; empty items are dropped.
func parseParenList(s string) []string {
	s = strings.NewReplacer("(", "", ")", "").Replace(s)
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func normalizePath(p string) string {
	return strings.ReplaceAll(p, "\\", "/")
}

// WriteDescription writes set in description file format. Every configured
// data type gets a field, in sorted name order, so the output can be read
// back with the same types; a missing file is written as an empty path.
func WriteDescription(w io.Writer, set *record.Set, types []record.DataType) error {
	names := make([]string, len(types))
	for i, dt := range types {
		names[i] = dt.Name
	}
	slices.Sort(names)

	bw := bufio.NewWriter(w)
	for _, r := range set.All() {
		for dt := range r.Files {
			if !slices.Contains(names, dt) {
				return fmt.Errorf("record %q has a file of unknown data type %q", r.ID, dt)
			}
		}
		fields := []string{
			r.ID,
			"(" + strings.Join(r.Groups, ", ") + ")",
			"(" + strings.Join(r.Matches, ", ") + ")",
		}
		for _, name := range names {
			fields = append(fields, strings.TrimRight(name+": "+r.Files[name], " "))
		}
		if _, err := bw.WriteString(strings.Join(fields, "; ") + "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}
