package resolver

import (
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/hupe1980/vemos/record"
	"github.com/hupe1980/vemos/vemoserr"
)

// pattern is one compiled alternative of a data type format.
type pattern struct {
	source string         // regex source; its length ranks matches
	re     *regexp.Regexp // anchored at the start of the file stem
	strip  *regexp.Regexp // removed from the stem to derive the id; nil keeps the stem
}

type candidate struct {
	dataType   string
	extensions []string
	patterns   []pattern
}

// Matcher infers data type and id from a file name.
//
// Every format alternative is ranked by the length of its expression; the
// longest match wins and ties go to the data type declared first.
type Matcher struct {
	candidates []candidate
}

// Match is the outcome of a successful file name inference.
type Match struct {
	DataType string
	Format   string
	ID       string
}

// NewMatcher compiles the formats of every data type.
func NewMatcher(types []record.DataType) (*Matcher, error) {
	m := &Matcher{candidates: make([]candidate, 0, len(types))}
	for _, dt := range types {
		c := candidate{dataType: dt.Name, extensions: dt.Extensions}
		for _, format := range dt.Formats {
			for _, alt := range formatAlternatives(format) {
				p, err := compilePattern(alt)
				if err != nil {
					return nil, vemoserr.NewIngestionError("", 0,
						fmt.Sprintf("invalid format %q of data type %q", format, dt.Name), err)
				}
				c.patterns = append(c.patterns, p)
			}
		}
		m.candidates = append(m.candidates, c)
	}
	return m, nil
}

// formatAlternatives turns "*_mask, *_seg" into [".*_mask", ".*_seg"].
func formatAlternatives(format string) []string {
	format = strings.ReplaceAll(format, " ", "")
	format = strings.ReplaceAll(format, "*", ".*")
	format = strings.ReplaceAll(format, ",", "|")
	var out []string
	for _, alt := range strings.Split(format, "|") {
		if alt != "" {
			out = append(out, alt)
		}
	}
	return out
}

func compilePattern(source string) (pattern, error) {
	re, err := regexp.Compile("^(?:" + source + ")")
	if err != nil {
		return pattern{}, err
	}
	p := pattern{source: source, re: re}
	if lit := strings.ReplaceAll(source, ".*", ""); lit != "" {
		if p.strip, err = regexp.Compile(lit); err != nil {
			return pattern{}, err
		}
	}
	return p, nil
}

// Match returns the best data type for the given file name.
func (m *Matcher) Match(filename string) (Match, bool) {
	ext := path.Ext(filename)
	stem := strings.TrimSuffix(filename, ext)
	lower := strings.ToLower(filename)

	var (
		best  Match
		bestP *pattern
	)
	for ci := range m.candidates {
		c := &m.candidates[ci]
		if !hasExtension(lower, c.extensions) {
			continue
		}
		for pi := range c.patterns {
			p := &c.patterns[pi]
			if !p.re.MatchString(stem) {
				continue
			}
			if bestP == nil || len(p.source) > len(bestP.source) {
				bestP = p
				best = Match{DataType: c.dataType, Format: p.source}
			}
		}
	}
	if bestP == nil {
		return Match{}, false
	}
	best.ID = stem
	if bestP.strip != nil {
		best.ID = bestP.strip.ReplaceAllString(stem, "")
	}
	return best, true
}

func hasExtension(lowerName string, extensions []string) bool {
	for _, e := range extensions {
		if e != "" && strings.HasSuffix(lowerName, strings.ToLower(e)) {
			return true
		}
	}
	return false
}

// checkFormatCollisions fails when two data types could claim the same file.
func checkFormatCollisions(types []record.DataType) error {
	for i := range types {
		for j := 0; j < i; j++ {
			if types[i].Overlaps(types[j]) {
				return &vemoserr.FormatCollisionError{TypeA: types[j].Name, TypeB: types[i].Name}
			}
		}
	}
	return nil
}
