package bedtools

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
)

// ErrInvalidInterval is wrapped by every error raised for an interval
// that cannot be handed to bedtools.
var ErrInvalidInterval = errors.New("invalid interval")

type Strand string

const (
	Forward   Strand = "+"
	Reverse   Strand = "-"
	Undefined Strand = "."
)

// ParseStrand converts a BED strand column.
func ParseStrand(s string) (Strand, error) {
	switch Strand(s) {
	case Forward, Reverse, Undefined:
		return Strand(s), nil
	}
	return "", fmt.Errorf("%w: unknown strand %q", ErrInvalidInterval, s)
}

// Interval is a BED6 record with optional extra columns. Coordinates are
// 0-based and half-open.
type Interval struct {
	Chrom  string   `json:"chrom"`
	Start  int64    `json:"start"`
	End    int64    `json:"end"`
	Name   string   `json:"name"`
	Score  int      `json:"score"`
	Strand Strand   `json:"strand"`
	Extra  []string `json:"extra,omitempty"`
}

// Validate checks the half-open coordinates and the strand.
func (iv Interval) Validate() error {
	if iv.Chrom == "" {
		return fmt.Errorf("%w: empty chromosome", ErrInvalidInterval)
	}
	if iv.Start < 0 {
		return fmt.Errorf("%w: %s:%d-%d: negative start", ErrInvalidInterval, iv.Chrom, iv.Start, iv.End)
	}
	if iv.Start >= iv.End {
		return fmt.Errorf("%w: %s:%d-%d: start must be less than end", ErrInvalidInterval, iv.Chrom, iv.Start, iv.End)
	}
	if _, err := ParseStrand(string(iv.Strand)); err != nil {
		return fmt.Errorf("%s:%d-%d: %w", iv.Chrom, iv.Start, iv.End, err)
	}
	return nil
}

// Fields renders the interval as BED columns.
func (iv Interval) Fields() []string {
	name := iv.Name
	if name == "" {
		name = "."
	}
	fields := make([]string, 0, 6+len(iv.Extra))
	fields = append(fields,
		iv.Chrom,
		strconv.FormatInt(iv.Start, 10),
		strconv.FormatInt(iv.End, 10),
		name,
		strconv.Itoa(iv.Score),
		string(iv.Strand),
	)
	return append(fields, iv.Extra...)
}

// Width returns the number of BED columns the interval occupies.
func (iv Interval) Width() int {
	return 6 + len(iv.Extra)
}

// ParseInterval reads a BED6+ row. Columns after the sixth become Extra.
func ParseInterval(fields []string) (Interval, error) {
	if len(fields) < 6 {
		return Interval{}, fmt.Errorf("%w: expected at least 6 fields, got %d", ErrInvalidInterval, len(fields))
	}
	start, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return Interval{}, fmt.Errorf("%w: start %q: %v", ErrInvalidInterval, fields[1], err)
	}
	end, err := strconv.ParseInt(fields[2], 10, 64)
	if err != nil {
		return Interval{}, fmt.Errorf("%w: end %q: %v", ErrInvalidInterval, fields[2], err)
	}
	score := 0
	if fields[4] != "." {
		score, err = strconv.Atoi(fields[4])
		if err != nil {
			return Interval{}, fmt.Errorf("%w: score %q: %v", ErrInvalidInterval, fields[4], err)
		}
	}
	strand, err := ParseStrand(fields[5])
	if err != nil {
		return Interval{}, err
	}
	iv := Interval{
		Chrom:  fields[0],
		Start:  start,
		End:    end,
		Name:   fields[3],
		Score:  score,
		Strand: strand,
	}
	if len(fields) > 6 {
		iv.Extra = append([]string(nil), fields[6:]...)
	}
	return iv, nil
}

// SortIntervals sorts in place by chromosome (lexicographic, as
// `sort -k1,1 -k2,2n` does) then start then end.
func SortIntervals(ivs []Interval) {
	sort.SliceStable(ivs, func(i, j int) bool {
		a, b := ivs[i], ivs[j]
		if a.Chrom != b.Chrom {
			return a.Chrom < b.Chrom
		}
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		return a.End < b.End
	})
}

// validateSet checks every interval and that all share one column count.
// Returns that width, or 6 for an empty set.
func validateSet(label string, ivs []Interval) (int, error) {
	width := 6
	for i, iv := range ivs {
		if err := iv.Validate(); err != nil {
			return 0, fmt.Errorf("%s record %d: %w", label, i, err)
		}
		if i == 0 {
			width = iv.Width()
		} else if iv.Width() != width {
			return 0, fmt.Errorf("%w: %s record %d has %d columns, expected %d",
				ErrInvalidInterval, label, i, iv.Width(), width)
		}
	}
	return width, nil
}
