package bedtools

import (
	"context"
	"errors"
	"fmt"
	"strconv"
)

// Options controls how interval sets are compared.
type Options struct {
	// ReportPrimary includes the primary record in each hit (-wa).
	ReportPrimary bool
	// ReportSecondary includes the matched secondary record (-wb).
	ReportSecondary bool
	// StrandSpecific only pairs intervals on the same strand (-s).
	StrandSpecific bool
	// Presorted asserts every input is sorted by chromosome then start.
	// When false the inputs are sorted before the tool runs.
	Presorted bool
}

// DefaultOptions reports both records, honours strand and trusts the
// caller's sort order.
func DefaultOptions() Options {
	return Options{
		ReportPrimary:   true,
		ReportSecondary: true,
		StrandSpecific:  true,
		Presorted:       true,
	}
}

// ErrNoSecondary is returned when an operation gets no secondary sets.
var ErrNoSecondary = errors.New("bedtools: at least one secondary interval set is required")

// ErrNothingToReport is returned when neither record side is requested.
var ErrNothingToReport = errors.New("bedtools: neither primary nor secondary records requested")

// Hit is one overlapping (primary, secondary) pair. Primary or Secondary
// is nil when not requested. Set is the index of the secondary set the
// match came from, or -1 when secondary records are not reported.
type Hit struct {
	Primary   *Interval `json:"primary,omitempty"`
	Secondary *Interval `json:"secondary,omitempty"`
	Set       int       `json:"set"`
	// Distance is only meaningful for Closest.
	Distance int64 `json:"distance,omitempty"`
}

// Fields flattens the hit into primary columns followed by secondary
// columns.
func (h Hit) Fields() []string {
	var fields []string
	if h.Primary != nil {
		fields = append(fields, h.Primary.Fields()...)
	}
	if h.Secondary != nil {
		fields = append(fields, h.Secondary.Fields()...)
	}
	return fields
}

// layout describes the column layout of -wa -wb style output: the
// primary columns, an optional file-number column when more than one
// secondary set is given, then the secondary columns.
type layout struct {
	primaryWidth    int
	secondaryWidths []int
}

func (l layout) multi() bool { return len(l.secondaryWidths) > 1 }

// split cuts one output row into its primary part, the secondary set
// index and its secondary part. trailing is the number of columns
// expected after the secondary record.
func (l layout) split(fields []string, trailing int) (primary []string, set int, secondary []string, rest []string, err error) {
	if len(fields) < l.primaryWidth {
		return nil, 0, nil, nil, fmt.Errorf("expected at least %d columns, got %d", l.primaryWidth, len(fields))
	}
	primary = fields[:l.primaryWidth]
	offset := l.primaryWidth
	if l.multi() {
		if len(fields) <= offset {
			return nil, 0, nil, nil, fmt.Errorf("missing file number column")
		}
		n, err := strconv.Atoi(fields[offset])
		if err != nil || n < 1 || n > len(l.secondaryWidths) {
			return nil, 0, nil, nil, fmt.Errorf("bad file number %q", fields[offset])
		}
		set = n - 1
		offset++
	}
	want := offset + l.secondaryWidths[set] + trailing
	if len(fields) != want {
		return nil, 0, nil, nil, fmt.Errorf("expected %d columns, got %d", want, len(fields))
	}
	secondary = fields[offset : offset+l.secondaryWidths[set]]
	rest = fields[offset+l.secondaryWidths[set]:]
	return primary, set, secondary, rest, nil
}

// prepared holds validated inputs written to scratch files.
type prepared struct {
	sc             *scratch
	primaryPath    string
	secondaryPaths []string
	layout         layout
}

func (s *Service) prepare(primary []Interval, secondary [][]Interval, sortFirst bool) (*prepared, error) {
	if len(secondary) == 0 {
		return nil, ErrNoSecondary
	}
	l := layout{secondaryWidths: make([]int, len(secondary))}
	var err error
	if l.primaryWidth, err = validateSet("primary", primary); err != nil {
		return nil, err
	}
	for i, set := range secondary {
		if l.secondaryWidths[i], err = validateSet(fmt.Sprintf("secondary set %d", i), set); err != nil {
			return nil, err
		}
	}

	p := &prepared{sc: s.newScratch(), layout: l}
	if p.primaryPath, err = p.sc.writeIntervals(primary, sortFirst); err != nil {
		p.sc.cleanup()
		return nil, err
	}
	for _, set := range secondary {
		path, err := p.sc.writeIntervals(set, sortFirst)
		if err != nil {
			p.sc.cleanup()
			return nil, err
		}
		p.secondaryPaths = append(p.secondaryPaths, path)
	}
	return p, nil
}

// Intersect reports every overlap between a primary interval and an
// interval of any secondary set. Intervals overlap when they share a
// chromosome, their half-open ranges intersect and, if StrandSpecific,
// their strands match. Primary intervals without any overlap produce no
// rows. Hits come in bedtools merge order.
//
// The tool runs to completion before Intersect returns; the returned
// Result must be consumed or closed.
func (s *Service) Intersect(ctx context.Context, primary []Interval, secondary [][]Interval, opts Options) (*Result[Hit], error) {
	if !opts.ReportPrimary && !opts.ReportSecondary {
		return nil, ErrNothingToReport
	}
	p, err := s.prepare(primary, secondary, !opts.Presorted)
	if err != nil {
		return nil, err
	}
	defer p.sc.cleanup()

	args := []string{"intersect", "-a", p.primaryPath, "-b"}
	args = append(args, p.secondaryPaths...)
	args = append(args, intersectFlags(opts)...)

	out, err := s.run(ctx, args)
	if err != nil {
		return nil, err
	}
	return newResult(out, func(fields []string) (Hit, bool, error) {
		return parseIntersectRow(p.layout, opts, fields)
	}), nil
}

func intersectFlags(opts Options) []string {
	var flags []string
	if opts.ReportPrimary {
		flags = append(flags, "-wa")
	}
	if opts.ReportSecondary {
		flags = append(flags, "-wb")
	}
	if opts.StrandSpecific {
		flags = append(flags, "-s")
	}
	if opts.Presorted {
		flags = append(flags, "-sorted")
	}
	return flags
}

func parseIntersectRow(l layout, opts Options, fields []string) (Hit, bool, error) {
	hit := Hit{Set: -1}
	if !opts.ReportSecondary {
		if len(fields) != l.primaryWidth {
			return hit, false, fmt.Errorf("expected %d columns, got %d", l.primaryWidth, len(fields))
		}
		a, err := ParseInterval(fields)
		if err != nil {
			return hit, false, err
		}
		hit.Primary = &a
		return hit, true, nil
	}

	pf, set, sf, _, err := l.split(fields, 0)
	if err != nil {
		return hit, false, err
	}
	hit.Set = set
	if opts.ReportPrimary {
		a, err := ParseInterval(pf)
		if err != nil {
			return hit, false, err
		}
		hit.Primary = &a
	}
	b, err := ParseInterval(sf)
	if err != nil {
		return hit, false, err
	}
	hit.Secondary = &b
	return hit, true, nil
}
