package bedtools

import (
	"context"
	"fmt"
	"strconv"
)

// Closest reports, for every primary interval, the nearest non-overlapping
// interval across all secondary sets (ties are all reported). Distance is
// signed relative to the primary interval. Primary intervals with no
// secondary interval on their chromosome produce no rows.
//
// bedtools closest always sweeps sorted input, so the inputs are sorted
// here unless Presorted is set, in which case -sorted is passed through.
func (s *Service) Closest(ctx context.Context, primary []Interval, secondary [][]Interval, opts Options) (*Result[Hit], error) {
	p, err := s.prepare(primary, secondary, !opts.Presorted)
	if err != nil {
		return nil, err
	}
	defer p.sc.cleanup()

	args := []string{"closest", "-a", p.primaryPath, "-b"}
	args = append(args, p.secondaryPaths...)
	args = append(args,
		"-io",         // ignore overlapping features
		"-t", "all",   // report all ties
		"-mdb", "all", // closest among all secondary sets
		"-D", "a",     // distance relative to the primary
	)
	if opts.StrandSpecific {
		args = append(args, "-s")
	}
	if opts.Presorted {
		args = append(args, "-sorted")
	}

	out, err := s.run(ctx, args)
	if err != nil {
		return nil, err
	}
	return newResult(out, func(fields []string) (Hit, bool, error) {
		return parseClosestRow(p.layout, fields)
	}), nil
}

func parseClosestRow(l layout, fields []string) (Hit, bool, error) {
	// Without a secondary interval on the chromosome bedtools pads the
	// secondary columns with "." and -1.
	offset := l.primaryWidth
	if l.multi() {
		offset++
	}
	if len(fields) > offset+1 && fields[offset+1] == "-1" {
		return Hit{}, false, nil
	}

	pf, set, sf, rest, err := l.split(fields, 1)
	if err != nil {
		return Hit{}, false, err
	}
	a, err := ParseInterval(pf)
	if err != nil {
		return Hit{}, false, err
	}
	b, err := ParseInterval(sf)
	if err != nil {
		return Hit{}, false, err
	}
	d, err := strconv.ParseInt(rest[0], 10, 64)
	if err != nil {
		return Hit{}, false, fmt.Errorf("distance %q: %w", rest[0], err)
	}
	return Hit{Primary: &a, Secondary: &b, Set: set, Distance: d}, true, nil
}
