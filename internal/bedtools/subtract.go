package bedtools

import (
	"context"
	"fmt"
)

// Subtract removes from every primary interval the parts covered by any
// interval of the secondary sets, which are pooled into one set first.
// Primary intervals entirely covered disappear; partially covered ones
// come back trimmed or split.
func (s *Service) Subtract(ctx context.Context, primary []Interval, secondary [][]Interval, opts Options) (*Result[Interval], error) {
	if len(secondary) == 0 {
		return nil, ErrNoSecondary
	}
	width, err := validateSet("primary", primary)
	if err != nil {
		return nil, err
	}
	var pooled []Interval
	for i, set := range secondary {
		for j, iv := range set {
			if err := iv.Validate(); err != nil {
				return nil, fmt.Errorf("secondary set %d record %d: %w", i, j, err)
			}
		}
		pooled = append(pooled, set...)
	}

	sc := s.newScratch()
	defer sc.cleanup()
	primaryPath, err := sc.writeIntervals(primary, !opts.Presorted)
	if err != nil {
		return nil, err
	}
	// Concatenated sets are only sorted if sorted as a whole.
	pooledPath, err := sc.writeIntervals(pooled, len(secondary) > 1 || !opts.Presorted)
	if err != nil {
		return nil, err
	}

	args := []string{"subtract", "-a", primaryPath, "-b", pooledPath}
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
	return newResult(out, func(fields []string) (Interval, bool, error) {
		if len(fields) != width {
			return Interval{}, false, fmt.Errorf("expected %d columns, got %d", width, len(fields))
		}
		iv, err := ParseInterval(fields)
		return iv, err == nil, err
	}), nil
}
