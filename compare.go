package scimodom

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/jward/scimodom/internal/bedtools"
	"github.com/jward/scimodom/internal/script"
)

// Operation selects the bedtools comparison.
type Operation string

const (
	OpIntersect Operation = "intersect"
	OpClosest   Operation = "closest"
	OpSubtract  Operation = "subtract"
)

// ParseOperation validates an operation name.
func ParseOperation(s string) (Operation, error) {
	switch op := Operation(s); op {
	case OpIntersect, OpClosest, OpSubtract:
		return op, nil
	}
	return "", fmt.Errorf("unknown operation %q (want intersect, closest or subtract)", s)
}

// CompareRequest compares a primary dataset with one or more secondary
// datasets.
type CompareRequest struct {
	Operation Operation
	Primary   string
	Secondary []string
	// IgnoreStrand pairs records regardless of strand.
	IgnoreStrand bool
	// Unsorted sorts the records before the tool runs instead of
	// relying on store order, and runs bedtools without -sorted.
	Unsorted bool
	// Filter is an optional Risor expression evaluated per hit.
	Filter string
}

// Extra columns carried by every compared record, after the BED6 fields.
const (
	ExtraEUFID = iota
	ExtraCoverage
	ExtraFrequency
)

// Compare runs the requested operation between stored datasets. Records
// come out of the store sorted, so bedtools runs in its presorted mode
// unless req.Unsorted is set. For subtract each hit holds only the
// primary record.
func (e *Engine) Compare(ctx context.Context, req CompareRequest) ([]Hit, error) {
	if _, err := ParseOperation(string(req.Operation)); err != nil {
		return nil, fmt.Errorf("compare: %w", err)
	}
	if len(req.Secondary) == 0 {
		return nil, fmt.Errorf("compare: %w", bedtools.ErrNoSecondary)
	}

	var filter *script.Filter
	if req.Filter != "" {
		f, err := script.Compile(ctx, req.Filter, script.WithLogger(e.logger))
		if err != nil {
			return nil, fmt.Errorf("compare: %w", err)
		}
		filter = f
	}

	if err := e.requireDatasets(append([]string{req.Primary}, req.Secondary...)); err != nil {
		return nil, fmt.Errorf("compare: %w", err)
	}
	primary, err := e.loadIntervals(req.Primary)
	if err != nil {
		return nil, fmt.Errorf("compare: %w", err)
	}
	secondary := make([][]Interval, len(req.Secondary))
	for i, eufid := range req.Secondary {
		if secondary[i], err = e.loadIntervals(eufid); err != nil {
			return nil, fmt.Errorf("compare: %w", err)
		}
	}

	opts := bedtools.DefaultOptions()
	opts.StrandSpecific = !req.IgnoreStrand
	opts.Presorted = !req.Unsorted

	var hits []Hit
	switch req.Operation {
	case OpIntersect:
		res, err := e.bedtools.Intersect(ctx, primary, secondary, opts)
		if err != nil {
			return nil, fmt.Errorf("compare: %w", err)
		}
		hits, err = res.Collect()
		if err != nil {
			return nil, fmt.Errorf("compare: %w", err)
		}
	case OpClosest:
		res, err := e.bedtools.Closest(ctx, primary, secondary, opts)
		if err != nil {
			return nil, fmt.Errorf("compare: %w", err)
		}
		hits, err = res.Collect()
		if err != nil {
			return nil, fmt.Errorf("compare: %w", err)
		}
	case OpSubtract:
		res, err := e.bedtools.Subtract(ctx, primary, secondary, opts)
		if err != nil {
			return nil, fmt.Errorf("compare: %w", err)
		}
		ivs, err := res.Collect()
		if err != nil {
			return nil, fmt.Errorf("compare: %w", err)
		}
		hits = make([]Hit, len(ivs))
		for i := range ivs {
			hits[i] = Hit{Primary: &ivs[i], Set: -1}
		}
	}

	if filter == nil {
		return hits, nil
	}
	kept := hits[:0]
	for _, h := range hits {
		ok, err := filter.Match(ctx, h)
		if err != nil {
			return nil, fmt.Errorf("compare: %w", err)
		}
		if ok {
			kept = append(kept, h)
		}
	}
	e.logger.Debug().Int("hits", len(hits)).Int("kept", len(kept)).Msg("filter applied")
	return kept, nil
}

// requireDatasets fails with ErrDatasetNotFound naming every missing EUFID.
func (e *Engine) requireDatasets(eufids []string) error {
	found, err := e.store.DatasetsByIDs(eufids)
	if err != nil {
		return err
	}
	have := make(map[string]bool, len(found))
	for _, d := range found {
		have[d.EUFID] = true
	}
	var missing []string
	for _, id := range eufids {
		if !have[id] && !slices.Contains(missing, id) {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrDatasetNotFound, strings.Join(missing, ", "))
	}
	return nil
}

// loadIntervals reads a dataset's records as intervals. The store orders
// them by chromosome, start and end.
func (e *Engine) loadIntervals(eufid string) ([]Interval, error) {
	records, err := e.store.DataByDataset(eufid)
	if err != nil {
		return nil, err
	}
	ivs := make([]Interval, len(records))
	for i, d := range records {
		ivs[i] = Interval{
			Chrom:  d.Chrom,
			Start:  d.Start,
			End:    d.End,
			Name:   d.Name,
			Score:  d.Score,
			Strand: bedtools.Strand(d.Strand),
			Extra:  []string{d.DatasetID, strconv.Itoa(d.Coverage), strconv.Itoa(d.Frequency)},
		}
	}
	return ivs, nil
}
