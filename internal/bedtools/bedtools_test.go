package bedtools

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/scimodom/internal/toolexec"
)

// fakeRunner records invocations, snapshots the BED inputs it is given
// and answers with canned output.
type fakeRunner struct {
	calls  [][]string
	inputs map[string]string
	output func(args []string) string
	err    error
}

func (f *fakeRunner) Run(ctx context.Context, name string, args []string, stdout io.Writer) error {
	f.calls = append(f.calls, append([]string{name}, args...))
	if f.inputs == nil {
		f.inputs = make(map[string]string)
	}
	for _, a := range args {
		if strings.HasSuffix(a, ".bed") {
			data, _ := os.ReadFile(a)
			f.inputs[a] = string(data)
		}
	}
	if f.err != nil {
		return f.err
	}
	if f.output != nil {
		_, err := io.WriteString(stdout, f.output(args))
		return err
	}
	return nil
}

func newFakeService(t *testing.T, r *fakeRunner) (*Service, string) {
	t.Helper()
	dir := t.TempDir()
	s, err := NewService(dir, WithRunner(r))
	require.NoError(t, err)
	return s, dir
}

func iv(chrom string, start, end int64, strand Strand, extra ...string) Interval {
	return Interval{Chrom: chrom, Start: start, End: end, Name: "m6A", Score: 0, Strand: strand, Extra: extra}
}

func rows(lines ...string) string {
	return strings.Join(lines, "\n") + "\n"
}

func assertScratchEmpty(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "scratch files must be removed")
}

// =============================================================================
// Interval
// =============================================================================

func TestInterval_Validate(t *testing.T) {
	t.Parallel()
	require.NoError(t, iv("1", 10, 20, Forward).Validate())
	require.NoError(t, iv("1", 0, 1, Undefined).Validate())

	for name, bad := range map[string]Interval{
		"empty chrom":    iv("", 10, 20, Forward),
		"start == end":   iv("1", 20, 20, Forward),
		"start > end":    iv("1", 30, 20, Forward),
		"negative start": iv("1", -1, 20, Forward),
		"bad strand":     iv("1", 10, 20, Strand("x")),
	} {
		err := bad.Validate()
		assert.ErrorIs(t, err, ErrInvalidInterval, name)
	}
}

func TestParseInterval(t *testing.T) {
	t.Parallel()
	got, err := ParseInterval([]string{"chr1", "10", "20", "m6A", "5", "-", "DATASET_A___", "30", "40"})
	require.NoError(t, err)
	assert.Equal(t, Interval{
		Chrom: "chr1", Start: 10, End: 20, Name: "m6A", Score: 5, Strand: Reverse,
		Extra: []string{"DATASET_A___", "30", "40"},
	}, got)
	assert.Equal(t, []string{"chr1", "10", "20", "m6A", "5", "-", "DATASET_A___", "30", "40"}, got.Fields())

	dotScore, err := ParseInterval([]string{"1", "0", "5", ".", ".", "."})
	require.NoError(t, err)
	assert.Zero(t, dotScore.Score)

	_, err = ParseInterval([]string{"1", "0", "5"})
	assert.ErrorIs(t, err, ErrInvalidInterval)
	_, err = ParseInterval([]string{"1", "x", "5", ".", "0", "+"})
	assert.ErrorIs(t, err, ErrInvalidInterval)
}

func TestSortIntervals_LexicographicChromThenStart(t *testing.T) {
	t.Parallel()
	ivs := []Interval{iv("2", 5, 6, Forward), iv("10", 1, 2, Forward), iv("1", 9, 10, Forward), iv("1", 3, 4, Forward)}
	SortIntervals(ivs)
	var got []string
	for _, x := range ivs {
		got = append(got, strings.Join(x.Fields()[:2], ":"))
	}
	assert.Equal(t, []string{"1:3", "1:9", "10:1", "2:5"}, got)
}

// =============================================================================
// Intersect
// =============================================================================

func TestIntersect_MultipleSetsParsesFileNumber(t *testing.T) {
	t.Parallel()
	r := &fakeRunner{output: func([]string) string {
		return rows(
			"1\t10\t20\tm6A\t0\t+\tA\t1\t1\t15\t25\tm6A\t0\t+\tB",
			"1\t10\t20\tm6A\t0\t+\tA\t2\t1\t12\t13\tm6A\t0\t+\tC\t99",
		)
	}}
	s, dir := newFakeService(t, r)

	res, err := s.Intersect(context.Background(),
		[]Interval{iv("1", 10, 20, Forward, "A")},
		[][]Interval{{iv("1", 15, 25, Forward, "B")}, {iv("1", 12, 13, Forward, "C", "99")}},
		DefaultOptions())
	require.NoError(t, err)
	hits, err := res.Collect()
	require.NoError(t, err)
	require.Len(t, hits, 2)

	assert.Equal(t, 0, hits[0].Set)
	assert.Equal(t, []string{"B"}, hits[0].Secondary.Extra)
	assert.Equal(t, 1, hits[1].Set)
	assert.Equal(t, []string{"C", "99"}, hits[1].Secondary.Extra)
	assert.Equal(t, int64(10), hits[1].Primary.Start)
	assert.Equal(t,
		[]string{"1", "10", "20", "m6A", "0", "+", "A", "1", "12", "13", "m6A", "0", "+", "C", "99"},
		hits[1].Fields())

	require.Len(t, r.calls, 1)
	call := r.calls[0]
	assert.Equal(t, []string{"bedtools", "intersect", "-a"}, call[:3])
	assert.Equal(t, "-b", call[4])
	assert.Equal(t, []string{"-wa", "-wb", "-s", "-sorted"}, call[len(call)-4:])

	assertScratchEmpty(t, dir)
}

func TestIntersect_SingleSetHasNoFileNumber(t *testing.T) {
	t.Parallel()
	r := &fakeRunner{output: func([]string) string {
		return rows("1\t10\t20\tm6A\t0\t+\t1\t15\t25\tm6A\t0\t+")
	}}
	s, _ := newFakeService(t, r)

	res, err := s.Intersect(context.Background(),
		[]Interval{iv("1", 10, 20, Forward)},
		[][]Interval{{iv("1", 15, 25, Forward)}},
		DefaultOptions())
	require.NoError(t, err)
	hits, err := res.Collect()
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, 0, hits[0].Set)
	assert.Equal(t, int64(15), hits[0].Secondary.Start)
}

func TestIntersect_OptionFlags(t *testing.T) {
	t.Parallel()
	r := &fakeRunner{}
	s, _ := newFakeService(t, r)

	opts := DefaultOptions()
	opts.StrandSpecific = false
	opts.Presorted = false
	res, err := s.Intersect(context.Background(),
		[]Interval{iv("2", 1, 2, Forward), iv("1", 50, 60, Forward), iv("1", 5, 6, Forward)},
		[][]Interval{{iv("1", 1, 2, Forward)}},
		opts)
	require.NoError(t, err)
	hits, err := res.Collect()
	require.NoError(t, err)
	assert.Empty(t, hits)

	call := r.calls[0]
	assert.Equal(t, []string{"-wa", "-wb"}, call[len(call)-2:])
	assert.NotContains(t, call, "-s")
	assert.NotContains(t, call, "-sorted")

	primary := r.inputs[call[3]]
	assert.Equal(t, rows(
		"1\t5\t6\tm6A\t0\t+",
		"1\t50\t60\tm6A\t0\t+",
		"2\t1\t2\tm6A\t0\t+",
	), primary, "unsorted input is sorted before invocation")
}

func TestIntersect_PresortedInputWrittenAsIs(t *testing.T) {
	t.Parallel()
	r := &fakeRunner{}
	s, _ := newFakeService(t, r)

	res, err := s.Intersect(context.Background(),
		[]Interval{iv("2", 1, 2, Forward), iv("1", 5, 6, Forward)},
		[][]Interval{{iv("1", 1, 2, Forward)}},
		DefaultOptions())
	require.NoError(t, err)
	require.NoError(t, res.Close())

	primary := r.inputs[r.calls[0][3]]
	assert.Equal(t, rows("2\t1\t2\tm6A\t0\t+", "1\t5\t6\tm6A\t0\t+"), primary)
}

func TestIntersect_PrimaryOnly(t *testing.T) {
	t.Parallel()
	r := &fakeRunner{output: func([]string) string {
		return rows("1\t10\t20\tm6A\t0\t+", "1\t10\t20\tm6A\t0\t+")
	}}
	s, _ := newFakeService(t, r)

	opts := DefaultOptions()
	opts.ReportSecondary = false
	res, err := s.Intersect(context.Background(),
		[]Interval{iv("1", 10, 20, Forward)},
		[][]Interval{{iv("1", 15, 25, Forward)}, {iv("1", 11, 12, Forward)}},
		opts)
	require.NoError(t, err)
	hits, err := res.Collect()
	require.NoError(t, err)
	require.Len(t, hits, 2)
	for _, h := range hits {
		assert.Nil(t, h.Secondary)
		assert.Equal(t, -1, h.Set)
		require.NotNil(t, h.Primary)
	}
	assert.NotContains(t, r.calls[0], "-wb")
}

func TestIntersect_SecondaryOnly(t *testing.T) {
	t.Parallel()
	r := &fakeRunner{output: func([]string) string {
		return rows("1\t15\t20\tm6A\t0\t+\t1\t15\t25\tm6A\t0\t+")
	}}
	s, _ := newFakeService(t, r)

	opts := DefaultOptions()
	opts.ReportPrimary = false
	res, err := s.Intersect(context.Background(),
		[]Interval{iv("1", 10, 20, Forward)},
		[][]Interval{{iv("1", 15, 25, Forward)}},
		opts)
	require.NoError(t, err)
	hits, err := res.Collect()
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Nil(t, hits[0].Primary)
	assert.Equal(t, int64(25), hits[0].Secondary.End)
	assert.NotContains(t, r.calls[0], "-wa")
}

func TestIntersect_RejectsBeforeInvocation(t *testing.T) {
	t.Parallel()
	r := &fakeRunner{}
	s, dir := newFakeService(t, r)
	ctx := context.Background()

	_, err := s.Intersect(ctx, []Interval{iv("1", 20, 10, Forward)}, [][]Interval{{iv("1", 1, 2, Forward)}}, DefaultOptions())
	assert.ErrorIs(t, err, ErrInvalidInterval)

	_, err = s.Intersect(ctx, []Interval{iv("1", 1, 2, Forward)}, [][]Interval{{iv("1", 1, 2, Forward), iv("1", 3, 4, Forward, "x")}}, DefaultOptions())
	assert.ErrorIs(t, err, ErrInvalidInterval, "mixed column counts within a set")

	_, err = s.Intersect(ctx, []Interval{iv("1", 1, 2, Forward)}, nil, DefaultOptions())
	assert.ErrorIs(t, err, ErrNoSecondary)

	_, err = s.Intersect(ctx, []Interval{iv("1", 1, 2, Forward)}, [][]Interval{{iv("1", 1, 2, Forward)}}, Options{})
	assert.ErrorIs(t, err, ErrNothingToReport)

	assert.Empty(t, r.calls)
	assertScratchEmpty(t, dir)
}

func TestIntersect_ToolFailureReturnsNoResult(t *testing.T) {
	t.Parallel()
	toolErr := &toolexec.ToolError{Tool: "bedtools", Stderr: "Error: unable to open file", Err: errors.New("exit status 1")}
	r := &fakeRunner{err: toolErr}
	s, dir := newFakeService(t, r)

	res, err := s.Intersect(context.Background(),
		[]Interval{iv("1", 1, 2, Forward)}, [][]Interval{{iv("1", 1, 2, Forward)}}, DefaultOptions())
	require.Error(t, err)
	assert.Nil(t, res)

	var te *toolexec.ToolError
	require.ErrorAs(t, err, &te)
	assert.Contains(t, err.Error(), "unable to open file")
	assertScratchEmpty(t, dir)
}

func TestIntersect_MalformedOutputFails(t *testing.T) {
	t.Parallel()
	r := &fakeRunner{output: func([]string) string {
		return rows(
			"1\t10\t20\tm6A\t0\t+\t1\t15\t25\tm6A\t0\t+",
			"1\t10\t20\tm6A\t0\t+\t1\t15",
		)
	}}
	s, dir := newFakeService(t, r)

	res, err := s.Intersect(context.Background(),
		[]Interval{iv("1", 10, 20, Forward)}, [][]Interval{{iv("1", 15, 25, Forward)}}, DefaultOptions())
	require.NoError(t, err)
	hits, err := res.Collect()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
	assert.Nil(t, hits, "no partial output")
	assertScratchEmpty(t, dir)
}

func TestResult_SinglePass(t *testing.T) {
	t.Parallel()
	r := &fakeRunner{output: func([]string) string {
		return rows("1\t10\t20\tm6A\t0\t+\t1\t15\t25\tm6A\t0\t+")
	}}
	s, _ := newFakeService(t, r)

	res, err := s.Intersect(context.Background(),
		[]Interval{iv("1", 10, 20, Forward)}, [][]Interval{{iv("1", 15, 25, Forward)}}, DefaultOptions())
	require.NoError(t, err)
	hits, err := res.Collect()
	require.NoError(t, err)
	assert.Len(t, hits, 1)

	_, err = res.Collect()
	assert.ErrorIs(t, err, ErrConsumed)
}

func TestResult_EarlyBreakRemovesOutput(t *testing.T) {
	t.Parallel()
	r := &fakeRunner{output: func([]string) string {
		return rows(
			"1\t10\t20\tm6A\t0\t+\t1\t15\t25\tm6A\t0\t+",
			"1\t10\t20\tm6A\t0\t+\t1\t16\t25\tm6A\t0\t+",
		)
	}}
	s, dir := newFakeService(t, r)

	res, err := s.Intersect(context.Background(),
		[]Interval{iv("1", 10, 20, Forward)}, [][]Interval{{iv("1", 15, 25, Forward)}}, DefaultOptions())
	require.NoError(t, err)
	for _, err := range res.All() {
		require.NoError(t, err)
		break
	}
	assertScratchEmpty(t, dir)
}

// =============================================================================
// Closest & Subtract
// =============================================================================

func TestClosest_DropsMissingAndParsesDistance(t *testing.T) {
	t.Parallel()
	r := &fakeRunner{output: func([]string) string {
		return rows(
			"1\t101\t102\tm6A\t1\t+\t1\t1\t97\t100\tm6A\t9\t+\t-2",
			"2\t5\t6\tm6A\t1\t+\t.\t.\t-1\t-1\t.\t-1\t.\t-1",
			"1\t599\t600\tm6A\t5\t+\t2\t1\t700\t701\tm6A\t7\t+\t101",
		)
	}}
	s, _ := newFakeService(t, r)

	opts := DefaultOptions()
	res, err := s.Closest(context.Background(),
		[]Interval{iv("1", 101, 102, Forward), iv("1", 599, 600, Forward), iv("2", 5, 6, Forward)},
		[][]Interval{{iv("1", 97, 100, Forward)}, {iv("1", 700, 701, Forward)}},
		opts)
	require.NoError(t, err)
	hits, err := res.Collect()
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, int64(-2), hits[0].Distance)
	assert.Equal(t, 0, hits[0].Set)
	assert.Equal(t, int64(101), hits[1].Distance)
	assert.Equal(t, 1, hits[1].Set)

	call := r.calls[0]
	assert.Equal(t, "closest", call[1])
	assert.Contains(t, call, "-io")
	assert.Contains(t, call, "-mdb")
	assert.Contains(t, call, "-s")
	assert.Contains(t, call, "-sorted")
}

func TestClosest_UnsortedOmitsSortedFlag(t *testing.T) {
	t.Parallel()
	r := &fakeRunner{output: func([]string) string {
		return rows("1\t101\t102\tm6A\t1\t+\t1\t97\t100\tm6A\t9\t+\t-2")
	}}
	s, _ := newFakeService(t, r)

	opts := DefaultOptions()
	opts.Presorted = false
	res, err := s.Closest(context.Background(),
		[]Interval{iv("1", 101, 102, Forward)}, [][]Interval{{iv("1", 97, 100, Forward)}}, opts)
	require.NoError(t, err)
	hits, err := res.Collect()
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, int64(-2), hits[0].Distance)
	assert.NotContains(t, r.calls[0], "-sorted")
}

func TestSubtract_PoolsAndSortsSecondary(t *testing.T) {
	t.Parallel()
	r := &fakeRunner{output: func([]string) string {
		return rows("1\t10\t15\tm6A\t0\t+\tA")
	}}
	s, dir := newFakeService(t, r)

	res, err := s.Subtract(context.Background(),
		[]Interval{iv("1", 10, 20, Forward, "A")},
		[][]Interval{{iv("1", 50, 60, Forward)}, {iv("1", 15, 20, Forward, "x", "y")}},
		DefaultOptions())
	require.NoError(t, err)
	got, err := res.Collect()
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(15), got[0].End)
	assert.Equal(t, []string{"A"}, got[0].Extra)

	call := r.calls[0]
	assert.Equal(t, []string{"bedtools", "subtract", "-a"}, call[:3])
	assert.Equal(t, rows("1\t15\t20\tm6A\t0\t+\tx\ty", "1\t50\t60\tm6A\t0\t+"), r.inputs[call[5]])
	assert.Equal(t, []string{"-s", "-sorted"}, call[6:])
	assertScratchEmpty(t, dir)
}

// =============================================================================
// Annotate
// =============================================================================

func writeFeatureFiles(t *testing.T, dir string) {
	t.Helper()
	require.NoError(t, os.WriteFile(dir+"/exon.bed", []byte(rows(
		"1\t0\t50\t.\t.\t+\tENSG00000001,ENSG00000002\tprotein_coding",
	)), 0o644))
	require.NoError(t, os.WriteFile(dir+"/intron.bed", []byte(rows(
		"1\t50\t80\t.\t.\t+\tENSG00000001\tprotein_coding",
	)), 0o644))
	require.NoError(t, os.WriteFile(dir+"/intergenic.bed", []byte(rows("1\t100\t200")), 0o644))
}

func TestAnnotate_SplitsGeneIDsAndNamesIntergenic(t *testing.T) {
	t.Parallel()
	annDir := t.TempDir()
	writeFeatureFiles(t, annDir)

	r := &fakeRunner{output: func(args []string) string {
		switch {
		case strings.HasSuffix(args[4], "exon.bed"):
			return rows("1\t10\t11\tm6A\t0\t+\t7\t1\t0\t50\t.\t.\t+\tENSG00000001,ENSG00000002\tprotein_coding")
		case strings.HasSuffix(args[4], "intron.bed"):
			return ""
		default:
			return rows("1\t150\t151\tm6A\t0\t-\t8\t1\t100\t200")
		}
	}}
	s, dir := newFakeService(t, r)

	targets := []AnnotationTarget{
		{Interval: iv("1", 150, 151, Reverse), DataID: 8},
		{Interval: iv("1", 10, 11, Forward), DataID: 7},
	}
	var got []AnnotationRecord
	for rec, err := range s.Annotate(context.Background(), targets, annDir,
		[]Feature{{Name: "exon", Label: "Exonic"}, {Name: "intron", Label: "Intronic"}}, DefaultIntergenic) {
		require.NoError(t, err)
		got = append(got, rec)
	}

	assert.Equal(t, []AnnotationRecord{
		{GeneID: "ENSG00000001", DataID: 7, Feature: "Exonic"},
		{GeneID: "ENSG00000002", DataID: 7, Feature: "Exonic"},
		{GeneID: "ENSGIntergenic", DataID: 8, Feature: "Intergenic"},
	}, got)

	require.Len(t, r.calls, 3)
	assert.Contains(t, r.calls[0], "-s")
	assert.NotContains(t, r.calls[2], "-s", "intergenic is strand agnostic")
	assert.Equal(t, rows("1\t10\t11\tm6A\t0\t+\t7", "1\t150\t151\tm6A\t0\t-\t8"), r.inputs[r.calls[0][3]])
	assertScratchEmpty(t, dir)
}

func TestAnnotate_MissingIntergenic(t *testing.T) {
	t.Parallel()
	r := &fakeRunner{}
	s, _ := newFakeService(t, r)
	for _, err := range s.Annotate(context.Background(), nil, t.TempDir(), DefaultFeatures, Feature{}) {
		var fe *AnnotationFormatError
		require.ErrorAs(t, err, &fe)
	}
	assert.Empty(t, r.calls)
}

func TestAnnotate_MissingFeatureFile(t *testing.T) {
	t.Parallel()
	r := &fakeRunner{}
	s, _ := newFakeService(t, r)
	var errs []error
	for _, err := range s.Annotate(context.Background(),
		[]AnnotationTarget{{Interval: iv("1", 1, 2, Forward), DataID: 1}}, t.TempDir(), DefaultFeatures, DefaultIntergenic) {
		errs = append(errs, err)
	}
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], os.ErrNotExist)
}

func TestEnsemblPrefix(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "ENSG", EnsemblPrefix("ENSG00000118271"))
	assert.Equal(t, "ENSMUSG", EnsemblPrefix("ENSMUSG00000064370"))
	assert.Equal(t, "", EnsemblPrefix("12345"))
}

// =============================================================================
// Real bedtools
// =============================================================================

func newBedtoolsService(t *testing.T) *Service {
	t.Helper()
	if _, err := exec.LookPath(DefaultBinary); err != nil {
		t.Skip("bedtools not installed")
	}
	s, err := NewService(t.TempDir())
	require.NoError(t, err)
	return s
}

func intersectCount(t *testing.T, s *Service, a Interval, b []Interval, strand bool) int {
	t.Helper()
	opts := DefaultOptions()
	opts.StrandSpecific = strand
	res, err := s.Intersect(context.Background(), []Interval{a}, [][]Interval{b}, opts)
	require.NoError(t, err)
	hits, err := res.Collect()
	require.NoError(t, err)
	return len(hits)
}

func TestBedtools_HalfOpenOverlap(t *testing.T) {
	t.Parallel()
	s := newBedtoolsService(t)
	assert.Equal(t, 1, intersectCount(t, s, iv("1", 10, 20, Forward), []Interval{iv("1", 15, 25, Forward)}, true))
	assert.Equal(t, 0, intersectCount(t, s, iv("1", 10, 20, Forward), []Interval{iv("1", 20, 30, Forward)}, true))
}

func TestBedtools_StrandSensitivity(t *testing.T) {
	t.Parallel()
	s := newBedtoolsService(t)
	assert.Equal(t, 0, intersectCount(t, s, iv("1", 10, 20, Forward), []Interval{iv("1", 10, 20, Reverse)}, true))
	assert.Equal(t, 1, intersectCount(t, s, iv("1", 10, 20, Forward), []Interval{iv("1", 10, 20, Reverse)}, false))
}

func TestBedtools_OneRowPerSetAndNoPadding(t *testing.T) {
	t.Parallel()
	s := newBedtoolsService(t)

	res, err := s.Intersect(context.Background(),
		[]Interval{iv("1", 10, 20, Forward, "A"), iv("1", 500, 600, Forward, "A")},
		[][]Interval{{iv("1", 12, 13, Forward, "B")}, {iv("1", 18, 30, Forward, "C")}},
		DefaultOptions())
	require.NoError(t, err)
	hits, err := res.Collect()
	require.NoError(t, err)
	require.Len(t, hits, 2, "the unmatched primary yields nothing")

	sets := map[int]string{}
	for _, h := range hits {
		assert.Equal(t, int64(10), h.Primary.Start)
		sets[h.Set] = h.Secondary.Extra[0]
	}
	assert.Equal(t, map[int]string{0: "B", 1: "C"}, sets)
}
