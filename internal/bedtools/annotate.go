package bedtools

import (
	"bufio"
	"context"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Feature names a genomic feature file (<Name>.bed in the annotation
// directory) and the label stored for records falling into it.
type Feature struct {
	Name  string
	Label string
}

// DefaultFeatures are the Ensembl gene features, in annotation order.
var DefaultFeatures = []Feature{
	{Name: "exon", Label: "Exonic"},
	{Name: "five_prime_utr", Label: "5'UTR"},
	{Name: "three_prime_utr", Label: "3'UTR"},
	{Name: "CDS", Label: "CDS"},
	{Name: "intron", Label: "Intronic"},
}

// DefaultIntergenic is the Ensembl intergenic feature.
var DefaultIntergenic = Feature{Name: "intergenic", Label: "Intergenic"}

// AnnotationFormatError reports annotation files or feature definitions
// that do not match what annotation expects.
type AnnotationFormatError struct {
	Msg string
}

func (e *AnnotationFormatError) Error() string {
	return "annotation format: " + e.Msg
}

// AnnotationTarget is a stored modification record to annotate.
type AnnotationTarget struct {
	Interval Interval
	DataID   int64
}

// AnnotationRecord links a record to a gene through a feature.
type AnnotationRecord struct {
	GeneID  string
	DataID  int64
	Feature string
}

// feature files are BED6+2: gene ids (comma separated after merging) in
// column 7, biotypes in column 8.
const (
	targetWidth     = 7
	featureGeneCol  = 6
	hitGeneIDColumn = targetWidth + featureGeneCol
)

// Annotate intersects targets with each feature file in dir (strand
// aware) and with the intergenic file (strand agnostic). Every gene id of
// an overlapping feature yields one record. Intergenic records get the
// gene id <prefix><intergenic label>, where prefix is the Ensembl prefix
// of the first gene id in the first feature file.
//
// Tools run lazily as the sequence is consumed, one per feature.
func (s *Service) Annotate(ctx context.Context, targets []AnnotationTarget, dir string, features []Feature, intergenic Feature) iter.Seq2[AnnotationRecord, error] {
	return func(yield func(AnnotationRecord, error) bool) {
		if intergenic.Name == "" {
			yield(AnnotationRecord{}, &AnnotationFormatError{Msg: "missing intergenic feature definition"})
			return
		}
		ivs := make([]Interval, len(targets))
		for i, t := range targets {
			iv := t.Interval
			iv.Extra = []string{strconv.FormatInt(t.DataID, 10)}
			if err := iv.Validate(); err != nil {
				yield(AnnotationRecord{}, fmt.Errorf("annotation target %d: %w", t.DataID, err))
				return
			}
			ivs[i] = iv
		}

		sc := s.newScratch()
		defer sc.cleanup()
		targetPath, err := sc.writeIntervals(ivs, true)
		if err != nil {
			yield(AnnotationRecord{}, err)
			return
		}

		prefix := ""
		for i, f := range features {
			path := filepath.Join(dir, f.Name+".bed")
			if i == 0 {
				geneID, err := firstGeneID(path)
				if err != nil {
					yield(AnnotationRecord{}, err)
					return
				}
				prefix = EnsemblPrefix(geneID)
			}
			args := []string{"intersect", "-a", targetPath, "-b", path, "-wa", "-wb", "-s", "-sorted"}
			label := f.Label
			if !s.yieldAnnotations(ctx, args, yield, func(fields []string) ([]AnnotationRecord, error) {
				return featureRecords(fields, label)
			}) {
				return
			}
		}

		path := filepath.Join(dir, intergenic.Name+".bed")
		args := []string{"intersect", "-a", targetPath, "-b", path, "-wa", "-wb", "-sorted"}
		geneID := prefix + intergenic.Label
		s.yieldAnnotations(ctx, args, yield, func(fields []string) ([]AnnotationRecord, error) {
			id, err := strconv.ParseInt(fields[targetWidth-1], 10, 64)
			if err != nil {
				return nil, fmt.Errorf("data id %q: %w", fields[targetWidth-1], err)
			}
			return []AnnotationRecord{{GeneID: geneID, DataID: id, Feature: intergenic.Label}}, nil
		})
	}
}

// yieldAnnotations runs one intersect and forwards its records. Returns
// false when iteration must stop.
func (s *Service) yieldAnnotations(ctx context.Context, args []string, yield func(AnnotationRecord, error) bool, parse func([]string) ([]AnnotationRecord, error)) bool {
	out, err := s.run(ctx, args)
	if err != nil {
		yield(AnnotationRecord{}, err)
		return false
	}
	res := newResult(out, func(fields []string) ([]AnnotationRecord, bool, error) {
		if len(fields) <= targetWidth {
			return nil, false, fmt.Errorf("expected more than %d columns, got %d", targetWidth, len(fields))
		}
		recs, err := parse(fields)
		return recs, err == nil, err
	})
	for recs, err := range res.All() {
		if err != nil {
			yield(AnnotationRecord{}, err)
			return false
		}
		for _, r := range recs {
			if !yield(r, nil) {
				return false
			}
		}
	}
	return true
}

func featureRecords(fields []string, label string) ([]AnnotationRecord, error) {
	if len(fields) <= hitGeneIDColumn {
		return nil, &AnnotationFormatError{Msg: fmt.Sprintf("feature row has %d columns, expected gene ids in column %d", len(fields)-targetWidth, featureGeneCol+1)}
	}
	id, err := strconv.ParseInt(fields[targetWidth-1], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("data id %q: %w", fields[targetWidth-1], err)
	}
	var recs []AnnotationRecord
	for _, gene := range strings.Split(fields[hitGeneIDColumn], ",") {
		if gene == "" {
			continue
		}
		recs = append(recs, AnnotationRecord{GeneID: gene, DataID: id, Feature: label})
	}
	return recs, nil
}

// firstGeneID returns the first gene id of a feature file.
func firstGeneID(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open feature file: %w", err)
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) <= featureGeneCol {
			return "", &AnnotationFormatError{Msg: fmt.Sprintf("%s: expected gene ids in column %d", filepath.Base(path), featureGeneCol+1)}
		}
		return strings.Split(fields[featureGeneCol], ",")[0], nil
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("read feature file: %w", err)
	}
	return "", &AnnotationFormatError{Msg: filepath.Base(path) + ": empty feature file"}
}

// EnsemblPrefix returns the alphabetic prefix of an Ensembl stable id,
// e.g. ENSG for ENSG00000118271.
func EnsemblPrefix(id string) string {
	return strings.TrimRight(id, "0123456789")
}
