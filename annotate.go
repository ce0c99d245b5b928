package scimodom

import (
	"context"
	"fmt"

	"github.com/jward/scimodom/internal/bedtools"
	"github.com/jward/scimodom/internal/store"
)

// AnnotateRequest names the annotation directory and the features to
// annotate against. Nil Features and a zero Intergenic use the Ensembl
// defaults.
type AnnotateRequest struct {
	Dir        string
	Features   []Feature
	Intergenic Feature
}

// AnnotateDataset links each record of a dataset to the genes whose
// features it overlaps. Existing annotations of the dataset are replaced.
// Returns the number of annotations stored; repeated gene, record and
// feature triples are stored once.
func (e *Engine) AnnotateDataset(ctx context.Context, eufid string, req AnnotateRequest) (int, error) {
	features := req.Features
	if features == nil {
		features = bedtools.DefaultFeatures
	}
	intergenic := req.Intergenic
	if intergenic == (Feature{}) {
		intergenic = bedtools.DefaultIntergenic
	}

	if _, err := e.Dataset(eufid); err != nil {
		return 0, fmt.Errorf("annotate dataset: %w", err)
	}
	records, err := e.store.DataByDataset(eufid)
	if err != nil {
		return 0, fmt.Errorf("annotate dataset: %w", err)
	}
	targets := make([]bedtools.AnnotationTarget, len(records))
	for i, d := range records {
		targets[i] = bedtools.AnnotationTarget{
			Interval: Interval{
				Chrom:  d.Chrom,
				Start:  d.Start,
				End:    d.End,
				Name:   d.Name,
				Score:  d.Score,
				Strand: bedtools.Strand(d.Strand),
			},
			DataID: d.ID,
		}
	}

	if err := e.store.DeleteAnnotationsByDataset(eufid); err != nil {
		return 0, fmt.Errorf("annotate dataset: %w", err)
	}
	queued := 0
	err = store.WithInsertBuffer[DataAnnotation](e.store.DataAnnotationSession(), func(buf *store.InsertBuffer[DataAnnotation]) error {
		for rec, err := range e.bedtools.Annotate(ctx, targets, req.Dir, features, intergenic) {
			if err != nil {
				return err
			}
			if err := buf.Queue(DataAnnotation{GeneID: rec.GeneID, DataID: rec.DataID, Feature: rec.Feature}); err != nil {
				return err
			}
			queued++
		}
		return nil
	}, store.WithBufferSize(e.bufferSize))
	if err != nil {
		// Batches flushed before the failure are dropped again.
		if derr := e.store.DeleteAnnotationsByDataset(eufid); derr != nil {
			e.logger.Error().Err(derr).Str("eufid", eufid).Msg("remove partial annotation")
		}
		return 0, fmt.Errorf("annotate dataset: %w", err)
	}

	n, err := e.store.CountAnnotations(eufid)
	if err != nil {
		return 0, fmt.Errorf("annotate dataset: %w", err)
	}
	e.logger.Info().Str("eufid", eufid).Int("annotations", n).Int("duplicates", queued-n).Msg("dataset annotated")
	return n, nil
}
