// Package scimodom stores RNA modification datasets and compares them
// as genomic intervals using bedtools.
//
// # Pipeline
//
// Datasets are imported from bedRMod files. Records are validated,
// written to SQLite through a buffered bulk insert (one transaction per
// batch) and grouped under a 12-character EUFID. Datasets may belong to a
// project, identified by an 8-character SMID ([Engine.CreateProject]).
//
// Stored datasets are compared with [Engine.Compare], which writes the
// records to scratch BED files, runs bedtools intersect, closest or
// subtract and reads the tool output back as hits. A Risor expression can
// filter the hits.
//
// # Usage
//
//	e, err := scimodom.New("scimodom.db")
//	if err != nil { ... }
//	defer e.Close()
//
//	ctx := context.Background()
//	res, err := e.ImportDataset(ctx, f, scimodom.ImportRequest{Title: "HEK293 m6A"})
//	hits, err := e.Compare(ctx, scimodom.CompareRequest{
//		Operation: scimodom.OpIntersect,
//		Primary:   res.Dataset.EUFID,
//		Secondary: []string{"Q8sEfV2xAb01"},
//	})
//
// # External tools
//
// bedtools and CrossMap are run as subprocesses. Their location is set
// with [WithBedtools] and [WithCrossMap]; by default they are looked up
// on PATH.
package scimodom
