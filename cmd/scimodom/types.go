package main

import (
	"time"

	"github.com/jward/scimodom"
)

// CLIResult is the top-level JSON envelope for all commands.
type CLIResult struct {
	Command    string `json:"command"`
	Results    any    `json:"results"`
	TotalCount *int   `json:"total_count,omitempty"`
	Error      string `json:"error,omitempty"`
}

// CLIDataset is a JSON-friendly dataset representation.
type CLIDataset struct {
	EUFID        string    `json:"eufid"`
	Project      string    `json:"project,omitempty"`
	Title        string    `json:"title"`
	Assembly     string    `json:"assembly,omitempty"`
	Modification string    `json:"modification,omitempty"`
	Checksum     string    `json:"checksum,omitempty"`
	Created      time.Time `json:"created"`
}

// CLIProject is a JSON-friendly project representation.
type CLIProject struct {
	SMID    string    `json:"smid"`
	Title   string    `json:"title"`
	Summary string    `json:"summary,omitempty"`
	Created time.Time `json:"created"`
}

// CLIImport summarizes one import.
type CLIImport struct {
	Dataset      CLIDataset        `json:"dataset"`
	Records      int               `json:"records"`
	Skipped      int               `json:"skipped"`
	ErrorSummary string            `json:"error_summary,omitempty"`
	Headers      map[string]string `json:"headers,omitempty"`
}

// CLIInterval is a JSON-friendly interval.
type CLIInterval struct {
	Chrom     string `json:"chrom"`
	Start     int64  `json:"start"`
	End       int64  `json:"end"`
	Name      string `json:"name"`
	Score     int    `json:"score"`
	Strand    string `json:"strand"`
	EUFID     string `json:"eufid,omitempty"`
	Coverage  string `json:"coverage,omitempty"`
	Frequency string `json:"frequency,omitempty"`
}

// CLIHit is one comparison hit. Set is the index into --b, or -1.
type CLIHit struct {
	Primary   *CLIInterval `json:"primary,omitempty"`
	Secondary *CLIInterval `json:"secondary,omitempty"`
	Set       int          `json:"set"`
	Distance  *int64       `json:"distance,omitempty"`
}

// CLIAnnotation reports an annotation run.
type CLIAnnotation struct {
	EUFID       string `json:"eufid"`
	Annotations int    `json:"annotations"`
}

// CLILiftover names the files written by a liftover.
type CLILiftover struct {
	Lifted   string `json:"lifted"`
	Unmapped string `json:"unmapped"`
}

func toCLIDataset(d *scimodom.Dataset) CLIDataset {
	return CLIDataset{
		EUFID:        d.EUFID,
		Project:      d.ProjectID,
		Title:        d.Title,
		Assembly:     d.Assembly,
		Modification: d.Modification,
		Checksum:     d.Checksum,
		Created:      d.Created,
	}
}

func toCLIProject(p *scimodom.Project) CLIProject {
	return CLIProject{SMID: p.SMID, Title: p.Title, Summary: p.Summary, Created: p.Created}
}

func toCLIInterval(iv *scimodom.Interval) *CLIInterval {
	if iv == nil {
		return nil
	}
	out := &CLIInterval{
		Chrom:  iv.Chrom,
		Start:  iv.Start,
		End:    iv.End,
		Name:   iv.Name,
		Score:  iv.Score,
		Strand: string(iv.Strand),
	}
	extra := func(i int) string {
		if i < len(iv.Extra) {
			return iv.Extra[i]
		}
		return ""
	}
	out.EUFID = extra(scimodom.ExtraEUFID)
	out.Coverage = extra(scimodom.ExtraCoverage)
	out.Frequency = extra(scimodom.ExtraFrequency)
	return out
}

func toCLIHits(op scimodom.Operation, hits []scimodom.Hit) []CLIHit {
	out := make([]CLIHit, len(hits))
	for i, h := range hits {
		out[i] = CLIHit{
			Primary:   toCLIInterval(h.Primary),
			Secondary: toCLIInterval(h.Secondary),
			Set:       h.Set,
		}
		if op == scimodom.OpClosest {
			d := h.Distance
			out[i].Distance = &d
		}
	}
	return out
}
