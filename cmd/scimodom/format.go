package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// formatDatasetsText formats CLIDataset results as aligned columns.
func formatDatasetsText(w io.Writer, ds []CLIDataset) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "EUFID\tPROJECT\tTITLE\tASSEMBLY\tMODIFICATION\tCREATED")
	for _, d := range ds {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			d.EUFID, d.Project, d.Title, d.Assembly, d.Modification, d.Created.Format("2006-01-02 15:04:05"))
	}
	tw.Flush()
}

func formatProjectsText(w io.Writer, ps []CLIProject) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SMID\tTITLE\tCREATED\tSUMMARY")
	for _, p := range ps {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.SMID, p.Title, p.Created.Format("2006-01-02 15:04:05"), p.Summary)
	}
	tw.Flush()
}

// formatImportText formats an import summary as readable text.
func formatImportText(w io.Writer, imp CLIImport) {
	fmt.Fprintf(w, "Dataset: %s (%s)\n", imp.Dataset.EUFID, imp.Dataset.Title)
	fmt.Fprintf(w, "Records: %d\n", imp.Records)
	fmt.Fprintf(w, "Skipped: %d\n", imp.Skipped)
	if len(imp.Headers) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Headers:")
		keys := make([]string, 0, len(imp.Headers))
		for k := range imp.Headers {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(w, "  %s: %s\n", k, imp.Headers[k])
		}
	}
	if imp.ErrorSummary != "" {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Errors:")
		for _, line := range strings.Split(imp.ErrorSummary, "\n") {
			fmt.Fprintf(w, "  %s\n", line)
		}
	}
}

// formatHitsText formats comparison hits as BED-like columns: primary
// fields, then the set index and secondary fields when present.
func formatHitsText(w io.Writer, hits []CLIHit) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, h := range hits {
		var cols []string
		if h.Primary != nil {
			cols = append(cols, intervalColumns(h.Primary)...)
		}
		if h.Secondary != nil {
			cols = append(cols, fmt.Sprint(h.Set))
			cols = append(cols, intervalColumns(h.Secondary)...)
		}
		if h.Distance != nil {
			cols = append(cols, fmt.Sprint(*h.Distance))
		}
		fmt.Fprintln(tw, strings.Join(cols, "\t"))
	}
	tw.Flush()
}

func intervalColumns(iv *CLIInterval) []string {
	return []string{
		iv.Chrom, fmt.Sprint(iv.Start), fmt.Sprint(iv.End),
		iv.Name, fmt.Sprint(iv.Score), iv.Strand,
		iv.EUFID, iv.Coverage, iv.Frequency,
	}
}

// outputResultText dispatches to the appropriate text formatter based on the
// result type.
func outputResultText(w io.Writer, result CLIResult) error {
	switch v := result.Results.(type) {
	case []CLIDataset:
		formatDatasetsText(w, v)
	case []CLIProject:
		formatProjectsText(w, v)
	case CLIImport:
		formatImportText(w, v)
	case []CLIHit:
		formatHitsText(w, v)
	case CLIAnnotation:
		fmt.Fprintf(w, "Annotated %s: %d annotations\n", v.EUFID, v.Annotations)
	case CLILiftover:
		fmt.Fprintf(w, "Lifted: %s\nUnmapped: %s\n", v.Lifted, v.Unmapped)
	case nil:
	default:
		return fmt.Errorf("unsupported result type for text format: %T", v)
	}
	return nil
}

// outputResult writes a CLIResult to the command's stdout in the selected
// format.
func outputResult(cmd *cobra.Command, result CLIResult) error {
	w := cmd.OutOrStdout()
	if flagFormat == "text" {
		return outputResultText(w, result)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// outputError writes an error in the selected format and returns it so RunE
// can propagate it to Cobra. In JSON mode the error is written to stdout as a
// CLIResult envelope. In text mode it goes to stderr.
func outputError(command string, err error) error {
	errorHandled = true
	if flagFormat == "text" {
		fmt.Fprintf(rootCmd.ErrOrStderr(), "Error: %s\n", err)
		return err
	}
	result := CLIResult{
		Command: command,
		Error:   err.Error(),
	}
	enc := json.NewEncoder(rootCmd.OutOrStdout())
	enc.SetIndent("", "  ")
	_ = enc.Encode(result)
	return err
}

// validFormats lists accepted values for --format.
var validFormats = []string{"json", "text"}

// validateFormat checks that the --format flag value is recognized.
func validateFormat(format string) error {
	for _, f := range validFormats {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("invalid format %q: must be %s", format, strings.Join(validFormats, " or "))
}
