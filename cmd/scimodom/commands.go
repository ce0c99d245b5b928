package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jward/scimodom"
)

// --- import ---

var (
	flagEUFID        string
	flagTitle        string
	flagAssembly     string
	flagModification string
	flagMaxErrorRate float64
	flagProject      string
)

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import a bedRMod file as a new dataset",
	Args:  cobra.ExactArgs(1),
	RunE:  runImport,
}

func init() {
	importCmd.Flags().StringVar(&flagEUFID, "eufid", "", "dataset identifier (12 characters, generated if empty)")
	importCmd.Flags().StringVar(&flagTitle, "title", "", "dataset title (default: file name)")
	importCmd.Flags().StringVar(&flagAssembly, "assembly", "", "assembly (default: #assembly header)")
	importCmd.Flags().StringVar(&flagModification, "modification", "", "modification type (default: #modification_type header)")
	importCmd.Flags().StringVar(&flagProject, "project", "", "SMID of the project the dataset belongs to")
	importCmd.Flags().Float64Var(&flagMaxErrorRate, "max-error-rate", scimodom.DefaultMaxErrorRate, "tolerated ratio of invalid to valid rows (negative: unlimited)")
}

func runImport(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return outputError("import", err)
	}
	defer f.Close()

	e, err := openEngine(scimodom.WithMaxErrorRate(flagMaxErrorRate))
	if err != nil {
		return outputError("import", err)
	}
	defer e.Close()

	res, err := e.ImportDataset(context.Background(), f, scimodom.ImportRequest{
		EUFID:        flagEUFID,
		SMID:         flagProject,
		Title:        flagTitle,
		Assembly:     flagAssembly,
		Modification: flagModification,
		Source:       filepath.Base(args[0]),
	})
	if err != nil {
		return outputError("import", err)
	}
	out := CLIImport{
		Dataset: toCLIDataset(res.Dataset),
		Records: res.Records,
		Skipped: res.Skipped,
		Headers: res.Headers,
	}
	if res.Skipped > 0 {
		out.ErrorSummary = res.ErrorSummary
	}
	return outputResult(cmd, CLIResult{Command: "import", Results: out})
}

// --- datasets / delete ---

var flagDatasetsProject string

var datasetsCmd = &cobra.Command{
	Use:   "datasets",
	Short: "List imported datasets",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEngine()
		if err != nil {
			return outputError("datasets", err)
		}
		defer e.Close()

		var ds []*scimodom.Dataset
		if flagDatasetsProject != "" {
			ds, err = e.ProjectDatasets(flagDatasetsProject)
		} else {
			ds, err = e.Datasets()
		}
		if err != nil {
			return outputError("datasets", err)
		}
		out := make([]CLIDataset, len(ds))
		for i, d := range ds {
			out[i] = toCLIDataset(d)
		}
		total := len(out)
		return outputResult(cmd, CLIResult{Command: "datasets", Results: out, TotalCount: &total})
	},
}

func init() {
	datasetsCmd.Flags().StringVar(&flagDatasetsProject, "project", "", "only list datasets of this SMID")
}

var deleteCmd = &cobra.Command{
	Use:   "delete <eufid>",
	Short: "Delete a dataset with its records and annotations",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEngine()
		if err != nil {
			return outputError("delete", err)
		}
		defer e.Close()

		d, err := e.Dataset(args[0])
		if err != nil {
			return outputError("delete", err)
		}
		if err := e.DeleteDataset(args[0]); err != nil {
			return outputError("delete", err)
		}
		return outputResult(cmd, CLIResult{Command: "delete", Results: []CLIDataset{toCLIDataset(d)}})
	},
}

// --- project ---

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Create and list projects",
}

func newProjectAddCmd() *cobra.Command {
	var smid, summary string
	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Create a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEngine()
			if err != nil {
				return outputError("project add", err)
			}
			defer e.Close()

			p, err := e.CreateProject(scimodom.ProjectRequest{SMID: smid, Title: args[0], Summary: summary})
			if err != nil {
				return outputError("project add", err)
			}
			return outputResult(cmd, CLIResult{Command: "project add", Results: []CLIProject{toCLIProject(p)}})
		},
	}
	cmd.Flags().StringVar(&smid, "smid", "", "project identifier (8 characters, generated if empty)")
	cmd.Flags().StringVar(&summary, "summary", "", "free-text project summary")
	return cmd
}

var projectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List projects",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEngine()
		if err != nil {
			return outputError("project list", err)
		}
		defer e.Close()

		ps, err := e.Projects()
		if err != nil {
			return outputError("project list", err)
		}
		out := make([]CLIProject, len(ps))
		for i, p := range ps {
			out[i] = toCLIProject(p)
		}
		total := len(out)
		return outputResult(cmd, CLIResult{Command: "project list", Results: out, TotalCount: &total})
	},
}

func init() {
	projectCmd.AddCommand(newProjectAddCmd())
	projectCmd.AddCommand(projectListCmd)
}

// --- intersect / closest / subtract ---

// newCompareCmd builds one comparison command. Each command owns its
// flag values so the three can share flag names.
func newCompareCmd(op scimodom.Operation, short string) *cobra.Command {
	var (
		primary   string
		secondary []string
		noStrand  bool
		unsorted  bool
		filter    string
	)
	cmd := &cobra.Command{
		Use:   string(op) + " --a <eufid> --b <eufid>...",
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEngine()
			if err != nil {
				return outputError(string(op), err)
			}
			defer e.Close()

			hits, err := e.Compare(context.Background(), scimodom.CompareRequest{
				Operation:    op,
				Primary:      primary,
				Secondary:    secondary,
				IgnoreStrand: noStrand,
				Unsorted:     unsorted,
				Filter:       filter,
			})
			if err != nil {
				return outputError(string(op), err)
			}
			out := toCLIHits(op, hits)
			total := len(out)
			return outputResult(cmd, CLIResult{Command: string(op), Results: out, TotalCount: &total})
		},
	}
	cmd.Flags().StringVar(&primary, "a", "", "primary dataset EUFID")
	cmd.Flags().StringSliceVar(&secondary, "b", nil, "secondary dataset EUFIDs (repeat or comma-separate)")
	cmd.Flags().BoolVar(&noStrand, "no-strand", false, "ignore strand when pairing records")
	cmd.Flags().BoolVar(&unsorted, "unsorted", false, "sort records before running bedtools and drop -sorted")
	cmd.Flags().StringVar(&filter, "filter", "", `Risor expression over a, b, set_index and distance (e.g. 'a["score"] > 500')`)
	_ = cmd.MarkFlagRequired("a")
	_ = cmd.MarkFlagRequired("b")
	return cmd
}

// --- annotate ---

var (
	flagAnnotationDir string
	flagFeatures      string
	flagIntergenic    string
)

var annotateCmd = &cobra.Command{
	Use:   "annotate <eufid>",
	Short: "Annotate dataset records with overlapping gene features",
	Long:  "Intersects the records of a dataset with <feature>.bed files in the annotation directory and stores gene annotations.",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnnotate,
}

func init() {
	annotateCmd.Flags().StringVar(&flagAnnotationDir, "annotation-dir", "", "directory holding the feature BED files")
	annotateCmd.Flags().StringVar(&flagFeatures, "features", "", "comma-separated name=Label pairs (default: Ensembl features)")
	annotateCmd.Flags().StringVar(&flagIntergenic, "intergenic", "", "intergenic name=Label (default: intergenic=Intergenic)")
	_ = annotateCmd.MarkFlagRequired("annotation-dir")
}

func runAnnotate(cmd *cobra.Command, args []string) error {
	req := scimodom.AnnotateRequest{Dir: flagAnnotationDir}
	if flagFeatures != "" {
		fs, err := parseFeatures(flagFeatures)
		if err != nil {
			return outputError("annotate", err)
		}
		req.Features = fs
	}
	if flagIntergenic != "" {
		fs, err := parseFeatures(flagIntergenic)
		if err != nil {
			return outputError("annotate", err)
		}
		if len(fs) != 1 {
			return outputError("annotate", fmt.Errorf("--intergenic takes a single name=Label"))
		}
		req.Intergenic = fs[0]
	}

	e, err := openEngine()
	if err != nil {
		return outputError("annotate", err)
	}
	defer e.Close()

	n, err := e.AnnotateDataset(context.Background(), args[0], req)
	if err != nil {
		return outputError("annotate", err)
	}
	return outputResult(cmd, CLIResult{Command: "annotate", Results: CLIAnnotation{EUFID: args[0], Annotations: n}})
}

// parseFeatures parses "exon=Exonic,intron=Intronic". A bare name is its
// own label.
func parseFeatures(s string) ([]scimodom.Feature, error) {
	var out []scimodom.Feature
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, label, found := strings.Cut(part, "=")
		name = strings.TrimSpace(name)
		label = strings.TrimSpace(label)
		if !found {
			label = name
		}
		if name == "" || label == "" {
			return nil, fmt.Errorf("invalid feature %q: want name=Label", part)
		}
		out = append(out, scimodom.Feature{Name: name, Label: label})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no features in %q", s)
	}
	return out, nil
}

// --- liftover ---

var (
	flagChain    string
	flagUnmapped string
	flagChromID  string
)

var liftoverCmd = &cobra.Command{
	Use:   "liftover <bed>",
	Short: "Lift a BED file to another assembly with CrossMap",
	Args:  cobra.ExactArgs(1),
	RunE:  runLiftover,
}

func init() {
	liftoverCmd.Flags().StringVar(&flagChain, "chain", "", "chain file")
	liftoverCmd.Flags().StringVar(&flagUnmapped, "unmapped", "", "file for unmapped features (default: temp file)")
	liftoverCmd.Flags().StringVar(&flagChromID, "chrom-id", "s", "chromosome id style: a|s|l")
	_ = liftoverCmd.MarkFlagRequired("chain")
}

func runLiftover(cmd *cobra.Command, args []string) error {
	e, err := openEngine()
	if err != nil {
		return outputError("liftover", err)
	}
	defer e.Close()

	res, err := e.Liftover(context.Background(), scimodom.LiftoverRequest{
		RawFile:   args[0],
		ChainFile: flagChain,
		Unmapped:  flagUnmapped,
		ChromID:   flagChromID,
	})
	if err != nil {
		return outputError("liftover", err)
	}
	return outputResult(cmd, CLIResult{Command: "liftover", Results: CLILiftover{Lifted: res.Lifted, Unmapped: res.Unmapped}})
}
