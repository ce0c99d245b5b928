package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/jward/scimodom"
)

var (
	flagDB       string
	flagFormat   string
	flagTmpDir   string
	flagBedtools string
	flagCrossMap string
	flagLogLevel string
)

// errorHandled is set by outputError so main() doesn't double-print.
var errorHandled bool

// logger is built in PersistentPreRunE from --log-level.
var logger = zerolog.Nop()

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errorHandled {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "scimodom",
	Short:         "RNA modification datasets as genomic intervals",
	Long:          "Scimodom imports bedRMod datasets into SQLite and compares, annotates and lifts them over with bedtools and CrossMap.",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := applyEnv(cmd.Root()); err != nil {
			return err
		}
		if err := validateFormat(flagFormat); err != nil {
			return err
		}
		l, err := newLogger(os.Stderr, flagLogLevel)
		if err != nil {
			return err
		}
		logger = l
		return nil
	},
	// No Run: prints help by default.
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagDB, "db", "", "database path (default: .scimodom/scimodom.db in the working directory)")
	pf.StringVar(&flagFormat, "format", "json", "output format: json|text")
	pf.StringVar(&flagTmpDir, "tmp-dir", "", "scratch directory for tool files (default: $TMPDIR/scimodom-bedtools)")
	pf.StringVar(&flagBedtools, "bedtools", "", "bedtools executable (default: bedtools on PATH)")
	pf.StringVar(&flagCrossMap, "crossmap", "", "CrossMap executable (default: CrossMap on PATH)")
	pf.StringVar(&flagLogLevel, "log-level", "warn", "log level: trace|debug|info|warn|error")

	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(datasetsCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(projectCmd)
	rootCmd.AddCommand(newCompareCmd(scimodom.OpIntersect, "Report records overlapping other datasets"))
	rootCmd.AddCommand(newCompareCmd(scimodom.OpClosest, "Report the closest records of other datasets"))
	rootCmd.AddCommand(newCompareCmd(scimodom.OpSubtract, "Report records not overlapping other datasets"))
	rootCmd.AddCommand(annotateCmd)
	rootCmd.AddCommand(liftoverCmd)
}

// persistentEnvFlags are the root flags that fall back to SCIMODOM_<FLAG>.
var persistentEnvFlags = []string{"db", "format", "tmp-dir", "bedtools", "crossmap", "log-level"}

// envName maps a flag name to its environment variable.
func envName(flag string) string {
	return "SCIMODOM_" + strings.ToUpper(strings.ReplaceAll(flag, "-", "_"))
}

// applyEnv fills unset persistent flags from the environment.
func applyEnv(root *cobra.Command) error {
	fs := root.PersistentFlags()
	for _, name := range persistentEnvFlags {
		f := fs.Lookup(name)
		if f == nil || f.Changed {
			continue
		}
		v, ok := os.LookupEnv(envName(name))
		if !ok {
			continue
		}
		if err := fs.Set(name, v); err != nil {
			return fmt.Errorf("invalid %s: %w", envName(name), err)
		}
	}
	return nil
}

// newLogger builds a console logger on w at the given level.
func newLogger(w io.Writer, level string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return zerolog.New(zerolog.NewConsoleWriter(func(cw *zerolog.ConsoleWriter) {
		cw.Out = w
		cw.TimeFormat = "15:04:05.000"
	})).Level(lvl).With().Timestamp().Logger(), nil
}

// resolveDBPath returns the database path from the --db flag or the default.
func resolveDBPath(cwd string) string {
	if flagDB != "" {
		if filepath.IsAbs(flagDB) {
			return flagDB
		}
		return filepath.Join(cwd, flagDB)
	}
	return filepath.Join(cwd, ".scimodom", "scimodom.db")
}

// openEngine opens the Engine on the configured database, creating its
// directory if needed.
func openEngine(extra ...scimodom.Option) (*scimodom.Engine, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting cwd: %w", err)
	}
	dbPath := resolveDBPath(cwd)
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", filepath.Dir(dbPath), err)
	}
	opts := []scimodom.Option{
		scimodom.WithTmpDir(flagTmpDir),
		scimodom.WithBedtools(flagBedtools),
		scimodom.WithCrossMap(flagCrossMap),
		scimodom.WithLogger(logger),
	}
	e, err := scimodom.New(dbPath, append(opts, extra...)...)
	if err != nil {
		return nil, fmt.Errorf("creating engine: %w", err)
	}
	return e, nil
}
