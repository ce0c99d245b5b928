package bedtools

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/jward/scimodom/internal/toolexec"
)

// DefaultBinary is the bedtools executable looked up on PATH.
const DefaultBinary = "bedtools"

// Service wraps the bedtools command line. Every operation writes its
// inputs to BED files under the scratch directory, runs one bedtools
// subcommand and reads the result back.
type Service struct {
	runner toolexec.Runner
	binary string
	tmpDir string
	logger zerolog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithRunner replaces the process runner (tests use a fake).
func WithRunner(r toolexec.Runner) Option {
	return func(s *Service) {
		s.runner = r
	}
}

// WithBinary sets the bedtools executable name or path.
func WithBinary(path string) Option {
	return func(s *Service) {
		if path != "" {
			s.binary = path
		}
	}
}

// WithLogger sets the logger used for tool invocations.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

// NewService creates a Service using tmpDir for scratch files. The
// directory is created if needed.
func NewService(tmpDir string, opts ...Option) (*Service, error) {
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return nil, fmt.Errorf("bedtools: create tmp dir: %w", err)
	}
	s := &Service{
		binary: DefaultBinary,
		tmpDir: tmpDir,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.runner == nil {
		s.runner = toolexec.NewExecRunner(s.logger)
	}
	return s, nil
}

// scratch tracks the temporary files of one operation.
type scratch struct {
	svc   *Service
	paths []string
}

func (s *Service) newScratch() *scratch {
	return &scratch{svc: s}
}

// writeIntervals writes ivs as a BED file, sorting a copy first when
// sortFirst is set.
func (sc *scratch) writeIntervals(ivs []Interval, sortFirst bool) (string, error) {
	if sortFirst {
		ivs = append([]Interval(nil), ivs...)
		SortIntervals(ivs)
	}
	return sc.writeRows(len(ivs), func(i int) []string { return ivs[i].Fields() })
}

func (sc *scratch) writeRows(n int, row func(i int) []string) (string, error) {
	f, err := os.CreateTemp(sc.svc.tmpDir, "scimodom-*.bed")
	if err != nil {
		return "", fmt.Errorf("bedtools: create temp file: %w", err)
	}
	sc.paths = append(sc.paths, f.Name())

	w := bufio.NewWriter(f)
	for i := range n {
		w.WriteString(strings.Join(row(i), "\t"))
		w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return "", fmt.Errorf("bedtools: write %s: %w", f.Name(), err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("bedtools: close %s: %w", f.Name(), err)
	}
	return f.Name(), nil
}

func (sc *scratch) cleanup() {
	for _, p := range sc.paths {
		os.Remove(p)
	}
	sc.paths = nil
}

// run executes one bedtools subcommand and captures its output in a temp
// file owned by the caller. Nothing is returned unless the tool exits
// cleanly.
func (s *Service) run(ctx context.Context, args []string) (string, error) {
	out, err := os.CreateTemp(s.tmpDir, "scimodom-*.out")
	if err != nil {
		return "", fmt.Errorf("bedtools: create output file: %w", err)
	}
	w := bufio.NewWriter(out)
	runErr := s.runner.Run(ctx, s.binary, args, w)
	if runErr == nil {
		runErr = w.Flush()
	}
	closeErr := out.Close()
	if runErr != nil {
		os.Remove(out.Name())
		return "", fmt.Errorf("bedtools %s: %w", args[0], runErr)
	}
	if closeErr != nil {
		os.Remove(out.Name())
		return "", fmt.Errorf("bedtools %s: %w", args[0], closeErr)
	}
	return out.Name(), nil
}
