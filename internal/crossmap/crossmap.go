// Package crossmap lifts BED files between genome assemblies with the
// CrossMap command-line tool and a chain file.
package crossmap

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/jward/scimodom/internal/toolexec"
)

// DefaultBinary is the CrossMap executable looked up on PATH.
const DefaultBinary = "CrossMap"

// DefaultChromID keeps chromosome names in "simple" style (1, X, MT).
const DefaultChromID = "s"

type Service struct {
	runner toolexec.Runner
	binary string
	tmpDir string
	logger zerolog.Logger
}

type Option func(*Service)

func WithRunner(r toolexec.Runner) Option {
	return func(s *Service) {
		s.runner = r
	}
}

func WithBinary(path string) Option {
	return func(s *Service) {
		if path != "" {
			s.binary = path
		}
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

// NewService creates a Service writing result files under tmpDir.
func NewService(tmpDir string, opts ...Option) (*Service, error) {
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return nil, fmt.Errorf("crossmap: create tmp dir: %w", err)
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

// LiftoverRequest describes one liftover. Unmapped and ChromID are
// optional.
type LiftoverRequest struct {
	RawFile   string
	ChainFile string
	Unmapped  string
	ChromID   string
}

// LiftoverResult names the file of lifted features and the file of
// features that could not be mapped.
type LiftoverResult struct {
	Lifted   string
	Unmapped string
}

// Liftover runs `CrossMap bed` on req.RawFile. Lifted features go to a new
// temp file; unmapped ones to req.Unmapped or another temp file. On
// failure the temp files it created are removed.
func (s *Service) Liftover(ctx context.Context, req LiftoverRequest) (*LiftoverResult, error) {
	for _, p := range []string{req.RawFile, req.ChainFile} {
		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("crossmap: %w", err)
		}
	}
	chromID := req.ChromID
	if chromID == "" {
		chromID = DefaultChromID
	}

	var created []string
	cleanup := func() {
		for _, p := range created {
			os.Remove(p)
		}
	}
	lifted, err := s.tempFile()
	if err != nil {
		return nil, err
	}
	created = append(created, lifted)
	unmapped := req.Unmapped
	if unmapped == "" {
		if unmapped, err = s.tempFile(); err != nil {
			cleanup()
			return nil, err
		}
		created = append(created, unmapped)
	}

	args := []string{"bed", "--chromid", chromID, "--unmap-file", unmapped, req.ChainFile, req.RawFile, lifted}
	s.logger.Debug().Str("cmd", toolexec.CommandLine(s.binary, args)).Msg("liftover")
	if err := s.runner.Run(ctx, s.binary, args, io.Discard); err != nil {
		cleanup()
		return nil, fmt.Errorf("crossmap: %w", err)
	}
	return &LiftoverResult{Lifted: lifted, Unmapped: unmapped}, nil
}

func (s *Service) tempFile() (string, error) {
	f, err := os.CreateTemp(s.tmpDir, "scimodom-liftover-*.bed")
	if err != nil {
		return "", fmt.Errorf("crossmap: create temp file: %w", err)
	}
	name := f.Name()
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("crossmap: create temp file: %w", err)
	}
	return name, nil
}
