package scimodom

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jward/scimodom/internal/bedtools"
	"github.com/jward/scimodom/internal/crossmap"
	"github.com/jward/scimodom/internal/store"
	"github.com/jward/scimodom/internal/toolexec"
)

// ErrDatasetNotFound is returned when an EUFID names no stored dataset.
var ErrDatasetNotFound = errors.New("scimodom: dataset not found")

// Engine ties the dataset store to the bedtools and CrossMap services.
type Engine struct {
	store    *store.Store
	bedtools *bedtools.Service
	crossmap *crossmap.Service
	logger   zerolog.Logger

	tmpDir       string
	bedtoolsBin  string
	crossmapBin  string
	runner       toolexec.Runner
	bufferSize   int
	maxErrorRate float64
}

// Option configures an Engine.
type Option func(*Engine)

// WithTmpDir sets the scratch directory for tool input and output files.
func WithTmpDir(dir string) Option {
	return func(e *Engine) {
		if dir != "" {
			e.tmpDir = dir
		}
	}
}

// WithBedtools sets the bedtools executable.
func WithBedtools(path string) Option {
	return func(e *Engine) {
		e.bedtoolsBin = path
	}
}

// WithCrossMap sets the CrossMap executable.
func WithCrossMap(path string) Option {
	return func(e *Engine) {
		e.crossmapBin = path
	}
}

// WithLogger sets the logger shared by the Engine and its services.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithBufferSize sets how many records are written per transaction.
func WithBufferSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.bufferSize = n
		}
	}
}

// WithMaxErrorRate sets the tolerated ratio of invalid to valid rows on
// import. A negative rate accepts any number of invalid rows.
func WithMaxErrorRate(rate float64) Option {
	return func(e *Engine) {
		e.maxErrorRate = rate
	}
}

// withRunner replaces the subprocess runner of both services.
func withRunner(r toolexec.Runner) Option {
	return func(e *Engine) {
		e.runner = r
	}
}

// DefaultTmpDir is the scratch directory used when none is configured.
func DefaultTmpDir() string {
	return filepath.Join(os.TempDir(), "scimodom-bedtools")
}

// New creates an Engine backed by a SQLite database at dbPath.
func New(dbPath string, opts ...Option) (*Engine, error) {
	e := &Engine{
		logger:       zerolog.Nop(),
		tmpDir:       DefaultTmpDir(),
		bufferSize:   store.DefaultBufferSize,
		maxErrorRate: DefaultMaxErrorRate,
	}
	for _, opt := range opts {
		opt(e)
	}

	s, err := store.NewStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("scimodom: create store: %w", err)
	}
	if err := s.Migrate(); err != nil {
		s.Close()
		return nil, fmt.Errorf("scimodom: migrate: %w", err)
	}
	e.store = s
	if v, err := s.Version(); err == nil {
		e.logger.Debug().Str("db", dbPath).Str("schema", v).Msg("store opened")
	}

	btOpts := []bedtools.Option{bedtools.WithBinary(e.bedtoolsBin), bedtools.WithLogger(e.logger)}
	cmOpts := []crossmap.Option{crossmap.WithBinary(e.crossmapBin), crossmap.WithLogger(e.logger)}
	if e.runner != nil {
		btOpts = append(btOpts, bedtools.WithRunner(e.runner))
		cmOpts = append(cmOpts, crossmap.WithRunner(e.runner))
	}
	if e.bedtools, err = bedtools.NewService(e.tmpDir, btOpts...); err != nil {
		s.Close()
		return nil, fmt.Errorf("scimodom: %w", err)
	}
	if e.crossmap, err = crossmap.NewService(e.tmpDir, cmOpts...); err != nil {
		s.Close()
		return nil, fmt.Errorf("scimodom: %w", err)
	}
	return e, nil
}

// Close releases the Engine's database resources.
func (e *Engine) Close() error {
	return e.store.Close()
}

// Store returns the underlying Store for direct access.
func (e *Engine) Store() *Store {
	return e.store
}

// Datasets lists every stored dataset ordered by EUFID.
func (e *Engine) Datasets() ([]*Dataset, error) {
	return e.store.Datasets()
}

// Dataset returns one dataset or ErrDatasetNotFound.
func (e *Engine) Dataset(eufid string) (*Dataset, error) {
	d, err := e.store.DatasetByID(eufid)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, fmt.Errorf("%w: %s", ErrDatasetNotFound, eufid)
	}
	return d, nil
}

// DeleteDataset removes a dataset with its records and annotations.
func (e *Engine) DeleteDataset(eufid string) error {
	if _, err := e.Dataset(eufid); err != nil {
		return err
	}
	return e.store.DeleteDataset(eufid)
}

// NewEUFID returns a random dataset identifier.
func NewEUFID() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return id[:store.EUFIDLength]
}
