package scimodom

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/jward/scimodom/internal/bedrmod"
	"github.com/jward/scimodom/internal/store"
)

var (
	// ErrDatasetExists is returned when an import names an EUFID that is
	// already taken.
	ErrDatasetExists = errors.New("scimodom: dataset already exists")
	// ErrDuplicateDataset is returned when identical content was already
	// imported.
	ErrDuplicateDataset = errors.New("scimodom: identical dataset already imported")
)

// Re-exported import errors.
var (
	ErrEmptyFile     = bedrmod.ErrEmptyFile
	ErrTooManyErrors = bedrmod.ErrTooManyErrors
)

// DefaultMaxErrorRate is the tolerated ratio of invalid to valid rows
// unless WithMaxErrorRate says otherwise.
const DefaultMaxErrorRate = bedrmod.DefaultMaxErrorRate

// ImportRequest describes a bedRMod import. Empty fields fall back to the
// file's headers (assembly, modification_type) or generated values.
type ImportRequest struct {
	EUFID string
	// SMID attaches the dataset to an existing project.
	SMID         string
	Title        string
	Assembly     string
	Modification string
	// Source names the input in error messages.
	Source string
}

// ImportResult summarizes a finished import.
type ImportResult struct {
	Dataset      *Dataset          `json:"dataset"`
	Records      int               `json:"records"`
	Skipped      int               `json:"skipped"`
	ErrorSummary string            `json:"error_summary"`
	Headers      map[string]string `json:"headers"`
}

// ImportDataset reads bedRMod records from r into a new dataset. The
// dataset row is created with the first valid record, once the header
// is known. Any failure removes what was written so far.
func (e *Engine) ImportDataset(ctx context.Context, r io.Reader, req ImportRequest) (*ImportResult, error) {
	eufid := req.EUFID
	if eufid == "" {
		eufid = NewEUFID()
	} else if len(eufid) != store.EUFIDLength {
		return nil, fmt.Errorf("import dataset: eufid %q must be %d characters", eufid, store.EUFIDLength)
	}
	existing, err := e.store.DatasetByID(eufid)
	if err != nil {
		return nil, fmt.Errorf("import dataset: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: %s", ErrDatasetExists, eufid)
	}
	if req.SMID != "" {
		if _, err := e.Project(req.SMID); err != nil {
			return nil, fmt.Errorf("import dataset: %w", err)
		}
	}

	source := req.Source
	if source == "" {
		source = "<input>"
	}
	hash := sha256.New()
	parser := bedrmod.NewParser(source, bedrmod.WithMaxErrorRate(e.maxErrorRate))

	var dataset *Dataset
	err = store.WithInsertBuffer[Data](e.store.DataSession(), func(buf *store.InsertBuffer[Data]) error {
		for rec, err := range parser.Parse(io.TeeReader(r, hash)) {
			if err != nil {
				return err
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			if dataset == nil {
				dataset = e.newDataset(eufid, req, parser)
				if err := e.store.InsertDataset(dataset); err != nil {
					dataset = nil
					return err
				}
			}
			if err := buf.Queue(dataFromRecord(eufid, rec)); err != nil {
				return err
			}
		}
		return nil
	}, store.WithBufferSize(e.bufferSize))
	if err == nil {
		err = e.finishImport(dataset, fmt.Sprintf("%x", hash.Sum(nil)))
	}
	if err != nil {
		if dataset != nil {
			if derr := e.store.DeleteDataset(eufid); derr != nil {
				e.logger.Error().Err(derr).Str("eufid", eufid).Msg("remove partial import")
			}
		}
		return nil, fmt.Errorf("import dataset: %w", err)
	}

	e.logger.Info().
		Str("eufid", eufid).
		Str("source", source).
		Int("records", parser.Valid()).
		Int("skipped", parser.Invalid()).
		Msg("dataset imported")
	if parser.Invalid() > 0 {
		e.logger.Warn().Str("eufid", eufid).Msg(parser.ErrorSummary())
	}

	return &ImportResult{
		Dataset:      dataset,
		Records:      parser.Valid(),
		Skipped:      parser.Invalid(),
		ErrorSummary: parser.ErrorSummary(),
		Headers:      parser.Headers(),
	}, nil
}

// finishImport rejects content already imported under another EUFID and
// records the checksum.
func (e *Engine) finishImport(dataset *Dataset, checksum string) error {
	dup, err := e.store.DatasetByChecksum(checksum)
	if err != nil {
		return err
	}
	if dup != nil && dup.EUFID != dataset.EUFID {
		return fmt.Errorf("%w as %s", ErrDuplicateDataset, dup.EUFID)
	}
	if err := e.store.SetDatasetChecksum(dataset.EUFID, checksum); err != nil {
		return err
	}
	dataset.Checksum = checksum
	return nil
}

func (e *Engine) newDataset(eufid string, req ImportRequest, parser *bedrmod.Parser) *Dataset {
	d := &Dataset{
		EUFID:        eufid,
		ProjectID:    req.SMID,
		Title:        req.Title,
		Assembly:     req.Assembly,
		Modification: req.Modification,
		Created:      time.Now().UTC().Truncate(time.Second),
	}
	if d.Title == "" {
		d.Title = req.Source
	}
	if d.Title == "" {
		d.Title = eufid
	}
	if d.Assembly == "" {
		d.Assembly, _ = parser.Header("assembly")
	}
	if d.Modification == "" {
		d.Modification, _ = parser.Header("modification_type")
	}
	return d
}

func dataFromRecord(eufid string, rec bedrmod.Record) Data {
	return Data{
		DatasetID:  eufid,
		Chrom:      rec.Chrom,
		Start:      rec.Start,
		End:        rec.End,
		Name:       rec.Name,
		Score:      rec.Score,
		Strand:     rec.Strand,
		ThickStart: rec.ThickStart,
		ThickEnd:   rec.ThickEnd,
		ItemRGB:    rec.ItemRGB,
		Coverage:   rec.Coverage,
		Frequency:  rec.Frequency,
	}
}
