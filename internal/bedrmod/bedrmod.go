// Package bedrmod reads bedRMod files: tab-delimited BED6+5 records of
// RNA modification sites with key=value header lines.
package bedrmod

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"iter"
	"regexp"
	"strconv"
	"strings"
)

var (
	// ErrEmptyFile is returned when a file holds no valid record.
	ErrEmptyFile = errors.New("bedrmod: no records")
	// ErrTooManyErrors is returned when invalid rows exceed the allowed rate.
	ErrTooManyErrors = errors.New("bedrmod: too many errors")
)

// DefaultMaxErrorRate is the share of invalid rows tolerated relative to
// valid ones.
const DefaultMaxErrorRate = 0.05

// maxReportedErrors bounds the messages kept for ErrorSummary.
const maxReportedErrors = 5

// Number of columns in a bedRMod record.
const NumFields = 11

// Record is one modification site.
type Record struct {
	Chrom      string
	Start      int64
	End        int64
	Name       string
	Score      int
	Strand     string
	ThickStart int64
	ThickEnd   int64
	ItemRGB    string
	Coverage   int
	Frequency  int
}

var headerRE = regexp.MustCompile(`\A#\s*([a-zA-Z_]+)\s*=\s*(.*?)\s*\z`)

// Parser reads one bedRMod stream. Headers are collected from comment
// lines that precede the first record.
type Parser struct {
	source       string
	maxErrorRate float64

	headers map[string]string
	valid   int
	invalid int
	errText []string
}

// ParserOption configures a Parser.
type ParserOption func(*Parser)

// WithMaxErrorRate sets the tolerated invalid/valid ratio. A negative
// rate disables the check.
func WithMaxErrorRate(rate float64) ParserOption {
	return func(p *Parser) {
		p.maxErrorRate = rate
	}
}

// NewParser creates a Parser; source names the input in error messages.
func NewParser(source string, opts ...ParserOption) *Parser {
	p := &Parser{
		source:       source,
		maxErrorRate: DefaultMaxErrorRate,
		headers:      make(map[string]string),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Header returns a header value. Headers are complete once the first
// record has been yielded.
func (p *Parser) Header(key string) (string, bool) {
	v, ok := p.headers[key]
	return v, ok
}

// Headers returns all headers read so far.
func (p *Parser) Headers() map[string]string {
	return p.headers
}

// Valid returns the number of records yielded so far.
func (p *Parser) Valid() int { return p.valid }

// Invalid returns the number of rejected rows so far.
func (p *Parser) Invalid() int { return p.invalid }

// ErrorSummary describes the rejected rows, listing the first few.
func (p *Parser) ErrorSummary() string {
	if p.invalid == 0 {
		return "No errors"
	}
	summary := strings.Join(p.errText, "\n")
	if p.invalid > maxReportedErrors {
		summary += fmt.Sprintf("\n...\n(%d errors in total)", p.invalid)
	}
	return summary
}

// Parse yields valid records from r. Invalid rows are skipped and
// counted. After the last row the error rate is checked and an empty
// result is rejected; either failure is yielded as a final error.
func (p *Parser) Parse(r io.Reader) iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		lineNo := 0
		for scanner.Scan() {
			lineNo++
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			if strings.HasPrefix(line, "#") {
				p.handleComment(line)
				continue
			}
			rec, err := parseRecord(line)
			if err != nil {
				p.reject(fmt.Sprintf("%s, line %d: %v", p.source, lineNo, err))
				continue
			}
			p.valid++
			if !yield(rec, nil) {
				return
			}
		}
		if err := scanner.Err(); err != nil {
			yield(Record{}, fmt.Errorf("bedrmod: read %s: %w", p.source, err))
			return
		}
		if p.maxErrorRate >= 0 && float64(p.invalid) > float64(p.valid)*p.maxErrorRate {
			yield(Record{}, fmt.Errorf("%w in %s (valid: %d, errors: %d)", ErrTooManyErrors, p.source, p.valid, p.invalid))
			return
		}
		if p.valid == 0 {
			yield(Record{}, fmt.Errorf("%w in %s", ErrEmptyFile, p.source))
		}
	}
}

func (p *Parser) handleComment(line string) {
	if p.valid > 0 {
		return
	}
	m := headerRE.FindStringSubmatch(line)
	if m == nil {
		return
	}
	if _, seen := p.headers[m[1]]; !seen {
		p.headers[m[1]] = m[2]
	}
}

func (p *Parser) reject(msg string) {
	p.invalid++
	if len(p.errText) < maxReportedErrors {
		p.errText = append(p.errText, msg)
	}
}

func parseRecord(line string) (Record, error) {
	fields := strings.Split(line, "\t")
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	if len(fields) < NumFields {
		return Record{}, fmt.Errorf("expected %d fields, but got %d", NumFields, len(fields))
	}

	var rec Record
	var err error
	rec.Chrom = fields[0]
	if rec.Chrom == "" {
		return Record{}, errors.New("chrom: empty")
	}
	if rec.Start, err = parseNonNegative("start", fields[1]); err != nil {
		return Record{}, err
	}
	if rec.End, err = parseNonNegative("end", fields[2]); err != nil {
		return Record{}, err
	}
	if rec.End <= rec.Start {
		return Record{}, fmt.Errorf("the value of 'end' (%d) must be greater than the value of 'start' (%d)", rec.End, rec.Start)
	}
	rec.Name = fields[3]
	if rec.Name == "" {
		return Record{}, errors.New("name: empty")
	}
	if rec.Score, err = parseBounded("score", fields[4], 0, 1000); err != nil {
		return Record{}, err
	}
	switch fields[5] {
	case "+", "-", ".":
		rec.Strand = fields[5]
	default:
		return Record{}, fmt.Errorf("strand: invalid value %q", fields[5])
	}
	if rec.ThickStart, err = parseNonNegative("thickStart", fields[6]); err != nil {
		return Record{}, err
	}
	if rec.ThickEnd, err = parseNonNegative("thickEnd", fields[7]); err != nil {
		return Record{}, err
	}
	rec.ItemRGB = fields[8]
	if rec.Coverage, err = parseBounded("coverage", fields[9], 0, -1); err != nil {
		return Record{}, err
	}
	if rec.Frequency, err = parseBounded("frequency", fields[10], 0, 100); err != nil {
		return Record{}, err
	}
	return rec, nil
}

func parseNonNegative(name, s string) (int64, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not an integer", name, s)
	}
	if v < 0 {
		return 0, fmt.Errorf("%s: must be non-negative, got %d", name, v)
	}
	return v, nil
}

// parseBounded parses an int in [lo, hi]; hi < lo means unbounded above.
func parseBounded(name, s string, lo, hi int) (int, error) {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not an integer", name, s)
	}
	if v < lo || (hi >= lo && v > hi) {
		if hi >= lo {
			return 0, fmt.Errorf("%s: %d out of range [%d, %d]", name, v, lo, hi)
		}
		return 0, fmt.Errorf("%s: must be at least %d, got %d", name, lo, v)
	}
	return v, nil
}
