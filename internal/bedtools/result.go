package bedtools

import (
	"bufio"
	"errors"
	"fmt"
	"iter"
	"os"
	"strings"
)

// ErrConsumed is returned when a Result is iterated a second time.
var ErrConsumed = errors.New("bedtools: result already consumed")

// Result is the single-pass output of a bedtools operation. Rows are read
// lazily from the tool's output file, which is removed once iteration
// ends or Close is called.
type Result[T any] struct {
	path     string
	parse    func(fields []string) (row T, keep bool, err error)
	consumed bool
}

func newResult[T any](path string, parse func([]string) (T, bool, error)) *Result[T] {
	return &Result[T]{path: path, parse: parse}
}

// All yields rows in tool output order. A malformed row stops iteration
// with an error. Subsequent calls yield ErrConsumed.
func (r *Result[T]) All() iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T
		if r.consumed {
			yield(zero, ErrConsumed)
			return
		}
		r.consumed = true
		defer r.Close()

		f, err := os.Open(r.path)
		if err != nil {
			yield(zero, fmt.Errorf("bedtools: open result: %w", err))
			return
		}
		defer f.Close()

		scanner := bufio.NewScanner(f)
		scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
		line := 0
		for scanner.Scan() {
			line++
			text := scanner.Text()
			if text == "" {
				continue
			}
			row, keep, err := r.parse(strings.Split(text, "\t"))
			if err != nil {
				yield(zero, fmt.Errorf("bedtools: result line %d: %w", line, err))
				return
			}
			if !keep {
				continue
			}
			if !yield(row, nil) {
				return
			}
		}
		if err := scanner.Err(); err != nil {
			yield(zero, fmt.Errorf("bedtools: read result: %w", err))
		}
	}
}

// Collect drains the result into a slice. On error no rows are returned.
func (r *Result[T]) Collect() ([]T, error) {
	var rows []T
	for row, err := range r.All() {
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Close removes the output file. Safe to call more than once.
func (r *Result[T]) Close() error {
	r.consumed = true
	if r.path == "" {
		return nil
	}
	err := os.Remove(r.path)
	r.path = ""
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
