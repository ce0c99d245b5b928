package store

import (
	"database/sql"
	"fmt"
)

// TableSession is a Session writing to a single table. AddAll opens a
// transaction on first use and inserts every record inside it; Commit
// ends that transaction. A failed insert rolls the transaction back so
// the next AddAll starts clean.
type TableSession[T any] struct {
	db     *sql.DB
	table  string
	insert func(tx *sql.Tx, rec *T) (int64, error)

	tx *sql.Tx
}

// DataSession returns a session inserting modification records.
func (s *Store) DataSession() *TableSession[Data] {
	return &TableSession[Data]{db: s.db, table: "data", insert: insertDataTx}
}

// DataAnnotationSession returns a session inserting data annotations.
// Duplicate (gene, record, feature) triples are ignored.
func (s *Store) DataAnnotationSession() *TableSession[DataAnnotation] {
	return &TableSession[DataAnnotation]{db: s.db, table: "data_annotations", insert: insertDataAnnotationTx}
}

func (ts *TableSession[T]) AddAll(records []T) error {
	if ts.tx == nil {
		tx, err := ts.db.Begin()
		if err != nil {
			return fmt.Errorf("add %s: begin: %w", ts.table, err)
		}
		ts.tx = tx
	}
	for i := range records {
		if _, err := ts.insert(ts.tx, &records[i]); err != nil {
			ts.Rollback()
			return fmt.Errorf("add %s: %w", ts.table, err)
		}
	}
	return nil
}

func (ts *TableSession[T]) Commit() error {
	if ts.tx == nil {
		return nil
	}
	tx := ts.tx
	ts.tx = nil
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", ts.table, err)
	}
	return nil
}

// Rollback discards anything staged since the last Commit.
func (ts *TableSession[T]) Rollback() {
	if ts.tx != nil {
		ts.tx.Rollback()
		ts.tx = nil
	}
}

// --- Transaction-scoped insert helpers ---

func insertDataTx(tx *sql.Tx, d *Data) (int64, error) {
	res, err := tx.Exec(
		`INSERT INTO data (dataset_id, chrom, start, end, name, score, strand,
			thick_start, thick_end, item_rgb, coverage, frequency)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.DatasetID, d.Chrom, d.Start, d.End, d.Name, d.Score, d.Strand,
		d.ThickStart, d.ThickEnd, d.ItemRGB, d.Coverage, d.Frequency,
	)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	d.ID = id
	return id, nil
}

func insertDataAnnotationTx(tx *sql.Tx, a *DataAnnotation) (int64, error) {
	res, err := tx.Exec(
		`INSERT OR IGNORE INTO data_annotations (gene_id, data_id, feature) VALUES (?, ?, ?)`,
		a.GeneID, a.DataID, a.Feature,
	)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	a.ID = id
	return id, nil
}
