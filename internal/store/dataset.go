package store

import (
	"database/sql"
	"fmt"
)

// --- Dataset operations ---

func (s *Store) InsertDataset(d *Dataset) error {
	if len(d.EUFID) != EUFIDLength {
		return fmt.Errorf("insert dataset: eufid %q must be %d characters", d.EUFID, EUFIDLength)
	}
	_, err := s.db.Exec(
		"INSERT INTO datasets (eufid, project_id, title, assembly, modification, checksum, created) VALUES (?, ?, ?, ?, ?, ?, ?)",
		d.EUFID, nullString(d.ProjectID), d.Title, d.Assembly, d.Modification, d.Checksum, d.Created,
	)
	if err != nil {
		return fmt.Errorf("insert dataset: %w", err)
	}
	return nil
}

const datasetCols = "eufid, project_id, title, assembly, modification, checksum, created"

func scanDataset(scanner interface{ Scan(...any) error }) (*Dataset, error) {
	d := &Dataset{}
	var project, assembly, modification, checksum sql.NullString
	var created sql.NullTime
	if err := scanner.Scan(&d.EUFID, &project, &d.Title, &assembly, &modification, &checksum, &created); err != nil {
		return nil, err
	}
	d.ProjectID = project.String
	d.Assembly = assembly.String
	d.Modification = modification.String
	d.Checksum = checksum.String
	d.Created = created.Time
	return d, nil
}

// DatasetByID returns the dataset with the given EUFID, or nil if absent.
func (s *Store) DatasetByID(eufid string) (*Dataset, error) {
	d, err := scanDataset(s.db.QueryRow("SELECT "+datasetCols+" FROM datasets WHERE eufid = ?", eufid))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("dataset by id: %w", err)
	}
	return d, nil
}

// DatasetByChecksum returns a dataset imported from content with the
// given checksum, or nil.
func (s *Store) DatasetByChecksum(checksum string) (*Dataset, error) {
	d, err := scanDataset(s.db.QueryRow("SELECT "+datasetCols+" FROM datasets WHERE checksum = ? LIMIT 1", checksum))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("dataset by checksum: %w", err)
	}
	return d, nil
}

// Datasets returns all datasets ordered by EUFID.
func (s *Store) Datasets() ([]*Dataset, error) {
	return s.queryDatasets("SELECT " + datasetCols + " FROM datasets ORDER BY eufid")
}

// DatasetsByProject returns the datasets of a project ordered by EUFID.
func (s *Store) DatasetsByProject(smid string) ([]*Dataset, error) {
	return s.queryDatasets("SELECT "+datasetCols+" FROM datasets WHERE project_id = ? ORDER BY eufid", smid)
}

// DatasetsByIDs returns the datasets among eufids that exist.
func (s *Store) DatasetsByIDs(eufids []string) ([]*Dataset, error) {
	if len(eufids) == 0 {
		return nil, nil
	}
	return s.queryDatasets(
		"SELECT "+datasetCols+" FROM datasets WHERE eufid IN ("+placeholderList(len(eufids))+") ORDER BY eufid",
		stringsToArgs(eufids)...,
	)
}

func (s *Store) queryDatasets(query string, args ...any) ([]*Dataset, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query datasets: %w", err)
	}
	defer rows.Close()
	var datasets []*Dataset
	for rows.Next() {
		d, err := scanDataset(rows)
		if err != nil {
			return nil, fmt.Errorf("scan dataset: %w", err)
		}
		datasets = append(datasets, d)
	}
	return datasets, rows.Err()
}

// --- Data operations ---

const dataCols = `id, dataset_id, chrom, start, end, name, score, strand,
	thick_start, thick_end, item_rgb, coverage, frequency`

func scanData(scanner interface{ Scan(...any) error }) (*Data, error) {
	d := &Data{}
	var itemRGB sql.NullString
	var thickStart, thickEnd, coverage, frequency sql.NullInt64
	err := scanner.Scan(
		&d.ID, &d.DatasetID, &d.Chrom, &d.Start, &d.End, &d.Name, &d.Score, &d.Strand,
		&thickStart, &thickEnd, &itemRGB, &coverage, &frequency,
	)
	if err != nil {
		return nil, err
	}
	d.ThickStart = thickStart.Int64
	d.ThickEnd = thickEnd.Int64
	d.ItemRGB = itemRGB.String
	d.Coverage = int(coverage.Int64)
	d.Frequency = int(frequency.Int64)
	return d, nil
}

// DataByDataset returns the records of a dataset sorted by chromosome
// then start, the order interval tools expect.
func (s *Store) DataByDataset(eufid string) ([]*Data, error) {
	rows, err := s.db.Query(
		"SELECT "+dataCols+" FROM data WHERE dataset_id = ? ORDER BY chrom, start, end, id", eufid,
	)
	if err != nil {
		return nil, fmt.Errorf("data by dataset: %w", err)
	}
	defer rows.Close()
	var records []*Data
	for rows.Next() {
		d, err := scanData(rows)
		if err != nil {
			return nil, fmt.Errorf("scan data: %w", err)
		}
		records = append(records, d)
	}
	return records, rows.Err()
}

// CountData returns the number of records in a dataset.
func (s *Store) CountData(eufid string) (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM data WHERE dataset_id = ?", eufid).Scan(&n); err != nil {
		return 0, fmt.Errorf("count data: %w", err)
	}
	return n, nil
}

// --- Annotation operations ---

// AnnotationsByDataset returns the annotations attached to a dataset's
// records, ordered by record then gene.
func (s *Store) AnnotationsByDataset(eufid string) ([]*DataAnnotation, error) {
	rows, err := s.db.Query(
		`SELECT a.id, a.gene_id, a.data_id, a.feature
		 FROM data_annotations a
		 JOIN data d ON d.id = a.data_id
		 WHERE d.dataset_id = ?
		 ORDER BY a.data_id, a.gene_id, a.feature`, eufid,
	)
	if err != nil {
		return nil, fmt.Errorf("annotations by dataset: %w", err)
	}
	defer rows.Close()
	var anns []*DataAnnotation
	for rows.Next() {
		a := &DataAnnotation{}
		if err := rows.Scan(&a.ID, &a.GeneID, &a.DataID, &a.Feature); err != nil {
			return nil, fmt.Errorf("scan annotation: %w", err)
		}
		anns = append(anns, a)
	}
	return anns, rows.Err()
}

// CountAnnotations returns the number of annotations on a dataset's records.
func (s *Store) CountAnnotations(eufid string) (int, error) {
	var n int
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM data_annotations a JOIN data d ON d.id = a.data_id WHERE d.dataset_id = ?", eufid,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count annotations: %w", err)
	}
	return n, nil
}

// DeleteAnnotationsByDataset removes the annotations of a dataset's
// records so the dataset can be annotated again.
func (s *Store) DeleteAnnotationsByDataset(eufid string) error {
	_, err := s.db.Exec(
		"DELETE FROM data_annotations WHERE data_id IN (SELECT id FROM data WHERE dataset_id = ?)", eufid,
	)
	if err != nil {
		return fmt.Errorf("delete annotations: %w", err)
	}
	return nil
}

// SetDatasetChecksum records the content checksum of an imported dataset.
func (s *Store) SetDatasetChecksum(eufid, checksum string) error {
	res, err := s.db.Exec("UPDATE datasets SET checksum = ? WHERE eufid = ?", checksum, eufid)
	if err != nil {
		return fmt.Errorf("set dataset checksum: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("set dataset checksum: %s: %w", eufid, sql.ErrNoRows)
	}
	return nil
}
