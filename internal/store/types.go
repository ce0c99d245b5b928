package store

import "time"

// EUFIDLength is the fixed length of a dataset identifier.
const EUFIDLength = 12

// SMIDLength is the fixed length of a project identifier.
const SMIDLength = 8

// Project groups datasets submitted together.
type Project struct {
	SMID    string
	Title   string
	Summary string
	Created time.Time
}

type Dataset struct {
	EUFID        string
	ProjectID    string // SMID, empty when the dataset belongs to no project
	Title        string
	Assembly     string
	Modification string
	Checksum     string
	Created      time.Time
}

// Data is one modification site of a dataset (a bedRMod record).
type Data struct {
	ID         int64
	DatasetID  string
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

type DataAnnotation struct {
	ID      int64
	GeneID  string
	DataID  int64
	Feature string
}
