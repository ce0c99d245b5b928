package scimodom

import (
	"github.com/jward/scimodom/internal/bedtools"
	"github.com/jward/scimodom/internal/crossmap"
	"github.com/jward/scimodom/internal/store"
)

// Public type aliases for internal types used in the Engine API.

type Store = store.Store
type Project = store.Project
type Dataset = store.Dataset
type Data = store.Data
type DataAnnotation = store.DataAnnotation

type Interval = bedtools.Interval
type Hit = bedtools.Hit
type Feature = bedtools.Feature

type LiftoverRequest = crossmap.LiftoverRequest
type LiftoverResult = crossmap.LiftoverResult
