package scimodom

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jward/scimodom/internal/store"
)

var (
	// ErrProjectNotFound is returned when an SMID names no stored project.
	ErrProjectNotFound = errors.New("scimodom: project not found")
	// ErrProjectExists is returned when a new project names an SMID that is
	// already taken.
	ErrProjectExists = errors.New("scimodom: project already exists")
	// ErrDuplicateProject is returned when a project with the same title
	// was already created.
	ErrDuplicateProject = errors.New("scimodom: similar project already exists")
)

// ProjectRequest describes a new project. An empty SMID is generated.
type ProjectRequest struct {
	SMID    string
	Title   string
	Summary string
}

// CreateProject stores a new project. Titles are unique across projects.
func (e *Engine) CreateProject(req ProjectRequest) (*Project, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, errors.New("create project: title is required")
	}
	smid := req.SMID
	if smid == "" {
		smid = NewSMID()
	} else if len(smid) != store.SMIDLength {
		return nil, fmt.Errorf("create project: smid %q must be %d characters", smid, store.SMIDLength)
	}

	existing, err := e.store.ProjectByID(smid)
	if err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: %s", ErrProjectExists, smid)
	}
	if dup, err := e.store.ProjectByTitle(title); err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	} else if dup != nil {
		return nil, fmt.Errorf("%w: SMID %s has title %q", ErrDuplicateProject, dup.SMID, title)
	}

	p := &Project{
		SMID:    smid,
		Title:   title,
		Summary: req.Summary,
		Created: time.Now().UTC().Truncate(time.Second),
	}
	if err := e.store.InsertProject(p); err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}
	e.logger.Info().Str("smid", smid).Str("title", title).Msg("project created")
	return p, nil
}

// Projects lists every project ordered by SMID.
func (e *Engine) Projects() ([]*Project, error) {
	return e.store.Projects()
}

// Project returns one project or ErrProjectNotFound.
func (e *Engine) Project(smid string) (*Project, error) {
	p, err := e.store.ProjectByID(smid)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("%w: %s", ErrProjectNotFound, smid)
	}
	return p, nil
}

// ProjectDatasets lists the datasets of a project.
func (e *Engine) ProjectDatasets(smid string) ([]*Dataset, error) {
	if _, err := e.Project(smid); err != nil {
		return nil, err
	}
	return e.store.DatasetsByProject(smid)
}

// NewSMID returns a random project identifier.
func NewSMID() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return id[:store.SMIDLength]
}
