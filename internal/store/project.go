package store

import (
	"database/sql"
	"fmt"
)

// --- Project operations ---

const projectCols = "smid, title, summary, created"

func (s *Store) InsertProject(p *Project) error {
	if len(p.SMID) != SMIDLength {
		return fmt.Errorf("insert project: smid %q must be %d characters", p.SMID, SMIDLength)
	}
	_, err := s.db.Exec(
		"INSERT INTO projects (smid, title, summary, created) VALUES (?, ?, ?, ?)",
		p.SMID, p.Title, nullString(p.Summary), p.Created,
	)
	if err != nil {
		return fmt.Errorf("insert project: %w", err)
	}
	return nil
}

func scanProject(scanner interface{ Scan(...any) error }) (*Project, error) {
	p := &Project{}
	var summary sql.NullString
	var created sql.NullTime
	if err := scanner.Scan(&p.SMID, &p.Title, &summary, &created); err != nil {
		return nil, err
	}
	p.Summary = summary.String
	p.Created = created.Time
	return p, nil
}

// ProjectByID returns the project with the given SMID, or nil if absent.
func (s *Store) ProjectByID(smid string) (*Project, error) {
	p, err := scanProject(s.db.QueryRow("SELECT "+projectCols+" FROM projects WHERE smid = ?", smid))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("project by id: %w", err)
	}
	return p, nil
}

// ProjectByTitle returns a project with exactly this title, or nil.
func (s *Store) ProjectByTitle(title string) (*Project, error) {
	p, err := scanProject(s.db.QueryRow("SELECT "+projectCols+" FROM projects WHERE title = ? LIMIT 1", title))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("project by title: %w", err)
	}
	return p, nil
}

// Projects returns all projects ordered by SMID.
func (s *Store) Projects() ([]*Project, error) {
	rows, err := s.db.Query("SELECT " + projectCols + " FROM projects ORDER BY smid")
	if err != nil {
		return nil, fmt.Errorf("query projects: %w", err)
	}
	defer rows.Close()
	var projects []*Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}
