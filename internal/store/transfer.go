package store

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"
)

// exportDocument is the JSON interchange format. Binary blobs are excluded;
// importers re-read files from their recorded paths when still present.
type exportDocument struct {
	ExportedAt time.Time      `json:"exported_at"`
	Courses    []exportCourse `json:"courses"`
}

type exportCourse struct {
	Course
	Resources []Resource `json:"resources"`
}

// ExportJSON writes the whole course tree to w.
func (s *Store) ExportJSON(ctx context.Context, w io.Writer) error {
	courses, err := s.ListCourses(ctx, "")
	if err != nil {
		return err
	}

	doc := exportDocument{ExportedAt: time.Now().UTC()}
	for _, c := range courses {
		resources, err := s.ListResources(ctx, c.ID)
		if err != nil {
			return err
		}
		if resources == nil {
			resources = []Resource{}
		}
		doc.Courses = append(doc.Courses, exportCourse{Course: c, Resources: resources})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(&doc); err != nil {
		return fmt.Errorf("encoding export: %w", err)
	}
	return nil
}

// ImportJSON merges an exported course tree into the store. Returns the
// number of courses added. Resources whose paths still exist are re-copied
// into the database; the rest are kept as path references.
func (s *Store) ImportJSON(ctx context.Context, r io.Reader) (int, error) {
	var doc exportDocument
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return 0, fmt.Errorf("decoding import: %w", err)
	}

	inserted := 0
	for _, ec := range doc.Courses {
		c := ec.Course
		c.ID = 0
		if c.Name == "" {
			c.Name = "Sans nom"
		}
		id, err := s.CreateCourse(ctx, c)
		if err != nil {
			return inserted, err
		}
		for _, res := range ec.Resources {
			if res.Path != "" {
				if _, err := os.Stat(res.Path); err == nil {
					if _, err := s.AddResource(ctx, id, res.Path, res.Note); err != nil {
						return inserted, err
					}
					continue
				}
			}
			// Path gone: keep the reference row without data.
			if _, err := s.db.ExecContext(ctx,
				`INSERT INTO resources (course_id, path, filename, note) VALUES (?, ?, ?, ?)`,
				id, res.Path, res.Filename, res.Note); err != nil {
				return inserted, fmt.Errorf("inserting resource reference: %w", err)
			}
		}
		inserted++
	}
	return inserted, nil
}
