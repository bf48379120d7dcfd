package store

import (
	"bytes"
	"compress/gzip"
	"context"
	"database/sql"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite" // Pure Go SQLite driver, WAL-friendly
)

// Course is one tracked course.
type Course struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Teacher     string `json:"teacher,omitempty"`
	Description string `json:"description,omitempty"`
	DueDate     string `json:"due_date,omitempty"` // YYYY-MM-DD
	Done        bool   `json:"done"`
}

// Resource is a file attached to a course. Data blobs are not carried on
// listings; they are fetched on demand by ExtractResource.
type Resource struct {
	ID       int64  `json:"-"`
	CourseID int64  `json:"-"`
	Path     string `json:"path,omitempty"`
	Filename string `json:"filename,omitempty"`
	Note     string `json:"note,omitempty"`
}

// Store wraps the SQLite database holding courses and resources.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the course database at dbPath and brings
// its schema up to date.
func Open(ctx context.Context, dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", buildDSN(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	s := &Store{db: db}
	if err := s.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func buildDSN(dbPath string) string {
	u := url.URL{
		Scheme: "file",
		Path:   filepath.ToSlash(dbPath),
	}
	q := url.Values{}
	q.Set("_journal_mode", "WAL")
	q.Set("_busy_timeout", "3000")
	q.Set("_foreign_keys", "on")
	u.RawQuery = q.Encode()
	return u.String()
}

func (s *Store) initSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS courses (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			teacher TEXT,
			description TEXT,
			due_date TEXT,
			done INTEGER DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS resources (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			course_id INTEGER,
			path TEXT,
			note TEXT
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("creating schema: %w", err)
		}
	}
	return s.migrateResources(ctx)
}

// migrateResources upgrades databases created before resources were copied
// into the store: it adds the filename/data columns if missing and backfills
// blobs from paths that still exist on disk. Backfill is best-effort; an
// unreadable file just stays path-only.
func (s *Store) migrateResources(ctx context.Context) error {
	cols, err := s.resourceColumns(ctx)
	if err != nil {
		return err
	}
	if !cols["filename"] {
		if _, err := s.db.ExecContext(ctx, `ALTER TABLE resources ADD COLUMN filename TEXT`); err != nil {
			return fmt.Errorf("adding filename column: %w", err)
		}
	}
	if !cols["data"] {
		if _, err := s.db.ExecContext(ctx, `ALTER TABLE resources ADD COLUMN data BLOB`); err != nil {
			return fmt.Errorf("adding data column: %w", err)
		}
	}

	rows, err := s.db.QueryContext(ctx, `SELECT id, path FROM resources WHERE data IS NULL AND path IS NOT NULL`)
	if err != nil {
		return fmt.Errorf("listing unmigrated resources: %w", err)
	}
	type pending struct {
		id   int64
		path string
	}
	var todo []pending
	for rows.Next() {
		var p pending
		if err := rows.Scan(&p.id, &p.path); err != nil {
			rows.Close()
			return fmt.Errorf("scanning unmigrated resource: %w", err)
		}
		todo = append(todo, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, p := range todo {
		blob, err := compressFile(p.path)
		if err != nil {
			continue
		}
		_, _ = s.db.ExecContext(ctx,
			`UPDATE resources SET filename = ?, data = ? WHERE id = ?`,
			filepath.Base(p.path), blob, p.id)
	}
	return nil
}

func (s *Store) resourceColumns(ctx context.Context) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, `PRAGMA table_info(resources)`)
	if err != nil {
		return nil, fmt.Errorf("reading resources schema: %w", err)
	}
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		var (
			cid        int
			name, typ  string
			notNull    int
			defaultVal sql.NullString
			pk         int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &defaultVal, &pk); err != nil {
			return nil, fmt.Errorf("scanning column info: %w", err)
		}
		cols[name] = true
	}
	return cols, rows.Err()
}

// CreateCourse inserts a course and returns its id.
func (s *Store) CreateCourse(ctx context.Context, c Course) (int64, error) {
	if strings.TrimSpace(c.Name) == "" {
		return 0, fmt.Errorf("course name is required")
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO courses (name, teacher, description, due_date, done) VALUES (?, ?, ?, ?, ?)`,
		c.Name, c.Teacher, c.Description, nullable(c.DueDate), boolToInt(c.Done))
	if err != nil {
		return 0, fmt.Errorf("inserting course: %w", err)
	}
	return res.LastInsertId()
}

// UpdateCourse rewrites a course's editable fields.
func (s *Store) UpdateCourse(ctx context.Context, c Course) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE courses SET name = ?, teacher = ?, description = ?, due_date = ? WHERE id = ?`,
		c.Name, c.Teacher, c.Description, nullable(c.DueDate), c.ID)
	if err != nil {
		return fmt.Errorf("updating course: %w", err)
	}
	return nil
}

// DeleteCourse removes a course and all of its resources.
func (s *Store) DeleteCourse(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM resources WHERE course_id = ?`, id); err != nil {
		return fmt.Errorf("deleting course resources: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM courses WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting course: %w", err)
	}
	return nil
}

// SetDone flips a course's done flag.
func (s *Store) SetDone(ctx context.Context, id int64, done bool) error {
	if _, err := s.db.ExecContext(ctx, `UPDATE courses SET done = ? WHERE id = ?`, boolToInt(done), id); err != nil {
		return fmt.Errorf("updating done flag: %w", err)
	}
	return nil
}

// GetCourse fetches one course by id.
func (s *Store) GetCourse(ctx context.Context, id int64) (*Course, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, COALESCE(teacher,''), COALESCE(description,''), COALESCE(due_date,''), done FROM courses WHERE id = ?`, id)
	var c Course
	var done int
	if err := row.Scan(&c.ID, &c.Name, &c.Teacher, &c.Description, &c.DueDate, &done); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("course %d not found", id)
		}
		return nil, fmt.Errorf("reading course: %w", err)
	}
	c.Done = done != 0
	return &c, nil
}

// ListCourses returns courses ordered by due date (undated last). A
// non-empty query filters by name or teacher, ignoring case and accents, so
// "français" matches "Francais".
func (s *Store) ListCourses(ctx context.Context, query string) ([]Course, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, COALESCE(teacher,''), COALESCE(description,''), COALESCE(due_date,''), done
		 FROM courses ORDER BY due_date IS NULL OR due_date = '', due_date, id`)
	if err != nil {
		return nil, fmt.Errorf("listing courses: %w", err)
	}
	defer rows.Close()

	needle := foldString(query)
	var out []Course
	for rows.Next() {
		var c Course
		var done int
		if err := rows.Scan(&c.ID, &c.Name, &c.Teacher, &c.Description, &c.DueDate, &done); err != nil {
			return nil, fmt.Errorf("scanning course: %w", err)
		}
		c.Done = done != 0
		if needle != "" &&
			!strings.Contains(foldString(c.Name), needle) &&
			!strings.Contains(foldString(c.Teacher), needle) {
			continue
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// AddResource copies the file at path into the database, gzip-compressed,
// and attaches it to the course. The original path is kept as a fallback for
// databases shared across machines.
func (s *Store) AddResource(ctx context.Context, courseID int64, path, note string) (int64, error) {
	if _, err := s.GetCourse(ctx, courseID); err != nil {
		return 0, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	blob, compressErr := compressFile(abs)
	filename := filepath.Base(abs)

	var res sql.Result
	if compressErr == nil {
		res, err = s.db.ExecContext(ctx,
			`INSERT INTO resources (course_id, path, filename, data, note) VALUES (?, ?, ?, ?, ?)`,
			courseID, abs, filename, blob, note)
	} else {
		// Unreadable file: record the reference anyway.
		res, err = s.db.ExecContext(ctx,
			`INSERT INTO resources (course_id, path, filename, note) VALUES (?, ?, ?, ?)`,
			courseID, abs, filename, note)
	}
	if err != nil {
		return 0, fmt.Errorf("inserting resource: %w", err)
	}
	return res.LastInsertId()
}

// ListResources returns the resources attached to a course.
func (s *Store) ListResources(ctx context.Context, courseID int64) ([]Resource, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, course_id, COALESCE(path,''), COALESCE(filename,''), COALESCE(note,'') FROM resources WHERE course_id = ?`, courseID)
	if err != nil {
		return nil, fmt.Errorf("listing resources: %w", err)
	}
	defer rows.Close()

	var out []Resource
	for rows.Next() {
		var r Resource
		if err := rows.Scan(&r.ID, &r.CourseID, &r.Path, &r.Filename, &r.Note); err != nil {
			return nil, fmt.Errorf("scanning resource: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// DeleteResource removes a resource row (the on-disk original is untouched).
func (s *Store) DeleteResource(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM resources WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting resource: %w", err)
	}
	return nil
}

// ExtractResource materializes a resource for opening: the stored blob is
// inflated into a temporary file carrying the original extension. When no
// blob exists, the recorded path is returned if the file is still there.
func (s *Store) ExtractResource(ctx context.Context, id int64) (string, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(path,''), COALESCE(filename,''), data FROM resources WHERE id = ?`, id)
	var (
		path, filename string
		data           []byte
	)
	if err := row.Scan(&path, &filename, &data); err != nil {
		if err == sql.ErrNoRows {
			return "", fmt.Errorf("resource %d not found", id)
		}
		return "", fmt.Errorf("reading resource: %w", err)
	}

	if len(data) > 0 {
		raw, err := inflate(data)
		if err == nil {
			tmp, err := os.CreateTemp("", "otc-resource-*"+filepath.Ext(filename))
			if err != nil {
				return "", fmt.Errorf("creating temp file: %w", err)
			}
			if _, err := tmp.Write(raw); err != nil {
				tmp.Close()
				os.Remove(tmp.Name())
				return "", fmt.Errorf("writing temp file: %w", err)
			}
			if err := tmp.Close(); err != nil {
				return "", fmt.Errorf("closing temp file: %w", err)
			}
			return tmp.Name(), nil
		}
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("resource %d has no usable data or path", id)
}

func compressFile(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(raw); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func inflate(blob []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(blob))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
