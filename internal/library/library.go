// Package library keeps the registry of uploaded documents in SQLite and
// their files in a managed directory.
package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // register pure-Go SQLite driver

	"notesrag/internal/domain"
)

const schema = `CREATE TABLE IF NOT EXISTS documents (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	filename TEXT,
	filepath TEXT,
	upload_date TIMESTAMP
)`

// ErrNotFound is returned when a document id is not in the library.
var ErrNotFound = errors.New("document not found")

// RemoveError reports files left on disk after their rows were deleted.
type RemoveError struct {
	Err error
}

func (e *RemoveError) Error() string { return "remove document files: " + e.Err.Error() }

func (e *RemoveError) Unwrap() error { return e.Err }

// Library is a SQLite-backed document registry.
type Library struct {
	db      *sql.DB
	docsDir string
	now     func() time.Time
}

// Stats summarizes the library contents.
type Stats struct {
	Documents  int
	TotalBytes int64
}

// Open opens (creating if needed) the database at dsn and the docs directory.
func Open(dsn, docsDir string) (*Library, error) {
	if err := os.MkdirAll(docsDir, 0o755); err != nil {
		return nil, fmt.Errorf("create docs dir: %w", err)
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init library schema: %w", err)
	}
	return &Library{db: db, docsDir: docsDir, now: time.Now}, nil
}

// Close releases the database.
func (l *Library) Close() error { return l.db.Close() }

// DocsDir is where imported files are stored.
func (l *Library) DocsDir() string { return l.docsDir }

// Import copies src into the docs directory and registers the copy.
func (l *Library) Import(ctx context.Context, src string) (domain.Document, error) {
	name := filepath.Base(src)
	dst := filepath.Join(l.docsDir, name)
	if !samePath(src, dst) {
		if err := copyFile(src, dst); err != nil {
			return domain.Document{}, err
		}
	}
	return l.Add(ctx, name, dst)
}

// Add registers a file that is already in place.
func (l *Library) Add(ctx context.Context, name, path string) (domain.Document, error) {
	uploaded := l.now().UTC()
	res, err := l.db.ExecContext(ctx,
		`INSERT INTO documents (filename, filepath, upload_date) VALUES (?, ?, ?)`,
		name, path, uploaded)
	if err != nil {
		return domain.Document{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.Document{}, err
	}
	return domain.Document{ID: id, Name: name, Path: path, UploadedAt: uploaded}, nil
}

// List returns every document in insertion order.
func (l *Library) List(ctx context.Context) ([]domain.Document, error) {
	rows, err := l.db.QueryContext(ctx, `SELECT id, filename, filepath, upload_date FROM documents ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []domain.Document
	for rows.Next() {
		var d domain.Document
		if err := rows.Scan(&d.ID, &d.Name, &d.Path, &d.UploadedAt); err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// Search returns documents whose name contains term, ignoring case.
func (l *Library) Search(ctx context.Context, term string) ([]domain.Document, error) {
	docs, err := l.List(ctx)
	if err != nil || term == "" {
		return docs, err
	}
	term = strings.ToLower(term)
	out := docs[:0]
	for _, d := range docs {
		if strings.Contains(strings.ToLower(d.Name), term) {
			out = append(out, d)
		}
	}
	return out, nil
}

// Paths returns the file paths of every document in insertion order.
func (l *Library) Paths(ctx context.Context) ([]string, error) {
	docs, err := l.List(ctx)
	if err != nil {
		return nil, err
	}
	paths := make([]string, len(docs))
	for i, d := range docs {
		paths[i] = d.Path
	}
	return paths, nil
}

// Delete removes a document row and its file. The row is removed even when
// the file cannot be; that failure is returned as a *RemoveError.
func (l *Library) Delete(ctx context.Context, id int64) error {
	var path string
	err := l.db.QueryRowContext(ctx, `SELECT filepath FROM documents WHERE id = ?`, id).Scan(&path)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if _, err := l.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id); err != nil {
		return err
	}
	if err := removeFile(path); err != nil {
		return &RemoveError{Err: err}
	}
	return nil
}

// Clear removes every document and file. File removal failures are joined
// into a *RemoveError returned after all rows are gone.
func (l *Library) Clear(ctx context.Context) error {
	paths, err := l.Paths(ctx)
	if err != nil {
		return err
	}
	if _, err := l.db.ExecContext(ctx, `DELETE FROM documents`); err != nil {
		return err
	}
	var errs []error
	for _, p := range paths {
		if err := removeFile(p); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return &RemoveError{Err: errors.Join(errs...)}
	}
	return nil
}

// Stats counts documents and sums the size of the files still on disk.
func (l *Library) Stats(ctx context.Context) (Stats, error) {
	docs, err := l.List(ctx)
	if err != nil {
		return Stats{}, err
	}
	st := Stats{Documents: len(docs)}
	for _, d := range docs {
		if info, err := os.Stat(d.Path); err == nil {
			st.TotalBytes += info.Size()
		}
	}
	return st, nil
}

// SizeMB renders TotalBytes in mebibytes rounded to two decimals.
func (s Stats) SizeMB() string {
	return fmt.Sprintf("%.2f MB", float64(s.TotalBytes)/(1024*1024))
}

func removeFile(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	return errA == nil && errB == nil && absA == absB
}

func copyFile(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
	}()
	_, err = io.Copy(out, in)
	return err
}
