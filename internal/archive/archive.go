// Package archive keeps issued certificates in a local SQLite database so
// they can be listed and re-verified after the report files are gone.
package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"securewipe/internal/certificate"
)

// ErrNotFound is returned by Get for an unknown certificate id.
var ErrNotFound = errors.New("certificate not found in archive")

const schema = `
CREATE TABLE IF NOT EXISTS certificates (
	id TEXT PRIMARY KEY,
	status TEXT NOT NULL,
	started_at TEXT NOT NULL,
	finished_at TEXT NOT NULL,
	files_wiped INTEGER NOT NULL,
	files_failed INTEGER NOT NULL,
	bytes_wiped INTEGER NOT NULL,
	digest TEXT NOT NULL,
	document TEXT NOT NULL,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS ledger_entries (
	certificate_id TEXT NOT NULL,
	position INTEGER NOT NULL,
	name TEXT NOT NULL,
	length INTEGER NOT NULL,
	PRIMARY KEY(certificate_id, position),
	FOREIGN KEY(certificate_id) REFERENCES certificates(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS failures (
	certificate_id TEXT NOT NULL,
	position INTEGER NOT NULL,
	name TEXT NOT NULL,
	reason TEXT NOT NULL,
	PRIMARY KEY(certificate_id, position),
	FOREIGN KEY(certificate_id) REFERENCES certificates(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_ledger_name ON ledger_entries(name);
`

// Entry is one row of the certificate listing.
type Entry struct {
	ID          string
	Status      string
	StartedAt   time.Time
	FinishedAt  time.Time
	FilesWiped  int
	FilesFailed int
	BytesWiped  int64
	Digest      string
}

// Store is the certificate archive.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (creating if needed) the archive at path.
func Open(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errors.Wrap(err, "create archive directory")
	}

	// The driver name is "sqlite", not "sqlite3" for modernc
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrapf(err, "open archive %s", path)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrapf(err, "ping archive %s", path)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA foreign_keys=ON;",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, errors.Wrapf(err, "archive %s", pragma)
		}
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "migrate archive schema")
	}

	return &Store{db: db, path: path}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Render stores doc, so the archive can sit in a reporting.MultiRenderer.
// Storing the same id twice is an error.
func (s *Store) Render(ctx context.Context, doc certificate.Document) (string, error) {
	if err := s.Put(ctx, doc); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s#%s", s.path, doc.CertificateID), nil
}

// Put inserts doc with its ledger and failures in one transaction.
func (s *Store) Put(ctx context.Context, doc certificate.Document) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return errors.Wrap(err, "marshal certificate")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin archive transaction")
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO certificates (id, status, started_at, finished_at, files_wiped, files_failed, bytes_wiped, digest, document)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.CertificateID, doc.Status,
		doc.StartedAt.UTC().Format(time.RFC3339Nano), doc.FinishedAt.UTC().Format(time.RFC3339Nano),
		doc.Summary.FilesWiped, doc.Summary.FilesFailed, doc.Summary.BytesWiped,
		doc.Digest, string(body))
	if err != nil {
		return errors.Wrapf(err, "archive certificate %s", doc.CertificateID)
	}

	for i, rec := range doc.Ledger {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO ledger_entries (certificate_id, position, name, length) VALUES (?, ?, ?, ?)`,
			doc.CertificateID, i, rec.Name, rec.Length); err != nil {
			return errors.Wrapf(err, "archive ledger entry %s", rec.Name)
		}
	}
	for i, f := range doc.Failures {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO failures (certificate_id, position, name, reason) VALUES (?, ?, ?, ?)`,
			doc.CertificateID, i, f.Name, f.Reason); err != nil {
			return errors.Wrapf(err, "archive failure %s", f.Name)
		}
	}

	return errors.Wrap(tx.Commit(), "commit archive transaction")
}

// List returns all archived certificates, newest first.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, status, started_at, finished_at, files_wiped, files_failed, bytes_wiped, digest
		 FROM certificates ORDER BY finished_at DESC, id DESC`)
	if err != nil {
		return nil, errors.Wrap(err, "list certificates")
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var started, finished string
		if err := rows.Scan(&e.ID, &e.Status, &started, &finished,
			&e.FilesWiped, &e.FilesFailed, &e.BytesWiped, &e.Digest); err != nil {
			return nil, errors.Wrap(err, "scan certificate row")
		}
		if e.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
			return nil, errors.Wrapf(err, "certificate %s started_at", e.ID)
		}
		if e.FinishedAt, err = time.Parse(time.RFC3339Nano, finished); err != nil {
			return nil, errors.Wrapf(err, "certificate %s finished_at", e.ID)
		}
		entries = append(entries, e)
	}
	return entries, errors.Wrap(rows.Err(), "list certificates")
}

// Get returns the archived document for id.
func (s *Store) Get(ctx context.Context, id string) (certificate.Document, error) {
	var doc certificate.Document
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT document FROM certificates WHERE id = ?`, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return doc, errors.Wrapf(ErrNotFound, "%s", id)
	}
	if err != nil {
		return doc, errors.Wrapf(err, "load certificate %s", id)
	}
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return doc, errors.Wrapf(err, "decode certificate %s", id)
	}
	return doc, nil
}

// FindFile returns the ids of certificates whose ledger names the file.
func (s *Store) FindFile(ctx context.Context, name string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT certificate_id FROM ledger_entries WHERE name = ? ORDER BY certificate_id`, name)
	if err != nil {
		return nil, errors.Wrap(err, "search ledger")
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errors.Wrap(err, "scan ledger row")
		}
		ids = append(ids, id)
	}
	return ids, errors.Wrap(rows.Err(), "search ledger")
}
