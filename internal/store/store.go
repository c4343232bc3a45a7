// Package store keeps a render history in sqlite. The store is optional:
// with no EQRENDER_DB_PATH set, every call is a no-op.
package store

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"os"

	_ "github.com/mattn/go-sqlite3"
)

type Render struct {
	ID        string
	SourceSHA string
	Status    string
	Error     string
	CreatedAt string
	UpdatedAt string
}

func dbPath() string {
	return os.Getenv("EQRENDER_DB_PATH")
}

// Enabled reports whether history recording is configured.
func Enabled() bool {
	return dbPath() != ""
}

// SourceSHA returns the hex sha256 of an equation source, the only form the
// source is persisted in.
func SourceSHA(source string) string {
	sum := sha256.Sum256([]byte(source))
	return hex.EncodeToString(sum[:])
}

// Init creates the renders table if needed.
func Init() error {
	if !Enabled() {
		return nil
	}
	db, err := sql.Open("sqlite3", dbPath())
	if err != nil {
		return err
	}
	defer db.Close()

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS renders (
			id TEXT PRIMARY KEY,
			source_sha TEXT NOT NULL,
			status TEXT NOT NULL,
			error TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	return err
}

// RecordRender inserts a pending render row.
func RecordRender(id, sourceSHA string) error {
	if !Enabled() {
		return nil
	}
	db, err := sql.Open("sqlite3", dbPath())
	if err != nil {
		return err
	}
	defer db.Close()

	_, err = db.Exec(`
		INSERT INTO renders (id, source_sha, status) VALUES (?, ?, 'pending')
	`, id, sourceSHA)
	return err
}

// UpdateStatus records the terminal (or intermediate) state of a render.
func UpdateStatus(id, status, errMsg string) error {
	if !Enabled() {
		return nil
	}
	db, err := sql.Open("sqlite3", dbPath())
	if err != nil {
		return err
	}
	defer db.Close()

	_, err = db.Exec(`
		UPDATE renders SET status = ?, error = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?
	`, status, errMsg, id)
	return err
}

// ListRecent returns the newest renders, most recent first.
func ListRecent(limit int) ([]Render, error) {
	if !Enabled() {
		return nil, nil
	}
	db, err := sql.Open("sqlite3", dbPath())
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.Query(`
		SELECT id, source_sha, status, error, created_at, updated_at
		FROM renders ORDER BY created_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var renders []Render
	for rows.Next() {
		var r Render
		if err := rows.Scan(&r.ID, &r.SourceSHA, &r.Status, &r.Error, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		renders = append(renders, r)
	}
	return renders, rows.Err()
}
