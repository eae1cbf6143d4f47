package store

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

type SQLiteStore struct {
	db          *sql.DB
	artifactDir string
}

func NewSQLiteStore(dbPath, artifactDir string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0750); err != nil {
		return nil, fmt.Errorf("failed to create db directory: %w", err)
	}
	if err := os.MkdirAll(artifactDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create artifact directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// sqlite allows one writer; batch runs share the handle.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{
		db:          db,
		artifactDir: artifactDir,
	}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS solves (
			id TEXT PRIMARY KEY,
			created_at DATETIME,
			updated_at DATETIME,
			status TEXT,
			numbers TEXT,
			target REAL,
			level INTEGER,
			solution_count INTEGER DEFAULT 0,
			best TEXT DEFAULT '',
			closest TEXT DEFAULT '',
			duration_ms INTEGER DEFAULT 0,
			metadata TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS solutions (
			solve_id TEXT,
			rank INTEGER,
			rendering TEXT,
			value REAL,
			complexity REAL,
			PRIMARY KEY(solve_id, rank),
			FOREIGN KEY(solve_id) REFERENCES solves(id)
		);`,
		`CREATE TABLE IF NOT EXISTS artifacts (
			id TEXT PRIMARY KEY,
			solve_id TEXT,
			path TEXT,
			type TEXT,
			created_at DATETIME,
			digest TEXT,
			FOREIGN KEY(solve_id) REFERENCES solves(id)
		);`,
		`CREATE TABLE IF NOT EXISTS configuration (
			key TEXT PRIMARY KEY,
			value TEXT
		);`,
	}

	for _, query := range queries {
		if _, err := s.db.Exec(query); err != nil {
			return fmt.Errorf("failed to init schema: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SetConfig stores a user setting, replacing any earlier value.
func (s *SQLiteStore) SetConfig(key, value string) error {
	_, err := s.db.Exec(`INSERT INTO configuration (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	return err
}

// GetConfig returns the stored value, or "" when the key was never set.
func (s *SQLiteStore) GetConfig(key string) (value string, err error) {
	err = s.db.QueryRow(`SELECT value FROM configuration WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return value, err
}

// Solve Implementation

const solveColumns = `id, created_at, updated_at, status, numbers, target, level, solution_count, best, closest, duration_ms, metadata`

func (s *SQLiteStore) CreateSolve(solve *Solve) error {
	numbersJSON, metaJSON, err := encodeSolve(solve)
	if err != nil {
		return err
	}

	query := `INSERT INTO solves (` + solveColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = s.db.Exec(query, solve.ID, solve.CreatedAt, solve.UpdatedAt, solve.Status, numbersJSON,
		solve.Target, solve.Level, solve.SolutionCount, solve.Best, solve.Closest, solve.DurationMS, metaJSON)
	return err
}

// GetSolve looks a solve up by its full ID or an unambiguous ID prefix.
func (s *SQLiteStore) GetSolve(id string) (*Solve, error) {
	query := `SELECT ` + solveColumns + ` FROM solves WHERE id = ? OR id LIKE ? || '%' ORDER BY id = ? DESC LIMIT 2`
	rows, err := s.db.Query(query, id, id, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var found []*Solve
	for rows.Next() {
		solve, err := scanSolve(rows)
		if err != nil {
			return nil, err
		}
		found = append(found, solve)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	switch {
	case len(found) == 0:
		return nil, fmt.Errorf("solve %s: %w", id, ErrNotFound)
	case found[0].ID == id, len(found) == 1:
		return found[0], nil
	default:
		return nil, fmt.Errorf("solve id prefix %q is ambiguous", id)
	}
}

func (s *SQLiteStore) UpdateSolve(solve *Solve) error {
	_, metaJSON, err := encodeSolve(solve)
	if err != nil {
		return err
	}

	query := `UPDATE solves SET updated_at = ?, status = ?, solution_count = ?, best = ?, closest = ?, duration_ms = ?, metadata = ? WHERE id = ?`
	res, err := s.db.Exec(query, time.Now(), solve.Status, solve.SolutionCount, solve.Best, solve.Closest,
		solve.DurationMS, metaJSON, solve.ID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("solve %s: %w", solve.ID, ErrNotFound)
	}
	return nil
}

// ListSolves returns the most recent solves first.
func (s *SQLiteStore) ListSolves(limit int) ([]*Solve, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `SELECT ` + solveColumns + ` FROM solves ORDER BY created_at DESC, id LIMIT ?`
	rows, err := s.db.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var solves []*Solve
	for rows.Next() {
		solve, err := scanSolve(rows)
		if err != nil {
			return nil, err
		}
		solves = append(solves, solve)
	}
	return solves, rows.Err()
}

func encodeSolve(solve *Solve) (string, string, error) {
	numbersJSON, err := json.Marshal(solve.Numbers)
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal numbers: %w", err)
	}
	metaJSON, err := json.Marshal(solve.Metadata)
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal metadata: %w", err)
	}
	return string(numbersJSON), string(metaJSON), nil
}

func scanSolve(rows *sql.Rows) (*Solve, error) {
	var solve Solve
	var numbersJSON, metaJSON string
	if err := rows.Scan(&solve.ID, &solve.CreatedAt, &solve.UpdatedAt, &solve.Status, &numbersJSON,
		&solve.Target, &solve.Level, &solve.SolutionCount, &solve.Best, &solve.Closest, &solve.DurationMS, &metaJSON); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(numbersJSON), &solve.Numbers); err != nil {
		return nil, fmt.Errorf("failed to unmarshal numbers: %w", err)
	}
	if err := json.Unmarshal([]byte(metaJSON), &solve.Metadata); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
	}
	return &solve, nil
}

// Solution Implementation

func (s *SQLiteStore) SaveSolutions(solveID string, solutions []Solution) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM solutions WHERE solve_id = ?`, solveID); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT INTO solutions (solve_id, rank, rendering, value, complexity) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, sol := range solutions {
		if _, err := stmt.Exec(solveID, i+1, sol.Rendering, sol.Value, sol.Complexity); err != nil {
			return fmt.Errorf("failed to insert solution %d: %w", i+1, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) ListSolutions(solveID string) ([]Solution, error) {
	query := `SELECT solve_id, rank, rendering, value, complexity FROM solutions WHERE solve_id = ? ORDER BY rank`
	rows, err := s.db.Query(query, solveID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Solution
	for rows.Next() {
		var sol Solution
		if err := rows.Scan(&sol.SolveID, &sol.Rank, &sol.Rendering, &sol.Value, &sol.Complexity); err != nil {
			return nil, err
		}
		out = append(out, sol)
	}
	return out, rows.Err()
}

// Artifacts. Content lives on disk under artifactDir; the table holds the
// relative path and a sha256 of the content.

// SaveArtifact writes content and records the artifact. The digest is
// computed here and stored on artifact.
func (s *SQLiteStore) SaveArtifact(artifact *Artifact, content []byte) error {
	if !filepath.IsLocal(artifact.Path) {
		return fmt.Errorf("artifact path %q escapes the artifact directory", artifact.Path)
	}
	artifact.Digest = digest(content)

	if err := writeFileAtomic(filepath.Join(s.artifactDir, artifact.Path), content); err != nil {
		return err
	}

	_, err := s.db.Exec(`INSERT INTO artifacts (id, solve_id, path, type, created_at, digest) VALUES (?, ?, ?, ?, ?, ?)`,
		artifact.ID, artifact.SolveID, artifact.Path, artifact.Type, artifact.CreatedAt, artifact.Digest)
	return err
}

// GetArtifact loads an artifact and its content. Content that no longer
// matches the recorded digest yields ErrCorrupt.
func (s *SQLiteStore) GetArtifact(id string) (*Artifact, []byte, error) {
	row := s.db.QueryRow(`SELECT `+artifactColumns+` FROM artifacts WHERE id = ?`, id)
	a, err := scanArtifact(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, fmt.Errorf("artifact %s: %w", id, ErrNotFound)
		}
		return nil, nil, err
	}

	content, err := os.ReadFile(filepath.Join(s.artifactDir, a.Path)) // #nosec G304
	if err != nil {
		return nil, nil, fmt.Errorf("artifact %s: %w", id, err)
	}
	if a.Digest != "" && digest(content) != a.Digest {
		return nil, nil, fmt.Errorf("artifact %s: %w", id, ErrCorrupt)
	}
	return a, content, nil
}

func (s *SQLiteStore) ListArtifacts(solveID string) ([]*Artifact, error) {
	rows, err := s.db.Query(`SELECT `+artifactColumns+` FROM artifacts WHERE solve_id = ? ORDER BY created_at`, solveID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Artifact
	for rows.Next() {
		a, err := scanArtifact(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

const artifactColumns = `id, solve_id, path, type, created_at, digest`

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanArtifact(sc scanner) (*Artifact, error) {
	var a Artifact
	if err := sc.Scan(&a.ID, &a.SolveID, &a.Path, &a.Type, &a.CreatedAt, &a.Digest); err != nil {
		return nil, err
	}
	return &a, nil
}

func digest(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// writeFileAtomic writes through a temp file in the target directory so a
// crash never leaves a truncated artifact behind.
func writeFileAtomic(path string, content []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create artifact dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".artifact-*")
	if err != nil {
		return fmt.Errorf("failed to write artifact content: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write artifact content: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write artifact content: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}
