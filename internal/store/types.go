package store

import (
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a solve or artifact does not exist.
	ErrNotFound = errors.New("not found")
	// ErrCorrupt is returned when artifact content no longer matches its digest.
	ErrCorrupt = errors.New("artifact content does not match its digest")
)

// Solve statuses.
const (
	StatusRunning    = "running"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
	StatusSuperseded = "superseded"
)

// Solve is one recorded solver run.
type Solve struct {
	ID            string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	Status        string
	Numbers       []float64
	Target        float64
	Level         int
	SolutionCount int
	Best          string // rendering of the top-ranked solution
	Closest       string // rendering of the closest miss, set only when unsolved
	DurationMS    int64
	Metadata      map[string]string
}

// Solution is one ranked solution of a solve.
type Solution struct {
	SolveID    string
	Rank       int
	Rendering  string
	Value      float64
	Complexity float64
}

// Artifact is a file kept alongside a solve record, such as the full JSON
// response. Path is relative to the store's artifact directory.
type Artifact struct {
	ID        string
	SolveID   string
	Path      string
	Type      string
	CreatedAt time.Time
	Digest    string // hex sha256, set by SaveArtifact
}

// Storage defines the interface for persistence
type Storage interface {
	// Solve history
	CreateSolve(solve *Solve) error
	GetSolve(id string) (*Solve, error)
	UpdateSolve(solve *Solve) error
	ListSolves(limit int) ([]*Solve, error)

	// SaveSolutions replaces the ranked solutions of a solve.
	SaveSolutions(solveID string, solutions []Solution) error
	ListSolutions(solveID string) ([]Solution, error)

	// Artifact Management
	// SaveArtifact persists the metadata and the content
	SaveArtifact(artifact *Artifact, content []byte) error
	GetArtifact(id string) (*Artifact, []byte, error)
	ListArtifacts(solveID string) ([]*Artifact, error)

	// Configuration Management
	SetConfig(key, value string) error
	GetConfig(key string) (string, error)

	Close() error
}
