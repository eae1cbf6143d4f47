package runtime

import (
	"sync"
	"time"

	"github.com/felixgeelhaar/reach/internal/store"
)

// SolveState is the live view of one solve while it runs.
type SolveState struct {
	SolveID       string
	Generation    uint64
	Status        string
	States        int
	Solutions     int
	StartedAt     time.Time
	LastUpdatedAt time.Time
}

// StateManager tracks in-flight solves and writes their final status to
// the store. A nil store disables persistence.
type StateManager struct {
	mu     sync.RWMutex
	store  store.Storage
	solves map[string]*SolveState
}

// NewStateManager creates a new state manager.
func NewStateManager(s store.Storage) *StateManager {
	return &StateManager{
		store:  s,
		solves: make(map[string]*SolveState),
	}
}

// InitSolve registers a running solve.
func (sm *StateManager) InitSolve(solveID string, generation uint64) *SolveState {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	now := time.Now()
	state := &SolveState{
		SolveID:       solveID,
		Generation:    generation,
		Status:        store.StatusRunning,
		StartedAt:     now,
		LastUpdatedAt: now,
	}

	sm.solves[solveID] = state
	return state
}

// GetState returns a copy of the current state of a solve, or nil.
func (sm *StateManager) GetState(solveID string) *SolveState {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	state, ok := sm.solves[solveID]
	if !ok {
		return nil
	}
	cp := *state
	return &cp
}

// SetProgress records the number of states explored so far.
func (sm *StateManager) SetProgress(solveID string, states int) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if state, ok := sm.solves[solveID]; ok {
		state.States = states
		state.LastUpdatedAt = time.Now()
	}
}

// Finish sets the final status and counters of a solve.
func (sm *StateManager) Finish(solveID, status string, states, solutions int) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if state, ok := sm.solves[solveID]; ok {
		state.Status = status
		state.States = states
		state.Solutions = solutions
		state.LastUpdatedAt = time.Now()
	}
}

// GetStatus returns the current solve status.
func (sm *StateManager) GetStatus(solveID string) string {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if state, ok := sm.solves[solveID]; ok {
		return state.Status
	}
	return ""
}

// Running returns the number of solves still running.
func (sm *StateManager) Running() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	n := 0
	for _, state := range sm.solves {
		if state.Status == store.StatusRunning {
			n++
		}
	}
	return n
}

// PersistSolve saves the solve's status and duration to the store. update,
// when set, may fill in result fields before the write.
func (sm *StateManager) PersistSolve(solveID string, update func(*store.Solve)) error {
	if sm.store == nil {
		return nil
	}

	sm.mu.RLock()
	state, ok := sm.solves[solveID]
	var snapshot SolveState
	if ok {
		snapshot = *state
	}
	sm.mu.RUnlock()

	if !ok {
		return nil
	}

	solve, err := sm.store.GetSolve(solveID)
	if err != nil {
		return err
	}

	solve.Status = snapshot.Status
	solve.DurationMS = snapshot.LastUpdatedAt.Sub(snapshot.StartedAt).Milliseconds()
	solve.UpdatedAt = snapshot.LastUpdatedAt
	if update != nil {
		update(solve)
	}

	return sm.store.UpdateSolve(solve)
}

// CleanupSolve removes the solve state from memory.
func (sm *StateManager) CleanupSolve(solveID string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	delete(sm.solves, solveID)
}
