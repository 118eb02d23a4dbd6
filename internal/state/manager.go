// Package state persists the month guard and last allocation across restarts.
package state

import (
	"sync"

	"GTAASentinel/internal/model"
)

// Manager guards the persisted state with a mutex. An empty file path keeps state in memory.
type Manager struct {
	mu       sync.Mutex
	state    *State
	filePath string
}

// NewManager creates a Manager, loading state from disk when a path is given.
func NewManager(filePath string) (*Manager, error) {
	st := emptyState()
	if filePath != "" {
		loaded, err := LoadState(filePath)
		if err != nil {
			return nil, err
		}
		st = loaded
	}
	return &Manager{state: st, filePath: filePath}, nil
}

// GetState returns a copy of the current state.
func (m *Manager) GetState() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *m.state
	cp.Directions = make(map[string]model.Direction, len(m.state.Directions))
	for k, v := range m.state.Directions {
		cp.Directions[k] = v
	}
	cp.Targets = append([]model.TargetWeight(nil), m.state.Targets...)
	return cp
}

// RecordEvaluation stores the outcome of a monthly evaluation and saves it.
func (m *Manager) RecordEvaluation(lastMonth int, directions map[string]model.Direction, eval *model.Evaluation, targets []model.TargetWeight) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state.LastMonth = lastMonth
	m.state.Directions = directions
	m.state.LastEvaluationID = eval.ID
	m.state.LastEvaluationAt = eval.Time
	m.state.Targets = targets
	return m.save()
}

func (m *Manager) save() error {
	if m.filePath == "" {
		return nil
	}
	return SaveState(m.filePath, m.state)
}
