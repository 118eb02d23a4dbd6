package state

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"GTAASentinel/internal/model"
)

// State is the strategy state that must survive a restart.
type State struct {
	LastMonth        int                        `json:"last_month"`
	Directions       map[string]model.Direction `json:"directions"`
	LastEvaluationID string                     `json:"last_evaluation_id"`
	LastEvaluationAt time.Time                  `json:"last_evaluation_at"`
	Targets          []model.TargetWeight       `json:"targets"`
	UpdatedAt        time.Time                  `json:"updated_at"`
}

func emptyState() *State {
	return &State{LastMonth: -1, Directions: map[string]model.Direction{}}
}

// LoadState reads the state from a JSON file. Returns an empty state if the file doesn't exist.
func LoadState(filePath string) (*State, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return emptyState(), nil
		}
		return nil, err
	}
	state := emptyState()
	if err := json.Unmarshal(data, state); err != nil {
		return nil, err
	}
	if state.Directions == nil {
		state.Directions = map[string]model.Direction{}
	}
	return state, nil
}

// SaveState writes the state to a JSON file, creating its directory if needed.
func SaveState(filePath string, state *State) error {
	state.UpdatedAt = time.Now()
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(filePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(filePath, data, 0o644)
}
