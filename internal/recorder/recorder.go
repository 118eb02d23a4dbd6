package recorder

import (
	"time"

	"GTAASentinel/internal/model"
)

// Recorder persists evaluations and indicator history for analysis.
type Recorder interface {
	RecordEvaluation(eval *model.Evaluation, targets []model.TargetWeight) error
	RecordSnapshots(day time.Time, snaps []model.TrackerSnapshot) error
	// LatestEvaluation returns the newest recorded evaluation, or nil if there is none.
	LatestEvaluation() (*model.Evaluation, []model.TargetWeight, error)
	Close() error
}
