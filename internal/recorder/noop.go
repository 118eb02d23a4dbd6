package recorder

import (
	"time"

	"GTAASentinel/internal/model"
)

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordEvaluation(_ *model.Evaluation, _ []model.TargetWeight) error {
	return nil
}
func (n *NoopRecorder) RecordSnapshots(_ time.Time, _ []model.TrackerSnapshot) error { return nil }
func (n *NoopRecorder) LatestEvaluation() (*model.Evaluation, []model.TargetWeight, error) {
	return nil, nil, nil
}
func (n *NoopRecorder) Close() error { return nil }
