package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"GTAASentinel/internal/model"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	eval    *model.Evaluation
	targets []model.TargetWeight
	snaps   []model.TrackerSnapshot
}

func (f *fakeSource) Latest() (*model.Evaluation, []model.TargetWeight) { return f.eval, f.targets }
func (f *fakeSource) Snapshots() []model.TrackerSnapshot { return f.snaps }

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s := New(":0", &fakeSource{}, zerolog.Nop())
	rec := get(t, s, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestTrackers(t *testing.T) {
	src := &fakeSource{snaps: []model.TrackerSnapshot{
		{Symbol: "GLD", Samples: 253, Ready: true, SMA: 180, LastClose: 190},
		{Symbol: "VNQ", Samples: 40},
	}}
	s := New(":0", src, zerolog.Nop())

	rec := get(t, s, "/api/trackers")
	require.Equal(t, http.StatusOK, rec.Code)
	var snaps []model.TrackerSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snaps))
	assert.Len(t, snaps, 2)

	rec = get(t, s, "/api/trackers/gld")
	require.Equal(t, http.StatusOK, rec.Code)
	var snap model.TrackerSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, "GLD", snap.Symbol)
	assert.True(t, snap.Ready)

	rec = get(t, s, "/api/trackers/XYZ")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAllocation(t *testing.T) {
	src := &fakeSource{}
	s := New(":0", src, zerolog.Nop())

	rec := get(t, s, "/api/allocation")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	src.eval = &model.Evaluation{
		ID:   "e1",
		Time: time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC),
		Mode: "trend",
		Insights: []model.Insight{
			{Symbol: "GLD", Direction: model.DirectionUp, Weight: 0.6},
			{Symbol: "VNQ", Direction: model.DirectionFlat},
			{Symbol: "IEF", Direction: model.DirectionUp, Weight: 0.4},
		},
	}
	src.targets = []model.TargetWeight{{Symbol: "GLD", Weight: 0.588}, {Symbol: "IEF", Weight: 0.392}}

	rec = get(t, s, "/api/allocation")
	require.Equal(t, http.StatusOK, rec.Code)
	var body allocationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "e1", body.Evaluation.ID)
	assert.Len(t, body.Evaluation.Insights, 3)
	assert.Len(t, body.Targets, 2)
	assert.InDelta(t, 1.0, body.Invested, 1e-9)
}
