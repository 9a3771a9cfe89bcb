package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nasa-jpl/peaktrack/acquire"
	"github.com/nasa-jpl/peaktrack/profile"
	"github.com/nasa-jpl/peaktrack/tracker"
)

func TestDefaultConfigConverts(t *testing.T) {
	c := DefaultConfig()
	cfg, err := c.TrackerConfig()
	require.NoError(t, err)
	assert.Equal(t, tracker.DefaultConfig(), cfg)
}

func TestTrackerConfigRejects(t *testing.T) {
	c := DefaultConfig()
	c.Tracker.Mode = "sideways"
	_, err := c.TrackerConfig()
	assert.True(t, errors.Is(err, tracker.ErrInvalidConfig))

	c = DefaultConfig()
	c.Tracker.Axis = "diagonal"
	_, err = c.TrackerConfig()
	assert.True(t, errors.Is(err, tracker.ErrInvalidConfig))

	c = DefaultConfig()
	c.Tracker.Axis = "rows"
	cfg, err := c.TrackerConfig()
	require.NoError(t, err)
	assert.Equal(t, profile.Rows, cfg.Axis)
}

func TestNewTrackerSpans(t *testing.T) {
	c := DefaultConfig()
	c.Tracker.Mode = "per-span"
	tr, err := NewTracker(c, nil)
	require.NoError(t, err)
	assert.Len(t, tr.Spans(), c.Tracker.MaxPeaks)

	c.Tracker.Spans = []SpanSetup{{Name: "left", Lo: 50, Hi: 100}}
	tr, err = NewTracker(c, nil)
	require.NoError(t, err)
	require.Len(t, tr.Spans(), 1)
	assert.Equal(t, "left", tr.Spans()[0].Name)

	c.Tracker.Spans = []SpanSetup{{Name: "nowhere", Lo: 5000, Hi: 6000}}
	_, err = NewTracker(c, nil)
	assert.Error(t, err)
}

func TestNewCamera(t *testing.T) {
	c := DefaultConfig()
	cam, err := NewCamera(c)
	require.NoError(t, err)
	f, err := cam.GetFrame()
	require.NoError(t, err)
	assert.Equal(t, c.Camera.Width, f.Width)

	c.Camera.Type = "webcam"
	_, err = NewCamera(c)
	assert.Error(t, err)

	c.Camera.Type = "replay"
	c.Camera.Dir = t.TempDir()
	_, err = NewCamera(c)
	assert.Error(t, err)
}

func TestBuildMux(t *testing.T) {
	c := DefaultConfig()
	c.Record.Root = t.TempDir()
	cam, err := NewCamera(c)
	require.NoError(t, err)
	tr, err := NewTracker(c, nil)
	require.NoError(t, err)
	loop := &acquire.Loop{Source: cam, Runner: tr, Rate: c.FrameRate}
	mux := BuildMux(c, tr, loop)

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/endpoints", nil))
	require.Equal(t, http.StatusOK, w.Code)
	graph := map[string][]string{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&graph))
	routes := graph["/peaktrack"]
	assert.Contains(t, routes, "GET /result")
	assert.Contains(t, routes, "POST /acquire")
	assert.Contains(t, routes, "POST /lock")

	w = httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/peaktrack/result", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
