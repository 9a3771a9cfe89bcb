package tracker

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nasa-jpl/peaktrack/camera"
	"github.com/nasa-jpl/peaktrack/history"
	"github.com/nasa-jpl/peaktrack/imgrec"
	"github.com/nasa-jpl/peaktrack/span"
)

type client struct {
	t   *testing.T
	mux *chi.Mux
}

func newClient(t *testing.T, tr *Tracker, rec *imgrec.Recorder, logFile string) client {
	mux := chi.NewRouter()
	NewHTTPWrapper(tr, rec, logFile).RT().Bind(mux)
	return client{t: t, mux: mux}
}

func (c client) do(method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	c.mux.ServeHTTP(w, httptest.NewRequest(method, path, strings.NewReader(body)))
	return w
}

func TestHTTPSpansLifecycle(t *testing.T) {
	tr := newTracker(t, testConfig())
	c := newClient(t, tr, nil, "")

	w := c.do(http.MethodPost, "/spans", `{"name": "a", "lo": 40, "hi": 81}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	s := span.Span{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &s))
	assert.Equal(t, "a", s.Name)

	w = c.do(http.MethodPost, "/spans", `{"name": "a", "lo": 0, "hi": 5}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = c.do(http.MethodPost, "/spans", `{"name": "b", "lo": 3000, "hi": 4000}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	id := s.ID.String()
	w = c.do(http.MethodPost, "/spans/"+id+"/region", `{"lo": 50, "hi": 90}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 50., tr.Spans()[0].Lo)

	_, err := tr.RunOnce(frameOf(256, left))
	require.NoError(t, err)
	w = c.do(http.MethodGet, "/spans/"+id+"/history", "")
	assert.Equal(t, http.StatusOK, w.Code)
	var series []float64
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &series))
	assert.Len(t, series, 1)

	w = c.do(http.MethodDelete, "/spans/"+id, "")
	assert.Equal(t, http.StatusOK, w.Code)
	w = c.do(http.MethodDelete, "/spans/"+id, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = c.do(http.MethodGet, "/spans/"+id+"/history", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHTTPSettings(t *testing.T) {
	tr := newTracker(t, testConfig())
	c := newClient(t, tr, nil, "")

	w := c.do(http.MethodPost, "/threshold", `{"f64": 0.4}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0.4, tr.Config().Threshold)

	w = c.do(http.MethodPost, "/max-peaks", `{"int": 0}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = c.do(http.MethodPost, "/mode", `{"str": "peak-by-peak"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	w = c.do(http.MethodGet, "/mode", "")
	assert.JSONEq(t, `{"str": "per-span"}`, w.Body.String())
	assert.Len(t, tr.Spans(), 2)

	w = c.do(http.MethodPost, "/config", `{"SampleWindow": 2, "Mode": "joint"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 8, tr.Capacity())
	assert.Equal(t, 0.4, tr.Config().Threshold)
	assert.Empty(t, tr.Spans())

	w = c.do(http.MethodGet, "/config", "")
	cfg := Config{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cfg))
	assert.Equal(t, tr.Config(), cfg)

	w = c.do(http.MethodPost, "/config", `{"Reducer": "median"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = c.do(http.MethodPost, "/config", `{"SampleWindow": 1e16}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 8, tr.Capacity())

	w = c.do(http.MethodPost, "/spans/peak-by-peak", `{"int": 3}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = c.do(http.MethodPost, "/spans/peak-by-peak", `{"int": 1000000000}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Len(t, tr.Spans(), 3)
}

func TestHTTPResultAndExports(t *testing.T) {
	tr := newTracker(t, testConfig())
	c := newClient(t, tr, nil, "")
	a, err := tr.AddSpan("a", 40, 81)
	require.NoError(t, err)
	b, err := tr.AddSpan("b", 130, 171)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err = tr.RunOnce(frameOf(256, left, right))
		require.NoError(t, err)
	}

	w := c.do(http.MethodGet, "/result", "")
	res := Result{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, uint64(3), res.Tick)
	assert.Len(t, res.Peaks, 2)

	w = c.do(http.MethodGet, "/relative-heights", "")
	var m [][]*float64
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &m))
	require.Len(t, m, 2)
	assert.Equal(t, 1., *m[0][0])

	w = c.do(http.MethodGet, "/history.txt?aggregate=true", "")
	rows, err := history.ReadText(w.Body)
	require.NoError(t, err)
	assert.Len(t, rows, 3)

	w = c.do(http.MethodGet, "/lissajous?x="+a.String()+"&y="+b.String(), "")
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	summary := map[string]interface{}{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))
	assert.Equal(t, 3., summary["n"])

	w = c.do(http.MethodGet, "/lissajous.png?x="+a.String()+"&y="+b.String(), "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))

	w = c.do(http.MethodGet, "/lissajous?x=99&y="+b.String(), "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHTTPRecord(t *testing.T) {
	tr := newTracker(t, testConfig())
	dir := t.TempDir()
	rec := &imgrec.Recorder{Root: dir, Prefix: "snap_", Ext: ".tif"}
	logFile := filepath.Join(dir, "amplitudes.txt")
	c := newClient(t, tr, rec, logFile)

	w := c.do(http.MethodPost, "/record", "")
	assert.Equal(t, http.StatusConflict, w.Code)

	_, err := tr.RunOnce(frameOf(256, left))
	require.NoError(t, err)
	w = c.do(http.MethodPost, "/record", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	out := struct {
		Str string `json:"str"`
	}{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	f, err := camera.LoadFrame(out.Str)
	require.NoError(t, err)
	assert.Equal(t, 256, f.Width)

	log, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(log), "\n "))

	w = c.do(http.MethodGet, "/autowrite/prefix", "")
	assert.JSONEq(t, `{"str": "snap_"}`, w.Body.String())
}
