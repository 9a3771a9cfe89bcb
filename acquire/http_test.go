package acquire

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nasa-jpl/peaktrack/generichttp"
)

type table struct{ rt generichttp.RouteTable }

func (t table) RT() generichttp.RouteTable { return t.rt }

func TestHTTPStartStop(t *testing.T) {
	l := &Loop{Source: &flakySource{}, Runner: &scriptedRunner{}, Rate: 1000}
	defer l.Stop()
	tbl := table{rt: generichttp.RouteTable{}}
	NewHTTPWrapper(l).Inject(tbl)
	mux := chi.NewRouter()
	tbl.RT().Bind(mux)

	do := func(method, path, body string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, httptest.NewRequest(method, path, strings.NewReader(body)))
		return w
	}

	require.Equal(t, http.StatusOK, do(http.MethodPost, "/acquire", `{"bool": true}`).Code)
	assert.True(t, l.Running())
	// starting twice is not an error over HTTP
	assert.Equal(t, http.StatusOK, do(http.MethodPost, "/acquire", `{"bool": true}`).Code)
	assert.JSONEq(t, `{"bool": true}`, do(http.MethodGet, "/acquire", "").Body.String())

	require.Equal(t, http.StatusOK, do(http.MethodPost, "/acquire", `{"bool": false}`).Code)
	assert.False(t, l.Running())

	var s Stats
	w := do(http.MethodGet, "/acquire/stats", "")
	require.NoError(t, json.NewDecoder(w.Body).Decode(&s))
	assert.Equal(t, l.Stats(), s)
}
