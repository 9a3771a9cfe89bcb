package generichttp

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type knob struct {
	v float64
}

func (k *knob) RT() RouteTable {
	return RouteTable{
		{Method: http.MethodGet, Path: "/v"}: GetFloat(func() (float64, error) { return k.v, nil }),
		{Method: http.MethodPost, Path: "/v"}: SetFloat(func(f float64) error {
			if f < 0 {
				return errors.New("negative")
			}
			k.v = f
			return nil
		}),
	}
}

func serve(h HTTPer) *chi.Mux {
	r := chi.NewRouter()
	h.RT().Bind(r)
	return r
}

func TestGetSetFloat(t *testing.T) {
	k := &knob{v: 1.5}
	mux := serve(k)

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"f64": 1.5}`, w.Body.String())

	w = httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/v", strings.NewReader(`{"f64": 3}`)))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 3., k.v)

	w = httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/v", strings.NewReader(`{"f64": -1}`)))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 3., k.v)

	w = httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/v", strings.NewReader(`not json`)))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPayloadKinds(t *testing.T) {
	tests := []struct {
		name string
		h    http.HandlerFunc
		want string
	}{
		{"int", GetInt(func() (int, error) { return 4, nil }), `{"int": 4}`},
		{"bool", GetBool(func() (bool, error) { return true, nil }), `{"bool": true}`},
		{"str", GetString(func() (string, error) { return "joint", nil }), `{"str": "joint"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.h(w, httptest.NewRequest(http.MethodGet, "/", nil))
			assert.JSONEq(t, tt.want, w.Body.String())
		})
	}
}

func TestEndpointsSorted(t *testing.T) {
	k := &knob{}
	assert.Equal(t, []string{"GET /v", "POST /v"}, k.RT().Endpoints())
}

func TestSubMuxSanitize(t *testing.T) {
	assert.Equal(t, "/omc/peaks", SubMuxSanitize("omc/peaks/*"))
	assert.Equal(t, "/", SubMuxSanitize(""))
}
