// Package generichttp contains the HTTP plumbing shared by the tracker's
// wrappers: route tables, primitive JSON payloads, and handler generators
// for getters and setters
package generichttp

import (
	"encoding/json"
	"go/types"
	"net/http"
)

// Primitive is the set of types a HumanPayload can carry
type Primitive interface {
	float64 | int | bool | string
}

// payloadOf boxes v in a HumanPayload of the matching kind
func payloadOf[T Primitive](v T) HumanPayload {
	switch x := any(v).(type) {
	case float64:
		return HumanPayload{T: types.Float64, Float: x}
	case int:
		return HumanPayload{T: types.Int, Int: x}
	case bool:
		return HumanPayload{T: types.Bool, Bool: x}
	case string:
		return HumanPayload{T: types.String, String: x}
	}
	return HumanPayload{T: types.Invalid}
}

// decode reads the single-field JSON object for T from the request body
func decode[T Primitive](r *http.Request) (T, error) {
	var zero T
	defer r.Body.Close()
	switch any(zero).(type) {
	case float64:
		v := FloatT{}
		err := json.NewDecoder(r.Body).Decode(&v)
		return any(v.F64).(T), err
	case int:
		v := IntT{}
		err := json.NewDecoder(r.Body).Decode(&v)
		return any(v.Int).(T), err
	case bool:
		v := BoolT{}
		err := json.NewDecoder(r.Body).Decode(&v)
		return any(v.Bool).(T), err
	default:
		v := StrT{}
		err := json.NewDecoder(r.Body).Decode(&v)
		return any(v.Str).(T), err
	}
}

// Get calls a getter and responds with its value as a HumanPayload
func Get[T Primitive](fcn func() (T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, err := fcn()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		payloadOf(v).EncodeAndRespond(w, r)
	}
}

// Set parses a HumanPayload from the request body and calls fcn with it.
// An error from fcn means the value was refused and produces a 400
func Set[T Primitive](fcn func(T) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, err := decode[T](r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		err = fcn(v)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

// GetFloat returns the response as json {'f64': value}
func GetFloat(fcn func() (float64, error)) http.HandlerFunc { return Get(fcn) }

// SetFloat parses a JSON input of {'f64': value}
func SetFloat(fcn func(float64) error) http.HandlerFunc { return Set(fcn) }

// GetInt returns the response as json {'int': value}
func GetInt(fcn func() (int, error)) http.HandlerFunc { return Get(fcn) }

// SetInt parses a JSON input of {'int': value}
func SetInt(fcn func(int) error) http.HandlerFunc { return Set(fcn) }

// GetString returns the response as json {'str': value}
func GetString(fcn func() (string, error)) http.HandlerFunc { return Get(fcn) }

// SetString parses a JSON input of {'str': value}
func SetString(fcn func(string) error) http.HandlerFunc { return Set(fcn) }

// GetBool returns the response as json {'bool': value}
func GetBool(fcn func() (bool, error)) http.HandlerFunc { return Get(fcn) }

// SetBool parses a JSON input of {'bool': value}
func SetBool(fcn func(bool) error) http.HandlerFunc { return Set(fcn) }
