package generichttp

import (
	"encoding/json"
	"go/types"
	"net/http"
)

// FloatT is a struct with a single float64 field, F64, exposed to JSON as "f64"
type FloatT struct {
	F64 float64 `json:"f64"`
}

// IntT is a struct with a single int field, Int, exposed to JSON as "int"
type IntT struct {
	Int int `json:"int"`
}

// BoolT is a struct with a single bool field, Bool, exposed to JSON as "bool"
type BoolT struct {
	Bool bool `json:"bool"`
}

// StrT is a struct with a single string field, Str, exposed to JSON as "str"
type StrT struct {
	Str string `json:"str"`
}

// HumanPayload is a struct that can carry one of a few primitive types and
// encode itself as the matching single-field JSON object.  T selects which
type HumanPayload struct {
	T      types.BasicKind
	Float  float64
	Int    int
	Bool   bool
	String string
}

// EncodeAndRespond writes the payload to w as JSON
func (hp HumanPayload) EncodeAndRespond(w http.ResponseWriter, r *http.Request) {
	var v interface{}
	switch hp.T {
	case types.Float64, types.Float32:
		v = FloatT{F64: hp.Float}
	case types.Int:
		v = IntT{Int: hp.Int}
	case types.Bool:
		v = BoolT{Bool: hp.Bool}
	case types.String:
		v = StrT{Str: hp.String}
	default:
		http.Error(w, "unsupported payload type", http.StatusInternalServerError)
		return
	}
	RespondJSON(w, v)
}

// RespondJSON encodes v as the body of a 200 response
func RespondJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
