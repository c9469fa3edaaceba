package helpers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// maxRequestBodyBytes caps JSON request bodies.
const maxRequestBodyBytes = 64 << 10

// Validator is implemented by request DTOs that check required fields.
// Validate returns one message per problem; nil or empty means valid.
type Validator interface {
	Validate() []string
}

// DecodeAndValidate decodes exactly one JSON object from the request body into dest,
// rejecting unknown fields, then runs Validate when dest implements Validator.
// On failure it writes a 400 and returns false; callers return immediately.
func DecodeAndValidate(w http.ResponseWriter, r *http.Request, dest any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dest); err != nil {
		WriteJSONError(w, http.StatusBadRequest, ErrCodeBadRequest, decodeMessage(err))
		return false
	}
	if dec.More() {
		WriteJSONError(w, http.StatusBadRequest, ErrCodeBadRequest, "request body must contain a single JSON object")
		return false
	}
	if v, ok := dest.(Validator); ok {
		if errs := v.Validate(); len(errs) > 0 {
			WriteJSONError(w, http.StatusBadRequest, ErrCodeBadRequest, strings.Join(errs, "; "))
			return false
		}
	}
	return true
}

func decodeMessage(err error) string {
	var (
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
		maxErr    *http.MaxBytesError
	)
	switch {
	case errors.Is(err, io.EOF):
		return "request body is required"
	case errors.Is(err, io.ErrUnexpectedEOF):
		return "malformed JSON"
	case errors.As(err, &syntaxErr):
		return fmt.Sprintf("malformed JSON at offset %d", syntaxErr.Offset)
	case errors.As(err, &typeErr):
		return fmt.Sprintf("%s must be a %s", typeErr.Field, typeErr.Type)
	case errors.As(err, &maxErr):
		return "request body too large"
	default:
		// json reports unknown fields as `json: unknown field "x"`.
		return strings.TrimPrefix(err.Error(), "json: ")
	}
}
