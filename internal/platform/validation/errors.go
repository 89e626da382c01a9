package validation

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrorBody is the payload returned for rejected hook requests: the usual
// error code plus a per-field breakdown of failed validations, keyed by the
// camelCase wire names the provider sends.
type ErrorBody struct {
	Error   string              `json:"error"`
	Message string              `json:"message"`
	Fields  map[string][]string `json:"fields,omitempty"`
}

// ErrorResponse converts a validator error into the hook error payload.
func ErrorResponse(err error) ErrorBody {
	fields := map[string][]string{}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			name := wireName(fe.Field())
			fields[name] = append(fields[name], fe.Tag())
		}
	}
	if len(fields) == 0 {
		return ErrorBody{Error: "VALIDATION_ERROR", Message: err.Error()}
	}
	return ErrorBody{Error: "VALIDATION_ERROR", Message: "Invalid request payload", Fields: fields}
}

// wireName maps a struct field to the provider's camelCase JSON name, e.g.
// UserAttributes -> userAttributes.
func wireName(field string) string {
	if field == "" {
		return field
	}
	return strings.ToLower(field[:1]) + field[1:]
}
