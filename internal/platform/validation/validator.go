// Package validation wires go-playground/validator into echo for the
// identity-provider hook payloads and admin requests the gate binds.
package validation

import (
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type hookValidator struct{ v *validator.Validate }

func (h *hookValidator) Validate(i any) error {
	return h.v.Struct(i)
}

// New returns the echo.Validator used by the API server.
func New() echo.Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	return &hookValidator{v: v}
}
