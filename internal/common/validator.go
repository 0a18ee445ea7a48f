package common

import (
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
)

// GenericEchoValidator checks bound request structs against their validate
// tags and reports the first failing field as a 400. It is safe for
// concurrent use; a nil Validator is replaced once on first use.
type GenericEchoValidator struct {
	Validator *validator.Validate
	once      sync.Once
}

func NewGenericEchoValidator() *GenericEchoValidator {
	return &GenericEchoValidator{Validator: validator.New()}
}

func (gv *GenericEchoValidator) Validate(i interface{}) error {
	gv.once.Do(func() {
		if gv.Validator == nil {
			gv.Validator = validator.New()
		}
	})
	err := gv.Validator.Struct(i)
	if err == nil {
		return nil
	}

	var fieldErrors validator.ValidationErrors
	if errors.As(err, &fieldErrors) && len(fieldErrors) > 0 {
		return echo.NewHTTPError(http.StatusBadRequest,
			fmt.Sprintf("received invalid request: field %s failed '%s' check", fieldErrors[0].Field(), fieldErrors[0].Tag()))
	}
	return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("received invalid request: %v", err))
}
