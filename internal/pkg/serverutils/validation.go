package serverutils

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var validate = validator.New()

// ValidateRequest checks struct `validate` tags and maps the first violation
// to a 422, matching the original API's validation responses.
func ValidateRequest(req interface{}) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var vErrs validator.ValidationErrors
	if errors.As(err, &vErrs) && len(vErrs) > 0 {
		first := vErrs[0]
		return NewApiError(
			fiber.StatusUnprocessableEntity,
			fmt.Sprintf("field %s failed on the '%s' rule", first.Field(), first.Tag()),
		)
	}
	return NewApiError(fiber.StatusUnprocessableEntity, err.Error())
}
