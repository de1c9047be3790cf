package relay

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

type saveMemoryRequest struct {
	Content  string `validate:"required"`
	Category string
	Source   string
}

type authSuccessRequest struct {
	Code     string `validate:"required"`
	State    string `validate:"required"`
	Provider string `validate:"omitempty,oneof=github google"`
}

// validateStruct turns validator errors into ErrInvalidMessage with the first
// failing field named.
func validateStruct(v *validator.Validate, s any) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return fmt.Errorf("%w: %s failed on '%s' validation", ErrInvalidMessage, fe.Field(), fe.Tag())
	}
	return fmt.Errorf("%w: %v", ErrInvalidMessage, err)
}
