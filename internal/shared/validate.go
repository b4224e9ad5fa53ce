package shared

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// ValidationError converts a validator result into the shared validation
// kind, naming the first offending field.
func ValidationError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return fmt.Errorf("field %s: %w", verrs[0].Field(), ErrValidation)
	}
	return fmt.Errorf("%v: %w", err, ErrValidation)
}
