package models

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// SearchRequest is the JSON body of POST /eligible-candidates.
type SearchRequest struct {
	Q        string `json:"q"`
	K        int    `json:"k" validate:"gte=1,lte=100"`
	Skills   string `json:"skills,omitempty" validate:"max=500"`
	Sector   string `json:"sector,omitempty" validate:"max=200"`
	Location string `json:"location,omitempty" validate:"max=200"`
	Offset   *int   `json:"offset,omitempty" validate:"omitempty,gte=0"`
}

// Validate reports the first failing field in a readable form.
func (r *SearchRequest) Validate() error {
	err := validate.Struct(r)
	if err == nil {
		return nil
	}

	if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
		fe := verrs[0]
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "gte":
			return fmt.Errorf("%s must be at least %s", field, fe.Param())
		case "lte", "max":
			return fmt.Errorf("%s must be at most %s", field, fe.Param())
		default:
			return fmt.Errorf("%s is invalid", field)
		}
	}
	return err
}
