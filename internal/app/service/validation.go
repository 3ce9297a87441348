package service

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"cloudcoder/internal/common"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

func validateRequest(req any) error {
	if err := validate.Struct(req); err != nil {
		return fmt.Errorf("%w: %v", common.ErrValidation, err)
	}
	return nil
}
