package validator

import (
	"cowork/pkg/logger"
	"cowork/pkg/model"
	"cowork/pkg/validation"

	"github.com/go-playground/validator/v10"
)

type ReservationValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewReservationValidator(log *logger.Logger) *ReservationValidator {
	return &ReservationValidator{
		validate: validation.New(),
		logger:   log,
	}
}

// Validate checks field presence and enums. Interval ordering is left to the
// guard so it surfaces as INVALID_INTERVAL rather than a validation error.
func (v *ReservationValidator) Validate(req *model.ReservationRequest) error {
	return validation.Struct(v.validate, req)
}
