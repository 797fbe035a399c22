package validator

import (
	"cowork/pkg/logger"
	"cowork/pkg/model"
	"cowork/pkg/validation"

	"github.com/go-playground/validator/v10"
)

type ResourceValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewResourceValidator(log *logger.Logger) *ResourceValidator {
	return &ResourceValidator{
		validate: validation.New(),
		logger:   log,
	}
}

func (v *ResourceValidator) Validate(resource *model.Resource) error {
	return validation.Struct(v.validate, resource)
}

func (v *ResourceValidator) ValidateStatus(update *model.ResourceStatusUpdate) error {
	return validation.Struct(v.validate, update)
}
