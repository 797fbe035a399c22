package validator

import (
	"cowork/pkg/logger"
	"cowork/pkg/model"
	"cowork/pkg/validation"

	"github.com/go-playground/validator/v10"
)

type InvoiceValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewInvoiceValidator(log *logger.Logger) *InvoiceValidator {
	return &InvoiceValidator{
		validate: validation.New(),
		logger:   log,
	}
}

func (v *InvoiceValidator) Validate(req *model.InvoiceRequest) error {
	return validation.Struct(v.validate, req)
}
