package validator

import (
	"cowork/pkg/logger"
	"cowork/pkg/model"
	"cowork/pkg/validation"

	"github.com/go-playground/validator/v10"
)

type AmenityValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewAmenityValidator(log *logger.Logger) *AmenityValidator {
	return &AmenityValidator{
		validate: validation.New(),
		logger:   log,
	}
}

func (v *AmenityValidator) ValidateItem(item *model.StockedItem) error {
	return validation.Struct(v.validate, item)
}

func (v *AmenityValidator) ValidatePurchase(req *model.PurchaseRequest) error {
	return validation.Struct(v.validate, req)
}
