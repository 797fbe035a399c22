package validator

import (
	"cowork/pkg/logger"
	"cowork/pkg/model"
	"cowork/pkg/validation"

	"github.com/go-playground/validator/v10"
)

type MemberValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewMemberValidator(log *logger.Logger) *MemberValidator {
	return &MemberValidator{
		validate: validation.New(),
		logger:   log,
	}
}

func (v *MemberValidator) Validate(member *model.Member) error {
	return validation.Struct(v.validate, member)
}

func (v *MemberValidator) ValidateCard(card *model.AccessCard) error {
	return validation.Struct(v.validate, card)
}

func (v *MemberValidator) ValidateStatus(update *model.MemberStatusUpdate) error {
	return validation.Struct(v.validate, update)
}

func (v *MemberValidator) ValidateAccessLog(entry *model.AccessLog) error {
	return validation.Struct(v.validate, entry)
}
