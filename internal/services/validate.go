package services

import (
	"errors"
	"fmt"
	"strings"

	"bootcamp-cert-minter/internal/apperr"
	"bootcamp-cert-minter/internal/models"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

type mintInput struct {
	Owner          string `validate:"required,eth_addr"`
	SubjectName    string `validate:"required,max=128"`
	CompletionDate string `validate:"required,max=128"`
}

type renderInput struct {
	SubjectName    string `validate:"required,max=128"`
	CompletionDate string `validate:"required,max=128"`
}

func validateMint(owner string, req models.CertificateRequest) error {
	if err := validateLayout(req.Layout); err != nil {
		return err
	}
	return validationError(validate.Struct(mintInput{
		Owner:          owner,
		SubjectName:    req.SubjectName,
		CompletionDate: req.CompletionDate,
	}))
}

func validateRender(req models.CertificateRequest) error {
	if err := validateLayout(req.Layout); err != nil {
		return err
	}
	return validationError(validate.Struct(renderInput{
		SubjectName:    req.SubjectName,
		CompletionDate: req.CompletionDate,
	}))
}

func validateLayout(layout models.Layout) error {
	if !layout.Valid() {
		return apperr.NewInvalidInputError(fmt.Sprintf("unknown layout %q", layout))
	}
	return nil
}

// ValidateOwner checks that owner is a 0x-prefixed 20-byte hex address.
func ValidateOwner(owner string) error {
	if err := validate.Var(owner, "required,eth_addr"); err != nil {
		return apperr.NewInvalidInputError("owner must be a 0x-prefixed account address")
	}
	return nil
}

func validationError(err error) error {
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return apperr.NewInvalidInputError(err.Error())
	}

	msgs := make([]string, 0, len(validationErrors))
	for _, fieldError := range validationErrors {
		switch fieldError.Tag() {
		case "required":
			msgs = append(msgs, fieldError.Field()+" is required")
		case "eth_addr":
			msgs = append(msgs, fieldError.Field()+" must be a 0x-prefixed account address")
		case "max":
			msgs = append(msgs, fieldError.Field()+" must be at most "+fieldError.Param()+" characters")
		default:
			msgs = append(msgs, fieldError.Field()+" is invalid")
		}
	}
	return apperr.NewInvalidInputError(strings.Join(msgs, "; "))
}
