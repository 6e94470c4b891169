package registry

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

const DefaultKeyLength = 10

// KeyValidator rejects identifiers the registry can never resolve, before any call is made.
type KeyValidator struct {
	validate *validator.Validate
	rule     string
}

func NewKeyValidator(length int) *KeyValidator {
	if length <= 0 {
		length = DefaultKeyLength
	}
	return &KeyValidator{
		validate: validator.New(validator.WithRequiredStructEnabled()),
		rule:     fmt.Sprintf("required,number,len=%d", length),
	}
}

func (v *KeyValidator) Validate(key string) error {
	if err := v.validate.Var(key, v.rule); err != nil {
		return NewTerminalInputError(key, "malformed identifier", err)
	}
	return nil
}
