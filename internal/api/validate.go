package api

import (
	"sync"

	"github.com/go-playground/validator/v10"
)

// bodyValidator is a single package-level validator.Validate instance —
// the library's own docs call this out as safe for concurrent use and
// expensive to construct repeatedly (it reflects over every struct tag it
// validates), so every request handler shares one.
var (
	bodyValidatorOnce sync.Once
	bodyValidatorInst *validator.Validate
)

func bodyValidator() *validator.Validate {
	bodyValidatorOnce.Do(func() { bodyValidatorInst = validator.New() })
	return bodyValidatorInst
}

// validateBody runs struct-tag validation on a decoded request body,
// surfacing the first failing field in the error message.
func validateBody(v any) error {
	if err := bodyValidator().Struct(v); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			fe := verrs[0]
			return badRequest(fe.Field() + " failed validation: " + fe.Tag())
		}
		return badRequest("request body failed validation")
	}
	return nil
}
