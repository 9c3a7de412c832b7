package gbpsync

import (
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Call-to-action types the provider accepts on a local post.
var ctaTypes = map[string]bool{
	"BOOK":       true,
	"ORDER":      true,
	"SHOP":       true,
	"LEARN_MORE": true,
	"SIGN_UP":    true,
	"CALL":       true,
}

func validCTAType(fl validator.FieldLevel) bool {
	return ctaTypes[strings.ToUpper(fl.Field().String())]
}

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("ctatype", validCTAType)
	}
}
