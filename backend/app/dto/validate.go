package dto

import (
	"errors"
	"reflect"
	"strings"

	"fota-manager/backend/app/apperr"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	if err := validate.RegisterValidation("pathname", validatePathName); err != nil {
		panic(err)
	}
}

// Validate checks struct tags and reports the first failing field as a
// Validation error.
func Validate(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return apperr.Validation("validate", "%s: failed %q", fe.Field(), fe.Tag())
	}
	return apperr.Validation("validate", "%v", err)
}

// validatePathName accepts values usable as a single directory name.
func validatePathName(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if s == "" {
		return true
	}
	if s == "." || s == ".." || strings.HasPrefix(s, ".") {
		return false
	}
	return !strings.ContainsAny(s, "/\\\x00")
}
