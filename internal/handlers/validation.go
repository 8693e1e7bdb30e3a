package handlers

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"lgcms/internal/apperr"
	"lgcms/internal/models"
)

var validatorsOnce sync.Once

func registerValidators() {
	validatorsOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("complaint_status", func(fl validator.FieldLevel) bool {
			_, ok := models.ParseComplaintStatus(fl.Field().String())
			return ok
		})
		_ = v.RegisterValidation("complaint_priority", func(fl validator.FieldLevel) bool {
			_, ok := models.ParsePriority(fl.Field().String())
			return ok
		})
		v.RegisterCustomTypeFunc(func(field reflect.Value) any {
			if n, ok := field.Interface().(nullableString); ok {
				return n.Value
			}
			return nil
		}, nullableString{})
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
	})
}

// bindError turns a binding failure into a validation error naming the first
// offending field.
func bindError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return apperr.Validation(describeField(fe))
	}
	return apperr.Validation("malformed request body")
}

func describeField(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "complaint_status":
		return fmt.Sprintf("%s must be one of %s", field, strings.Join(statusNames(), ", "))
	case "complaint_priority":
		return fmt.Sprintf("%s must be one of Low, Medium, High, Critical", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

func statusNames() []string {
	out := make([]string, 0, len(models.ComplaintStatuses))
	for _, s := range models.ComplaintStatuses {
		out = append(out, string(s))
	}
	return out
}
