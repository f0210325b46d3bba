package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var initOnce sync.Once

// Init configures the global validator used by Gin's binding.
// - Uses JSON tag names in errors.
// - Registers alias tags for common validations.
func Init() {
	initOnce.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			Register(v)
		}
	})
}

// Register applies tag naming and aliases to v.
func Register(v *validator.Validate) {
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		}
		return name
	})
	v.RegisterAlias("pwd", "min=8,max=72") // bcrypt ignores bytes past 72
	v.RegisterAlias("otp", "len=6,numeric")
	v.RegisterAlias("taskstatus", "oneof=pending in_progress completed")
	v.RegisterAlias("taskpriority", "oneof=low medium high")
	v.RegisterAlias("role", "oneof=user admin")
}

// ToDetails converts validation/binding errors into a map[field]message suitable for API error.details.
func ToDetails(err error) map[string]string {
	if err == nil {
		return nil
	}

	// Invalid JSON payloads
	var se *json.SyntaxError
	var ute *json.UnmarshalTypeError
	if errors.As(err, &se) || errors.As(err, &ute) {
		return map[string]string{"payload": "invalid json"}
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		out := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			out[fe.Field()] = formatFieldError(fe)
		}
		return out
	}

	return map[string]string{"payload": "invalid payload"}
}

func formatFieldError(fe validator.FieldError) string {
	param := fe.Param()

	switch fe.Tag() {
	case "pwd":
		return "must be between 8 and 72 characters"
	case "otp":
		return "must be a 6-digit code"
	case "taskstatus":
		return "must be one of: pending, in_progress, completed"
	case "taskpriority":
		return "must be one of: low, medium, high"
	case "role":
		return "must be one of: user, admin"
	}

	switch fe.ActualTag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "uuid", "uuid4":
		return "must be a valid UUID"
	case "numeric":
		return "must be numeric"
	case "len":
		if isStringKind(fe.Kind()) {
			return fmt.Sprintf("must be exactly %s characters", param)
		}
		return fmt.Sprintf("must contain exactly %s items", param)
	case "min":
		if isStringKind(fe.Kind()) {
			return fmt.Sprintf("must be at least %s characters", param)
		}
		return fmt.Sprintf("must be at least %s", param)
	case "max":
		if isStringKind(fe.Kind()) {
			return fmt.Sprintf("must be at most %s characters", param)
		}
		return fmt.Sprintf("must be at most %s", param)
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", param)
	case "lte":
		return fmt.Sprintf("must be less than or equal to %s", param)
	case "oneof":
		return "must be one of: " + strings.Join(strings.Fields(param), ", ")
	case "url":
		return "must be a valid URL"
	default:
		if param != "" {
			return fmt.Sprintf("failed on %s=%s", fe.ActualTag(), param)
		}
		return "failed on " + fe.ActualTag()
	}
}

func isStringKind(k reflect.Kind) bool {
	return k == reflect.String
}
