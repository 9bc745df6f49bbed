package orchestrators

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"marathon/internal/domain/access"
	"marathon/internal/domain/plan"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("planweek", func(fl validator.FieldLevel) bool {
		return plan.ValidWeek(int(fl.Field().Int()))
	})
	_ = v.RegisterValidation("planday", func(fl validator.FieldLevel) bool {
		return plan.Day(fl.Field().String()).Valid()
	})
	return v
}

var tagReasons = map[string]string{
	"required": "is required",
	"planweek": "must be a week of the plan",
	"planday":  "must be one of Mon, Tue, Wed, Thu, Fri, Sat, Sun",
	"max":      "is too long",
	"datetime": "must be an RFC 3339 timestamp",
}

// validateInput runs struct tag validation and reports the first failure as *access.ValidationError.
func validateInput(input any) error {
	err := validate.Struct(input)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err
	}
	fe := fieldErrs[0]
	reason, ok := tagReasons[fe.Tag()]
	if !ok {
		reason = "failed " + fe.Tag()
	}
	return access.NewValidationError(fe.Field(), reason)
}
