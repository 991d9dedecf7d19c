package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	val "github.com/go-playground/validator/v10"

	"github.com/m04kA/SMC-AppointmentService/pkg/types"
)

// ErrValidation возвращается, когда структура не прошла валидацию
var ErrValidation = errors.New("validation failed")

var validate *val.Validate

var messages = map[string]string{
	"required":   "{field} is required",
	"gt":         "{field} must be greater than {param}",
	"gte":        "{field} must be greater than or equal to {param}",
	"lte":        "{field} must be less than or equal to {param}",
	"oneof":      "{field} must be one of {param}",
	"max":        "{field} must be at most {param} characters",
	"min":        "{field} must be at least {param} characters",
	"email":      "{field} must be a valid email address",
	"timestring": "{field} must be a time in HH:MM format",
}

func init() {
	validate = val.New(val.WithRequiredStructEnabled())

	// В сообщениях используем имена полей из json-тегов
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	if err := validate.RegisterValidation("timestring", func(fl val.FieldLevel) bool {
		s, ok := fl.Field().Interface().(string)
		if !ok {
			return false
		}
		_, err := types.NewTimeStringFromString(s)
		return err == nil
	}); err != nil {
		panic(err)
	}
}

// ValidateStruct проверяет структуру по тегам validate
// Возвращает ErrValidation с сообщением о первом невалидном поле
func ValidateStruct(data any) error {
	if err := validate.Struct(data); err != nil {
		return fmt.Errorf("%w: %s", ErrValidation, message(err))
	}
	return nil
}

// ValidateVar проверяет отдельное значение по тегу
func ValidateVar(field any, tag string) error {
	if err := validate.Var(field, tag); err != nil {
		return fmt.Errorf("%w: %s", ErrValidation, message(err))
	}
	return nil
}

func message(err error) string {
	var valErrors val.ValidationErrors

	if errors.As(err, &valErrors) {
		for _, valErr := range valErrors {
			msg := messages[valErr.Tag()]
			if msg != "" {
				msg = strings.ReplaceAll(msg, "{field}", valErr.Field())
				msg = strings.ReplaceAll(msg, "{param}", valErr.Param())
				return msg
			}
		}

		return valErrors.Error()
	}

	return err.Error()
}
