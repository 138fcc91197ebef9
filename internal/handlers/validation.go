package handlers

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/apperr"
	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/models"
	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/service"
)

var registerOnce sync.Once

// RegisterValidators installs the custom binding rules on gin's validator.
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
		_ = v.RegisterValidation("devicepower", func(fl validator.FieldLevel) bool {
			return service.ValidDevicePower(fl.Field().String())
		})
		_ = v.RegisterValidation("deviceicon", func(fl validator.FieldLevel) bool {
			return service.ValidDeviceIcon(fl.Field().String())
		})
		_ = v.RegisterValidation("devicestatus", func(fl validator.FieldLevel) bool {
			_, ok := models.ParseDeviceStatus(fl.Field().String())
			return ok
		})
		_ = v.RegisterValidation("sensortype", func(fl validator.FieldLevel) bool {
			return models.SensorType(strings.ToLower(fl.Field().String())).Valid()
		})
	})
}

// bindError converts gin binding failures into a ValidationFailed error with per-field details.
func bindError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		details := make([]apperr.FieldError, 0, len(verrs))
		for _, fe := range verrs {
			details = append(details, apperr.FieldError{Field: fe.Field(), Message: describe(fe)})
		}
		return apperr.Validation("Validation failed", details...)
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return apperr.Validation("Validation failed",
			apperr.FieldError{Field: typeErr.Field, Message: "must be a " + typeErr.Type.String()})
	}
	return apperr.Validation("Request body must be valid JSON")
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "oneof":
		return "must be one of " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "devicepower":
		return "must look like 60W"
	case "deviceicon":
		return "must look like fas fa-lightbulb"
	case "devicestatus":
		return "must be ON or OFF"
	case "sensortype":
		return "must be one of current, voltage, temperature, humidity, light, power, energy"
	}
	return "is invalid"
}
