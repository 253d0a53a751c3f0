package validator

import (
	"errors"

	"depot/pkg/logger"
	"depot/pkg/model"

	"github.com/go-playground/validator/v10"
)

type EventValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewEventValidator(log *logger.Logger) *EventValidator {
	return &EventValidator{
		validate: validator.New(),
		logger:   log,
	}
}

func (v *EventValidator) Validate(event *model.Event) error {
	if err := v.validate.Struct(event); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return translateValidationErrors(validationErrs)
		}
		return err
	}

	if event.EndTime != nil && event.EndTime.Before(event.StartTime) {
		return ValidationErrors{
			ValidationError{
				Field:   "EndTime",
				Message: "end_time must not be before start_time",
			},
		}
	}

	return nil
}
