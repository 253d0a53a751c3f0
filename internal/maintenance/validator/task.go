package validator

import (
	"errors"
	"fmt"
	"strings"

	"depot/pkg/logger"
	"depot/pkg/model"

	"github.com/go-playground/validator/v10"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var messages []string
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

type TaskValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewTaskValidator(log *logger.Logger) *TaskValidator {
	return &TaskValidator{
		validate: validator.New(),
		logger:   log,
	}
}

func (v *TaskValidator) Validate(task *model.MaintenanceTask) error {
	if err := v.validate.Struct(task); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return translate(validationErrs)
		}
		return err
	}

	if task.CompletedDate != nil && task.Status != model.MaintenanceCompleted {
		return ValidationErrors{
			ValidationError{
				Field:   "CompletedDate",
				Message: "completed_date is only valid on completed tasks",
			},
		}
	}

	return nil
}

func translate(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", err.Field())
		case "max":
			message = fmt.Sprintf("%s must be at most %s", err.Field(), err.Param())
		case "mongodb":
			message = fmt.Sprintf("%s must be a valid MongoDB ObjectID", err.Field())
		case "oneof":
			message = fmt.Sprintf("%s must be one of: %s", err.Field(), err.Param())
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Field(),
			Message: message,
		})
	}

	return validationErrors
}
