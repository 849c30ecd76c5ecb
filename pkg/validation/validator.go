package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	// validate is a singleton validator instance
	validate *validator.Validate

	// Validation constants
	MaxGraphIDLength = 64
	MaxPropertyKey   = 100
	MaxFormatLength  = 32
	MaxKeySpecLength = 4096
	MaxDescription   = 500
	MaxBatchSize     = 100000
	MinBatchSize     = 1

	// Regular expressions
	graphIDPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_-]*$`)
	propKeyPattern = regexp.MustCompile(`^[^\x00-\x1f=,]+$`)
)

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("graphid", func(fl validator.FieldLevel) bool {
		return graphIDPattern.MatchString(fl.Field().String())
	})
}

// ImportForm is the form of a file-import request, minus the file itself.
type ImportForm struct {
	GraphID    string `validate:"required,max=64,graphid"`
	Format     string `validate:"required,max=32"`
	SearchKeys string `validate:"omitempty,max=4096"`
}

// GraphRequest is the body of a create-graph request.
type GraphRequest struct {
	ID          string `json:"id" validate:"required,max=64,graphid"`
	Description string `json:"description,omitempty" validate:"omitempty,max=500"`
}

// ValidateImportForm validates the fields of an import request
func ValidateImportForm(form *ImportForm) error {
	if form == nil {
		return errors.New("import form cannot be nil")
	}
	if err := validate.Struct(form); err != nil {
		return formatValidationError(err)
	}
	if strings.TrimSpace(form.Format) == "" {
		return errors.New("Format: field is required")
	}
	return nil
}

// ValidateGraphRequest validates a create-graph request
func ValidateGraphRequest(req *GraphRequest) error {
	if req == nil {
		return errors.New("graph request cannot be nil")
	}
	if err := validate.Struct(req); err != nil {
		return formatValidationError(err)
	}
	return nil
}

// ValidateGraphID validates a graph identifier
func ValidateGraphID(id string) error {
	if id == "" {
		return errors.New("graph id cannot be empty")
	}
	if len(id) > MaxGraphIDLength {
		return fmt.Errorf("graph id '%s' exceeds maximum length of %d characters", id, MaxGraphIDLength)
	}
	if !graphIDPattern.MatchString(id) {
		return fmt.Errorf("graph id '%s' is invalid (must start with a letter or digit, followed by letters, digits, '-' or '_')", id)
	}
	return nil
}

// ValidateBatchSize validates the element count of a batched commit
func ValidateBatchSize(size int) error {
	if size < MinBatchSize {
		return fmt.Errorf("batch size must be at least %d, got %d", MinBatchSize, size)
	}
	if size > MaxBatchSize {
		return fmt.Errorf("batch size must not exceed %d, got %d", MaxBatchSize, size)
	}
	return nil
}

// ValidatePropertyKey validates a property key name
func ValidatePropertyKey(key string) error {
	if key == "" {
		return errors.New("property key cannot be empty")
	}
	if len(key) > MaxPropertyKey {
		return fmt.Errorf("property key '%s' exceeds maximum length of %d characters", key, MaxPropertyKey)
	}
	if !propKeyPattern.MatchString(key) {
		return fmt.Errorf("property key '%s' is invalid (control characters, '=' and ',' are not allowed)", key)
	}
	return nil
}

// formatValidationError converts validator errors to a more user-friendly format
func formatValidationError(err error) error {
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	// Return the first validation error in a user-friendly format
	for _, e := range validationErrs {
		field := e.Field()
		param := e.Param()

		switch e.Tag() {
		case "required":
			return fmt.Errorf("%s: field is required", field)
		case "min":
			return fmt.Errorf("%s: must be at least %s", field, param)
		case "max":
			return fmt.Errorf("%s: must not exceed %s", field, param)
		case "graphid":
			return fmt.Errorf("%s: must start with a letter or digit, followed by letters, digits, '-' or '_'", field)
		default:
			return fmt.Errorf("%s: validation failed (%s)", field, e.Tag())
		}
	}

	return err
}
