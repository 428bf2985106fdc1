package validation

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"
)

var (
	// validate is a singleton validator instance
	validate *validator.Validate

	// Validation constants
	MaxNodeNameLength = 256
	MaxDescription    = 4096
	MaxObservable     = 2048
	MaxBatchSize      = 1000
	MinBatchSize      = 1

	// Node names may carry spaces and common punctuation but no control
	// characters
	nodeNamePattern = regexp.MustCompile(`^[^\x00-\x1f\x7f]+$`)
)

func init() {
	validate = validator.New()
}

// NoteRequest is a request to attach an analyst note to the graph
type NoteRequest struct {
	Name        string   `json:"name" validate:"required,min=1,max=256"`
	Description string   `json:"description" validate:"omitempty,max=4096"`
	AttachedTo  []string `json:"attached_to" validate:"omitempty,max=50,dive,min=1,max=256"`
}

// LinkRequest is a request to add or remove a link between two nodes
type LinkRequest struct {
	Source string `json:"source" validate:"required,min=1,max=256"`
	Target string `json:"target" validate:"required,min=1,max=256"`
}

// LookupRequest is a single threat-intel lookup request
type LookupRequest struct {
	Observable string `json:"observable" validate:"required,min=1,max=2048"`
	IocType    string `json:"ioc_type" validate:"omitempty,max=50"`
	QueryType  string `json:"query_type" validate:"omitempty,max=50"`
	Provider   string `json:"provider" validate:"omitempty,max=100"`
}

// BulkLookupRequest is a bulk threat-intel lookup request
type BulkLookupRequest struct {
	Observables []string `json:"observables" validate:"required,min=1,max=1000,dive,min=1,max=2048"`
	QueryType   string   `json:"query_type" validate:"omitempty,max=50"`
	Provider    string   `json:"provider" validate:"omitempty,max=100"`
}

// ValidateNoteRequest validates a note attachment request
func ValidateNoteRequest(req *NoteRequest) error {
	if req == nil {
		return errors.New("note request cannot be nil")
	}
	if err := validate.Struct(req); err != nil {
		return formatValidationError(err)
	}
	if err := ValidateNodeName(req.Name); err != nil {
		return fmt.Errorf("Name: %w", err)
	}
	for _, target := range req.AttachedTo {
		if err := ValidateNodeName(target); err != nil {
			return fmt.Errorf("AttachedTo: %w", err)
		}
	}
	return nil
}

// ValidateLinkRequest validates a link add/remove request
func ValidateLinkRequest(req *LinkRequest) error {
	if req == nil {
		return errors.New("link request cannot be nil")
	}
	if err := validate.Struct(req); err != nil {
		return formatValidationError(err)
	}
	if err := ValidateNodeName(req.Source); err != nil {
		return fmt.Errorf("Source: %w", err)
	}
	if err := ValidateNodeName(req.Target); err != nil {
		return fmt.Errorf("Target: %w", err)
	}
	return nil
}

// ValidateLookupRequest validates a single lookup request
func ValidateLookupRequest(req *LookupRequest) error {
	if req == nil {
		return errors.New("lookup request cannot be nil")
	}
	if err := validate.Struct(req); err != nil {
		return formatValidationError(err)
	}
	return nil
}

// ValidateBulkLookupRequest validates a bulk lookup request
func ValidateBulkLookupRequest(req *BulkLookupRequest) error {
	if req == nil {
		return errors.New("bulk lookup request cannot be nil")
	}
	if err := validate.Struct(req); err != nil {
		return formatValidationError(err)
	}
	return ValidateBatchSize(len(req.Observables))
}

// ValidateBatchSize validates the size of a batch request
func ValidateBatchSize(size int) error {
	if size < MinBatchSize {
		return fmt.Errorf("batch size must be at least %d, got %d", MinBatchSize, size)
	}
	if size > MaxBatchSize {
		return fmt.Errorf("batch size must not exceed %d, got %d", MaxBatchSize, size)
	}
	return nil
}

// ValidateNodeName validates a graph node name
func ValidateNodeName(name string) error {
	if name == "" {
		return errors.New("node name cannot be empty")
	}
	if len(name) > MaxNodeNameLength {
		return fmt.Errorf("node name exceeds maximum length of %d characters", MaxNodeNameLength)
	}
	if !nodeNamePattern.MatchString(name) {
		return fmt.Errorf("node name '%s' contains control characters", name)
	}
	return nil
}

// formatValidationError converts validator errors to a more user-friendly format
func formatValidationError(err error) error {
	if err == nil {
		return nil
	}

	validationErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	// Return the first validation error in a user-friendly format
	for _, e := range validationErrs {
		field := e.Field()
		tag := e.Tag()
		param := e.Param()

		switch tag {
		case "required":
			return fmt.Errorf("%s: field is required", field)
		case "min":
			return fmt.Errorf("%s: must be at least %s", field, param)
		case "max":
			return fmt.Errorf("%s: must not exceed %s", field, param)
		case "dive":
			// For array elements
			return fmt.Errorf("%s: invalid element in array", field)
		default:
			return fmt.Errorf("%s: validation failed (%s)", field, tag)
		}
	}

	return err
}
