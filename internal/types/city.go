package types

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when no city has the requested id.
var ErrNotFound = errors.New("requested item not found")

// City is the only managed resource.
type City struct {
	ID      int64  `json:"id" example:"162524"`        // Assigned by the store, immutable.
	Name    string `json:"name" example:"Addis Ababa"` // Trimmed, never empty.
	Country string `json:"country" example:"Ethiopia"` // Trimmed, never empty.
}

// CreateCityRequest is the body of POST /cities.
// Keys other than name and country are ignored.
type CreateCityRequest struct {
	Name    string `json:"name" validate:"required,notblank"`
	Country string `json:"country" validate:"required,notblank"`
}

// UpdateCityRequest is the body of PUT /cities/{id}. A nil field was not supplied.
type UpdateCityRequest struct {
	Name    *string `json:"name,omitempty"`
	Country *string `json:"country,omitempty"`
}

// DeleteCityResponse is returned by DELETE /cities/{id}.
type DeleteCityResponse struct {
	Message string `json:"message"`
	ID      int64  `json:"id"`
}

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// ValidationError reports a request field that failed validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("validation failed on %q: %s", e.Field, e.Message)
}

// NewValidationError builds a ValidationError for the given field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}
