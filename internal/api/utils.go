package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware" // For RequestID

	"github.com/FACorreiaa/go-city-crud/internal/types"
)

// Error titles used in the "error" field of every error body.
const (
	ErrTitleValidation = "Validation Error"
	ErrTitleNotFound   = "Resource Not Found"
	ErrTitleInternal   = "Internal Server Error"
	ErrTitleRateLimit  = "Too Many Requests"

	// InternalErrorMessage is the only detail clients see for unexpected faults.
	InternalErrorMessage = "Something went wrong on the server."
)

const maxBodyBytes = 1_048_576

// ErrorResponse writes a standard JSON error response.
func ErrorResponse(w http.ResponseWriter, r *http.Request, status int, title, message string) {
	WriteJSONResponse(w, r, status, types.ErrorBody{
		Error:   title,
		Message: message,
	})
}

// WriteServiceError maps a service error onto the matching status code.
// Unexpected errors are logged and hidden behind a generic message.
func WriteServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error, notFoundMessage string) {
	var validationErr *types.ValidationError
	switch {
	case errors.As(err, &validationErr):
		ErrorResponse(w, r, http.StatusBadRequest, ErrTitleValidation, validationErr.Message)
	case errors.Is(err, types.ErrNotFound):
		ErrorResponse(w, r, http.StatusNotFound, ErrTitleNotFound, notFoundMessage)
	default:
		logger.ErrorContext(r.Context(), "Unhandled service error",
			slog.Any("error", err),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)
		ErrorResponse(w, r, http.StatusInternalServerError, ErrTitleInternal, InternalErrorMessage)
	}
}

// WriteJSONResponse encodes the data to JSON and writes the response header and body.
func WriteJSONResponse(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	if status == http.StatusNoContent {
		w.WriteHeader(status)
		return
	}

	js, err := json.Marshal(data)
	if err != nil {
		reqID := middleware.GetReqID(r.Context())
		slog.ErrorContext(r.Context(), "Failed to marshal JSON response",
			slog.Any("error", err),
			slog.String("request_id", reqID),
		)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"Internal Server Error","message":"Something went wrong on the server."}`))
		return
	}

	// Set headers *before* writing status or body
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err = w.Write(js)
	if err != nil {
		// Client already received status code
		reqID := middleware.GetReqID(r.Context())
		slog.ErrorContext(r.Context(), "Failed to write response body",
			slog.Any("error", err),
			slog.String("request_id", reqID),
		)
	}
}

// DecodeJSONBody reads and decodes a JSON request body safely.
// Unknown keys are tolerated: browser clients send a client-side id on create.
func DecodeJSONBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBodyBytes))

	dec := json.NewDecoder(r.Body)

	err := dec.Decode(dst)
	if err != nil {
		var syntaxError *json.SyntaxError
		var unmarshalTypeError *json.UnmarshalTypeError
		var invalidUnmarshalError *json.InvalidUnmarshalError
		var maxBytesError *http.MaxBytesError

		switch {
		case errors.As(err, &syntaxError):
			return types.NewValidationError("", fmt.Sprintf("body contains badly-formed JSON (at character %d)", syntaxError.Offset))

		case errors.Is(err, io.ErrUnexpectedEOF):
			return types.NewValidationError("", "body contains badly-formed JSON")

		case errors.As(err, &unmarshalTypeError):
			if unmarshalTypeError.Field != "" {
				return types.NewValidationError(unmarshalTypeError.Field,
					fmt.Sprintf("Field %q is required and must be a string.", unmarshalTypeError.Field))
			}
			return types.NewValidationError("", fmt.Sprintf("body contains incorrect JSON type (at character %d)", unmarshalTypeError.Offset))

		case errors.Is(err, io.EOF):
			return types.NewValidationError("", "body must not be empty")

		case errors.As(err, &maxBytesError):
			return types.NewValidationError("", fmt.Sprintf("body must not be larger than %d bytes", maxBytesError.Limit))

		case errors.As(err, &invalidUnmarshalError):
			panic(fmt.Errorf("developer error: invalid argument passed to json.Unmarshal: %w", err))

		default:
			return fmt.Errorf("error decoding JSON body: %w", err)
		}
	}

	// Check for trailing data after the first JSON object
	err = dec.Decode(&struct{}{})
	if !errors.Is(err, io.EOF) {
		return types.NewValidationError("", "body must only contain a single JSON value")
	}

	return nil
}
