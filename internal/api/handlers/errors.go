package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// MaxBodyBytes bounds JSON request bodies; images arrive inline as data URIs
const MaxBodyBytes = 10 << 20

// ErrBodyTooLarge is returned by DecodeJSON when the body exceeds MaxBodyBytes
var ErrBodyTooLarge = errors.New("request body too large")

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ErrorResponse is the body of every error reply
type ErrorResponse struct {
	Error string `json:"error"`
}

// MessageResponse is the body of replies that only carry a status message
type MessageResponse struct {
	Message string `json:"message"`
}

// WriteError writes a standardized JSON error response
func WriteError(w http.ResponseWriter, statusCode int, message string) {
	WriteJSON(w, statusCode, ErrorResponse{Error: message})
}

// WriteMessage writes a {"message": ...} response
func WriteMessage(w http.ResponseWriter, statusCode int, message string) {
	WriteJSON(w, statusCode, MessageResponse{Message: message})
}

// WriteJSON encodes v as the response body
func WriteJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Headers already sent
		slog.Error("failed to encode response", "error", err)
	}
}

// DecodeJSON reads a size-limited JSON body into dst and validates its struct tags.
// An empty body decodes to the zero value.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return ErrBodyTooLarge
		}
		return fmt.Errorf("invalid request body: %w", err)
	}
	return Validate(dst)
}

// Validate checks v's `validate` struct tags and returns a client-facing message
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}

	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return &RequestError{Message: fmt.Sprintf("%s is required", fe.Field())}
	case "max":
		return &RequestError{Message: fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())}
	default:
		return &RequestError{Message: fmt.Sprintf("%s is invalid", fe.Field())}
	}
}

// RequestError is a malformed or invalid request body
type RequestError struct {
	Message string
}

func (e *RequestError) Error() string {
	return e.Message
}

// WriteDecodeError maps a DecodeJSON failure to a response
func WriteDecodeError(w http.ResponseWriter, err error) {
	var reqErr *RequestError
	switch {
	case errors.Is(err, ErrBodyTooLarge):
		WriteError(w, http.StatusRequestEntityTooLarge, "Request body too large")
	case errors.As(err, &reqErr):
		WriteError(w, http.StatusBadRequest, reqErr.Message)
	default:
		WriteError(w, http.StatusBadRequest, "Invalid request body")
	}
}

// WriteInternalError logs err and writes a generic 500
func WriteInternalError(w http.ResponseWriter, logger *slog.Logger, msg string, err error) {
	logger.Error(msg, "error", err)
	WriteError(w, http.StatusInternalServerError, "Internal Server Error")
}
