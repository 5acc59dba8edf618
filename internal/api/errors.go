package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/taskman-api/internal/api/shared"
	"github.com/phrazzld/taskman-api/internal/domain"
	"github.com/phrazzld/taskman-api/internal/service"
	"github.com/phrazzld/taskman-api/internal/service/auth"
	"github.com/phrazzld/taskman-api/internal/store"
)

// userInputErrors are domain errors caused by bad registration input.
var userInputErrors = []error{
	domain.ErrEmptyEmail,
	domain.ErrInvalidEmail,
	domain.ErrEmptyPassword,
	domain.ErrInvalidPassword,
	domain.ErrPasswordTooShort,
	domain.ErrPasswordTooLong,
}

func isUserInputError(err error) bool {
	for _, target := range userInputErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// MapErrorToStatusCode maps internal errors to HTTP status codes without
// leaking their types to clients.
func MapErrorToStatusCode(err error) int {
	var verrs validator.ValidationErrors
	switch {
	case err == nil:
		return http.StatusInternalServerError

	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrMissingToken),
		errors.Is(err, auth.ErrInvalidRefreshToken),
		errors.Is(err, auth.ErrExpiredRefreshToken),
		errors.Is(err, auth.ErrWrongTokenType),
		errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized

	// Missing and not-owned resources are indistinguishable.
	case errors.Is(err, service.ErrNotFoundOrForbidden),
		errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound

	case errors.Is(err, service.ErrEmailExists),
		errors.Is(err, store.ErrDuplicate):
		return http.StatusConflict

	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, store.ErrInvalidEntity),
		errors.As(err, &verrs),
		isUserInputError(err):
		return http.StatusBadRequest

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a client-safe message for err.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	var verr *domain.ValidationError
	var verrs validator.ValidationErrors
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return "Token expired"

	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrMissingToken):
		return "Invalid token"

	case errors.Is(err, auth.ErrInvalidRefreshToken),
		errors.Is(err, auth.ErrExpiredRefreshToken),
		errors.Is(err, auth.ErrWrongTokenType):
		return "Invalid refresh token"

	case errors.Is(err, auth.ErrInvalidCredentials):
		return "Invalid credentials"

	case errors.Is(err, domain.ErrUnauthorized):
		return "Unauthorized"

	case errors.Is(err, service.ErrNotFoundOrForbidden),
		errors.Is(err, store.ErrNotFound):
		return "Resource not found"

	case errors.Is(err, service.ErrEmailExists),
		errors.Is(err, store.ErrEmailExists):
		return "Email already exists"

	case errors.As(err, &verr):
		return fmt.Sprintf("Invalid %s: %s", verr.Field, verr.Message)

	case errors.As(err, &verrs):
		return SanitizeValidationError(err)

	case isUserInputError(err):
		for _, target := range userInputErrors {
			if errors.Is(err, target) {
				return capitalize(target.Error())
			}
		}
		return "Invalid user data"

	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, store.ErrInvalidEntity):
		return "Invalid entity data"

	default:
		return "An unexpected error occurred"
	}
}

// SanitizeValidationError turns validator failures into a message naming the
// first offending field. Anything else becomes a generic message.
func SanitizeValidationError(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "Validation error"
	}
	fe := verrs[0]
	return fmt.Sprintf("Invalid %s: %s", fe.Field(), getValidationTagMessage(fe.Tag()))
}

func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "email":
		return "invalid email format"
	case "min", "gte", "gt":
		return "too small"
	case "max", "lte", "lt":
		return "too large"
	case "oneof":
		return "invalid value"
	default:
		return "validation failed"
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	b := []byte(s)
	if b[0] >= 'a' && b[0] <= 'z' {
		b[0] -= 'a' - 'A'
	}
	return string(b)
}

// HandleAPIError writes the mapped status and a safe message for err, and
// logs the redacted cause. A non-empty fallback replaces the generic message
// on 5xx responses.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	status := MapErrorToStatusCode(err)
	message := GetSafeErrorMessage(err)
	if status >= http.StatusInternalServerError && fallback != "" {
		message = fallback
	}

	var opts []shared.ResponseOption
	if status == http.StatusUnauthorized {
		opts = append(opts, shared.WithElevatedLogLevel())
	}
	shared.RespondWithErrorAndLog(w, r, status, message, err, opts...)
}
