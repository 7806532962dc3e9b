package services

import (
	"errors"
	"fmt"

	"github.com/maxg-dev/santiscl/internal/platform/validation"
	"github.com/maxg-dev/santiscl/internal/repositories"
)

var (
	// ErrCatalogUnavailable indicates the catalog backend is not configured or unreachable.
	ErrCatalogUnavailable = errors.New("catalog service: backend unavailable")
	// ErrProductNotFound indicates the requested parent product does not exist.
	ErrProductNotFound = errors.New("catalog service: product not found")
	// ErrVariantNotFound indicates the requested variant does not exist.
	ErrVariantNotFound = errors.New("catalog service: variant not found")
	// ErrInvalidInput indicates the caller supplied invalid data.
	ErrInvalidInput = errors.New("services: invalid input")
	// ErrImageType indicates an upload that is not an image.
	ErrImageType = errors.New("media service: only image files are allowed")
	// ErrImageTooLarge indicates an upload above the size limit.
	ErrImageTooLarge = errors.New("media service: image too large")
	// ErrWeakPassword indicates an admin password below the minimum length.
	ErrWeakPassword = errors.New("admin auth: password too short")
	// ErrInvalidCredentials indicates a failed sign-in.
	ErrInvalidCredentials = errors.New("admin auth: invalid credentials")
	// ErrNotAdmin indicates the account is not in the admin registry.
	ErrNotAdmin = errors.New("admin auth: account is not an admin")
	// ErrAuthUnavailable indicates the identity backend could not be reached.
	ErrAuthUnavailable = errors.New("admin auth: identity backend unavailable")
)

// InputError carries field-level validation failures.
type InputError struct {
	Fields validation.FieldErrors
	Reason string
}

func (e *InputError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s: %s", ErrInvalidInput, e.Reason)
	}
	if len(e.Fields) > 0 {
		return fmt.Sprintf("%s: %s", ErrInvalidInput, e.Fields.Error())
	}
	return ErrInvalidInput.Error()
}

func (e *InputError) Unwrap() error { return ErrInvalidInput }

func invalidInput(reason string) error {
	return &InputError{Reason: reason}
}

func invalidField(field, message string) error {
	return &InputError{Fields: validation.FieldErrors{field: message}}
}

// validateStruct runs struct validation and converts failures into an InputError.
func validateStruct(v any) error {
	err := validation.Struct(v)
	if err == nil {
		return nil
	}
	var fields validation.FieldErrors
	if errors.As(err, &fields) {
		return &InputError{Fields: fields}
	}
	return &InputError{Reason: err.Error()}
}

// mapRepositoryError translates repository failures into service sentinels.
func mapRepositoryError(err error, notFound error) error {
	if err == nil {
		return nil
	}
	if notFound != nil && repositories.IsNotFound(err) {
		return fmt.Errorf("%w: %v", notFound, err)
	}
	if repositories.IsUnavailable(err) {
		return fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}
	return err
}
