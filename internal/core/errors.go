package core

import (
	"errors"
	"net/http"
)

type ErrorCode int

const (
	ErrorCodeInternal ErrorCode = iota
	ErrorCodeValidation
	ErrorCodeConflict
	ErrorCodeNotFound
)

// RecordKind names a persisted record family for error messages and
// store addressing.
type RecordKind string

const (
	KindArtist RecordKind = "artist"
	KindAlbum  RecordKind = "album"
	KindTrack  RecordKind = "track"
	KindIndex  RecordKind = "index"
)

type AppError struct {
	Code    ErrorCode
	Message string
	Err     error

	Operation string
	// SafeToShow indicates the message may be shown to API clients.
	SafeToShow bool
}

func (e *AppError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func (e *AppError) HTTPStatus() int {
	if e == nil {
		return http.StatusInternalServerError
	}
	switch e.Code {
	case ErrorCodeValidation:
		return http.StatusBadRequest
	case ErrorCodeConflict:
		return http.StatusConflict
	case ErrorCodeNotFound:
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func (e *AppError) PublicMessage() string {
	if e == nil {
		return "internal error"
	}
	if e.SafeToShow {
		return e.Message
	}
	return "internal error"
}

// WithOper returns a copy of the error carrying the operation name.
func (e *AppError) WithOper(op string) *AppError {
	if e == nil {
		return nil
	}
	c := *e
	c.Operation = op
	return &c
}

func AsAppError(err error) (*AppError, bool) {
	if err == nil {
		return nil, false
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsNotFound reports whether err is a not-found AppError. Background
// jobs use it to skip records deleted by concurrent edits.
func IsNotFound(err error) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == ErrorCodeNotFound
}

// Some useful constructors.

func NewInternalError(message string, err error, op string) *AppError {
	return &AppError{
		Code:      ErrorCodeInternal,
		Message:   message,
		Err:       err,
		Operation: op,
	}
}

func NewValidationError(message string, err error, op string) *AppError {
	return &AppError{
		Code:       ErrorCodeValidation,
		Message:    message,
		Err:        err,
		Operation:  op,
		SafeToShow: true,
	}
}

func NewConflictError(kind RecordKind, id string, op string) *AppError {
	return &AppError{
		Code:       ErrorCodeConflict,
		Message:    string(kind) + " " + id + " already exists",
		Operation:  op,
		SafeToShow: true,
	}
}

func NewNotFoundError(kind RecordKind, id string, op string) *AppError {
	return &AppError{
		Code:       ErrorCodeNotFound,
		Message:    string(kind) + " " + id + " not found",
		Operation:  op,
		SafeToShow: true,
	}
}
