package utils

import (
	"errors"
	"net/http"

	"bakehouse/db"
)

// Sentinel errors shared by the services. Wrap them with fmt.Errorf("%w").
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrForbidden    = errors.New("forbidden")
	ErrConflict     = errors.New("conflict")
)

// HTTPStatus maps service errors onto response codes.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, db.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict), errors.Is(err, db.ErrDuplicate):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// RespondWithErr renders err in the uniform failure shape. Internal errors
// are not echoed to the client.
func RespondWithErr(w http.ResponseWriter, err error) {
	code := HTTPStatus(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		msg = "Internal server error"
	}
	RespondWithError(w, code, msg)
}
