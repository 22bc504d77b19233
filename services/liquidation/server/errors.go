package server

import (
	"errors"
	"net/http"

	"creditcore/native/cdp"
)

// statusFor maps an engine error to an HTTP status code, grounded on
// services/lending/server/errors.go's toStatus switch, adapted from gRPC
// codes to the http package's status constants.
func statusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, cdp.ErrPositionNotFound):
		return http.StatusNotFound
	case errors.Is(err, cdp.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, cdp.ErrZeroAmount), errors.Is(err, cdp.ErrInvalidAsset):
		return http.StatusBadRequest
	case errors.Is(err, cdp.ErrPositionSolvent):
		return http.StatusConflict
	case errors.Is(err, cdp.ErrInsufficientCollateral), errors.Is(err, cdp.ErrInsufficientDebt):
		return http.StatusUnprocessableEntity
	case errors.Is(err, cdp.ErrExceedsMaxLTV):
		return http.StatusUnprocessableEntity
	case errors.Is(err, cdp.ErrFaultyCalc):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
