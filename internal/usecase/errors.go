package usecase

import "errors"

var (
	ErrValidation      = errors.New("validation failed")
	ErrNotFound        = errors.New("not found")
	ErrUnknownSeat     = errors.New("unknown seat")
	ErrSeatUnavailable = errors.New("seat is not available for the requested segment")
)
