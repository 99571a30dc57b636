package domain

import "errors"

var (
	ErrDepartureNotFound = errors.New("departure not found")
	ErrStopNotFound      = errors.New("intermediate stop not found")
	ErrUnknownRole       = errors.New("unknown address role")
	ErrUnknownFuelType   = errors.New("unknown fuel type")
	ErrInvalidCostInput  = errors.New("cost input must be finite and non-negative")
)
