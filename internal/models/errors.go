package models

import "errors"

var (
	// ErrNotFound is returned for unknown instrument or order ids.
	ErrNotFound = errors.New("not found")
	// ErrTransient marks failures on the asynchronous call path that may succeed on retry.
	ErrTransient = errors.New("transient failure")
	// ErrInvalidArgument is returned for unknown timeframes, model types or malformed orders.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrInvalidTransition is returned when an order leaves a terminal state.
	ErrInvalidTransition = errors.New("invalid order status transition")
)
