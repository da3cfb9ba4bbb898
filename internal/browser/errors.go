package browser

import "errors"

var (
	// ErrElementNotFound is returned when a waited-for element never appears.
	ErrElementNotFound = errors.New("element not found")
	// ErrNoElementsFound is returned when a page yields no candidate elements.
	ErrNoElementsFound = errors.New("no elements found")
	// ErrRetryExhausted is returned when every bounded click attempt failed.
	ErrRetryExhausted = errors.New("click attempts exhausted")
)
