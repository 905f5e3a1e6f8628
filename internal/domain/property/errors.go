package property

import "errors"

var (
	ErrInvalidInput  = errors.New("invalid property input")
	ErrInvalidAmount = errors.New("invalid decimal amount")
)
