package oracle

import "errors"

var (
	ErrEntityIDRequired = errors.New("property id is required")
	ErrInvalidEntityID  = errors.New("invalid property id")

	ErrRequestPending   = errors.New("valuation request already pending")
	ErrWriteRejected    = errors.New("contract write rejected")
	ErrWriteUnconfirmed = errors.New("contract write not confirmed")

	ErrChainNotConfigured = errors.New("chain rpc is not configured")
)
