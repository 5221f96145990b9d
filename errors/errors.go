package errors

import "fmt"

var (
	ErrWorkerPanic      = fmt.Errorf("worker panic")
	ErrEmptyIdentity    = fmt.Errorf("identity must not be empty")
	ErrEmptyMessage     = fmt.Errorf("message has no text and no attachment")
	ErrUnknownRecipient = fmt.Errorf("recipient handle is not connected")
	ErrMalformedFrame   = fmt.Errorf("malformed event payload")
	ErrInvalidToken     = fmt.Errorf("invalid auth token")
	ErrEmptyWords       = fmt.Errorf("no words have been found")
)
