package protocol

import "errors"

var (
	ErrShortRecord     = errors.New("record length mismatch")
	ErrUnknownEvent    = errors.New("unknown event type")
	ErrUnknownOrigin   = errors.New("unknown origin half")
	ErrPayloadMismatch = errors.New("payload does not match event type")
	ErrInvalidPayload  = errors.New("invalid payload size")
	ErrTimeout         = errors.New("operation timed out")
	ErrInvalidChannel  = errors.New("invalid channel (valid range: 0-125)")
)
