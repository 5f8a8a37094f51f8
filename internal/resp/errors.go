package resp

import (
	"errors"
	"fmt"
)

// ErrorKind tells which layer rejected the input. All kinds are recoverable
// per command; only I/O failures end a connection
type ErrorKind uint8

const (
	// KindFrame is a malformed frame: bad marker, length, integer or terminator
	KindFrame ErrorKind = iota + 1
	// KindProtocol is a well-formed frame that is not a command
	KindProtocol
	// KindCommand is a command the executor refused: unknown verb, arity, operands
	KindCommand
)

func (k ErrorKind) String() string {
	switch k {
	case KindFrame:
		return "frame"
	case KindProtocol:
		return "protocol"
	case KindCommand:
		return "command"
	default:
		return "unknown"
	}
}

// Frame errors
var (
	ErrUnknownMarker  = errors.New("unknown type marker")
	ErrInvalidEnding  = errors.New("invalid line ending")
	ErrInvalidLength  = errors.New("invalid length")
	ErrInvalidInteger = errors.New("invalid integer")
	ErrLimitExceeded  = errors.New("limit exceeded")
	// ErrIncomplete means the input ended before the frame did
	ErrIncomplete = errors.New("incomplete frame")
)

// Protocol errors
var (
	ErrNotArray       = errors.New("expected array of bulk strings")
	ErrEmptyCommand   = errors.New("empty command")
	ErrInvalidCommand = errors.New("command name must be a bulk string")
)

// Error carries the layer and sentinel of a rejected input
type Error struct {
	Kind   ErrorKind
	Err    error  // sentinel, matched with errors.Is
	Offset int    // byte offset inside the frame, frame errors only
	Msg    string // overrides Err in the text sent to the client
}

func (e *Error) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	if e.Kind == KindFrame {
		return fmt.Sprintf("%v at offset %d", e.Err, e.Offset)
	}
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewCommandError builds a command-layer error with a client facing message
func NewCommandError(err error, msg string) *Error {
	return &Error{Kind: KindCommand, Err: err, Msg: msg}
}

func frameError(err error, offset int) *Error {
	return &Error{Kind: KindFrame, Err: err, Offset: offset}
}

func protocolError(err error) *Error {
	return &Error{Kind: KindProtocol, Err: err}
}

// KindOf returns the layer of err, or 0 when err is not a *Error
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// IsRecoverable reports whether the connection may keep serving after err
func IsRecoverable(err error) bool {
	return KindOf(err) != 0
}
