package resp

import (
	"bytes"
	"io"
	"strconv"
)

// Protocol limits, same as the redis-server defaults
const (
	MaxArrayLen = 1024 * 1024
	MaxBulkLen  = 512 * 1024 * 1024
	MaxLineLen  = 64 * 1024

	// MaxNestingDepth bounds how many arrays may enclose each other in one frame
	MaxNestingDepth = 128
)

// Lexer turns a byte buffer into Values, one frame per Next call
type Lexer struct {
	buf []byte
	pos int
}

// NewLexer creates a Lexer positioned at the start of buf
func NewLexer(buf []byte) *Lexer {
	return &Lexer{buf: buf}
}

// Next returns the next complete frame.
// io.EOF means the buffer is exhausted. Every other error is a *Error of KindFrame
// and leaves the cursor at the start of the failed frame
func (l *Lexer) Next() (Value, error) {
	start := l.pos

	v, ok, err := l.scan(0)
	if err != nil {
		l.pos = start
		return Value{}, err
	}
	if !ok {
		if l.pos >= len(l.buf) {
			return Value{}, io.EOF
		}
		return Value{}, frameError(ErrUnknownMarker, l.pos)
	}

	return v, nil
}

// Offset returns the number of bytes consumed so far
func (l *Lexer) Offset() int {
	return l.pos
}

// Remaining returns the number of unconsumed bytes
func (l *Lexer) Remaining() int {
	return len(l.buf) - l.pos
}

// peek returns the byte under the cursor without consuming it
func (l *Lexer) peek() (byte, bool) {
	if l.pos >= len(l.buf) {
		return 0, false
	}
	return l.buf[l.pos], true
}

// scan dispatches on the marker. ok is false when there is no marker it knows,
// including at the end of input. depth is the number of enclosing arrays
func (l *Lexer) scan(depth int) (Value, bool, error) {
	marker, ok := l.peek()
	if !ok {
		return Value{}, false, nil
	}

	var (
		v   Value
		err error
	)

	switch marker {
	case TypeSimpleString, TypeError:
		l.pos++
		var line []byte
		if line, err = l.readLine(); err == nil {
			v = Value{Type: marker, String: bytes.Clone(line)}
		}
	case TypeInteger:
		l.pos++
		v, err = l.scanInteger()
	case TypeBulkString:
		l.pos++
		v, err = l.scanBulkString()
	case TypeArray:
		if depth >= MaxNestingDepth {
			return Value{}, false, frameError(ErrLimitExceeded, l.pos)
		}
		l.pos++
		v, err = l.scanArray(depth)
	default:
		return Value{}, false, nil
	}

	if err != nil {
		return Value{}, false, err
	}
	return v, true, nil
}

// readLine consumes everything up to and including the next CRLF and returns the bytes before it
func (l *Lexer) readLine() ([]byte, error) {
	rest := l.buf[l.pos:]

	i := bytes.IndexAny(rest, "\r\n")
	if i < 0 {
		if len(rest) > MaxLineLen {
			return nil, frameError(ErrLimitExceeded, l.pos)
		}
		return nil, frameError(ErrIncomplete, len(l.buf))
	}

	if i > MaxLineLen {
		return nil, frameError(ErrLimitExceeded, l.pos)
	}
	if rest[i] == '\n' {
		return nil, frameError(ErrInvalidEnding, l.pos+i)
	}
	if i+1 >= len(rest) {
		return nil, frameError(ErrIncomplete, len(l.buf))
	}
	if rest[i+1] != '\n' {
		return nil, frameError(ErrInvalidEnding, l.pos+i+1)
	}

	l.pos += i + 2
	return rest[:i], nil
}

func (l *Lexer) scanInteger() (Value, error) {
	start := l.pos
	line, err := l.readLine()
	if err != nil {
		return Value{}, err
	}

	n, err := strconv.ParseInt(string(line), 10, 64)
	if err != nil {
		return Value{}, frameError(ErrInvalidInteger, start)
	}

	return MakeInteger(n), nil
}

// readLength reads the count line of a bulk string or array. -1 marks null
func (l *Lexer) readLength(limit int) (int, error) {
	start := l.pos
	line, err := l.readLine()
	if err != nil {
		return 0, err
	}

	n, err := strconv.Atoi(string(line))
	if err != nil || n < -1 {
		return 0, frameError(ErrInvalidLength, start)
	}
	if n > limit {
		return 0, frameError(ErrLimitExceeded, start)
	}

	return n, nil
}

func (l *Lexer) scanBulkString() (Value, error) {
	n, err := l.readLength(MaxBulkLen)
	if err != nil {
		return Value{}, err
	}
	if n == -1 {
		return MakeNilBulkString(), nil
	}

	if l.Remaining() < n+2 {
		return Value{}, frameError(ErrIncomplete, len(l.buf))
	}

	payload := l.buf[l.pos : l.pos+n]
	if l.buf[l.pos+n] != '\r' || l.buf[l.pos+n+1] != '\n' {
		return Value{}, frameError(ErrInvalidEnding, l.pos+n)
	}
	l.pos += n + 2

	return Value{Type: TypeBulkString, String: bytes.Clone(payload)}, nil
}

func (l *Lexer) scanArray(depth int) (Value, error) {
	n, err := l.readLength(MaxArrayLen)
	if err != nil {
		return Value{}, err
	}
	if n == -1 {
		return MakeNilArray(), nil
	}

	// cap the preallocation, the count is untrusted until the elements arrive
	elements := make([]Value, 0, min(n, 64))
	for i := 0; i < n; i++ {
		el, ok, err := l.scan(depth + 1)
		if err != nil {
			return Value{}, err
		}
		if !ok {
			if l.pos >= len(l.buf) {
				return Value{}, frameError(ErrIncomplete, len(l.buf))
			}
			return Value{}, frameError(ErrUnknownMarker, l.pos)
		}
		elements = append(elements, el)
	}

	return MakeArray(elements), nil
}

// step moves the cursor over one header or self-contained frame without building a Value.
// It returns the element count of a non-empty array header and 0 for anything complete on its own.
// Payloads are checked for framing only, Next validates them
func (l *Lexer) step() (int, error) {
	start := l.pos

	n, err := l.stepFrame()
	if err != nil {
		l.pos = start
		return 0, err
	}
	return n, nil
}

func (l *Lexer) stepFrame() (int, error) {
	marker, ok := l.peek()
	if !ok {
		return 0, frameError(ErrIncomplete, len(l.buf))
	}

	switch marker {
	case TypeSimpleString, TypeError, TypeInteger:
		l.pos++
		_, err := l.readLine()
		return 0, err
	case TypeBulkString:
		l.pos++
		n, err := l.readLength(MaxBulkLen)
		if err != nil || n == -1 {
			return 0, err
		}
		if l.Remaining() < n+2 {
			return 0, frameError(ErrIncomplete, len(l.buf))
		}
		if l.buf[l.pos+n] != '\r' || l.buf[l.pos+n+1] != '\n' {
			return 0, frameError(ErrInvalidEnding, l.pos+n)
		}
		l.pos += n + 2
		return 0, nil
	case TypeArray:
		l.pos++
		n, err := l.readLength(MaxArrayLen)
		if err != nil || n <= 0 {
			return 0, err
		}
		return n, nil
	default:
		return 0, frameError(ErrUnknownMarker, l.pos)
	}
}
