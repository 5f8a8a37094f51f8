package resp

import (
	"errors"
	"io"
)

const readChunk = 4096

// Decoder reads Values from a stream. It buffers raw bytes until a whole frame is
// available and only then hands it to a Lexer
type Decoder struct {
	rd    io.Reader
	buf   []byte
	start int // first unconsumed byte of buf

	// progress through the pending frame, kept between reads so it is walked once
	scanned int   // bytes after start known to belong to the frame
	pending []int // elements still expected by each open array, innermost last
}

// NewDecoder creates a Decoder reading from rd
func NewDecoder(rd io.Reader) *Decoder {
	return &Decoder{rd: rd}
}

// Read returns the next frame.
// A frame error drops whatever is buffered and is returned as is, the stream stays usable.
// io.EOF is returned only on a frame boundary; a stream ending mid-frame gives io.ErrUnexpectedEOF
func (d *Decoder) Read() (Value, error) {
	for {
		if d.start < len(d.buf) {
			complete, err := d.scanFrame()
			if err != nil {
				d.reset()
				return Value{}, err
			}

			if complete {
				lex := NewLexer(d.buf[d.start : d.start+d.scanned])
				v, err := lex.Next()
				if err != nil {
					d.reset()
					return Value{}, err
				}
				d.advance(lex.Offset())
				return v, nil
			}
		}

		if err := d.fill(); err != nil {
			if errors.Is(err, io.EOF) && d.Buffered() > 0 {
				d.reset()
				return Value{}, io.ErrUnexpectedEOF
			}
			return Value{}, err
		}
	}
}

// scanFrame continues walking the pending frame from where the last call stopped.
// It reports whether the whole frame is buffered
func (d *Decoder) scanFrame() (bool, error) {
	lex := &Lexer{buf: d.buf[d.start:], pos: d.scanned}

	for {
		n, err := lex.step()
		if errors.Is(err, ErrIncomplete) {
			return false, nil
		}
		if err != nil {
			return false, err
		}

		if n > 0 {
			if len(d.pending) >= MaxNestingDepth {
				return false, frameError(ErrLimitExceeded, d.scanned)
			}
			d.pending = append(d.pending, n)
		} else {
			// a finished element may finish the arrays around it
			for len(d.pending) > 0 {
				top := len(d.pending) - 1
				d.pending[top]--
				if d.pending[top] > 0 {
					break
				}
				d.pending = d.pending[:top]
			}
		}

		d.scanned = lex.pos
		if len(d.pending) == 0 {
			return true, nil
		}
	}
}

// Buffered returns the number of bytes read from the stream but not yet decoded
func (d *Decoder) Buffered() int {
	return len(d.buf) - d.start
}

// fill appends at least one byte from the stream to the buffer
func (d *Decoder) fill() error {
	if d.start > 0 && d.start == len(d.buf) {
		d.reset()
	} else if d.start > cap(d.buf)/2 {
		// compact before growing
		n := copy(d.buf, d.buf[d.start:])
		d.buf = d.buf[:n]
		d.start = 0
	}

	for {
		if cap(d.buf)-len(d.buf) < readChunk {
			d.buf = append(d.buf, make([]byte, readChunk)...)[:len(d.buf)]
		}

		n, err := d.rd.Read(d.buf[len(d.buf):cap(d.buf)])
		d.buf = d.buf[:len(d.buf)+n]
		if n > 0 {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func (d *Decoder) advance(n int) {
	d.start += n
	d.scanned = 0
	d.pending = d.pending[:0]
	if d.start == len(d.buf) {
		d.buf = d.buf[:0]
		d.start = 0
	}
}

func (d *Decoder) reset() {
	d.buf = d.buf[:0]
	d.start = 0
	d.scanned = 0
	d.pending = d.pending[:0]
}
