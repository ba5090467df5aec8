package codec

import (
	"bytes"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/yanun0323/errors"
)

var (
	ErrShortMessage = errors.New("codec: message has too few fields")
	ErrBadField     = errors.New("codec: malformed field")
)

// Reader consumes NUL-terminated fields from an inbound payload. The first
// decode error sticks; check Err after the last read.
type Reader struct {
	parts [][]byte
	idx   int
	err   error
}

// NewReader splits a payload into fields.
func NewReader(payload []byte) *Reader {
	parts := bytes.Split(payload, []byte{0})
	// A well-formed message ends with a NUL, leaving one empty trailer.
	if n := len(parts); n > 0 && len(parts[n-1]) == 0 {
		parts = parts[:n-1]
	}
	return &Reader{parts: parts}
}

func (r *Reader) next() ([]byte, bool) {
	if r.err != nil {
		return nil, false
	}
	if r.idx >= len(r.parts) {
		r.err = ErrShortMessage
		return nil, false
	}
	p := r.parts[r.idx]
	r.idx++
	return p, true
}

func (r *Reader) String() string {
	p, ok := r.next()
	if !ok {
		return ""
	}
	return string(p)
}

func (r *Reader) Int() int64 {
	p, ok := r.next()
	if !ok {
		return 0
	}
	if len(p) == 0 {
		return 0
	}
	v, err := strconv.ParseInt(string(p), 10, 64)
	if err != nil {
		r.err = errors.Wrap(ErrBadField, "parse int").With("field", string(p))
		return 0
	}
	return v
}

func (r *Reader) Float() float64 {
	p, ok := r.next()
	if !ok {
		return 0
	}
	if len(p) == 0 {
		return 0
	}
	d, err := decimal.NewFromString(string(p))
	if err != nil {
		r.err = errors.Wrap(ErrBadField, "parse decimal").With("field", string(p))
		return 0
	}
	return d.InexactFloat64()
}

func (r *Reader) Bool() bool {
	return r.Int() != 0
}

// Err reports the first decode failure, if any.
func (r *Reader) Err() error {
	return r.err
}

// Remaining reports how many fields have not been consumed.
func (r *Reader) Remaining() int {
	return len(r.parts) - r.idx
}
