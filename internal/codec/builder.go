// Package codec encodes and decodes the gateway's tag-value protocol.
// A message is a sequence of NUL-terminated fields; the first field is the
// numeric message id. Prices and quantities travel as decimal strings.
package codec

import (
	"strconv"

	"github.com/shopspring/decimal"

	"main/internal/schema"
)

// Builder accumulates NUL-terminated fields for one outbound message.
type Builder struct {
	buf []byte
}

// NewBuilder starts a message with the given id.
func NewBuilder(id schema.MessageID) *Builder {
	b := &Builder{buf: make([]byte, 0, 128)}
	b.AddInt(int64(id))
	return b
}

func (b *Builder) AddString(s string) *Builder {
	b.buf = append(b.buf, s...)
	b.buf = append(b.buf, 0)
	return b
}

func (b *Builder) AddInt(v int64) *Builder {
	b.buf = strconv.AppendInt(b.buf, v, 10)
	b.buf = append(b.buf, 0)
	return b
}

// AddFloat renders v as a decimal string so wire values carry no binary
// float artifacts.
func (b *Builder) AddFloat(v float64) *Builder {
	return b.AddString(decimal.NewFromFloat(v).String())
}

func (b *Builder) AddBool(v bool) *Builder {
	if v {
		return b.AddInt(1)
	}
	return b.AddInt(0)
}

// Bytes returns the framed payload (without the transport length prefix).
func (b *Builder) Bytes() []byte {
	return b.buf
}
