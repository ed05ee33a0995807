// Package wire implements the byte encoding of parameter vectors exchanged
// between the two participants, and the acknowledgment primitive.
//
// A vector of N floats is sent as N×4 bytes of little-endian IEEE 754 single
// precision values. There is no framing: the receiver must know N.
package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sync"
)

// FloatSize is the number of bytes used by one encoded parameter.
const FloatSize = 4

var ack = []byte("ok")

// Encode appends the encoding of v to dst and returns the extended buffer.
func Encode(dst []byte, v []float32) []byte {
	off := len(dst)
	need := off + len(v)*FloatSize
	if cap(dst) < need {
		grown := make([]byte, off, need)
		copy(grown, dst)
		dst = grown
	}
	dst = dst[:need]
	for i, f := range v {
		binary.LittleEndian.PutUint32(dst[off+i*FloatSize:], math.Float32bits(f))
	}
	return dst
}

// Decode decodes b into dst. len(b) must be exactly len(dst)*FloatSize.
func Decode(dst []float32, b []byte) error {
	if len(b) != len(dst)*FloatSize {
		return protocolErrorf("cannot decode %d bytes into %d parameters", len(b), len(dst))
	}
	for i := range dst {
		dst[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*FloatSize:]))
	}
	return nil
}

// Codec sends and receives parameter vectors on a byte stream.
// Reads always fill the full expected size, independent of how the stream
// splits the data into segments.
type Codec struct {
	rmut sync.Mutex
	wmut sync.Mutex
	rw   io.ReadWriter
	rbuf []byte
	wbuf []byte
}

// NewCodec returns a Codec that reads from and writes to rw.
func NewCodec(rw io.ReadWriter) *Codec {
	return &Codec{rw: rw}
}

// Send writes the whole vector to the stream.
func (c *Codec) Send(v []float32) error {
	c.wmut.Lock()
	defer c.wmut.Unlock()

	c.wbuf = Encode(c.wbuf[:0], v)
	if _, err := c.rw.Write(c.wbuf); err != nil {
		return &TransportError{Op: "send", Err: err}
	}
	return nil
}

// Receive reads exactly n parameters from the stream.
func (c *Codec) Receive(n int) ([]float32, error) {
	if n < 0 {
		return nil, protocolErrorf("negative parameter count %d", n)
	}
	v := make([]float32, n)
	if err := c.ReceiveInto(v); err != nil {
		return nil, err
	}
	return v, nil
}

// ReceiveInto reads len(dst) parameters from the stream and overwrites dst.
func (c *Codec) ReceiveInto(dst []float32) error {
	c.rmut.Lock()
	defer c.rmut.Unlock()

	want := len(dst) * FloatSize
	if cap(c.rbuf) < want {
		c.rbuf = make([]byte, want)
	}
	buf := c.rbuf[:want]
	if n, err := io.ReadFull(c.rw, buf); err != nil {
		return &TransportError{Op: "receive", Err: fmt.Errorf("read %d of %d bytes: %w", n, want, err)}
	}
	return Decode(dst, buf)
}

// SendAck writes the acknowledgment message.
func (c *Codec) SendAck() error {
	c.wmut.Lock()
	defer c.wmut.Unlock()

	if _, err := c.rw.Write(ack); err != nil {
		return &TransportError{Op: "send ack", Err: err}
	}
	return nil
}

// ReceiveAck reads one acknowledgment and fails if the peer sent anything else.
func (c *Codec) ReceiveAck() error {
	c.rmut.Lock()
	defer c.rmut.Unlock()

	var buf [2]byte
	if n, err := io.ReadFull(c.rw, buf[:]); err != nil {
		return &TransportError{Op: "receive ack", Err: fmt.Errorf("read %d of %d bytes: %w", n, len(buf), err)}
	}
	if !bytes.Equal(buf[:], ack) {
		return protocolErrorf("unrecognized acknowledgment %q", buf[:])
	}
	return nil
}
