// Package codec implements the Exchange Stream wire framing: one JSON
// object per line, terminated by a literal CRLF ("\r\n"). This is not a
// WebSocket or HTTP framing — it rides directly on a TLS-over-TCP byte
// stream, so the codec is responsible for reassembling frames split across
// arbitrarily many Read calls.
package codec

import (
	"bufio"
	"fmt"
	"io"

	"github.com/betfair-go/stream/pkg/bfstream"
)

// maxFrameSize caps a single line to guard against a misbehaving peer
// streaming unbounded data with no CRLF.
const maxFrameSize = 4 << 20 // 4 MiB

// Decoder reads CRLF-delimited JSON frames from a byte stream. It is safe
// to call Decode repeatedly as more bytes arrive on the underlying reader;
// partial frames are buffered internally until a terminator is seen.
type Decoder struct {
	r *bufio.Reader
}

// NewDecoder wraps r in a Decoder with a read buffer sized for the
// largest ordinary SUB_IMAGE frame.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReaderSize(r, 64*1024)}
}

// Decode returns the next frame's payload with the trailing "\r\n"
// stripped. It returns io.EOF once the underlying stream is exhausted
// cleanly between frames.
func (d *Decoder) Decode() ([]byte, error) {
	var line []byte
	for {
		chunk, err := d.r.ReadSlice('\n')
		line = append(line, chunk...)
		if len(line) > maxFrameSize {
			return nil, fmt.Errorf("codec: frame exceeds %d bytes", maxFrameSize)
		}
		if err == bufio.ErrBufferFull {
			continue
		}
		if err != nil {
			if len(line) == 0 {
				return nil, err
			}
			return nil, fmt.Errorf("codec: incomplete frame: %w", err)
		}
		break
	}
	if len(line) < 2 || line[len(line)-2] != '\r' {
		return nil, fmt.Errorf("codec: frame missing CRLF terminator")
	}
	return line[:len(line)-2], nil
}

// DecodeResponse reads and decodes the next frame in one call.
func (d *Decoder) DecodeResponse() (any, error) {
	line, err := d.Decode()
	if err != nil {
		return nil, err
	}
	return bfstream.DecodeResponse(line)
}

// Encoder writes request messages as CRLF-terminated JSON frames.
type Encoder struct {
	w io.Writer
}

// NewEncoder wraps w in an Encoder.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// Encode marshals msg (one of the bfstream request message types) and
// writes it followed by "\r\n".
func (e *Encoder) Encode(msg any) error {
	data, err := bfstream.EncodeRequest(msg)
	if err != nil {
		return fmt.Errorf("codec: encode: %w", err)
	}
	data = append(data, '\r', '\n')
	if _, err := e.w.Write(data); err != nil {
		return fmt.Errorf("codec: write: %w", err)
	}
	return nil
}

type flusher interface {
	Flush() error
}

// Flush flushes the underlying writer if it buffers (e.g. bufio.Writer).
// Plain net/tls connections have nothing to flush and this is a no-op.
func (e *Encoder) Flush() error {
	if f, ok := e.w.(flusher); ok {
		return f.Flush()
	}
	return nil
}
