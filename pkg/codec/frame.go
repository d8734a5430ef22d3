package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// MaxFrameSize bounds one length-prefixed message. A status dump for a
// few hundred instances stays well under this.
const MaxFrameSize = 1 << 20

const frameHeaderLen = 4

// ErrFrameTooLarge is returned when a peer announces a frame beyond
// MaxFrameSize. The connection is unusable past this point because the
// stream offset is no longer trustworthy.
var ErrFrameTooLarge = errors.New("frame exceeds maximum size")

// WriteFrame encodes v as CBOR and writes it as one big-endian
// length-prefixed frame.
func WriteFrame(w io.Writer, v any) error {
	payload, err := Marshal(v)
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	if len(payload) > MaxFrameSize {
		return ErrFrameTooLarge
	}

	var hdr [frameHeaderLen]byte
	binary.BigEndian.PutUint32(hdr[:], uint32(len(payload)))
	if _, err := w.Write(hdr[:]); err != nil {
		return fmt.Errorf("write frame header: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("write frame payload: %w", err)
	}
	return nil
}

// ReadFrame reads one length-prefixed frame and decodes it into v.
// io.EOF is returned untouched when the peer closed the connection
// cleanly between frames.
func ReadFrame(r io.Reader, v any) error {
	var hdr [frameHeaderLen]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return io.EOF
		}
		return fmt.Errorf("read frame header: %w", err)
	}

	size := binary.BigEndian.Uint32(hdr[:])
	if size > MaxFrameSize {
		return ErrFrameTooLarge
	}

	payload := make([]byte, size)
	if _, err := io.ReadFull(r, payload); err != nil {
		return fmt.Errorf("read frame payload: %w", err)
	}
	if err := Unmarshal(payload, v); err != nil {
		return fmt.Errorf("decode frame: %w", err)
	}
	return nil
}
