package socket

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/brodyxchen/vsockcmd/constant"
	"github.com/brodyxchen/vsockcmd/errors"
	"github.com/brodyxchen/vsockcmd/models"
)

// Codec reads and writes frames: magic, payload length, payload.
// The zero value uses network byte order.
type Codec struct {
	// Order of the two header words. Peers built against the native-order
	// C channel need binary.NativeEndian.
	Order binary.ByteOrder
}

func (c Codec) order() binary.ByteOrder {
	if c.Order != nil {
		return c.Order
	}
	return binary.BigEndian
}

// Encode returns the complete frame for payload.
func (c Codec) Encode(payload []byte) []byte {
	buf := make([]byte, models.HeaderSize+len(payload))
	c.order().PutUint32(buf, constant.DefaultMagic)
	c.order().PutUint32(buf[4:], uint32(len(payload)))
	copy(buf[models.HeaderSize:], payload)
	return buf
}

// DecodeHeader parses a header, rejecting it on bad magic before looking at the length.
func (c Codec) DecodeHeader(b []byte) (models.Header, error) {
	if len(b) < models.HeaderSize {
		return models.Header{}, errors.Stage(errors.CodeLenReceive, "decode", io.ErrUnexpectedEOF)
	}
	h := models.Header{Magic: c.order().Uint32(b)}
	if h.Magic != constant.DefaultMagic {
		return models.Header{}, badMagic(h.Magic)
	}
	h.Length = c.order().Uint32(b[4:])
	return h, nil
}

// WriteFrame sends magic, length and payload as three writes. A short write
// at any stage fails the frame; nothing is resumed.
func (c Codec) WriteFrame(w io.Writer, payload []byte) error {
	var word [4]byte

	c.order().PutUint32(word[:], constant.DefaultMagic)
	if err := writeFull(w, word[:]); err != nil {
		return errors.Stage(errors.CodeMagicSend, "write", err)
	}

	c.order().PutUint32(word[:], uint32(len(payload)))
	if err := writeFull(w, word[:]); err != nil {
		return errors.Stage(errors.CodeLenSend, "write", err)
	}

	if err := writeFull(w, payload); err != nil {
		return errors.Stage(errors.CodeContentSend, "write", err)
	}
	return nil
}

// ReadHeader reads and validates the magic, then the length.
func (c Codec) ReadHeader(r io.Reader) (uint32, error) {
	var word [4]byte

	if _, err := io.ReadFull(r, word[:]); err != nil {
		return 0, errors.Stage(errors.CodeMagicReceive, "read", eof(err))
	}
	if magic := c.order().Uint32(word[:]); magic != constant.DefaultMagic {
		return 0, badMagic(magic)
	}

	if _, err := io.ReadFull(r, word[:]); err != nil {
		return 0, errors.Stage(errors.CodeLenReceive, "read", eof(err))
	}
	return c.order().Uint32(word[:]), nil
}

// ReadPayload fills dst completely.
func (c Codec) ReadPayload(r io.Reader, dst []byte) error {
	if _, err := io.ReadFull(r, dst); err != nil {
		return errors.Stage(errors.CodeContentReceive, "read", eof(err))
	}
	return nil
}

// ReadFrame reads one frame whose payload may not exceed limit bytes.
// The limit is checked before anything is allocated.
func (c Codec) ReadFrame(r io.Reader, limit int) ([]byte, error) {
	n, err := c.ReadHeader(r)
	if err != nil {
		return nil, err
	}
	if uint64(n) > uint64(limit) {
		return nil, errors.Stage(errors.CodeTooLarge, "read", fmt.Errorf("length %d > limit %d", n, limit))
	}
	buf := make([]byte, n)
	if err := c.ReadPayload(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func writeFull(w io.Writer, b []byte) error {
	n, err := w.Write(b)
	if err != nil {
		return err
	}
	if n != len(b) {
		return io.ErrShortWrite
	}
	return nil
}

// eof turns a clean EOF mid-frame into ErrUnexpectedEOF: the peer went away early.
func eof(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}

func badMagic(got uint32) error {
	return errors.Stage(errors.CodeBadMagic, "read", fmt.Errorf("got 0x%x, expected 0x%x", got, constant.DefaultMagic))
}

// Terminate appends the NUL terminator the text payloads carry on the wire.
func Terminate(text []byte) []byte {
	out := make([]byte, len(text)+1)
	copy(out, text)
	return out
}

// Text returns payload up to its first NUL.
func Text(payload []byte) []byte {
	if i := bytes.IndexByte(payload, 0); i >= 0 {
		return payload[:i]
	}
	return payload
}

// CheckTerminated verifies the declared length is the string length plus its terminator.
func CheckTerminated(payload []byte) error {
	if i := bytes.IndexByte(payload, 0); i < 0 || i+1 != len(payload) {
		return errors.Stage(errors.CodeLenMismatch, "check",
			fmt.Errorf("expected %d, got %d", len(Text(payload))+1, len(payload)))
	}
	return nil
}
