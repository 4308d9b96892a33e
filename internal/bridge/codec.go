package bridge

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// MaxReplySize caps a message read from a native host. Chrome applies the
// same 1 MiB limit to host-to-browser messages.
const MaxReplySize = 1 << 20

// ErrReplyTooLarge is returned when a host announces an oversized message.
var ErrReplyTooLarge = errors.New("native host reply exceeds size limit")

// WriteMessage frames v as JSON prefixed with its length as a native-endian
// uint32, the native messaging wire format.
func WriteMessage(w io.Writer, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode native message: %w", err)
	}
	var header [4]byte
	binary.NativeEndian.PutUint32(header[:], uint32(len(payload)))
	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("write native message header: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("write native message body: %w", err)
	}
	return nil
}

// ReadMessage reads one framed message from r and decodes it into v.
func ReadMessage(r io.Reader, v any) error {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return fmt.Errorf("read native message header: %w", err)
	}
	n := binary.NativeEndian.Uint32(header[:])
	if n > MaxReplySize {
		return fmt.Errorf("%w: %d bytes", ErrReplyTooLarge, n)
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return fmt.Errorf("read native message body: %w", err)
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("decode native message: %w", err)
	}
	return nil
}
