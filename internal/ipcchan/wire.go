package ipcchan

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"

	"github.com/google/uuid"
)

// HeaderSize is the encoded size of a frame header.
const HeaderSize = 26

// MaxFrameSize bounds a single frame, header included.
const MaxFrameSize = 64 * 1024

// MaxMessageSize is the largest text payload a Sender accepts.
const MaxMessageSize = MaxFrameSize - HeaderSize

type frameKind uint8

const (
	kindText frameKind = iota + 1
	kindPair
)

func (k frameKind) String() string {
	switch k {
	case kindText:
		return "text"
	case kindPair:
		return "pair"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

type frameHeader struct {
	ID     uuid.UUID
	Kind   frameKind
	NumFDs uint8
	PID    uint32
	Size   uint32
}

type frame struct {
	hdr     frameHeader
	payload []byte
}

func newFrame(kind frameKind, payload []byte, numFDs int) frame {
	return frame{
		hdr: frameHeader{
			ID:     uuid.New(),
			Kind:   kind,
			NumFDs: uint8(numFDs),
			PID:    uint32(os.Getpid()),
			Size:   uint32(len(payload)),
		},
		payload: payload,
	}
}

func (f frame) encode() ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(HeaderSize + len(f.payload))
	if err := binary.Write(&buf, binary.BigEndian, &f.hdr); err != nil {
		return nil, fmt.Errorf("encode frame header: %w", err)
	}
	buf.Write(f.payload)
	if buf.Len() > MaxFrameSize {
		return nil, ErrMessageTooLarge
	}
	return buf.Bytes(), nil
}

func decodeFrame(data []byte) (frame, error) {
	if len(data) < HeaderSize {
		return frame{}, fmt.Errorf("%w: short frame (%d bytes)", ErrInvalidMessage, len(data))
	}
	var hdr frameHeader
	if err := binary.Read(bytes.NewReader(data[:HeaderSize]), binary.BigEndian, &hdr); err != nil {
		return frame{}, fmt.Errorf("%w: decode header: %v", ErrInvalidMessage, err)
	}
	if int(hdr.Size) != len(data)-HeaderSize {
		return frame{}, fmt.Errorf("%w: header size %d, payload %d", ErrInvalidMessage, hdr.Size, len(data)-HeaderSize)
	}
	payload := make([]byte, hdr.Size)
	copy(payload, data[HeaderSize:])
	return frame{hdr: hdr, payload: payload}, nil
}
