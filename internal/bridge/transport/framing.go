// Package transport carries topic-addressed packet frames to the bridge
// over UDP (best-effort) or TCP (reliable). Both carriers share one frame
// codec: a length-prefixed topic string followed by a length-prefixed
// payload, little-endian.
package transport

import (
	"encoding/binary"
	"fmt"
	"io"
)

// MaxPayloadSize bounds a single frame payload. Velodyne packet messages
// are ~4KB encoded; the bound exists to reject corrupt length prefixes on
// the TCP stream before allocating.
const MaxPayloadSize = 1 << 20

// MaxTopicLen bounds the topic string in a frame.
const MaxTopicLen = 256

const frameHeaderSize = 2 + 4 // u16 topic length + u32 payload length

// Frame is one topic-addressed message on the wire.
type Frame struct {
	Topic   string
	Payload []byte
}

// EncodeFrame serializes a frame. A UDP datagram carries exactly one
// encoded frame; a TCP stream carries them back to back.
func EncodeFrame(f Frame) ([]byte, error) {
	if len(f.Topic) > MaxTopicLen {
		return nil, fmt.Errorf("topic too long: %d bytes", len(f.Topic))
	}
	if len(f.Payload) > MaxPayloadSize {
		return nil, fmt.Errorf("payload too large: %d bytes", len(f.Payload))
	}

	buf := make([]byte, frameHeaderSize+len(f.Topic)+len(f.Payload))
	binary.LittleEndian.PutUint16(buf[0:2], uint16(len(f.Topic)))
	binary.LittleEndian.PutUint32(buf[2:6], uint32(len(f.Payload)))
	copy(buf[frameHeaderSize:], f.Topic)
	copy(buf[frameHeaderSize+len(f.Topic):], f.Payload)
	return buf, nil
}

// DecodeFrame parses a complete encoded frame, as received in a datagram.
func DecodeFrame(data []byte) (Frame, error) {
	if len(data) < frameHeaderSize {
		return Frame{}, fmt.Errorf("frame too short: %d bytes", len(data))
	}
	topicLen := int(binary.LittleEndian.Uint16(data[0:2]))
	payloadLen := int(binary.LittleEndian.Uint32(data[2:6]))
	if topicLen > MaxTopicLen {
		return Frame{}, fmt.Errorf("topic length %d exceeds limit", topicLen)
	}
	if payloadLen > MaxPayloadSize {
		return Frame{}, fmt.Errorf("payload length %d exceeds limit", payloadLen)
	}
	if len(data) != frameHeaderSize+topicLen+payloadLen {
		return Frame{}, fmt.Errorf("frame length mismatch: have %d bytes, header says %d",
			len(data), frameHeaderSize+topicLen+payloadLen)
	}

	payload := make([]byte, payloadLen)
	copy(payload, data[frameHeaderSize+topicLen:])
	return Frame{
		Topic:   string(data[frameHeaderSize : frameHeaderSize+topicLen]),
		Payload: payload,
	}, nil
}

// ReadFrame reads one frame from a stream.
func ReadFrame(r io.Reader) (Frame, error) {
	var header [frameHeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return Frame{}, err
	}
	topicLen := int(binary.LittleEndian.Uint16(header[0:2]))
	payloadLen := int(binary.LittleEndian.Uint32(header[2:6]))
	if topicLen > MaxTopicLen {
		return Frame{}, fmt.Errorf("topic length %d exceeds limit", topicLen)
	}
	if payloadLen > MaxPayloadSize {
		return Frame{}, fmt.Errorf("payload length %d exceeds limit", payloadLen)
	}

	body := make([]byte, topicLen+payloadLen)
	if _, err := io.ReadFull(r, body); err != nil {
		return Frame{}, err
	}
	return Frame{
		Topic:   string(body[:topicLen]),
		Payload: body[topicLen:],
	}, nil
}

// WriteFrame writes one encoded frame to a stream.
func WriteFrame(w io.Writer, f Frame) error {
	buf, err := EncodeFrame(f)
	if err != nil {
		return err
	}
	_, err = w.Write(buf)
	return err
}
