// Package envelope wraps a payload in a small FlatBuffers table so consumers of
// the command tap can read topic, timestamp and content type without parsing JSON.
//
// Schema:
//
//	table Envelope {
//	  topic: string;        // slot 0
//	  timestamp_ns: long;   // slot 1
//	  content_type: ubyte;  // slot 2
//	  payload: [ubyte];     // slot 3
//	}
package envelope

import (
	"errors"

	flatbuffers "github.com/google/flatbuffers/go"
)

// ContentType describes the payload encoding.
type ContentType byte

const (
	ContentTypeUnknown     ContentType = 0
	ContentTypeJSONCommand ContentType = 1
)

const fieldCount = 4

// ErrTruncated is returned when a buffer is too short to hold an envelope.
var ErrTruncated = errors.New("envelope buffer truncated")

// Envelope is a read view over a finished buffer.
type Envelope struct {
	_tab flatbuffers.Table
}

// GetRootAsEnvelope reads the root table at offset.
func GetRootAsEnvelope(buf []byte, offset flatbuffers.UOffsetT) *Envelope {
	n := flatbuffers.GetUOffsetT(buf[offset:])
	x := &Envelope{}
	x.Init(buf, n+offset)
	return x
}

func (rcv *Envelope) Init(buf []byte, i flatbuffers.UOffsetT) {
	rcv._tab.Bytes = buf
	rcv._tab.Pos = i
}

func (rcv *Envelope) Topic() []byte {
	o := flatbuffers.UOffsetT(rcv._tab.Offset(4))
	if o != 0 {
		return rcv._tab.ByteVector(o + rcv._tab.Pos)
	}
	return nil
}

func (rcv *Envelope) TimestampNs() int64 {
	o := flatbuffers.UOffsetT(rcv._tab.Offset(6))
	if o != 0 {
		return rcv._tab.GetInt64(o + rcv._tab.Pos)
	}
	return 0
}

func (rcv *Envelope) ContentType() ContentType {
	o := flatbuffers.UOffsetT(rcv._tab.Offset(8))
	if o != 0 {
		return ContentType(rcv._tab.GetByte(o + rcv._tab.Pos))
	}
	return ContentTypeUnknown
}

func (rcv *Envelope) PayloadBytes() []byte {
	o := flatbuffers.UOffsetT(rcv._tab.Offset(10))
	if o != 0 {
		return rcv._tab.ByteVector(o + rcv._tab.Pos)
	}
	return nil
}

func EnvelopeStart(builder *flatbuffers.Builder) {
	builder.StartObject(fieldCount)
}

func EnvelopeAddTopic(builder *flatbuffers.Builder, topic flatbuffers.UOffsetT) {
	builder.PrependUOffsetTSlot(0, topic, 0)
}

func EnvelopeAddTimestampNs(builder *flatbuffers.Builder, timestampNs int64) {
	builder.PrependInt64Slot(1, timestampNs, 0)
}

func EnvelopeAddContentType(builder *flatbuffers.Builder, contentType ContentType) {
	builder.PrependByteSlot(2, byte(contentType), 0)
}

func EnvelopeAddPayload(builder *flatbuffers.Builder, payload flatbuffers.UOffsetT) {
	builder.PrependUOffsetTSlot(3, payload, 0)
}

func EnvelopeEnd(builder *flatbuffers.Builder) flatbuffers.UOffsetT {
	return builder.EndObject()
}

// Build serialises a complete envelope.
func Build(topic string, timestampNs int64, contentType ContentType, payload []byte) []byte {
	builder := flatbuffers.NewBuilder(64 + len(topic) + len(payload))
	topicOffset := builder.CreateString(topic)
	payloadOffset := builder.CreateByteVector(payload)

	EnvelopeStart(builder)
	EnvelopeAddTopic(builder, topicOffset)
	EnvelopeAddTimestampNs(builder, timestampNs)
	EnvelopeAddContentType(builder, contentType)
	EnvelopeAddPayload(builder, payloadOffset)
	builder.Finish(EnvelopeEnd(builder))

	return builder.FinishedBytes()
}

// Read parses a buffer produced by Build.
func Read(buf []byte) (*Envelope, error) {
	if len(buf) < flatbuffers.SizeUOffsetT {
		return nil, ErrTruncated
	}
	return GetRootAsEnvelope(buf, 0), nil
}
