package chunk

import "bytes"

// These predicates intentionally use plain substring matching, not AMF
// decoding: the real AMF payloads carry these tokens adjacent to length
// prefixes, and word-boundary matching would miss them.

// IsPlayRequest reports whether a parsed message's payload is a play
// request for streamKey.
func IsPlayRequest(m Message, streamKey string) bool {
	return m.Parsed && bytes.Contains(m.Payload, []byte("play")) && bytes.Contains(m.Payload, []byte(streamKey))
}

// IsPlayStart reports whether a parsed message's payload is the service's
// NetStream.Play.Start reply.
func IsPlayStart(m Message) bool {
	return m.Parsed && bytes.Contains(m.Payload, []byte("onStatus")) && bytes.Contains(m.Payload, []byte("NetStream.Play.Start"))
}

// IsPublishRequest reports whether a parsed message's payload is a publish
// request for streamKey.
func IsPublishRequest(m Message, streamKey string) bool {
	return m.Parsed && bytes.Contains(m.Payload, []byte("publish")) && bytes.Contains(m.Payload, []byte(streamKey))
}

// IsPublishStart reports whether a parsed message's payload is the
// service's NetStream.Publish.Start reply.
func IsPublishStart(m Message) bool {
	return m.Parsed && bytes.Contains(m.Payload, []byte("onStatus")) && bytes.Contains(m.Payload, []byte("NetStream.Publish.Start"))
}

// IsStreamBegin reports whether a parsed message is a 6-byte control
// message whose first two payload bytes are the Stream Begin event type
// (0x00 0x00).
func IsStreamBegin(m Message) bool {
	return m.Parsed && m.MessageLength == 6 && len(m.Payload) >= 2 && m.Payload[0] == 0x00 && m.Payload[1] == 0x00
}
