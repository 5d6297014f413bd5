package chunk

// Message is a single decoded RTMP chunk: header fields plus the payload
// bytes the message's declared length selected. Parsed is false whenever
// the buffer ran out before the header or payload could be completed; in
// that case every other field is zero-valued and the caller must forward
// the original packet unchanged rather than act on it.
type Message struct {
	FMT             uint8
	CSID            uint32
	Timestamp       uint32
	MessageLength   uint32
	MessageTypeID   uint8
	MessageStreamID uint32
	Payload         []byte
	Parsed          bool
}

// ParseMessages decodes as many complete messages as buf holds, in order.
// It stops and returns as soon as a header or payload cannot be completed,
// appending one final Message{Parsed: false} and an empty remainder — per
// the segmentation rules, a short buffer is never an error, and nothing
// after the unparsed point is returned for the caller to retry. An empty buf
// cannot complete even a basic header, so it yields a single
// Message{Parsed: false} as well. On success (buf fully consumed by whole
// messages) remainder is empty too; the field exists to mirror the
// single-step shape callers may also use directly via ParseChunkHeader.
func ParseMessages(buf []byte, state *ChunkState) (msgs []Message, remainder []byte) {
	if state == nil {
		state = NewChunkState()
	}
	if len(buf) == 0 {
		return []Message{{Parsed: false}}, nil
	}
	cur := buf
	for len(cur) > 0 {
		_, csid, _, ok := parseBasicHeader(cur)
		if !ok {
			msgs = append(msgs, Message{Parsed: false})
			return msgs, nil
		}

		hdr, consumed, ok := ParseChunkHeader(cur, state.Prev(csid))
		if !ok {
			msgs = append(msgs, Message{Parsed: false})
			return msgs, nil
		}

		rest := cur[consumed:]
		if uint32(len(rest)) < hdr.MessageLength {
			msgs = append(msgs, Message{Parsed: false})
			return msgs, nil
		}

		payload := rest[:hdr.MessageLength]
		msgs = append(msgs, Message{
			FMT:             hdr.FMT,
			CSID:            hdr.CSID,
			Timestamp:       hdr.Timestamp,
			MessageLength:   hdr.MessageLength,
			MessageTypeID:   hdr.MessageTypeID,
			MessageStreamID: hdr.MessageStreamID,
			Payload:         payload,
			Parsed:          true,
		})
		state.Store(hdr)
		cur = rest[hdr.MessageLength:]
	}
	return msgs, nil
}
