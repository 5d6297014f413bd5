package chunk

// ChunkState remembers the last header seen per chunk stream id, the only
// state FMT2/FMT3 header compression depends on. Unlike a full dechunker
// this package never reassembles a message across more than one header: the
// controller only sniffs RTMP signaling, so "state" here is purely header
// inheritance, not in-flight payload buffering.
type ChunkState struct {
	prev map[uint32]*ChunkHeader
}

// NewChunkState returns an empty per-CSID header cache.
func NewChunkState() *ChunkState {
	return &ChunkState{prev: make(map[uint32]*ChunkHeader)}
}

// Prev returns the last header recorded for csid, or nil.
func (s *ChunkState) Prev(csid uint32) *ChunkHeader {
	if s == nil {
		return nil
	}
	return s.prev[csid]
}

// Store records h as the most recent header for its chunk stream id.
func (s *ChunkState) Store(h *ChunkHeader) {
	if s == nil || h == nil {
		return
	}
	s.prev[h.CSID] = h
}
