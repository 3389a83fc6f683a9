package transport

// Transport layer constants
const (
	MaxSegmentSize = 249 // link MaxDataSize minus the header byte
	HeaderSize     = 1
)

// Transport header bits
const (
	HeaderFIN uint8 = 0x80
	HeaderFIR uint8 = 0x40
	SeqMask   uint8 = 0x3F
)

// Segment represents a transport layer segment
type Segment struct {
	FIR  bool
	FIN  bool
	Seq  uint8
	Data []byte
}

// ParseSegment splits a link user-data payload into header fields and data
func ParseSegment(data []byte) (*Segment, error) {
	if len(data) < HeaderSize {
		return nil, ErrEmptySegment
	}
	h := data[0]
	return &Segment{
		FIR:  h&HeaderFIR != 0,
		FIN:  h&HeaderFIN != 0,
		Seq:  h & SeqMask,
		Data: data[1:],
	}, nil
}

// Header returns the transport header byte
func (s *Segment) Header() uint8 {
	h := s.Seq & SeqMask
	if s.FIR {
		h |= HeaderFIR
	}
	if s.FIN {
		h |= HeaderFIN
	}
	return h
}

// Serialize converts segment to wire format
func (s *Segment) Serialize() []byte {
	out := make([]byte, 0, HeaderSize+len(s.Data))
	out = append(out, s.Header())
	return append(out, s.Data...)
}

// Split breaks an APDU into segments numbered from seq
func Split(apdu []byte, seq uint8) []*Segment {
	var segments []*Segment
	for offset := 0; offset < len(apdu); {
		end := min(offset+MaxSegmentSize, len(apdu))
		segments = append(segments, &Segment{
			FIR:  offset == 0,
			FIN:  end == len(apdu),
			Seq:  seq & SeqMask,
			Data: apdu[offset:end],
		})
		offset = end
		seq++
	}
	return segments
}
