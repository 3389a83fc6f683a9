package transport

import (
	"bytes"
	"errors"
	"sync"
)

var (
	ErrEmptySegment   = errors.New("empty transport segment")
	ErrBufferOverflow = errors.New("reassembly buffer overflow")
)

// MaxReassemblySize bounds a reassembled APDU
const MaxReassemblySize = 2048

// Layer segments outgoing APDUs and reassembles incoming ones.
// A Layer belongs to one association and is safe for concurrent use.
type Layer struct {
	mu         sync.Mutex
	txSeq      uint8
	buf        bytes.Buffer
	rxSeq      uint8
	inProgress bool
}

// NewLayer creates a new transport layer
func NewLayer() *Layer {
	return &Layer{}
}

// Send segments an APDU into link payloads
func (l *Layer) Send(apdu []byte) [][]byte {
	if len(apdu) == 0 {
		return nil
	}

	l.mu.Lock()
	segments := Split(apdu, l.txSeq)
	l.txSeq = (l.txSeq + uint8(len(segments))) & SeqMask
	l.mu.Unlock()

	out := make([][]byte, len(segments))
	for i, seg := range segments {
		out[i] = seg.Serialize()
	}
	return out
}

// Receive feeds one link payload and returns a complete APDU once the FIN segment arrives.
// Segments out of order are dropped and reassembly waits for the next FIR.
func (l *Layer) Receive(data []byte) ([]byte, error) {
	seg, err := ParseSegment(data)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if seg.FIR {
		l.buf.Reset()
		l.inProgress = true
		l.rxSeq = seg.Seq
	} else if !l.inProgress {
		return nil, nil
	}

	if seg.Seq != l.rxSeq {
		l.resetRx()
		return nil, nil
	}
	if l.buf.Len()+len(seg.Data) > MaxReassemblySize {
		l.resetRx()
		return nil, ErrBufferOverflow
	}

	l.buf.Write(seg.Data)
	l.rxSeq = (l.rxSeq + 1) & SeqMask

	if !seg.FIN {
		return nil, nil
	}
	apdu := bytes.Clone(l.buf.Bytes())
	l.resetRx()
	return apdu, nil
}

// Reset clears both directions
func (l *Layer) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.txSeq = 0
	l.resetRx()
}

func (l *Layer) resetRx() {
	l.buf.Reset()
	l.inProgress = false
	l.rxSeq = 0
}
