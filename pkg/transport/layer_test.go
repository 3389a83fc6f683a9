package transport

import (
	"bytes"
	"errors"
	"testing"
)

func TestLayer_SingleSegment(t *testing.T) {
	l := NewLayer()
	payloads := l.Send([]byte{0xC0, 0x01, 0x3C, 0x02, 0x06})
	if len(payloads) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(payloads))
	}
	if payloads[0][0] != HeaderFIR|HeaderFIN {
		t.Errorf("header = 0x%02X, want 0xC0", payloads[0][0])
	}

	rx := NewLayer()
	apdu, err := rx.Receive(payloads[0])
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	if !bytes.Equal(apdu, []byte{0xC0, 0x01, 0x3C, 0x02, 0x06}) {
		t.Errorf("apdu = % x", apdu)
	}
}

func TestLayer_MultiSegmentRoundTrip(t *testing.T) {
	apdu := make([]byte, 600)
	for i := range apdu {
		apdu[i] = byte(i)
	}

	tx := NewLayer()
	payloads := tx.Send(apdu)
	if len(payloads) != 3 {
		t.Fatalf("expected 3 segments, got %d", len(payloads))
	}

	rx := NewLayer()
	var got []byte
	for i, p := range payloads {
		out, err := rx.Receive(p)
		if err != nil {
			t.Fatalf("segment %d: %v", i, err)
		}
		if i < len(payloads)-1 && out != nil {
			t.Fatalf("segment %d returned early", i)
		}
		got = out
	}
	if !bytes.Equal(got, apdu) {
		t.Error("reassembled apdu differs")
	}
}

func TestLayer_SequenceAdvances(t *testing.T) {
	l := NewLayer()
	first := l.Send([]byte{1})
	second := l.Send([]byte{2})
	if first[0][0]&SeqMask != 0 || second[0][0]&SeqMask != 1 {
		t.Errorf("sequence = %d, %d", first[0][0]&SeqMask, second[0][0]&SeqMask)
	}
}

func TestLayer_DropsOutOfOrder(t *testing.T) {
	rx := NewLayer()
	if out, _ := rx.Receive([]byte{HeaderFIR | 0x05, 0xAA}); out != nil {
		t.Fatal("first segment should not complete")
	}
	// Wrong sequence resets reassembly
	if out, _ := rx.Receive([]byte{HeaderFIN | 0x09, 0xBB}); out != nil {
		t.Fatal("out of order segment should be dropped")
	}
	// Non-FIR without reassembly in progress is ignored
	if out, _ := rx.Receive([]byte{HeaderFIN | 0x06, 0xBB}); out != nil {
		t.Fatal("segment without FIR should be ignored")
	}
}

func TestLayer_EmptySegment(t *testing.T) {
	if _, err := NewLayer().Receive(nil); !errors.Is(err, ErrEmptySegment) {
		t.Errorf("expected ErrEmptySegment, got %v", err)
	}
}
