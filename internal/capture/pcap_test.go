package capture

import (
	"bytes"
	"io"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"avaneesh/dnp3-tester/internal/telemetry"
)

func readPackets(t *testing.T, data []byte) []gopacket.Packet {
	t.Helper()
	r, err := pcapgo.NewReader(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, layers.LinkTypeEthernet, r.LinkType())

	var out []gopacket.Packet
	for {
		raw, ci, err := r.ReadPacketData()
		if err == io.EOF {
			return out
		}
		require.NoError(t, err)
		p := gopacket.NewPacket(raw, layers.LayerTypeEthernet, gopacket.Default)
		p.Metadata().CaptureInfo = ci
		out = append(out, p)
	}
}

func TestWritePCAP(t *testing.T) {
	ts := time.Unix(1700000000, 0)
	frames := []telemetry.RawFrame{
		{ID: 1, Timestamp: ts, Direction: telemetry.DirectionTX, Data: []byte{0x05, 0x64, 0x05, 0xC0, 0x0A, 0x00, 0x01, 0x00, 0x00, 0x00}},
		{ID: 2, Timestamp: ts.Add(time.Second), Direction: telemetry.DirectionRX, Data: []byte{0x05, 0x64, 0x05, 0x00, 0x01, 0x00, 0x0A, 0x00, 0x00, 0x00, 0xAA}},
		{ID: 3, Timestamp: ts.Add(2 * time.Second), Direction: telemetry.DirectionTX, Data: []byte{0x05, 0x64, 0x05, 0xC0, 0x0A, 0x00, 0x01, 0x00, 0x00, 0x00}},
	}

	var buf bytes.Buffer
	require.NoError(t, WritePCAP(&buf, frames, Options{}))

	packets := readPackets(t, buf.Bytes())
	require.Len(t, packets, 3)

	for i, p := range packets {
		assert.Equal(t, frames[i].Timestamp.UTC(), p.Metadata().Timestamp.UTC())

		app := p.ApplicationLayer()
		require.NotNil(t, app)
		assert.Equal(t, frames[i].Data, app.Payload())
	}

	first := packets[0].Layer(layers.LayerTypeTCP).(*layers.TCP)
	assert.Equal(t, layers.TCPPort(DefaultPort), first.DstPort)
	assert.Equal(t, uint32(1), first.Seq)
	ip := packets[0].Layer(layers.LayerTypeIPv4).(*layers.IPv4)
	assert.Equal(t, "10.0.0.1", ip.SrcIP.String())

	reply := packets[1].Layer(layers.LayerTypeTCP).(*layers.TCP)
	assert.Equal(t, layers.TCPPort(DefaultPort), reply.SrcPort)
	assert.Equal(t, uint32(1), reply.Seq)
	assert.Equal(t, uint32(11), reply.Ack)
	ip = packets[1].Layer(layers.LayerTypeIPv4).(*layers.IPv4)
	assert.Equal(t, "10.0.0.2", ip.SrcIP.String())

	third := packets[2].Layer(layers.LayerTypeTCP).(*layers.TCP)
	assert.Equal(t, uint32(11), third.Seq)
	assert.Equal(t, uint32(12), third.Ack)
}

func TestWritePCAP_CustomPortAndEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePCAP(&buf, nil, Options{Port: 20001}))
	assert.Empty(t, readPackets(t, buf.Bytes()))

	buf.Reset()
	frames := []telemetry.RawFrame{{ID: 1, Timestamp: time.Now(), Direction: telemetry.DirectionTX, Data: []byte{0x05, 0x64}}}
	require.NoError(t, WritePCAP(&buf, frames, Options{Port: 20001}))

	packets := readPackets(t, buf.Bytes())
	require.Len(t, packets, 1)
	tcp := packets[0].Layer(layers.LayerTypeTCP).(*layers.TCP)
	assert.Equal(t, layers.TCPPort(20001), tcp.DstPort)
}
