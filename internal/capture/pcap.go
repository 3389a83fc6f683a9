// Package capture exports captured frames as a pcap file that protocol
// analyzers can dissect as DNP3 over TCP.
package capture

import (
	"fmt"
	"io"
	"net"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"avaneesh/dnp3-tester/internal/telemetry"
)

// DefaultPort is the registered DNP3 port, which dissectors key on
const DefaultPort = 20000

const (
	snapLen    = 65535
	clientPort = 50000
)

var (
	hostIP  = net.IP{10, 0, 0, 1}
	peerIP  = net.IP{10, 0, 0, 2}
	hostMAC = net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x01}
	peerMAC = net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x02}
)

// Options controls the synthetic addressing of exported frames
type Options struct {
	// Port is the DNP3 side of the flow. Zero means DefaultPort.
	Port uint16
}

// WritePCAP writes frames as one synthetic TCP flow. TX frames go from the
// tester (10.0.0.1) to the peer (10.0.0.2) and RX frames the other way.
func WritePCAP(w io.Writer, frames []telemetry.RawFrame, opts Options) error {
	port := opts.Port
	if port == 0 {
		port = DefaultPort
	}

	writer := pcapgo.NewWriter(w)
	if err := writer.WriteFileHeader(snapLen, layers.LinkTypeEthernet); err != nil {
		return fmt.Errorf("write pcap header: %w", err)
	}

	var txSeq, rxSeq uint32 = 1, 1
	serOpts := gopacket.SerializeOptions{
		FixLengths:       true,
		ComputeChecksums: true,
	}
	for _, f := range frames {
		eth := &layers.Ethernet{
			SrcMAC:       hostMAC,
			DstMAC:       peerMAC,
			EthernetType: layers.EthernetTypeIPv4,
		}
		ip := &layers.IPv4{
			Version:  4,
			TTL:      64,
			Protocol: layers.IPProtocolTCP,
			SrcIP:    hostIP,
			DstIP:    peerIP,
		}
		tcp := &layers.TCP{
			SrcPort: layers.TCPPort(clientPort),
			DstPort: layers.TCPPort(port),
			ACK:     true,
			PSH:     true,
			Window:  65535,
			Seq:     txSeq,
			Ack:     rxSeq,
		}
		if f.Direction == telemetry.DirectionRX {
			eth.SrcMAC, eth.DstMAC = peerMAC, hostMAC
			ip.SrcIP, ip.DstIP = peerIP, hostIP
			tcp.SrcPort, tcp.DstPort = tcp.DstPort, tcp.SrcPort
			tcp.Seq, tcp.Ack = rxSeq, txSeq
			rxSeq += uint32(len(f.Data))
		} else {
			txSeq += uint32(len(f.Data))
		}
		if err := tcp.SetNetworkLayerForChecksum(ip); err != nil {
			return fmt.Errorf("frame %d: %w", f.ID, err)
		}

		buf := gopacket.NewSerializeBuffer()
		if err := gopacket.SerializeLayers(buf, serOpts, eth, ip, tcp, gopacket.Payload(f.Data)); err != nil {
			return fmt.Errorf("serialize frame %d: %w", f.ID, err)
		}
		packet := buf.Bytes()
		ci := gopacket.CaptureInfo{
			Timestamp:     f.Timestamp,
			CaptureLength: len(packet),
			Length:        len(packet),
		}
		if err := writer.WritePacket(ci, packet); err != nil {
			return fmt.Errorf("write frame %d: %w", f.ID, err)
		}
	}
	return nil
}
