//go:build pcap
// +build pcap

package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"
	"github.com/klauspost/compress/snappy"

	"github.com/banshee-data/velodyne.bridge/internal/bridge"
	"github.com/banshee-data/velodyne.bridge/internal/bridge/pb"
	"github.com/banshee-data/velodyne.bridge/internal/bridge/transport"
	"github.com/banshee-data/velodyne.bridge/internal/velodyne"
)

func replay(ctx context.Context) error {
	conn, err := net.Dial("udp", *target)
	if err != nil {
		return fmt.Errorf("failed to dial bridge: %w", err)
	}
	defer conn.Close()

	interval := time.Duration(float64(time.Second) / *rateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		sent, err := replayOnce(ctx, conn, ticker)
		if err != nil {
			return err
		}
		log.Printf("Capture complete: %d packets sent", sent)
		if !*loop || ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func replayOnce(ctx context.Context, conn net.Conn, ticker *time.Ticker) (int, error) {
	handle, err := pcap.OpenOffline(*pcapFile)
	if err != nil {
		return 0, fmt.Errorf("failed to open capture %s: %w", *pcapFile, err)
	}
	defer handle.Close()

	filterStr := fmt.Sprintf("udp port %d", *udpPort)
	if err := handle.SetBPFFilter(filterStr); err != nil {
		return 0, fmt.Errorf("failed to set BPF filter %q: %w", filterStr, err)
	}

	topic := bridge.TopicDataPacket
	if *useSnappy {
		topic = bridge.TopicBinarySnappy
	}

	source := gopacket.NewPacketSource(handle, handle.LinkType())
	sent := 0
	skipped := 0
	var spin uint16
	var lastAzimuth uint16

	for packet := range source.Packets() {
		select {
		case <-ctx.Done():
			return sent, ctx.Err()
		case <-ticker.C:
		}

		udpLayer := packet.Layer(layers.LayerTypeUDP)
		if udpLayer == nil {
			continue
		}
		payload := udpLayer.(*layers.UDP).Payload

		pkt, err := velodyne.ParseRaw(payload)
		if err != nil {
			skipped++
			if skipped%1000 == 1 {
				log.Printf("Skipped %d non-sensor payloads (latest: %v)", skipped, err)
			}
			continue
		}

		// Azimuth wrap marks the start of a new spin.
		azimuth := pkt.Chunks[0].RotationalInfo
		if azimuth < lastAzimuth {
			spin++
		}
		lastAzimuth = azimuth
		pkt.SpinCount = spin

		encoded, err := encodeMessage(pkt, *useSnappy)
		if err != nil {
			return sent, err
		}
		frame, err := transport.EncodeFrame(transport.Frame{Topic: topic, Payload: encoded})
		if err != nil {
			return sent, err
		}
		if _, err := conn.Write(frame); err != nil {
			return sent, fmt.Errorf("failed to send packet: %w", err)
		}
		sent++
	}
	return sent, nil
}

func encodeMessage(pkt *velodyne.DataPacket, compress bool) ([]byte, error) {
	header := &pb.Header{StampNs: int64(pkt.Timestamp)}
	if compress {
		return pb.Marshal(&pb.BinarySnappyMessage{
			Header: header,
			Data:   snappy.Encode(nil, pkt.WriteBinary()),
		})
	}

	msg := &pb.DataPacketMessage{
		Header:    header,
		SpinCount: uint32(pkt.SpinCount),
		Reserved:  pkt.Reserved,
	}
	for i := range pkt.Chunks {
		chunk := &pb.DataChunk{
			HeaderInfo:     uint32(pkt.Chunks[i].HeaderInfo),
			RotationalInfo: uint32(pkt.Chunks[i].RotationalInfo),
		}
		for j := range pkt.Chunks[i].Lasers {
			chunk.LaserData = append(chunk.LaserData, &pb.LaserData{
				Distance:  uint32(pkt.Chunks[i].Lasers[j].Distance),
				Intensity: uint32(pkt.Chunks[i].Lasers[j].Intensity),
			})
		}
		msg.DataChunks = append(msg.DataChunks, chunk)
	}
	return pb.Marshal(msg)
}
