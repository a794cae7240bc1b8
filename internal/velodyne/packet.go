package velodyne

import (
	"encoding/binary"
	"fmt"
)

// Velodyne HDL data packet layout constants. The HDL-32E and HDL-64E S2
// share the same 1206-byte UDP payload: 12 chunks of 100 bytes followed by a
// 6-byte tail (4-byte microsecond timestamp + 2-byte factory word).
const (
	ChunksPerPacket = 12 // firing chunks per packet
	LasersPerChunk  = 32 // laser samples per chunk (one bank)
	BytesPerLaser   = 3  // 2 bytes distance + 1 byte intensity

	chunkHeaderSize  = 2
	chunkAzimuthSize = 2
	chunkSize        = chunkHeaderSize + chunkAzimuthSize + LasersPerChunk*BytesPerLaser // 100 bytes
	rawTailSize      = 6

	// RawPacketSize is the size of the sensor's UDP payload.
	RawPacketSize = ChunksPerPacket*chunkSize + rawTailSize // 1206 bytes

	// BinaryPacketSize is the size of the serialized DataPacket carried
	// inside Snappy blobs: u64 ns timestamp + 12 chunks + spin count u16 +
	// reserved u32, little-endian throughout.
	BinaryPacketSize = 8 + ChunksPerPacket*chunkSize + 2 + 4 // 1214 bytes

	// Bank headers. Chunks flagged with the lower bank header address
	// lasers 32-63 on the HDL-64E S2; the HDL-32E only emits 0xEEFF.
	UpperBankHeader = 0xEEFF
	LowerBankHeader = 0xDDFF

	// Physical measurement conversion constants.
	DistanceResolution = 0.002 // distance unit: 2mm per LSB
	RotationResolution = 0.01  // rotation unit: 0.01 degrees per LSB
	RotationMaxUnits   = 36000 // 360.00 degrees
)

// LaserData is a single raw laser return.
type LaserData struct {
	Distance  uint16 // raw distance in 2mm units (0 = no return)
	Intensity uint8  // return intensity (0-255)
}

// DataChunk is one firing chunk: all lasers of one bank at one azimuth.
type DataChunk struct {
	HeaderInfo     uint16 // bank header (UpperBankHeader or LowerBankHeader)
	RotationalInfo uint16 // raw azimuth in 0.01-degree units
	Lasers         [LasersPerChunk]LaserData
}

// DataPacket is the fixed-layout record buffered per spin.
type DataPacket struct {
	Timestamp uint64 // nanoseconds
	SpinCount uint16
	Reserved  uint32
	Chunks    [ChunksPerPacket]DataChunk
}

// ParseRaw parses a 1206-byte sensor UDP payload into a DataPacket.
// The tail timestamp (microseconds) is promoted to nanoseconds; the factory
// word lands in Reserved. Raw payloads carry no spin counter.
func ParseRaw(data []byte) (*DataPacket, error) {
	if len(data) != RawPacketSize {
		return nil, fmt.Errorf("invalid packet size: expected %d, got %d", RawPacketSize, len(data))
	}

	p := &DataPacket{}
	off := 0
	for i := 0; i < ChunksPerPacket; i++ {
		header := binary.LittleEndian.Uint16(data[off : off+2])
		if header != UpperBankHeader && header != LowerBankHeader {
			return nil, fmt.Errorf("invalid bank header in chunk %d: 0x%04X", i, header)
		}
		chunk := &p.Chunks[i]
		chunk.HeaderInfo = header
		chunk.RotationalInfo = binary.LittleEndian.Uint16(data[off+2 : off+4])

		laserOff := off + chunkHeaderSize + chunkAzimuthSize
		for j := 0; j < LasersPerChunk; j++ {
			chunk.Lasers[j] = LaserData{
				Distance:  binary.LittleEndian.Uint16(data[laserOff : laserOff+2]),
				Intensity: data[laserOff+2],
			}
			laserOff += BytesPerLaser
		}
		off += chunkSize
	}

	tsMicro := binary.LittleEndian.Uint32(data[off : off+4])
	p.Timestamp = uint64(tsMicro) * 1000
	p.Reserved = uint32(binary.LittleEndian.Uint16(data[off+4 : off+6]))
	return p, nil
}

// ReadBinary deserializes the 1214-byte binary stream layout produced by
// WriteBinary. This is the representation carried inside Snappy blobs.
func (p *DataPacket) ReadBinary(data []byte) error {
	if len(data) != BinaryPacketSize {
		return fmt.Errorf("invalid binary packet size: expected %d, got %d", BinaryPacketSize, len(data))
	}

	p.Timestamp = binary.LittleEndian.Uint64(data[0:8])
	off := 8
	for i := 0; i < ChunksPerPacket; i++ {
		chunk := &p.Chunks[i]
		chunk.HeaderInfo = binary.LittleEndian.Uint16(data[off : off+2])
		chunk.RotationalInfo = binary.LittleEndian.Uint16(data[off+2 : off+4])
		laserOff := off + chunkHeaderSize + chunkAzimuthSize
		for j := 0; j < LasersPerChunk; j++ {
			chunk.Lasers[j] = LaserData{
				Distance:  binary.LittleEndian.Uint16(data[laserOff : laserOff+2]),
				Intensity: data[laserOff+2],
			}
			laserOff += BytesPerLaser
		}
		off += chunkSize
	}
	p.SpinCount = binary.LittleEndian.Uint16(data[off : off+2])
	p.Reserved = binary.LittleEndian.Uint32(data[off+2 : off+6])
	return nil
}

// WriteBinary serializes the packet into the binary stream layout.
func (p *DataPacket) WriteBinary() []byte {
	data := make([]byte, BinaryPacketSize)
	binary.LittleEndian.PutUint64(data[0:8], p.Timestamp)
	off := 8
	for i := 0; i < ChunksPerPacket; i++ {
		chunk := &p.Chunks[i]
		binary.LittleEndian.PutUint16(data[off:off+2], chunk.HeaderInfo)
		binary.LittleEndian.PutUint16(data[off+2:off+4], chunk.RotationalInfo)
		laserOff := off + chunkHeaderSize + chunkAzimuthSize
		for j := 0; j < LasersPerChunk; j++ {
			binary.LittleEndian.PutUint16(data[laserOff:laserOff+2], chunk.Lasers[j].Distance)
			data[laserOff+2] = chunk.Lasers[j].Intensity
			laserOff += BytesPerLaser
		}
		off += chunkSize
	}
	binary.LittleEndian.PutUint16(data[off:off+2], p.SpinCount)
	binary.LittleEndian.PutUint32(data[off+2:off+6], p.Reserved)
	return data
}
