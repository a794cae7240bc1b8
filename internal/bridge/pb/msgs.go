// Package pb contains the wire types for the bridge's packet and point
// cloud streams, plus the PointCloudService gRPC bindings.
//
// The message bindings are maintained by hand in the legacy struct-tag form
// understood by google.golang.org/protobuf via protoadapt, so builds do not
// depend on protoc. pointcloud.proto is the schema reference.
package pb

import (
	"google.golang.org/protobuf/encoding/prototext"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/protoadapt"
)

// PointFieldFloat32 is the PointField datatype for 32-bit floats.
const PointFieldFloat32 = 7

// Header carries the per-message timestamp and coordinate frame id.
type Header struct {
	StampNs int64  `protobuf:"varint,1,opt,name=stamp_ns,json=stampNs" json:"stamp_ns,omitempty"`
	FrameId string `protobuf:"bytes,2,opt,name=frame_id,json=frameId" json:"frame_id,omitempty"`
}

func (m *Header) Reset()         { *m = Header{} }
func (m *Header) String() string { return msgString(m) }
func (*Header) ProtoMessage()    {}

// LaserData is a single raw laser return.
type LaserData struct {
	Distance  uint32 `protobuf:"varint,1,opt,name=distance" json:"distance,omitempty"`
	Intensity uint32 `protobuf:"varint,2,opt,name=intensity" json:"intensity,omitempty"`
}

func (m *LaserData) Reset()         { *m = LaserData{} }
func (m *LaserData) String() string { return msgString(m) }
func (*LaserData) ProtoMessage()    {}

// DataChunk is one firing chunk: 32 laser returns at one azimuth.
type DataChunk struct {
	HeaderInfo     uint32       `protobuf:"varint,1,opt,name=header_info,json=headerInfo" json:"header_info,omitempty"`
	RotationalInfo uint32       `protobuf:"varint,2,opt,name=rotational_info,json=rotationalInfo" json:"rotational_info,omitempty"`
	LaserData      []*LaserData `protobuf:"bytes,3,rep,name=laser_data,json=laserData" json:"laser_data,omitempty"`
}

func (m *DataChunk) Reset()         { *m = DataChunk{} }
func (m *DataChunk) String() string { return msgString(m) }
func (*DataChunk) ProtoMessage()    {}

// DataPacketMessage is the uncompressed packet stream message.
type DataPacketMessage struct {
	Header     *Header      `protobuf:"bytes,1,opt,name=header" json:"header,omitempty"`
	DataChunks []*DataChunk `protobuf:"bytes,2,rep,name=data_chunks,json=dataChunks" json:"data_chunks,omitempty"`
	SpinCount  uint32       `protobuf:"varint,3,opt,name=spin_count,json=spinCount" json:"spin_count,omitempty"`
	Reserved   uint32       `protobuf:"varint,4,opt,name=reserved" json:"reserved,omitempty"`
}

func (m *DataPacketMessage) Reset()         { *m = DataPacketMessage{} }
func (m *DataPacketMessage) String() string { return msgString(m) }
func (*DataPacketMessage) ProtoMessage()    {}

// BinarySnappyMessage carries a Snappy-compressed binary packet record.
type BinarySnappyMessage struct {
	Header *Header `protobuf:"bytes,1,opt,name=header" json:"header,omitempty"`
	Data   []byte  `protobuf:"bytes,2,opt,name=data" json:"data,omitempty"`
}

func (m *BinarySnappyMessage) Reset()         { *m = BinarySnappyMessage{} }
func (m *BinarySnappyMessage) String() string { return msgString(m) }
func (*BinarySnappyMessage) ProtoMessage()    {}

// PointField describes one field of the packed point layout.
type PointField struct {
	Name     string `protobuf:"bytes,1,opt,name=name" json:"name,omitempty"`
	Offset   uint32 `protobuf:"varint,2,opt,name=offset" json:"offset,omitempty"`
	Datatype uint32 `protobuf:"varint,3,opt,name=datatype" json:"datatype,omitempty"`
	Count    uint32 `protobuf:"varint,4,opt,name=count" json:"count,omitempty"`
}

func (m *PointField) Reset()         { *m = PointField{} }
func (m *PointField) String() string { return msgString(m) }
func (*PointField) ProtoMessage()    {}

// PointCloud2 is the packed two-dimensional point cloud wire format.
type PointCloud2 struct {
	Header      *Header       `protobuf:"bytes,1,opt,name=header" json:"header,omitempty"`
	Height      uint32        `protobuf:"varint,2,opt,name=height" json:"height,omitempty"`
	Width       uint32        `protobuf:"varint,3,opt,name=width" json:"width,omitempty"`
	Fields      []*PointField `protobuf:"bytes,4,rep,name=fields" json:"fields,omitempty"`
	IsBigendian bool          `protobuf:"varint,5,opt,name=is_bigendian,json=isBigendian" json:"is_bigendian,omitempty"`
	PointStep   uint32        `protobuf:"varint,6,opt,name=point_step,json=pointStep" json:"point_step,omitempty"`
	RowStep     uint32        `protobuf:"varint,7,opt,name=row_step,json=rowStep" json:"row_step,omitempty"`
	Data        []byte        `protobuf:"bytes,8,opt,name=data" json:"data,omitempty"`
	IsDense     bool          `protobuf:"varint,9,opt,name=is_dense,json=isDense" json:"is_dense,omitempty"`
}

func (m *PointCloud2) Reset()         { *m = PointCloud2{} }
func (m *PointCloud2) String() string { return msgString(m) }
func (*PointCloud2) ProtoMessage()    {}

// StreamRequest opens a cloud stream.
type StreamRequest struct {
	ClientName string `protobuf:"bytes,1,opt,name=client_name,json=clientName" json:"client_name,omitempty"`
}

func (m *StreamRequest) Reset()         { *m = StreamRequest{} }
func (m *StreamRequest) String() string { return msgString(m) }
func (*StreamRequest) ProtoMessage()    {}

// Marshal encodes a message to protobuf wire format.
func Marshal(m protoadapt.MessageV1) ([]byte, error) {
	return proto.Marshal(protoadapt.MessageV2Of(m))
}

// Unmarshal decodes protobuf wire format into a message.
func Unmarshal(b []byte, m protoadapt.MessageV1) error {
	return proto.Unmarshal(b, protoadapt.MessageV2Of(m))
}

func msgString(m protoadapt.MessageV1) string {
	return prototext.MarshalOptions{Multiline: false}.Format(protoadapt.MessageV2Of(m))
}
