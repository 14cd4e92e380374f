package protocol

import (
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"
)

// Status values carried in Response.Status.
const (
	StatusOK             = "ok"
	StatusNotFound       = "not_found"
	StatusRejected       = "rejected"
	StatusInvalidRequest = "invalid_request"
)

// wireMessage is implemented by every message in this package. Messages
// travel as protobuf through grpc's default codec.
type wireMessage interface {
	protoName() protoreflect.Name
	toProto(m protoreflect.Message)
	fromProto(m protoreflect.Message)
}

// Marshal returns the protobuf form of a message.
func Marshal(msg wireMessage) *dynamicpb.Message {
	dm := dynamicpb.NewMessage(Descriptor(msg.protoName()))
	msg.toProto(dm)
	return dm
}

// Unmarshal fills msg from its protobuf form.
func Unmarshal(dm protoreflect.ProtoMessage, msg wireMessage) {
	msg.fromProto(dm.ProtoReflect())
}

type NodeInfo struct {
	Id      string `json:"id"`
	Address string `json:"address"`
	Port    int32  `json:"port"`
}

func (*NodeInfo) protoName() protoreflect.Name { return "NodeInfo" }

func (x *NodeInfo) toProto(m protoreflect.Message) {
	if x == nil {
		return
	}
	setString(m, "id", x.Id)
	setString(m, "address", x.Address)
	setInt32(m, "port", x.Port)
}

func (x *NodeInfo) fromProto(m protoreflect.Message) {
	x.Id = getString(m, "id")
	x.Address = getString(m, "address")
	x.Port = getInt32(m, "port")
}

type FileAnnouncement struct {
	Id       string `json:"id"`
	Address  string `json:"address"`
	Port     int32  `json:"port"`
	Filename string `json:"filename"`
}

func (*FileAnnouncement) protoName() protoreflect.Name { return "FileAnnouncement" }

func (x *FileAnnouncement) toProto(m protoreflect.Message) {
	if x == nil {
		return
	}
	setString(m, "id", x.Id)
	setString(m, "address", x.Address)
	setInt32(m, "port", x.Port)
	setString(m, "filename", x.Filename)
}

func (x *FileAnnouncement) fromProto(m protoreflect.Message) {
	x.Id = getString(m, "id")
	x.Address = getString(m, "address")
	x.Port = getInt32(m, "port")
	x.Filename = getString(m, "filename")
}

type FileName struct {
	Filename string `json:"filename"`
}

func (*FileName) protoName() protoreflect.Name { return "FileName" }

func (x *FileName) toProto(m protoreflect.Message) {
	if x == nil {
		return
	}
	setString(m, "filename", x.Filename)
}

func (x *FileName) fromProto(m protoreflect.Message) {
	x.Filename = getString(m, "filename")
}

type NodeLocation struct {
	Id      string `json:"id"`
	Address string `json:"address"`
	Port    int32  `json:"port"`
}

func (*NodeLocation) protoName() protoreflect.Name { return "NodeLocation" }

func (x *NodeLocation) toProto(m protoreflect.Message) {
	if x == nil {
		return
	}
	setString(m, "id", x.Id)
	setString(m, "address", x.Address)
	setInt32(m, "port", x.Port)
}

func (x *NodeLocation) fromProto(m protoreflect.Message) {
	x.Id = getString(m, "id")
	x.Address = getString(m, "address")
	x.Port = getInt32(m, "port")
}

type NodeLocationList struct {
	Nodes []*NodeLocation `json:"nodes"`
}

func (*NodeLocationList) protoName() protoreflect.Name { return "NodeLocationList" }

func (x *NodeLocationList) toProto(m protoreflect.Message) {
	if x == nil || len(x.Nodes) == 0 {
		return
	}
	nodes := m.Mutable(fieldOf(m, "nodes")).List()
	for _, n := range x.Nodes {
		elem := nodes.NewElement()
		n.toProto(elem.Message())
		nodes.Append(elem)
	}
}

func (x *NodeLocationList) fromProto(m protoreflect.Message) {
	nodes := m.Get(fieldOf(m, "nodes")).List()
	x.Nodes = make([]*NodeLocation, 0, nodes.Len())
	for i := 0; i < nodes.Len(); i++ {
		loc := new(NodeLocation)
		loc.fromProto(nodes.Get(i).Message())
		x.Nodes = append(x.Nodes, loc)
	}
}

type FileList struct {
	Filenames []string `json:"filenames"`
}

func (*FileList) protoName() protoreflect.Name { return "FileList" }

func (x *FileList) toProto(m protoreflect.Message) {
	if x == nil || len(x.Filenames) == 0 {
		return
	}
	names := m.Mutable(fieldOf(m, "filenames")).List()
	for _, name := range x.Filenames {
		names.Append(protoreflect.ValueOfString(name))
	}
}

func (x *FileList) fromProto(m protoreflect.Message) {
	names := m.Get(fieldOf(m, "filenames")).List()
	x.Filenames = nil
	for i := 0; i < names.Len(); i++ {
		x.Filenames = append(x.Filenames, names.Get(i).String())
	}
}

// Response is the acknowledgement returned by every mutating RPC.
type Response struct {
	Message string `json:"message"`
	Status  string `json:"status"`
}

func (r *Response) OK() bool {
	return r != nil && r.Status == StatusOK
}

func (*Response) protoName() protoreflect.Name { return "Response" }

func (x *Response) toProto(m protoreflect.Message) {
	if x == nil {
		return
	}
	setString(m, "message", x.Message)
	setString(m, "status", x.Status)
}

func (x *Response) fromProto(m protoreflect.Message) {
	x.Message = getString(m, "message")
	x.Status = getString(m, "status")
}

type FileDownloadRequest struct {
	Filename string `json:"filename"`
}

func (*FileDownloadRequest) protoName() protoreflect.Name { return "FileDownloadRequest" }

func (x *FileDownloadRequest) toProto(m protoreflect.Message) {
	if x == nil {
		return
	}
	setString(m, "filename", x.Filename)
}

func (x *FileDownloadRequest) fromProto(m protoreflect.Message) {
	x.Filename = getString(m, "filename")
}

type FileContent struct {
	Filename string `json:"filename"`
	Content  []byte `json:"content"`
}

func (*FileContent) protoName() protoreflect.Name { return "FileContent" }

func (x *FileContent) toProto(m protoreflect.Message) {
	if x == nil {
		return
	}
	setString(m, "filename", x.Filename)
	if len(x.Content) > 0 {
		m.Set(fieldOf(m, "content"), protoreflect.ValueOfBytes(x.Content))
	}
}

func (x *FileContent) fromProto(m protoreflect.Message) {
	x.Filename = getString(m, "filename")
	x.Content = nil
	if b := m.Get(fieldOf(m, "content")).Bytes(); len(b) > 0 {
		x.Content = append([]byte(nil), b...)
	}
}

func fieldOf(m protoreflect.Message, name protoreflect.Name) protoreflect.FieldDescriptor {
	return m.Descriptor().Fields().ByName(name)
}

// Zero values are left unset, matching proto3 implicit presence.
func setString(m protoreflect.Message, name protoreflect.Name, v string) {
	if v != "" {
		m.Set(fieldOf(m, name), protoreflect.ValueOfString(v))
	}
}

func setInt32(m protoreflect.Message, name protoreflect.Name, v int32) {
	if v != 0 {
		m.Set(fieldOf(m, name), protoreflect.ValueOfInt32(v))
	}
}

func getString(m protoreflect.Message, name protoreflect.Name) string {
	return m.Get(fieldOf(m, name)).String()
}

func getInt32(m protoreflect.Message, name protoreflect.Name) int32 {
	return int32(m.Get(fieldOf(m, name)).Int())
}
