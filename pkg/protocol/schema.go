package protocol

import (
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/descriptorpb"
)

// ProtoPackage is the protobuf package of storage.proto.
const ProtoPackage = "storage"

// storageFile describes storage.proto. Field numbers follow declaration
// order, so peers built from the .proto file interoperate byte for byte.
var storageFile protoreflect.FileDescriptor

func init() {
	fd, err := protodesc.NewFile(storageFileProto(), nil)
	if err != nil {
		panic(fmt.Sprintf("protocol: invalid storage.proto descriptor: %v", err))
	}
	storageFile = fd
}

func storageFileProto() *descriptorpb.FileDescriptorProto {
	var (
		str   = descriptorpb.FieldDescriptorProto_TYPE_STRING
		i32   = descriptorpb.FieldDescriptorProto_TYPE_INT32
		raw   = descriptorpb.FieldDescriptorProto_TYPE_BYTES
		msg   = descriptorpb.FieldDescriptorProto_TYPE_MESSAGE
		plain = descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL
		list  = descriptorpb.FieldDescriptorProto_LABEL_REPEATED
	)

	return &descriptorpb.FileDescriptorProto{
		Name:    proto.String("storage.proto"),
		Package: proto.String(ProtoPackage),
		Syntax:  proto.String("proto3"),
		MessageType: []*descriptorpb.DescriptorProto{
			message("NodeInfo",
				field("id", 1, str, plain),
				field("address", 2, str, plain),
				field("port", 3, i32, plain),
			),
			message("FileAnnouncement",
				field("id", 1, str, plain),
				field("address", 2, str, plain),
				field("port", 3, i32, plain),
				field("filename", 4, str, plain),
			),
			message("FileName",
				field("filename", 1, str, plain),
			),
			message("NodeLocation",
				field("id", 1, str, plain),
				field("address", 2, str, plain),
				field("port", 3, i32, plain),
			),
			message("NodeLocationList",
				withType(field("nodes", 1, msg, list), ".storage.NodeLocation"),
			),
			message("FileList",
				field("filenames", 1, str, list),
			),
			message("Response",
				field("message", 1, str, plain),
				field("status", 2, str, plain),
			),
			message("FileDownloadRequest",
				field("filename", 1, str, plain),
			),
			message("FileContent",
				field("filename", 1, str, plain),
				field("content", 2, raw, plain),
			),
		},
	}
}

func message(name string, fields ...*descriptorpb.FieldDescriptorProto) *descriptorpb.DescriptorProto {
	return &descriptorpb.DescriptorProto{
		Name:  proto.String(name),
		Field: fields,
	}
}

func field(name string, number int32, typ descriptorpb.FieldDescriptorProto_Type, label descriptorpb.FieldDescriptorProto_Label) *descriptorpb.FieldDescriptorProto {
	return &descriptorpb.FieldDescriptorProto{
		Name:   proto.String(name),
		Number: proto.Int32(number),
		Type:   typ.Enum(),
		Label:  label.Enum(),
	}
}

func withType(f *descriptorpb.FieldDescriptorProto, typeName string) *descriptorpb.FieldDescriptorProto {
	f.TypeName = proto.String(typeName)
	return f
}

// Descriptor returns the protobuf descriptor of a storage.proto message.
func Descriptor(name protoreflect.Name) protoreflect.MessageDescriptor {
	md := storageFile.Messages().ByName(name)
	if md == nil {
		panic(fmt.Sprintf("protocol: unknown message %s", name))
	}
	return md
}
