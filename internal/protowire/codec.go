package protowire

import (
	"fmt"
	"strings"

	"github.com/jhump/protoreflect/desc"
	"github.com/jhump/protoreflect/desc/protoparse"
	"github.com/jhump/protoreflect/dynamic"
	"google.golang.org/protobuf/types/descriptorpb"

	"github.com/funvibe/funion/pkg/envelope"
	"github.com/funvibe/funion/pkg/schema"
)

// Codec moves envelope values through the generated protobuf form of
// one union. Only declared fields travel: undeclared extras carried by
// a value are dropped on encode.
type Codec struct {
	union   *schema.Union
	source  string
	message *desc.MessageDescriptor
	tag     *desc.FieldDescriptor
	bodies  map[string]*desc.FieldDescriptor
}

// NewCodec renders the union's .proto source, parses it through an
// in-memory accessor, and resolves the Envelope descriptors.
func NewCodec(u *schema.Union) (*Codec, error) {
	src, err := ProtoSource(u)
	if err != nil {
		return nil, err
	}

	filename := strings.ToLower(u.Name()) + ".proto"
	parser := protoparse.Parser{
		Accessor: protoparse.FileContentsFromMap(map[string]string{filename: src}),
	}
	fds, err := parser.ParseFiles(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to parse generated proto: %v", err)
	}

	env := fds[0].FindMessage(protoPackage + ".Envelope")
	if env == nil {
		return nil, fmt.Errorf("generated proto for union %s has no Envelope message", u.Name())
	}

	c := &Codec{
		union:   u,
		source:  src,
		message: env,
		tag:     env.FindFieldByName("tag"),
		bodies:  make(map[string]*desc.FieldDescriptor, u.Len()),
	}
	for _, tag := range u.Tags() {
		bf := env.FindFieldByName(tag)
		if bf == nil {
			return nil, fmt.Errorf("generated proto for union %s has no %q body field", u.Name(), tag)
		}
		c.bodies[tag] = bf
	}
	return c, nil
}

// Union returns the schema union the codec is bound to.
func (c *Codec) Union() *schema.Union {
	return c.union
}

// Source returns the generated .proto source backing the codec.
func (c *Codec) Source() string {
	return c.source
}

// Encode marshals a value into the union's Envelope message.
func (c *Codec) Encode(v *envelope.Value) ([]byte, error) {
	if v.Union() != c.union {
		return nil, fmt.Errorf("value belongs to union %s, codec is bound to %s", v.Union().Name(), c.union.Name())
	}

	bf := c.bodies[v.Tag()]
	body := dynamic.NewMessage(bf.GetMessageType())
	for _, f := range v.Variant().Fields() {
		if !v.Has(f.Name) {
			continue
		}
		fd := body.GetMessageDescriptor().FindFieldByName(f.Name)
		pv, err := c.fieldToProto(v, f.Name, fd)
		if err != nil {
			return nil, fmt.Errorf("union %s: variant %q: %v", c.union.Name(), v.Tag(), err)
		}
		body.SetField(fd, pv)
	}

	env := dynamic.NewMessage(c.message)
	env.SetField(c.tag, v.Tag())
	env.SetField(bf, body)
	return env.Marshal()
}

// Decode unmarshals an Envelope and re-classifies its tag through the
// union, so a tag that is no longer declared fails the same way any
// other undeclared tag does. An envelope whose body field does not
// match its tag is a decode error.
func (c *Codec) Decode(data []byte) (*envelope.Value, error) {
	env := dynamic.NewMessage(c.message)
	if err := env.Unmarshal(data); err != nil {
		return nil, fmt.Errorf("proto unmarshal error: %v", err)
	}

	tag, _ := env.GetField(c.tag).(string)
	if tag == "" {
		return nil, fmt.Errorf("union %s: envelope has no tag", c.union.Name())
	}
	variant, err := c.union.VariantOf(tag)
	if err != nil {
		return nil, err
	}

	body, ok := env.GetField(c.bodies[tag]).(*dynamic.Message)
	if !ok || body == nil {
		return nil, fmt.Errorf("union %s: envelope tagged %q carries no %s body", c.union.Name(), tag, tag)
	}

	fields := make(map[string]any, len(variant.Fields()))
	md := body.GetMessageDescriptor()
	for _, f := range variant.Fields() {
		fd := md.FindFieldByName(f.Name)
		if f.Optional && !body.HasField(fd) {
			continue
		}
		fv, err := protoToField(fd, body.GetField(fd))
		if err != nil {
			return nil, fmt.Errorf("union %s: variant %q: %v", c.union.Name(), tag, err)
		}
		fields[f.Name] = fv
	}
	return envelope.New(c.union, tag, fields)
}

func (c *Codec) fieldToProto(v *envelope.Value, name string, fd *desc.FieldDescriptor) (interface{}, error) {
	switch fd.GetType() {
	case descriptorpb.FieldDescriptorProto_TYPE_INT64:
		n, err := v.Int(name)
		if err != nil {
			return nil, err
		}
		return n, nil
	case descriptorpb.FieldDescriptorProto_TYPE_DOUBLE:
		f, err := v.Float(name)
		if err != nil {
			return nil, err
		}
		return f, nil
	case descriptorpb.FieldDescriptorProto_TYPE_BOOL:
		b, err := v.Bool(name)
		if err != nil {
			return nil, err
		}
		return b, nil
	case descriptorpb.FieldDescriptorProto_TYPE_STRING:
		s, err := v.Str(name)
		if err != nil {
			return nil, err
		}
		return s, nil
	case descriptorpb.FieldDescriptorProto_TYPE_BYTES:
		b, err := v.Bytes(name)
		if err != nil {
			return nil, err
		}
		return b, nil
	}
	return nil, fmt.Errorf("unsupported wire type %v for field %s", fd.GetType(), fd.GetName())
}

func protoToField(fd *desc.FieldDescriptor, raw interface{}) (any, error) {
	switch fd.GetType() {
	case descriptorpb.FieldDescriptorProto_TYPE_INT64:
		if n, ok := raw.(int64); ok {
			return n, nil
		}
	case descriptorpb.FieldDescriptorProto_TYPE_DOUBLE:
		if f, ok := raw.(float64); ok {
			return f, nil
		}
	case descriptorpb.FieldDescriptorProto_TYPE_BOOL:
		if b, ok := raw.(bool); ok {
			return b, nil
		}
	case descriptorpb.FieldDescriptorProto_TYPE_STRING:
		if s, ok := raw.(string); ok {
			return s, nil
		}
	case descriptorpb.FieldDescriptorProto_TYPE_BYTES:
		if b, ok := raw.([]byte); ok {
			return b, nil
		}
	}
	return nil, fmt.Errorf("unsupported wire value %T for field %s", raw, fd.GetName())
}
