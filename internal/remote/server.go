package remote

import (
	"context"
	"fmt"
	"net"

	"github.com/jhump/protoreflect/dynamic"
	"google.golang.org/grpc"

	"github.com/funvibe/funion/internal/protowire"
	"github.com/funvibe/funion/pkg/envelope"
	"github.com/funvibe/funion/pkg/schema"
	"github.com/funvibe/funion/pkg/union"
)

// Handler processes one dispatched value and produces the reply.
type Handler func(*envelope.Value) (*envelope.Value, error)

// Handlers maps variant tags to handlers. Coverage is checked when the
// server is built: every declared tag handled, no foreign tags.
type Handlers map[string]Handler

// Server serves the Dispatcher service for one union.
type Server struct {
	union    *schema.Union
	codec    *protowire.Codec
	handlers Handlers
	grpc     *grpc.Server
}

// NewServer builds a dispatch server. Construction fails when the
// handler table misses a declared tag or names an undeclared one.
func NewServer(u *schema.Union, handlers Handlers) (*Server, error) {
	if err := wireDescriptors(); err != nil {
		return nil, err
	}

	var missing []union.Tag
	for _, tag := range u.Tags() {
		if _, ok := handlers[tag]; !ok {
			missing = append(missing, union.Tag(tag))
		}
	}
	if len(missing) > 0 {
		return nil, union.NewUncoveredTagError(u.Name(), missing)
	}
	var foreign []union.Tag
	for tag := range handlers {
		if !u.Has(tag) {
			foreign = append(foreign, union.Tag(tag))
		}
	}
	if len(foreign) > 0 {
		return nil, union.NewForeignTagError(u.Name(), foreign)
	}

	codec, err := protowire.NewCodec(u)
	if err != nil {
		return nil, err
	}

	table := make(Handlers, len(handlers))
	for tag, h := range handlers {
		table[tag] = h
	}

	s := &Server{
		union:    u,
		codec:    codec,
		handlers: table,
		grpc:     grpc.NewServer(),
	}
	s.grpc.RegisterService(s.serviceDesc(), s)
	return s, nil
}

func (s *Server) serviceDesc() *grpc.ServiceDesc {
	return &grpc.ServiceDesc{
		ServiceName: serviceName,
		HandlerType: (*interface{})(nil),
		Methods: []grpc.MethodDesc{
			{
				MethodName: "Dispatch",
				Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
					return srv.(*Server).handleDispatch(ctx, dec)
				},
			},
		},
		Streams:  []grpc.StreamDesc{},
		Metadata: protoFilename,
	}
}

func (s *Server) handleDispatch(ctx context.Context, dec func(interface{}) error) (interface{}, error) {
	req := dynamic.NewMessage(envelopeMD)
	if err := dec(req); err != nil {
		return nil, err
	}

	tag, _ := req.GetField(tagField).(string)
	if _, err := s.union.VariantOf(tag); err != nil {
		return nil, err
	}

	payload, _ := req.GetField(payloadField).([]byte)
	v, err := s.codec.Decode(payload)
	if err != nil {
		return nil, err
	}
	if v.Tag() != tag {
		return nil, fmt.Errorf("envelope tagged %q carries a %q payload", tag, v.Tag())
	}

	out, err := s.handlers[tag](v)
	if err != nil {
		return nil, err
	}

	replyPayload, err := s.codec.Encode(out)
	if err != nil {
		return nil, err
	}
	reply := dynamic.NewMessage(envelopeMD)
	reply.SetField(tagField, out.Tag())
	reply.SetField(payloadField, replyPayload)
	return reply, nil
}

// Serve accepts connections on lis until Stop is called.
func (s *Server) Serve(lis net.Listener) error {
	return s.grpc.Serve(lis)
}

// ListenAndServe listens on addr and serves.
func (s *Server) ListenAndServe(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.grpc.Serve(lis)
}

// ServeAsync serves on lis from a new goroutine.
func (s *Server) ServeAsync(lis net.Listener) {
	go func() {
		_ = s.grpc.Serve(lis)
	}()
}

// Stop drains in-flight RPCs and stops the server.
func (s *Server) Stop() {
	s.grpc.GracefulStop()
}
