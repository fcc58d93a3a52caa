// Package remote dispatches envelope values to handlers in another
// process over gRPC. The wire service is assembled from descriptors at
// runtime, the same way the payload codec works: the .proto source is
// embedded below, parsed in memory, and no stubs are generated.
package remote

import (
	"fmt"
	"sync"

	"github.com/jhump/protoreflect/desc"
	"github.com/jhump/protoreflect/desc/protoparse"
)

const dispatcherProto = `syntax = "proto3";

package funion.v1;

message Envelope {
  string tag = 1;
  bytes payload = 2;
}

service Dispatcher {
  rpc Dispatch(Envelope) returns (Envelope);
}
`

const (
	serviceName    = "funion.v1.Dispatcher"
	dispatchMethod = "/funion.v1.Dispatcher/Dispatch"
	protoFilename  = "funion_remote.proto"
)

var (
	wireOnce     sync.Once
	wireErr      error
	envelopeMD   *desc.MessageDescriptor
	tagField     *desc.FieldDescriptor
	payloadField *desc.FieldDescriptor
)

// wireDescriptors parses the embedded service proto on first use.
func wireDescriptors() error {
	wireOnce.Do(func() {
		parser := protoparse.Parser{
			Accessor: protoparse.FileContentsFromMap(map[string]string{protoFilename: dispatcherProto}),
		}
		fds, err := parser.ParseFiles(protoFilename)
		if err != nil {
			wireErr = fmt.Errorf("failed to parse dispatcher proto: %v", err)
			return
		}
		envelopeMD = fds[0].FindMessage("funion.v1.Envelope")
		if envelopeMD == nil {
			wireErr = fmt.Errorf("dispatcher proto has no Envelope message")
			return
		}
		tagField = envelopeMD.FindFieldByName("tag")
		payloadField = envelopeMD.FindFieldByName("payload")
	})
	return wireErr
}
