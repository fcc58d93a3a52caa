package remote

import (
	"context"
	"fmt"

	"github.com/jhump/protoreflect/dynamic"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/funvibe/funion/internal/protowire"
	"github.com/funvibe/funion/pkg/envelope"
	"github.com/funvibe/funion/pkg/schema"
)

// Client calls a Dispatcher server for one union.
type Client struct {
	conn  *grpc.ClientConn
	codec *protowire.Codec
}

// Dial connects to a dispatch server. Transport is plaintext.
func Dial(target string, u *schema.Union) (*Client, error) {
	if err := wireDescriptors(); err != nil {
		return nil, err
	}
	codec, err := protowire.NewCodec(u)
	if err != nil {
		return nil, err
	}
	conn, err := grpc.NewClient(target, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	return &Client{conn: conn, codec: codec}, nil
}

// Dispatch sends a value and decodes the handler's reply.
func (c *Client) Dispatch(ctx context.Context, v *envelope.Value) (*envelope.Value, error) {
	payload, err := c.codec.Encode(v)
	if err != nil {
		return nil, err
	}

	req := dynamic.NewMessage(envelopeMD)
	req.SetField(tagField, v.Tag())
	req.SetField(payloadField, payload)
	resp := dynamic.NewMessage(envelopeMD)

	if err := c.conn.Invoke(ctx, dispatchMethod, req, resp); err != nil {
		return nil, fmt.Errorf("RPC failed: %v", err)
	}

	replyPayload, _ := resp.GetField(payloadField).([]byte)
	return c.codec.Decode(replyPayload)
}

// Close tears down the connection.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}
