// Package grpc runs the terser minifier in another process. The server side
// wraps a minify.Engine, the client side is itself a minify.Engine.
package grpc

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"
)

// Client implements minify.Engine against a remote minifier
type Client struct {
	Conn    *grpc.ClientConn
	Address string
}

// NewClient connects to a minifier listening on localhost
func NewClient(port int) (*Client, error) {
	return NewClientWithAddress(fmt.Sprintf("localhost:%d", port))
}

// NewClientWithAddress creates a client for address. The connection is
// established lazily on the first call.
func NewClientWithAddress(address string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.Dial(address, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to address %s: %w", address, err)
	}

	return &Client{
		Conn:    conn,
		Address: address,
	}, nil
}

// Minify sends code to the remote minifier
func (c *Client) Minify(ctx context.Context, code []byte, fileName string, config map[string]any) ([]byte, error) {
	if config == nil {
		config = map[string]any{}
	}
	req, err := structpb.NewStruct(map[string]any{
		FieldCode:   string(code),
		FieldFile:   fileName,
		FieldConfig: config,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding minify request: %w", err)
	}

	resp := new(structpb.Struct)
	if err := c.Conn.Invoke(ctx, minifyMethod, req, resp); err != nil {
		return nil, fmt.Errorf("remote minify at %s: %w", c.Address, err)
	}
	return []byte(resp.GetFields()[FieldCode].GetStringValue()), nil
}

// Close closes the client connection
func (c *Client) Close() error {
	return c.Conn.Close()
}
