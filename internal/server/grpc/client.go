package grpc

import (
	"context"
	"fmt"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/MobilityFirst/GNS-sub011/internal/common"
	"github.com/MobilityFirst/GNS-sub011/internal/server/auth"
	"github.com/MobilityFirst/GNS-sub011/internal/server/store"
	"github.com/MobilityFirst/GNS-sub011/internal/server/updates"
)

// tokens are renewed this long before they lapse
const tokenRenewMargin = 30 * time.Second

var now = time.Now

// Client is a store.RemoteStore backed by another node's record service.
type Client struct {
	conn     *grpc.ClientConn
	nodeID   string
	secret   []byte
	validity time.Duration

	mu      sync.Mutex
	token   string
	expires time.Time
}

var (
	_ store.RemoteStore = (*Client)(nil)
	_ store.Scanner     = (*Client)(nil)
)

// Dial prepares a client for addr. The connection is established lazily.
func Dial(addr, nodeID, secretKey string, validity time.Duration, opts ...grpc.DialOption) (*Client, error) {
	c := &Client{nodeID: nodeID, secret: []byte(secretKey), validity: validity}
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(c.nodeTokenInterceptor),
	}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("dial record service: %w", err)
	}
	c.conn = conn
	return c, nil
}

func (c *Client) Close() error { return c.conn.Close() }

func (c *Client) nodeToken(renew bool) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !renew && c.token != "" && now().Add(tokenRenewMargin).Before(c.expires) {
		return c.token, nil
	}
	token, err := auth.GenerateNodeToken(c.nodeID, c.secret, c.validity)
	if err != nil {
		return "", err
	}
	c.token = token
	c.expires = now().Add(c.validity)
	return token, nil
}

func withNodeToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	md.Set(common.NodeTokenHeaderName, token)
	return metadata.NewOutgoingContext(ctx, md)
}

// nodeTokenInterceptor attaches the node token and retries once with a fresh
// token when the server reports it expired.
func (c *Client) nodeTokenInterceptor(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
	token, err := c.nodeToken(false)
	if err != nil {
		return err
	}
	err = invoker(withNodeToken(ctx, token), method, req, reply, cc, opts...)
	if st, ok := status.FromError(err); ok && st.Code() == codes.Unauthenticated && st.Message() == common.ErrTokenExpired.Error() {
		if token, err = c.nodeToken(true); err != nil {
			return err
		}
		return invoker(withNodeToken(ctx, token), method, req, reply, cc, opts...)
	}
	return err
}

func (c *Client) invoke(ctx context.Context, method string, req map[string]any) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(req)
	if err != nil {
		return nil, fmt.Errorf("encode %s request: %w", method, err)
	}
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, fullMethod(method), in, out); err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	return out, nil
}

func (c *Client) call(ctx context.Context, method string, req map[string]any) store.Result {
	out, err := c.invoke(ctx, method, req)
	if err != nil {
		return store.Failure(err)
	}
	return decodeResult(out)
}

func (c *Client) CreateRecord(ctx context.Context, key string, record store.Record) store.Result {
	return c.call(ctx, methodCreate, map[string]any{wireKey: key, wireRecord: plain(record)})
}

func (c *Client) ReadField(ctx context.Context, key, field string) store.Result {
	return c.call(ctx, methodReadField, map[string]any{wireKey: key, wireField: field})
}

func (c *Client) ReadRecord(ctx context.Context, key string) store.Result {
	return c.call(ctx, methodReadRecord, map[string]any{wireKey: key})
}

func (c *Client) UpdateField(ctx context.Context, key, field string, u updates.Update) store.Result {
	req := encodeUpdate(u)
	req[wireKey] = key
	req[wireField] = field
	return c.call(ctx, methodUpdate, req)
}

func (c *Client) DeleteRecord(ctx context.Context, key string) store.Result {
	return c.call(ctx, methodDelete, map[string]any{wireKey: key})
}

func (c *Client) KeysWithField(ctx context.Context, field string) ([]string, error) {
	out, err := c.invoke(ctx, methodKeys, map[string]any{wireField: field})
	if err != nil {
		return nil, err
	}
	list, ok := updates.AsList(out.AsMap()[wireKeys])
	if !ok {
		return nil, fmt.Errorf("%s: %w", methodKeys, errBadRequest)
	}
	return list.Strings(), nil
}
