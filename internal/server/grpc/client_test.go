package grpc

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/test/bufconn"

	"github.com/MobilityFirst/GNS-sub011/internal/logging"
	"github.com/MobilityFirst/GNS-sub011/internal/server/responsecode"
	"github.com/MobilityFirst/GNS-sub011/internal/server/store"
	"github.com/MobilityFirst/GNS-sub011/internal/server/updates"
)

func startBufServer(t *testing.T, clientSecret string, opts ...Option) (*store.Memory, func(string) *Client) {
	t.Helper()

	mem := store.NewMemory()
	srv, err := NewGRPCServer("bufnet", logging.NopLogger{}, mem, "secret", opts...)
	require.NoError(t, err)

	lis := bufconn.Listen(1 << 20)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, lis) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	dial := func(nodeID string) *Client {
		c, err := Dial("passthrough:///bufnet", nodeID, clientSecret, time.Minute,
			grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
				return lis.DialContext(ctx)
			}))
		require.NoError(t, err)
		t.Cleanup(func() { _ = c.Close() })
		return c
	}
	return mem, dial
}

func TestClient_RoundTrip(t *testing.T) {
	mem, dial := startBufServer(t, "secret")
	c := dial("node-1")
	ctx := context.Background()

	res := c.CreateRecord(ctx, "k1", store.Record{"name": "alice", "tags": []any{"a"}})
	require.True(t, res.OK(), res.Response().String())
	assert.Equal(t, 1, mem.Len())

	res = c.CreateRecord(ctx, "k1", store.Record{})
	assert.Equal(t, responsecode.DuplicateID, res.Code)

	res = c.ReadField(ctx, "k1", "name")
	require.True(t, res.OK())
	assert.Equal(t, "alice", res.Value)

	res = c.UpdateField(ctx, "k1", "tags", updates.With(updates.Append, "b"))
	require.True(t, res.OK())

	res = c.ReadField(ctx, "k1", "tags")
	require.True(t, res.OK())
	assert.Equal(t, []any{"a", "b"}, res.Value)

	res = c.ReadRecord(ctx, "k1")
	require.True(t, res.OK())
	assert.Equal(t, "alice", res.Record["name"])

	res = c.ReadField(ctx, "k1", "missing")
	assert.Equal(t, responsecode.FieldNotFound, res.Code)

	res = c.UpdateField(ctx, "nope", "tags", updates.With(updates.Append, "x"))
	assert.Equal(t, responsecode.BadGuid, res.Code)

	res = c.UpdateField(ctx, "k2", "tags", updates.With(updates.AppendOrCreate, "x"))
	require.True(t, res.OK())

	require.True(t, c.DeleteRecord(ctx, "k1").OK())
	assert.Equal(t, responsecode.BadGuid, c.DeleteRecord(ctx, "k1").Code)
	assert.Equal(t, 1, mem.Len())
}

func TestClient_KeysWithField(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()
	mem.CreateRecord(ctx, "b", store.Record{"x": 1})
	mem.CreateRecord(ctx, "a", store.Record{"x": 2})
	mem.CreateRecord(ctx, "c", store.Record{"y": 3})

	_, dial := startBufServer(t, "secret", WithScanner(mem))
	keys, err := dial("node-1").KeysWithField(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, keys)
}

func TestClient_KeysWithoutScanner(t *testing.T) {
	_, dial := startBufServer(t, "secret")
	_, err := dial("node-1").KeysWithField(context.Background(), "x")
	assert.Error(t, err)
}

func TestClient_WrongSecretIsFailure(t *testing.T) {
	_, dial := startBufServer(t, "not-the-secret")
	res := dial("node-1").ReadRecord(context.Background(), "k1")
	assert.Equal(t, responsecode.UnspecifiedError, res.Code)
	assert.Error(t, res.Err)
}

func TestClient_RenewsToken(t *testing.T) {
	_, dial := startBufServer(t, "secret")
	c := dial("node-1")

	first, err := c.nodeToken(false)
	require.NoError(t, err)
	again, err := c.nodeToken(false)
	require.NoError(t, err)
	assert.Equal(t, first, again)

	c.expires = now().Add(tokenRenewMargin / 2)
	_, err = c.nodeToken(false)
	require.NoError(t, err)
	assert.True(t, c.expires.After(now().Add(tokenRenewMargin)))
}

func TestWire_UpdateRoundTrip(t *testing.T) {
	u := updates.Update{
		Op:        updates.Substitute,
		Values:    updates.Strings("new"),
		OldValues: updates.Strings("old"),
		Index:     2,
		Document:  map[string]any{"a": "b"},
	}
	got, err := decodeUpdate(encodeUpdate(u))
	require.NoError(t, err)
	assert.Equal(t, u.Op, got.Op)
	assert.Equal(t, updates.List{"new"}, got.Values)
	assert.Equal(t, updates.List{"old"}, got.OldValues)
	assert.Equal(t, 2, got.Index)
	assert.Equal(t, map[string]any{"a": "b"}, got.Document)
}

func TestWire_UnknownOperation(t *testing.T) {
	_, err := decodeUpdate(map[string]any{wireOp: "Explode"})
	assert.Error(t, err)
}
