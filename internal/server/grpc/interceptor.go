package grpc

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/time/rate"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/MobilityFirst/GNS-sub011/internal/common"
	"github.com/MobilityFirst/GNS-sub011/internal/server/auth"
)

type ctxKey string

const nodeIDKey ctxKey = "nodeID"

// NodeIDFromContext returns the authenticated calling node.
func NodeIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(nodeIDKey).(string)
	return id, ok
}

func (s *GRPCServer) nodeTokenInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {

	var token string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		values := md.Get(common.NodeTokenHeaderName)
		if len(values) > 0 {
			token = values[0]
		}
	}
	if len(token) == 0 {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}

	nodeID, err := auth.NodeIDFromToken(token, s.jwtSecret)
	if err != nil {
		if errors.Is(err, common.ErrTokenExpired) {
			return nil, status.Error(codes.Unauthenticated, common.ErrTokenExpired.Error())
		}
		return nil, status.Error(codes.Unauthenticated, "invalid token")
	}

	ctx = context.WithValue(ctx, nodeIDKey, nodeID)

	return handler(ctx, req)
}

func (s *GRPCServer) rateLimitInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	if s.limiters == nil {
		return handler(ctx, req)
	}
	nodeID, _ := NodeIDFromContext(ctx)
	if !s.limiters.get(nodeID).Allow() {
		s.logger.Warn(ctx, "rate limited", "node", nodeID, "method", info.FullMethod)
		return nil, status.Error(codes.ResourceExhausted, "rate limit exceeded")
	}
	return handler(ctx, req)
}

type nodeLimiters struct {
	mu    sync.Mutex
	limit rate.Limit
	burst int
	nodes map[string]*rate.Limiter
}

func newNodeLimiters(perSecond float64, burst int) *nodeLimiters {
	if burst < 1 {
		burst = 1
	}
	return &nodeLimiters{limit: rate.Limit(perSecond), burst: burst, nodes: map[string]*rate.Limiter{}}
}

func (n *nodeLimiters) get(nodeID string) *rate.Limiter {
	n.mu.Lock()
	defer n.mu.Unlock()
	l, ok := n.nodes[nodeID]
	if !ok {
		l = rate.NewLimiter(n.limit, n.burst)
		n.nodes[nodeID] = l
	}
	return l
}
