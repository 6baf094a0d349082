package grpc

import (
	"context"
	"net"

	"google.golang.org/grpc"

	"github.com/MobilityFirst/GNS-sub011/internal/logging"
	"github.com/MobilityFirst/GNS-sub011/internal/server/store"
)

// GRPCServer exposes a record store to other directory nodes.
type GRPCServer struct {
	address   string
	store     store.RemoteStore
	scanner   store.Scanner
	logger    logging.Logger
	jwtSecret []byte
	limiters  *nodeLimiters
}

// Option configures a GRPCServer.
type Option func(*GRPCServer)

// WithScanner enables the Keys method.
func WithScanner(sc store.Scanner) Option {
	return func(s *GRPCServer) { s.scanner = sc }
}

// WithRateLimit caps each calling node at perSecond requests with the given
// burst. A non-positive rate leaves calls unlimited.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(s *GRPCServer) {
		if perSecond > 0 {
			s.limiters = newNodeLimiters(perSecond, burst)
		}
	}
}

func NewGRPCServer(a string, l logging.Logger, st store.RemoteStore, secretKey string, opts ...Option) (*GRPCServer, error) {
	s := &GRPCServer{
		address:   a,
		logger:    l.With("module", "grpc_server"),
		store:     st,
		jwtSecret: []byte(secretKey),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *GRPCServer) newServer() *grpc.Server {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.nodeTokenInterceptor, s.rateLimitInterceptor))
	srv.RegisterService(&RecordStoreServiceDesc, s)
	return srv
}

func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis until ctx is done.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := s.newServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gPRC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	if err := srv.Serve(lis); err != nil {
		return err
	}

	return nil
}
