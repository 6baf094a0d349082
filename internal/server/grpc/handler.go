package grpc

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/MobilityFirst/GNS-sub011/internal/server/store"
)

func (s *GRPCServer) respond(ctx context.Context, method string, res store.Result) (*structpb.Struct, error) {
	if res.Err != nil {
		s.logger.Warn(ctx, "store call failed", "method", method, "code", res.Code.Name(), "error", res.Err.Error())
	}
	out, err := encodeResult(res)
	if err != nil {
		s.logger.Error(ctx, "encode result", "method", method, "error", err.Error())
		return nil, status.Error(codes.Internal, "unencodable result")
	}
	return out, nil
}

func badRequest(err error) error {
	return status.Error(codes.InvalidArgument, err.Error())
}

func (s *GRPCServer) Create(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	m := req.AsMap()
	key, err := stringArg(m, wireKey)
	if err != nil {
		return nil, badRequest(err)
	}
	rec, _ := m[wireRecord].(map[string]any)
	if rec == nil {
		rec = store.Record{}
	}
	return s.respond(ctx, methodCreate, s.store.CreateRecord(ctx, key, rec))
}

func (s *GRPCServer) ReadField(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	m := req.AsMap()
	key, err := stringArg(m, wireKey)
	if err != nil {
		return nil, badRequest(err)
	}
	field, err := stringArg(m, wireField)
	if err != nil {
		return nil, badRequest(err)
	}
	return s.respond(ctx, methodReadField, s.store.ReadField(ctx, key, field))
}

func (s *GRPCServer) ReadRecord(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	key, err := stringArg(req.AsMap(), wireKey)
	if err != nil {
		return nil, badRequest(err)
	}
	return s.respond(ctx, methodReadRecord, s.store.ReadRecord(ctx, key))
}

func (s *GRPCServer) Update(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	m := req.AsMap()
	key, err := stringArg(m, wireKey)
	if err != nil {
		return nil, badRequest(err)
	}
	field, err := stringArg(m, wireField)
	if err != nil {
		return nil, badRequest(err)
	}
	u, err := decodeUpdate(m)
	if err != nil {
		return nil, badRequest(err)
	}
	return s.respond(ctx, methodUpdate, s.store.UpdateField(ctx, key, field, u))
}

func (s *GRPCServer) Delete(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	key, err := stringArg(req.AsMap(), wireKey)
	if err != nil {
		return nil, badRequest(err)
	}
	return s.respond(ctx, methodDelete, s.store.DeleteRecord(ctx, key))
}

func (s *GRPCServer) Keys(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if s.scanner == nil {
		return nil, status.Error(codes.Unimplemented, "store cannot enumerate keys")
	}
	field, err := stringArg(req.AsMap(), wireField)
	if err != nil {
		return nil, badRequest(err)
	}
	keys, err := s.scanner.KeysWithField(ctx, field)
	if err != nil {
		s.logger.Error(ctx, "scan failed", "field", field, "error", err.Error())
		return nil, status.Error(codes.Internal, "scan failed")
	}
	return structpb.NewStruct(map[string]any{wireKeys: plain(keys)})
}
