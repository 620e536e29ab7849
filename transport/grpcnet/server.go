package grpcnet

import (
	"context"

	"github.com/rs/zerolog"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"xdao.co/casnet/cidutil"
	"xdao.co/casnet/storage"
)

// Server answers lookups from a storage.CAS.
type Server struct {
	UnimplementedDHTServer
	Store  storage.CAS
	Logger *zerolog.Logger
}

func (s *Server) GetDht(ctx context.Context, in *structpb.Struct) (*wrapperspb.BytesValue, error) {
	_ = ctx
	if s == nil || s.Store == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing record store")
	}
	req, err := decodeRequest(in)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	id, err := cidutil.Parse(req.Address)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, storage.ErrInvalidCID.Error())
	}

	b, err := s.Store.Get(id)
	if s.Logger != nil {
		s.Logger.Debug().
			Str("address", req.Address).
			Str("from", req.FromAgentID).
			Str("msg_id", req.MsgID).
			Bool("found", err == nil).
			Msg("get dht")
	}
	if err != nil {
		return nil, mapErr(err)
	}
	// Never serve bytes that do not hash to the requested address.
	if err := cidutil.Verify(id, b); err != nil {
		return nil, status.Error(codes.DataLoss, storage.ErrCIDMismatch.Error())
	}
	return wrapperspb.Bytes(b), nil
}
