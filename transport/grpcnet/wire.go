package grpcnet

import (
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"

	"xdao.co/casnet/network"
)

func encodeRequest(req network.GetDhtData) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]interface{}{
		"msg_id":        req.MsgID,
		"dna_hash":      req.DNAHash,
		"from_agent_id": req.FromAgentID,
		"address":       req.Address,
	})
}

func decodeRequest(s *structpb.Struct) (network.GetDhtData, error) {
	var req network.GetDhtData
	fields := s.GetFields()
	for _, f := range []struct {
		key string
		dst *string
	}{
		{"msg_id", &req.MsgID},
		{"dna_hash", &req.DNAHash},
		{"from_agent_id", &req.FromAgentID},
		{"address", &req.Address},
	} {
		v, ok := fields[f.key]
		if !ok {
			continue
		}
		sv, ok := v.GetKind().(*structpb.Value_StringValue)
		if !ok {
			return network.GetDhtData{}, fmt.Errorf("field %q is not a string", f.key)
		}
		*f.dst = sv.StringValue
	}
	return req, nil
}
