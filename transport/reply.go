package transport

import (
	"errors"

	"xdao.co/casnet/cidutil"
	"xdao.co/casnet/network"
	"xdao.co/casnet/storage"
)

var ErrClosed = errors.New("transport: connection closed")

// NewReply builds the DhtData answering req. A missing record is still a
// reply; found=false encodes it as null content.
func NewReply(req network.GetDhtData, agentID string, record []byte, found bool) (network.DhtData, error) {
	content, err := network.MarshalContent(record, found)
	if err != nil {
		return network.DhtData{}, err
	}
	return network.DhtData{
		MsgID:   req.MsgID,
		DNAHash: req.DNAHash,
		AgentID: agentID,
		Address: req.Address,
		Content: content,
	}, nil
}

// Answer looks req up in store and builds the reply.
func Answer(store storage.CAS, req network.GetDhtData, agentID string) (network.DhtData, error) {
	id, err := cidutil.Parse(req.Address)
	if err != nil {
		return network.DhtData{}, storage.ErrInvalidCID
	}
	b, err := store.Get(id)
	switch {
	case storage.IsNotFound(err):
		return NewReply(req, agentID, nil, false)
	case err != nil:
		return network.DhtData{}, err
	}
	return NewReply(req, agentID, b, true)
}
