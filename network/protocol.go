package network

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// GetDhtData asks peers for the record stored under Address.
type GetDhtData struct {
	MsgID       string `json:"msg_id"`
	DNAHash     string `json:"dna_hash"`
	FromAgentID string `json:"from_agent_id"`
	Address     string `json:"address"`
}

// DhtData is a peer's answer. Content is the JSON encoding of the optional
// record: "null" when the peer has nothing under Address.
type DhtData struct {
	MsgID   string          `json:"msg_id"`
	DNAHash string          `json:"dna_hash"`
	AgentID string          `json:"agent_id"`
	Address string          `json:"address"`
	Content json.RawMessage `json:"content"`
}

type wireRecord struct {
	Record []byte `json:"record"`
}

// MarshalContent encodes an optional record for DhtData.Content.
func MarshalContent(record []byte, found bool) (json.RawMessage, error) {
	if !found {
		return json.RawMessage("null"), nil
	}
	if record == nil {
		record = []byte{}
	}
	return json.Marshal(wireRecord{Record: record})
}

// UnmarshalContent decodes DhtData.Content. It returns found=false for a
// null or empty body.
func UnmarshalContent(raw json.RawMessage) (record []byte, found bool, err error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, false, nil
	}
	var w wireRecord
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&w); err != nil {
		return nil, false, fmt.Errorf("decode content: %w", err)
	}
	if dec.InputOffset() != int64(len(trimmed)) {
		return nil, false, fmt.Errorf("decode content: trailing data after record")
	}
	if w.Record == nil {
		return nil, false, fmt.Errorf("decode content: missing record")
	}
	return w.Record, true, nil
}
