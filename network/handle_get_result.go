package network

import (
	"errors"
	"fmt"

	"xdao.co/casnet/cidutil"
)

var ErrUnaddressableReply = errors.New("network: reply address is not a valid cid")

// ParseReply turns a peer's answer into the outcome it settles. The address
// must parse; everything else about the reply is reported as a failed
// outcome rather than an error.
func ParseReply(data DhtData) (Address, Outcome, error) {
	addr, err := cidutil.Parse(data.Address)
	if err != nil {
		return Address{}, Outcome{}, fmt.Errorf("%w: %q", ErrUnaddressableReply, data.Address)
	}

	record, found, err := UnmarshalContent(data.Content)
	if err != nil {
		return addr, Failed(NewFailure(ReasonInvalidReply, err.Error())), nil
	}
	if !found {
		return addr, Succeeded(nil), nil
	}
	if err := cidutil.Verify(addr, record); err != nil {
		return addr, Failed(NewFailure(ReasonCIDMismatch, err.Error())), nil
	}
	return addr, Succeeded(&Entry{Address: addr, Content: record}), nil
}

// ReduceHandleGetResult settles the reply's address with whatever the reply
// carries, overwriting pending, failed and succeeded entries alike. It only
// returns an error when the reply cannot be keyed to an address.
func ReduceHandleGetResult(st *State, data DhtData) error {
	addr, o, err := ParseReply(data)
	if err != nil {
		return err
	}
	if st.Results == nil {
		st.Results = make(Results)
	}
	st.Results[addr] = o
	return nil
}
