package network

import (
	"fmt"

	"github.com/ipfs/go-cid"
)

// Address identifies a record by its content hash.
type Address = cid.Cid

type Status uint8

const (
	StatusAbsent Status = iota
	StatusPending
	StatusSucceeded
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusAbsent:
		return "absent"
	case StatusPending:
		return "pending"
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", uint8(s))
	}
}

// Entry is a record returned by a peer.
type Entry struct {
	Address Address
	Content []byte
}

// Outcome is the state of one address in Results.
//
// Entry is only meaningful when Status is StatusSucceeded, and may be nil
// there: the peer answered, but holds no record for the address.
// Err is only set when Status is StatusFailed.
type Outcome struct {
	Status Status
	Entry  *Entry
	Err    *Failure

	// MsgID is the correlation token of the request that made the entry
	// pending. Replies are matched by address, not by this token.
	MsgID string
}

func Pending(msgID string) Outcome { return Outcome{Status: StatusPending, MsgID: msgID} }

func Succeeded(e *Entry) Outcome { return Outcome{Status: StatusSucceeded, Entry: e} }

func Failed(f *Failure) Outcome { return Outcome{Status: StatusFailed, Err: f} }

// Settled reports whether the outcome is final: succeeded or failed.
func (o Outcome) Settled() bool {
	return o.Status == StatusSucceeded || o.Status == StatusFailed
}

// Found reports whether the outcome carries a record.
func (o Outcome) Found() bool {
	return o.Status == StatusSucceeded && o.Entry != nil
}

func (o Outcome) String() string {
	switch o.Status {
	case StatusSucceeded:
		if o.Entry == nil {
			return "succeeded(not found)"
		}
		return fmt.Sprintf("succeeded(%d bytes)", len(o.Entry.Content))
	case StatusFailed:
		return fmt.Sprintf("failed(%s)", o.Err.Error())
	default:
		return o.Status.String()
	}
}

// Results is the pending-result table, keyed by address.
// A missing key means the address was never requested.
type Results map[Address]Outcome

// Lookup returns the outcome stored for addr, or an absent outcome.
func (r Results) Lookup(addr Address) Outcome {
	o, ok := r[addr]
	if !ok {
		return Outcome{Status: StatusAbsent}
	}
	return o
}
