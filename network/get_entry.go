package network

import "github.com/google/uuid"

// ReduceInitNetwork installs the handle used by later lookups.
func ReduceInitNetwork(st *State, h *Handle) {
	st.Handle = h
}

func getEntry(st *State, addr Address) Outcome {
	if err := Initialized(st); err != nil {
		return Failed(asFailure(err, ReasonNetworkNotInitialized))
	}

	req := GetDhtData{
		MsgID:       uuid.NewString(),
		DNAHash:     st.Handle.DNAHash,
		FromAgentID: st.Handle.AgentID,
		Address:     addr.String(),
	}
	if err := st.Handle.send(req); err != nil {
		return Failed(NewFailure(ReasonTransportSend, err.Error()))
	}
	return Pending(req.MsgID)
}

// ReduceGetEntry sends one lookup for addr and records the result: pending
// when the send succeeded, failed otherwise. Any earlier outcome for addr is
// replaced, so re-issuing a lookup restarts its observation.
func ReduceGetEntry(st *State, addr Address) {
	o := getEntry(st, addr)
	if st.Results == nil {
		st.Results = make(Results)
	}
	st.Results[addr] = o
}

// ReduceGetEntryTimeout fails addr with ErrTimeout if, and only if, its
// lookup is still pending. A reply processed earlier keeps its outcome.
func ReduceGetEntryTimeout(st *State, addr Address) {
	o, ok := st.Results[addr]
	if !ok || o.Status != StatusPending {
		return
	}
	st.Results[addr] = Failed(NewFailure(ReasonTimeout, ErrTimeout.Message))
}
