package engine

import "xdao.co/casnet/network"

// Action is one state transition delivered to the engine.
type Action interface {
	actionName() string
}

// InitNetwork installs the network handle.
type InitNetwork struct {
	Handle *network.Handle
}

// GetEntry starts a lookup for Address.
type GetEntry struct {
	Address network.Address
}

// GetEntryTimeout fails Address if its lookup is still pending.
type GetEntryTimeout struct {
	Address network.Address
}

// HandleGetResult settles the address named in Data with the reply.
type HandleGetResult struct {
	Data network.DhtData
}

func (InitNetwork) actionName() string     { return "init_network" }
func (GetEntry) actionName() string        { return "get_entry" }
func (GetEntryTimeout) actionName() string { return "get_entry_timeout" }
func (HandleGetResult) actionName() string { return "handle_get_result" }

// lookupQuery reads one outcome from inside the loop.
type lookupQuery struct {
	addr  network.Address
	reply chan network.Outcome
}

// watch parks reply until addr is settled.
type watch struct {
	addr  network.Address
	reply chan network.Outcome
}

func (lookupQuery) actionName() string { return "lookup" }
func (watch) actionName() string       { return "watch" }
