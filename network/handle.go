package network

import "sync"

// Connection transmits lookup requests to the network. Send must return
// promptly: replies arrive later, as separate HandleGetResult actions.
type Connection interface {
	Send(req GetDhtData) error
}

// Handle identifies the local participant and owns the outbound connection.
// The connection is used by one sender at a time.
type Handle struct {
	DNAHash string
	AgentID string

	mu   sync.Mutex
	conn Connection
}

func NewHandle(dnaHash, agentID string, conn Connection) *Handle {
	return &Handle{DNAHash: dnaHash, AgentID: agentID, conn: conn}
}

func (h *Handle) send(req GetDhtData) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.conn.Send(req)
}

// State is the network slice of the host's state.
type State struct {
	Handle  *Handle
	Results Results
}

func NewState() *State {
	return &State{Results: make(Results)}
}

// Initialized reports ErrNetworkNotInitialized unless the handle and all of
// its identifying fields are present.
func Initialized(st *State) error {
	if st == nil || st.Handle == nil {
		return ErrNetworkNotInitialized
	}
	h := st.Handle
	if h.DNAHash == "" || h.AgentID == "" || h.conn == nil {
		return ErrNetworkNotInitialized
	}
	return nil
}
