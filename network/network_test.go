package network

import (
	"errors"
	"testing"

	"xdao.co/casnet/cidutil"
)

type recordingConn struct {
	sent []GetDhtData
	err  error
}

func (c *recordingConn) Send(req GetDhtData) error {
	c.sent = append(c.sent, req)
	return c.err
}

func testAddress(t *testing.T, data string) Address {
	t.Helper()
	id, err := cidutil.CIDv1RawSHA256CID([]byte(data))
	if err != nil {
		t.Fatalf("CIDv1RawSHA256CID: %v", err)
	}
	return id
}

func initializedState(conn Connection) *State {
	st := NewState()
	ReduceInitNetwork(st, NewHandle("abcd", "abcd", conn))
	return st
}

func replyFor(t *testing.T, addr Address, record []byte, found bool) DhtData {
	t.Helper()
	content, err := MarshalContent(record, found)
	if err != nil {
		t.Fatalf("MarshalContent: %v", err)
	}
	return DhtData{Address: addr.String(), Content: content}
}

func TestLookup_NeverRequestedIsAbsent(t *testing.T) {
	st := NewState()
	for _, s := range []string{"a", "b", "c"} {
		if got := st.Results.Lookup(testAddress(t, s)); got.Status != StatusAbsent {
			t.Fatalf("Lookup(%s): got %s want absent", s, got)
		}
	}
	var nilResults Results
	if got := nilResults.Lookup(testAddress(t, "a")); got.Status != StatusAbsent {
		t.Fatalf("nil Results: got %s want absent", got)
	}
}

func TestGetEntry_WithoutNetworkInitialized(t *testing.T) {
	addr := testAddress(t, "entry")
	st := NewState()

	ReduceGetEntry(st, addr)

	got := st.Results.Lookup(addr)
	if got.Status != StatusFailed {
		t.Fatalf("got %s want failed", got)
	}
	if !errors.Is(got.Err, ErrNetworkNotInitialized) {
		t.Fatalf("got err %v want NETWORK_NOT_INITIALIZED", got.Err)
	}
}

func TestGetEntry_IncompleteHandleNeverSends(t *testing.T) {
	cases := []struct {
		name   string
		handle *Handle
	}{
		{"missing dna", NewHandle("", "agent", &recordingConn{})},
		{"missing agent", NewHandle("dna", "", &recordingConn{})},
		{"missing connection", NewHandle("dna", "agent", nil)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			st := NewState()
			ReduceInitNetwork(st, tc.handle)
			addr := testAddress(t, tc.name)

			ReduceGetEntry(st, addr)

			if got := st.Results.Lookup(addr); !errors.Is(got.Err, ErrNetworkNotInitialized) {
				t.Fatalf("got %s want NETWORK_NOT_INITIALIZED", got)
			}
			if conn, ok := tc.handle.conn.(*recordingConn); ok && len(conn.sent) != 0 {
				t.Fatalf("expected no send, got %d", len(conn.sent))
			}
		})
	}
}

func TestGetEntry_SendOKIsPending(t *testing.T) {
	conn := &recordingConn{}
	st := initializedState(conn)
	addr := testAddress(t, "entry")

	ReduceGetEntry(st, addr)

	got := st.Results.Lookup(addr)
	if got.Status != StatusPending {
		t.Fatalf("got %s want pending", got)
	}
	if len(conn.sent) != 1 {
		t.Fatalf("expected exactly one send, got %d", len(conn.sent))
	}
	req := conn.sent[0]
	if req.Address != addr.String() || req.DNAHash != "abcd" || req.FromAgentID != "abcd" {
		t.Fatalf("unexpected request: %+v", req)
	}
	if req.MsgID == "" || req.MsgID != got.MsgID {
		t.Fatalf("correlation token not recorded: req=%q outcome=%q", req.MsgID, got.MsgID)
	}
}

func TestGetEntry_SendFailureSettles(t *testing.T) {
	conn := &recordingConn{err: errors.New("connection reset")}
	st := initializedState(conn)
	addr := testAddress(t, "entry")

	ReduceGetEntry(st, addr)

	got := st.Results.Lookup(addr)
	if !errors.Is(got.Err, ErrTransportSend) {
		t.Fatalf("got %s want TRANSPORT_SEND", got)
	}
	if got.Err.Message != "connection reset" {
		t.Fatalf("underlying error text lost: %q", got.Err.Message)
	}
	if len(conn.sent) != 1 {
		t.Fatalf("expected one send attempt, got %d", len(conn.sent))
	}
}

func TestGetEntry_ReissueResetsSettled(t *testing.T) {
	conn := &recordingConn{}
	st := initializedState(conn)
	addr := testAddress(t, "entry")

	if err := ReduceHandleGetResult(st, replyFor(t, addr, []byte("entry"), true)); err != nil {
		t.Fatalf("ReduceHandleGetResult: %v", err)
	}
	ReduceGetEntry(st, addr)

	if got := st.Results.Lookup(addr); got.Status != StatusPending {
		t.Fatalf("got %s want pending", got)
	}
}

func TestGetEntryTimeout(t *testing.T) {
	conn := &recordingConn{}
	st := initializedState(conn)
	addr := testAddress(t, "entry")

	ReduceGetEntry(st, addr)
	if got := st.Results.Lookup(addr); got.Status != StatusPending {
		t.Fatalf("got %s want pending", got)
	}

	ReduceGetEntryTimeout(st, addr)
	if got := st.Results.Lookup(addr); !errors.Is(got.Err, ErrTimeout) {
		t.Fatalf("got %s want TIMEOUT", got)
	}

	record := []byte("entry")
	if err := ReduceHandleGetResult(st, replyFor(t, addr, record, true)); err != nil {
		t.Fatalf("ReduceHandleGetResult: %v", err)
	}
	got := st.Results.Lookup(addr)
	if !got.Found() || string(got.Entry.Content) != "entry" {
		t.Fatalf("got %s want succeeded(entry)", got)
	}

	// an existing result must not be overwritten by a later timeout
	ReduceGetEntryTimeout(st, addr)
	got = st.Results.Lookup(addr)
	if !got.Found() || string(got.Entry.Content) != "entry" {
		t.Fatalf("timeout overwrote settled entry: %s", got)
	}
}

func TestGetEntryTimeout_NoOps(t *testing.T) {
	addr := testAddress(t, "entry")

	t.Run("absent", func(t *testing.T) {
		st := NewState()
		ReduceGetEntryTimeout(st, addr)
		if got := st.Results.Lookup(addr); got.Status != StatusAbsent {
			t.Fatalf("got %s want absent", got)
		}
		if len(st.Results) != 0 {
			t.Fatalf("timeout created an entry")
		}
	})

	t.Run("failed", func(t *testing.T) {
		st := initializedState(&recordingConn{err: errors.New("boom")})
		ReduceGetEntry(st, addr)
		ReduceGetEntryTimeout(st, addr)
		if got := st.Results.Lookup(addr); !errors.Is(got.Err, ErrTransportSend) {
			t.Fatalf("got %s want TRANSPORT_SEND kept", got)
		}
	})

	t.Run("succeeded not found", func(t *testing.T) {
		st := initializedState(&recordingConn{})
		ReduceGetEntry(st, addr)
		if err := ReduceHandleGetResult(st, replyFor(t, addr, nil, false)); err != nil {
			t.Fatalf("ReduceHandleGetResult: %v", err)
		}
		ReduceGetEntryTimeout(st, addr)
		got := st.Results.Lookup(addr)
		if got.Status != StatusSucceeded || got.Entry != nil {
			t.Fatalf("got %s want succeeded(not found)", got)
		}
	})
}

func TestHandleGetResult_AlwaysOverwrites(t *testing.T) {
	record := []byte("entry")
	addr := testAddress(t, "entry")

	setups := map[string]func(st *State){
		"absent":  func(st *State) {},
		"pending": func(st *State) { ReduceGetEntry(st, addr) },
		"failed": func(st *State) {
			ReduceGetEntry(st, addr)
			ReduceGetEntryTimeout(st, addr)
		},
		"succeeded": func(st *State) {
			st.Results[addr] = Succeeded(nil)
		},
	}
	for name, setup := range setups {
		t.Run(name, func(t *testing.T) {
			st := initializedState(&recordingConn{})
			setup(st)
			if err := ReduceHandleGetResult(st, replyFor(t, addr, record, true)); err != nil {
				t.Fatalf("ReduceHandleGetResult: %v", err)
			}
			got := st.Results.Lookup(addr)
			if !got.Found() || string(got.Entry.Content) != "entry" || got.Entry.Address != addr {
				t.Fatalf("got %s want succeeded(entry)", got)
			}
		})
	}
}

func TestHandleGetResult_FailedReplies(t *testing.T) {
	addr := testAddress(t, "entry")

	t.Run("cid mismatch", func(t *testing.T) {
		st := initializedState(&recordingConn{})
		ReduceGetEntry(st, addr)
		if err := ReduceHandleGetResult(st, replyFor(t, addr, []byte("tampered"), true)); err != nil {
			t.Fatalf("ReduceHandleGetResult: %v", err)
		}
		if got := st.Results.Lookup(addr); !errors.Is(got.Err, ErrCIDMismatch) {
			t.Fatalf("got %s want CID_MISMATCH", got)
		}
	})

	t.Run("malformed content", func(t *testing.T) {
		st := initializedState(&recordingConn{})
		ReduceGetEntry(st, addr)
		data := DhtData{Address: addr.String(), Content: []byte(`{"record":`)}
		if err := ReduceHandleGetResult(st, data); err != nil {
			t.Fatalf("ReduceHandleGetResult: %v", err)
		}
		if got := st.Results.Lookup(addr); !errors.Is(got.Err, ErrInvalidReply) {
			t.Fatalf("got %s want INVALID_REPLY", got)
		}
	})

	t.Run("bad address", func(t *testing.T) {
		st := NewState()
		err := ReduceHandleGetResult(st, DhtData{Address: "nope", Content: []byte("null")})
		if !errors.Is(err, ErrUnaddressableReply) {
			t.Fatalf("got %v want ErrUnaddressableReply", err)
		}
		if len(st.Results) != 0 {
			t.Fatalf("unaddressable reply mutated results")
		}
	})
}

func TestContentRoundTrip(t *testing.T) {
	raw, err := MarshalContent([]byte{}, true)
	if err != nil {
		t.Fatalf("MarshalContent: %v", err)
	}
	rec, found, err := UnmarshalContent(raw)
	if err != nil || !found || len(rec) != 0 {
		t.Fatalf("empty record: rec=%v found=%v err=%v", rec, found, err)
	}

	raw, err = MarshalContent(nil, false)
	if err != nil {
		t.Fatalf("MarshalContent: %v", err)
	}
	if _, found, err := UnmarshalContent(raw); err != nil || found {
		t.Fatalf("null record: found=%v err=%v", found, err)
	}

	if _, _, err := UnmarshalContent([]byte(`{"record":"aGk=","extra":1}`)); err == nil {
		t.Fatalf("expected unknown field to be rejected")
	}
	for _, in := range []string{`{"record":"aGk="} trailing junk`, `{"record":"aGk="}{"record":"aGk="}`} {
		if _, _, err := UnmarshalContent([]byte(in)); err == nil {
			t.Fatalf("UnmarshalContent(%q): expected trailing data to be rejected", in)
		}
	}
}

func TestHandleGetResult_TrailingContentIsInvalid(t *testing.T) {
	addr := testAddress(t, "hi")
	st := initializedState(&recordingConn{})
	ReduceGetEntry(st, addr)
	data := DhtData{Address: addr.String(), Content: []byte(`{"record":"aGk="} trailing junk`)}
	if err := ReduceHandleGetResult(st, data); err != nil {
		t.Fatalf("ReduceHandleGetResult: %v", err)
	}
	if got := st.Results.Lookup(addr); !errors.Is(got.Err, ErrInvalidReply) {
		t.Fatalf("got %s want INVALID_REPLY", got)
	}
}

func TestFailedOutcomesDoNotShareFailures(t *testing.T) {
	a := testAddress(t, "a")
	b := testAddress(t, "b")

	st := NewState()
	ReduceGetEntry(st, a)
	st.Results.Lookup(a).Err.Message = "changed"
	ReduceGetEntry(st, b)
	if got := st.Results.Lookup(b).Err.Message; got != "network not initialized" {
		t.Fatalf("b failure message: got %q", got)
	}
	if ErrNetworkNotInitialized.Message != "network not initialized" {
		t.Fatalf("sentinel changed: %q", ErrNetworkNotInitialized.Message)
	}

	st = initializedState(&recordingConn{})
	ReduceGetEntry(st, a)
	ReduceGetEntry(st, b)
	ReduceGetEntryTimeout(st, a)
	ReduceGetEntryTimeout(st, b)
	st.Results.Lookup(a).Err.Reason = ReasonCIDMismatch
	if got := st.Results.Lookup(b); !errors.Is(got.Err, ErrTimeout) {
		t.Fatalf("b after a changed: got %s want TIMEOUT", got)
	}
	if ErrTimeout.Reason != ReasonTimeout {
		t.Fatalf("sentinel changed: %s", ErrTimeout.Reason)
	}
}

func TestFailureIs(t *testing.T) {
	f := NewFailure(ReasonTimeout, "after 3s")
	if !errors.Is(f, ErrTimeout) {
		t.Fatalf("expected Is by reason")
	}
	if errors.Is(f, ErrTransportSend) {
		t.Fatalf("unexpected match across reasons")
	}
	if errors.Is(f, errors.New(string(ReasonTimeout))) {
		t.Fatalf("unexpected match against foreign error")
	}
}
