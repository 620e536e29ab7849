// Package engine hosts a network.State and applies actions to it one at a
// time, in the order they were dispatched.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"xdao.co/casnet/cidutil"
	"xdao.co/casnet/network"
)

var (
	ErrMailboxFull      = errors.New("engine: mailbox is full")
	ErrStopped          = errors.New("engine: stopped")
	ErrAlreadyStarted   = errors.New("engine: already started")
	ErrUndefinedAddress = errors.New("engine: undefined address")
)

const DefaultMailboxSize = 1024

type Options struct {
	MailboxSize int
	Logger      *zerolog.Logger
}

const (
	stateIdle int32 = iota
	stateRunning
	stateStopped
)

// Engine owns a network.State. Only the loop goroutine touches it; everyone
// else goes through Dispatch, Lookup and Get.
type Engine struct {
	state   *network.State
	waiters map[network.Address][]chan network.Outcome

	mailbox chan Action
	done    chan struct{}
	wg      sync.WaitGroup

	// mu orders Start and Stop; cancel is only read under it.
	mu     sync.Mutex
	cancel context.CancelFunc

	status    int32
	processed uint64

	log zerolog.Logger
}

type Stats struct {
	Processed uint64
	Queued    int
}

func New(opts Options) *Engine {
	size := opts.MailboxSize
	if size <= 0 {
		size = DefaultMailboxSize
	}
	log := zerolog.Nop()
	if opts.Logger != nil {
		log = opts.Logger.With().Str("component", "engine").Logger()
	}
	return &Engine{
		state:   network.NewState(),
		waiters: make(map[network.Address][]chan network.Outcome),
		mailbox: make(chan Action, size),
		done:    make(chan struct{}),
		log:     log,
	}
}

// Start runs the loop until ctx is done or Stop is called.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !atomic.CompareAndSwapInt32(&e.status, stateIdle, stateRunning) {
		return ErrAlreadyStarted
	}
	ctx, e.cancel = context.WithCancel(ctx)
	e.wg.Add(1)
	go e.loop(ctx)
	return nil
}

// Stop ends the loop. Actions still queued are dropped.
func (e *Engine) Stop() {
	e.mu.Lock()
	prev := atomic.SwapInt32(&e.status, stateStopped)
	cancel := e.cancel
	e.mu.Unlock()

	switch prev {
	case stateIdle:
		close(e.done)
	default:
		if cancel != nil {
			cancel()
			e.wg.Wait()
		}
	}
}

// Dispatch queues a for the loop. It never blocks.
func (e *Engine) Dispatch(a Action) error {
	if atomic.LoadInt32(&e.status) == stateStopped {
		return ErrStopped
	}
	switch a := a.(type) {
	case GetEntry:
		if !a.Address.Defined() {
			return ErrUndefinedAddress
		}
	case GetEntryTimeout:
		if !a.Address.Defined() {
			return ErrUndefinedAddress
		}
	}
	select {
	case e.mailbox <- a:
		return nil
	case <-e.done:
		return ErrStopped
	default:
		return ErrMailboxFull
	}
}

// Deliver hands a peer's reply to the engine. Transports call it from their
// own goroutines.
func (e *Engine) Deliver(data network.DhtData) {
	if err := e.Dispatch(HandleGetResult{Data: data}); err != nil {
		e.log.Warn().Err(err).Str("address", data.Address).Msg("dropping reply")
	}
}

// Lookup returns the current outcome for addr.
func (e *Engine) Lookup(ctx context.Context, addr network.Address) (network.Outcome, error) {
	q := lookupQuery{addr: addr, reply: make(chan network.Outcome, 1)}
	if err := e.Dispatch(q); err != nil {
		return network.Outcome{}, err
	}
	return e.await(ctx, q.reply)
}

// Get starts a lookup for addr, schedules its timeout, and waits for the
// address to settle. The returned outcome is never pending. The timeout is
// dispatched even when ctx ends first, so the lookup always settles; it is a
// no-op once a reply has been applied.
func (e *Engine) Get(ctx context.Context, addr network.Address, timeout time.Duration) (network.Outcome, error) {
	if err := e.Dispatch(GetEntry{Address: addr}); err != nil {
		return network.Outcome{}, err
	}
	if timeout > 0 {
		time.AfterFunc(timeout, func() { e.expire(addr) })
	}
	w := watch{addr: addr, reply: make(chan network.Outcome, 1)}
	if err := e.Dispatch(w); err != nil {
		return network.Outcome{}, err
	}
	return e.await(ctx, w.reply)
}

// expire queues the timeout for addr, waiting for mailbox room instead of
// dropping it.
func (e *Engine) expire(addr network.Address) {
	if atomic.LoadInt32(&e.status) == stateStopped {
		return
	}
	select {
	case e.mailbox <- GetEntryTimeout{Address: addr}:
	case <-e.done:
		e.log.Debug().Str("address", addr.String()).Msg("dropping timeout after stop")
	}
}

func (e *Engine) Stats() Stats {
	return Stats{
		Processed: atomic.LoadUint64(&e.processed),
		Queued:    len(e.mailbox),
	}
}

func (e *Engine) await(ctx context.Context, ch <-chan network.Outcome) (network.Outcome, error) {
	select {
	case o := <-ch:
		return o, nil
	case <-ctx.Done():
		return network.Outcome{}, ctx.Err()
	case <-e.done:
		return network.Outcome{}, ErrStopped
	}
}

func (e *Engine) loop(ctx context.Context) {
	defer e.wg.Done()
	defer close(e.done)
	for {
		select {
		case a := <-e.mailbox:
			e.apply(a)
			atomic.AddUint64(&e.processed, 1)
		case <-ctx.Done():
			atomic.StoreInt32(&e.status, stateStopped)
			e.log.Debug().Int("dropped", len(e.mailbox)).Msg("engine stopped")
			return
		}
	}
}

func (e *Engine) apply(a Action) {
	switch a := a.(type) {
	case InitNetwork:
		network.ReduceInitNetwork(e.state, a.Handle)
		if a.Handle != nil {
			e.log.Info().Str("dna", a.Handle.DNAHash).Str("agent", a.Handle.AgentID).Msg("network initialized")
		}

	case GetEntry:
		network.ReduceGetEntry(e.state, a.Address)
		o := e.state.Results.Lookup(a.Address)
		if o.Status == network.StatusFailed {
			e.log.Warn().Str("address", a.Address.String()).Str("reason", string(o.Err.Reason)).Msg(o.Err.Message)
		} else {
			e.log.Debug().Str("address", a.Address.String()).Str("msg_id", o.MsgID).Msg("get entry sent")
		}
		e.release(a.Address)

	case GetEntryTimeout:
		before := e.state.Results.Lookup(a.Address)
		network.ReduceGetEntryTimeout(e.state, a.Address)
		if before.Status == network.StatusPending {
			e.log.Info().Str("address", a.Address.String()).Str("msg_id", before.MsgID).Msg("lookup timed out")
		}
		e.release(a.Address)

	case HandleGetResult:
		e.handleReply(a.Data)

	case lookupQuery:
		a.reply <- e.state.Results.Lookup(a.addr)

	case watch:
		if o := e.state.Results.Lookup(a.addr); o.Settled() || o.Status == network.StatusAbsent {
			a.reply <- o
			return
		}
		e.waiters[a.addr] = append(e.waiters[a.addr], a.reply)

	default:
		e.log.Error().Str("action", fmt.Sprintf("%T", a)).Msg("unknown action")
	}
}

func (e *Engine) handleReply(data network.DhtData) {
	if addr, err := cidutil.Parse(data.Address); err == nil {
		// Replies are matched by address only; a token mismatch means the
		// reply may answer an older request for the same address.
		prev := e.state.Results.Lookup(addr)
		if prev.Status == network.StatusPending && data.MsgID != "" && data.MsgID != prev.MsgID {
			e.log.Warn().
				Str("address", data.Address).
				Str("pending_msg_id", prev.MsgID).
				Str("reply_msg_id", data.MsgID).
				Msg("reply correlation token differs from pending request")
		}
	}

	if err := network.ReduceHandleGetResult(e.state, data); err != nil {
		e.log.Warn().Err(err).Msg("discarding reply")
		return
	}
	addr, _ := cidutil.Parse(data.Address)
	e.log.Debug().Str("address", data.Address).Str("outcome", e.state.Results.Lookup(addr).String()).Msg("get result")
	e.release(addr)
}

// release wakes every waiter on addr once it is settled.
func (e *Engine) release(addr network.Address) {
	o := e.state.Results.Lookup(addr)
	if !o.Settled() {
		return
	}
	for _, ch := range e.waiters[addr] {
		ch <- o
	}
	delete(e.waiters, addr)
}
