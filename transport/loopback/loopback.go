// Package loopback answers lookups from an in-process record store. Replies
// are delivered on a separate goroutine, like a remote peer's would be.
package loopback

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"xdao.co/casnet/cidutil"
	"xdao.co/casnet/network"
	"xdao.co/casnet/storage"
	"xdao.co/casnet/storage/memcas"
	"xdao.co/casnet/transport"
)

const AgentID = "loopback"

func init() {
	transport.MustRegister(transport.Backend{
		Name:        "loopback",
		Description: "In-process peer answering from a local record store",
		Open: func(opts transport.Options) (network.Connection, func() error, error) {
			store := opts.Store
			if store == nil {
				store = memcas.New()
			}
			c := New(store, opts.OnReply, opts.Logger)
			return c, c.Close, nil
		},
	})
}

type Conn struct {
	store   storage.CAS
	onReply transport.ReplyFunc
	log     zerolog.Logger

	// Delay holds each reply back before delivery.
	Delay time.Duration

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func New(store storage.CAS, onReply transport.ReplyFunc, logger *zerolog.Logger) *Conn {
	log := zerolog.Nop()
	if logger != nil {
		log = logger.With().Str("transport", "loopback").Logger()
	}
	return &Conn{store: store, onReply: onReply, log: log}
}

func (c *Conn) Send(req network.GetDhtData) error {
	if _, err := cidutil.Parse(req.Address); err != nil {
		return storage.ErrInvalidCID
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return transport.ErrClosed
	}
	c.wg.Add(1)
	go c.answer(req)
	return nil
}

func (c *Conn) answer(req network.GetDhtData) {
	defer c.wg.Done()
	if c.Delay > 0 {
		time.Sleep(c.Delay)
	}
	reply, err := transport.Answer(c.store, req, AgentID)
	if err != nil {
		c.log.Warn().Err(err).Str("address", req.Address).Msg("lookup not answered")
		return
	}
	c.onReply(reply)
}

// Close waits for in-flight replies to be delivered.
func (c *Conn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()
	c.wg.Wait()
	return nil
}
