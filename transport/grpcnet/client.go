package grpcnet

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"

	"xdao.co/casnet/cidutil"
	"xdao.co/casnet/network"
	"xdao.co/casnet/storage"
	"xdao.co/casnet/transport"
)

// Client sends lookups to a DHT peer. Send returns once the request is
// handed to a goroutine; the reply, if any, arrives through onReply.
type Client struct {
	cc      *grpc.ClientConn
	client  DHTClient
	peer    string
	onReply transport.ReplyFunc
	log     zerolog.Logger

	// Timeout applies per RPC when non-zero.
	Timeout time.Duration

	base   context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

type DialOptions struct {
	// Timeout applies to the initial dial when non-zero.
	Timeout time.Duration

	// MaxMsgBytes sets both send/recv max sizes when non-zero.
	MaxMsgBytes int

	Logger *zerolog.Logger
}

func Dial(target string, opts DialOptions, onReply transport.ReplyFunc) (*Client, error) {
	dialOpts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}
	if opts.MaxMsgBytes > 0 {
		dialOpts = append(dialOpts,
			grpc.WithDefaultCallOptions(
				grpc.MaxCallRecvMsgSize(opts.MaxMsgBytes),
				grpc.MaxCallSendMsgSize(opts.MaxMsgBytes),
			),
		)
	}

	ctx := context.Background()
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	cc, err := grpc.DialContext(ctx, target, dialOpts...)
	if err != nil {
		return nil, err
	}
	return newClient(cc, target, onReply, opts.Logger), nil
}

func newClient(cc *grpc.ClientConn, peer string, onReply transport.ReplyFunc, logger *zerolog.Logger) *Client {
	log := zerolog.Nop()
	if logger != nil {
		log = logger.With().Str("transport", "grpc").Str("peer", peer).Logger()
	}
	base, cancel := context.WithCancel(context.Background())
	return &Client{
		cc:      cc,
		client:  NewDHTClient(cc),
		peer:    peer,
		onReply: onReply,
		log:     log,
		base:    base,
		cancel:  cancel,
	}
}

func (c *Client) Send(req network.GetDhtData) error {
	if _, err := cidutil.Parse(req.Address); err != nil {
		return storage.ErrInvalidCID
	}
	in, err := encodeRequest(req)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.cc.GetState() == connectivity.Shutdown {
		return transport.ErrClosed
	}
	c.wg.Add(1)
	go c.roundTrip(req, in)
	return nil
}

func (c *Client) roundTrip(req network.GetDhtData, in *structpb.Struct) {
	defer c.wg.Done()
	ctx, cancel := c.ctx()
	defer cancel()

	out, err := c.client.GetDht(ctx, in)
	var reply network.DhtData
	switch err = mapRPC(err); {
	case err == nil:
		reply, err = transport.NewReply(req, c.peer, out.GetValue(), true)
	case errors.Is(err, storage.ErrNotFound):
		reply, err = transport.NewReply(req, c.peer, nil, false)
	}
	if err != nil {
		// Left pending; the lookup's timeout settles it.
		c.log.Warn().Err(err).Str("address", req.Address).Str("msg_id", req.MsgID).Msg("lookup dropped")
		return
	}
	c.onReply(reply)
}

// Close cancels in-flight lookups and closes the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.cancel()
	c.wg.Wait()
	return c.cc.Close()
}

func (c *Client) ctx() (context.Context, context.CancelFunc) {
	if c.Timeout <= 0 {
		return context.WithCancel(c.base)
	}
	return context.WithTimeout(c.base, c.Timeout)
}
