package grpcnet

import (
	"fmt"
	"strings"

	"xdao.co/casnet/network"
	"xdao.co/casnet/transport"
)

func init() {
	transport.MustRegister(transport.Backend{
		Name:        "grpc",
		Description: "gRPC client talking to a DHT peer (e.g. casnet-peerd)",
		Open: func(opts transport.Options) (network.Connection, func() error, error) {
			target := strings.TrimSpace(opts.Target)
			if target == "" {
				return nil, nil, fmt.Errorf("grpcnet: missing target")
			}
			client, err := Dial(target, DialOptions{
				Timeout:     opts.DialTimeout,
				MaxMsgBytes: opts.MaxMsgBytes,
				Logger:      opts.Logger,
			}, opts.OnReply)
			if err != nil {
				return nil, nil, err
			}
			client.Timeout = opts.RPCTimeout
			return client, client.Close, nil
		},
	})
}
