package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"xdao.co/casnet/config"
	"xdao.co/casnet/storage"
	"xdao.co/casnet/storage/localfs"
	"xdao.co/casnet/storage/memcas"
	"xdao.co/casnet/transport/grpcnet"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}

func run(args []string, errOut io.Writer) int {
	fs := flag.NewFlagSet("casnet-peerd", flag.ContinueOnError)
	fs.SetOutput(errOut)
	listen := fs.String("listen", "127.0.0.1:7777", "listen address")
	store := fs.String("store", "localfs", "record store: localfs or memory")
	dir := fs.String("localfs-dir", "", "LocalFS record directory (for --store=localfs)")
	level := fs.String("log-level", "info", "log level (trace, debug, info, warn, error, off)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if v := os.Getenv(config.EnvLogLevel); v != "" {
		*level = v
	}
	log := config.NewLogger(errOut, "casnet-peerd", *level)

	cas, err := openStore(*store, *dir)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 2
	}

	lis, err := net.Listen("tcp", *listen)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}

	s := grpc.NewServer()
	grpcnet.RegisterDHTServer(s, &grpcnet.Server{Store: cas, Logger: &log})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("listen", lis.Addr().String()).Str("store", *store).Msg("serving lookups")
		return s.Serve(lis)
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info().Msg("shutting down")
		s.GracefulStop()
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		log.Error().Err(err).Msg("server failed")
		return 1
	}
	return 0
}

func openStore(name, dir string) (storage.CAS, error) {
	switch name {
	case "localfs":
		if dir == "" {
			return nil, fmt.Errorf("missing --localfs-dir")
		}
		return localfs.New(dir)
	case "memory":
		return memcas.New(), nil
	default:
		return nil, fmt.Errorf("unknown store %q", name)
	}
}
