package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"xdao.co/casnet/cidutil"
	"xdao.co/casnet/config"
	"xdao.co/casnet/engine"
	"xdao.co/casnet/network"
	"xdao.co/casnet/storage"
	"xdao.co/casnet/storage/localfs"
	"xdao.co/casnet/transport"

	_ "xdao.co/casnet/transport/grpcnet"
	_ "xdao.co/casnet/transport/loopback"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		printUsage(errOut)
		return 2
	}

	switch args[0] {
	case "put":
		return cmdPut(args[1:], out, errOut)
	case "get":
		return cmdGet(args[1:], out, errOut)
	case "transports":
		for _, b := range transport.List() {
			_, _ = fmt.Fprintf(out, "%s\t%s\n", b.Name, b.Description)
		}
		return 0
	case "help", "-h", "--help":
		printUsage(out)
		return 0
	default:
		fmt.Fprintf(errOut, "unknown command: %s\n\n", args[0])
		printUsage(errOut)
		return 2
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "casnet: look up content-addressed records on the network")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  casnet put --localfs-dir <dir> <file>")
	fmt.Fprintln(w, "  casnet get --config <node.yaml> [--transport grpc|loopback] [--timeout 3s] [--print] <cid> [<cid> ...]")
	fmt.Fprintln(w, "  casnet get --config <node.yaml> --transport loopback --localfs-dir <dir> <cid>")
	fmt.Fprintln(w, "  casnet transports")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Notes:")
	fmt.Fprintln(w, "  - records are stored as CIDv1 raw + sha2-256")
	fmt.Fprintln(w, "  - the grpc transport talks to casnet-peerd")
	fmt.Fprintln(w, "  - get exits 1 if any lookup failed; a record that does not exist is not a failure")
}

func cmdPut(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("put", flag.ContinueOnError)
	fs.SetOutput(errOut)
	dir := fs.String("localfs-dir", "", "LocalFS record directory")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *dir == "" || fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: casnet put --localfs-dir <dir> <file>")
		return 2
	}

	cas, err := localfs.New(*dir)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	p := fs.Arg(0)
	b, err := os.ReadFile(p)
	if err != nil {
		fmt.Fprintf(errOut, "read %s: %v\n", filepath.Base(p), err)
		return 1
	}
	id, err := cas.Put(b)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	_, _ = fmt.Fprintln(out, id.String())
	return 0
}

func cmdGet(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("get", flag.ContinueOnError)
	fs.SetOutput(errOut)
	cfgPath := fs.String("config", "", "node config file (.yaml, .yml or .json)")
	transportName := fs.String("transport", "", "override the configured transport")
	timeout := fs.Duration("timeout", 0, "override the configured get_timeout")
	dir := fs.String("localfs-dir", "", "record directory answered by the loopback transport")
	printContent := fs.Bool("print", false, "write found records to stdout")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *cfgPath == "" || fs.NArg() == 0 {
		fmt.Fprintln(errOut, "usage: casnet get --config <file> <cid> [<cid> ...]")
		return 2
	}

	cfg, err := config.LoadFile(*cfgPath)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 2
	}
	if *transportName != "" {
		cfg.Transport = *transportName
	}
	if *timeout > 0 {
		cfg.GetTimeout = config.Duration(*timeout)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(errOut, err)
		return 2
	}

	ids := make([]network.Address, 0, fs.NArg())
	for _, s := range fs.Args() {
		id, err := cidutil.Parse(s)
		if err != nil {
			fmt.Fprintf(errOut, "%s: %v\n", s, storage.ErrInvalidCID)
			return 2
		}
		ids = append(ids, id)
	}

	log := config.NewLogger(errOut, "casnet", cfg.LogLevel)
	e := engine.New(engine.Options{MailboxSize: cfg.MailboxSize, Logger: &log})

	opts := transport.Options{
		Target:      cfg.GRPC.Target,
		DialTimeout: cfg.GRPC.DialTimeout.Std(),
		RPCTimeout:  cfg.GRPC.RPCTimeout.Std(),
		MaxMsgBytes: cfg.GRPC.MaxMsgBytes,
		OnReply:     e.Deliver,
		Logger:      &log,
	}
	if *dir != "" {
		cas, err := localfs.New(*dir)
		if err != nil {
			fmt.Fprintln(errOut, err)
			return 1
		}
		opts.Store = cas
	}
	conn, closeFn, err := transport.Open(cfg.Transport, opts)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	if closeFn != nil {
		defer closeFn()
	}

	ctx := context.Background()
	if err := e.Start(ctx); err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	defer e.Stop()
	if err := e.Dispatch(engine.InitNetwork{Handle: network.NewHandle(cfg.DNAHash, cfg.AgentID, conn)}); err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}

	return getAll(ctx, e, ids, cfg.GetTimeout.Std(), *printContent, out, errOut)
}

func getAll(ctx context.Context, e *engine.Engine, ids []network.Address, timeout time.Duration, printContent bool, out, errOut io.Writer) int {
	code := 0
	for _, id := range ids {
		// Leave the engine's own timeout room to settle the lookup first.
		waitCtx, cancel := context.WithTimeout(ctx, timeout+time.Second)
		o, err := e.Get(waitCtx, id, timeout)
		cancel()
		if err != nil {
			fmt.Fprintf(errOut, "%s: %v\n", id, err)
			code = 1
			continue
		}
		_, _ = fmt.Fprintf(out, "%s\t%s\n", id, describe(o))
		switch {
		case o.Status == network.StatusFailed:
			code = 1
		case printContent && o.Found():
			_, _ = out.Write(o.Entry.Content)
			if !strings.HasSuffix(string(o.Entry.Content), "\n") {
				_, _ = fmt.Fprintln(out)
			}
		}
	}
	return code
}

func describe(o network.Outcome) string {
	switch o.Status {
	case network.StatusSucceeded:
		if o.Entry == nil {
			return "not-found"
		}
		return fmt.Sprintf("found\t%d bytes", len(o.Entry.Content))
	case network.StatusFailed:
		return fmt.Sprintf("failed\t%s\t%s", o.Err.Reason, o.Err.Message)
	default:
		return o.Status.String()
	}
}
