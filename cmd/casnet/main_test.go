package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"xdao.co/casnet/cidutil"
)

func TestRun_Usage(t *testing.T) {
	var out, errOut bytes.Buffer
	if code := run(nil, &out, &errOut); code != 2 {
		t.Fatalf("no args: got %d want 2", code)
	}
	if code := run([]string{"bogus"}, &out, &errOut); code != 2 {
		t.Fatalf("unknown command: got %d want 2", code)
	}
	if !strings.Contains(errOut.String(), "unknown command: bogus") {
		t.Fatalf("missing unknown command message: %q", errOut.String())
	}
}

func TestRun_Transports(t *testing.T) {
	var out, errOut bytes.Buffer
	if code := run([]string{"transports"}, &out, &errOut); code != 0 {
		t.Fatalf("got %d: %s", code, errOut.String())
	}
	for _, name := range []string{"grpc", "loopback"} {
		if !strings.Contains(out.String(), name) {
			t.Fatalf("transports output missing %q: %q", name, out.String())
		}
	}
}

func TestRun_PutThenGetLoopback(t *testing.T) {
	tmp := t.TempDir()
	storeDir := filepath.Join(tmp, "records")
	recordPath := filepath.Join(tmp, "record.txt")
	if err := os.WriteFile(recordPath, []byte("hello from the store\n"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	cfgPath := filepath.Join(tmp, "node.yaml")
	if err := os.WriteFile(cfgPath, []byte("dna_hash: QmDna\nagent_id: alice\ntransport: loopback\nget_timeout: 2s\nlog_level: off\n"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	var out, errOut bytes.Buffer
	if code := run([]string{"put", "--localfs-dir", storeDir, recordPath}, &out, &errOut); code != 0 {
		t.Fatalf("put: got %d: %s", code, errOut.String())
	}
	id := strings.TrimSpace(out.String())
	if id != cidutil.CIDv1RawSHA256([]byte("hello from the store\n")) {
		t.Fatalf("put printed %q", id)
	}
	missing := cidutil.CIDv1RawSHA256([]byte("never stored"))

	out.Reset()
	errOut.Reset()
	code := run([]string{"get", "--config", cfgPath, "--localfs-dir", storeDir, "--print", id, missing}, &out, &errOut)
	if code != 0 {
		t.Fatalf("get: got %d: %s", code, errOut.String())
	}
	got := out.String()
	if !strings.Contains(got, id+"\tfound\t21 bytes") {
		t.Fatalf("missing found line: %q", got)
	}
	if !strings.Contains(got, "hello from the store") {
		t.Fatalf("record not printed: %q", got)
	}
	if !strings.Contains(got, missing+"\tnot-found") {
		t.Fatalf("missing not-found line: %q", got)
	}
}

func TestRun_GetRejectsBadCID(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "node.json")
	if err := os.WriteFile(cfgPath, []byte(`{"dna_hash":"d","agent_id":"a","transport":"loopback"}`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	var out, errOut bytes.Buffer
	if code := run([]string{"get", "--config", cfgPath, "not-a-cid"}, &out, &errOut); code != 2 {
		t.Fatalf("got %d want 2", code)
	}
}

func TestRun_GetRejectsUnknownTransport(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "node.json")
	if err := os.WriteFile(cfgPath, []byte(`{"dna_hash":"d","agent_id":"a","transport":"loopback"}`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	id := cidutil.CIDv1RawSHA256([]byte("entry"))
	var out, errOut bytes.Buffer
	if code := run([]string{"get", "--config", cfgPath, "--transport", "smoke-signal", id}, &out, &errOut); code != 2 {
		t.Fatalf("got %d want 2 (stderr %q)", code, errOut.String())
	}
	if !strings.Contains(errOut.String(), `unknown transport "smoke-signal"`) {
		t.Fatalf("stderr: %q", errOut.String())
	}
}
