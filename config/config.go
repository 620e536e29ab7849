// Package config loads a node's network identity, transport and lookup
// settings from a YAML or JSON file.
//
// Example (YAML):
//
//	dna_hash: QmDna
//	agent_id: alice
//	transport: grpc
//	grpc:
//	  target: 127.0.0.1:7777
//	  dial_timeout: 5s
//	  rpc_timeout: 2s
//	get_timeout: 3s
//	log_level: info
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"xdao.co/casnet/transport"
)

const (
	EnvLogLevel   = "CASNET_LOG_LEVEL"
	EnvGRPCTarget = "CASNET_GRPC_TARGET"
)

type Config struct {
	DNAHash     string   `json:"dna_hash" yaml:"dna_hash"`
	AgentID     string   `json:"agent_id" yaml:"agent_id"`
	Transport   string   `json:"transport,omitempty" yaml:"transport,omitempty"`
	GRPC        GRPC     `json:"grpc,omitempty" yaml:"grpc,omitempty"`
	GetTimeout  Duration `json:"get_timeout,omitempty" yaml:"get_timeout,omitempty"`
	MailboxSize int      `json:"mailbox_size,omitempty" yaml:"mailbox_size,omitempty"`
	LogLevel    string   `json:"log_level,omitempty" yaml:"log_level,omitempty"`
}

type GRPC struct {
	Target      string   `json:"target,omitempty" yaml:"target,omitempty"`
	DialTimeout Duration `json:"dial_timeout,omitempty" yaml:"dial_timeout,omitempty"`
	RPCTimeout  Duration `json:"rpc_timeout,omitempty" yaml:"rpc_timeout,omitempty"`
	MaxMsgBytes int      `json:"max_msg_bytes,omitempty" yaml:"max_msg_bytes,omitempty"`
}

// Default returns the settings used for any field a file leaves out.
func Default() Config {
	return Config{
		Transport:   "grpc",
		GRPC:        GRPC{Target: "127.0.0.1:7777", DialTimeout: Duration(5 * time.Second)},
		GetTimeout:  Duration(3 * time.Second),
		MailboxSize: 1024,
		LogLevel:    "info",
	}
}

// LoadFile reads path over Default, applies environment overrides and
// validates the result. The format follows the file extension.
func LoadFile(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, errors.New("config: empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &cfg)
	case ".json":
		err = json.Unmarshal(b, &cfg)
	default:
		return cfg, fmt.Errorf("config: unsupported file format %q", ext)
	}
	if err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", filepath.Base(path), err)
	}

	cfg.ApplyEnv(os.Getenv)
	return cfg, cfg.Validate()
}

// ApplyEnv overrides fields from the environment.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := strings.TrimSpace(getenv(EnvLogLevel)); v != "" {
		c.LogLevel = v
	}
	if v := strings.TrimSpace(getenv(EnvGRPCTarget)); v != "" {
		c.GRPC.Target = v
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.DNAHash) == "" {
		return errors.New("config: dna_hash is required")
	}
	if strings.TrimSpace(c.AgentID) == "" {
		return errors.New("config: agent_id is required")
	}
	if c.Transport == "" {
		return errors.New("config: transport is required")
	}
	if !transport.Registered(c.Transport) {
		return fmt.Errorf("config: unknown transport %q (registered: %s)", c.Transport, strings.Join(transport.Names(), ", "))
	}
	if c.Transport == "grpc" && strings.TrimSpace(c.GRPC.Target) == "" {
		return errors.New("config: grpc.target is required for the grpc transport")
	}
	for name, d := range map[string]Duration{
		"get_timeout":       c.GetTimeout,
		"grpc.dial_timeout": c.GRPC.DialTimeout,
		"grpc.rpc_timeout":  c.GRPC.RPCTimeout,
	} {
		if d < 0 {
			return fmt.Errorf("config: %s must not be negative", name)
		}
	}
	if c.MailboxSize < 0 {
		return errors.New("config: mailbox_size must not be negative")
	}
	if c.GRPC.MaxMsgBytes < 0 {
		return errors.New("config: grpc.max_msg_bytes must not be negative")
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}
