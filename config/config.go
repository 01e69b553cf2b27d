// Package config loads the file configuration shared by the vsockcmd client
// and daemon. Files ending in .toml are TOML; anything else is YAML.
package config

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/brodyxchen/vsockcmd/client"
	"github.com/brodyxchen/vsockcmd/constant"
	"github.com/brodyxchen/vsockcmd/server"
)

type File struct {
	Log     Log     `yaml:"log" toml:"log"`
	Client  Client  `yaml:"client" toml:"client"`
	Server  Server  `yaml:"server" toml:"server"`
	Metrics Metrics `yaml:"metrics" toml:"metrics"`
}

type Log struct {
	Level string `yaml:"level" toml:"level"`
}

type Client struct {
	Backend       string `yaml:"backend" toml:"backend"`
	ContextID     uint32 `yaml:"context_id" toml:"context_id"`
	Port          uint32 `yaml:"port" toml:"port"`
	Timeout       string `yaml:"timeout" toml:"timeout"`
	ByteOrder     string `yaml:"byte_order" toml:"byte_order"`
	StartPort     uint32 `yaml:"start_port" toml:"start_port"`
	EndPort       uint32 `yaml:"end_port" toml:"end_port"`
	TCPHost       string `yaml:"tcp_host" toml:"tcp_host"`
	MaxReplyBytes int    `yaml:"max_reply_bytes" toml:"max_reply_bytes"`
	Retries       int    `yaml:"retries" toml:"retries"`
}

type Server struct {
	Backend      string `yaml:"backend" toml:"backend"`
	Port         uint32 `yaml:"port" toml:"port"`
	TCPAddr      string `yaml:"tcp_addr" toml:"tcp_addr"`
	ByteOrder    string `yaml:"byte_order" toml:"byte_order"`
	ReadTimeout  string `yaml:"read_timeout" toml:"read_timeout"`
	WriteTimeout string `yaml:"write_timeout" toml:"write_timeout"`
	BufferSize   int    `yaml:"buffer_size" toml:"buffer_size"`
	MaxSkipCount int    `yaml:"max_skip_count" toml:"max_skip_count"`
}

type Metrics struct {
	Addr        string `yaml:"addr" toml:"addr"`
	LogInterval string `yaml:"log_interval" toml:"log_interval"`
}

// Load reads path. A missing path is not an error when optional is set.
func Load(path string, optional bool) (*File, error) {
	var f File
	if path == "" {
		return &f, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if optional && os.IsNotExist(err) {
			return &f, nil
		}
		return nil, fmt.Errorf("load config: %w", err)
	}

	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(string(raw), &f); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	} else if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &f, nil
}

func (f *File) Validate() error {
	if err := validateBackend("client.backend", f.Client.Backend, true); err != nil {
		return err
	}
	if err := validateBackend("server.backend", f.Server.Backend, false); err != nil {
		return err
	}
	if f.Client.StartPort != 0 || f.Client.EndPort != 0 {
		if f.Client.StartPort == 0 || f.Client.EndPort < f.Client.StartPort {
			return fmt.Errorf("client port range %d-%d is invalid", f.Client.StartPort, f.Client.EndPort)
		}
	}
	if f.Client.Retries < 0 {
		return fmt.Errorf("client.retries must not be negative")
	}
	for name, v := range map[string]string{
		"client.byte_order": f.Client.ByteOrder,
		"server.byte_order": f.Server.ByteOrder,
	} {
		if _, err := ParseByteOrder(v); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	for name, v := range map[string]string{
		"client.timeout":       f.Client.Timeout,
		"server.read_timeout":  f.Server.ReadTimeout,
		"server.write_timeout": f.Server.WriteTimeout,
		"metrics.log_interval": f.Metrics.LogInterval,
	} {
		if _, err := parseDuration(v); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

func validateBackend(field, name string, dummyAllowed bool) error {
	switch name {
	case "", constant.DefaultBackend, constant.TCPBackend:
		return nil
	case constant.DummyBackend:
		if dummyAllowed {
			return nil
		}
	}
	return fmt.Errorf("%s: unsupported backend %q", field, name)
}

// ParseByteOrder accepts "network" (the default) and "native".
func ParseByteOrder(s string) (binary.ByteOrder, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "network", "big":
		return binary.BigEndian, nil
	case "native":
		return binary.NativeEndian, nil
	}
	return nil, fmt.Errorf("unknown byte order %q", s)
}

func parseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %s", s)
	}
	return d, nil
}

// ClientConfig converts the client section. The file must have been validated.
func (f *File) ClientConfig() *client.Config {
	order, _ := ParseByteOrder(f.Client.ByteOrder)
	timeout, _ := parseDuration(f.Client.Timeout)
	return &client.Config{
		Timeout:       timeout,
		ContextId:     f.Client.ContextID,
		Port:          f.Client.Port,
		Backend:       f.Client.Backend,
		MaxReplyBytes: f.Client.MaxReplyBytes,
		StartPort:     f.Client.StartPort,
		EndPort:       f.Client.EndPort,
		ByteOrder:     order,
		TCPHost:       f.Client.TCPHost,
	}
}

func (f *File) ServerConfig() *server.Config {
	order, _ := ParseByteOrder(f.Server.ByteOrder)
	readTimeout, _ := parseDuration(f.Server.ReadTimeout)
	writeTimeout, _ := parseDuration(f.Server.WriteTimeout)
	return &server.Config{
		Port:         f.Server.Port,
		Backend:      f.Server.Backend,
		TCPAddr:      f.Server.TCPAddr,
		ByteOrder:    order,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		BufferSize:   f.Server.BufferSize,
		MaxSkipCount: f.Server.MaxSkipCount,
	}
}

func (f *File) LogInterval() time.Duration {
	d, _ := parseDuration(f.Metrics.LogInterval)
	return d
}
