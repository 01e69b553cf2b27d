package server

import (
	"encoding/binary"
	"time"

	"github.com/brodyxchen/vsockcmd/constant"
	"github.com/brodyxchen/vsockcmd/family"
)

type Config struct {
	Port    uint32
	Backend string // vsocket or tcp
	TCPAddr string // listen address for the tcp backend, host:port

	ByteOrder binary.ByteOrder

	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	BufferSize   int
	MaxSkipCount int

	Resolver *family.Resolver
}

func (cfg *Config) GetPort() uint32 {
	if cfg.Port > 0 {
		return cfg.Port
	}
	return constant.DefaultServicePort
}

func (cfg *Config) GetBackend() string {
	if cfg.Backend != "" {
		return cfg.Backend
	}
	return constant.DefaultBackend
}

func (cfg *Config) GetTCPAddr() string {
	if cfg.TCPAddr != "" {
		return cfg.TCPAddr
	}
	return "127.0.0.1:15000"
}

func (cfg *Config) GetByteOrder() binary.ByteOrder {
	if cfg.ByteOrder != nil {
		return cfg.ByteOrder
	}
	return binary.BigEndian
}

func (cfg *Config) GetReadTimeout() time.Duration {
	if cfg.ReadTimeout > 0 {
		return cfg.ReadTimeout
	}
	return constant.ServerReadTimeout
}

func (cfg *Config) GetWriteTimeout() time.Duration {
	if cfg.WriteTimeout > 0 {
		return cfg.WriteTimeout
	}
	return constant.ServerWriteTimeout
}

func (cfg *Config) GetBufferSize() int {
	if cfg.BufferSize > 0 {
		return cfg.BufferSize
	}
	return constant.MaxServerRequestBytes
}

func (cfg *Config) GetMaxSkipCount() int {
	if cfg.MaxSkipCount > 0 {
		return cfg.MaxSkipCount
	}
	return constant.MaxSkipCount
}

func (cfg *Config) GetResolver() *family.Resolver {
	if cfg.Resolver != nil {
		return cfg.Resolver
	}
	return family.Default()
}
