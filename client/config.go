package client

import (
	"encoding/binary"
	"time"

	"github.com/brodyxchen/vsockcmd/constant"
)

type Config struct {
	Timeout   time.Duration
	ContextId uint32
	Port      uint32
	Backend   string

	MaxRequestBytes int
	MaxReplyBytes   int

	// Source port range bound by the vsock backend before connecting.
	StartPort uint32
	EndPort   uint32

	ByteOrder binary.ByteOrder
	TCPHost   string
}

func (cfg *Config) GetTimeout() time.Duration {
	if cfg.Timeout > 0 {
		return cfg.Timeout
	}
	return constant.ClientTimeout
}

func (cfg *Config) GetContextId() uint32 {
	if cfg.ContextId > 0 {
		return cfg.ContextId
	}
	return constant.HostContextId
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

func (cfg *Config) GetMaxRequestBytes() int {
	if cfg.MaxRequestBytes > 0 {
		return cfg.MaxRequestBytes
	}
	return constant.MaxRequestBytes
}

func (cfg *Config) GetMaxReplyBytes() int {
	if cfg.MaxReplyBytes > 0 {
		return cfg.MaxReplyBytes
	}
	return constant.MaxRequestBytes
}

// GetPortRange returns the bind range, falling back to the default range when
// either end is unset or the range is inverted.
func (cfg *Config) GetPortRange() (uint32, uint32) {
	if cfg.StartPort > 0 && cfg.EndPort >= cfg.StartPort {
		return cfg.StartPort, cfg.EndPort
	}
	return constant.StartClientPort, constant.MaxClientPort
}

func (cfg *Config) GetByteOrder() binary.ByteOrder {
	if cfg.ByteOrder != nil {
		return cfg.ByteOrder
	}
	return binary.BigEndian
}

func (cfg *Config) GetTCPHost() string {
	if cfg.TCPHost != "" {
		return cfg.TCPHost
	}
	return "127.0.0.1"
}
