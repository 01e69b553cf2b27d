package config

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "vsockcmd.yaml", `
log:
  level: debug
client:
  backend: tcp
  port: 16000
  timeout: 5s
  byte_order: native
  start_port: 200
  end_port: 300
server:
  backend: tcp
  tcp_addr: 127.0.0.1:16000
  read_timeout: 2s
metrics:
  addr: 127.0.0.1:9100
`)
	f, err := Load(path, false)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if f.Log.Level != "debug" || f.Metrics.Addr != "127.0.0.1:9100" {
		t.Fatalf("unexpected file: %+v", f)
	}

	cc := f.ClientConfig()
	if cc.Backend != "tcp" || cc.Port != 16000 || cc.Timeout != 5*time.Second || cc.ByteOrder != binary.NativeEndian {
		t.Fatalf("client config: %+v", cc)
	}
	if start, end := cc.GetPortRange(); start != 200 || end != 300 {
		t.Fatalf("port range %d-%d", start, end)
	}

	sc := f.ServerConfig()
	if sc.TCPAddr != "127.0.0.1:16000" || sc.ReadTimeout != 2*time.Second || sc.GetWriteTimeout() != 30*time.Second {
		t.Fatalf("server config: %+v", sc)
	}
}

func TestLoadTOMLMatchesYAML(t *testing.T) {
	yamlPath := writeFile(t, "a.yml", `
client:
  backend: dummy
  retries: 2
server:
  port: 15001
  max_skip_count: 4
`)
	tomlPath := writeFile(t, "a.toml", `
[client]
backend = "dummy"
retries = 2

[server]
port = 15001
max_skip_count = 4
`)
	fromYAML, err := Load(yamlPath, false)
	if err != nil {
		t.Fatalf("load yaml: %v", err)
	}
	fromTOML, err := Load(tomlPath, false)
	if err != nil {
		t.Fatalf("load toml: %v", err)
	}
	if diff := cmp.Diff(fromYAML, fromTOML); diff != "" {
		t.Fatalf("yaml and toml differ (-yaml +toml):\n%s", diff)
	}
}

func TestLoadMissing(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "none.yaml")
	if _, err := Load(missing, false); err == nil {
		t.Fatalf("expected error for missing file")
	}
	f, err := Load(missing, true)
	if err != nil {
		t.Fatalf("optional missing file: %v", err)
	}
	if f.ClientConfig().GetBackend() != "vsocket" {
		t.Fatalf("default backend = %q", f.ClientConfig().GetBackend())
	}
}

func TestValidate(t *testing.T) {
	cases := map[string]File{
		"unknown client backend": {Client: Client{Backend: "vmci"}},
		"dummy server backend":   {Server: Server{Backend: "dummy"}},
		"inverted port range":    {Client: Client{StartPort: 300, EndPort: 200}},
		"half port range":        {Client: Client{EndPort: 200}},
		"negative retries":       {Client: Client{Retries: -1}},
		"bad byte order":         {Server: Server{ByteOrder: "middle"}},
		"bad timeout":            {Client: Client{Timeout: "soon"}},
		"negative timeout":       {Server: Server{ReadTimeout: "-1s"}},
	}
	for name, f := range cases {
		if err := f.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
	if err := (&File{}).Validate(); err != nil {
		t.Fatalf("empty file: %v", err)
	}
}
