package command

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// MockRunner answers volume commands from memory without any transport.
type MockRunner struct {
	mu      sync.Mutex
	volumes map[string]map[string]string
}

func NewMockRunner() *MockRunner {
	return &MockRunner{volumes: make(map[string]map[string]string)}
}

type volumeData struct {
	Name       string
	Attributes map[string]string `json:",omitempty"`
}

func (m *MockRunner) Run(_ context.Context, cmd string, name string, opts map[string]string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch cmd {
	case "create":
		if _, ok := m.volumes[name]; ok {
			return nil, fmt.Errorf("volume %s already exists", name)
		}
		attrs := make(map[string]string, len(opts))
		for k, v := range opts {
			attrs[k] = v
		}
		m.volumes[name] = attrs
		return nil, nil
	case "remove":
		if _, ok := m.volumes[name]; !ok {
			return nil, fmt.Errorf("volume %s not found", name)
		}
		delete(m.volumes, name)
		return nil, nil
	case "attach", "detach":
		if _, ok := m.volumes[name]; !ok {
			return nil, fmt.Errorf("volume %s not found", name)
		}
		return []byte("null"), nil
	case "get":
		attrs, ok := m.volumes[name]
		if !ok {
			return nil, fmt.Errorf("volume %s not found", name)
		}
		return json.Marshal(attrs)
	case "list":
		names := make([]string, 0, len(m.volumes))
		for n := range m.volumes {
			names = append(names, n)
		}
		sort.Strings(names)
		list := make([]volumeData, 0, len(names))
		for _, n := range names {
			list = append(list, volumeData{Name: n, Attributes: m.volumes[n]})
		}
		return json.Marshal(list)
	}
	return nil, fmt.Errorf("unknown command %q", cmd)
}
