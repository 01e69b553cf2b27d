package log

import (
	"bytes"
	"strings"
	"testing"
)

func TestConfigureLevelFiltersDebug(t *testing.T) {
	var buf bytes.Buffer
	if err := Configure(&buf, "info"); err != nil {
		t.Fatalf("configure: %v", err)
	}
	defer Configure(nil, "")

	Debugf("hidden %d", 1)
	Infof("shown %d", 2)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug line leaked at info level: %q", out)
	}
	if !strings.Contains(out, "shown 2") {
		t.Fatalf("info line missing: %q", out)
	}
}

func TestConfigureRejectsUnknownLevel(t *testing.T) {
	if err := Configure(nil, "chatty"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}
