package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	out, _, err := executeStreams(t, stdin, args...)
	return out, err
}

func executeStreams(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	root := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), errOut.String(), err
}

func TestSendDummy(t *testing.T) {
	out, err := execute(t, "", "send", "--backend", "dummy", `{"cmd":"list"}`)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if out != "none\n" {
		t.Fatalf("output = %q", out)
	}

	out, err = execute(t, "{}\n", "send", "-b", "dummy")
	if err != nil || out != "none\n" {
		t.Fatalf("send from stdin: %q, %v", out, err)
	}
}

func TestSendUnknownBackend(t *testing.T) {
	_, err := execute(t, "", "send", "--backend", "vmci", "{}")
	if err == nil || !strings.Contains(err.Error(), "bad back end name") {
		t.Fatalf("expected bad backend error, got %v", err)
	}
}

func TestBackends(t *testing.T) {
	out, err := execute(t, "", "backends")
	if err != nil {
		t.Fatalf("backends: %v", err)
	}
	want := "dummy    Dummy Backend\ntcp      Loopback TCP\nvsocket  Virtual Socket\n"
	if diff := cmp.Diff(want, out); diff != "" {
		t.Fatalf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestParseOpts(t *testing.T) {
	got, err := parseOpts([]string{"size=10gb", " fstype =ext4", "label=a=b"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := map[string]string{"size": "10gb", "fstype": "ext4", "label": "a=b"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("opts mismatch (-want +got):\n%s", diff)
	}
	if _, err := parseOpts([]string{"novalue"}); err == nil {
		t.Fatalf("expected error for missing '='")
	}
}

func TestCidWritesToCommandStreams(t *testing.T) {
	out, errOut, err := executeStreams(t, "", "cid")
	if err != nil {
		if !strings.Contains(errOut, "vsock is not available on this machine") {
			t.Fatalf("notice missing from command stderr: %q", errOut)
		}
		return
	}
	if strings.TrimSpace(out) == "" {
		t.Fatalf("no context id printed")
	}
}
