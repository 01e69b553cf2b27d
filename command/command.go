// Package command builds the JSON command envelope the host service expects
// and sends it over the client channel.
package command

import (
	"context"
	"encoding/json"

	"github.com/brodyxchen/vsockcmd/errors"
)

const Version = "2"

// Runner sends one command about the named object and returns the JSON reply.
type Runner interface {
	Run(ctx context.Context, cmd string, name string, opts map[string]string) ([]byte, error)
}

type Request struct {
	Cmd     string  `json:"cmd"`
	Details Details `json:"details"`
	Version string  `json:"version,omitempty"`
}

type Details struct {
	Name string            `json:"Name"`
	Opts map[string]string `json:"Opts,omitempty"`
}

type replyError struct {
	Error string `json:",omitempty"`
}

func Marshal(cmd, name string, opts map[string]string) ([]byte, error) {
	return json.Marshal(&Request{
		Cmd:     cmd,
		Details: Details{Name: name, Opts: opts},
		Version: Version,
	})
}

// ReplyError returns the error carried by a {"Error":"..."} reply. "null",
// non-JSON text and objects without an Error field are not errors.
func ReplyError(reply []byte) error {
	if string(reply) == "null" {
		return nil
	}
	var e replyError
	if err := json.Unmarshal(reply, &e); err != nil || e.Error == "" {
		return nil
	}
	return errors.New(e.Error)
}
