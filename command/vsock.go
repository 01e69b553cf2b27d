package command

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"syscall"
	"time"

	"github.com/brodyxchen/vsockcmd/client"
	"github.com/brodyxchen/vsockcmd/errors"
	"github.com/brodyxchen/vsockcmd/log"
)

// VsockRunner sends commands through a client, one at a time.
type VsockRunner struct {
	Client  *client.Client
	Port    uint32
	Backend string

	// Retries is how many more times a failed exchange is attempted.
	// Replies carrying an error are never retried.
	Retries int
	Backoff BackoffConfig

	mu  sync.Mutex
	rng *rand.Rand
}

func NewVsockRunner(cli *client.Client, port uint32, backend string) *VsockRunner {
	return &VsockRunner{
		Client:  cli,
		Port:    port,
		Backend: backend,
		Backoff: DefaultBackoff(),
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *VsockRunner) Run(ctx context.Context, cmd string, name string, opts map[string]string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	request, err := Marshal(cmd, name, opts)
	if err != nil {
		return nil, fmt.Errorf("marshal %q request: %w", cmd, err)
	}

	for attempt := 0; ; attempt++ {
		reply, err := r.Client.Issue(ctx, r.Port, request, r.Backend)
		if err == nil {
			response := append([]byte(nil), reply.Bytes()...)
			reply.Release()
			if err := ReplyError(response); err != nil {
				return nil, err
			}
			return response, nil
		}

		if attempt >= r.Retries || errors.CodeOf(err) == errors.CodeBadBackend {
			errno := errors.Errno(err)
			err = errors.Wrap(err, fmt.Errorf("'%s' failed (errno=%d)", cmd, int(errno)))
			if errno == syscall.ECONNRESET || errno == syscall.ETIMEDOUT {
				log.Warnf("%v, cannot communicate with the host", err)
			} else {
				log.Warnf("%v", err)
			}
			return nil, err
		}

		delay := NextBackoffDelay(r.Backoff, attempt+1, r.rng)
		log.Warnf("'%s' failed: %v, retrying in %v", cmd, err, delay)
		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}
	}
}
