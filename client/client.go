package client

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/brodyxchen/vsockcmd/errors"
	"github.com/brodyxchen/vsockcmd/family"
	"github.com/brodyxchen/vsockcmd/log"
	"github.com/brodyxchen/vsockcmd/socket"
	"github.com/brodyxchen/vsockcmd/statistics"
)

// Client sends one request per call to the host and returns its reply.
// Every call opens and closes its own connection.
type Client struct {
	cfg      *Config
	registry *Registry
	resolver *family.Resolver
}

// NewClient builds a client over the default backends. A nil cfg uses defaults;
// a nil resolver means the process-wide family.Default().
func NewClient(cfg *Config, resolver *family.Resolver) *Client {
	if cfg == nil {
		cfg = &Config{}
	}
	if resolver == nil {
		resolver = family.Default()
	}
	return &Client{cfg: cfg, registry: DefaultRegistry(resolver, cfg), resolver: resolver}
}

// NewClientWithRegistry is NewClient with a caller supplied backend set.
func NewClientWithRegistry(cfg *Config, registry *Registry) *Client {
	if cfg == nil {
		cfg = &Config{}
	}
	return &Client{cfg: cfg, registry: registry}
}

func (cli *Client) Registry() *Registry {
	return cli.registry
}

// Do issues request to the configured port over the configured backend.
func (cli *Client) Do(ctx context.Context, request []byte) (*Reply, error) {
	return cli.Issue(ctx, cli.cfg.GetPort(), request, cli.cfg.GetBackend())
}

// Issue sends request text to port on the host through the named backend.
// The text is sent up to its first NUL, with a terminator appended. The
// connection is released before Issue returns, successful or not; the
// caller releases the reply.
func (cli *Client) Issue(ctx context.Context, port uint32, request []byte, backendName string) (*Reply, error) {
	reqID := uuid.NewString()
	start := time.Now()

	reply, err := cli.issue(ctx, port, request, backendName)

	elapsed := time.Since(start)
	statistics.ClientHist("client.issue", elapsed)
	if err != nil {
		code := errors.CodeOf(err)
		statistics.ClientCount("client.error." + strconv.Itoa(int(code)))
		statistics.RecordRequest("client", backendLabel(backendName, code), code.String(), elapsed)
		log.Debugf("request %s via %s to port %d failed: %v", reqID, backendName, port, err)
		return nil, err
	}
	statistics.RecordRequest("client", backendName, "ok", elapsed)
	log.Debugf("request %s via %s to port %d: %d reply bytes in %v", reqID, backendName, port, len(reply.Raw()), elapsed)
	return reply, nil
}

// backendLabel keeps names that failed lookup out of the metric labels.
func backendLabel(name string, code errors.Code) string {
	if code == errors.CodeBadBackend {
		return "unknown"
	}
	return name
}

func (cli *Client) issue(ctx context.Context, port uint32, request []byte, backendName string) (*Reply, error) {
	desc, err := cli.registry.Lookup(backendName)
	if err != nil {
		return nil, err
	}

	if i := bytes.IndexByte(request, 0); i >= 0 {
		request = request[:i]
	}
	if max := cli.cfg.GetMaxRequestBytes(); len(request)+1 > max {
		return nil, errors.Stage(errors.CodeTooLarge, "request", fmt.Errorf("%d bytes > limit %d", len(request)+1, max))
	}

	be := desc.New()
	defer func() {
		if err := be.Release(); err != nil {
			log.Warnf("%s release: %v", desc.ShortName, err)
		}
	}()

	if err := be.Init(ctx, cli.cfg.GetContextId(), port); err != nil {
		return nil, err
	}

	exchangeNow := time.Now()
	reply, err := be.Exchange(ctx, socket.Terminate(request))
	statistics.ClientHist("client.exchange", time.Since(exchangeNow))
	return reply, err
}

var (
	defaultOnce   sync.Once
	defaultClient *Client
)

func Default() *Client {
	defaultOnce.Do(func() {
		defaultClient = NewClient(nil, nil)
	})
	return defaultClient
}

// IssueRequest sends jsonRequest to port on the host with the default client.
// The reply must be handed back to FreeReply.
func IssueRequest(port uint32, jsonRequest string, backendName string) (*Reply, error) {
	return Default().Issue(context.Background(), port, []byte(jsonRequest), backendName)
}

func FreeReply(reply *Reply) {
	reply.Release()
}
