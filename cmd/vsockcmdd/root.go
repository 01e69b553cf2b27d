package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/brodyxchen/vsockcmd/command"
	"github.com/brodyxchen/vsockcmd/config"
	"github.com/brodyxchen/vsockcmd/log"
	"github.com/brodyxchen/vsockcmd/models"
	"github.com/brodyxchen/vsockcmd/server"
	"github.com/brodyxchen/vsockcmd/statistics"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "vsockcmdd",
		Short:         "Host side service answering guest requests over vsock",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCmd())
	return root
}

type serveOptions struct {
	cfgFile     string
	logLevel    string
	backend     string
	port        uint32
	tcpAddr     string
	metricsAddr string
}

func newServeCmd() *cobra.Command {
	o := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Accept requests until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, o)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&o.cfgFile, "config", "", "config file, YAML or TOML by extension")
	flags.StringVar(&o.logLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.StringVarP(&o.backend, "backend", "b", "", "listener backend: vsocket or tcp (default vsocket)")
	flags.Uint32VarP(&o.port, "port", "p", 0, "vsock service port (default 15000)")
	flags.StringVar(&o.tcpAddr, "tcp-addr", "", "listen address of the tcp backend")
	flags.StringVar(&o.metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address")
	return cmd
}

func serve(ctx context.Context, o *serveOptions) error {
	f, err := config.Load(o.cfgFile, false)
	if err != nil {
		return err
	}
	level := f.Log.Level
	if o.logLevel != "" {
		level = o.logLevel
	}
	if err := log.Configure(nil, level); err != nil {
		return err
	}

	sc := f.ServerConfig()
	if o.backend != "" {
		sc.Backend = o.backend
	}
	if o.port != 0 {
		sc.Port = o.port
	}
	if o.tcpAddr != "" {
		sc.TCPAddr = o.tcpAddr
	}
	metricsAddr := f.Metrics.Addr
	if o.metricsAddr != "" {
		metricsAddr = o.metricsAddr
	}

	l, err := server.Init(sc)
	if err != nil {
		return err
	}
	defer l.Close()

	if interval := f.LogInterval(); interval > 0 {
		statistics.EnableServer = true
		statistics.RunServer(interval)
		defer statistics.CloseServer()
	}

	srv := server.NewServer(l, newHandler(command.NewMockRunner()))
	log.Infof("vsockcmdd serving %s port %d", l.Backend, l.Port())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Serve(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		return l.Close()
	})
	if metricsAddr != "" {
		hs := &http.Server{Addr: metricsAddr, Handler: metricsMux(), ReadHeaderTimeout: 5 * time.Second}
		g.Go(func() error {
			log.Infof("metrics on http://%s/metrics", metricsAddr)
			if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return hs.Shutdown(shutdownCtx)
		})
	}
	return g.Wait()
}

func metricsMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", statistics.Handler())
	return mux
}

// newHandler answers command envelopes with runner. Anything that does not
// decode as an envelope is rejected with an error reply.
func newHandler(runner command.Runner) server.HandlerFunc {
	return func(ctx context.Context, peer models.PeerID, request []byte) ([]byte, error) {
		var req command.Request
		if err := json.Unmarshal(request, &req); err != nil {
			return nil, fmt.Errorf("invalid request: %v", err)
		}
		log.Debugf("%v: %s %q", peer, req.Cmd, req.Details.Name)

		reply, err := runner.Run(ctx, req.Cmd, req.Details.Name, req.Details.Opts)
		if err != nil {
			return nil, err
		}
		if reply == nil {
			return []byte("null"), nil
		}
		return reply, nil
	}
}
