package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/brodyxchen/vsockcmd/client"
	"github.com/brodyxchen/vsockcmd/config"
	"github.com/brodyxchen/vsockcmd/family"
	"github.com/brodyxchen/vsockcmd/log"
	"github.com/brodyxchen/vsockcmd/statistics"
	"github.com/brodyxchen/vsockcmd/statistics/metrics"
)

type options struct {
	cfgFile  string
	logLevel string
	backend  string
	cid      uint32
	port     uint32
	timeout  time.Duration
	retries  int

	file     *config.File
	resolver *family.Resolver
}

// clientConfig applies flags over the config file.
func (o *options) clientConfig() *client.Config {
	cc := o.file.ClientConfig()
	if o.backend != "" {
		cc.Backend = o.backend
	}
	if o.cid != 0 {
		cc.ContextId = o.cid
	}
	if o.port != 0 {
		cc.Port = o.port
	}
	if o.timeout != 0 {
		cc.Timeout = o.timeout
	}
	return cc
}

func (o *options) newClient() *client.Client {
	return client.NewClient(o.clientConfig(), o.resolver)
}

func newRootCmd() *cobra.Command {
	o := &options{resolver: family.Default()}

	root := &cobra.Command{
		Use:           "vsockcmd",
		Short:         "Send JSON requests from a guest to the host service over vsock",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			f, err := config.Load(o.cfgFile, false)
			if err != nil {
				return err
			}
			o.file = f

			level := f.Log.Level
			if o.logLevel != "" {
				level = o.logLevel
			}
			if err := log.Configure(cmd.ErrOrStderr(), level); err != nil {
				return err
			}
			statistics.EnableClient = level == "debug"
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if statistics.EnableClient {
				if msg := metrics.Format("Client", statistics.ClientReg); msg != "" {
					log.Debug(msg)
				}
			}
			_ = o.resolver.Release()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&o.cfgFile, "config", "", "config file, YAML or TOML by extension")
	flags.StringVar(&o.logLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.StringVarP(&o.backend, "backend", "b", "", "backend: vsocket, dummy or tcp (default vsocket)")
	flags.Uint32Var(&o.cid, "cid", 0, "context id of the host (default 2)")
	flags.Uint32VarP(&o.port, "port", "p", 0, "service port (default 15000)")
	flags.DurationVar(&o.timeout, "timeout", 0, "per request timeout (default 30s)")
	flags.IntVar(&o.retries, "retries", -1, "retries of a failed exchange for run (default from config, 0)")

	root.AddCommand(newSendCmd(o), newRunCmd(o), newBackendsCmd(o), newCidCmd(o))
	return root
}
