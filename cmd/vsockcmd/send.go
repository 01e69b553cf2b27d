package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/brodyxchen/vsockcmd/command"
	"github.com/brodyxchen/vsockcmd/errors"
)

func newSendCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "send [json]",
		Short: "Send raw request text and print the reply; reads stdin when no argument is given",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var request []byte
			if len(args) == 1 {
				request = []byte(args[0])
			} else {
				b, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return err
				}
				request = []byte(strings.TrimRight(string(b), "\r\n"))
			}

			cc := o.clientConfig()
			reply, err := o.newClient().Issue(cmd.Context(), cc.GetPort(), request, cc.GetBackend())
			if err != nil {
				return fmt.Errorf("%w (errno=%d)", err, int(errors.Errno(err)))
			}
			defer reply.Release()
			fmt.Fprintln(cmd.OutOrStdout(), reply.String())
			return nil
		},
	}
}

func newRunCmd(o *options) *cobra.Command {
	var opts []string
	cmd := &cobra.Command{
		Use:   "run <cmd> [name]",
		Short: "Send a command envelope and print the JSON reply",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) == 2 {
				name = args[1]
			}
			parsed, err := parseOpts(opts)
			if err != nil {
				return err
			}

			cc := o.clientConfig()
			r := command.NewVsockRunner(o.newClient(), cc.GetPort(), cc.GetBackend())
			r.Retries = o.file.Client.Retries
			if o.retries >= 0 {
				r.Retries = o.retries
			}
			reply, err := r.Run(cmd.Context(), args[0], name, parsed)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(reply))
			return nil
		},
	}
	cmd.Flags().StringArrayVarP(&opts, "opt", "o", nil, "command option as key=value, repeatable")
	return cmd
}

func parseOpts(opts []string) (map[string]string, error) {
	if len(opts) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(opts))
	for _, kv := range opts {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("option %q is not key=value", kv)
		}
		out[strings.TrimSpace(k)] = v
	}
	return out, nil
}

func newBackendsCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "backends",
		Short: "List the available backends",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := o.newClient().Registry()
			for _, name := range reg.Names() {
				d, _ := reg.Lookup(name)
				fmt.Fprintf(cmd.OutOrStdout(), "%-8s %s\n", d.ShortName, d.Name)
			}
			return nil
		},
	}
}

func newCidCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "cid",
		Short: "Print the context id of this machine",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cid, err := o.resolver.LocalContextID()
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), "vsock is not available on this machine")
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cid)
			return nil
		},
	}
}
