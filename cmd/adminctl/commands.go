package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sethvargo/go-envconfig"
	"github.com/spf13/cobra"

	"github.com/jonwraymond/adminops/cache"
	"github.com/jonwraymond/adminops/client"
	"github.com/jonwraymond/adminops/health"
	"github.com/jonwraymond/adminops/observe"
)

var errUnhealthy = errors.New("one or more checks are unhealthy")

type rootOptions struct {
	lookup    envconfig.Lookuper
	transport client.Transport

	profile string
	retries int
}

func newRootCmd(lookup envconfig.Lookuper) *cobra.Command {
	return newRootCmdWithTransport(lookup, nil)
}

func newRootCmdWithTransport(lookup envconfig.Lookuper, transport client.Transport) *cobra.Command {
	opts := &rootOptions{lookup: lookup, transport: transport}

	root := &cobra.Command{
		Use:   "adminctl",
		Short: "Call the admin API through the resilient request pipeline",
		Long: `adminctl reads profiles from ADMINOPS_* environment variables and sends
requests with bounded retries, circuit breaking, response caching and
session re-authentication.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.profile, "profile", "p", "", "profile to use (default: ADMINOPS_DEFAULT_PROFILE)")
	root.PersistentFlags().IntVar(&opts.retries, "retries", -1, "retry budget per call (default: the profile's MAX_RETRIES)")

	root.AddCommand(
		newGetCmd(opts),
		newHealthCmd(opts),
		newServeCmd(opts),
		newVersionCmd(),
	)
	return root
}

func (o *rootOptions) app(cmd *cobra.Command) (*app, error) {
	return newApp(cmd.Context(), o.lookup, cmd.ErrOrStderr(), o.transport)
}

func newGetCmd(opts *rootOptions) *cobra.Command {
	var (
		params      []string
		noCache     bool
		allProfiles bool
	)

	cmd := &cobra.Command{
		Use:   "get <path>",
		Short: "GET a path and print the response body",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query, err := parseParams(params)
			if err != nil {
				return err
			}

			a, err := opts.app(cmd)
			if err != nil {
				return err
			}
			defer a.close(context.WithoutCancel(cmd.Context()))

			spec := client.RequestSpec{
				Method:  http.MethodGet,
				Path:    args[0],
				Query:   query,
				NoCache: noCache,
			}

			if allProfiles {
				if opts.profile != "" {
					return errors.New("--all-profiles and --profile are mutually exclusive")
				}
				return getAll(cmd, a, opts, spec)
			}

			c, err := a.client(opts.profile)
			if err != nil {
				return err
			}

			resp, err := opts.execute(cmd.Context(), c, spec)
			if err != nil {
				return fmt.Errorf("%s: %w", client.KindOf(err), err)
			}

			a.log.Debug(cmd.Context(), "request complete",
				observe.Field{Key: "request_id", Value: resp.RequestID},
				observe.Field{Key: "attempts", Value: resp.Attempts},
				observe.Field{Key: "from_cache", Value: resp.FromCache},
			)
			_, err = cmd.OutOrStdout().Write(resp.Body)
			return err
		},
	}
	cmd.Flags().StringArrayVarP(&params, "param", "q", nil, "query parameter as name=value (repeatable)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "bypass the response cache")
	cmd.Flags().BoolVar(&allProfiles, "all-profiles", false, "send the request to every profile concurrently and print a JSON object keyed by profile")
	return cmd
}

// execute honors --retries when given.
func (o *rootOptions) execute(ctx context.Context, c *client.Client, spec client.RequestSpec) (*client.Response, error) {
	if o.retries >= 0 {
		return c.ExecuteWithRetries(ctx, spec, o.retries)
	}
	return c.Execute(ctx, spec)
}

// profileOutput is one profile's entry in the --all-profiles output.
type profileOutput struct {
	Status int             `json:"status,omitempty"`
	Body   json.RawMessage `json:"body,omitempty"`
	Text   string          `json:"text,omitempty"`
	Error  string          `json:"error,omitempty"`
	Kind   string          `json:"error_kind,omitempty"`
}

const fanOutLimit = 4

func getAll(cmd *cobra.Command, a *app, opts *rootOptions, spec client.RequestSpec) error {
	clients, err := a.selected(nil)
	if err != nil {
		return err
	}

	results := client.FanOut(cmd.Context(), clients, fanOutLimit, func(ctx context.Context, c *client.Client) (*client.Response, error) {
		return opts.execute(ctx, c, spec)
	})

	out := make(map[string]profileOutput, len(results))
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			out[r.Profile] = profileOutput{Error: r.Err.Error(), Kind: client.KindOf(r.Err).String()}
			continue
		}
		po := profileOutput{Status: r.Value.StatusCode}
		if json.Valid(r.Value.Body) {
			po.Body = r.Value.Body
		} else {
			po.Text = string(r.Value.Body)
		}
		out[r.Profile] = po
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d profiles failed", failed, len(results))
	}
	return nil
}

// parseParams turns name=value pairs into query parameters.
func parseParams(raw []string) ([]cache.Param, error) {
	out := make([]cache.Param, 0, len(raw))
	for _, kv := range raw {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid parameter %q: want name=value", kv)
		}
		out = append(out, cache.Param{Name: name, Value: value})
	}
	return out, nil
}

func newHealthCmd(opts *rootOptions) *cobra.Command {
	var (
		probe     bool
		probePath string
	)

	cmd := &cobra.Command{
		Use:   "health [profile...]",
		Short: "Report circuit and probe health for profiles as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.app(cmd)
			if err != nil {
				return err
			}
			defer a.close(context.WithoutCancel(cmd.Context()))

			clients, err := a.selected(args)
			if err != nil {
				return err
			}

			report := a.aggregator(clients, probe, probePath).CheckAll(cmd.Context())

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(health.NewReportResponse(report)); err != nil {
				return err
			}
			if report.Status == health.StatusUnhealthy {
				return errUnhealthy
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&probe, "probe", true, "issue a live probe request per profile")
	cmd.Flags().StringVar(&probePath, "probe-path", "", "path probed by the live check (default: the profile's HEALTH_PATH)")
	return cmd
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	var (
		addr      string
		probe     bool
		probePath string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve health endpoints and Prometheus metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := opts.app(cmd)
			if err != nil {
				return err
			}
			defer a.close(context.WithoutCancel(ctx))

			clients, err := a.selected(nil)
			if err != nil {
				return err
			}

			mux := http.NewServeMux()
			health.RegisterHandlers(mux, a.aggregator(clients, probe, probePath))
			mux.Handle("/metrics", promhttp.Handler())

			srv := &http.Server{
				Addr:              addr,
				Handler:           mux,
				ReadHeaderTimeout: 5 * time.Second,
				BaseContext:       func(net.Listener) context.Context { return ctx },
			}

			errCh := make(chan error, 1)
			go func() {
				a.log.Info(ctx, "serving", observe.Field{Key: "addr", Value: addr})
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":9090", "listen address")
	cmd.Flags().BoolVar(&probe, "probe", false, "include live probes in readiness")
	cmd.Flags().StringVar(&probePath, "probe-path", "", "path probed by the live check (default: the profile's HEALTH_PATH)")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}
