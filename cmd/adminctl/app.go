package main

import (
	"context"
	"fmt"
	"io"
	"slices"

	"github.com/sethvargo/go-envconfig"

	"github.com/jonwraymond/adminops/client"
	"github.com/jonwraymond/adminops/config"
	"github.com/jonwraymond/adminops/health"
	"github.com/jonwraymond/adminops/observe"
)

// app holds everything a command needs: configuration, telemetry and one
// client per profile.
type app struct {
	cfg     config.Config
	obs     observe.Observer
	log     observe.Logger
	clients map[string]*client.Client
}

// newApp loads configuration and builds the clients. A non-nil transport
// replaces the HTTP transport of every client.
func newApp(ctx context.Context, lookup envconfig.Lookuper, logs io.Writer, transport client.Transport) (*app, error) {
	cfg, err := config.LoadWith(ctx, lookup)
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}

	obsCfg := cfg.Observe.ObserveConfig(version)
	obsCfg.Logging.Writer = logs
	obs, err := observe.NewObserver(ctx, obsCfg)
	if err != nil {
		return nil, fmt.Errorf("starting telemetry: %w", err)
	}

	a := &app{
		cfg:     cfg,
		obs:     obs,
		log:     obs.Logger(),
		clients: make(map[string]*client.Client, len(cfg.Profiles)),
	}

	mw, err := observe.MiddlewareFromObserver(obs)
	if err != nil {
		_ = obs.Shutdown(ctx)
		return nil, fmt.Errorf("starting telemetry: %w", err)
	}

	for _, name := range a.profileNames() {
		p := cfg.Profiles[name]
		opts, err := p.ClientOptions()
		if err != nil {
			_ = obs.Shutdown(ctx)
			return nil, fmt.Errorf("profile %q: %w", name, err)
		}
		opts.Middleware = mw
		opts.UserAgent = "adminctl/" + version
		if transport != nil {
			opts.Transport = transport
		}

		c, err := client.New(opts)
		if err != nil {
			_ = obs.Shutdown(ctx)
			return nil, fmt.Errorf("profile %q: %w", name, err)
		}
		a.clients[name] = c
	}

	return a, nil
}

// profileNames returns the loaded profiles sorted by name.
func (a *app) profileNames() []string {
	names := make([]string, 0, len(a.cfg.Profiles))
	for name := range a.cfg.Profiles {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// client returns the named profile's client, or the default profile's when
// name is empty.
func (a *app) client(name string) (*client.Client, error) {
	if name == "" {
		name = a.cfg.DefaultProfile
	}
	c, ok := a.clients[name]
	if !ok {
		return nil, fmt.Errorf("unknown profile %q", name)
	}
	return c, nil
}

// selected returns the clients for names, or every client when names is
// empty.
func (a *app) selected(names []string) ([]*client.Client, error) {
	if len(names) == 0 {
		names = a.profileNames()
	}
	out := make([]*client.Client, 0, len(names))
	for _, n := range names {
		c, err := a.client(n)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// aggregator registers a circuit checker per client and, when probe is set,
// a live probe against probePath or, when empty, the profile's HealthPath.
func (a *app) aggregator(clients []*client.Client, probe bool, probePath string) *health.Aggregator {
	agg := health.NewAggregator(health.AggregatorConfig{Concurrency: 4})
	for _, c := range clients {
		agg.Register(c.Profile()+"/circuit", health.NewCircuitChecker(c.Breaker()))
		if probe {
			path := probePath
			if path == "" {
				path = a.cfg.Profiles[c.Profile()].HealthPath
			}
			agg.Register(c.Profile()+"/probe", health.NewProbeChecker(c, path))
		}
	}
	return agg
}

func (a *app) close(ctx context.Context) {
	if err := a.obs.Shutdown(ctx); err != nil {
		a.log.Warn(ctx, "telemetry shutdown failed", observe.Field{Key: "error", Value: err.Error()})
	}
}
