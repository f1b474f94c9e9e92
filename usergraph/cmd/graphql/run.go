/*
 * SPDX-FileCopyrightText: © Hypermode Inc. <hello@hypermode.com>
 * SPDX-License-Identifier: Apache-2.0
 */

// Package graphql runs the users GraphQL API over HTTP.
//
// The API is served at /graphql on the configured port.  POST requests and
// GET requests carrying a query are executed against an in-memory user store,
// a GET without a query serves an interactive console.  Metrics and z-pages
// are served separately, on --debug_addr, when it is set.  Requests are
// audited to --audit, when it is set.
package graphql

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang/glog"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.opencensus.io/zpages"
	"golang.org/x/sync/errgroup"

	"github.com/hypermodeinc/usergraph/graphql/audit"
	"github.com/hypermodeinc/usergraph/graphql/resolve"
	"github.com/hypermodeinc/usergraph/graphql/web"
	"github.com/hypermodeinc/usergraph/store"
	"github.com/hypermodeinc/usergraph/x"
)

// GraphQL is the sub-command invoked when running "usergraph graphql".
var GraphQL x.SubCommand

func init() {
	GraphQL.Cmd = &cobra.Command{
		Use:   "graphql",
		Short: "Run the users GraphQL API",
		Long: `
Serves the users GraphQL API at /graphql.  The store starts with the users in
--seed, or with a small built-in set of users if no seed file is given.  All
changes are held in memory and lost when the process exits.`,
		Run: func(cmd *cobra.Command, args []string) {
			if err := run(); err != nil {
				if glog.V(2) {
					fmt.Printf("Error : %+v\n", err)
				} else {
					fmt.Printf("Error : %s\n", err)
				}
				os.Exit(1)
			}
		},
		Annotations: map[string]string{"group": "core"},
	}
	GraphQL.EnvPrefix = "USERGRAPH_GRAPHQL"

	addFlags(GraphQL.Cmd.Flags())
}

func addFlags(flags *pflag.FlagSet) {
	flags.IntP("port", "p", 8080, "Port on which to run the HTTP service")
	flags.String("seed", "",
		"YAML file of users to load at startup. The built-in users are loaded if empty.")
	flags.Bool("introspection", true, "Set to false for no GraphQL schema introspection")
	flags.Int("max_depth", 0, "Maximum nesting depth of a GraphQL selection. 0 is unlimited.")
	flags.Bool("gzip", true, "Compress responses for clients that accept gzip")
	flags.Duration("shutdown_timeout", 10*time.Second,
		"How long to wait for in-flight requests on shutdown")
	flags.String("audit", "",
		"Write an audit log line for every request to this file, or to stdout. "+
			"Not written if empty.")
	flags.String("debug_addr", "",
		"Address to serve metrics (/debug/prometheus_metrics) and z-pages (/z) on. "+
			"Not served if empty.")

	// OpenCensus flags.
	flags.Float64("trace", 0.01, "The ratio of queries to trace.")
}

type options struct {
	addr            string
	seed            string
	resolve         resolve.Options
	web             web.Options
	shutdownTimeout time.Duration
	debugAddr       string
	auditOutput     string
	traceRatio      float64
}

func loadOptions(conf *viper.Viper) (*options, error) {
	port := conf.GetInt("port")
	if port < 0 || port > 65535 {
		return nil, errors.Errorf("invalid port %d", port)
	}
	if conf.GetInt("max_depth") < 0 {
		return nil, errors.Errorf("invalid max_depth %d, must be 0 or more",
			conf.GetInt("max_depth"))
	}
	if conf.GetDuration("shutdown_timeout") <= 0 {
		return nil, errors.Errorf("invalid shutdown_timeout %s, must be positive",
			conf.GetDuration("shutdown_timeout"))
	}

	bind := "localhost"
	if conf.GetBool("bindall") {
		bind = "0.0.0.0"
	}
	return &options{
		addr: net.JoinHostPort(bind, fmt.Sprint(port)),
		seed: conf.GetString("seed"),
		resolve: resolve.Options{
			Introspection: conf.GetBool("introspection"),
			MaxDepth:      conf.GetInt("max_depth"),
		},
		web:             web.Options{Gzip: conf.GetBool("gzip")},
		shutdownTimeout: conf.GetDuration("shutdown_timeout"),
		debugAddr:       conf.GetString("debug_addr"),
		auditOutput:     conf.GetString("audit"),
		traceRatio:      conf.GetFloat64("trace"),
	}, nil
}

// newHandler builds the user store and the HTTP handler serving it.
func newHandler(opts *options) (http.Handler, *store.Users, error) {
	seed := store.DefaultSeed()
	if opts.seed != "" {
		var err error
		if seed, err = store.LoadSeed(opts.seed); err != nil {
			return nil, nil, err
		}
	}

	users, err := store.New(seed...)
	if err != nil {
		return nil, nil, err
	}
	glog.Infof("Loaded %d users into the store", users.Len())

	resolver, err := resolve.New(users, opts.resolve)
	if err != nil {
		return nil, nil, err
	}
	return web.NewServeMux(web.NewServer(resolver, opts.web)), users, nil
}

func newDebugHandler() (http.Handler, error) {
	metrics, err := x.NewMetricsHandler("usergraph")
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/debug/prometheus_metrics", metrics)
	// Add OpenCensus z-pages.
	zpages.Handle(mux, "/z")
	return mux, nil
}

type endpoint struct {
	name string
	ln   net.Listener
	srv  *http.Server
}

func newEndpoint(name, addr string, handler http.Handler) (endpoint, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return endpoint{}, errors.Wrapf(err, "while listening on %s", addr)
	}
	return endpoint{
		name: name,
		ln:   ln,
		srv: &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       time.Minute,
			WriteTimeout:      time.Minute,
			IdleTimeout:       2 * time.Minute,
		},
	}, nil
}

// serve runs every endpoint until ctx is done or one of them fails, then
// shuts them all down, waiting up to timeout for in-flight requests.
func serve(ctx context.Context, timeout time.Duration, endpoints ...endpoint) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, ep := range endpoints {
		g.Go(func() error {
			if err := ep.srv.Serve(ep.ln); !errors.Is(err, http.ErrServerClosed) {
				return errors.Wrapf(err, "%s server failed", ep.name)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		glog.Infof("Shutting down, waiting up to %s for in-flight requests", timeout)

		sctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		var rerr error
		for _, ep := range endpoints {
			if err := ep.srv.Shutdown(sctx); err != nil && rerr == nil {
				rerr = errors.Wrapf(err, "while shutting down the %s server", ep.name)
			}
		}
		return rerr
	})

	return g.Wait()
}

func run() error {
	glog.Infof("usergraph version: %s", x.Version())

	prof, err := x.StartProfile(GraphQL.Conf)
	if err != nil {
		return err
	}
	defer prof.Stop()

	opts, err := loadOptions(GraphQL.Conf)
	if err != nil {
		return err
	}
	handler, _, err := newHandler(opts)
	if err != nil {
		return err
	}
	if opts.auditOutput != "" {
		auditor, err := audit.Open(opts.auditOutput)
		if err != nil {
			return err
		}
		defer auditor.Close()
		handler = auditor.WrapHandler(handler)
	}
	x.ApplyTraceConfig(opts.traceRatio)

	api, err := newEndpoint("GraphQL", opts.addr, handler)
	if err != nil {
		return err
	}
	endpoints := []endpoint{api}

	if opts.debugAddr != "" {
		dh, err := newDebugHandler()
		if err == nil {
			var debug endpoint
			if debug, err = newEndpoint("debug", opts.debugAddr, dh); err == nil {
				endpoints = append(endpoints, debug)
			}
		}
		if err != nil {
			x.Ignore(api.ln.Close())
			return err
		}
		glog.Infof("Serving metrics and z-pages at %s", opts.debugAddr)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	glog.Infof("Bringing up GraphQL HTTP API at %s%s", opts.addr, web.Path)
	return serve(ctx, opts.shutdownTimeout, endpoints...)
}
