/*
 * SPDX-FileCopyrightText: © Hypermode Inc. <hello@hypermode.com>
 * SPDX-License-Identifier: Apache-2.0
 */

package x

import (
	"context"
	"net/http"

	ocprom "contrib.go.opencensus.io/exporter/prometheus"
	"github.com/golang/glog"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opencensus.io/stats"
	"go.opencensus.io/stats/view"
	"go.opencensus.io/tag"
	"go.opencensus.io/trace"
)

var (
	// Cumulative metrics.
	NumQueries = stats.Int64("num_queries_total",
		"Total number of GraphQL queries", stats.UnitDimensionless)
	NumMutations = stats.Int64("num_mutations_total",
		"Total number of GraphQL mutations", stats.UnitDimensionless)
	NumStoreOps = stats.Int64("store_ops_total",
		"Total number of operations on the user store", stats.UnitDimensionless)
	LatencyMs = stats.Float64("latency",
		"Latency of the various methods", stats.UnitMilliseconds)

	// Point-in-time metrics.
	NumUsers = stats.Int64("users_total",
		"Number of users held in the store", stats.UnitDimensionless)

	// Tag keys.
	KeyStatus, _ = tag.NewKey("status")
	KeyMethod, _ = tag.NewKey("method")

	// Tag values here
	TagValueStatusOK    = "ok"
	TagValueStatusError = "error"

	defaultLatencyMsDistribution = view.Distribution(
		0, 0.01, 0.05, 0.1, 0.3, 0.6, 0.8, 1, 2, 3, 4, 5, 6, 8, 10, 13, 16,
		20, 25, 30, 40, 50, 65, 80, 100, 130, 160, 200, 250, 300, 400, 500,
		650, 800, 1000, 2000, 5000, 10000)

	allTagKeys = []tag.Key{
		KeyStatus, KeyMethod,
	}

	allViews = []*view.View{
		{
			Name:        LatencyMs.Name(),
			Measure:     LatencyMs,
			Description: LatencyMs.Description(),
			Aggregation: defaultLatencyMsDistribution,
			TagKeys:     allTagKeys,
		},
		{
			Name:        NumQueries.Name(),
			Measure:     NumQueries,
			Description: NumQueries.Description(),
			Aggregation: view.Count(),
			TagKeys:     allTagKeys,
		},
		{
			Name:        NumMutations.Name(),
			Measure:     NumMutations,
			Description: NumMutations.Description(),
			Aggregation: view.Count(),
			TagKeys:     allTagKeys,
		},
		{
			Name:        NumStoreOps.Name(),
			Measure:     NumStoreOps,
			Description: NumStoreOps.Description(),
			Aggregation: view.Count(),
			TagKeys:     allTagKeys,
		},

		// Last value aggregations
		{
			Name:        NumUsers.Name(),
			Measure:     NumUsers,
			Description: NumUsers.Description(),
			Aggregation: view.LastValue(),
			TagKeys:     nil,
		},
	}
)

func init() {
	Check(errors.Wrap(view.Register(allViews...), "registering OpenCensus views"))
}

// WithMethod returns a new updated context with the tag KeyMethod set to the given value.
func WithMethod(parent context.Context, method string) context.Context {
	ctx, err := tag.New(parent, tag.Upsert(KeyMethod, method))
	if err != nil {
		glog.Warningf("unable to tag context with method %q: %v", method, err)
		return parent
	}
	return ctx
}

// RecordCount bumps m by one, tagged with method and status.
func RecordCount(ctx context.Context, m *stats.Int64Measure, method string, failed bool) {
	status := TagValueStatusOK
	if failed {
		status = TagValueStatusError
	}
	cctx, err := tag.New(ctx, tag.Upsert(KeyMethod, method), tag.Upsert(KeyStatus, status))
	if err != nil {
		glog.Warningf("unable to tag metrics context: %v", err)
		cctx = ctx
	}
	stats.Record(cctx, m.M(1))
}

// NewMetricsHandler builds an OpenCensus Prometheus exporter backed by its
// own registry and returns it as a http.Handler that serves the metrics.
func NewMetricsHandler(namespace string) (http.Handler, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	pe, err := ocprom.NewExporter(ocprom.Options{
		Namespace: namespace,
		Registry:  registry,
		OnError:   func(err error) { glog.Errorf("%v", err) },
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create OpenCensus Prometheus exporter")
	}
	view.RegisterExporter(pe)
	return pe, nil
}

// ApplyTraceConfig sets the ratio of requests that get traced.
func ApplyTraceConfig(ratio float64) {
	trace.ApplyConfig(trace.Config{
		DefaultSampler:             trace.ProbabilitySampler(ratio),
		MaxAnnotationEventsPerSpan: 256,
	})
}
