// Package metrics exposes Prometheus instrumentation for the document store
// and the HTTP router.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/dalemusser/homeready/internal/app/system/docstore"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry owns the application's collectors.
type Registry struct {
	reg *prometheus.Registry

	storeOps     *prometheus.CounterVec
	storeLatency *prometheus.HistogramVec
	batchWrites  prometheus.Histogram
	httpRequests *prometheus.CounterVec
	httpLatency  *prometheus.HistogramVec
}

// New builds a Registry with Go runtime and process collectors attached.
func New() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	r := &Registry{
		reg: reg,
		storeOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "homeready",
			Subsystem: "store",
			Name:      "operations_total",
			Help:      "Document store operations by operation, collection and result.",
		}, []string{"op", "collection", "result"}),
		storeLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "homeready",
			Subsystem: "store",
			Name:      "operation_seconds",
			Help:      "Document store operation latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		batchWrites: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "homeready",
			Subsystem: "store",
			Name:      "batch_writes",
			Help:      "Number of writes per committed batch.",
			Buckets:   []float64{1, 2, 4, 8, 16, 32, 64, 128},
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "homeready",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route pattern and status code.",
		}, []string{"method", "route", "code"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "homeready",
			Subsystem: "http",
			Name:      "request_seconds",
			Help:      "HTTP request latency by route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	reg.MustRegister(r.storeOps, r.storeLatency, r.batchWrites, r.httpRequests, r.httpLatency)
	return r
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}

// Middleware records request counts and latency per chi route pattern.
func (r *Registry) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, req.ProtoMajor)
		next.ServeHTTP(ww, req)

		route := "unmatched"
		if rctx := chi.RouteContext(req.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		r.httpRequests.WithLabelValues(req.Method, route, strconv.Itoa(status)).Inc()
		r.httpLatency.WithLabelValues(req.Method, route).Observe(time.Since(start).Seconds())
	})
}

// Store wraps s so every call is counted and timed.
func (r *Registry) Store(s docstore.Store) docstore.Store {
	return &instrumented{next: s, m: r}
}

func (r *Registry) observe(op, coll string, start time.Time, err error) {
	r.storeOps.WithLabelValues(op, collectionLabel(coll), result(err)).Inc()
	r.storeLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// collectionLabel drops the parent id from sub-collection paths so share ids
// do not become label values.
func collectionLabel(coll string) string {
	if parent, _, child, ok := docstore.SplitPath(coll); ok {
		return parent + "/*/" + child
	}
	return coll
}

func result(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, docstore.ErrNotFound):
		return "not_found"
	case errors.Is(err, docstore.ErrDuplicate):
		return "duplicate"
	case errors.Is(err, docstore.ErrConflict):
		return "conflict"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	}
	return "error"
}

type instrumented struct {
	next docstore.Store
	m    *Registry
}

func (s *instrumented) Get(ctx context.Context, coll, id string, out interface{}) (err error) {
	defer func(start time.Time) { s.m.observe("get", coll, start, err) }(time.Now())
	return s.next.Get(ctx, coll, id, out)
}

func (s *instrumented) Find(ctx context.Context, coll string, q docstore.Query, out interface{}) (err error) {
	defer func(start time.Time) { s.m.observe("find", coll, start, err) }(time.Now())
	return s.next.Find(ctx, coll, q, out)
}

func (s *instrumented) Create(ctx context.Context, coll, id string, doc interface{}) (err error) {
	defer func(start time.Time) { s.m.observe("create", coll, start, err) }(time.Now())
	return s.next.Create(ctx, coll, id, doc)
}

func (s *instrumented) Update(ctx context.Context, coll, id string, u docstore.Update) (err error) {
	defer func(start time.Time) { s.m.observe("update", coll, start, err) }(time.Now())
	return s.next.Update(ctx, coll, id, u)
}

func (s *instrumented) Upsert(ctx context.Context, coll, id string, u docstore.Update) (err error) {
	defer func(start time.Time) { s.m.observe("upsert", coll, start, err) }(time.Now())
	return s.next.Upsert(ctx, coll, id, u)
}

func (s *instrumented) Delete(ctx context.Context, coll, id string) (err error) {
	defer func(start time.Time) { s.m.observe("delete", coll, start, err) }(time.Now())
	return s.next.Delete(ctx, coll, id)
}

func (s *instrumented) Commit(ctx context.Context, b *docstore.Batch) (err error) {
	defer func(start time.Time) {
		s.m.observe("commit", "batch", start, err)
		if err == nil && b != nil {
			s.m.batchWrites.Observe(float64(b.Len()))
		}
	}(time.Now())
	return s.next.Commit(ctx, b)
}

func (s *instrumented) EnsureIndexes(ctx context.Context, idx []docstore.Index) (err error) {
	defer func(start time.Time) { s.m.observe("ensure_indexes", "indexes", start, err) }(time.Now())
	return s.next.EnsureIndexes(ctx, idx)
}
