// Package metrics exposes the node's Prometheus registry and the handful of
// gauges/counters it registers: blocks produced, transactions sealed and
// reverted, block number, pool size, RPC request latency. The producer moves
// the block and transaction metrics; nothing in this module updates the
// pool-size gauge or the RPC latency histogram. The CLI surface reserves
// --metrics.addr/--metrics.port for this; prometheus/client_golang is a
// pack-wide indirect dependency (Synnergy's and pars's go.mod) this is the
// home found for.
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry bundles every metric the node updates, all registered against a
// private prometheus.Registry rather than the global default so a test
// process can construct more than one node without a "duplicate metrics
// collector registration" panic.
type Registry struct {
	reg *prometheus.Registry

	BlocksProduced   prometheus.Counter
	TransactionsSealed prometheus.Counter
	TransactionsReverted prometheus.Counter
	PoolSize         prometheus.Gauge
	BlockNumber      prometheus.Gauge
	RPCRequestDuration *prometheus.HistogramVec
}

// New constructs and registers every metric.
func New() *Registry {
	reg := prometheus.NewRegistry()
	r := &Registry{
		reg: reg,
		BlocksProduced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "katana",
			Name:      "blocks_produced_total",
			Help:      "Number of blocks sealed by the producer.",
		}),
		TransactionsSealed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "katana",
			Name:      "transactions_sealed_total",
			Help:      "Number of transactions included in a sealed block (succeeded or reverted).",
		}),
		TransactionsReverted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "katana",
			Name:      "transactions_reverted_total",
			Help:      "Number of sealed transactions whose receipt carries Reverted status.",
		}),
		PoolSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "katana",
			Name:      "pool_size",
			Help:      "Number of transactions currently admitted and pending in the pool.",
		}),
		BlockNumber: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "katana",
			Name:      "block_number",
			Help:      "Height of the most recently sealed block.",
		}),
		RPCRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "katana",
			Name:      "rpc_request_duration_seconds",
			Help:      "JSON-RPC HTTP request handling latency.",
		}, []string{"path"}),
	}
	reg.MustRegister(
		r.BlocksProduced,
		r.TransactionsSealed,
		r.TransactionsReverted,
		r.PoolSize,
		r.BlockNumber,
		r.RPCRequestDuration,
	)
	return r
}

// Server serves the registry on addr at /metrics until Close is called.
type Server struct {
	httpServer *http.Server
}

// NewServer builds (but does not start) a metrics HTTP server for reg.
func NewServer(addr string, reg *Registry) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg.reg, promhttp.HandlerOpts{}))
	return &Server{httpServer: &http.Server{Addr: addr, Handler: mux}}
}

// Start blocks serving metrics until the listener errors or Close is called.
func (s *Server) Start() error {
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Close shuts the metrics server down, honoring ctx's deadline.
func (s *Server) Close(ctx context.Context) error { return s.httpServer.Shutdown(ctx) }

// IncBlocksProduced satisfies core/producer.Metrics.
func (r *Registry) IncBlocksProduced() { r.BlocksProduced.Inc() }

// IncTransactionSealed satisfies core/producer.Metrics.
func (r *Registry) IncTransactionSealed(reverted bool) {
	r.TransactionsSealed.Inc()
	if reverted {
		r.TransactionsReverted.Inc()
	}
}

// SetBlockNumber satisfies core/producer.Metrics.
func (r *Registry) SetBlockNumber(n uint64) { r.BlockNumber.Set(float64(n)) }

// SetPoolSize sets the pool-size gauge. No caller in this module invokes it.
func (r *Registry) SetPoolSize(n int) { r.PoolSize.Set(float64(n)) }
