package rpc

import (
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"katana-node/rpc/jsonrpc"
)

// Server exposes a Backend's registered methods over HTTP POST and
// subscriptions over a WebSocket upgrade. Grounded on the
// cmd/explorer.Server shape (router + http.Server fields, a routes()
// method, Start()), generalized from gorilla/mux to chi and from a
// ledger-read API to a JSON-RPC façade.
type Server struct {
	router     *chi.Mux
	httpServer *http.Server
	rpc        *jsonrpc.Server
	backend    *Backend
	log        *logrus.Logger
}

// NewServer constructs the router and HTTP server. addr is the listen
// address (host:port); rpcPath is where POST JSON-RPC requests are served
// (conventionally "/"); wsPath is the subscription upgrade endpoint
// (conventionally "/ws").
func NewServer(addr, rpcPath, wsPath string, rpcServer *jsonrpc.Server, backend *Backend, log *logrus.Logger) *Server {
	s := &Server{router: chi.NewRouter(), rpc: rpcServer, backend: backend, log: log}
	s.routes(rpcPath, wsPath)
	s.httpServer = &http.Server{Addr: addr, Handler: s.router}
	return s
}

// Start blocks serving HTTP until the listener errors or is closed.
func (s *Server) Start() error { return s.httpServer.ListenAndServe() }

// Close shuts the HTTP server down at once, closing its listener and every
// open connection, in-flight requests included.
func (s *Server) Close() error { return s.httpServer.Close() }

func (s *Server) routes(rpcPath, wsPath string) {
	s.router.Use(s.logging)
	s.router.Post(rpcPath, s.handleRPC)
	s.router.Get(wsPath, s.handleWebSocket)
}

func (s *Server) logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"duration": time.Since(start),
		}).Debug("rpc: handled request")
	})
}

func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 10<<20))
	if err != nil {
		http.Error(w, "request body too large or unreadable", http.StatusBadRequest)
		return
	}
	resp, err := s.rpc.Handle(body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if resp == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	_, _ = w.Write(resp)
}
