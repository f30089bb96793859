package server

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/bnb-chain/zkbnb-tumbler/ledger"
)

/*
Server exposes a ledger over HTTP. Every body is JSON and byte strings are
0x prefixed hex.

  POST /pools           {pool}                              create an empty pool
  POST /fund            {account, amount}                   credit an account
  POST /instructions    {pool, payer, recipient, data}      execute a raw instruction
  GET  /pool?pool=      root, leaf count and spent nullifiers
  GET  /proof?pool=&index=
                        membership proof of a leaf against the current root
  GET  /account?name=   balance of an account
  GET  /audit?pool=     re-verify the pool against its leaf log
  GET  /metrics         prometheus exposition

Failed instructions answer with {kind, error}, where kind is the stable
error name, and a status derived from it.
*/
type Server struct {
	ledger     *ledger.Ledger
	logger     *zap.Logger
	httpServer *http.Server
}

func NewServer(l *ledger.Ledger, addr string, gatherer prometheus.Gatherer, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		ledger: l,
		logger: logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/pools", s.handleCreatePool)
	mux.HandleFunc("/fund", s.handleFund)
	mux.HandleFunc("/instructions", s.handleInstruction)
	mux.HandleFunc("/pool", s.handlePool)
	mux.HandleFunc("/proof", s.handleProof)
	mux.HandleFunc("/account", s.handleAccount)
	mux.HandleFunc("/audit", s.handleAudit)
	if gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	return s
}

// Start serves in the background until Stop is called.
func (s *Server) Start() error {
	go func() {
		s.logger.Sugar().Infow("Starting HTTP server", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
			s.logger.Sugar().Errorw("HTTP server error", "addr", s.httpServer.Addr, "error", err)
		}
	}()
	return nil
}

// Stop waits for in-flight requests until ctx expires.
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Handler returns the HTTP handler (for testing)
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}
