// Package server implements the hypervisor's HTTP surface: the route table
// wiring the session registry, request envelope, sandbox runners, payment
// gate and attestation wrapper together, and the error-kind-to-status
// mapping every handler shares.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/cexlabs/hypervisor/agentslot"
	"github.com/cexlabs/hypervisor/attestation"
	"github.com/cexlabs/hypervisor/execution"
	"github.com/cexlabs/hypervisor/health"
	"github.com/cexlabs/hypervisor/internal/logger"
	"github.com/cexlabs/hypervisor/internal/metrics"
	"github.com/cexlabs/hypervisor/ledger"
	"github.com/cexlabs/hypervisor/payment"
	"github.com/cexlabs/hypervisor/sandbox/scriptrunner"
	"github.com/cexlabs/hypervisor/sandbox/wasmrunner"
	"github.com/cexlabs/hypervisor/session"
)

// Deps collects everything the HTTP surface needs. Facilitator, Quoter and
// Ledger are optional: a nil Facilitator leaves the x402 routes
// advertising their price tag but unable to admit a receipt (they respond
// 500), a nil Quoter makes the "attest"/"verifiable" routes fail closed,
// and a nil Ledger simply skips the best-effort audit write.
type Deps struct {
	Registry     *session.Registry
	WasmRunner   *wasmrunner.Runner
	ScriptRunner *scriptrunner.Runner
	Quoter       attestation.Provider
	Payment      payment.Config
	Facilitator  payment.Facilitator
	Ledger       ledger.Writer
	Agents       *agentslot.Manager
	HealthCheck  *health.HealthChecker
}

// Server holds the wired dependencies and exposes the route table as an
// http.Handler.
type Server struct {
	deps    Deps
	exec    *execution.Handler
	mux     *http.ServeMux
	log     logger.Logger
}

// New wires deps into a Server ready to serve.
func New(deps Deps) *Server {
	if deps.HealthCheck == nil {
		deps.HealthCheck = health.NewHealthChecker(5 * time.Second)
	}
	deps.HealthCheck.RegisterCheck("session-registry", func(ctx context.Context) error {
		return nil
	})
	if deps.Ledger != nil {
		deps.HealthCheck.RegisterCheck("ledger", func(ctx context.Context) error {
			return deps.Ledger.Ping(ctx)
		})
	}

	s := &Server{
		deps: deps,
		exec: execution.NewHandler(deps.Registry),
		log:  logger.GetDefaultLogger(),
	}
	s.mux = s.routes()
	return s
}

// ServeHTTP implements http.Handler by delegating to the wired route
// table.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /encrypt/create_keypair", s.handleCreateKeypair)

	mux.HandleFunc("POST /test/execute/wasm", s.handleExecuteWasm(false))
	mux.HandleFunc("POST /test/policy/unsafe/python", s.handleExecutePolicy(false))

	mux.Handle("POST /x402_execute/test/wasm", s.gate(s.handleExecuteWasm(false)))
	mux.Handle("POST /x402_execute/verifiable/wasm", s.gate(s.handleExecuteWasm(true)))
	mux.Handle("POST /x402_policy/unsafe/python", s.gate(s.handleExecutePolicy(false)))
	mux.Handle("POST /x402_policy/unsafe/python/attest", s.gate(s.handleExecutePolicy(true)))

	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.Handle("GET /metrics", metrics.Handler())

	return mux
}

// gate wraps an already-built handler with the payment middleware. The
// gate never sees decrypted payloads, only headers.
func (s *Server) gate(next http.HandlerFunc) http.Handler {
	return payment.Gate(s.deps.Payment, s.deps.Facilitator, next)
}
