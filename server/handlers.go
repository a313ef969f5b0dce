package server

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"time"

	"github.com/cexlabs/hypervisor/apperr"
	"github.com/cexlabs/hypervisor/attestation"
	"github.com/cexlabs/hypervisor/attestation/mock"
	"github.com/cexlabs/hypervisor/attestation/sevsnp"
	"github.com/cexlabs/hypervisor/execution"
	"github.com/cexlabs/hypervisor/internal/logger"
	"github.com/cexlabs/hypervisor/internal/metrics"
	"github.com/cexlabs/hypervisor/ledger"
)

func (s *Server) handleCreateKeypair(w http.ResponseWriter, r *http.Request) {
	var req createKeypairRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, apperr.BadInput("malformed json body"))
		return
	}

	raw, err := hex.DecodeString(req.Pubkey)
	if err != nil || len(raw) != 33 {
		s.writeError(w, apperr.BadInput("malformed public key"))
		return
	}
	var clientPub [33]byte
	copy(clientPub[:], raw)

	_, hadPrior := s.deps.Registry.Lookup(clientPub)

	start := time.Now()
	entry, err := s.deps.Registry.Create(clientPub)
	metrics.SessionDuration.WithLabelValues("create").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.SessionsCreated.WithLabelValues("failure").Inc()
		s.writeError(w, apperr.Internal("generate session keypair", err))
		return
	}
	metrics.SessionsCreated.WithLabelValues("success").Inc()
	if hadPrior {
		metrics.SessionsOverwritten.Inc()
	}
	metrics.SessionsActive.Set(float64(s.deps.Registry.Count()))

	writeJSON(w, http.StatusOK, createKeypairResponse{
		SessionPubkey: hex.EncodeToString(entry.PublicKey.SerializeCompressed()),
		SessionID:     entry.ID.String(),
	})
}

// handleExecuteWasm returns the handler for the wasm execution routes.
// withQuote controls whether an attestation quote is appended to the
// response (the "verifiable" route variant).
func (s *Server) handleExecuteWasm(withQuote bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req executeWasmRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, apperr.BadInput("malformed json body"))
			return
		}

		execReq := execution.Request{
			ProgramCiphertextHex:  req.EncryptedWasm,
			ArgumentCiphertextHex: req.EncryptedArguments,
			ClientPublicKeyHex:    req.PublicKey,
		}

		result, err := s.exec.Execute(r.Context(), execReq, s.deps.WasmRunner.Run, false, "wasm")
		if err != nil {
			s.writeError(w, err)
			return
		}

		s.respond(w, r.Context(), "wasm", result, withQuote)
	}
}

// handleExecutePolicy returns the handler for the script/python policy
// routes. withQuote controls whether an attestation quote is appended.
func (s *Server) handleExecutePolicy(withQuote bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req executePolicyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, apperr.BadInput("malformed json body"))
			return
		}

		execReq := execution.Request{
			ProgramCiphertextHex:  req.EncryptedPython,
			ArgumentCiphertextHex: req.EncryptedArguments,
			ClientPublicKeyHex:    req.PublicKey,
		}

		runScript := func(ctx context.Context, program []byte, args []string) ([]byte, error) {
			return s.deps.ScriptRunner.Run(ctx, string(program), args)
		}

		result, err := s.exec.Execute(r.Context(), execReq, runScript, true, "script")
		if err != nil {
			s.writeError(w, err)
			return
		}

		s.respond(w, r.Context(), "script", result, withQuote)
	}
}

// respond finishes a successful execution call: it optionally fetches an
// attestation quote over the commitment, writes the JSON response, and
// best-effort records the receipt to the audit ledger.
func (s *Server) respond(w http.ResponseWriter, ctx context.Context, route string, result *execution.Result, withQuote bool) {
	resp := executeResponse{
		SessionID:        result.SessionID.String(),
		EncryptedResult:  result.OutputCiphertextHex,
		ResultNonce:      result.OutputNonceHex,
		ResultCommitment: hex.EncodeToString(result.Commitment[:]),
	}

	var quote []byte
	if withQuote {
		if s.deps.Quoter == nil {
			s.writeError(w, apperr.Internal("no attestation provider configured", nil))
			return
		}
		label := providerLabel(s.deps.Quoter)
		start := time.Now()
		q, err := s.deps.Quoter.Quote(ctx, result.Commitment)
		metrics.QuoteDuration.WithLabelValues(label).Observe(time.Since(start).Seconds())
		if err != nil {
			metrics.QuoteFailures.WithLabelValues(label).Inc()
			s.writeError(w, apperr.As(err))
			return
		}
		metrics.QuotesIssued.WithLabelValues(label).Inc()
		quote = q
		resp.ResultQuote = hex.EncodeToString(quote)
	}

	writeJSON(w, http.StatusOK, resp)
	s.recordReceipt(route, result, quote)
}

func (s *Server) recordReceipt(route string, result *execution.Result, quote []byte) {
	if s.deps.Ledger == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	receipt := ledger.Receipt{
		SessionID:  result.SessionID.String(),
		Commitment: result.Commitment[:],
		Quote:      quote,
		Route:      route,
		RecordedAt: time.Now(),
	}
	if err := s.deps.Ledger.Record(ctx, receipt); err != nil {
		s.log.Warn("ledger write failed", logger.String("route", route), logger.Error(err))
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	health := s.deps.HealthCheck.GetSystemHealth(r.Context())
	status := http.StatusOK
	if health.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, health)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err onto its HTTP status and writes the response body,
// and logs the structured AppError the error's Kind carries so internal
// logs keep the error code and wrapped cause the HTTP response must not
// leak to the caller.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	appErr := apperr.As(err)
	logErr := appErr.LogError()
	if appErr.Kind == apperr.KindInternal {
		s.log.Error("request failed", logger.String("code", logErr.Code), logger.Error(logErr))
	} else {
		s.log.Warn("request failed", logger.String("code", logErr.Code))
	}
	writeJSON(w, appErr.Status(), errorResponse{Msg: appErr.Error()})
}

func providerLabel(p attestation.Provider) string {
	switch p.(type) {
	case *mock.Provider:
		return "mock"
	case *sevsnp.Provider:
		return "sevsnp"
	case nil:
		return "none"
	default:
		return "unknown"
	}
}
