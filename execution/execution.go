// Package execution implements the hypervisor's request envelope:
// validating and decrypting an incoming execution request, dispatching the
// decrypted program and arguments to a sandbox runner, and encrypting the
// runner's output back into the commitment-bound response the caller gets.
package execution

import (
	"context"
	"encoding/hex"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/cexlabs/hypervisor/apperr"
	"github.com/cexlabs/hypervisor/crypto/commitment"
	"github.com/cexlabs/hypervisor/crypto/envelope"
	"github.com/cexlabs/hypervisor/internal/metrics"
	"github.com/cexlabs/hypervisor/session"
)

// Request is the decoded form of an incoming execution call: a hex
// ciphertext for the program, one hex ciphertext per argument (in call
// order), and the client's public key identifying which session to use.
type Request struct {
	ProgramCiphertextHex  string
	ArgumentCiphertextHex []string
	ClientPublicKeyHex    string
}

// Result is everything the HTTP surface needs to answer a successful
// execution call: the session it ran under, the encrypted output and its
// nonce, and the commitment binding the whole transcript.
type Result struct {
	SessionID           uuid.UUID
	OutputNonceHex      string
	OutputCiphertextHex string
	Commitment          [commitment.Size]byte
}

// RunFunc executes a decrypted program with decrypted string arguments and
// returns the captured output bytes. wasmrunner.Runner.Run already has
// this shape; scriptrunner.Runner.Run is adapted to it by its caller,
// since its program argument is a string rather than raw bytes.
type RunFunc func(ctx context.Context, program []byte, args []string) ([]byte, error)

// Handler drives one execution envelope end to end. It is runner-agnostic:
// callers supply a RunFunc for whichever sandbox the route maps to, so the
// same envelope logic drives both the WASM and script policies.
type Handler struct {
	registry *session.Registry
}

// NewHandler returns an envelope Handler backed by registry.
func NewHandler(registry *session.Registry) *Handler {
	return &Handler{registry: registry}
}

// Execute validates req, decrypts its program and arguments, runs them,
// and encrypts and commits to the output.
//
// programUTF8 requires the decrypted program bytes to be valid UTF-8
// before dispatch (true for the script policy, false for WASM components,
// which are an opaque binary format). sandboxLabel only feeds metrics.
func (h *Handler) Execute(ctx context.Context, req Request, run RunFunc, programUTF8 bool, sandboxLabel string) (*Result, error) {
	start := time.Now()
	result, err := h.execute(ctx, req, run, programUTF8, sandboxLabel)

	metrics.ExecutionDuration.WithLabelValues(sandboxLabel).Observe(time.Since(start).Seconds())
	status := "success"
	if err != nil {
		status = "failure"
	}
	metrics.ExecutionsProcessed.WithLabelValues(sandboxLabel, status).Inc()
	return result, err
}

func (h *Handler) execute(ctx context.Context, req Request, run RunFunc, programUTF8 bool, sandboxLabel string) (*Result, error) {
	programHex := strings.TrimSpace(req.ProgramCiphertextHex)
	clientPubHex := strings.TrimSpace(req.ClientPublicKeyHex)
	if programHex == "" || clientPubHex == "" {
		return nil, apperr.BadInput("empty program or public key")
	}

	clientPub, err := envelope.PubkeyFromHex(clientPubHex)
	if err != nil {
		return nil, apperr.BadInput("malformed public key")
	}
	var clientPubBytes [33]byte
	copy(clientPubBytes[:], clientPub.SerializeCompressed())

	entry, ok := h.registry.Lookup(clientPubBytes)
	if !ok {
		return nil, apperr.Unauthorized("no session for client")
	}

	deriveStart := time.Now()
	key, err := envelope.DeriveSymmetric(entry.Secret, clientPub, entry.ID)
	metrics.EnvelopeOperationDuration.WithLabelValues("derive").Observe(time.Since(deriveStart).Seconds())
	if err != nil {
		metrics.EnvelopeErrors.WithLabelValues("derive").Inc()
		return nil, apperr.Internal("derive session key", err)
	}
	metrics.EnvelopeOperations.WithLabelValues("derive").Inc()

	// The same message nonce is reused for every ciphertext in this
	// envelope; AES-GCM-SIV is misuse-resistant under nonce reuse across
	// distinct plaintexts encrypted with the same key, which is what
	// makes the whole envelope reproducible by the client.
	msgNonce := envelope.DeriveNonce(entry.ID[:])

	decryptStart := time.Now()

	programCT, err := hex.DecodeString(programHex)
	if err != nil {
		return nil, apperr.BadInput("malformed program ciphertext")
	}
	programPT, err := envelope.Decrypt(key, msgNonce, nil, programCT)
	if err != nil {
		metrics.EnvelopeErrors.WithLabelValues("decrypt").Inc()
		return nil, apperr.BadInput("decrypt program")
	}
	if programUTF8 && !utf8.Valid(programPT) {
		return nil, apperr.BadInput("program is not valid utf-8")
	}

	args := make([]string, len(req.ArgumentCiphertextHex))
	argCTs := make([][]byte, len(req.ArgumentCiphertextHex))
	for i, raw := range req.ArgumentCiphertextHex {
		trimmed := strings.TrimSpace(raw)
		argCTs[i] = []byte(trimmed)

		ct, err := hex.DecodeString(trimmed)
		if err != nil {
			return nil, apperr.BadInput("malformed argument ciphertext")
		}
		pt, err := envelope.Decrypt(key, msgNonce, nil, ct)
		if err != nil {
			metrics.EnvelopeErrors.WithLabelValues("decrypt").Inc()
			return nil, apperr.BadInput("decrypt argument")
		}
		if !utf8.Valid(pt) {
			return nil, apperr.BadInput("argument is not valid utf-8")
		}
		args[i] = string(pt)
	}
	metrics.EnvelopeOperations.WithLabelValues("decrypt").Add(float64(1 + len(args)))
	metrics.EnvelopeOperationDuration.WithLabelValues("decrypt").Observe(time.Since(decryptStart).Seconds())

	output, err := run(ctx, programPT, args)
	if err != nil {
		return nil, err
	}
	metrics.ExecutionOutputSize.WithLabelValues(sandboxLabel).Observe(float64(len(output)))

	outputNonce := envelope.DeriveNonce(output)
	encryptStart := time.Now()
	outputCT, err := envelope.Encrypt(key, outputNonce, nil, output)
	metrics.EnvelopeOperationDuration.WithLabelValues("encrypt").Observe(time.Since(encryptStart).Seconds())
	if err != nil {
		metrics.EnvelopeErrors.WithLabelValues("encrypt").Inc()
		return nil, apperr.Internal("encrypt output", err)
	}
	metrics.EnvelopeOperations.WithLabelValues("encrypt").Inc()

	var sessionPub [33]byte
	copy(sessionPub[:], entry.PublicKey.SerializeCompressed())

	outputCTHex := hex.EncodeToString(outputCT)

	// The commitment hashes the hex ciphertexts exactly as received (and,
	// for the output, exactly as produced here), never a re-encoded or
	// re-decoded form, so a client can recompute it independently.
	commit := commitment.BuildExecutionCommitment(
		clientPubBytes, sessionPub, entry.ID,
		[]byte(programHex), argCTs, outputNonce, []byte(outputCTHex),
	)

	return &Result{
		SessionID:           entry.ID,
		OutputNonceHex:      hex.EncodeToString(outputNonce[:]),
		OutputCiphertextHex: outputCTHex,
		Commitment:          commit,
	}, nil
}
