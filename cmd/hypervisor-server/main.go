// Command hypervisor-server runs the confidential execution hypervisor's
// HTTP surface: it loads configuration, wires the session, sandbox,
// attestation, payment and ledger subsystems together, and serves the
// resulting route table until it receives a shutdown signal.
package main

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/cexlabs/hypervisor/agentslot"
	"github.com/cexlabs/hypervisor/attestation"
	"github.com/cexlabs/hypervisor/attestation/mock"
	"github.com/cexlabs/hypervisor/attestation/sevsnp"
	"github.com/cexlabs/hypervisor/config"
	"github.com/cexlabs/hypervisor/health"
	"github.com/cexlabs/hypervisor/internal/logger"
	"github.com/cexlabs/hypervisor/ledger"
	"github.com/cexlabs/hypervisor/ledger/memory"
	pgledger "github.com/cexlabs/hypervisor/ledger/postgres"
	"github.com/cexlabs/hypervisor/payment"
	"github.com/cexlabs/hypervisor/payment/x402"
	"github.com/cexlabs/hypervisor/pkg/version"
	"github.com/cexlabs/hypervisor/sandbox/scriptrunner"
	"github.com/cexlabs/hypervisor/sandbox/wasmrunner"
	"github.com/cexlabs/hypervisor/server"
	"github.com/cexlabs/hypervisor/session"
)

func main() {
	// .env is optional: local development loads HYPERVISOR_* overrides
	// from it, a deployed environment sets them directly and has no
	// file to load.
	_ = godotenv.Load()

	cfg := config.MustLoad()

	log := logger.NewDefaultLogger()
	logger.SetDefaultLogger(log)
	log.Info("starting hypervisor", logger.String("version", version.Short()))

	quoter, err := buildAttestationProvider(cfg)
	if err != nil {
		log.Fatal("build attestation provider", logger.Error(err))
	}

	facilitator, err := buildFacilitator(cfg)
	if err != nil {
		log.Warn("payment facilitator disabled", logger.Error(err))
	}

	ledgerWriter, err := buildLedger(cfg)
	if err != nil {
		log.Fatal("build ledger", logger.Error(err))
	}

	deps := server.Deps{
		Registry:     session.NewRegistry(),
		WasmRunner:   wasmrunner.New(cfg.Sandbox.WasmEpochPeriod),
		ScriptRunner: scriptrunner.New(cfg.Sandbox.ScriptInterpreter, cfg.Sandbox.ScriptInterpreterArgs...),
		Quoter:       quoter,
		Payment: payment.Config{
			Recipient:      cfg.Payment.Recipient,
			Asset:          cfg.Payment.Asset,
			Network:        cfg.Payment.Network,
			Price:          cfg.Payment.Price,
			FacilitatorURL: cfg.Payment.FacilitatorURL,
		},
		Facilitator: facilitator,
		Ledger:      ledgerWriter,
		Agents:      agentslot.NewManager(),
		HealthCheck: health.NewHealthChecker(cfg.Server.RequestTimeout),
	}

	srv := server.New(deps)
	httpServer := &http.Server{
		Addr:         cfg.Server.BindAddr,
		Handler:      srv,
		ReadTimeout:  cfg.Server.RequestTimeout,
		WriteTimeout: cfg.Server.RequestTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info("hypervisor listening", logger.String("addr", cfg.Server.BindAddr), logger.String("environment", cfg.Environment))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server exited", logger.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("graceful shutdown failed", logger.Error(err))
	}
	if ledgerWriter != nil {
		_ = ledgerWriter.Close()
	}
}

// buildAttestationProvider selects the attestation backend. "sevsnp" uses
// a deterministic SimulatedPlatform signer rather than real hardware, since
// this repo has no way to verify it is actually running under SEV-SNP; it
// is wired as a distinct, honestly-labelled option rather than silently
// aliased to mock.
func buildAttestationProvider(cfg *config.Config) (attestation.Provider, error) {
	switch strings.ToLower(cfg.Attestation.Provider) {
	case "", "mock":
		return mock.New(), nil
	case "sevsnp":
		seed := []byte(cfg.Environment + ":" + cfg.Server.BindAddr)
		return sevsnp.New(sevsnp.NewSimulatedPlatform(seed)), nil
	default:
		return nil, fmt.Errorf("unknown attestation provider %q", cfg.Attestation.Provider)
	}
}

// buildFacilitator builds the x402 settlement backend. A missing relayer
// key is not fatal: the gated routes still answer 402 with their price tag,
// but respond 500 to any request carrying a receipt until one is
// configured, while the unauthenticated test routes keep working.
func buildFacilitator(cfg *config.Config) (payment.Facilitator, error) {
	if cfg.Payment.RelayerKeyEnv == "" || cfg.Payment.RPCURL == "" {
		return nil, fmt.Errorf("payment.relayer_key_env or payment.rpc_url not configured")
	}
	relayerKey := os.Getenv(cfg.Payment.RelayerKeyEnv)
	if relayerKey == "" {
		return nil, fmt.Errorf("relayer key env var %q is empty", cfg.Payment.RelayerKeyEnv)
	}
	chainID := big.NewInt(cfg.Payment.ChainID)
	return x402.NewLocalFacilitator(cfg.Payment.RPCURL, relayerKey, chainID)
}

// buildLedger selects the audit-trail backend. An empty DSN keeps the
// hypervisor running with an in-memory ledger, useful for local
// development where no Postgres instance is available.
func buildLedger(cfg *config.Config) (ledger.Writer, error) {
	if cfg.Ledger.DSN == "" {
		return memory.NewStore(), nil
	}

	pgCfg, err := parsePostgresDSN(cfg.Ledger.DSN)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return pgledger.NewStore(ctx, pgCfg)
}

// parsePostgresDSN accepts a "host=... port=... user=... password=...
// dbname=... sslmode=..." keyword/value DSN, the same format Postgres
// connection strings use.
func parsePostgresDSN(dsn string) (*pgledger.Config, error) {
	cfg := &pgledger.Config{Port: 5432, SSLMode: "disable"}
	for _, field := range strings.Fields(dsn) {
		kv := strings.SplitN(field, "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "host":
			cfg.Host = kv[1]
		case "port":
			if _, err := fmt.Sscanf(kv[1], "%d", &cfg.Port); err != nil {
				return nil, fmt.Errorf("ledger dsn: invalid port %q", kv[1])
			}
		case "user":
			cfg.User = kv[1]
		case "password":
			cfg.Password = kv[1]
		case "dbname":
			cfg.Database = kv[1]
		case "sslmode":
			cfg.SSLMode = kv[1]
		}
	}
	if cfg.Host == "" || cfg.Database == "" {
		return nil, fmt.Errorf("ledger dsn: missing host or dbname")
	}
	return cfg, nil
}
