// Package wasmrunner executes guest WebAssembly components in a fresh
// sandbox per call, using wasmtime's component model and epoch-based
// cooperative interruption so a runaway guest never blocks a shared
// executor thread.
package wasmrunner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bytecodealliance/wasmtime-go/v25"

	"github.com/cexlabs/hypervisor/apperr"
)

// StdoutCap bounds the guest's captured stdout. Writes beyond this many
// bytes are truncated at the pipe; truncation is deterministic and is
// reflected honestly in whatever gets committed to.
const StdoutCap = 4096

// Runner builds one wasmtime engine shared across calls (engines are safe
// for concurrent use and expensive to create) and increments its epoch
// clock on a background ticker so in-flight guests can be preempted.
type Runner struct {
	engine      *wasmtime.Engine
	tickOnce    sync.Once
	epochPeriod time.Duration
}

// New returns a Runner. epochPeriod controls how often the shared epoch
// clock advances; guest calls that set a one-epoch deadline are preempted
// at the next tick after that period elapses.
func New(epochPeriod time.Duration) *Runner {
	cfg := wasmtime.NewConfig()
	cfg.SetEpochInterruption(true)
	cfg.SetWasmComponentModel(true)

	return &Runner{
		engine:      wasmtime.NewEngineWithConfig(cfg),
		epochPeriod: epochPeriod,
	}
}

func (r *Runner) startTicker() {
	r.tickOnce.Do(func() {
		go func() {
			ticker := time.NewTicker(r.epochPeriod)
			defer ticker.Stop()
			for range ticker.C {
				r.engine.IncrementEpoch()
			}
		}()
	})
}

// Run instantiates componentBytes in a fresh store, invokes it with
// argv[0] = "wasm" followed by args, and returns the bytes written to a
// capped stdout pipe. The guest has no filesystem, network, environment,
// or stdin access.
func (r *Runner) Run(ctx context.Context, componentBytes []byte, args []string) ([]byte, error) {
	r.startTicker()

	component, err := wasmtime.NewComponent(r.engine, componentBytes)
	if err != nil {
		return nil, apperr.Internal("build sandbox engine", err)
	}

	linker := wasmtime.NewComponentLinker(r.engine)
	if err := linker.DefineWasi(); err != nil {
		return nil, apperr.Internal("link host imports", err)
	}

	stdout := newBoundedBuffer(StdoutCap)

	wasiConfig := wasmtime.NewWasiConfig()
	wasiConfig.SetArgv(append([]string{"wasm"}, args...))
	wasiConfig.SetStdoutWriter(stdout)

	store := wasmtime.NewStore(r.engine)
	store.SetWasi(wasiConfig)
	store.SetEpochDeadline(1)

	done := make(chan runResult, 1)
	go func() {
		// store.Close() below must not race this goroutine's use of
		// store, so it always runs to completion and reports through
		// done even after the caller has stopped waiting on ctx.Done().
		defer store.Close()

		instance, err := linker.Instantiate(store, component)
		if err != nil {
			done <- runResult{err: apperr.BadInput("execute wasm")}
			return
		}

		run := instance.GetFunc(store, "wasi:cli/run@0.2.0#run")
		if run == nil {
			done <- runResult{err: apperr.BadInput("execute wasm")}
			return
		}

		vals, err := run.Call(store)
		if err != nil {
			// Both a runtime trap and any other call failure map to the
			// same "execute wasm" bad-input kind; only a well-formed
			// Err(_) result from the guest gets the more specific
			// "unexpected app exited" message below.
			done <- runResult{err: apperr.BadInput("execute wasm")}
			return
		}

		if len(vals) > 0 {
			if ok, isOK := vals[0].(bool); isOK && !ok {
				done <- runResult{err: apperr.BadInput("unexpected app exited")}
				return
			}
		}
		done <- runResult{}
	}()

	select {
	case <-ctx.Done():
		// The goroutine above owns store until it observes the epoch
		// bump and closes it; wait it out instead of racing Close
		// against its still-in-flight Instantiate/Call.
		r.engine.IncrementEpoch()
		<-done
		return nil, fmt.Errorf("wasmrunner: %w", ctx.Err())
	case res := <-done:
		if res.err != nil {
			return nil, res.err
		}
		return stdout.Bytes(), nil
	}
}

type runResult struct {
	err error
}
