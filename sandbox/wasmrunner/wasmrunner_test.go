package wasmrunner

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cexlabs/hypervisor/apperr"
)

// okComponentWAT is a minimal self-contained WebAssembly component,
// authored in the component text format so the test needs no prebuilt
// binary fixture. It exports wasi:cli/run@0.2.0#run, the same interface
// Runner.Run dispatches to, backed by a trivial core module that always
// reports success. It declares no wasi imports at all, so it instantiates
// cleanly against whatever host imports ComponentLinker.DefineWasi
// supplies.
const okComponentWAT = `
(component
  (core module $m
    (func (export "run") (result i32)
      i32.const 0))
  (core instance $i (instantiate $m))
  (func $run (result (result)) (canon lift (core func $i "run")))
  (instance $run-instance
    (export "run" (func $run)))
  (export "wasi:cli/run@0.2.0" (instance $run-instance)))
`

// errComponentWAT is the same shape as okComponentWAT but its guest
// reports failure, exercising the "unexpected app exited" BadInput branch
// with a real component rather than only unit-level buffer/engine checks.
const errComponentWAT = `
(component
  (core module $m
    (func (export "run") (result i32)
      i32.const 1))
  (core instance $i (instantiate $m))
  (func $run (result (result)) (canon lift (core func $i "run")))
  (instance $run-instance
    (export "run" (func $run)))
  (export "wasi:cli/run@0.2.0" (instance $run-instance)))
`

func TestBoundedBuffer_TruncatesAtCapacity(t *testing.T) {
	b := newBoundedBuffer(8)
	n, err := b.Write([]byte("hello world"))
	require.NoError(t, err)
	require.Equal(t, 11, n)
	require.Equal(t, "hello wo", string(b.Bytes()))
}

func TestBoundedBuffer_AcceptsMultipleWritesUpToCap(t *testing.T) {
	b := newBoundedBuffer(5)
	_, _ = b.Write([]byte("ab"))
	_, _ = b.Write([]byte("cd"))
	_, _ = b.Write([]byte("ef"))
	require.Equal(t, "abcde", string(b.Bytes()))
}

func TestNew_BuildsEngineWithEpochInterruption(t *testing.T) {
	r := New(50 * time.Millisecond)
	require.NotNil(t, r.engine)
}

func TestRunner_RunsRealComponentToSuccess(t *testing.T) {
	r := New(time.Second)
	out, err := r.Run(context.Background(), []byte(okComponentWAT), []string{"tress"})
	require.NoError(t, err)
	require.Empty(t, out)
}

func TestRunner_GuestErrBecomesBadInput(t *testing.T) {
	r := New(time.Second)
	_, err := r.Run(context.Background(), []byte(errComponentWAT), nil)
	require.Error(t, err)
	require.Equal(t, apperr.KindBadInput, apperr.As(err).Kind)
}

func TestRunner_FreshSandboxPerInvocation(t *testing.T) {
	r := New(time.Second)
	_, err1 := r.Run(context.Background(), []byte(okComponentWAT), []string{"one"})
	require.NoError(t, err1)
	_, err2 := r.Run(context.Background(), []byte(okComponentWAT), []string{"two"})
	require.NoError(t, err2)
}
