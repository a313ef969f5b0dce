package payment

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

// stubFacilitator scripts the verify/settle outcomes so the gate's
// branching can be exercised without any chain interaction.
type stubFacilitator struct {
	verifyErr error
	settleErr error
	payer     string
}

func (s *stubFacilitator) Verify(ctx context.Context, receipt, requirements []byte) (*VerifyResult, error) {
	if s.verifyErr != nil {
		return nil, s.verifyErr
	}
	return &VerifyResult{Payer: s.payer}, nil
}

func (s *stubFacilitator) Settle(ctx context.Context, receipt, requirements []byte) error {
	return s.settleErr
}

func testConfig() Config {
	return Config{
		Recipient:      "0x1111111111111111111111111111111111111111",
		Asset:          "0x2222222222222222222222222222222222222222",
		Network:        "eip155:84532",
		Price:          "10000",
		FacilitatorURL: "http://localhost:9402",
	}
}

func TestGate_MissingReceiptReturns402WithPriceTag(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run without payment")
	})

	req := httptest.NewRequest(http.MethodPost, "/x402_execute/test/wasm", nil)
	rec := httptest.NewRecorder()

	Gate(testConfig(), &stubFacilitator{}, next).ServeHTTP(rec, req)
	require.Equal(t, http.StatusPaymentRequired, rec.Code)

	var tag PriceTag
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tag))
	require.Equal(t, "0x1111111111111111111111111111111111111111", tag.Recipient)
	require.Equal(t, "10000", tag.Price)
	require.Equal(t, "eip155:84532", tag.Network)
}

func TestGate_ValidReceiptAdmitsRequest(t *testing.T) {
	ran := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ran = true
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/x402_execute/test/wasm", nil)
	req.Header.Set("X-Payment", `{"payload":{}}`)
	rec := httptest.NewRecorder()

	Gate(testConfig(), &stubFacilitator{payer: "0xabc"}, next).ServeHTTP(rec, req)
	require.True(t, ran)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestGate_NilFacilitatorRejectsReceipt(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run without a facilitator")
	})

	req := httptest.NewRequest(http.MethodPost, "/x402_execute/test/wasm", nil)
	req.Header.Set("X-Payment", `{"payload":{}}`)
	rec := httptest.NewRecorder()

	Gate(testConfig(), nil, next).ServeHTTP(rec, req)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestGate_VerifyFailureReturns402(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run on a rejected receipt")
	})

	req := httptest.NewRequest(http.MethodPost, "/x402_execute/test/wasm", nil)
	req.Header.Set("X-Payment", `{"payload":{}}`)
	rec := httptest.NewRecorder()

	f := &stubFacilitator{verifyErr: errors.New("signature mismatch")}
	Gate(testConfig(), f, next).ServeHTTP(rec, req)
	require.Equal(t, http.StatusPaymentRequired, rec.Code)
}

func TestGate_SettleFailureReturns402(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run when settlement fails")
	})

	req := httptest.NewRequest(http.MethodPost, "/x402_execute/test/wasm", nil)
	req.Header.Set("X-Payment", `{"payload":{}}`)
	rec := httptest.NewRecorder()

	f := &stubFacilitator{settleErr: errors.New("rpc unreachable")}
	Gate(testConfig(), f, next).ServeHTTP(rec, req)
	require.Equal(t, http.StatusPaymentRequired, rec.Code)
}
