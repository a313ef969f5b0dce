// Package payment implements the per-request micropayment gate applied to
// the hypervisor's verifiable routes.
package payment

import (
	"context"
	"encoding/json"
	"net/http"
)

// Receipt is the raw payment payload a client attaches to a gated request,
// carried in the X-Payment request header as base64-free JSON.
type Receipt struct {
	Payload []byte
}

// VerifyResult is what a successful facilitator verification yields.
type VerifyResult struct {
	Payer string
}

// Facilitator verifies and settles payment receipts against a configured
// price. The gate never hands it anything beyond the receipt bytes; it
// never sees decrypted request payloads.
type Facilitator interface {
	Verify(ctx context.Context, receipt []byte, requirements []byte) (*VerifyResult, error)
	Settle(ctx context.Context, receipt []byte, requirements []byte) error
}

// PriceTag describes what a gated route requires, advertised on a 402
// response so a client knows how to pay.
type PriceTag struct {
	Recipient   string `json:"recipient"`
	Asset       string `json:"asset"`
	Network     string `json:"network"`
	Price       string `json:"price"`
	Facilitator string `json:"facilitator"`
}

// Config fixes the recipient, price, network and facilitator endpoint for
// every gated route. These are configuration, not per-request.
type Config struct {
	Recipient      string
	Asset          string
	Network        string
	Price          string
	FacilitatorURL string
}

func (c Config) priceTag() PriceTag {
	return PriceTag{
		Recipient:   c.Recipient,
		Asset:       c.Asset,
		Network:     c.Network,
		Price:       c.Price,
		Facilitator: c.FacilitatorURL,
	}
}

// Gate wraps next with the payment middleware: requests without a valid
// X-Payment header are answered with 402 and a price tag; requests with a
// header are verified against facilitator before being admitted.
func Gate(cfg Config, facilitator Facilitator, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get("X-Payment")
		if raw == "" {
			writePaymentRequired(w, cfg.priceTag())
			return
		}

		if facilitator == nil {
			http.Error(w, `{"msg":"payment facilitator not configured"}`, http.StatusInternalServerError)
			return
		}

		requirements, err := json.Marshal(cfg.priceTag())
		if err != nil {
			http.Error(w, `{"msg":"internal error"}`, http.StatusInternalServerError)
			return
		}

		result, err := facilitator.Verify(r.Context(), []byte(raw), requirements)
		if err != nil || result == nil {
			writePaymentRequired(w, cfg.priceTag())
			return
		}

		if err := facilitator.Settle(r.Context(), []byte(raw), requirements); err != nil {
			writePaymentRequired(w, cfg.priceTag())
			return
		}

		next.ServeHTTP(w, r)
	})
}

func writePaymentRequired(w http.ResponseWriter, tag PriceTag) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusPaymentRequired)
	_ = json.NewEncoder(w).Encode(tag)
}
