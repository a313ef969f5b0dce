// Package x402 implements EIP-3009 transferWithAuthorization payment
// verification and settlement for the hypervisor's payment gate.
package x402

import (
	"context"
	"crypto/ecdsa"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
	"time"

	ethgo "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/cexlabs/hypervisor/internal/logger"
	"github.com/cexlabs/hypervisor/payment"
)

var (
	domainTypeHash = crypto.Keccak256Hash([]byte(
		"EIP712Domain(string name,string version,uint256 chainId,address verifyingContract)",
	))
	authTypeHash = crypto.Keccak256Hash([]byte(
		"TransferWithAuthorization(address from,address to,uint256 value,uint256 validAfter,uint256 validBefore,bytes32 nonce)",
	))
	transferWithAuthSelector = crypto.Keccak256([]byte(
		"transferWithAuthorization(address,address,uint256,uint256,uint256,bytes32,uint8,bytes32,bytes32)",
	))[:4]
)

// LocalFacilitator verifies EIP-3009 authorizations and settles them
// on-chain itself, without depending on any third-party facilitator
// service.
type LocalFacilitator struct {
	rpcURL     string
	privateKey *ecdsa.PrivateKey
	address    common.Address
	chainID    *big.Int
}

// NewLocalFacilitator builds a LocalFacilitator whose relayer key pays gas
// for settlement transactions.
func NewLocalFacilitator(rpcURL, relayerKeyHex string, chainID *big.Int) (*LocalFacilitator, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(relayerKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("x402: invalid relayer key: %w", err)
	}
	return &LocalFacilitator{
		rpcURL:     rpcURL,
		privateKey: key,
		address:    crypto.PubkeyToAddress(key.PublicKey),
		chainID:    chainID,
	}, nil
}

var _ payment.Facilitator = (*LocalFacilitator)(nil)

type authorizationPayload struct {
	Accepted struct {
		Network string `json:"network"`
		Asset   string `json:"asset"`
		PayTo   string `json:"payTo"`
		Amount  string `json:"amount"`
		Extra   struct {
			Name    string `json:"name"`
			Version string `json:"version"`
		} `json:"extra"`
	} `json:"accepted"`
	Payload struct {
		Signature     string `json:"signature"`
		Authorization struct {
			From        string `json:"from"`
			To          string `json:"to"`
			Value       string `json:"value"`
			ValidAfter  string `json:"validAfter"`
			ValidBefore string `json:"validBefore"`
			Nonce       string `json:"nonce"`
		} `json:"authorization"`
	} `json:"payload"`
}

func parsePayload(raw []byte) (*authorizationPayload, error) {
	var p authorizationPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("x402: parse payment payload: %w", err)
	}
	return &p, nil
}

func pad32(n *big.Int) []byte {
	b := n.Bytes()
	if len(b) >= 32 {
		return b[len(b)-32:]
	}
	padded := make([]byte, 32)
	copy(padded[32-len(b):], b)
	return padded
}

func addrPad(a common.Address) []byte {
	padded := make([]byte, 32)
	copy(padded[12:], a.Bytes())
	return padded
}

func domainSeparator(name, version string, chainID *big.Int, contract common.Address) common.Hash {
	enc := make([]byte, 5*32)
	copy(enc[0:32], domainTypeHash.Bytes())
	copy(enc[32:64], crypto.Keccak256([]byte(name)))
	copy(enc[64:96], crypto.Keccak256([]byte(version)))
	copy(enc[96:128], pad32(chainID))
	copy(enc[128:160], addrPad(contract))
	return crypto.Keccak256Hash(enc)
}

func authHash(from, to common.Address, value, validAfter, validBefore *big.Int, nonce [32]byte) common.Hash {
	enc := make([]byte, 7*32)
	copy(enc[0:32], authTypeHash.Bytes())
	copy(enc[32:64], addrPad(from))
	copy(enc[64:96], addrPad(to))
	copy(enc[96:128], pad32(value))
	copy(enc[128:160], pad32(validAfter))
	copy(enc[160:192], pad32(validBefore))
	copy(enc[192:224], nonce[:])
	return crypto.Keccak256Hash(enc)
}

func mustBigInt(s string) *big.Int {
	n := new(big.Int)
	n.SetString(s, 10)
	return n
}

func eip712Digest(p *authorizationPayload) (common.Hash, [32]byte, error) {
	parts := strings.Split(p.Accepted.Network, ":")
	if len(parts) != 2 {
		return common.Hash{}, [32]byte{}, fmt.Errorf("x402: invalid network %q", p.Accepted.Network)
	}
	chainID := new(big.Int)
	if _, ok := chainID.SetString(parts[1], 10); !ok {
		return common.Hash{}, [32]byte{}, fmt.Errorf("x402: invalid chain id %q", parts[1])
	}

	asset := common.HexToAddress(p.Accepted.Asset)
	from := common.HexToAddress(p.Payload.Authorization.From)
	to := common.HexToAddress(p.Payload.Authorization.To)
	value := mustBigInt(p.Payload.Authorization.Value)
	validAfter := mustBigInt(p.Payload.Authorization.ValidAfter)
	validBefore := mustBigInt(p.Payload.Authorization.ValidBefore)

	nonceBytes, err := hex.DecodeString(strings.TrimPrefix(p.Payload.Authorization.Nonce, "0x"))
	if err != nil {
		return common.Hash{}, [32]byte{}, fmt.Errorf("x402: invalid nonce: %w", err)
	}
	var nonce [32]byte
	copy(nonce[32-len(nonceBytes):], nonceBytes)

	ds := domainSeparator(p.Accepted.Extra.Name, p.Accepted.Extra.Version, chainID, asset)
	ah := authHash(from, to, value, validAfter, validBefore, nonce)

	digest := crypto.Keccak256Hash(append([]byte{0x19, 0x01}, append(ds.Bytes(), ah.Bytes()...)...))
	return digest, nonce, nil
}

// Address returns the relayer address that pays settlement gas.
func (f *LocalFacilitator) Address() common.Address { return f.address }

// Verify checks the EIP-3009 signature and requirement match without
// touching the chain. The authorization must match the receipt's own
// accepted terms and, when requirements holds a JSON payment.PriceTag,
// must also pay the configured recipient at least the configured price.
func (f *LocalFacilitator) Verify(_ context.Context, receipt, requirements []byte) (*payment.VerifyResult, error) {
	p, err := parsePayload(receipt)
	if err != nil {
		return nil, err
	}

	validBefore := mustBigInt(p.Payload.Authorization.ValidBefore)
	if validBefore.Int64() < time.Now().Unix() {
		return nil, fmt.Errorf("x402: authorization expired")
	}

	digest, _, err := eip712Digest(p)
	if err != nil {
		return nil, err
	}

	sig, err := hex.DecodeString(strings.TrimPrefix(p.Payload.Signature, "0x"))
	if err != nil || len(sig) != 65 {
		return nil, fmt.Errorf("x402: invalid signature")
	}
	if sig[64] >= 27 {
		sig[64] -= 27
	}

	pubBytes, err := crypto.Ecrecover(digest.Bytes(), sig)
	if err != nil {
		return nil, fmt.Errorf("x402: ecrecover: %w", err)
	}
	pub, err := crypto.UnmarshalPubkey(pubBytes)
	if err != nil {
		return nil, fmt.Errorf("x402: unmarshal pubkey: %w", err)
	}
	recovered := crypto.PubkeyToAddress(*pub)
	expected := common.HexToAddress(p.Payload.Authorization.From)
	if recovered != expected {
		return nil, fmt.Errorf("x402: signature mismatch")
	}

	authTo := common.HexToAddress(p.Payload.Authorization.To)
	reqPayTo := common.HexToAddress(p.Accepted.PayTo)
	if authTo != reqPayTo {
		return nil, fmt.Errorf("x402: payTo mismatch")
	}

	authValue := mustBigInt(p.Payload.Authorization.Value)
	reqAmount := mustBigInt(p.Accepted.Amount)
	if authValue.Cmp(reqAmount) < 0 {
		return nil, fmt.Errorf("x402: amount too low")
	}

	if len(requirements) > 0 {
		var tag payment.PriceTag
		if err := json.Unmarshal(requirements, &tag); err != nil {
			return nil, fmt.Errorf("x402: parse requirements: %w", err)
		}
		price, ok := new(big.Int).SetString(tag.Price, 10)
		if !ok {
			return nil, fmt.Errorf("x402: invalid configured price %q", tag.Price)
		}
		if authTo != common.HexToAddress(tag.Recipient) || authValue.Cmp(price) < 0 {
			return nil, fmt.Errorf("x402: payment does not meet configured price tag")
		}
	}

	logger.Info("x402 local verify ok", logger.String("payer", recovered.Hex()), logger.String("amount", authValue.String()))
	return &payment.VerifyResult{Payer: recovered.Hex()}, nil
}

// Settle submits transferWithAuthorization to the asset contract.
func (f *LocalFacilitator) Settle(ctx context.Context, receipt, _ []byte) error {
	p, err := parsePayload(receipt)
	if err != nil {
		return err
	}

	_, nonce, err := eip712Digest(p)
	if err != nil {
		return err
	}

	from := common.HexToAddress(p.Payload.Authorization.From)
	to := common.HexToAddress(p.Payload.Authorization.To)
	value := mustBigInt(p.Payload.Authorization.Value)
	validAfter := mustBigInt(p.Payload.Authorization.ValidAfter)
	validBefore := mustBigInt(p.Payload.Authorization.ValidBefore)
	asset := common.HexToAddress(p.Accepted.Asset)

	sig, err := hex.DecodeString(strings.TrimPrefix(p.Payload.Signature, "0x"))
	if err != nil || len(sig) != 65 {
		return fmt.Errorf("x402: invalid signature for settlement")
	}
	var r, s [32]byte
	copy(r[:], sig[:32])
	copy(s[:], sig[32:64])
	v := sig[64]
	if v < 27 {
		v += 27
	}

	callData := packTransferWithAuth(from, to, value, validAfter, validBefore, nonce, v, r, s)

	client, err := ethclient.DialContext(ctx, f.rpcURL)
	if err != nil {
		return fmt.Errorf("x402: rpc connect: %w", err)
	}
	defer client.Close()

	txNonce, err := client.PendingNonceAt(ctx, f.address)
	if err != nil {
		return fmt.Errorf("x402: pending nonce: %w", err)
	}

	gasLimit := uint64(100_000)
	if est, err := client.EstimateGas(ctx, ethgo.CallMsg{From: f.address, To: &asset, Data: callData}); err == nil {
		gasLimit = est * 12 / 10
	}

	header, err := client.HeaderByNumber(ctx, nil)
	if err != nil {
		return fmt.Errorf("x402: latest header: %w", err)
	}
	tip := big.NewInt(1e9)
	feeCap := new(big.Int).Add(header.BaseFee, tip)

	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   f.chainID,
		Nonce:     txNonce,
		GasTipCap: tip,
		GasFeeCap: feeCap,
		Gas:       gasLimit,
		To:        &asset,
		Value:     new(big.Int),
		Data:      callData,
	})

	signed, err := types.SignTx(tx, types.NewLondonSigner(f.chainID), f.privateKey)
	if err != nil {
		return fmt.Errorf("x402: sign settlement tx: %w", err)
	}

	if err := client.SendTransaction(ctx, signed); err != nil {
		return fmt.Errorf("x402: send settlement tx: %w", err)
	}

	logger.Info("x402 settlement submitted", logger.String("hash", signed.Hash().Hex()), logger.String("value", value.String()))
	return nil
}

func packTransferWithAuth(from, to common.Address, value, validAfter, validBefore *big.Int, nonce [32]byte, v uint8, r, s [32]byte) []byte {
	data := make([]byte, 4+9*32)
	copy(data[:4], transferWithAuthSelector)
	offset := 4
	copy(data[offset+12:offset+32], from.Bytes())
	offset += 32
	copy(data[offset+12:offset+32], to.Bytes())
	offset += 32
	copy(data[offset:offset+32], pad32(value))
	offset += 32
	copy(data[offset:offset+32], pad32(validAfter))
	offset += 32
	copy(data[offset:offset+32], pad32(validBefore))
	offset += 32
	copy(data[offset:offset+32], nonce[:])
	offset += 32
	data[offset+31] = v
	offset += 32
	copy(data[offset:offset+32], r[:])
	offset += 32
	copy(data[offset:offset+32], s[:])
	return data
}
