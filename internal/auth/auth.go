// Package auth verifies that a ledger command was signed by the principal it
// acts for.
//
// A command travels as an Intent: the operation, its target pool, the acting
// principal, the amount, an expiry and a nonce. The principal signs the
// canonical message with its ed25519 key; the signature is base58 encoded.
package auth

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mr-tron/base58"

	"solana-staking-ledger/internal/address"
)

// Operations an intent may authorize.
const (
	OpInitializePool = "initialize_pool"
	OpStake          = "stake"
	OpUnstake        = "unstake"
	OpClaim          = "claim"
	OpFundRewards    = "fund_rewards"
)

// messagePrefix domain-separates ledger intents from other signed payloads.
const messagePrefix = "solana-staking-ledger"

// Verification errors. All of them wrap ErrUnauthorized.
var (
	ErrUnauthorized    = errors.New("unauthorized")
	ErrBadSignature    = fmt.Errorf("%w: signature does not verify", ErrUnauthorized)
	ErrExpired         = fmt.Errorf("%w: intent expired", ErrUnauthorized)
	ErrExpiryTooFar    = fmt.Errorf("%w: intent expiry too far in the future", ErrUnauthorized)
	ErrOffCurveSigner  = fmt.Errorf("%w: principal cannot sign", ErrUnauthorized)
	ErrReplayed        = fmt.Errorf("%w: intent already used", ErrUnauthorized)
	ErrMalformedIntent = fmt.Errorf("%w: malformed intent", ErrUnauthorized)
)

// Intent is a signed request to run one ledger operation.
type Intent struct {
	Op        string `json:"op"`
	Pool      string `json:"pool"`
	Principal string `json:"principal"`
	Amount    uint64 `json:"amount"`
	ExpiresAt int64  `json:"expires_at"` // unix seconds
	Nonce     string `json:"nonce"`
	Signature string `json:"signature"` // base58 ed25519 signature over Message()
}

// Message returns the canonical bytes the principal signs.
func (i Intent) Message() []byte {
	return []byte(strings.Join([]string{
		messagePrefix,
		i.Op,
		i.Pool,
		i.Principal,
		strconv.FormatUint(i.Amount, 10),
		strconv.FormatInt(i.ExpiresAt, 10),
		i.Nonce,
	}, "|"))
}

// Sign fills in the signature using key. The caller sets Principal to the
// base58 form of key's public half.
func (i *Intent) Sign(key ed25519.PrivateKey) {
	i.Signature = base58.Encode(ed25519.Sign(key, i.Message()))
}

// Verifier checks intents and remembers used nonces until they expire.
type Verifier struct {
	maxTTL time.Duration

	mu   sync.Mutex
	seen map[string]int64 // principal|nonce -> expiry
}

// NewVerifier creates a Verifier that rejects intents expiring more than
// maxTTL after the verification time.
func NewVerifier(maxTTL time.Duration) *Verifier {
	return &Verifier{
		maxTTL: maxTTL,
		seen:   make(map[string]int64),
	}
}

// Verify checks intent against the expected operation at time now.
// A successfully verified nonce cannot be used again by the same principal.
func (v *Verifier) Verify(intent Intent, op string, now int64) error {
	if intent.Op != op {
		return fmt.Errorf("%w: op %q, expected %q", ErrMalformedIntent, intent.Op, op)
	}
	if intent.Nonce == "" {
		return fmt.Errorf("%w: empty nonce", ErrMalformedIntent)
	}
	if intent.ExpiresAt <= now {
		return ErrExpired
	}
	if intent.ExpiresAt-now > int64(v.maxTTL/time.Second) {
		return ErrExpiryTooFar
	}

	signer, err := address.Parse(intent.Principal)
	if err != nil {
		return fmt.Errorf("%w: principal: %v", ErrMalformedIntent, err)
	}
	if !signer.IsOnCurve() {
		return ErrOffCurveSigner
	}

	sig, err := base58.Decode(intent.Signature)
	if err != nil || len(sig) != ed25519.SignatureSize {
		return fmt.Errorf("%w: signature encoding", ErrMalformedIntent)
	}
	if !ed25519.Verify(ed25519.PublicKey(signer.Bytes()), intent.Message(), sig) {
		return ErrBadSignature
	}

	return v.consume(intent.Principal+"|"+intent.Nonce, intent.ExpiresAt, now)
}

func (v *Verifier) consume(key string, expiresAt, now int64) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	for k, exp := range v.seen {
		if exp <= now {
			delete(v.seen, k)
		}
	}
	if _, used := v.seen[key]; used {
		return ErrReplayed
	}
	v.seen[key] = expiresAt
	return nil
}
