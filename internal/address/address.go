// Package address handles Solana-style public keys and the program derived
// addresses that locate pools, vaults and stake records.
package address

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// PubkeyLength is the size of a public key in bytes.
const PubkeyLength = 32

// Seed limits enforced by the runtime for program derived addresses.
const (
	MaxSeeds      = 16
	MaxSeedLength = 32
)

// DefaultProgramID is the program the staking ledger addresses are derived under.
const DefaultProgramID = "3se3ZwCRzi9NS6b7uxaQry9fkqC7vhFf2VKfuw6oJ77T"

const pdaMarker = "ProgramDerivedAddress"

var (
	// ErrInvalidPubkey is returned for strings that are not 32-byte base58 keys.
	ErrInvalidPubkey = errors.New("invalid public key")

	// ErrInvalidSeeds is returned when seeds exceed the runtime limits.
	ErrInvalidSeeds = errors.New("invalid seeds")

	// ErrOnCurve is returned when a derived address has a valid private key.
	ErrOnCurve = errors.New("program address is on curve")

	// ErrNoViableBump is returned when every bump lands on the curve.
	ErrNoViableBump = errors.New("unable to find a viable program address bump seed")
)

// Pubkey is a 32-byte ed25519 public key or program derived address.
type Pubkey [PubkeyLength]byte

// Parse decodes a base58 public key.
func Parse(s string) (Pubkey, error) {
	var pk Pubkey
	if s == "" {
		return pk, fmt.Errorf("%w: empty", ErrInvalidPubkey)
	}
	decoded, err := base58.Decode(s)
	if err != nil {
		return pk, fmt.Errorf("%w: %v", ErrInvalidPubkey, err)
	}
	if len(decoded) != PubkeyLength {
		return pk, fmt.Errorf("%w: got %d bytes", ErrInvalidPubkey, len(decoded))
	}
	copy(pk[:], decoded)
	return pk, nil
}

// MustParse is Parse for constants. It panics on malformed input.
func MustParse(s string) Pubkey {
	pk, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return pk
}

// String returns the base58 form.
func (p Pubkey) String() string {
	return base58.Encode(p[:])
}

// Bytes returns the key as a byte slice.
func (p Pubkey) Bytes() []byte {
	return p[:]
}

// IsZero reports whether the key is all zeroes.
func (p Pubkey) IsZero() bool {
	return p == Pubkey{}
}

// IsOnCurve reports whether the key is a valid ed25519 point, i.e. whether a
// private key can exist for it. Program derived addresses are always off-curve.
func (p Pubkey) IsOnCurve() bool {
	return isOnCurve(p[:])
}

// Valid reports whether s parses as a public key.
func Valid(s string) bool {
	_, err := Parse(s)
	return err == nil
}

// CreateProgramAddress hashes seeds with the program id.
// Fails when the result lands on the curve.
func CreateProgramAddress(seeds [][]byte, program Pubkey) (Pubkey, error) {
	if len(seeds) > MaxSeeds {
		return Pubkey{}, fmt.Errorf("%w: %d seeds", ErrInvalidSeeds, len(seeds))
	}

	h := sha256.New()
	for _, seed := range seeds {
		if len(seed) > MaxSeedLength {
			return Pubkey{}, fmt.Errorf("%w: seed of %d bytes", ErrInvalidSeeds, len(seed))
		}
		h.Write(seed)
	}
	h.Write(program[:])
	h.Write([]byte(pdaMarker))

	var pk Pubkey
	copy(pk[:], h.Sum(nil))
	if isOnCurve(pk[:]) {
		return Pubkey{}, ErrOnCurve
	}
	return pk, nil
}

// FindProgramAddress searches bumps from 255 down and returns the first
// off-curve address together with its bump.
func FindProgramAddress(seeds [][]byte, program Pubkey) (Pubkey, uint8, error) {
	if len(seeds) >= MaxSeeds {
		return Pubkey{}, 0, fmt.Errorf("%w: %d seeds leaves no room for a bump", ErrInvalidSeeds, len(seeds))
	}

	withBump := make([][]byte, len(seeds)+1)
	copy(withBump, seeds)

	for bump := 255; bump >= 0; bump-- {
		withBump[len(seeds)] = []byte{byte(bump)}
		pk, err := CreateProgramAddress(withBump, program)
		if err == nil {
			return pk, uint8(bump), nil
		}
		if !errors.Is(err, ErrOnCurve) {
			return Pubkey{}, 0, err
		}
	}
	return Pubkey{}, 0, ErrNoViableBump
}

func isOnCurve(point []byte) bool {
	if len(point) != PubkeyLength {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(point)
	return err == nil
}
