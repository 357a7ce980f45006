package poolregistry

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
)

// ErrIdenticalCurrencies is returned when both sides of a pair are the same currency.
var ErrIdenticalCurrencies = errors.New("pool currencies must differ")

// --- PoolID Implementation ---

// PoolID is the 32-byte identifier of a pool: keccak256 of its ABI-encoded PoolKey.
//
// A pool manager stores pool state under this hash, so two keys that differ only
// in currency order resolve to two different pools. PoolID is only meaningful for
// a canonical PoolKey.
type PoolID [32]byte

// Bytes returns the raw underlying byte slice.
func (p PoolID) Bytes() []byte {
	return p[:]
}

// String returns the hex string representation of the id, "0x"-prefixed.
func (p PoolID) String() string {
	return "0x" + hex.EncodeToString(p[:])
}

// MarshalJSON serializes the id as a hex string.
func (p PoolID) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// UnmarshalJSON parses a hex string into the id.
//
// Input:
//   - Hex string of even length, at most 32 bytes
//   - Optional "0x" prefix
//
// Shorter inputs are copied into the first N bytes and the rest is zeroed.
func (p *PoolID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	s = strings.TrimPrefix(s, "0x")

	b, err := hex.DecodeString(s)
	if err != nil {
		return err
	}
	if len(b) > 32 {
		return errors.New("pool id too long")
	}

	*p = PoolID{}
	copy(p[:], b)

	return nil
}

// --- PoolKey Implementation ---

// PoolKey is the tuple a v4-style pool manager identifies a pool by.
//
// Invariant: Currency0 < Currency1 under byte-lexicographic order of the 20-byte
// addresses. Supplying the pair in the other order does not fail on chain; it
// names a different pool. Build keys with Canonicalize.
type PoolKey struct {
	Currency0   common.Address `json:"currency0"`
	Currency1   common.Address `json:"currency1"`
	Fee         uint32         `json:"fee"`
	TickSpacing int32          `json:"tick_spacing"`
	Hooks       common.Address `json:"hooks"`
}

// SortCurrencies returns a and b ordered so that the smaller address comes first.
// Comparing raw bytes is equivalent to comparing the lower-cased hex strings.
func SortCurrencies(a, b common.Address) (common.Address, common.Address) {
	if bytes.Compare(a[:], b[:]) > 0 {
		return b, a
	}
	return a, b
}

// Canonicalize builds the PoolKey for the unordered pair {a, b}. The result does
// not depend on argument order: Canonicalize(a, b, ...) == Canonicalize(b, a, ...).
func Canonicalize(a, b common.Address, fee uint32, tickSpacing int32, hooks common.Address) (PoolKey, error) {
	if a == b {
		return PoolKey{}, fmt.Errorf("%w: %s", ErrIdenticalCurrencies, a.Hex())
	}
	c0, c1 := SortCurrencies(a, b)
	return PoolKey{
		Currency0:   c0,
		Currency1:   c1,
		Fee:         fee,
		TickSpacing: tickSpacing,
		Hooks:       hooks,
	}, nil
}

// IsCanonical reports whether the key satisfies the currency ordering invariant.
func (k PoolKey) IsCanonical() bool {
	return bytes.Compare(k.Currency0[:], k.Currency1[:]) < 0
}

// Canonical returns the key with its currencies in canonical order. A canonical
// key is returned unchanged.
func (k PoolKey) Canonical() PoolKey {
	k.Currency0, k.Currency1 = SortCurrencies(k.Currency0, k.Currency1)
	return k
}

// ID computes keccak256(abi.encode(currency0, currency1, fee, tickSpacing, hooks)).
//
// Layout: five 32-byte words; addresses and the uint24 fee are left-padded with
// zeros, the int24 tick spacing is sign-extended (two's complement).
func (k PoolKey) ID() PoolID {
	enc := make([]byte, 0, 5*32)
	enc = append(enc, common.LeftPadBytes(k.Currency0[:], 32)...)
	enc = append(enc, common.LeftPadBytes(k.Currency1[:], 32)...)
	enc = append(enc, math.U256Bytes(new(big.Int).SetUint64(uint64(k.Fee)))...)
	enc = append(enc, math.U256Bytes(big.NewInt(int64(k.TickSpacing)))...)
	enc = append(enc, common.LeftPadBytes(k.Hooks[:], 32)...)
	return PoolID(crypto.Keccak256Hash(enc))
}

func (k PoolKey) String() string {
	return fmt.Sprintf("PoolKey{currency0=%s currency1=%s fee=%d tickSpacing=%d hooks=%s}",
		k.Currency0.Hex(), k.Currency1.Hex(), k.Fee, k.TickSpacing, k.Hooks.Hex())
}
