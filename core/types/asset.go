package types

import (
	"fmt"
	"strings"

	"github.com/holiman/uint256"
)

// AssetKind tags whether an AssetInfo refers to a chain-native denom or an
// opaque token handle (an LP share, a wrapped collateral token, ...).
type AssetKind uint8

const (
	// KindNative identifies a native denom addressed by string.
	KindNative AssetKind = iota
	// KindToken identifies a token handle addressed by opaque bytes.
	KindToken
)

// AssetInfo identifies an asset without carrying an amount. Equality is
// structural: two AssetInfo values are the same asset iff their Kind and
// underlying identifier match exactly.
type AssetInfo struct {
	Kind   AssetKind
	Native string
	Token  []byte
}

// NewNativeAsset constructs an AssetInfo for a native denom.
func NewNativeAsset(denom string) AssetInfo {
	return AssetInfo{Kind: KindNative, Native: strings.TrimSpace(denom)}
}

// NewTokenAsset constructs an AssetInfo for an opaque token handle.
func NewTokenAsset(handle []byte) AssetInfo {
	return AssetInfo{Kind: KindToken, Token: append([]byte(nil), handle...)}
}

// Equal reports whether two AssetInfo values identify the same asset.
func (a AssetInfo) Equal(other AssetInfo) bool {
	if a.Kind != other.Kind {
		return false
	}
	if a.Kind == KindNative {
		return a.Native == other.Native
	}
	return string(a.Token) == string(other.Token)
}

// IsNative reports whether the asset is a native denom.
func (a AssetInfo) IsNative() bool { return a.Kind == KindNative }

// Key returns a canonical string usable as a map key or storage key
// fragment. Native denoms are prefixed "native:"; tokens "token:" followed
// by their hex-ish byte dump, so the two address spaces never collide.
func (a AssetInfo) Key() string {
	if a.Kind == KindNative {
		return "native:" + a.Native
	}
	return fmt.Sprintf("token:%x", a.Token)
}

func (a AssetInfo) String() string {
	if a.Kind == KindNative {
		return a.Native
	}
	return fmt.Sprintf("token(%x)", a.Token)
}

// Asset pairs an AssetInfo with a concrete amount. Amounts are non-negative
// 128-bit-scale integers backed by uint256.Int to match the data model in
// spec.md §3; callers must never observe a negative amount, division by
// zero is a fatal programming error surfaced via ErrDivideByZero rather
// than silently returning zero.
type Asset struct {
	Info   AssetInfo
	Amount *uint256.Int
}

// NewAsset constructs an Asset from a uint64 amount, convenient for tests
// and configuration literals.
func NewAsset(info AssetInfo, amount uint64) Asset {
	return Asset{Info: info, Amount: uint256.NewInt(amount)}
}

// Clone returns a deep copy so callers may mutate the amount without
// aliasing shared state.
func (a Asset) Clone() Asset {
	clone := Asset{Info: a.Info}
	if a.Amount != nil {
		clone.Amount = new(uint256.Int).Set(a.Amount)
	} else {
		clone.Amount = new(uint256.Int)
	}
	if a.Info.Kind == KindToken {
		clone.Info.Token = append([]byte(nil), a.Info.Token...)
	}
	return clone
}

// IsZero reports whether the asset carries a zero amount.
func (a Asset) IsZero() bool {
	return a.Amount == nil || a.Amount.IsZero()
}
