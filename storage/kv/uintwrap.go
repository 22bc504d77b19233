package kv

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
)

// uintWrap round-trips a *uint256.Int through its decimal string form,
// since the type carries no exported fields for the stdlib json package
// to walk directly.
type uintWrap struct {
	v *uint256.Int
}

func wrapUint(v *uint256.Int) *uintWrap {
	return &uintWrap{v: v}
}

func (w *uintWrap) unwrap() *uint256.Int {
	if w == nil || w.v == nil {
		return new(uint256.Int)
	}
	return w.v
}

func (w *uintWrap) MarshalJSON() ([]byte, error) {
	if w == nil || w.v == nil {
		return json.Marshal("0")
	}
	return json.Marshal(w.v.String())
}

func (w *uintWrap) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	big, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return fmt.Errorf("kv: invalid uint256 decimal string %q", s)
	}
	v, overflow := uint256.FromBig(big)
	if overflow {
		return fmt.Errorf("kv: uint256 overflow decoding %q", s)
	}
	w.v = v
	return nil
}
