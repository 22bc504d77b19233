package server

import (
	"fmt"
	"math/big"
	"strconv"

	"github.com/holiman/uint256"
)

func decodeUint64(s string) (uint64, error) {
	return strconv.ParseUint(s, 10, 64)
}

func decodeUint256(s string) (*uint256.Int, error) {
	big, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("invalid integer %q", s)
	}
	v, overflow := uint256.FromBig(big)
	if overflow {
		return nil, fmt.Errorf("integer overflow decoding %q", s)
	}
	return v, nil
}
