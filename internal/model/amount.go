package model

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// Amount 将 uint64 金额转换为数据库 decimal(20,0)
func Amount(v uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(v), 0)
}

// Uint64 将数据库金额还原为 uint64
func Uint64(d decimal.Decimal) (uint64, error) {
	if d.Sign() < 0 || !d.Equal(d.Truncate(0)) {
		return 0, fmt.Errorf("amount %s is not a non-negative integer", d.String())
	}
	b := d.BigInt()
	if !b.IsUint64() {
		return 0, fmt.Errorf("amount %s overflows uint64", d.String())
	}
	return b.Uint64(), nil
}
