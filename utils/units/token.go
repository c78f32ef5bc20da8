// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package units

import "github.com/holiman/uint256"

// Denominations of an 18 decimal governance token
const (
	Wei       uint64 = 1
	KiloWei   uint64 = 1000 * Wei
	MegaWei   uint64 = 1000 * KiloWei
	GigaWei   uint64 = 1000 * MegaWei
	MicroUnit uint64 = 1000 * GigaWei
	MilliUnit uint64 = 1000 * MicroUnit
	Unit      uint64 = 1000 * MilliUnit // 1 token = 10^18 wei
)

// Tokens returns n whole tokens in wei.
func Tokens(n uint64) *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(n), uint256.NewInt(Unit))
}
