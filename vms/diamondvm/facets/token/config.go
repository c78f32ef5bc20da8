// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package token

import (
	"github.com/holiman/uint256"

	"github.com/luxfi/diamondvm/utils/units"
)

// Config holds the supply parameters of the token.
type Config struct {
	// InitialSupply is minted to the initial holder on initialization.
	InitialSupply *uint256.Int
	// MaxSupply caps the total supply.
	MaxSupply *uint256.Int
}

// DefaultConfig mints 1,000 tokens up front under a 50,000,000 token cap.
func DefaultConfig() Config {
	return Config{
		InitialSupply: units.Tokens(1_000),
		MaxSupply:     units.Tokens(50_000_000),
	}
}
