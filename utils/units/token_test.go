// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package units

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

func TestTokens(t *testing.T) {
	require := require.New(t)

	require.Equal(uint64(1_000_000_000_000_000_000), Unit)
	require.Equal(uint256.MustFromDecimal("1000000000000000000000"), Tokens(1000))
	require.Equal(uint256.MustFromDecimal("50000000000000000000000000"), Tokens(50_000_000))
	require.True(Tokens(0).IsZero())
}
