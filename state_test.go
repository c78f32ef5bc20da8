// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package vm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStateString(t *testing.T) {
	require := require.New(t)

	require.Equal("Unknown", Unknown.String())
	require.Equal("Bootstrapping", Bootstrapping.String())
	require.Equal("NormalOp", NormalOp.String())
	require.Equal("Unknown", State(7).String())
}
