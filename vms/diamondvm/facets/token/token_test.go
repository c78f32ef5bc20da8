// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package token

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/diamondvm/vms/diamondvm/abi"
	"github.com/luxfi/diamondvm/vms/diamondvm/diamond"
	"github.com/luxfi/diamondvm/vms/diamondvm/diamond/diamondtest"
)

func newTestToken(t *testing.T, config Config) (*diamondtest.Harness, *Facet) {
	t.Helper()

	h := diamondtest.New(t)
	f := New(h.Partition(Partition), config)
	h.Install(f)
	return h, f
}

func initialize(t *testing.T, h *diamondtest.Harness, holder common.Address) {
	t.Helper()

	h.MustCall(diamondtest.Owner, "initializeGovernanceToken(string,string,address)",
		abi.String("GDAO"), abi.String("GDAO"), abi.Address(holder))
}

func balanceOf(t *testing.T, h *diamondtest.Harness, addr common.Address) *uint256.Int {
	t.Helper()

	dec := h.MustCall(diamondtest.Alice, "balanceOf(address)", abi.Address(addr))
	balance := dec.Uint256()
	require.NoError(t, dec.Err())
	return balance
}

func TestInitializeMintsOnce(t *testing.T) {
	require := require.New(t)

	h, f := newTestToken(t, DefaultConfig())
	initialize(t, h, diamondtest.Owner)

	require.Equal(diamondtest.Tokens(1000), balanceOf(t, h, diamondtest.Owner))

	_, err := h.Call(diamondtest.Owner, "initializeGovernanceToken(string,string,address)",
		abi.String("GDAO"), abi.String("GDAO"), abi.Address(diamondtest.Owner))
	require.ErrorIs(err, ErrAlreadyInitialized)
	require.Equal(diamondtest.Tokens(1000), balanceOf(t, h, diamondtest.Owner))

	supply, err := f.TotalSupply()
	require.NoError(err)
	require.Equal(diamondtest.Tokens(1000), supply)

	dec := h.MustCall(diamondtest.Alice, "name()")
	require.Equal("GDAO", dec.Str())
	dec = h.MustCall(diamondtest.Alice, "symbol()")
	require.Equal("GDAO", dec.Str())
	dec = h.MustCall(diamondtest.Alice, "decimals()")
	require.Equal(uint8(18), dec.Uint8())
	dec = h.MustCall(diamondtest.Alice, "getInitialSupply()")
	require.Equal(diamondtest.Tokens(1000), dec.Uint256())
	require.NoError(dec.Err())
}

func TestInitializeRequiresAuthority(t *testing.T) {
	require := require.New(t)

	h, _ := newTestToken(t, DefaultConfig())
	_, err := h.Call(diamondtest.Alice, "initializeGovernanceToken(string,string,address)",
		abi.String("GDAO"), abi.String("GDAO"), abi.Address(diamondtest.Alice))
	require.ErrorIs(err, diamond.ErrUnauthorized)
	require.True(balanceOf(t, h, diamondtest.Alice).IsZero())
}

func TestAddMinterIsIdempotent(t *testing.T) {
	require := require.New(t)

	h, f := newTestToken(t, DefaultConfig())

	result, err := h.Call(diamondtest.Owner, "addMinter(address)", abi.Address(diamondtest.Alice))
	require.NoError(err)
	require.Len(result.Events, 1)
	before := h.Snapshot()

	result, err = h.Call(diamondtest.Owner, "addMinter(address)", abi.Address(diamondtest.Alice))
	require.NoError(err)
	require.Empty(result.Events)
	require.Equal(before, h.Snapshot())

	minter, err := f.IsMinter(diamondtest.Alice)
	require.NoError(err)
	require.True(minter)

	dec := h.MustCall(diamondtest.Bob, "isMinter(address)", abi.Address(diamondtest.Bob))
	require.False(dec.Bool())

	_, err = h.Call(diamondtest.Alice, "addMinter(address)", abi.Address(diamondtest.Bob))
	require.ErrorIs(err, diamond.ErrUnauthorized)

	_, err = h.Call(diamondtest.Owner, "removeMinter(address)", abi.Address(diamondtest.Alice))
	require.NoError(err)
	minter, err = f.IsMinter(diamondtest.Alice)
	require.NoError(err)
	require.False(minter)
}

func TestMint(t *testing.T) {
	require := require.New(t)

	config := Config{
		InitialSupply: diamondtest.Tokens(1000),
		MaxSupply:     diamondtest.Tokens(1500),
	}
	h, f := newTestToken(t, config)

	_, err := h.Call(diamondtest.Owner, "mint(address,uint256)", abi.Address(diamondtest.Bob), abi.Uint256(diamondtest.Tokens(1)))
	require.ErrorIs(err, ErrNotInitialized)

	initialize(t, h, diamondtest.Owner)

	// The owner is not a minter by default.
	_, err = h.Call(diamondtest.Owner, "mint(address,uint256)", abi.Address(diamondtest.Bob), abi.Uint256(diamondtest.Tokens(1)))
	require.ErrorIs(err, diamond.ErrUnauthorized)

	h.MustCall(diamondtest.Owner, "addMinter(address)", abi.Address(diamondtest.Alice))
	result, err := h.Call(diamondtest.Alice, "mint(address,uint256)", abi.Address(diamondtest.Bob), abi.Uint256(diamondtest.Tokens(500)))
	require.NoError(err)
	require.Equal([]diamond.Event{{
		Facet: diamond.FacetAddress(Name),
		Name:  "Transfer",
		Data:  abi.Pack(abi.Address(common.Address{}), abi.Address(diamondtest.Bob), abi.Uint256(diamondtest.Tokens(500))),
	}}, result.Events)
	require.Equal(diamondtest.Tokens(500), balanceOf(t, h, diamondtest.Bob))

	// Exactly at the cap; one more wei exceeds it.
	_, err = h.Call(diamondtest.Alice, "mint(address,uint256)", abi.Address(diamondtest.Bob), abi.Uint256(uint256.NewInt(1)))
	require.ErrorIs(err, ErrSupplyCapExceeded)

	huge := new(uint256.Int).SetAllOne()
	_, err = h.Call(diamondtest.Alice, "mint(address,uint256)", abi.Address(diamondtest.Bob), abi.Uint256(huge))
	require.ErrorIs(err, ErrSupplyCapExceeded)

	_, err = h.Call(diamondtest.Alice, "mint(address,uint256)", abi.Address(common.Address{}), abi.Uint256(uint256.NewInt(0)))
	require.ErrorIs(err, ErrInvalidRecipient)

	supply, err := f.TotalSupply()
	require.NoError(err)
	require.Equal(diamondtest.Tokens(1500), supply)
}

func TestBurn(t *testing.T) {
	require := require.New(t)

	h, f := newTestToken(t, DefaultConfig())
	initialize(t, h, diamondtest.Alice)

	before := h.Snapshot()
	_, err := h.Call(diamondtest.Alice, "burn(uint256)", abi.Uint256(diamondtest.Tokens(1001)))
	require.ErrorIs(err, ErrInsufficientBalance)
	require.Equal(before, h.Snapshot())

	h.MustCall(diamondtest.Alice, "burn(uint256)", abi.Uint256(diamondtest.Tokens(400)))
	require.Equal(diamondtest.Tokens(600), balanceOf(t, h, diamondtest.Alice))

	supply, err := f.TotalSupply()
	require.NoError(err)
	require.Equal(diamondtest.Tokens(600), supply)

	_, err = h.Call(diamondtest.Bob, "burn(uint256)", abi.Uint256(uint256.NewInt(1)))
	require.ErrorIs(err, ErrInsufficientBalance)
}

func TestTransfer(t *testing.T) {
	require := require.New(t)

	h, _ := newTestToken(t, DefaultConfig())
	initialize(t, h, diamondtest.Alice)

	dec := h.MustCall(diamondtest.Alice, "transfer(address,uint256)", abi.Address(diamondtest.Bob), abi.Uint256(diamondtest.Tokens(250)))
	require.True(dec.Bool())
	require.Equal(diamondtest.Tokens(750), balanceOf(t, h, diamondtest.Alice))
	require.Equal(diamondtest.Tokens(250), balanceOf(t, h, diamondtest.Bob))

	h.MustCall(diamondtest.Bob, "transfer(address,uint256)", abi.Address(diamondtest.Bob), abi.Uint256(diamondtest.Tokens(250)))
	require.Equal(diamondtest.Tokens(250), balanceOf(t, h, diamondtest.Bob))

	_, err := h.Call(diamondtest.Bob, "transfer(address,uint256)", abi.Address(diamondtest.Carol), abi.Uint256(diamondtest.Tokens(251)))
	require.ErrorIs(err, ErrInsufficientBalance)

	_, err = h.Call(diamondtest.Bob, "transfer(address,uint256)", abi.Address(common.Address{}), abi.Uint256(diamondtest.Tokens(1)))
	require.ErrorIs(err, ErrInvalidRecipient)

	dec = h.MustCall(diamondtest.Carol, "getVotingPower(address)", abi.Address(diamondtest.Bob))
	require.Equal(diamondtest.Tokens(250), dec.Uint256())
	require.NoError(dec.Err())
}

func TestMalformedArguments(t *testing.T) {
	require := require.New(t)

	h, _ := newTestToken(t, DefaultConfig())
	_, err := h.Diamond.Dispatch(diamond.Call{
		Caller: diamondtest.Alice,
		Data:   abi.PackCall("balanceOf(address)"),
	})
	require.ErrorIs(err, diamond.ErrInvalidCalldata)
}
