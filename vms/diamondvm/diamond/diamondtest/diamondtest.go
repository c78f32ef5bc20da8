// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package diamondtest builds in-memory diamonds for facet tests.
package diamondtest

import (
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/luxfi/database"
	"github.com/luxfi/database/memdb"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/log"
	"github.com/luxfi/metric"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/diamondvm/utils/timer/mockable"
	"github.com/luxfi/diamondvm/utils/units"
	"github.com/luxfi/diamondvm/vms/diamondvm/abi"
	"github.com/luxfi/diamondvm/vms/diamondvm/diamond"
	"github.com/luxfi/diamondvm/vms/diamondvm/metrics"
	"github.com/luxfi/diamondvm/vms/diamondvm/selector"
	"github.com/luxfi/diamondvm/vms/diamondvm/state"
)

var (
	Owner = common.HexToAddress("0x0000000000000000000000000000000000000a11")
	Alice = common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	Bob   = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
	Carol = common.HexToAddress("0x00000000000000000000000000000000000ca201")

	// GenesisTime is the clock's initial time.
	GenesisTime = time.Unix(1_700_000_000, 0)
)

// Harness is a diamond over an in-memory database with a fake clock.
type Harness struct {
	t testing.TB

	BaseDB   database.Database
	State    *state.State
	Clock    *mockable.Clock
	Registry metric.Registry
	Diamond  *diamond.Diamond
}

// New returns a harness whose diamond is owned by Owner and only routes
// diamondCut.
func New(t testing.TB) *Harness {
	t.Helper()
	require := require.New(t)

	h := &Harness{
		t:        t,
		BaseDB:   memdb.New(),
		Clock:    &mockable.Clock{},
		Registry: metric.NewRegistry(),
	}
	h.Clock.Set(GenesisTime)
	h.State = state.New(h.BaseDB)

	m, err := metrics.New(h.Registry)
	require.NoError(err)
	h.Diamond, err = diamond.New(diamond.Config{
		Log:     log.NoLog{},
		State:   h.State,
		Clock:   h.Clock,
		Metrics: m,
		Owner:   Owner,
	})
	require.NoError(err)
	return h
}

// Partition claims a storage partition for a facet under test.
func (h *Harness) Partition(name string) database.Database {
	h.t.Helper()

	db, err := h.State.Partition(name)
	require.NoError(h.t, err)
	return db
}

// Install deploys f and routes all of its functions to it.
func (h *Harness) Install(f diamond.Facet) common.Address {
	h.t.Helper()
	require := require.New(h.t)

	addr, err := h.Diamond.Deploy(f)
	require.NoError(err)
	_, err = h.Diamond.Cut(Owner, []diamond.FacetCut{{
		FacetAddress: addr,
		Action:       diamond.Add,
		Selectors:    diamond.Selectors(f),
	}}, common.Address{}, nil)
	require.NoError(err)
	return addr
}

// InstallLoupe routes the built-in loupe and ownership facets.
func (h *Harness) InstallLoupe() {
	h.t.Helper()

	_, err := h.Diamond.Cut(Owner, []diamond.FacetCut{
		{
			FacetAddress: diamond.FacetAddress(diamond.LoupeFacetName),
			Action:       diamond.Add,
			Selectors: []selector.Selector{
				selector.FromSignature(diamond.FacetsSignature),
				selector.FromSignature(diamond.FacetFunctionSelectorsSignature),
				selector.FromSignature(diamond.FacetAddressesSignature),
				selector.FromSignature(diamond.FacetAddressSignature),
				selector.FromSignature(diamond.SupportsInterfaceSignature),
			},
		},
		{
			FacetAddress: diamond.FacetAddress(diamond.OwnershipFacetName),
			Action:       diamond.Add,
			Selectors: []selector.Selector{
				selector.FromSignature(diamond.OwnerSignature),
				selector.FromSignature(diamond.TransferOwnershipSignature),
			},
		},
	}, common.Address{}, nil)
	require.NoError(h.t, err)
}

// Call dispatches signature(args...) from caller.
func (h *Harness) Call(caller common.Address, signature string, args ...abi.Value) (*diamond.Result, error) {
	return h.CallValue(caller, nil, signature, args...)
}

// CallValue dispatches signature(args...) from caller, attaching value.
func (h *Harness) CallValue(caller common.Address, value *uint256.Int, signature string, args ...abi.Value) (*diamond.Result, error) {
	return h.Diamond.Dispatch(diamond.Call{
		Caller: caller,
		Value:  value,
		Data:   abi.PackCall(signature, args...),
	})
}

// MustCall dispatches a call that must succeed and returns a decoder over its
// return data.
func (h *Harness) MustCall(caller common.Address, signature string, args ...abi.Value) *abi.Decoder {
	h.t.Helper()

	result, err := h.Call(caller, signature, args...)
	require.NoError(h.t, err, signature)
	return abi.NewDecoder(result.ReturnData)
}

// Snapshot returns a copy of every committed key and value.
func (h *Harness) Snapshot() map[string][]byte {
	h.t.Helper()

	it := h.BaseDB.NewIterator()
	defer it.Release()

	snapshot := make(map[string][]byte)
	for it.Next() {
		snapshot[string(it.Key())] = append([]byte(nil), it.Value()...)
	}
	require.NoError(h.t, it.Error())
	return snapshot
}

// Tokens returns n whole tokens of an 18 decimal token.
func Tokens(n uint64) *uint256.Int {
	return units.Tokens(n)
}
