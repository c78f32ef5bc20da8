// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package diamond

import (
	"testing"

	"github.com/luxfi/geth/common"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/diamondvm/vms/diamondvm/abi"
	"github.com/luxfi/diamondvm/vms/diamondvm/selector"
)

func (env *testEnv) installLoupe(t *testing.T) {
	t.Helper()

	_, err := env.diamond.Cut(owner, []FacetCut{
		{
			FacetAddress: FacetAddress(LoupeFacetName),
			Action:       Add,
			Selectors:    IDiamondLoupe.Selectors(),
		},
		{
			FacetAddress: FacetAddress(LoupeFacetName),
			Action:       Add,
			Selectors:    IERC165.Selectors(),
		},
		{
			FacetAddress: FacetAddress(OwnershipFacetName),
			Action:       Add,
			Selectors:    IERC173.Selectors(),
		},
	}, common.Address{}, nil)
	require.NoError(t, err)
}

func TestStandardInterfaceIDs(t *testing.T) {
	tests := []struct {
		iface selector.Interface
		id    string
	}{
		{iface: IERC165, id: "0x01ffc9a7"},
		{iface: IDiamondCut, id: "0x1f931c1c"},
		{iface: IDiamondLoupe, id: "0x48e3885f"},
		{iface: IERC173, id: "0x7f5828d0"},
	}
	for _, test := range tests {
		t.Run(test.iface.Name, func(t *testing.T) {
			require.Equal(t, test.id, test.iface.ID().String())
		})
	}
}

func TestSupportsInterface(t *testing.T) {
	require := require.New(t)

	env := newTestEnv(t)

	supported, err := env.diamond.SupportsInterface(IDiamondCut.ID())
	require.NoError(err)
	require.True(supported)

	supported, err = env.diamond.SupportsInterface(IDiamondLoupe.ID())
	require.NoError(err)
	require.False(supported)

	env.installLoupe(t)
	for _, iface := range []selector.Interface{IERC165, IDiamondCut, IDiamondLoupe, IERC173} {
		supported, err := env.diamond.SupportsInterface(iface.ID())
		require.NoError(err)
		require.True(supported, iface.Name)
	}

	supported, err = env.diamond.SupportsInterface(selector.Invalid)
	require.NoError(err)
	require.False(supported)

	// Through dispatch, as any consumer would ask.
	dec := abi.NewDecoder(mustCall(t, env, "supportsInterface(bytes4)", abi.Bytes4(IERC173.ID())))
	require.True(dec.Bool())
	require.NoError(dec.Err())
}

func TestSupportsInterfaceRequiresEverySelector(t *testing.T) {
	require := require.New(t)

	env := newTestEnv(t)
	iface := selector.NewInterface("ICounter", "increment()", "get()")

	env.install(t, "increment()")
	supported, err := env.diamond.SupportsInterface(iface.ID())
	require.NoError(err)
	require.False(supported)

	// get() served by a different facet still completes the interface.
	other, err := env.state.Partition("other")
	require.NoError(err)
	otherAddr, err := env.diamond.Deploy(&counterFacet{name: "OtherCounterFacet", db: other})
	require.NoError(err)
	_, err = env.diamond.Cut(owner, []FacetCut{{
		FacetAddress: otherAddr,
		Action:       Add,
		Selectors:    sels("get()"),
	}}, common.Address{}, nil)
	require.NoError(err)

	supported, err = env.diamond.SupportsInterface(iface.ID())
	require.NoError(err)
	require.True(supported)
}

func mustCall(t *testing.T, env *testEnv, signature string, args ...abi.Value) []byte {
	t.Helper()

	result, err := env.call(stranger, signature, args...)
	require.NoError(t, err)
	return result.ReturnData
}

func TestLoupeFunctions(t *testing.T) {
	require := require.New(t)

	env := newTestEnv(t)
	env.installLoupe(t)
	env.install(t, "increment()", "get()")

	cutAddr := FacetAddress(CutFacetName)
	loupeAddr := FacetAddress(LoupeFacetName)
	ownershipAddr := FacetAddress(OwnershipFacetName)

	dec := abi.NewDecoder(mustCall(t, env, FacetAddressesSignature))
	require.Equal([]common.Address{cutAddr, loupeAddr, ownershipAddr, env.addr}, dec.Addresses())
	require.NoError(dec.Err())

	dec = abi.NewDecoder(mustCall(t, env, FacetFunctionSelectorsSignature, abi.Address(env.addr)))
	require.Equal(sels("increment()", "get()"), dec.Selectors())
	require.NoError(dec.Err())

	dec = abi.NewDecoder(mustCall(t, env, FacetAddressSignature, abi.Bytes4(selector.FromSignature("get()"))))
	require.Equal(env.addr, dec.Address())
	require.NoError(dec.Err())

	dec = abi.NewDecoder(mustCall(t, env, FacetAddressSignature, abi.Bytes4(selector.FromSignature("burn(uint256)"))))
	require.Equal(common.Address{}, dec.Address())
	require.NoError(dec.Err())

	dec = abi.NewDecoder(mustCall(t, env, FacetsSignature))
	elems, n := dec.Array()
	require.Equal(4, n)
	var got []FacetInfo
	for range n {
		tuple := elems.Tuple()
		got = append(got, FacetInfo{
			FacetAddress: tuple.Address(),
			Selectors:    tuple.Selectors(),
		})
		require.NoError(tuple.Err())
	}
	require.NoError(elems.Err())

	want, err := env.diamond.Facets()
	require.NoError(err)
	require.Equal(want, got)
}

func TestTransferOwnership(t *testing.T) {
	require := require.New(t)

	env := newTestEnv(t)
	env.installLoupe(t)

	_, err := env.call(stranger, TransferOwnershipSignature, abi.Address(stranger))
	require.ErrorIs(err, ErrUnauthorized)

	result, err := env.call(owner, TransferOwnershipSignature, abi.Address(stranger))
	require.NoError(err)
	require.Equal([]Event{{
		Facet: FacetAddress(OwnershipFacetName),
		Name:  "OwnershipTransferred",
		Data:  abi.Pack(abi.Address(owner), abi.Address(stranger)),
	}}, result.Events)

	dec := abi.NewDecoder(mustCall(t, env, OwnerSignature))
	require.Equal(stranger, dec.Address())
	require.NoError(dec.Err())

	// Only the new owner may cut.
	_, err = env.diamond.Cut(owner, []FacetCut{{
		FacetAddress: env.addr,
		Action:       Add,
		Selectors:    sels("get()"),
	}}, common.Address{}, nil)
	require.ErrorIs(err, ErrUnauthorized)

	_, err = env.diamond.Cut(stranger, []FacetCut{{
		FacetAddress: env.addr,
		Action:       Add,
		Selectors:    sels("get()"),
	}}, common.Address{}, nil)
	require.NoError(err)
}

func TestLoupeMalformedArguments(t *testing.T) {
	require := require.New(t)

	env := newTestEnv(t)
	env.installLoupe(t)

	_, err := env.diamond.Dispatch(Call{
		Caller: stranger,
		Data:   selector.FromSignature(FacetAddressSignature).Bytes(),
	})
	require.ErrorIs(err, ErrInvalidCalldata)
}
