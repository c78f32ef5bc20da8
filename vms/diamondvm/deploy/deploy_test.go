// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package deploy

import (
	"os"
	"testing"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/log"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/diamondvm/vms/diamondvm/abi"
	"github.com/luxfi/diamondvm/vms/diamondvm/diamond"
	"github.com/luxfi/diamondvm/vms/diamondvm/diamond/diamondtest"
	"github.com/luxfi/diamondvm/vms/diamondvm/facets/governance"
	"github.com/luxfi/diamondvm/vms/diamondvm/facets/token"
	"github.com/luxfi/diamondvm/vms/diamondvm/facets/treasury"
	"github.com/luxfi/diamondvm/vms/diamondvm/facets/value"
	"github.com/luxfi/diamondvm/vms/diamondvm/facets/voting"
	"github.com/luxfi/diamondvm/vms/diamondvm/selector"
	"github.com/luxfi/diamondvm/vms/diamondvm/state"
)

func loadManifest(t *testing.T) *Manifest {
	t.Helper()
	require := require.New(t)

	b, err := os.ReadFile("testdata/gnusdaodiamond.json")
	require.NoError(err)
	m, err := ParseManifest(b)
	require.NoError(err)
	return m
}

func testConfig(s *state.State, d *diamond.Diamond) Config {
	return Config{
		Log:        log.NoLog{},
		State:      s,
		Diamond:    d,
		Token:      token.DefaultConfig(),
		Governance: governance.DefaultConfig(),
	}
}

func TestParseManifest(t *testing.T) {
	require := require.New(t)

	m := loadManifest(t)
	require.Equal("GNUSDAODiamond", m.DiamondName)
	require.Equal(diamondtest.Owner, m.Owner)
	require.Equal(Names(), m.Order())
	require.Equal("GDAO", m.Init.TokenSymbol)
}

func TestParseManifestInvalid(t *testing.T) {
	tests := []struct {
		name     string
		manifest string
		wantErr  error
	}{
		{
			name:     "malformed",
			manifest: `{"owner": `,
		},
		{
			name:     "missing owner",
			manifest: `{"facets": {"GNUSDAOValueFacet": {}}}`,
			wantErr:  errMissingOwner,
		},
		{
			name:     "no facets",
			manifest: `{"owner": "0x0000000000000000000000000000000000000a11"}`,
			wantErr:  errNoFacets,
		},
		{
			name: "init without symbol",
			manifest: `{
				"owner": "0x0000000000000000000000000000000000000a11",
				"facets": {"GovernanceTokenFacet": {}},
				"init": {"tokenName": "GDAO"}
			}`,
			wantErr: errMissingTokens,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := ParseManifest([]byte(test.manifest))
			require.Error(t, err)
			if test.wantErr != nil {
				require.ErrorIs(t, err, test.wantErr)
			}
		})
	}
}

func TestManifestOrderBreaksTiesByName(t *testing.T) {
	m := &Manifest{Facets: map[string]FacetConfig{
		"b": {Priority: 1},
		"a": {Priority: 1},
		"c": {Priority: 0},
	}}
	require.Equal(t, []string{"c", "a", "b"}, m.Order())
}

func TestDeployInstallsManifest(t *testing.T) {
	require := require.New(t)

	h := diamondtest.New(t)
	dep, err := Deploy(testConfig(h.State, h.Diamond), loadManifest(t))
	require.NoError(err)
	require.True(dep.Installed)

	facets, err := h.Diamond.Facets()
	require.NoError(err)
	addrs := make([]string, len(facets))
	for i, f := range facets {
		addrs[i] = f.FacetAddress.Hex()
	}
	want := make([]string, 0, len(Names()))
	for _, name := range Names() {
		want = append(want, diamond.FacetAddress(name).Hex())
	}
	require.Equal(want, addrs)

	for _, iface := range []selector.Interface{
		diamond.IERC165,
		diamond.IDiamondCut,
		diamond.IDiamondLoupe,
		diamond.IERC173,
		token.IGovernanceToken,
		governance.IGovernance,
		voting.IQuadraticVoting,
		treasury.ITreasury,
	} {
		ok, err := h.Diamond.SupportsInterface(iface.ID())
		require.NoError(err)
		require.True(ok, iface.Name)
	}

	balance, err := dep.Token.BalanceOf(diamondtest.Owner)
	require.NoError(err)
	require.Equal(token.DefaultConfig().InitialSupply, balance)
	minter, err := dep.Token.IsMinter(diamondtest.Owner)
	require.NoError(err)
	require.True(minter)

	config, err := dep.Governance.VotingConfig()
	require.NoError(err)
	require.Equal(diamondtest.Owner, config.Admin)

	dec := h.MustCall(diamondtest.Alice, "getTokenSymbol()")
	require.Equal(value.TokenSymbol, dec.Str())
	dec = h.MustCall(diamondtest.Alice, "symbol()")
	require.Equal("GDAO", dec.Str())
}

func TestDeployOnlyInstallsOnce(t *testing.T) {
	require := require.New(t)

	h := diamondtest.New(t)
	_, err := Deploy(testConfig(h.State, h.Diamond), loadManifest(t))
	require.NoError(err)
	before := h.Snapshot()

	s := state.New(h.BaseDB)
	d, err := diamond.New(diamond.Config{
		State: s,
		Clock: h.Clock,
	})
	require.NoError(err)

	m := loadManifest(t)
	m.Facets = map[string]FacetConfig{value.Name: {}}
	dep, err := Deploy(testConfig(s, d), m)
	require.NoError(err)
	require.False(dep.Installed)
	require.Equal(before, h.Snapshot())

	// Code is deployed again, so existing routes keep working.
	_, err = d.Dispatch(diamond.Call{
		Caller: diamondtest.Alice,
		Data:   abi.PackCall("getProposalCount()"),
	})
	require.NoError(err)
}

func TestDeployIsNotReappliedAfterRouteRemoval(t *testing.T) {
	require := require.New(t)

	h := diamondtest.New(t)
	_, err := Deploy(testConfig(h.State, h.Diamond), loadManifest(t))
	require.NoError(err)

	// The owner hands over the diamond and the new owner strips every route
	// except diamondCut.
	h.MustCall(diamondtest.Owner, "transferOwnership(address)", abi.Address(diamondtest.Alice))
	facets, err := h.Diamond.Facets()
	require.NoError(err)
	cut := selector.FromSignature(diamond.DiamondCutSignature)
	var remove []selector.Selector
	for _, f := range facets {
		for _, sel := range f.Selectors {
			if sel != cut {
				remove = append(remove, sel)
			}
		}
	}
	_, err = h.Diamond.Cut(diamondtest.Alice, []diamond.FacetCut{{
		Action:    diamond.Remove,
		Selectors: remove,
	}}, common.Address{}, nil)
	require.NoError(err)
	before := h.Snapshot()

	s := state.New(h.BaseDB)
	d, err := diamond.New(diamond.Config{
		State: s,
		Clock: h.Clock,
	})
	require.NoError(err)
	dep, err := Deploy(testConfig(s, d), loadManifest(t))
	require.NoError(err)
	require.False(dep.Installed)
	require.Equal(before, h.Snapshot())

	facets, err = d.Facets()
	require.NoError(err)
	require.Equal([]diamond.FacetInfo{{
		FacetAddress: diamond.FacetAddress(diamond.CutFacetName),
		Selectors:    []selector.Selector{cut},
	}}, facets)
}

func TestDeployFailedInstallLeavesNoTrace(t *testing.T) {
	require := require.New(t)

	h := diamondtest.New(t)
	before := h.Snapshot()

	// Minting the initial supply breaks the cap, so the token initializer
	// fails after the install cut.
	config := testConfig(h.State, h.Diamond)
	config.Token.InitialSupply = new(uint256.Int).AddUint64(config.Token.MaxSupply, 1)
	_, err := Deploy(config, loadManifest(t))
	require.ErrorIs(err, token.ErrSupplyCapExceeded)
	require.Equal(before, h.Snapshot())

	installed, err := h.Diamond.Installed()
	require.NoError(err)
	require.False(installed)
}

func TestDeployPartialManifest(t *testing.T) {
	require := require.New(t)

	h := diamondtest.New(t)
	m := loadManifest(t)
	m.Init = nil
	m.Facets = map[string]FacetConfig{
		diamond.LoupeFacetName: {},
		value.Name: {
			Exclude: []string{"getNumericValue()"},
		},
	}
	dep, err := Deploy(testConfig(h.State, h.Diamond), m)
	require.NoError(err)
	require.True(dep.Installed)

	h.MustCall(diamondtest.Alice, "getValue()")
	_, err = h.Call(diamondtest.Alice, "getNumericValue()")
	require.ErrorIs(err, diamond.ErrUnsupportedSelector)
	_, err = h.Call(diamondtest.Alice, "propose(string,string)", abi.String("t"), abi.String("d"))
	require.ErrorIs(err, diamond.ErrUnsupportedSelector)

	// Unrouted facets are still deployed, so the owner can add them later.
	require.True(h.Diamond.Deployed(diamond.FacetAddress(governance.Name)))
}

func TestDeployRejectsUnknownNames(t *testing.T) {
	tests := []struct {
		name    string
		facets  map[string]FacetConfig
		wantErr error
	}{
		{
			name:    "unknown facet",
			facets:  map[string]FacetConfig{"ERC20Facet": {}},
			wantErr: ErrUnknownFacet,
		},
		{
			name: "unknown function",
			facets: map[string]FacetConfig{
				value.Name: {Exclude: []string{"getMinSupply()"}},
			},
			wantErr: ErrUnknownFunction,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			require := require.New(t)

			h := diamondtest.New(t)
			before := h.Snapshot()

			m := loadManifest(t)
			m.Init = nil
			m.Facets = test.facets
			_, err := Deploy(testConfig(h.State, h.Diamond), m)
			require.ErrorIs(err, test.wantErr)
			require.Equal(before, h.Snapshot())
		})
	}
}
