// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package diamond

import (
	"testing"

	"github.com/luxfi/database/memdb"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/log"
	"github.com/luxfi/metric"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/diamondvm/vms/diamondvm/abi"
	"github.com/luxfi/diamondvm/vms/diamondvm/metrics"
	"github.com/luxfi/diamondvm/vms/diamondvm/selector"
	"github.com/luxfi/diamondvm/vms/diamondvm/state"
)

func sels(signatures ...string) []selector.Selector {
	selectors := make([]selector.Selector, len(signatures))
	for i, sig := range signatures {
		selectors[i] = selector.FromSignature(sig)
	}
	return selectors
}

func TestCutUnauthorized(t *testing.T) {
	require := require.New(t)

	env := newTestEnv(t)
	before := env.snapshot(t)
	_, err := env.diamond.Cut(stranger, []FacetCut{{
		FacetAddress: env.addr,
		Action:       Add,
		Selectors:    sels("increment()"),
	}}, common.Address{}, nil)
	require.ErrorIs(err, ErrUnauthorized)
	require.Equal(before, env.snapshot(t))
}

func TestCutAddReplaceRemove(t *testing.T) {
	require := require.New(t)

	env := newTestEnv(t)
	env.install(t, "increment()", "get()")

	other, err := env.state.Partition("other")
	require.NoError(err)
	otherAddr, err := env.diamond.Deploy(&counterFacet{name: "OtherCounterFacet", db: other})
	require.NoError(err)

	result, err := env.diamond.Cut(owner, []FacetCut{{
		FacetAddress: otherAddr,
		Action:       Replace,
		Selectors:    sels("increment()"),
	}}, common.Address{}, nil)
	require.NoError(err)
	require.Len(result.Events, 1)
	require.Equal("DiamondCut", result.Events[0].Name)
	require.Equal(FacetAddress(CutFacetName), result.Events[0].Facet)

	// increment() now writes the other partition, get() still reads the
	// original one.
	_, err = env.call(stranger, "increment()")
	require.NoError(err)
	require.Zero(env.count(t))

	addr, ok, err := env.diamond.Resolve(selector.FromSignature("increment()"))
	require.NoError(err)
	require.True(ok)
	require.Equal(otherAddr, addr)

	_, err = env.diamond.Cut(owner, []FacetCut{{
		Action:    Remove,
		Selectors: sels("increment()", "get()"),
	}}, common.Address{}, nil)
	require.NoError(err)

	_, err = env.call(stranger, "get()")
	require.ErrorIs(err, ErrUnsupportedSelector)

	facets, err := env.diamond.FacetAddresses()
	require.NoError(err)
	require.Equal([]common.Address{FacetAddress(CutFacetName)}, facets)
}

func TestCutSwapAndPop(t *testing.T) {
	require := require.New(t)

	env := newTestEnv(t)
	env.install(t, "increment()", "get()", "fail()", "whoami()")

	_, err := env.diamond.Cut(owner, []FacetCut{{
		Action:    Remove,
		Selectors: sels("get()"),
	}}, common.Address{}, nil)
	require.NoError(err)

	selectors, err := env.diamond.FacetSelectors(env.addr)
	require.NoError(err)
	require.Equal(sels("increment()", "whoami()", "fail()"), selectors)

	// The moved selector can itself be removed.
	_, err = env.diamond.Cut(owner, []FacetCut{{
		Action:    Remove,
		Selectors: sels("whoami()", "increment()"),
	}}, common.Address{}, nil)
	require.NoError(err)

	selectors, err = env.diamond.FacetSelectors(env.addr)
	require.NoError(err)
	require.Equal(sels("fail()"), selectors)
}

func TestCutInvalidActions(t *testing.T) {
	tests := []struct {
		name     string
		cuts     func(env *testEnv) []FacetCut
		init     func(env *testEnv) common.Address
		calldata []byte
	}{
		{
			name: "add occupied selector",
			cuts: func(env *testEnv) []FacetCut {
				return []FacetCut{{FacetAddress: env.addr, Action: Add, Selectors: sels("get()")}}
			},
		},
		{
			name: "add duplicate selectors",
			cuts: func(env *testEnv) []FacetCut {
				return []FacetCut{{FacetAddress: env.addr, Action: Add, Selectors: sels("fail()", "fail()")}}
			},
		},
		{
			name: "add zero address",
			cuts: func(*testEnv) []FacetCut {
				return []FacetCut{{Action: Add, Selectors: sels("fail()")}}
			},
		},
		{
			name: "add facet without code",
			cuts: func(*testEnv) []FacetCut {
				return []FacetCut{{FacetAddress: FacetAddress("Missing"), Action: Add, Selectors: sels("fail()")}}
			},
		},
		{
			name: "add selector the facet does not implement",
			cuts: func(env *testEnv) []FacetCut {
				return []FacetCut{{FacetAddress: env.addr, Action: Add, Selectors: sels("transfer(address,uint256)")}}
			},
		},
		{
			name: "replace absent selector",
			cuts: func(env *testEnv) []FacetCut {
				return []FacetCut{{FacetAddress: env.addr, Action: Replace, Selectors: sels("fail()")}}
			},
		},
		{
			name: "replace with same facet",
			cuts: func(env *testEnv) []FacetCut {
				return []FacetCut{{FacetAddress: env.addr, Action: Replace, Selectors: sels("get()")}}
			},
		},
		{
			name: "replace with zero address",
			cuts: func(*testEnv) []FacetCut {
				return []FacetCut{{Action: Replace, Selectors: sels("get()")}}
			},
		},
		{
			name: "remove absent selector",
			cuts: func(*testEnv) []FacetCut {
				return []FacetCut{{Action: Remove, Selectors: sels("fail()")}}
			},
		},
		{
			name: "remove naming a facet",
			cuts: func(env *testEnv) []FacetCut {
				return []FacetCut{{FacetAddress: env.addr, Action: Remove, Selectors: sels("get()")}}
			},
		},
		{
			name: "empty selector list",
			cuts: func(env *testEnv) []FacetCut {
				return []FacetCut{{FacetAddress: env.addr, Action: Add}}
			},
		},
		{
			name: "unknown action",
			cuts: func(env *testEnv) []FacetCut {
				return []FacetCut{{FacetAddress: env.addr, Action: 3, Selectors: sels("fail()")}}
			},
		},
		{
			name: "valid action followed by invalid action",
			cuts: func(env *testEnv) []FacetCut {
				return []FacetCut{
					{FacetAddress: env.addr, Action: Add, Selectors: sels("fail()")},
					{Action: Remove, Selectors: sels("whoami()")},
				}
			},
		},
		{
			name: "calldata without init",
			cuts: func(env *testEnv) []FacetCut {
				return []FacetCut{{FacetAddress: env.addr, Action: Add, Selectors: sels("fail()")}}
			},
			calldata: abi.PackCall("init(uint256)", abi.Uint64(5)),
		},
		{
			name: "init without code",
			cuts: func(env *testEnv) []FacetCut {
				return []FacetCut{{FacetAddress: env.addr, Action: Add, Selectors: sels("fail()")}}
			},
			init:     func(*testEnv) common.Address { return FacetAddress("Missing") },
			calldata: abi.PackCall("init(uint256)", abi.Uint64(5)),
		},
		{
			name: "init without selector",
			cuts: func(env *testEnv) []FacetCut {
				return []FacetCut{{FacetAddress: env.addr, Action: Add, Selectors: sels("fail()")}}
			},
			init: func(env *testEnv) common.Address { return env.addr },
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			require := require.New(t)

			env := newTestEnv(t)
			env.install(t, "get()", "increment()")

			var init common.Address
			if test.init != nil {
				init = test.init(env)
			}
			before := env.snapshot(t)
			_, err := env.diamond.Cut(owner, test.cuts(env), init, test.calldata)
			require.ErrorIs(err, ErrInvalidCutAction)
			require.Equal(before, env.snapshot(t))
		})
	}
}

func TestCutMalformedCalldata(t *testing.T) {
	require := require.New(t)

	env := newTestEnv(t)
	_, err := env.diamond.Dispatch(Call{
		Caller: owner,
		Data:   append(selector.FromSignature(DiamondCutSignature).Bytes(), 0x01),
	})
	require.ErrorIs(err, ErrInvalidCalldata)
}

func TestCutInit(t *testing.T) {
	require := require.New(t)

	env := newTestEnv(t)

	// init(uint256) is not routed; it runs only through the cut.
	_, err := env.diamond.Cut(owner, []FacetCut{{
		FacetAddress: env.addr,
		Action:       Add,
		Selectors:    sels("get()"),
	}}, env.addr, abi.PackCall("init(uint256)", abi.Uint64(41)))
	require.NoError(err)
	require.Equal(uint64(41), env.count(t))

	_, err = env.call(owner, "init(uint256)", abi.Uint64(1))
	require.ErrorIs(err, ErrUnsupportedSelector)
}

func TestCutInitFailureAbortsCut(t *testing.T) {
	require := require.New(t)

	env := newTestEnv(t)
	before := env.snapshot(t)
	_, err := env.diamond.Cut(owner, []FacetCut{{
		FacetAddress: env.addr,
		Action:       Add,
		Selectors:    sels("get()"),
	}}, env.addr, abi.PackCall("init(uint256)", abi.Uint64(0)))
	require.ErrorIs(err, errCounterFailed)
	require.Equal(before, env.snapshot(t))

	_, ok, err := env.diamond.Resolve(selector.FromSignature("get()"))
	require.NoError(err)
	require.False(ok)
}

func TestCutMetrics(t *testing.T) {
	require := require.New(t)

	registry := metric.NewRegistry()
	m, err := metrics.New(registry)
	require.NoError(err)

	st := state.New(memdb.New())
	d, err := New(Config{
		Log:     log.NoLog{},
		State:   st,
		Metrics: m,
		Owner:   owner,
	})
	require.NoError(err)

	_, err = d.Cut(owner, []FacetCut{{
		FacetAddress: FacetAddress(OwnershipFacetName),
		Action:       Add,
		Selectors:    sels(OwnerSignature, TransferOwnershipSignature),
	}}, common.Address{}, nil)
	require.NoError(err)

	families, err := registry.Gather()
	require.NoError(err)
	values := make(map[string]float64)
	for _, family := range families {
		values[family.Name] = family.Metrics[0].Value.Value
	}
	require.InDelta(1, values["diamond_cuts"], 0)
	require.InDelta(1, values["diamond_calls"], 0)
	require.InDelta(2, values["diamond_facets"], 0)
	require.InDelta(3, values["diamond_selectors"], 0)
}

func TestCutActionString(t *testing.T) {
	require := require.New(t)

	require.Equal("add", Add.String())
	require.Equal("replace", Replace.String())
	require.Equal("remove", Remove.String())
	require.Equal("action(7)", CutAction(7).String())
}

func TestCutFlushesRouteCache(t *testing.T) {
	require := require.New(t)

	env := newTestEnv(t)
	env.install(t, "increment()", "get()")

	db, err := env.state.Partition("counter-v2")
	require.NoError(err)
	v2, err := env.diamond.Deploy(&counterFacet{name: "CounterFacetV2", db: db})
	require.NoError(err)

	_, err = env.call(stranger, "increment()")
	require.NoError(err)
	require.Equal(uint64(1), env.count(t))

	_, err = env.diamond.Cut(owner, []FacetCut{{
		FacetAddress: v2,
		Action:       Replace,
		Selectors:    sels("get()"),
	}}, common.Address{}, nil)
	require.NoError(err)
	require.Zero(env.count(t))

	_, err = env.diamond.Cut(owner, []FacetCut{{
		Action:    Remove,
		Selectors: sels("get()"),
	}}, common.Address{}, nil)
	require.NoError(err)
	_, err = env.call(stranger, "get()")
	require.ErrorIs(err, ErrUnsupportedSelector)
}
