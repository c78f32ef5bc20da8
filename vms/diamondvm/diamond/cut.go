// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package diamond

import (
	"fmt"

	"github.com/luxfi/geth/common"

	"github.com/luxfi/diamondvm/vms/diamondvm/abi"
	"github.com/luxfi/diamondvm/vms/diamondvm/selector"
)

// CutFacetName is the name of the built-in facet serving diamondCut.
const CutFacetName = "DiamondCutFacet"

// CutAction is the kind of change a FacetCut makes to the routing table.
type CutAction uint8

const (
	Add CutAction = iota
	Replace
	Remove
)

func (a CutAction) String() string {
	switch a {
	case Add:
		return "add"
	case Replace:
		return "replace"
	case Remove:
		return "remove"
	default:
		return fmt.Sprintf("action(%d)", uint8(a))
	}
}

// FacetCut routes, re-routes or removes a set of selectors.
type FacetCut struct {
	FacetAddress common.Address
	Action       CutAction
	Selectors    []selector.Selector
}

// EncodeCut returns the calldata of a diamondCut call.
func EncodeCut(cuts []FacetCut, init common.Address, calldata []byte) []byte {
	return abi.PackCall(DiamondCutSignature, cutArgs(cuts, init, calldata)...)
}

func cutArgs(cuts []FacetCut, init common.Address, calldata []byte) []abi.Value {
	elems := make([]abi.Value, len(cuts))
	for i, cut := range cuts {
		elems[i] = abi.Tuple(
			abi.Address(cut.FacetAddress),
			abi.Uint8(uint8(cut.Action)),
			abi.Selectors(cut.Selectors),
		)
	}
	return []abi.Value{
		abi.Array(elems...),
		abi.Address(init),
		abi.Bytes(calldata),
	}
}

func decodeCut(input []byte) ([]FacetCut, common.Address, []byte, error) {
	dec := abi.NewDecoder(input)
	elems, n := dec.Array()
	cuts := make([]FacetCut, 0, n)
	for range n {
		t := elems.Tuple()
		cuts = append(cuts, FacetCut{
			FacetAddress: t.Address(),
			Action:       CutAction(t.Uint8()),
			Selectors:    t.Selectors(),
		})
		elems.Add(t.Err())
	}
	dec.Add(elems.Err())
	init := dec.Address()
	calldata := dec.Bytes()
	if err := dec.Err(); err != nil {
		return nil, common.Address{}, nil, fmt.Errorf("%w: diamondCut: %w", ErrInvalidCalldata, err)
	}
	return cuts, init, calldata, nil
}

type cutFacet struct {
	d *Diamond
}

func (*cutFacet) Name() string { return CutFacetName }

func (f *cutFacet) Functions() []Function {
	return []Function{
		{Signature: DiamondCutSignature, Handler: f.diamondCut},
	}
}

func (*cutFacet) Interfaces() []selector.Interface {
	return []selector.Interface{IDiamondCut}
}

func (f *cutFacet) diamondCut(ctx *CallContext, input []byte) ([]byte, error) {
	if err := ctx.RequireAuthority(); err != nil {
		return nil, err
	}
	cuts, init, calldata, err := decodeCut(input)
	if err != nil {
		return nil, err
	}
	for i, cut := range cuts {
		if err := f.d.applyCut(cut); err != nil {
			return nil, fmt.Errorf("facet cut %d: %w", i, err)
		}
	}
	ctx.Emit("DiamondCut", cutArgs(cuts, init, calldata)...)
	if err := f.d.initializeCut(ctx, init, calldata); err != nil {
		return nil, err
	}
	f.d.cut = true
	return nil, nil
}

func (d *Diamond) applyCut(cut FacetCut) error {
	if len(cut.Selectors) == 0 {
		return fmt.Errorf("%w: no selectors to %s", ErrInvalidCutAction, cut.Action)
	}
	var code *deployedFacet
	switch cut.Action {
	case Add, Replace:
		if cut.FacetAddress == (common.Address{}) {
			return fmt.Errorf("%w: %s names the zero address", ErrInvalidCutAction, cut.Action)
		}
		var ok bool
		code, ok = d.facets[cut.FacetAddress]
		if !ok {
			return fmt.Errorf("%w: %s names %s which has no code", ErrInvalidCutAction, cut.Action, cut.FacetAddress)
		}
	case Remove:
		if cut.FacetAddress != (common.Address{}) {
			return fmt.Errorf("%w: remove must name the zero address, not %s", ErrInvalidCutAction, cut.FacetAddress)
		}
	default:
		return fmt.Errorf("%w: unknown %s", ErrInvalidCutAction, cut.Action)
	}

	for _, sel := range cut.Selectors {
		if code != nil {
			if _, ok := code.functions[sel]; !ok {
				return fmt.Errorf("%w: %s does not implement %s", ErrInvalidCutAction, code.name, sel)
			}
		}
		current, routed, err := d.registry.resolve(sel)
		if err != nil {
			return err
		}
		switch cut.Action {
		case Add:
			if routed {
				return fmt.Errorf("%w: cannot add %s, already routed to %s", ErrInvalidCutAction, sel, current)
			}
		case Replace:
			if !routed {
				return fmt.Errorf("%w: cannot replace %s, not routed", ErrInvalidCutAction, sel)
			}
			if current == cut.FacetAddress {
				return fmt.Errorf("%w: cannot replace %s with the facet that already serves it", ErrInvalidCutAction, sel)
			}
			if err := d.registry.remove(sel); err != nil {
				return err
			}
		case Remove:
			if !routed {
				return fmt.Errorf("%w: cannot remove %s, not routed", ErrInvalidCutAction, sel)
			}
			if err := d.registry.remove(sel); err != nil {
				return err
			}
			continue
		}
		if err := d.registry.add(cut.FacetAddress, sel); err != nil {
			return err
		}
	}
	return nil
}

// initializeCut delegates calldata to the facet at init within the cut call.
func (d *Diamond) initializeCut(ctx *CallContext, init common.Address, calldata []byte) error {
	if init == (common.Address{}) {
		if len(calldata) != 0 {
			return fmt.Errorf("%w: calldata given without an init address", ErrInvalidCutAction)
		}
		return nil
	}
	if _, ok := d.facets[init]; !ok {
		return fmt.Errorf("%w: init address %s has no code", ErrInvalidCutAction, init)
	}
	sel, input, err := selector.FromBytes(calldata)
	if err != nil {
		return fmt.Errorf("%w: init calldata: %w", ErrInvalidCutAction, err)
	}
	if _, err := d.delegate(ctx, init, sel, input); err != nil {
		return fmt.Errorf("init call to %s failed: %w", d.facetName(init), err)
	}
	return nil
}

// Cut submits a diamondCut call on behalf of caller.
func (d *Diamond) Cut(caller common.Address, cuts []FacetCut, init common.Address, calldata []byte) (*Result, error) {
	return d.Dispatch(Call{
		Caller: caller,
		Data:   EncodeCut(cuts, init, calldata),
	})
}
