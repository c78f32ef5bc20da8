// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package diamond

import (
	"github.com/luxfi/geth/common"

	"github.com/luxfi/diamondvm/vms/diamondvm/abi"
	"github.com/luxfi/diamondvm/vms/diamondvm/selector"
)

// LoupeFacetName is the name of the built-in introspection facet.
const LoupeFacetName = "DiamondLoupeFacet"

// FacetInfo is a facet together with the selectors routed to it.
type FacetInfo struct {
	FacetAddress common.Address
	Selectors    []selector.Selector
}

type loupeFacet struct {
	d *Diamond
}

func (*loupeFacet) Name() string { return LoupeFacetName }

func (f *loupeFacet) Functions() []Function {
	return []Function{
		{Signature: FacetsSignature, Handler: f.facets},
		{Signature: FacetFunctionSelectorsSignature, Handler: f.facetFunctionSelectors},
		{Signature: FacetAddressesSignature, Handler: f.facetAddresses},
		{Signature: FacetAddressSignature, Handler: f.facetAddress},
		{Signature: SupportsInterfaceSignature, Handler: f.supportsInterface},
	}
}

func (*loupeFacet) Interfaces() []selector.Interface {
	return []selector.Interface{IDiamondLoupe, IERC165}
}

func (f *loupeFacet) facets(*CallContext, []byte) ([]byte, error) {
	infos, err := f.d.facetInfos()
	if err != nil {
		return nil, err
	}
	elems := make([]abi.Value, len(infos))
	for i, info := range infos {
		elems[i] = abi.Tuple(abi.Address(info.FacetAddress), abi.Selectors(info.Selectors))
	}
	return abi.Pack(abi.Array(elems...)), nil
}

func (f *loupeFacet) facetFunctionSelectors(_ *CallContext, input []byte) ([]byte, error) {
	addr, err := decodeAddress(input)
	if err != nil {
		return nil, err
	}
	selectors, err := f.d.registry.facetSelectors(addr)
	if err != nil {
		return nil, err
	}
	return abi.Pack(abi.Selectors(selectors)), nil
}

func (f *loupeFacet) facetAddresses(*CallContext, []byte) ([]byte, error) {
	addrs, err := f.d.registry.facetAddresses()
	if err != nil {
		return nil, err
	}
	return abi.Pack(abi.Addresses(addrs)), nil
}

func (f *loupeFacet) facetAddress(_ *CallContext, input []byte) ([]byte, error) {
	sel, err := decodeBytes4(input)
	if err != nil {
		return nil, err
	}
	addr, _, err := f.d.registry.resolve(sel)
	if err != nil {
		return nil, err
	}
	return abi.Pack(abi.Address(addr)), nil
}

func (f *loupeFacet) supportsInterface(_ *CallContext, input []byte) ([]byte, error) {
	id, err := decodeBytes4(input)
	if err != nil {
		return nil, err
	}
	supported, err := f.d.supportsInterface(id)
	if err != nil {
		return nil, err
	}
	return abi.Pack(abi.Bool(supported)), nil
}

func (d *Diamond) facetInfos() ([]FacetInfo, error) {
	addrs, err := d.registry.facetAddresses()
	if err != nil {
		return nil, err
	}
	infos := make([]FacetInfo, len(addrs))
	for i, addr := range addrs {
		selectors, err := d.registry.facetSelectors(addr)
		if err != nil {
			return nil, err
		}
		infos[i] = FacetInfo{
			FacetAddress: addr,
			Selectors:    selectors,
		}
	}
	return infos, nil
}

// supportsInterface reports whether some interface declared by a deployed
// facet has the id and every one of its selectors is routed, to any facet.
func (d *Diamond) supportsInterface(id selector.Selector) (bool, error) {
	if id == selector.Invalid {
		return false, nil
	}
	for _, f := range d.facets {
		for _, iface := range f.interfaces {
			if len(iface.Signatures) == 0 || iface.ID() != id {
				continue
			}
			routed, err := d.allRouted(iface.Selectors())
			if err != nil || routed {
				return routed, err
			}
		}
	}
	return false, nil
}

func (d *Diamond) allRouted(selectors []selector.Selector) (bool, error) {
	for _, sel := range selectors {
		_, ok, err := d.registry.resolve(sel)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

// Facets returns every facet with its routed selectors.
func (d *Diamond) Facets() ([]FacetInfo, error) {
	d.lock.Lock()
	defer d.lock.Unlock()

	return d.facetInfos()
}

// FacetSelectors returns the selectors routed to addr.
func (d *Diamond) FacetSelectors(addr common.Address) ([]selector.Selector, error) {
	d.lock.Lock()
	defer d.lock.Unlock()

	return d.registry.facetSelectors(addr)
}

// FacetAddresses returns every facet with at least one routed selector.
func (d *Diamond) FacetAddresses() ([]common.Address, error) {
	d.lock.Lock()
	defer d.lock.Unlock()

	return d.registry.facetAddresses()
}

// SupportsInterface answers ERC-165 queries.
func (d *Diamond) SupportsInterface(id selector.Selector) (bool, error) {
	d.lock.Lock()
	defer d.lock.Unlock()

	return d.supportsInterface(id)
}

func decodeAddress(input []byte) (common.Address, error) {
	dec := abi.NewDecoder(input)
	addr := dec.Address()
	if err := dec.Err(); err != nil {
		return common.Address{}, InvalidCalldata(err)
	}
	return addr, nil
}

func decodeBytes4(input []byte) (selector.Selector, error) {
	dec := abi.NewDecoder(input)
	sel := dec.Bytes4()
	if err := dec.Err(); err != nil {
		return selector.Selector{}, InvalidCalldata(err)
	}
	return sel, nil
}
