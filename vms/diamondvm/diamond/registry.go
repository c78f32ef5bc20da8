// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package diamond

import (
	"fmt"
	"math"
	"slices"

	"github.com/luxfi/database"
	"github.com/luxfi/geth/common"

	"github.com/luxfi/diamondvm/utils/wrappers"
	"github.com/luxfi/diamondvm/vms/diamondvm/selector"
	"github.com/luxfi/diamondvm/vms/diamondvm/state"
)

const (
	selectorPrefix = "s" // selector -> facet address, position in facet list
	facetPrefix    = "f" // facet address -> selectors routed to it
	facetsKey      = "a" // facet addresses in insertion order
	ownerKey       = "o"
	installedKey   = "i"

	maxListLen = math.MaxUint16
)

// registry is the persistent routing table. Every selector maps to exactly
// one facet address or is absent. Per-facet selector lists and the facet list
// are kept dense with swap-and-pop so the loupe can enumerate them.
type registry struct {
	db database.Database
}

type route struct {
	facet    common.Address
	position uint16
}

// resolve returns the facet address routed for sel.
func (r *registry) resolve(sel selector.Selector) (common.Address, bool, error) {
	rt, ok, err := r.route(sel)
	return rt.facet, ok, err
}

func (r *registry) route(sel selector.Selector) (route, bool, error) {
	b, ok, err := state.GetBytes(r.db, state.Key(selectorPrefix, sel[:]))
	if err != nil || !ok {
		return route{}, false, err
	}
	p := wrappers.NewUnpacker(b)
	rt := route{
		facet:    p.UnpackAddress(),
		position: p.UnpackShort(),
	}
	if p.Err != nil {
		return route{}, false, fmt.Errorf("%w: route of %s: %w", state.ErrStateCorrupted, sel, p.Err)
	}
	return rt, true, nil
}

func (r *registry) putRoute(sel selector.Selector, rt route) error {
	p := wrappers.NewPacker(wrappers.AddressLen + wrappers.ShortLen)
	p.PackAddress(rt.facet)
	p.PackShort(rt.position)
	if p.Err != nil {
		return p.Err
	}
	return r.db.Put(state.Key(selectorPrefix, sel[:]), p.Bytes)
}

// facetSelectors returns the selectors routed to facet, in insertion order
// modulo swap-and-pop removals.
func (r *registry) facetSelectors(facet common.Address) ([]selector.Selector, error) {
	b, ok, err := state.GetBytes(r.db, state.Key(facetPrefix, facet[:]))
	if err != nil || !ok {
		return nil, err
	}
	p := wrappers.NewUnpacker(b)
	n := p.UnpackShort()
	selectors := make([]selector.Selector, 0, n)
	for range n {
		var sel selector.Selector
		copy(sel[:], p.UnpackFixedBytes(selector.Len))
		selectors = append(selectors, sel)
	}
	if p.Err != nil {
		return nil, fmt.Errorf("%w: selectors of %s: %w", state.ErrStateCorrupted, facet, p.Err)
	}
	return selectors, nil
}

func (r *registry) putFacetSelectors(facet common.Address, selectors []selector.Selector) error {
	key := state.Key(facetPrefix, facet[:])
	if len(selectors) == 0 {
		return r.db.Delete(key)
	}
	p := wrappers.NewPacker(wrappers.ShortLen + len(selectors)*selector.Len)
	p.PackShort(uint16(len(selectors)))
	for _, sel := range selectors {
		p.PackFixedBytes(sel[:])
	}
	if p.Err != nil {
		return p.Err
	}
	return r.db.Put(key, p.Bytes)
}

// facetAddresses returns every facet with at least one routed selector.
func (r *registry) facetAddresses() ([]common.Address, error) {
	b, ok, err := state.GetBytes(r.db, []byte(facetsKey))
	if err != nil || !ok {
		return nil, err
	}
	p := wrappers.NewUnpacker(b)
	n := p.UnpackShort()
	addrs := make([]common.Address, 0, n)
	for range n {
		addrs = append(addrs, p.UnpackAddress())
	}
	if p.Err != nil {
		return nil, fmt.Errorf("%w: facet list: %w", state.ErrStateCorrupted, p.Err)
	}
	return addrs, nil
}

func (r *registry) putFacetAddresses(addrs []common.Address) error {
	if len(addrs) == 0 {
		return r.db.Delete([]byte(facetsKey))
	}
	p := wrappers.NewPacker(wrappers.ShortLen + len(addrs)*wrappers.AddressLen)
	p.PackShort(uint16(len(addrs)))
	for _, addr := range addrs {
		p.PackAddress(addr)
	}
	if p.Err != nil {
		return p.Err
	}
	return r.db.Put([]byte(facetsKey), p.Bytes)
}

// add routes an absent selector to facet.
func (r *registry) add(facet common.Address, sel selector.Selector) error {
	selectors, err := r.facetSelectors(facet)
	if err != nil {
		return err
	}
	if len(selectors) >= maxListLen {
		return fmt.Errorf("%w: facet %s routes too many selectors", ErrInvalidCutAction, facet)
	}
	if len(selectors) == 0 {
		addrs, err := r.facetAddresses()
		if err != nil {
			return err
		}
		if len(addrs) >= maxListLen {
			return fmt.Errorf("%w: too many facets", ErrInvalidCutAction)
		}
		if err := r.putFacetAddresses(append(addrs, facet)); err != nil {
			return err
		}
	}
	if err := r.putRoute(sel, route{facet: facet, position: uint16(len(selectors))}); err != nil {
		return err
	}
	return r.putFacetSelectors(facet, append(selectors, sel))
}

// remove clears a routed selector. A facet left with no selectors is dropped
// from the facet list.
func (r *registry) remove(sel selector.Selector) error {
	rt, ok, err := r.route(sel)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: selector %s is not routed", ErrInvalidCutAction, sel)
	}
	selectors, err := r.facetSelectors(rt.facet)
	if err != nil {
		return err
	}
	last := len(selectors) - 1
	if int(rt.position) > last || selectors[rt.position] != sel {
		return fmt.Errorf("%w: selector %s position", state.ErrStateCorrupted, sel)
	}
	if int(rt.position) != last {
		moved := selectors[last]
		selectors[rt.position] = moved
		if err := r.putRoute(moved, route{facet: rt.facet, position: rt.position}); err != nil {
			return err
		}
	}
	selectors = selectors[:last]
	if err := r.db.Delete(state.Key(selectorPrefix, sel[:])); err != nil {
		return err
	}
	if err := r.putFacetSelectors(rt.facet, selectors); err != nil {
		return err
	}
	if len(selectors) > 0 {
		return nil
	}

	addrs, err := r.facetAddresses()
	if err != nil {
		return err
	}
	i := slices.Index(addrs, rt.facet)
	if i < 0 {
		return fmt.Errorf("%w: facet %s missing from facet list", state.ErrStateCorrupted, rt.facet)
	}
	addrs[i] = addrs[len(addrs)-1]
	return r.putFacetAddresses(addrs[:len(addrs)-1])
}

// size returns the number of facets and routed selectors.
func (r *registry) size() (int, int, error) {
	addrs, err := r.facetAddresses()
	if err != nil {
		return 0, 0, err
	}
	numSelectors := 0
	for _, addr := range addrs {
		selectors, err := r.facetSelectors(addr)
		if err != nil {
			return 0, 0, err
		}
		numSelectors += len(selectors)
	}
	return len(addrs), numSelectors, nil
}

func (r *registry) owner() (common.Address, error) {
	return state.GetAddress(r.db, []byte(ownerKey))
}

func (r *registry) setOwner(owner common.Address) error {
	return state.PutAddress(r.db, []byte(ownerKey), owner)
}

func (r *registry) initialized() (bool, error) {
	return r.db.Has([]byte(ownerKey))
}

func (r *registry) installed() (bool, error) {
	return state.GetBool(r.db, []byte(installedKey))
}

func (r *registry) setInstalled() error {
	return state.PutBool(r.db, []byte(installedKey), true)
}
