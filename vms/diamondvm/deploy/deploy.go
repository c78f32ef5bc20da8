// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package deploy installs the facets named by a manifest into a diamond.
//
// Every facet of the catalog is built and deployed each time a diamond is
// opened, since deployed code is not persisted. The manifest is applied only
// once per diamond: its diamondCut and initializers run as one atomic install
// that the diamond records, and later openings never apply it again.
package deploy

import (
	"errors"
	"fmt"
	"slices"

	"github.com/luxfi/geth/common"
	"github.com/luxfi/log"

	"github.com/luxfi/diamondvm/vms/diamondvm/abi"
	"github.com/luxfi/diamondvm/vms/diamondvm/diamond"
	"github.com/luxfi/diamondvm/vms/diamondvm/facets/governance"
	"github.com/luxfi/diamondvm/vms/diamondvm/facets/token"
	"github.com/luxfi/diamondvm/vms/diamondvm/facets/treasury"
	"github.com/luxfi/diamondvm/vms/diamondvm/facets/value"
	"github.com/luxfi/diamondvm/vms/diamondvm/facets/voting"
	"github.com/luxfi/diamondvm/vms/diamondvm/selector"
	"github.com/luxfi/diamondvm/vms/diamondvm/state"
)

var (
	ErrUnknownFacet    = errors.New("unknown facet")
	ErrUnknownFunction = errors.New("unknown function")
)

// Builtins are deployed by the diamond itself.
var Builtins = []string{
	diamond.CutFacetName,
	diamond.LoupeFacetName,
	diamond.OwnershipFacetName,
}

// Config holds the collaborators of a deployment.
type Config struct {
	Log        log.Logger
	State      *state.State
	Diamond    *diamond.Diamond
	Token      token.Config
	Governance governance.Config
}

// Deployment is the catalog of facets deployed into a diamond.
type Deployment struct {
	Token      *token.Facet
	Governance *governance.Facet
	Treasury   *treasury.Facet
	Voting     voting.Facet
	Value      *value.Facet

	// Installed is true if this deployment applied the manifest.
	Installed bool
}

// Names returns the names of every facet in the catalog.
func Names() []string {
	return append(slices.Clone(Builtins),
		token.Name,
		governance.Name,
		voting.Name,
		treasury.Name,
		value.Name,
	)
}

// Deploy builds and deploys the catalog, then installs the manifest if the
// diamond has not been installed yet.
func Deploy(config Config, manifest *Manifest) (*Deployment, error) {
	if config.Log == nil {
		config.Log = log.NoLog{}
	}
	if err := manifest.Verify(); err != nil {
		return nil, err
	}
	for name := range manifest.Facets {
		if !slices.Contains(Names(), name) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownFacet, name)
		}
	}

	dep, err := build(config)
	if err != nil {
		return nil, err
	}
	for _, f := range []diamond.Facet{dep.Token, dep.Governance, dep.Voting, dep.Treasury, dep.Value} {
		if _, err := config.Diamond.Deploy(f); err != nil {
			return nil, err
		}
	}

	installed, err := config.Diamond.Installed()
	if err != nil {
		return nil, err
	}
	if installed {
		config.Log.Info("diamond already installed",
			"diamond", manifest.DiamondName,
		)
		return dep, nil
	}

	cuts, err := plan(config.Diamond, manifest)
	if err != nil {
		return nil, err
	}
	var calls []diamond.Call
	if len(cuts) > 0 {
		calls = append(calls, diamond.Call{
			Caller: manifest.Owner,
			Data:   diamond.EncodeCut(cuts, common.Address{}, nil),
		})
	}
	for _, data := range initializers(manifest) {
		calls = append(calls, diamond.Call{
			Caller: manifest.Owner,
			Data:   data,
		})
	}
	if _, err := config.Diamond.Install(calls); err != nil {
		return nil, fmt.Errorf("failed to install %s: %w", manifest.DiamondName, err)
	}
	dep.Installed = true

	config.Log.Info("diamond installed",
		"diamond", manifest.DiamondName,
		"owner", manifest.Owner,
		"facets", len(cuts),
	)
	return dep, nil
}

func build(config Config) (*Deployment, error) {
	tokenDB, err := config.State.Partition(token.Partition)
	if err != nil {
		return nil, err
	}
	governanceDB, err := config.State.Partition(governance.Partition)
	if err != nil {
		return nil, err
	}
	treasuryDB, err := config.State.Partition(treasury.Partition)
	if err != nil {
		return nil, err
	}

	tokens := token.New(tokenDB, config.Token)
	return &Deployment{
		Token:      tokens,
		Governance: governance.New(governanceDB, tokens, config.Governance),
		Treasury:   treasury.New(treasuryDB),
		Voting:     voting.Facet{},
		Value:      value.New(config.Token.MaxSupply),
	}, nil
}

// plan returns one Add per facet in manifest order. Excluded and already
// routed selectors are skipped.
func plan(d *diamond.Diamond, manifest *Manifest) ([]diamond.FacetCut, error) {
	var cuts []diamond.FacetCut
	for _, name := range manifest.Order() {
		addr := diamond.FacetAddress(name)
		functions, ok := d.Functions(addr)
		if !ok {
			return nil, fmt.Errorf("%w: %s is not deployed", ErrUnknownFacet, name)
		}

		exclude := manifest.Facets[name].Exclude
		for _, sig := range exclude {
			if !slices.ContainsFunc(functions, func(fn diamond.Function) bool { return fn.Signature == sig }) {
				return nil, fmt.Errorf("%w: %s does not implement %s", ErrUnknownFunction, name, sig)
			}
		}

		var selectors []selector.Selector
		for _, fn := range functions {
			if slices.Contains(exclude, fn.Signature) {
				continue
			}
			_, routed, err := d.Resolve(fn.Selector())
			if err != nil {
				return nil, err
			}
			if !routed {
				selectors = append(selectors, fn.Selector())
			}
		}
		if len(selectors) == 0 {
			continue
		}
		cuts = append(cuts, diamond.FacetCut{
			FacetAddress: addr,
			Action:       diamond.Add,
			Selectors:    selectors,
		})
	}
	return cuts, nil
}

// initializers returns the calldata of the protocol initializers of the
// facets named by the manifest.
func initializers(manifest *Manifest) [][]byte {
	if manifest.Init == nil {
		return nil
	}
	admin := manifest.Init.Admin
	if admin == (common.Address{}) {
		admin = manifest.Owner
	}

	var calls [][]byte
	if _, ok := manifest.Facets[token.Name]; ok {
		calls = append(calls,
			abi.PackCall("initializeGovernanceToken(string,string,address)",
				abi.String(manifest.Init.TokenName),
				abi.String(manifest.Init.TokenSymbol),
				abi.Address(manifest.Owner),
			),
			abi.PackCall("addMinter(address)", abi.Address(manifest.Owner)),
		)
	}
	if _, ok := manifest.Facets[governance.Name]; ok {
		calls = append(calls, abi.PackCall("initializeGovernance(address)", abi.Address(admin)))
	}
	return calls
}
