// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package diamondvm implements a virtual machine hosting a single diamond:
// an upgradeable proxy that routes calls by function selector to facets.
//
// The VM deploys a fixed catalog of facets:
//   - DiamondCutFacet, DiamondLoupeFacet and OwnershipFacet
//   - GovernanceTokenFacet, an 18 decimal capped token
//   - GovernanceFacet, proposals decided by quadratic voting
//   - VotingMechanismsFacet, the quadratic voting arithmetic
//   - TreasuryFacet and GNUSDAOValueFacet
//
// The genesis manifest picks which of them are routed when the chain starts.
package diamondvm

import (
	"github.com/luxfi/ids"
	"github.com/luxfi/log"

	"github.com/luxfi/diamondvm/vms/diamondvm/config"

	luxvm "github.com/luxfi/diamondvm"
)

var (
	// VMID is the unique identifier for the Diamond VM
	VMID = ids.ID{'d', 'i', 'a', 'm', 'o', 'n', 'd', 'v', 'm'}

	_ luxvm.Factory = (*Factory)(nil)
)

// Factory creates new Diamond VM instances.
type Factory struct {
	config.Config
}

// New creates a Diamond VM using the factory's configuration unless the
// chain supplies its own.
func (f *Factory) New(logger log.Logger) (luxvm.VM, error) {
	return &VM{
		Config: f.Config,
		log:    logger,
	}, nil
}
