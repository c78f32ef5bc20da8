// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package diamond

import "github.com/luxfi/diamondvm/vms/diamondvm/selector"

// Signatures of the functions served by the built-in facets.
const (
	DiamondCutSignature             = "diamondCut((address,uint8,bytes4[])[],address,bytes)"
	FacetsSignature                 = "facets()"
	FacetFunctionSelectorsSignature = "facetFunctionSelectors(address)"
	FacetAddressesSignature         = "facetAddresses()"
	FacetAddressSignature           = "facetAddress(bytes4)"
	SupportsInterfaceSignature      = "supportsInterface(bytes4)"
	OwnerSignature                  = "owner()"
	TransferOwnershipSignature      = "transferOwnership(address)"
)

// Interfaces every diamond is expected to expose once the loupe and
// ownership facets are installed.
var (
	IERC165 = selector.NewInterface("IERC165",
		SupportsInterfaceSignature,
	)
	IDiamondCut = selector.NewInterface("IDiamondCut",
		DiamondCutSignature,
	)
	IDiamondLoupe = selector.NewInterface("IDiamondLoupe",
		FacetsSignature,
		FacetFunctionSelectorsSignature,
		FacetAddressesSignature,
		FacetAddressSignature,
	)
	IERC173 = selector.NewInterface("IERC173",
		OwnerSignature,
		TransferOwnershipSignature,
	)
)
