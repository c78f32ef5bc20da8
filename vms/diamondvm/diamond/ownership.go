// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package diamond

import (
	"fmt"

	"github.com/luxfi/diamondvm/vms/diamondvm/abi"
	"github.com/luxfi/diamondvm/vms/diamondvm/selector"
)

// OwnershipFacetName is the name of the built-in ERC-173 facet.
const OwnershipFacetName = "OwnershipFacet"

type ownershipFacet struct{}

func (*ownershipFacet) Name() string { return OwnershipFacetName }

func (f *ownershipFacet) Functions() []Function {
	return []Function{
		{Signature: OwnerSignature, Handler: f.owner},
		{Signature: TransferOwnershipSignature, Handler: f.transferOwnership},
	}
}

func (*ownershipFacet) Interfaces() []selector.Interface {
	return []selector.Interface{IERC173}
}

func (*ownershipFacet) owner(ctx *CallContext, _ []byte) ([]byte, error) {
	owner, err := ctx.Authority()
	if err != nil {
		return nil, err
	}
	return abi.Pack(abi.Address(owner)), nil
}

func (*ownershipFacet) transferOwnership(ctx *CallContext, input []byte) ([]byte, error) {
	if err := ctx.RequireAuthority(); err != nil {
		return nil, err
	}
	newOwner, err := decodeAddress(input)
	if err != nil {
		return nil, err
	}
	if err := ctx.diamond.registry.setOwner(newOwner); err != nil {
		return nil, fmt.Errorf("failed to store owner: %w", err)
	}
	ctx.Emit("OwnershipTransferred", abi.Address(ctx.Caller), abi.Address(newOwner))
	return nil, nil
}
