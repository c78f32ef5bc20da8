// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package value implements a stateless facet of constant getters used to
// check that calls are routed through the diamond.
package value

import (
	"github.com/holiman/uint256"

	"github.com/luxfi/diamondvm/vms/diamondvm/abi"
	"github.com/luxfi/diamondvm/vms/diamondvm/diamond"
	"github.com/luxfi/diamondvm/vms/diamondvm/selector"
)

const (
	// Name is the facet name used in deployment manifests.
	Name = "GNUSDAOValueFacet"

	Greeting     = "Hello from GNUSDAO Value Facet!"
	NumericValue = 42
	TokenName    = "GNUSDAO Tokens"
	TokenSymbol  = "GDAO"
)

var _ diamond.Facet = (*Facet)(nil)

type Facet struct {
	maxSupply *uint256.Int
}

// New returns the facet. maxSupply is reported by getMaxSupply.
func New(maxSupply *uint256.Int) *Facet {
	return &Facet{maxSupply: maxSupply}
}

func (*Facet) Name() string { return Name }

func (f *Facet) Functions() []diamond.Function {
	return []diamond.Function{
		{Signature: "getValue()", Handler: constant(abi.String(Greeting))},
		{Signature: "getNumericValue()", Handler: constant(abi.Uint64(NumericValue))},
		{Signature: "getTokenName()", Handler: constant(abi.String(TokenName))},
		{Signature: "getTokenSymbol()", Handler: constant(abi.String(TokenSymbol))},
		{Signature: "getMaxSupply()", Handler: constant(abi.Uint256(f.maxSupply))},
	}
}

func (*Facet) Interfaces() []selector.Interface { return nil }

func constant(v abi.Value) diamond.Handler {
	ret := abi.Pack(v)
	return func(*diamond.CallContext, []byte) ([]byte, error) {
		return ret, nil
	}
}
