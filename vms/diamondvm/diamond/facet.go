// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package diamond

import (
	"fmt"

	"github.com/holiman/uint256"
	"github.com/luxfi/crypto"
	"github.com/luxfi/geth/common"

	"github.com/luxfi/diamondvm/vms/diamondvm/abi"
	"github.com/luxfi/diamondvm/vms/diamondvm/selector"
)

const facetAddressDomain = "diamondvm/facet/"

// Handler executes one function of a facet. input holds the ABI-encoded
// arguments without the selector; the returned bytes are the ABI-encoded
// return values.
type Handler func(ctx *CallContext, input []byte) ([]byte, error)

// Function is one entry of a facet's dispatch table.
type Function struct {
	Signature string
	Payable   bool
	Handler   Handler
}

// Selector returns the selector the function is routed by.
func (f Function) Selector() selector.Selector {
	return selector.FromSignature(f.Signature)
}

// Facet is a logic module whose functions can be routed through a diamond.
type Facet interface {
	// Name identifies the facet. The facet's address is derived from it.
	Name() string
	// Functions returns the facet's dispatch table.
	Functions() []Function
	// Interfaces lists the ERC-165 interfaces the facet's functions belong
	// to.
	Interfaces() []selector.Interface
}

// FacetAddress returns the deterministic address of the facet called name.
func FacetAddress(name string) common.Address {
	return common.BytesToAddress(crypto.Keccak256([]byte(facetAddressDomain + name))[12:])
}

// Event is a log entry emitted by a facet during a call. Events are only
// published once the call has committed.
type Event struct {
	Facet common.Address
	Name  string
	Data  []byte
}

// CallContext is handed to every handler. It carries the identity of the
// original caller across delegation.
type CallContext struct {
	Caller    common.Address
	Value     *uint256.Int
	Timestamp uint64
	Selector  selector.Selector

	diamond *Diamond
	facet   common.Address
	events  []Event
}

// Authority returns the current owner of the diamond.
func (c *CallContext) Authority() (common.Address, error) {
	return c.diamond.registry.owner()
}

// RequireAuthority fails with ErrUnauthorized unless the caller is the
// owner of the diamond.
func (c *CallContext) RequireAuthority() error {
	owner, err := c.Authority()
	if err != nil {
		return err
	}
	if c.Caller != owner {
		return unauthorized(c.Caller)
	}
	return nil
}

// Emit records an event with ABI-encoded fields.
func (c *CallContext) Emit(name string, fields ...abi.Value) {
	c.events = append(c.events, Event{
		Facet: c.facet,
		Name:  name,
		Data:  abi.Pack(fields...),
	})
}

// Call dispatches data back into the diamond on behalf of the current facet.
// Calls never nest, so this always fails with ErrReentrancyBlocked and the
// outer call is rolled back.
func (c *CallContext) Call(data []byte) ([]byte, error) {
	return c.diamond.reenter(data)
}

func unauthorized(caller common.Address) error {
	return fmt.Errorf("%w: %s is not the owner", ErrUnauthorized, caller)
}

// Selectors returns the selectors of every function of f, in table order.
func Selectors(f Facet) []selector.Selector {
	functions := f.Functions()
	selectors := make([]selector.Selector, len(functions))
	for i, fn := range functions {
		selectors[i] = fn.Selector()
	}
	return selectors
}
