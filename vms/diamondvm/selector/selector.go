// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package selector derives 4-byte function selectors and ERC-165 interface
// ids from canonical function signatures.
package selector

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/luxfi/crypto"
)

// Len is the size of a selector in bytes.
const Len = 4

var (
	ErrInvalidSelector = errors.New("invalid selector")

	// Invalid is the interface id ERC-165 reserves as never supported.
	Invalid = Selector{0xff, 0xff, 0xff, 0xff}
)

// Selector identifies a callable function: the first four bytes of the
// keccak256 hash of its canonical signature.
type Selector [Len]byte

// FromSignature computes the selector of a canonical signature such as
// "transfer(address,uint256)".
func FromSignature(signature string) Selector {
	var s Selector
	copy(s[:], crypto.Keccak256([]byte(signature)))
	return s
}

// FromBytes returns the selector at the start of calldata and the remaining
// argument bytes.
func FromBytes(data []byte) (Selector, []byte, error) {
	if len(data) < Len {
		return Selector{}, nil, fmt.Errorf("%w: calldata is %d bytes", ErrInvalidSelector, len(data))
	}
	var s Selector
	copy(s[:], data[:Len])
	return s, data[Len:], nil
}

// Parse decodes a hex selector with or without the 0x prefix.
func Parse(str string) (Selector, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(str, "0x"))
	if err != nil {
		return Selector{}, fmt.Errorf("%w: %w", ErrInvalidSelector, err)
	}
	if len(raw) != Len {
		return Selector{}, fmt.Errorf("%w: %q is %d bytes", ErrInvalidSelector, str, len(raw))
	}
	var s Selector
	copy(s[:], raw)
	return s, nil
}

// Bytes returns the selector as a slice, ready to prefix calldata.
func (s Selector) Bytes() []byte {
	return s[:]
}

func (s Selector) String() string {
	return "0x" + hex.EncodeToString(s[:])
}

// Interface is a named set of function signatures. Its id is the XOR of the
// member selectors.
type Interface struct {
	Name       string
	Signatures []string
}

// NewInterface returns the interface made of the given signatures.
func NewInterface(name string, signatures ...string) Interface {
	return Interface{Name: name, Signatures: signatures}
}

// Selectors returns the member selectors in declaration order.
func (i Interface) Selectors() []Selector {
	selectors := make([]Selector, len(i.Signatures))
	for j, sig := range i.Signatures {
		selectors[j] = FromSignature(sig)
	}
	return selectors
}

// ID returns the ERC-165 interface id.
func (i Interface) ID() Selector {
	return XOR(i.Selectors()...)
}

// XOR folds selectors together.
func XOR(selectors ...Selector) Selector {
	var id Selector
	for _, s := range selectors {
		for j := range id {
			id[j] ^= s[j]
		}
	}
	return id
}
