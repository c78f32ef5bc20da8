// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package abi encodes and decodes diamond calldata and return data using the
// Solidity contract ABI layout: 32-byte words, static values in the head and
// dynamic values behind offsets in the tail.
package abi

import (
	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"

	"github.com/luxfi/diamondvm/vms/diamondvm/selector"
)

// WordLen is the size of an ABI word.
const WordLen = 32

// Value is a single ABI-encodable value.
type Value interface {
	// Dynamic reports whether the value is encoded behind an offset.
	Dynamic() bool
	// Encode returns the value's encoding, without any offset.
	Encode() []byte
}

type word [WordLen]byte

func (word) Dynamic() bool    { return false }
func (w word) Encode() []byte { return w[:] }

// Uint256 encodes a uint256. A nil value encodes as zero.
func Uint256(v *uint256.Int) Value {
	if v == nil {
		return word{}
	}
	return word(v.Bytes32())
}

// Uint64 encodes an unsigned integer as uint256.
func Uint64(v uint64) Value {
	return Uint256(uint256.NewInt(v))
}

// Uint8 encodes a uint8.
func Uint8(v uint8) Value {
	return Uint64(uint64(v))
}

// Bool encodes a bool.
func Bool(v bool) Value {
	var w word
	if v {
		w[WordLen-1] = 1
	}
	return w
}

// Address encodes an address, left padded.
func Address(addr common.Address) Value {
	var w word
	copy(w[WordLen-common.AddressLength:], addr[:])
	return w
}

// Bytes4 encodes a selector, right padded.
func Bytes4(s selector.Selector) Value {
	var w word
	copy(w[:], s[:])
	return w
}

type bytesValue []byte

func (bytesValue) Dynamic() bool { return true }

func (b bytesValue) Encode() []byte {
	out := make([]byte, 0, WordLen+padded(len(b)))
	out = append(out, Uint64(uint64(len(b))).Encode()...)
	out = append(out, b...)
	return append(out, make([]byte, padded(len(b))-len(b))...)
}

// Bytes encodes a dynamic byte string.
func Bytes(b []byte) Value {
	return bytesValue(b)
}

// String encodes a dynamic UTF-8 string.
func String(s string) Value {
	return bytesValue(s)
}

type arrayValue []Value

func (arrayValue) Dynamic() bool { return true }

func (a arrayValue) Encode() []byte {
	return append(Uint64(uint64(len(a))).Encode(), encodeTuple(a)...)
}

// Array encodes a dynamic array T[] of the given elements.
func Array(elems ...Value) Value {
	return arrayValue(elems)
}

// Selectors encodes a bytes4[].
func Selectors(selectors []selector.Selector) Value {
	elems := make([]Value, len(selectors))
	for i, s := range selectors {
		elems[i] = Bytes4(s)
	}
	return Array(elems...)
}

// Addresses encodes an address[].
func Addresses(addrs []common.Address) Value {
	elems := make([]Value, len(addrs))
	for i, addr := range addrs {
		elems[i] = Address(addr)
	}
	return Array(elems...)
}

type tupleValue []Value

func (t tupleValue) Dynamic() bool {
	for _, v := range t {
		if v.Dynamic() {
			return true
		}
	}
	return false
}

func (t tupleValue) Encode() []byte {
	return encodeTuple(t)
}

// Tuple encodes a struct. It is dynamic iff any field is.
func Tuple(fields ...Value) Value {
	return tupleValue(fields)
}

// Pack encodes values as the arguments (or return values) of a function.
func Pack(values ...Value) []byte {
	return encodeTuple(values)
}

// PackCall encodes a call of the function with the given signature.
func PackCall(signature string, values ...Value) []byte {
	return append(selector.FromSignature(signature).Bytes(), Pack(values...)...)
}

func encodeTuple(values []Value) []byte {
	headLen := 0
	encoded := make([][]byte, len(values))
	for i, v := range values {
		encoded[i] = v.Encode()
		if v.Dynamic() {
			headLen += WordLen
		} else {
			headLen += len(encoded[i])
		}
	}

	var (
		head = make([]byte, 0, headLen)
		tail []byte
	)
	for i, v := range values {
		if !v.Dynamic() {
			head = append(head, encoded[i]...)
			continue
		}
		head = append(head, Uint64(uint64(headLen+len(tail))).Encode()...)
		tail = append(tail, encoded[i]...)
	}
	return append(head, tail...)
}

func padded(n int) int {
	return (n + WordLen - 1) / WordLen * WordLen
}
