// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package abi

import (
	"errors"
	"fmt"
	"math"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"

	"github.com/luxfi/diamondvm/utils/wrappers"
	"github.com/luxfi/diamondvm/vms/diamondvm/selector"
)

// MaxDynamicLen bounds the declared length of strings, byte strings and
// arrays so malformed offsets cannot trigger huge allocations.
const MaxDynamicLen = 1 << 20

var (
	ErrShortInput  = errors.New("abi: input too short")
	ErrBadOffset   = errors.New("abi: offset out of range")
	ErrBadPadding  = errors.New("abi: non-zero padding")
	ErrValueTooBig = errors.New("abi: value does not fit target type")
)

// Decoder reads the values of one ABI tuple in order. The first error is
// sticky; later reads return zero values and Err reports it.
type Decoder struct {
	wrappers.Errs

	data []byte
	pos  int
}

// NewDecoder returns a decoder over an encoded tuple.
func NewDecoder(data []byte) *Decoder {
	return &Decoder{data: data}
}

// Err returns the first decoding error.
func (d *Decoder) Err() error {
	return d.Errs.Err
}

func (d *Decoder) next() []byte {
	if d.Errored() {
		return make([]byte, WordLen)
	}
	if len(d.data)-d.pos < WordLen {
		d.Add(fmt.Errorf("%w: need %d bytes at %d, have %d", ErrShortInput, WordLen, d.pos, len(d.data)))
		return make([]byte, WordLen)
	}
	w := d.data[d.pos : d.pos+WordLen]
	d.pos += WordLen
	return w
}

// Uint256 reads a uint256.
func (d *Decoder) Uint256() *uint256.Int {
	return new(uint256.Int).SetBytes(d.next())
}

// Uint64 reads a uint256 that must fit in 64 bits.
func (d *Decoder) Uint64() uint64 {
	v := d.Uint256()
	if !v.IsUint64() {
		d.Add(fmt.Errorf("%w: %s exceeds uint64", ErrValueTooBig, v.Dec()))
		return 0
	}
	return v.Uint64()
}

// Uint8 reads a uint8.
func (d *Decoder) Uint8() uint8 {
	v := d.Uint64()
	if v > math.MaxUint8 {
		d.Add(fmt.Errorf("%w: %d exceeds uint8", ErrValueTooBig, v))
		return 0
	}
	return uint8(v)
}

// Bool reads a bool.
func (d *Decoder) Bool() bool {
	switch v := d.Uint64(); v {
	case 0:
		return false
	case 1:
		return true
	default:
		d.Add(fmt.Errorf("%w: %d is not a bool", ErrValueTooBig, v))
		return false
	}
}

// Address reads an address.
func (d *Decoder) Address() common.Address {
	w := d.next()
	if !isZero(w[:WordLen-common.AddressLength]) {
		d.Add(fmt.Errorf("%w: address word", ErrBadPadding))
		return common.Address{}
	}
	return common.BytesToAddress(w[WordLen-common.AddressLength:])
}

// Bytes4 reads a selector.
func (d *Decoder) Bytes4() selector.Selector {
	w := d.next()
	if !isZero(w[selector.Len:]) {
		d.Add(fmt.Errorf("%w: bytes4 word", ErrBadPadding))
		return selector.Selector{}
	}
	var s selector.Selector
	copy(s[:], w)
	return s
}

// Bytes reads a dynamic byte string.
func (d *Decoder) Bytes() []byte {
	body, n := d.dynamic()
	if d.Errored() {
		return nil
	}
	if len(body)-WordLen < n {
		d.Add(fmt.Errorf("%w: byte string of length %d", ErrShortInput, n))
		return nil
	}
	out := make([]byte, n)
	copy(out, body[WordLen:WordLen+n])
	return out
}

// Str reads a dynamic string.
func (d *Decoder) Str() string {
	return string(d.Bytes())
}

// Array reads the offset of a dynamic array and returns a decoder over its
// elements together with the element count.
func (d *Decoder) Array() (*Decoder, int) {
	body, n := d.dynamic()
	if d.Errored() {
		return &Decoder{Errs: d.Errs}, 0
	}
	if (len(body)-WordLen)/WordLen < n {
		d.Add(fmt.Errorf("%w: array of length %d", ErrShortInput, n))
		return &Decoder{Errs: d.Errs}, 0
	}
	return &Decoder{data: body[WordLen:]}, n
}

// Tuple reads the offset of a dynamic struct and returns a decoder over its
// fields.
func (d *Decoder) Tuple() *Decoder {
	off := d.offset()
	if d.Errored() {
		return &Decoder{Errs: d.Errs}
	}
	return &Decoder{data: d.data[off:]}
}

// Selectors reads a bytes4[].
func (d *Decoder) Selectors() []selector.Selector {
	elems, n := d.Array()
	selectors := make([]selector.Selector, 0, n)
	for range n {
		selectors = append(selectors, elems.Bytes4())
	}
	d.Add(elems.Err())
	if d.Errored() {
		return nil
	}
	return selectors
}

// Addresses reads an address[].
func (d *Decoder) Addresses() []common.Address {
	elems, n := d.Array()
	addrs := make([]common.Address, 0, n)
	for range n {
		addrs = append(addrs, elems.Address())
	}
	d.Add(elems.Err())
	if d.Errored() {
		return nil
	}
	return addrs
}

// offset reads a word holding an offset relative to the start of this tuple.
func (d *Decoder) offset() int {
	v := d.Uint256()
	if d.Errored() {
		return 0
	}
	if !v.IsUint64() || v.Uint64() > uint64(len(d.data)) {
		d.Add(fmt.Errorf("%w: %s", ErrBadOffset, v.Dec()))
		return 0
	}
	return int(v.Uint64())
}

// dynamic follows an offset to a length-prefixed body. It returns the body,
// starting at the length word, and the declared length.
func (d *Decoder) dynamic() ([]byte, int) {
	off := d.offset()
	if d.Errored() {
		return nil, 0
	}
	body := d.data[off:]
	if len(body) < WordLen {
		d.Add(fmt.Errorf("%w: missing length at offset %d", ErrShortInput, off))
		return nil, 0
	}
	n := new(uint256.Int).SetBytes(body[:WordLen])
	if !n.IsUint64() || n.Uint64() > MaxDynamicLen {
		d.Add(fmt.Errorf("%w: length %s", ErrValueTooBig, n.Dec()))
		return nil, 0
	}
	return body, int(n.Uint64())
}

func isZero(b []byte) bool {
	for _, c := range b {
		if c != 0 {
			return false
		}
	}
	return true
}
