// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package wrappers

import (
	"errors"
	"testing"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/stretchr/testify/require"
)

func TestPacker(t *testing.T) {
	require := require.New(t)

	addr := common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	amount := new(uint256.Int).Lsh(uint256.NewInt(1), 200)

	p := NewPacker(1024)
	p.PackByte(7)
	p.PackShort(0x0102)
	p.PackLong(0x0102030405060708)
	p.PackBool(true)
	p.PackAddress(addr)
	p.PackUint256(amount)
	p.PackUint256(nil)
	require.NoError(p.Err)
	require.Len(p.Bytes, ByteLen+ShortLen+LongLen+BoolLen+AddressLen+2*Uint256Len)

	u := NewUnpacker(p.Bytes)
	require.Equal(byte(7), u.UnpackByte())
	require.Equal(uint16(0x0102), u.UnpackShort())
	require.Equal(uint64(0x0102030405060708), u.UnpackLong())
	require.True(u.UnpackBool())
	require.Equal(addr, u.UnpackAddress())
	require.Equal(amount, u.UnpackUint256())
	require.True(u.UnpackUint256().IsZero())
	require.NoError(u.Err)
	require.Equal(len(p.Bytes), u.Offset)
}

func TestPackerMaxSize(t *testing.T) {
	require := require.New(t)

	p := NewPacker(LongLen)
	p.PackLong(1)
	require.NoError(p.Err)
	p.PackByte(1)
	require.ErrorIs(p.Err, ErrInsufficientLength)
}

func TestUnpackerShortInput(t *testing.T) {
	require := require.New(t)

	u := NewUnpacker([]byte{1, 2, 3})
	require.Zero(u.UnpackLong())
	require.ErrorIs(u.Err, ErrInsufficientLength)

	// The first error is kept.
	u.Add(errors.New("later"))
	require.ErrorIs(u.Err, ErrInsufficientLength)
}

func TestUnpackBadBool(t *testing.T) {
	require := require.New(t)

	u := NewUnpacker([]byte{2})
	require.False(u.UnpackBool())
	require.ErrorIs(u.Err, errBadBool)
}

func TestErrs(t *testing.T) {
	require := require.New(t)

	errFirst := errors.New("first")
	var errs Errs
	require.False(errs.Errored())
	errs.Add(nil, errFirst, errors.New("second"))
	require.True(errs.Errored())
	require.Equal(errFirst, errs.Err)
}
