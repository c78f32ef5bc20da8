// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package state

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/luxfi/database"
	"github.com/luxfi/geth/common"

	"github.com/luxfi/diamondvm/utils/wrappers"
)

var ErrStateCorrupted = errors.New("state corrupted")

// Key joins a partition-local prefix with the given key parts.
func Key(prefix string, parts ...[]byte) []byte {
	size := len(prefix)
	for _, part := range parts {
		size += len(part)
	}
	key := make([]byte, 0, size)
	key = append(key, prefix...)
	for _, part := range parts {
		key = append(key, part...)
	}
	return key
}

// Uint64Key encodes n big-endian so keys sort numerically.
func Uint64Key(n uint64) []byte {
	return binary.BigEndian.AppendUint64(nil, n)
}

func get(db database.Database, key []byte) ([]byte, bool, error) {
	value, err := db.Get(key)
	switch {
	case errors.Is(err, database.ErrNotFound):
		return nil, false, nil
	case err != nil:
		return nil, false, err
	default:
		return value, true, nil
	}
}

// unpack decodes a fixed-width value and rejects trailing bytes.
func unpack[T any](key, value []byte, size int, what string, read func(*wrappers.Packer) T) (T, error) {
	var zero T
	if len(value) != size {
		return zero, fmt.Errorf("%w: %s at %q is %d bytes", ErrStateCorrupted, what, key, len(value))
	}
	p := wrappers.NewUnpacker(value)
	v := read(p)
	if p.Errored() {
		return zero, fmt.Errorf("%w: %s at %q: %w", ErrStateCorrupted, what, key, p.Err)
	}
	return v, nil
}

// GetUint256 returns the amount stored at key, or zero when absent.
func GetUint256(db database.Database, key []byte) (*uint256.Int, error) {
	value, ok, err := get(db, key)
	if err != nil || !ok {
		return new(uint256.Int), err
	}
	return unpack(key, value, wrappers.Uint256Len, "amount", (*wrappers.Packer).UnpackUint256)
}

// PutUint256 stores an amount at key. Zero amounts are deleted.
func PutUint256(db database.Database, key []byte, v *uint256.Int) error {
	if v.IsZero() {
		return db.Delete(key)
	}
	p := wrappers.NewPacker(wrappers.Uint256Len)
	p.PackUint256(v)
	return db.Put(key, p.Bytes)
}

// GetUint64 returns the counter stored at key, or zero when absent.
func GetUint64(db database.Database, key []byte) (uint64, error) {
	value, ok, err := get(db, key)
	if err != nil || !ok {
		return 0, err
	}
	return unpack(key, value, wrappers.LongLen, "counter", (*wrappers.Packer).UnpackLong)
}

// PutUint64 stores a counter at key.
func PutUint64(db database.Database, key []byte, v uint64) error {
	p := wrappers.NewPacker(wrappers.LongLen)
	p.PackLong(v)
	return db.Put(key, p.Bytes)
}

// GetBool returns the flag stored at key, or false when absent.
func GetBool(db database.Database, key []byte) (bool, error) {
	value, ok, err := get(db, key)
	if err != nil || !ok {
		return false, err
	}
	return unpack(key, value, wrappers.BoolLen, "flag", (*wrappers.Packer).UnpackBool)
}

// PutBool stores a flag at key.
func PutBool(db database.Database, key []byte, v bool) error {
	p := wrappers.NewPacker(wrappers.BoolLen)
	p.PackBool(v)
	return db.Put(key, p.Bytes)
}

// GetAddress returns the address stored at key, or the zero address.
func GetAddress(db database.Database, key []byte) (common.Address, error) {
	value, ok, err := get(db, key)
	if err != nil || !ok {
		return common.Address{}, err
	}
	return unpack(key, value, wrappers.AddressLen, "address", (*wrappers.Packer).UnpackAddress)
}

// PutAddress stores an address at key.
func PutAddress(db database.Database, key []byte, addr common.Address) error {
	p := wrappers.NewPacker(wrappers.AddressLen)
	p.PackAddress(addr)
	return db.Put(key, p.Bytes)
}

// GetString returns the string stored at key, or "" when absent.
func GetString(db database.Database, key []byte) (string, error) {
	value, _, err := get(db, key)
	return string(value), err
}

// PutString stores a string at key.
func PutString(db database.Database, key []byte, v string) error {
	return db.Put(key, []byte(v))
}

// GetBytes returns the raw value at key and whether it exists.
func GetBytes(db database.Database, key []byte) ([]byte, bool, error) {
	return get(db, key)
}
