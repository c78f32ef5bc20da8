// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package token implements the governance token facet: an 18 decimal
// balance ledger with a minter allow-list and a supply cap. Voting power is
// the current balance; there is no checkpointing.
package token

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/luxfi/database"
	"github.com/luxfi/geth/common"

	"github.com/luxfi/diamondvm/utils/math"
	"github.com/luxfi/diamondvm/vms/diamondvm/abi"
	"github.com/luxfi/diamondvm/vms/diamondvm/diamond"
	"github.com/luxfi/diamondvm/vms/diamondvm/selector"
	"github.com/luxfi/diamondvm/vms/diamondvm/state"
)

const (
	// Name is the facet name used in deployment manifests.
	Name = "GovernanceTokenFacet"
	// Partition is the storage partition of the account ledger.
	Partition = "token"
	// Decimals of the token's fixed point amounts.
	Decimals = 18
)

const (
	initializedKey = "i"
	nameKey        = "n"
	symbolKey      = "y"
	totalSupplyKey = "t"
	balancePrefix  = "b"
	minterPrefix   = "m"
)

var (
	_ diamond.Facet = (*Facet)(nil)
	_ Reader        = (*Facet)(nil)

	ErrSupplyCapExceeded   = errors.New("supply cap exceeded")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrNotInitialized      = errors.New("token not initialized")
	ErrAlreadyInitialized  = errors.New("token already initialized")
	ErrInvalidRecipient    = errors.New("invalid recipient")

	IGovernanceToken = selector.NewInterface("IGovernanceToken",
		"name()",
		"symbol()",
		"decimals()",
		"totalSupply()",
		"balanceOf(address)",
		"transfer(address,uint256)",
		"mint(address,uint256)",
		"burn(uint256)",
		"getVotingPower(address)",
	)
)

// Reader is the read-only view of the ledger other facets may depend on.
type Reader interface {
	BalanceOf(addr common.Address) (*uint256.Int, error)
	VotingPower(addr common.Address) (*uint256.Int, error)
	TotalSupply() (*uint256.Int, error)
}

// Facet is the governance token. It only touches its own partition.
type Facet struct {
	db     database.Database
	config Config
}

func New(db database.Database, config Config) *Facet {
	return &Facet{
		db:     db,
		config: config,
	}
}

func (*Facet) Name() string { return Name }

func (f *Facet) Functions() []diamond.Function {
	return []diamond.Function{
		{Signature: "initializeGovernanceToken(string,string,address)", Handler: f.initialize},
		{Signature: "name()", Handler: f.name},
		{Signature: "symbol()", Handler: f.symbol},
		{Signature: "decimals()", Handler: f.decimals},
		{Signature: "totalSupply()", Handler: f.totalSupply},
		{Signature: "balanceOf(address)", Handler: f.balanceOf},
		{Signature: "addMinter(address)", Handler: f.addMinter},
		{Signature: "removeMinter(address)", Handler: f.removeMinter},
		{Signature: "isMinter(address)", Handler: f.isMinter},
		{Signature: "mint(address,uint256)", Handler: f.mint},
		{Signature: "burn(uint256)", Handler: f.burn},
		{Signature: "transfer(address,uint256)", Handler: f.transfer},
		{Signature: "getVotingPower(address)", Handler: f.getVotingPower},
		{Signature: "getInitialSupply()", Handler: f.getInitialSupply},
	}
}

func (*Facet) Interfaces() []selector.Interface {
	return []selector.Interface{IGovernanceToken}
}

func (f *Facet) initialize(ctx *diamond.CallContext, input []byte) ([]byte, error) {
	if err := ctx.RequireAuthority(); err != nil {
		return nil, err
	}
	dec := abi.NewDecoder(input)
	name := dec.Str()
	symbol := dec.Str()
	holder := dec.Address()
	if err := dec.Err(); err != nil {
		return nil, diamond.InvalidCalldata(err)
	}

	initialized, err := state.GetBool(f.db, []byte(initializedKey))
	if err != nil {
		return nil, err
	}
	if initialized {
		return nil, ErrAlreadyInitialized
	}
	if err := state.PutBool(f.db, []byte(initializedKey), true); err != nil {
		return nil, err
	}
	if err := state.PutString(f.db, []byte(nameKey), name); err != nil {
		return nil, err
	}
	if err := state.PutString(f.db, []byte(symbolKey), symbol); err != nil {
		return nil, err
	}
	return nil, f.mintTo(ctx, holder, f.config.InitialSupply)
}

func (f *Facet) name(*diamond.CallContext, []byte) ([]byte, error) {
	name, err := state.GetString(f.db, []byte(nameKey))
	return abi.Pack(abi.String(name)), err
}

func (f *Facet) symbol(*diamond.CallContext, []byte) ([]byte, error) {
	symbol, err := state.GetString(f.db, []byte(symbolKey))
	return abi.Pack(abi.String(symbol)), err
}

func (*Facet) decimals(*diamond.CallContext, []byte) ([]byte, error) {
	return abi.Pack(abi.Uint8(Decimals)), nil
}

func (f *Facet) totalSupply(*diamond.CallContext, []byte) ([]byte, error) {
	supply, err := f.TotalSupply()
	return abi.Pack(abi.Uint256(supply)), err
}

func (f *Facet) balanceOf(_ *diamond.CallContext, input []byte) ([]byte, error) {
	addr, err := decodeAddress(input)
	if err != nil {
		return nil, err
	}
	balance, err := f.BalanceOf(addr)
	return abi.Pack(abi.Uint256(balance)), err
}

func (f *Facet) getVotingPower(_ *diamond.CallContext, input []byte) ([]byte, error) {
	addr, err := decodeAddress(input)
	if err != nil {
		return nil, err
	}
	power, err := f.VotingPower(addr)
	return abi.Pack(abi.Uint256(power)), err
}

func (f *Facet) getInitialSupply(*diamond.CallContext, []byte) ([]byte, error) {
	return abi.Pack(abi.Uint256(f.config.InitialSupply)), nil
}

func (f *Facet) addMinter(ctx *diamond.CallContext, input []byte) ([]byte, error) {
	return f.setMinter(ctx, input, true)
}

func (f *Facet) removeMinter(ctx *diamond.CallContext, input []byte) ([]byte, error) {
	return f.setMinter(ctx, input, false)
}

func (f *Facet) setMinter(ctx *diamond.CallContext, input []byte, minter bool) ([]byte, error) {
	if err := ctx.RequireAuthority(); err != nil {
		return nil, err
	}
	addr, err := decodeAddress(input)
	if err != nil {
		return nil, err
	}
	current, err := f.IsMinter(addr)
	if err != nil || current == minter {
		return nil, err
	}
	if err := state.PutBool(f.db, state.Key(minterPrefix, addr[:]), minter); err != nil {
		return nil, err
	}
	if minter {
		ctx.Emit("MinterAdded", abi.Address(addr))
	} else {
		ctx.Emit("MinterRemoved", abi.Address(addr))
	}
	return nil, nil
}

func (f *Facet) isMinter(_ *diamond.CallContext, input []byte) ([]byte, error) {
	addr, err := decodeAddress(input)
	if err != nil {
		return nil, err
	}
	minter, err := f.IsMinter(addr)
	return abi.Pack(abi.Bool(minter)), err
}

func (f *Facet) mint(ctx *diamond.CallContext, input []byte) ([]byte, error) {
	dec := abi.NewDecoder(input)
	to := dec.Address()
	amount := dec.Uint256()
	if err := dec.Err(); err != nil {
		return nil, diamond.InvalidCalldata(err)
	}

	initialized, err := state.GetBool(f.db, []byte(initializedKey))
	if err != nil {
		return nil, err
	}
	if !initialized {
		return nil, ErrNotInitialized
	}
	minter, err := f.IsMinter(ctx.Caller)
	if err != nil {
		return nil, err
	}
	if !minter {
		return nil, fmt.Errorf("%w: %s is not a minter", diamond.ErrUnauthorized, ctx.Caller)
	}
	return nil, f.mintTo(ctx, to, amount)
}

func (f *Facet) mintTo(ctx *diamond.CallContext, to common.Address, amount *uint256.Int) error {
	if to == (common.Address{}) {
		return fmt.Errorf("%w: mint to the zero address", ErrInvalidRecipient)
	}
	supply, err := f.TotalSupply()
	if err != nil {
		return err
	}
	newSupply, err := math.Add256(supply, amount)
	if err != nil || newSupply.Gt(f.config.MaxSupply) {
		return fmt.Errorf("%w: minting %s onto %s exceeds %s",
			ErrSupplyCapExceeded, amount.Dec(), supply.Dec(), f.config.MaxSupply.Dec())
	}
	balance, err := f.BalanceOf(to)
	if err != nil {
		return err
	}
	// balance <= supply <= MaxSupply, so this cannot overflow.
	balance.Add(balance, amount)
	if err := state.PutUint256(f.db, []byte(totalSupplyKey), newSupply); err != nil {
		return err
	}
	if err := state.PutUint256(f.db, state.Key(balancePrefix, to[:]), balance); err != nil {
		return err
	}
	ctx.Emit("Transfer", abi.Address(common.Address{}), abi.Address(to), abi.Uint256(amount))
	return nil
}

func (f *Facet) burn(ctx *diamond.CallContext, input []byte) ([]byte, error) {
	dec := abi.NewDecoder(input)
	amount := dec.Uint256()
	if err := dec.Err(); err != nil {
		return nil, diamond.InvalidCalldata(err)
	}

	balance, err := f.BalanceOf(ctx.Caller)
	if err != nil {
		return nil, err
	}
	newBalance, err := math.Sub256(balance, amount)
	if err != nil {
		return nil, fmt.Errorf("%w: burning %s from %s", ErrInsufficientBalance, amount.Dec(), balance.Dec())
	}
	supply, err := f.TotalSupply()
	if err != nil {
		return nil, err
	}
	newSupply, err := math.Sub256(supply, amount)
	if err != nil {
		return nil, fmt.Errorf("%w: total supply %s below burned %s", state.ErrStateCorrupted, supply.Dec(), amount.Dec())
	}
	if err := state.PutUint256(f.db, state.Key(balancePrefix, ctx.Caller[:]), newBalance); err != nil {
		return nil, err
	}
	if err := state.PutUint256(f.db, []byte(totalSupplyKey), newSupply); err != nil {
		return nil, err
	}
	ctx.Emit("Transfer", abi.Address(ctx.Caller), abi.Address(common.Address{}), abi.Uint256(amount))
	return nil, nil
}

func (f *Facet) transfer(ctx *diamond.CallContext, input []byte) ([]byte, error) {
	dec := abi.NewDecoder(input)
	to := dec.Address()
	amount := dec.Uint256()
	if err := dec.Err(); err != nil {
		return nil, diamond.InvalidCalldata(err)
	}
	if to == (common.Address{}) {
		return nil, fmt.Errorf("%w: transfer to the zero address", ErrInvalidRecipient)
	}

	from, err := f.BalanceOf(ctx.Caller)
	if err != nil {
		return nil, err
	}
	newFrom, err := math.Sub256(from, amount)
	if err != nil {
		return nil, fmt.Errorf("%w: transferring %s from %s", ErrInsufficientBalance, amount.Dec(), from.Dec())
	}
	if err := state.PutUint256(f.db, state.Key(balancePrefix, ctx.Caller[:]), newFrom); err != nil {
		return nil, err
	}
	// Read after the debit so a self-transfer nets to zero.
	balance, err := f.BalanceOf(to)
	if err != nil {
		return nil, err
	}
	balance.Add(balance, amount)
	if err := state.PutUint256(f.db, state.Key(balancePrefix, to[:]), balance); err != nil {
		return nil, err
	}
	ctx.Emit("Transfer", abi.Address(ctx.Caller), abi.Address(to), abi.Uint256(amount))
	return abi.Pack(abi.Bool(true)), nil
}

// BalanceOf returns the balance of addr.
func (f *Facet) BalanceOf(addr common.Address) (*uint256.Int, error) {
	return state.GetUint256(f.db, state.Key(balancePrefix, addr[:]))
}

// VotingPower is the current balance of addr.
func (f *Facet) VotingPower(addr common.Address) (*uint256.Int, error) {
	return f.BalanceOf(addr)
}

// TotalSupply returns the amount in circulation.
func (f *Facet) TotalSupply() (*uint256.Int, error) {
	return state.GetUint256(f.db, []byte(totalSupplyKey))
}

// IsMinter reports whether addr may mint.
func (f *Facet) IsMinter(addr common.Address) (bool, error) {
	return state.GetBool(f.db, state.Key(minterPrefix, addr[:]))
}

func decodeAddress(input []byte) (common.Address, error) {
	dec := abi.NewDecoder(input)
	addr := dec.Address()
	if err := dec.Err(); err != nil {
		return common.Address{}, diamond.InvalidCalldata(err)
	}
	return addr, nil
}
