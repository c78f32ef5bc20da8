// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package treasury implements the treasury facet. Anyone may deposit value
// into the treasury; spending is not supported, so the balance only grows.
package treasury

import (
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
	Name = "TreasuryFacet"
	// Partition is the storage partition of the treasury.
	Partition = "treasury"
)

const (
	balanceKey    = "b"
	depositPrefix = "d"
)

var (
	_ diamond.Facet = (*Facet)(nil)

	ITreasury = selector.NewInterface("ITreasury",
		"depositToTreasury()",
		"getTreasuryBalance()",
	)
)

type Facet struct {
	db database.Database
}

func New(db database.Database) *Facet {
	return &Facet{db: db}
}

func (*Facet) Name() string { return Name }

func (f *Facet) Functions() []diamond.Function {
	return []diamond.Function{
		{Signature: "depositToTreasury()", Payable: true, Handler: f.deposit},
		{Signature: "getTreasuryBalance()", Handler: f.getBalance},
		{Signature: "getTreasuryDeposits(address)", Handler: f.getDeposits},
	}
}

func (*Facet) Interfaces() []selector.Interface {
	return []selector.Interface{ITreasury}
}

func (f *Facet) deposit(ctx *diamond.CallContext, _ []byte) ([]byte, error) {
	balance, err := f.Balance()
	if err != nil {
		return nil, err
	}
	balance, err = math.Add256(balance, ctx.Value)
	if err != nil {
		return nil, fmt.Errorf("treasury balance: %w", err)
	}
	deposits, err := f.Deposits(ctx.Caller)
	if err != nil {
		return nil, err
	}
	// deposits <= balance, so this cannot overflow.
	deposits.Add(deposits, ctx.Value)

	if err := state.PutUint256(f.db, []byte(balanceKey), balance); err != nil {
		return nil, err
	}
	if err := state.PutUint256(f.db, state.Key(depositPrefix, ctx.Caller[:]), deposits); err != nil {
		return nil, err
	}
	ctx.Emit("TreasuryDeposit", abi.Address(ctx.Caller), abi.Uint256(ctx.Value))
	return nil, nil
}

func (f *Facet) getBalance(*diamond.CallContext, []byte) ([]byte, error) {
	balance, err := f.Balance()
	return abi.Pack(abi.Uint256(balance)), err
}

func (f *Facet) getDeposits(_ *diamond.CallContext, input []byte) ([]byte, error) {
	dec := abi.NewDecoder(input)
	depositor := dec.Address()
	if err := dec.Err(); err != nil {
		return nil, diamond.InvalidCalldata(err)
	}
	deposits, err := f.Deposits(depositor)
	return abi.Pack(abi.Uint256(deposits)), err
}

// Balance returns the total value ever deposited.
func (f *Facet) Balance() (*uint256.Int, error) {
	return state.GetUint256(f.db, []byte(balanceKey))
}

// Deposits returns the total value deposited by depositor.
func (f *Facet) Deposits(depositor common.Address) (*uint256.Int, error) {
	return state.GetUint256(f.db, state.Key(depositPrefix, depositor[:]))
}
