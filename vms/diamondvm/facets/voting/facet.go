// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package voting

import (
	"github.com/holiman/uint256"

	"github.com/luxfi/diamondvm/vms/diamondvm/abi"
	"github.com/luxfi/diamondvm/vms/diamondvm/diamond"
	"github.com/luxfi/diamondvm/vms/diamondvm/selector"
)

// Name is the facet name used in deployment manifests.
const Name = "VotingMechanismsFacet"

var (
	_ diamond.Facet = (*Facet)(nil)

	IQuadraticVoting = selector.NewInterface("IQuadraticVoting",
		"calculateQuadraticCost(uint256)",
		"calculateMaxVotes(uint256)",
		"calculateVoteWeight(uint256)",
		"validateVote(uint256,uint256,uint256)",
		"calculateOptimalVotes(uint256,uint256)",
		"calculateParticipationRate(uint256,uint256)",
		"checkQuorum(uint256,uint256)",
	)
)

// Facet exposes the arithmetic through the diamond. It has no storage.
type Facet struct{}

func (Facet) Name() string { return Name }

func (f Facet) Functions() []diamond.Function {
	return []diamond.Function{
		{Signature: "calculateQuadraticCost(uint256)", Handler: f.calculateQuadraticCost},
		{Signature: "calculateMaxVotes(uint256)", Handler: f.calculateMaxVotes},
		{Signature: "calculateVoteWeight(uint256)", Handler: f.calculateVoteWeight},
		{Signature: "validateVote(uint256,uint256,uint256)", Handler: f.validateVote},
		{Signature: "calculateOptimalVotes(uint256,uint256)", Handler: f.calculateOptimalVotes},
		{Signature: "calculateParticipationRate(uint256,uint256)", Handler: f.calculateParticipationRate},
		{Signature: "checkQuorum(uint256,uint256)", Handler: f.checkQuorum},
	}
}

func (Facet) Interfaces() []selector.Interface {
	return []selector.Interface{IQuadraticVoting}
}

func (Facet) calculateQuadraticCost(_ *diamond.CallContext, input []byte) ([]byte, error) {
	args, err := decodeUints(input, 1)
	if err != nil {
		return nil, err
	}
	cost, err := Cost(args[0])
	if err != nil {
		return nil, err
	}
	return abi.Pack(abi.Uint256(cost)), nil
}

func (Facet) calculateMaxVotes(_ *diamond.CallContext, input []byte) ([]byte, error) {
	args, err := decodeUints(input, 1)
	if err != nil {
		return nil, err
	}
	return abi.Pack(abi.Uint256(MaxVotes(args[0]))), nil
}

func (Facet) calculateVoteWeight(_ *diamond.CallContext, input []byte) ([]byte, error) {
	args, err := decodeUints(input, 1)
	if err != nil {
		return nil, err
	}
	return abi.Pack(abi.Uint256(VoteWeight(args[0]))), nil
}

func (Facet) validateVote(_ *diamond.CallContext, input []byte) ([]byte, error) {
	args, err := decodeUints(input, 3)
	if err != nil {
		return nil, err
	}
	valid, cost, err := ValidateVote(args[0], args[1], args[2])
	if err != nil {
		return nil, err
	}
	return abi.Pack(abi.Bool(valid), abi.Uint256(cost)), nil
}

func (Facet) calculateOptimalVotes(_ *diamond.CallContext, input []byte) ([]byte, error) {
	args, err := decodeUints(input, 2)
	if err != nil {
		return nil, err
	}
	votes, remaining := OptimalVotes(args[0], args[1])
	return abi.Pack(abi.Uint256(votes), abi.Uint256(remaining)), nil
}

func (Facet) calculateParticipationRate(_ *diamond.CallContext, input []byte) ([]byte, error) {
	args, err := decodeUints(input, 2)
	if err != nil {
		return nil, err
	}
	rate, err := ParticipationRate(args[0], args[1])
	if err != nil {
		return nil, err
	}
	return abi.Pack(abi.Uint256(rate)), nil
}

func (Facet) checkQuorum(_ *diamond.CallContext, input []byte) ([]byte, error) {
	args, err := decodeUints(input, 2)
	if err != nil {
		return nil, err
	}
	return abi.Pack(abi.Bool(CheckQuorum(args[0], args[1]))), nil
}

func decodeUints(input []byte, n int) ([]*uint256.Int, error) {
	dec := abi.NewDecoder(input)
	args := make([]*uint256.Int, n)
	for i := range args {
		args[i] = dec.Uint256()
	}
	if err := dec.Err(); err != nil {
		return nil, diamond.InvalidCalldata(err)
	}
	return args, nil
}
