// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package voting holds the quadratic voting arithmetic. Casting n votes costs
// n² tokens, so every additional vote is more expensive than the last.
// All functions are pure and never wrap around: a result that does not fit
// in 256 bits fails with ErrArithmeticOverflow.
package voting

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/luxfi/diamondvm/utils/math"
)

var (
	ErrArithmeticOverflow = errors.New("arithmetic overflow")

	hundred = uint256.NewInt(100)
)

// Cost returns votes².
func Cost(votes *uint256.Int) (*uint256.Int, error) {
	cost, err := math.Mul256(votes, votes)
	if err != nil {
		return nil, fmt.Errorf("%w: cost of %s votes", ErrArithmeticOverflow, votes.Dec())
	}
	return cost, nil
}

// MaxVotes returns the largest v with v² <= balance.
func MaxVotes(balance *uint256.Int) *uint256.Int {
	return new(uint256.Int).Sqrt(balance)
}

// VoteWeight returns the number of votes tokensCost buys, floor(√tokensCost).
// VoteWeight(Cost(v)) == v for every v.
func VoteWeight(tokensCost *uint256.Int) *uint256.Int {
	return new(uint256.Int).Sqrt(tokensCost)
}

// ValidateVote reports whether votes respects the per-wallet cap and is
// affordable with balance. The cost is returned even when the vote is
// invalid.
func ValidateVote(votes, maxVotesPerWallet, balance *uint256.Int) (bool, *uint256.Int, error) {
	cost, err := Cost(votes)
	if err != nil {
		return false, nil, err
	}
	valid := !votes.Gt(maxVotesPerWallet) && !cost.Gt(balance)
	return valid, cost, nil
}

// OptimalVotes spends budget on as many votes as the cap allows and returns
// the votes together with the tokens left over.
func OptimalVotes(budget, maxVotesPerWallet *uint256.Int) (*uint256.Int, *uint256.Int) {
	votes := MaxVotes(budget)
	if votes.Gt(maxVotesPerWallet) {
		votes.Set(maxVotesPerWallet)
	}
	// votes <= √budget, so votes² <= budget and neither step can fail.
	cost := new(uint256.Int).Mul(votes, votes)
	remaining := new(uint256.Int).Sub(budget, cost)
	return votes, remaining
}

// ParticipationRate returns floor(voters * 100 / eligible) as a percentage,
// or zero when nobody is eligible.
func ParticipationRate(voters, eligible *uint256.Int) (*uint256.Int, error) {
	if eligible.IsZero() {
		return new(uint256.Int), nil
	}
	scaled, err := math.Mul256(voters, hundred)
	if err != nil {
		return nil, fmt.Errorf("%w: participation of %s voters", ErrArithmeticOverflow, voters.Dec())
	}
	return scaled.Div(scaled, eligible), nil
}

// CheckQuorum reports whether totalVotes reaches quorumThreshold.
func CheckQuorum(totalVotes, quorumThreshold *uint256.Int) bool {
	return !totalVotes.Lt(quorumThreshold)
}
