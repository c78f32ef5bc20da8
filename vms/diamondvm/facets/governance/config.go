// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package governance

import (
	"time"

	"github.com/holiman/uint256"

	"github.com/luxfi/diamondvm/utils/units"
)

// Config holds the defaults applied by initializeGovernance.
type Config struct {
	// ProposalThreshold is the voting power needed to propose.
	ProposalThreshold *uint256.Int
	// QuorumThreshold is the amount of tokens that must be spent on votes
	// for a proposal to pass.
	QuorumThreshold *uint256.Int
	// VotingPeriod is how long a proposal accepts votes.
	VotingPeriod time.Duration
	// MaxVotesPerWallet caps the votes a single voter may cast on one
	// proposal.
	MaxVotesPerWallet uint64
}

func DefaultConfig() Config {
	return Config{
		ProposalThreshold: units.Tokens(1_000),
		QuorumThreshold:   units.Tokens(100_000),
		VotingPeriod:      7 * 24 * time.Hour,
		MaxVotesPerWallet: 100,
	}
}
