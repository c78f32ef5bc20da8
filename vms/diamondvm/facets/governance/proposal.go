// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package governance

import (
	"fmt"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
)

// ProposalState is the lifecycle stage of a proposal.
type ProposalState uint8

const (
	Pending ProposalState = iota
	Active
	Passed
	Rejected
	Executed
)

func (s ProposalState) String() string {
	switch s {
	case Pending:
		return "pending"
	case Active:
		return "active"
	case Passed:
		return "passed"
	case Rejected:
		return "rejected"
	case Executed:
		return "executed"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// Open reports whether the proposal still accepts votes, deadline aside.
func (s ProposalState) Open() bool {
	return s == Pending || s == Active
}

// VotingConfig is fixed when governance is initialized.
type VotingConfig struct {
	Admin             common.Address `serialize:"true"`
	ProposalThreshold uint256.Int    `serialize:"true"`
	QuorumThreshold   uint256.Int    `serialize:"true"`
	VotingPeriod      uint64         `serialize:"true"` // seconds
	MaxVotesPerWallet uint256.Int    `serialize:"true"`
}

// Proposal is a governance proposal and its tally.
type Proposal struct {
	ID             uint64         `serialize:"true"`
	Title          string         `serialize:"true"`
	DescriptionRef string         `serialize:"true"`
	Proposer       common.Address `serialize:"true"`
	CreatedAt      uint64         `serialize:"true"`
	Deadline       uint64         `serialize:"true"`

	ForVotes        uint256.Int `serialize:"true"`
	AgainstVotes    uint256.Int `serialize:"true"`
	Voters          uint64      `serialize:"true"`
	TokensCommitted uint256.Int `serialize:"true"`

	State ProposalState `serialize:"true"`
}

// Vote is the ballot one voter cast on one proposal.
type Vote struct {
	Support bool        `serialize:"true"`
	Votes   uint256.Int `serialize:"true"`
	Cost    uint256.Int `serialize:"true"`
}
