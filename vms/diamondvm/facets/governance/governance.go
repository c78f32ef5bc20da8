// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package governance implements the proposal ledger. Token holders above the
// proposal threshold open proposals; holders buy votes on them quadratically
// with their voting power; once the voting period ends a proposal passes if
// enough tokens were committed and more votes were cast for than against.
package governance

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/luxfi/database"
	"github.com/luxfi/geth/common"

	"github.com/luxfi/diamondvm/utils/math"
	"github.com/luxfi/diamondvm/utils/units"
	"github.com/luxfi/diamondvm/vms/diamondvm/abi"
	"github.com/luxfi/diamondvm/vms/diamondvm/diamond"
	"github.com/luxfi/diamondvm/vms/diamondvm/facets/token"
	"github.com/luxfi/diamondvm/vms/diamondvm/facets/voting"
	"github.com/luxfi/diamondvm/vms/diamondvm/selector"
	"github.com/luxfi/diamondvm/vms/diamondvm/state"
)

const (
	// Name is the facet name used in deployment manifests.
	Name = "GovernanceFacet"
	// Partition is the storage partition of the proposal ledger.
	Partition = "governance"
)

const (
	configKey      = "c"
	countKey       = "n"
	proposalPrefix = "p"
	votePrefix     = "v"
)

var (
	_ diamond.Facet = (*Facet)(nil)

	ErrInsufficientTokensForProposal = errors.New("insufficient tokens for proposal")
	ErrProposalNotFound              = errors.New("proposal not found")
	ErrNotInitialized                = errors.New("governance not initialized")
	ErrAlreadyInitialized            = errors.New("governance already initialized")
	ErrAlreadyVoted                  = errors.New("already voted")
	ErrVotingClosed                  = errors.New("voting closed")
	ErrVotingOpen                    = errors.New("voting still open")
	ErrInvalidVote                   = errors.New("invalid vote")
	ErrInvalidProposalState          = errors.New("invalid proposal state")

	// oneToken converts whole tokens to 18 decimal amounts.
	oneToken = uint256.NewInt(units.Unit)

	IGovernance = selector.NewInterface("IGovernance",
		"propose(string,string)",
		"castVote(uint256,bool,uint256)",
		"finalizeProposal(uint256)",
		"executeProposal(uint256)",
		"getProposalCount()",
		"getProposalBasic(uint256)",
		"getVotingConfig()",
	)
)

// Facet is the proposal ledger. It reads voting power through the token's
// read-only view and writes only its own partition.
type Facet struct {
	db     database.Database
	tokens token.Reader
	config Config
}

func New(db database.Database, tokens token.Reader, config Config) *Facet {
	return &Facet{
		db:     db,
		tokens: tokens,
		config: config,
	}
}

func (*Facet) Name() string { return Name }

func (f *Facet) Functions() []diamond.Function {
	return []diamond.Function{
		{Signature: "initializeGovernance(address)", Handler: f.initialize},
		{Signature: "propose(string,string)", Handler: f.propose},
		{Signature: "castVote(uint256,bool,uint256)", Handler: f.castVote},
		{Signature: "finalizeProposal(uint256)", Handler: f.finalize},
		{Signature: "executeProposal(uint256)", Handler: f.execute},
		{Signature: "getProposalCount()", Handler: f.getProposalCount},
		{Signature: "getProposalBasic(uint256)", Handler: f.getProposalBasic},
		{Signature: "getProposalVotes(uint256)", Handler: f.getProposalVotes},
		{Signature: "hasVoted(uint256,address)", Handler: f.hasVoted},
		{Signature: "getVotingConfig()", Handler: f.getVotingConfig},
	}
}

func (*Facet) Interfaces() []selector.Interface {
	return []selector.Interface{IGovernance}
}

func (f *Facet) initialize(ctx *diamond.CallContext, input []byte) ([]byte, error) {
	if err := ctx.RequireAuthority(); err != nil {
		return nil, err
	}
	dec := abi.NewDecoder(input)
	admin := dec.Address()
	if err := dec.Err(); err != nil {
		return nil, diamond.InvalidCalldata(err)
	}

	has, err := f.db.Has([]byte(configKey))
	if err != nil {
		return nil, err
	}
	if has {
		return nil, ErrAlreadyInitialized
	}
	config := &VotingConfig{
		Admin:        admin,
		VotingPeriod: uint64(f.config.VotingPeriod.Seconds()),
	}
	config.ProposalThreshold.Set(f.config.ProposalThreshold)
	config.QuorumThreshold.Set(f.config.QuorumThreshold)
	config.MaxVotesPerWallet.SetUint64(f.config.MaxVotesPerWallet)
	if err := f.put([]byte(configKey), config); err != nil {
		return nil, err
	}
	ctx.Emit("GovernanceInitialized", abi.Address(admin))
	return nil, nil
}

func (f *Facet) propose(ctx *diamond.CallContext, input []byte) ([]byte, error) {
	dec := abi.NewDecoder(input)
	title := dec.Str()
	descriptionRef := dec.Str()
	if err := dec.Err(); err != nil {
		return nil, diamond.InvalidCalldata(err)
	}

	config, err := f.VotingConfig()
	if err != nil {
		return nil, err
	}
	power, err := f.tokens.VotingPower(ctx.Caller)
	if err != nil {
		return nil, err
	}
	if power.Lt(&config.ProposalThreshold) {
		return nil, fmt.Errorf("%w: %s has %s, needs %s",
			ErrInsufficientTokensForProposal, ctx.Caller, power.Dec(), config.ProposalThreshold.Dec())
	}

	id, err := f.ProposalCount()
	if err != nil {
		return nil, err
	}
	deadline, err := math.Add(ctx.Timestamp, config.VotingPeriod)
	if err != nil {
		return nil, fmt.Errorf("voting deadline: %w", err)
	}
	p := &Proposal{
		ID:             id,
		Title:          title,
		DescriptionRef: descriptionRef,
		Proposer:       ctx.Caller,
		CreatedAt:      ctx.Timestamp,
		Deadline:       deadline,
		State:          Pending,
	}
	if err := f.putProposal(p); err != nil {
		return nil, err
	}
	if err := state.PutUint64(f.db, []byte(countKey), id+1); err != nil {
		return nil, err
	}
	ctx.Emit("ProposalCreated", abi.Uint64(id), abi.Address(ctx.Caller), abi.String(title))
	return abi.Pack(abi.Uint64(id)), nil
}

func (f *Facet) castVote(ctx *diamond.CallContext, input []byte) ([]byte, error) {
	dec := abi.NewDecoder(input)
	id := dec.Uint256()
	support := dec.Bool()
	votes := dec.Uint256()
	if err := dec.Err(); err != nil {
		return nil, diamond.InvalidCalldata(err)
	}

	config, err := f.VotingConfig()
	if err != nil {
		return nil, err
	}
	p, err := f.Proposal(id)
	if err != nil {
		return nil, err
	}
	if !p.State.Open() || ctx.Timestamp >= p.Deadline {
		return nil, fmt.Errorf("%w: proposal %d is %s with deadline %d", ErrVotingClosed, p.ID, p.State, p.Deadline)
	}
	voteKey := state.Key(votePrefix, state.Uint64Key(p.ID), ctx.Caller[:])
	voted, err := f.db.Has(voteKey)
	if err != nil {
		return nil, err
	}
	if voted {
		return nil, fmt.Errorf("%w: %s on proposal %d", ErrAlreadyVoted, ctx.Caller, p.ID)
	}
	if votes.IsZero() {
		return nil, fmt.Errorf("%w: zero votes", ErrInvalidVote)
	}

	power, err := f.tokens.VotingPower(ctx.Caller)
	if err != nil {
		return nil, err
	}
	budget := new(uint256.Int).Div(power, oneToken)
	valid, cost, err := voting.ValidateVote(votes, &config.MaxVotesPerWallet, budget)
	if err != nil {
		return nil, err
	}
	if !valid {
		return nil, fmt.Errorf("%w: %s votes cost %s tokens, budget %s, cap %s",
			ErrInvalidVote, votes.Dec(), cost.Dec(), budget.Dec(), config.MaxVotesPerWallet.Dec())
	}

	// cost <= budget = power / 10^18, so this cannot overflow.
	committed := new(uint256.Int).Mul(cost, oneToken)
	if _, overflow := p.TokensCommitted.AddOverflow(&p.TokensCommitted, committed); overflow {
		return nil, fmt.Errorf("%w: tokens committed to proposal %d", voting.ErrArithmeticOverflow, p.ID)
	}
	tally := &p.AgainstVotes
	if support {
		tally = &p.ForVotes
	}
	if _, overflow := tally.AddOverflow(tally, votes); overflow {
		return nil, fmt.Errorf("%w: tally of proposal %d", voting.ErrArithmeticOverflow, p.ID)
	}
	p.Voters++
	p.State = Active

	if err := f.putProposal(p); err != nil {
		return nil, err
	}
	vote := &Vote{Support: support}
	vote.Votes.Set(votes)
	vote.Cost.Set(cost)
	if err := f.put(voteKey, vote); err != nil {
		return nil, err
	}
	ctx.Emit("VoteCast",
		abi.Address(ctx.Caller),
		abi.Uint64(p.ID),
		abi.Bool(support),
		abi.Uint256(votes),
		abi.Uint256(cost),
	)
	return nil, nil
}

func (f *Facet) finalize(ctx *diamond.CallContext, input []byte) ([]byte, error) {
	id, err := decodeID(input)
	if err != nil {
		return nil, err
	}
	config, err := f.VotingConfig()
	if err != nil {
		return nil, err
	}
	p, err := f.Proposal(id)
	if err != nil {
		return nil, err
	}
	if !p.State.Open() {
		return nil, fmt.Errorf("%w: proposal %d is already %s", ErrInvalidProposalState, p.ID, p.State)
	}
	if ctx.Timestamp < p.Deadline {
		return nil, fmt.Errorf("%w: proposal %d until %d", ErrVotingOpen, p.ID, p.Deadline)
	}

	p.State = Rejected
	if voting.CheckQuorum(&p.TokensCommitted, &config.QuorumThreshold) && p.ForVotes.Gt(&p.AgainstVotes) {
		p.State = Passed
	}
	if err := f.putProposal(p); err != nil {
		return nil, err
	}
	ctx.Emit("ProposalFinalized", abi.Uint64(p.ID), abi.Uint8(uint8(p.State)))
	return abi.Pack(abi.Uint8(uint8(p.State))), nil
}

func (f *Facet) execute(ctx *diamond.CallContext, input []byte) ([]byte, error) {
	id, err := decodeID(input)
	if err != nil {
		return nil, err
	}
	config, err := f.VotingConfig()
	if err != nil {
		return nil, err
	}
	if ctx.Caller != config.Admin {
		if err := ctx.RequireAuthority(); err != nil {
			return nil, err
		}
	}
	p, err := f.Proposal(id)
	if err != nil {
		return nil, err
	}
	if p.State != Passed {
		return nil, fmt.Errorf("%w: proposal %d is %s, not %s", ErrInvalidProposalState, p.ID, p.State, Passed)
	}
	p.State = Executed
	if err := f.putProposal(p); err != nil {
		return nil, err
	}
	ctx.Emit("ProposalExecuted", abi.Uint64(p.ID))
	return nil, nil
}

func (f *Facet) getProposalCount(*diamond.CallContext, []byte) ([]byte, error) {
	count, err := f.ProposalCount()
	return abi.Pack(abi.Uint64(count)), err
}

func (f *Facet) getProposalBasic(_ *diamond.CallContext, input []byte) ([]byte, error) {
	id, err := decodeID(input)
	if err != nil {
		return nil, err
	}
	p, err := f.Proposal(id)
	if err != nil {
		return nil, err
	}
	return abi.Pack(abi.Tuple(
		abi.Uint64(p.ID),
		abi.String(p.Title),
		abi.String(p.DescriptionRef),
		abi.Address(p.Proposer),
		abi.Uint64(p.CreatedAt),
		abi.Uint64(p.Deadline),
		abi.Uint8(uint8(p.State)),
	)), nil
}

func (f *Facet) getProposalVotes(_ *diamond.CallContext, input []byte) ([]byte, error) {
	id, err := decodeID(input)
	if err != nil {
		return nil, err
	}
	p, err := f.Proposal(id)
	if err != nil {
		return nil, err
	}
	return abi.Pack(
		abi.Uint256(&p.ForVotes),
		abi.Uint256(&p.AgainstVotes),
		abi.Uint64(p.Voters),
		abi.Uint256(&p.TokensCommitted),
	), nil
}

func (f *Facet) hasVoted(_ *diamond.CallContext, input []byte) ([]byte, error) {
	dec := abi.NewDecoder(input)
	id := dec.Uint256()
	voter := dec.Address()
	if err := dec.Err(); err != nil {
		return nil, diamond.InvalidCalldata(err)
	}
	// Ids beyond uint64 never name a proposal.
	if !id.IsUint64() {
		return abi.Pack(abi.Bool(false)), nil
	}
	voted, err := f.db.Has(state.Key(votePrefix, state.Uint64Key(id.Uint64()), voter[:]))
	return abi.Pack(abi.Bool(voted)), err
}

func (f *Facet) getVotingConfig(*diamond.CallContext, []byte) ([]byte, error) {
	config, err := f.VotingConfig()
	if err != nil {
		return nil, err
	}
	return abi.Pack(abi.Tuple(
		abi.Uint256(&config.ProposalThreshold),
		abi.Uint256(&config.QuorumThreshold),
		abi.Uint64(config.VotingPeriod),
		abi.Uint256(&config.MaxVotesPerWallet),
	)), nil
}

// VotingConfig returns the configuration fixed at initialization.
func (f *Facet) VotingConfig() (*VotingConfig, error) {
	config := &VotingConfig{}
	ok, err := f.get([]byte(configKey), config)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotInitialized
	}
	return config, nil
}

// ProposalCount returns the number of proposals ever created.
func (f *Facet) ProposalCount() (uint64, error) {
	return state.GetUint64(f.db, []byte(countKey))
}

// Proposal returns the proposal with the given id.
func (f *Facet) Proposal(id *uint256.Int) (*Proposal, error) {
	if !id.IsUint64() {
		return nil, fmt.Errorf("%w: %s", ErrProposalNotFound, id.Dec())
	}
	p := &Proposal{}
	ok, err := f.get(state.Key(proposalPrefix, state.Uint64Key(id.Uint64())), p)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrProposalNotFound, id.Uint64())
	}
	return p, nil
}

// Vote returns the ballot voter cast on proposal id, if any.
func (f *Facet) Vote(id uint64, voter common.Address) (*Vote, bool, error) {
	vote := &Vote{}
	ok, err := f.get(state.Key(votePrefix, state.Uint64Key(id), voter[:]), vote)
	return vote, ok, err
}

func (f *Facet) putProposal(p *Proposal) error {
	return f.put(state.Key(proposalPrefix, state.Uint64Key(p.ID)), p)
}

func (f *Facet) put(key []byte, v any) error {
	b, err := Codec.Marshal(codecVersion, v)
	if err != nil {
		return err
	}
	return f.db.Put(key, b)
}

func (f *Facet) get(key []byte, v any) (bool, error) {
	b, ok, err := state.GetBytes(f.db, key)
	if err != nil || !ok {
		return false, err
	}
	if _, err := Codec.Unmarshal(b, v); err != nil {
		return false, fmt.Errorf("%w: %w", state.ErrStateCorrupted, err)
	}
	return true, nil
}

func decodeID(input []byte) (*uint256.Int, error) {
	dec := abi.NewDecoder(input)
	id := dec.Uint256()
	if err := dec.Err(); err != nil {
		return nil, diamond.InvalidCalldata(err)
	}
	return id, nil
}
