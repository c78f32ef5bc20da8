// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package api provides the JSON-RPC service of the Diamond VM.
package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/rpc/v2"
	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/common/hexutil"
	"github.com/luxfi/log"

	"github.com/luxfi/diamondvm/utils/json"
	"github.com/luxfi/diamondvm/vms/diamondvm/abi"
	"github.com/luxfi/diamondvm/vms/diamondvm/diamond"
	"github.com/luxfi/diamondvm/vms/diamondvm/facets/governance"
	"github.com/luxfi/diamondvm/vms/diamondvm/metrics"
	"github.com/luxfi/diamondvm/vms/diamondvm/selector"

	rpcjson "github.com/gorilla/rpc/v2/json"
)

// Namespace is the service name requests are addressed to, as in
// "diamond.GetProposalCount".
const Namespace = "diamond"

var ErrNotBootstrapped = errors.New("diamond not bootstrapped")

// VM is the view of the Diamond VM the service needs.
type VM interface {
	IsBootstrapped() bool
	Dispatch(call diamond.Call) (*diamond.Result, error)
	View(call diamond.Call) ([]byte, error)
	Facets() ([]diamond.FacetInfo, error)
	SupportsInterface(id selector.Selector) (bool, error)
	Owner() (common.Address, error)
}

// Service provides the RPC API for the Diamond VM. Reads go through the
// diamond as discarded calls, so they see exactly what a caller would.
type Service struct {
	log log.Logger
	vm  VM
}

// NewService creates a new API service.
func NewService(log log.Logger, vm VM) *Service {
	return &Service{
		log: log,
		vm:  vm,
	}
}

// NewHandler serves s over JSON-RPC. A nil interceptor records nothing.
func NewHandler(s *Service, interceptor metrics.APIInterceptor) (http.Handler, error) {
	server := rpc.NewServer()
	server.RegisterCodec(rpcjson.NewCodec(), "application/json")
	server.RegisterCodec(rpcjson.NewCodec(), "application/json;charset=UTF-8")
	if interceptor != nil {
		server.RegisterInterceptFunc(interceptor.InterceptRequest)
		server.RegisterAfterFunc(interceptor.AfterRequest)
	}
	return server, server.RegisterService(s, Namespace)
}

// CallArgs are the arguments to Call.
type CallArgs struct {
	From  common.Address `json:"from"`
	Value *uint256.Int   `json:"value"`
	Data  hexutil.Bytes  `json:"data"`
	// ReadOnly discards the call's writes.
	ReadOnly bool `json:"readOnly"`
}

// EventReply is an event emitted by a call.
type EventReply struct {
	Facet common.Address `json:"facet"`
	Name  string         `json:"name"`
	Data  hexutil.Bytes  `json:"data"`
}

// CallReply is the reply of Call.
type CallReply struct {
	ReturnData hexutil.Bytes `json:"returnData"`
	Events     []EventReply  `json:"events"`
}

// Call dispatches raw calldata to the diamond.
func (s *Service) Call(_ *http.Request, args *CallArgs, reply *CallReply) error {
	s.log.Debug("API called",
		"service", Namespace,
		"method", "call",
		"from", args.From,
		"readOnly", args.ReadOnly,
	)

	if !s.vm.IsBootstrapped() {
		return ErrNotBootstrapped
	}
	call := diamond.Call{
		Caller: args.From,
		Value:  args.Value,
		Data:   args.Data,
	}
	if args.ReadOnly {
		ret, err := s.vm.View(call)
		reply.ReturnData = ret
		return err
	}

	result, err := s.vm.Dispatch(call)
	if err != nil {
		return err
	}
	reply.ReturnData = result.ReturnData
	reply.Events = make([]EventReply, len(result.Events))
	for i, ev := range result.Events {
		reply.Events[i] = EventReply{
			Facet: ev.Facet,
			Name:  ev.Name,
			Data:  ev.Data,
		}
	}
	return nil
}

// SupportsInterfaceArgs are the arguments to SupportsInterface.
type SupportsInterfaceArgs struct {
	// InterfaceID is a 4-byte hex id such as "0x01ffc9a7".
	InterfaceID string `json:"interfaceID"`
}

// SupportsInterfaceReply is the reply of SupportsInterface.
type SupportsInterfaceReply struct {
	Supported bool `json:"supported"`
}

// SupportsInterface reports whether the diamond implements an ERC-165
// interface.
func (s *Service) SupportsInterface(_ *http.Request, args *SupportsInterfaceArgs, reply *SupportsInterfaceReply) error {
	id, err := selector.Parse(args.InterfaceID)
	if err != nil {
		return err
	}
	reply.Supported, err = s.vm.SupportsInterface(id)
	return err
}

// FacetReply is one facet and the selectors routed to it.
type FacetReply struct {
	Address   common.Address `json:"address"`
	Selectors []string       `json:"selectors"`
}

// FacetsReply is the reply of Facets.
type FacetsReply struct {
	Owner  common.Address `json:"owner"`
	Facets []FacetReply   `json:"facets"`
}

// Facets returns the routing table.
func (s *Service) Facets(_ *http.Request, _ *struct{}, reply *FacetsReply) error {
	facets, err := s.vm.Facets()
	if err != nil {
		return err
	}
	reply.Owner, err = s.vm.Owner()
	if err != nil {
		return err
	}
	reply.Facets = make([]FacetReply, len(facets))
	for i, f := range facets {
		selectors := make([]string, len(f.Selectors))
		for j, sel := range f.Selectors {
			selectors[j] = sel.String()
		}
		reply.Facets[i] = FacetReply{
			Address:   f.FacetAddress,
			Selectors: selectors,
		}
	}
	return nil
}

// VotingConfigReply is the reply of GetVotingConfig.
type VotingConfigReply struct {
	ProposalThreshold *uint256.Int `json:"proposalThreshold"`
	QuorumThreshold   *uint256.Int `json:"quorumThreshold"`
	// VotingPeriod is in seconds.
	VotingPeriod      json.Uint64  `json:"votingPeriod"`
	MaxVotesPerWallet *uint256.Int `json:"maxVotesPerWallet"`
}

// GetVotingConfig returns the governance configuration.
func (s *Service) GetVotingConfig(_ *http.Request, _ *struct{}, reply *VotingConfigReply) error {
	dec, err := s.view("getVotingConfig()")
	if err != nil {
		return err
	}
	config := dec.Tuple()
	reply.ProposalThreshold = config.Uint256()
	reply.QuorumThreshold = config.Uint256()
	reply.VotingPeriod = json.Uint64(config.Uint64())
	reply.MaxVotesPerWallet = config.Uint256()
	return config.Err()
}

// GetProposalCountReply is the reply of GetProposalCount.
type GetProposalCountReply struct {
	Count json.Uint64 `json:"count"`
}

// GetProposalCount returns the number of proposals.
func (s *Service) GetProposalCount(_ *http.Request, _ *struct{}, reply *GetProposalCountReply) error {
	dec, err := s.view("getProposalCount()")
	if err != nil {
		return err
	}
	reply.Count = json.Uint64(dec.Uint64())
	return dec.Err()
}

// GetProposalArgs are the arguments to GetProposal.
type GetProposalArgs struct {
	ID json.Uint64 `json:"id"`
}

// GetProposalReply is a proposal and its tally.
type GetProposalReply struct {
	ID              json.Uint64    `json:"id"`
	Title           string         `json:"title"`
	DescriptionRef  string         `json:"descriptionRef"`
	Proposer        common.Address `json:"proposer"`
	CreatedAt       json.Uint64    `json:"createdAt"`
	Deadline        json.Uint64    `json:"deadline"`
	State           string         `json:"state"`
	ForVotes        *uint256.Int   `json:"forVotes"`
	AgainstVotes    *uint256.Int   `json:"againstVotes"`
	Voters          json.Uint64    `json:"voters"`
	TokensCommitted *uint256.Int   `json:"tokensCommitted"`
}

// GetProposal returns a proposal.
func (s *Service) GetProposal(_ *http.Request, args *GetProposalArgs, reply *GetProposalReply) error {
	id := abi.Uint64(uint64(args.ID))
	dec, err := s.view("getProposalBasic(uint256)", id)
	if err != nil {
		return err
	}
	basic := dec.Tuple()
	reply.ID = json.Uint64(basic.Uint64())
	reply.Title = basic.Str()
	reply.DescriptionRef = basic.Str()
	reply.Proposer = basic.Address()
	reply.CreatedAt = json.Uint64(basic.Uint64())
	reply.Deadline = json.Uint64(basic.Uint64())
	reply.State = governance.ProposalState(basic.Uint8()).String()
	if err := basic.Err(); err != nil {
		return err
	}

	dec, err = s.view("getProposalVotes(uint256)", id)
	if err != nil {
		return err
	}
	reply.ForVotes = dec.Uint256()
	reply.AgainstVotes = dec.Uint256()
	reply.Voters = json.Uint64(dec.Uint64())
	reply.TokensCommitted = dec.Uint256()
	return dec.Err()
}

// BalanceReply is an amount of the token or of the treasury.
type BalanceReply struct {
	Balance *uint256.Int `json:"balance"`
}

// GetTreasuryBalance returns the treasury balance.
func (s *Service) GetTreasuryBalance(_ *http.Request, _ *struct{}, reply *BalanceReply) error {
	dec, err := s.view("getTreasuryBalance()")
	if err != nil {
		return err
	}
	reply.Balance = dec.Uint256()
	return dec.Err()
}

// BalanceOfArgs are the arguments to BalanceOf.
type BalanceOfArgs struct {
	Address common.Address `json:"address"`
}

// BalanceOf returns an account's token balance.
func (s *Service) BalanceOf(_ *http.Request, args *BalanceOfArgs, reply *BalanceReply) error {
	dec, err := s.view("balanceOf(address)", abi.Address(args.Address))
	if err != nil {
		return err
	}
	reply.Balance = dec.Uint256()
	return dec.Err()
}

// HealthReply is the reply of Health.
type HealthReply struct {
	Healthy      bool `json:"healthy"`
	Bootstrapped bool `json:"bootstrapped"`
	Facets       int  `json:"facets"`
}

// Health reports whether the diamond can serve calls.
func (s *Service) Health(_ *http.Request, _ *struct{}, reply *HealthReply) error {
	reply.Bootstrapped = s.vm.IsBootstrapped()
	facets, err := s.vm.Facets()
	if err != nil {
		return err
	}
	reply.Facets = len(facets)
	reply.Healthy = reply.Bootstrapped && len(facets) > 0
	return nil
}

func (s *Service) view(signature string, args ...abi.Value) (*abi.Decoder, error) {
	ret, err := s.vm.View(diamond.Call{Data: abi.PackCall(signature, args...)})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", signature, err)
	}
	return abi.NewDecoder(ret), nil
}
