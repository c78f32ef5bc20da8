// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package config defines configuration types for the Diamond VM.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/holiman/uint256"

	"github.com/luxfi/diamondvm/vms/diamondvm/facets/governance"
	"github.com/luxfi/diamondvm/vms/diamondvm/facets/token"

	utilsjson "github.com/luxfi/diamondvm/utils/json"
)

var (
	errMissingAmount        = errors.New("missing amount")
	errInitialAboveMax      = errors.New("initial supply exceeds max supply")
	errNonPositivePeriod    = errors.New("voting period must be positive")
	errZeroMaxVotes         = errors.New("max votes per wallet must be positive")
	errNegativeRouteCache   = errors.New("route cache size must not be negative")
	errInvalidConfiguration = errors.New("invalid configuration")
)

// Config contains configuration parameters for the Diamond VM. Amounts are
// 18 decimal token amounts written as decimal strings.
type Config struct {
	// RouteCacheSize is the number of committed selector routes kept in
	// memory. Zero selects the default.
	RouteCacheSize int `json:"routeCacheSize"`

	// AllowedOrigins are the CORS origins allowed to call the API.
	AllowedOrigins []string `json:"allowedOrigins"`

	Token      TokenConfig      `json:"token"`
	Governance GovernanceConfig `json:"governance"`
}

// TokenConfig configures the governance token facet.
type TokenConfig struct {
	InitialSupply *uint256.Int `json:"initialSupply"`
	MaxSupply     *uint256.Int `json:"maxSupply"`
}

// GovernanceConfig configures the proposal ledger.
type GovernanceConfig struct {
	ProposalThreshold *uint256.Int       `json:"proposalThreshold"`
	QuorumThreshold   *uint256.Int       `json:"quorumThreshold"`
	VotingPeriod      utilsjson.Duration `json:"votingPeriod"`
	MaxVotesPerWallet utilsjson.Uint64   `json:"maxVotesPerWallet"`
}

// DefaultConfig returns the default configuration for the Diamond VM.
func DefaultConfig() Config {
	tokens := token.DefaultConfig()
	gov := governance.DefaultConfig()
	return Config{
		RouteCacheSize: 1024,
		AllowedOrigins: []string{"*"},
		Token: TokenConfig{
			InitialSupply: tokens.InitialSupply, // 1,000 tokens
			MaxSupply:     tokens.MaxSupply,     // 50,000,000 tokens
		},
		Governance: GovernanceConfig{
			ProposalThreshold: gov.ProposalThreshold, // 1,000 tokens
			QuorumThreshold:   gov.QuorumThreshold,   // 100,000 tokens
			VotingPeriod:      utilsjson.Duration(gov.VotingPeriod),
			MaxVotesPerWallet: utilsjson.Uint64(gov.MaxVotesPerWallet),
		},
	}
}

// Parse reads a JSON configuration over the defaults. Empty input yields the
// defaults.
func Parse(b []byte) (Config, error) {
	config := DefaultConfig()
	if len(b) == 0 {
		return config, nil
	}
	if err := json.Unmarshal(b, &config); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	return config, config.Verify()
}

// Verify checks that the configuration is usable.
func (c Config) Verify() error {
	var errs []error
	for name, amount := range map[string]*uint256.Int{
		"token.initialSupply":          c.Token.InitialSupply,
		"token.maxSupply":              c.Token.MaxSupply,
		"governance.proposalThreshold": c.Governance.ProposalThreshold,
		"governance.quorumThreshold":   c.Governance.QuorumThreshold,
	} {
		if amount == nil {
			errs = append(errs, fmt.Errorf("%w: %s", errMissingAmount, name))
		}
	}
	if c.Token.InitialSupply != nil && c.Token.MaxSupply != nil && c.Token.InitialSupply.Gt(c.Token.MaxSupply) {
		errs = append(errs, errInitialAboveMax)
	}
	if c.Governance.VotingPeriod <= 0 {
		errs = append(errs, errNonPositivePeriod)
	}
	if c.Governance.MaxVotesPerWallet == 0 {
		errs = append(errs, errZeroMaxVotes)
	}
	if c.RouteCacheSize < 0 {
		errs = append(errs, errNegativeRouteCache)
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", errInvalidConfiguration, err)
	}
	return nil
}

// TokenFacet returns the token facet configuration.
func (c Config) TokenFacet() token.Config {
	return token.Config{
		InitialSupply: c.Token.InitialSupply,
		MaxSupply:     c.Token.MaxSupply,
	}
}

// GovernanceFacet returns the governance facet configuration.
func (c Config) GovernanceFacet() governance.Config {
	return governance.Config{
		ProposalThreshold: c.Governance.ProposalThreshold,
		QuorumThreshold:   c.Governance.QuorumThreshold,
		VotingPeriod:      time.Duration(c.Governance.VotingPeriod),
		MaxVotesPerWallet: uint64(c.Governance.MaxVotesPerWallet),
	}
}
