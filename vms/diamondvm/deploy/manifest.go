// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package deploy

import (
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/luxfi/geth/common"
)

var (
	errMissingOwner  = errors.New("manifest has no owner")
	errNoFacets      = errors.New("manifest names no facets")
	errMissingTokens = errors.New("token initialization requires a name and symbol")
)

// Manifest names the facets a diamond is deployed with.
type Manifest struct {
	DiamondName string                 `json:"diamondName"`
	Owner       common.Address         `json:"owner"`
	Facets      map[string]FacetConfig `json:"facets"`

	// Init, if set, runs the protocol initializers after installation.
	Init *InitConfig `json:"init,omitempty"`
}

// FacetConfig places one facet in the initial installation.
type FacetConfig struct {
	// Priority orders installation; lower values are installed first.
	Priority int `json:"priority"`
	// Exclude lists function signatures that are not routed.
	Exclude []string `json:"exclude,omitempty"`
}

// InitConfig holds the arguments of the protocol initializers.
type InitConfig struct {
	TokenName   string `json:"tokenName"`
	TokenSymbol string `json:"tokenSymbol"`
	// Admin may execute passed proposals. It defaults to the owner.
	Admin common.Address `json:"admin"`
}

// ParseManifest reads a JSON manifest.
func ParseManifest(b []byte) (*Manifest, error) {
	m := &Manifest{}
	if err := json.Unmarshal(b, m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	return m, m.Verify()
}

// Verify checks the manifest's shape. Facet names are checked against the
// catalog when deploying.
func (m *Manifest) Verify() error {
	switch {
	case m.Owner == (common.Address{}):
		return errMissingOwner
	case len(m.Facets) == 0:
		return errNoFacets
	case m.Init != nil && (m.Init.TokenName == "" || m.Init.TokenSymbol == ""):
		return errMissingTokens
	default:
		return nil
	}
}

// Order returns the facet names by priority, then by name.
func (m *Manifest) Order() []string {
	names := make([]string, 0, len(m.Facets))
	for name := range m.Facets {
		names = append(names, name)
	}
	slices.SortFunc(names, func(a, b string) int {
		if c := cmp.Compare(m.Facets[a].Priority, m.Facets[b].Priority); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
	return names
}
