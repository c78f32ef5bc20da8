// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package diamond

import (
	"errors"
	"fmt"
)

var (
	ErrUnsupportedSelector = errors.New("unsupported selector")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrInvalidCutAction    = errors.New("invalid cut action")
	ErrReentrancyBlocked   = errors.New("reentrancy blocked")
	ErrNonPayable          = errors.New("function is not payable")
	ErrInvalidCalldata     = errors.New("invalid calldata")
	ErrFacetExists         = errors.New("facet already deployed")
	ErrInvalidFacet        = errors.New("invalid facet")
	ErrAlreadyInstalled    = errors.New("diamond already installed")
)

// InvalidCalldata wraps an argument decoding failure.
func InvalidCalldata(err error) error {
	return fmt.Errorf("%w: %w", ErrInvalidCalldata, err)
}
