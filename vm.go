// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package vm defines the lifecycle contracts of the virtual machines in this
// module.
package vm

import (
	"context"
	"net/http"

	"github.com/luxfi/database"
	"github.com/luxfi/ids"
	"github.com/luxfi/metric"
)

// VM defines the interface for a virtual machine
type VM interface {
	// Initialize initializes the VM with the given configuration
	Initialize(context.Context, *Config) error

	// Shutdown cleanly stops the VM
	Shutdown(context.Context) error

	// Version returns the VM version
	Version(context.Context) (string, error)

	// SetState transitions the VM to the specified state
	SetState(context.Context, State) error

	// CreateHandlers returns the HTTP handlers of the VM keyed by path
	CreateHandlers(context.Context) (map[string]http.Handler, error)

	// HealthCheck reports the VM's health
	HealthCheck(context.Context) (any, error)
}

// Config defines VM configuration
type Config struct {
	ChainID   ids.ID
	NetworkID uint32
	NodeID    ids.NodeID

	// DB is the VM's persistent database. The VM does not close it.
	DB database.Database
	// Metrics registers the VM's metrics. It must implement metric.Registry.
	// When nil the metrics are kept in a private registry.
	Metrics metric.Registerer

	// Genesis is the deployment manifest. It is applied only when the VM
	// first runs over an empty database.
	Genesis []byte
	// Config is the VM's JSON configuration.
	Config []byte
}
