// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package diamondvm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/luxfi/geth/common"
	"github.com/luxfi/ids"
	"github.com/luxfi/log"
	"github.com/luxfi/metric"
	"github.com/luxfi/utils"
	"github.com/luxfi/version"
	"github.com/rs/cors"

	"github.com/luxfi/diamondvm/utils/timer/mockable"
	"github.com/luxfi/diamondvm/vms/diamondvm/api"
	"github.com/luxfi/diamondvm/vms/diamondvm/config"
	"github.com/luxfi/diamondvm/vms/diamondvm/deploy"
	"github.com/luxfi/diamondvm/vms/diamondvm/diamond"
	"github.com/luxfi/diamondvm/vms/diamondvm/metrics"
	"github.com/luxfi/diamondvm/vms/diamondvm/selector"
	"github.com/luxfi/diamondvm/vms/diamondvm/state"

	luxvm "github.com/luxfi/diamondvm"
)

var (
	Version = &version.Semantic{
		Major: 1,
		Minor: 0,
		Patch: 0,
	}

	_ luxvm.VM = (*VM)(nil)
	_ api.VM   = (*VM)(nil)

	errUnknownState    = errors.New("unknown state")
	errNotInitialized  = errors.New("VM not initialized")
	errNotBootstrapped = errors.New("VM not bootstrapped")
	errShutdown        = errors.New("VM is shutting down")
	errNotRegistry     = errors.New("metrics registerer must implement metric.Registry")
)

// VM runs a single diamond over the chain's database. Every call is executed
// to completion and committed, or rolled back, before the next one starts.
type VM struct {
	config.Config

	log log.Logger

	// lock guards the lifecycle. Calls take it for reading; the diamond
	// serializes them.
	lock sync.RWMutex

	chainID ids.ID

	state *state.State

	// Used to stamp calls
	clock mockable.Clock

	diamond    *diamond.Diamond
	deployment *deploy.Deployment
	apiMetrics metrics.APIInterceptor

	initialized  bool
	bootstrapped utils.Atomic[bool]
	shutdown     bool
}

// Initialize opens the diamond stored in the chain's database. On first run
// the genesis manifest names the owner and the facets to install.
func (vm *VM) Initialize(_ context.Context, chainConfig *luxvm.Config) error {
	vm.lock.Lock()
	defer vm.lock.Unlock()

	if vm.log == nil {
		vm.log = log.NoLog{}
	}
	if err := vm.parseConfig(chainConfig.Config); err != nil {
		return err
	}
	manifest, err := deploy.ParseManifest(chainConfig.Genesis)
	if err != nil {
		return fmt.Errorf("failed to parse genesis: %w", err)
	}

	var registry metric.Registry
	switch registerer := chainConfig.Metrics.(type) {
	case nil:
		registry = metric.NewRegistry()
	case metric.Registry:
		registry = registerer
	default:
		return errNotRegistry
	}
	m, err := metrics.New(registry)
	if err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}
	vm.apiMetrics = metrics.NewAPIInterceptor(registry)

	vm.chainID = chainConfig.ChainID
	vm.state = state.New(chainConfig.DB)
	vm.diamond, err = diamond.New(diamond.Config{
		Log:            vm.log,
		State:          vm.state,
		Clock:          &vm.clock,
		Metrics:        m,
		RouteCacheSize: vm.RouteCacheSize,
		Owner:          manifest.Owner,
	})
	if err != nil {
		return fmt.Errorf("failed to open diamond: %w", err)
	}
	vm.deployment, err = deploy.Deploy(deploy.Config{
		Log:        vm.log,
		State:      vm.state,
		Diamond:    vm.diamond,
		Token:      vm.TokenFacet(),
		Governance: vm.GovernanceFacet(),
	}, manifest)
	if err != nil {
		return fmt.Errorf("failed to deploy %s: %w", manifest.DiamondName, err)
	}

	vm.initialized = true
	vm.log.Info("diamond VM initialized",
		log.Stringer("chainID", vm.chainID),
		log.String("version", Version.String()),
		log.String("diamond", manifest.DiamondName),
		log.Bool("installed", vm.deployment.Installed),
	)
	return nil
}

// parseConfig reads the JSON configuration over the defaults. Without one the
// VM keeps the configuration it was created with.
func (vm *VM) parseConfig(configBytes []byte) error {
	if len(configBytes) == 0 {
		if vm.Token.MaxSupply == nil {
			vm.Config = config.DefaultConfig()
		}
		return vm.Verify()
	}
	parsed, err := config.Parse(configBytes)
	if err != nil {
		return err
	}
	vm.Config = parsed
	return nil
}

// SetState transitions the VM between bootstrapping and normal operation.
func (vm *VM) SetState(_ context.Context, s luxvm.State) error {
	vm.lock.Lock()
	defer vm.lock.Unlock()

	switch s {
	case luxvm.Bootstrapping:
		vm.log.Info("diamond VM entering bootstrap state")
		vm.bootstrapped.Set(false)
		return nil
	case luxvm.NormalOp:
		vm.log.Info("diamond VM entering normal operation")
		vm.bootstrapped.Set(true)
		return nil
	default:
		return fmt.Errorf("%w: %s", errUnknownState, s)
	}
}

// Shutdown discards any pending writes and closes the VM's view of the
// database.
func (vm *VM) Shutdown(context.Context) error {
	vm.lock.Lock()
	defer vm.lock.Unlock()

	if vm.shutdown || !vm.initialized {
		vm.shutdown = true
		return nil
	}
	vm.shutdown = true
	vm.bootstrapped.Set(false)
	if err := vm.state.Close(); err != nil {
		return fmt.Errorf("failed to close state: %w", err)
	}
	vm.log.Info("diamond VM shutdown complete")
	return nil
}

// Version returns the VM version
func (*VM) Version(context.Context) (string, error) {
	return Version.String(), nil
}

// CreateHandlers returns the JSON-RPC handler.
func (vm *VM) CreateHandlers(context.Context) (map[string]http.Handler, error) {
	handler, err := api.NewHandler(api.NewService(vm.log, vm), vm.apiMetrics)
	if err != nil {
		return nil, err
	}
	return map[string]http.Handler{
		"/rpc": cors.New(cors.Options{
			AllowedOrigins: vm.AllowedOrigins,
		}).Handler(handler),
	}, nil
}

// Health is the result of HealthCheck.
type Health struct {
	Bootstrapped bool   `json:"bootstrapped"`
	Owner        string `json:"owner"`
	Facets       int    `json:"facets"`
	Selectors    int    `json:"selectors"`
}

// HealthCheck reports the routing table size. It fails until the VM is
// bootstrapped.
func (vm *VM) HealthCheck(context.Context) (any, error) {
	vm.lock.RLock()
	defer vm.lock.RUnlock()

	if err := vm.ready(); err != nil {
		return nil, err
	}
	facets, err := vm.diamond.Facets()
	if err != nil {
		return nil, err
	}
	owner, err := vm.diamond.Owner()
	if err != nil {
		return nil, err
	}
	health := &Health{
		Bootstrapped: vm.bootstrapped.Get(),
		Owner:        owner.Hex(),
		Facets:       len(facets),
	}
	for _, f := range facets {
		health.Selectors += len(f.Selectors)
	}
	if !health.Bootstrapped {
		return health, errNotBootstrapped
	}
	return health, nil
}

// Call executes a call against the diamond and commits it if it succeeds.
func (vm *VM) Call(ctx context.Context, call diamond.Call) (*diamond.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return vm.Dispatch(call)
}

// IsBootstrapped reports whether the VM accepts calls.
func (vm *VM) IsBootstrapped() bool {
	return vm.bootstrapped.Get()
}

// Dispatch executes a call against the diamond.
func (vm *VM) Dispatch(call diamond.Call) (*diamond.Result, error) {
	vm.lock.RLock()
	defer vm.lock.RUnlock()

	if err := vm.ready(); err != nil {
		return nil, err
	}
	return vm.diamond.Dispatch(call)
}

// View executes a call and discards its writes.
func (vm *VM) View(call diamond.Call) ([]byte, error) {
	vm.lock.RLock()
	defer vm.lock.RUnlock()

	if err := vm.ready(); err != nil {
		return nil, err
	}
	return vm.diamond.View(call)
}

func (vm *VM) Facets() ([]diamond.FacetInfo, error) {
	vm.lock.RLock()
	defer vm.lock.RUnlock()

	if err := vm.ready(); err != nil {
		return nil, err
	}
	return vm.diamond.Facets()
}

func (vm *VM) SupportsInterface(id selector.Selector) (bool, error) {
	vm.lock.RLock()
	defer vm.lock.RUnlock()

	if err := vm.ready(); err != nil {
		return false, err
	}
	return vm.diamond.SupportsInterface(id)
}

func (vm *VM) Owner() (common.Address, error) {
	vm.lock.RLock()
	defer vm.lock.RUnlock()

	if err := vm.ready(); err != nil {
		return common.Address{}, err
	}
	return vm.diamond.Owner()
}

// ready checks that the VM was initialized and is not shut down. vm.lock
// must be held.
func (vm *VM) ready() error {
	switch {
	case vm.shutdown:
		return errShutdown
	case !vm.initialized:
		return errNotInitialized
	default:
		return nil
	}
}
