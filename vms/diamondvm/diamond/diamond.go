// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package diamond implements a facet-dispatch proxy. Calls are routed by
// their 4-byte selector to the facet that owns it and executed against the
// diamond's storage. Every call is atomic: its writes are committed when it
// succeeds and discarded when it fails.
package diamond

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/holiman/uint256"
	"github.com/luxfi/cache"
	"github.com/luxfi/cache/lru"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/log"

	"github.com/luxfi/diamondvm/utils/timer/mockable"
	"github.com/luxfi/diamondvm/vms/diamondvm/metrics"
	"github.com/luxfi/diamondvm/vms/diamondvm/selector"
	"github.com/luxfi/diamondvm/vms/diamondvm/state"
)

const (
	// Partition is the storage partition holding the routing table and owner.
	Partition = "diamond"

	defaultRouteCacheSize = 1024
)

var errZeroOwner = errors.New("owner is the zero address")

// Config holds the collaborators of a diamond.
type Config struct {
	Log     log.Logger
	State   *state.State
	Clock   *mockable.Clock
	Metrics *metrics.Metrics

	// RouteCacheSize bounds the number of committed routes kept in memory.
	// Zero selects the default.
	RouteCacheSize int

	// Owner becomes the authority the first time the diamond is created
	// over empty storage. It is ignored when reopening existing storage.
	Owner common.Address
}

// Call is an inbound call to the diamond.
type Call struct {
	Caller common.Address
	Value  *uint256.Int
	Data   []byte
}

// Result is the outcome of a successful call.
type Result struct {
	ReturnData []byte
	Events     []Event
}

type deployedFacet struct {
	name       string
	declared   []Function
	functions  map[selector.Selector]Function
	interfaces []selector.Interface
}

// Diamond is the proxy. It owns the routing table; facets only ever see the
// storage partitions they were built with.
type Diamond struct {
	log     log.Logger
	state   *state.State
	clock   *mockable.Clock
	metrics *metrics.Metrics

	registry *registry
	// routes caches committed selector routes. It is flushed whenever a
	// cut is committed.
	routes cache.Cacher[selector.Selector, common.Address]

	// lock serializes calls. entered is set for the duration of a call so
	// nested calls through a CallContext are rejected.
	lock    sync.Mutex
	entered bool
	cut     bool

	facets map[common.Address]*deployedFacet
}

// New creates a diamond over the given state. On first use it records the
// owner and routes diamondCut, so the owner can install everything else.
func New(config Config) (*Diamond, error) {
	db, err := config.State.Partition(Partition)
	if err != nil {
		return nil, err
	}
	if config.Log == nil {
		config.Log = log.NoLog{}
	}
	if config.Clock == nil {
		config.Clock = &mockable.Clock{}
	}
	if config.RouteCacheSize <= 0 {
		config.RouteCacheSize = defaultRouteCacheSize
	}

	d := &Diamond{
		log:      config.Log,
		state:    config.State,
		clock:    config.Clock,
		metrics:  config.Metrics,
		registry: &registry{db: db},
		routes:   lru.NewCache[selector.Selector, common.Address](config.RouteCacheSize),
		facets:   make(map[common.Address]*deployedFacet),
	}
	for _, f := range []Facet{&cutFacet{d: d}, &loupeFacet{d: d}, &ownershipFacet{}} {
		if _, err := d.Deploy(f); err != nil {
			return nil, err
		}
	}

	initialized, err := d.registry.initialized()
	if err != nil {
		return nil, err
	}
	if !initialized {
		if err := d.bootstrap(config.Owner); err != nil {
			d.state.Abort()
			return nil, fmt.Errorf("failed to bootstrap diamond: %w", err)
		}
	}

	if err := d.updateRouteMetrics(); err != nil {
		return nil, err
	}
	owner, err := d.registry.owner()
	if err != nil {
		return nil, err
	}
	d.log.Info("diamond ready",
		"owner", owner,
		"bootstrapped", !initialized,
	)
	return d, nil
}

func (d *Diamond) bootstrap(owner common.Address) error {
	if owner == (common.Address{}) {
		return errZeroOwner
	}
	if err := d.registry.setOwner(owner); err != nil {
		return err
	}
	cut := selector.FromSignature(DiamondCutSignature)
	if err := d.registry.add(FacetAddress(CutFacetName), cut); err != nil {
		return err
	}
	return d.state.Commit()
}

// Deploy makes a facet's code available at its address so cuts can route
// selectors to it. Deployment does not route anything and is not persisted;
// facets are deployed again every time the diamond is opened.
func (d *Diamond) Deploy(f Facet) (common.Address, error) {
	name := f.Name()
	if name == "" {
		return common.Address{}, fmt.Errorf("%w: empty name", ErrInvalidFacet)
	}
	addr := FacetAddress(name)

	declared := f.Functions()
	functions := make(map[selector.Selector]Function, len(declared))
	for _, fn := range declared {
		if fn.Handler == nil {
			return common.Address{}, fmt.Errorf("%w: %s has no handler for %s", ErrInvalidFacet, name, fn.Signature)
		}
		sel := fn.Selector()
		if prev, ok := functions[sel]; ok {
			return common.Address{}, fmt.Errorf("%w: %s declares %s and %s with selector %s",
				ErrInvalidFacet, name, prev.Signature, fn.Signature, sel)
		}
		functions[sel] = fn
	}

	d.lock.Lock()
	defer d.lock.Unlock()

	if _, ok := d.facets[addr]; ok {
		return common.Address{}, fmt.Errorf("%w: %s at %s", ErrFacetExists, name, addr)
	}
	d.facets[addr] = &deployedFacet{
		name:       name,
		declared:   declared,
		functions:  functions,
		interfaces: f.Interfaces(),
	}

	d.log.Debug("facet deployed",
		"name", name,
		"address", addr,
		"functions", len(functions),
	)
	return addr, nil
}

// Dispatch executes a call. It is the only entry point to facet logic.
func (d *Diamond) Dispatch(call Call) (*Result, error) {
	d.lock.Lock()
	defer d.lock.Unlock()

	return d.dispatch(call, true)
}

// View executes a call and discards its writes, even when it succeeds.
func (d *Diamond) View(call Call) ([]byte, error) {
	d.lock.Lock()
	defer d.lock.Unlock()

	result, err := d.dispatch(call, false)
	if err != nil {
		return nil, err
	}
	return result.ReturnData, nil
}

func (d *Diamond) dispatch(call Call, commit bool) (*Result, error) {
	d.entered = true
	d.cut = false
	defer func() {
		d.entered = false
		d.cut = false
	}()

	result, err := d.execute(call)
	if commit {
		d.metrics.MarkCall(err)
	}
	if err != nil || !commit {
		d.state.Abort()
		if err != nil {
			d.log.Debug("call reverted",
				"caller", call.Caller,
				"data", common.Bytes2Hex(head(call.Data)),
				"error", err,
			)
		}
		return result, err
	}
	if err := d.state.Commit(); err != nil {
		d.state.Abort()
		return nil, err
	}

	if d.cut {
		d.routes.Flush()
		d.metrics.MarkCut()
		if err := d.updateRouteMetrics(); err != nil {
			d.log.Warn("failed to read routing table", "error", err)
		}
	}
	for _, ev := range result.Events {
		d.log.Debug("event",
			"facet", d.facetName(ev.Facet),
			"name", ev.Name,
			"data", common.Bytes2Hex(ev.Data),
		)
	}
	return result, nil
}

func (d *Diamond) execute(call Call) (*Result, error) {
	sel, input, err := selector.FromBytes(call.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnsupportedSelector, err)
	}
	facet, ok, err := d.route(sel)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedSelector, sel)
	}

	value := call.Value
	if value == nil {
		value = new(uint256.Int)
	}
	ctx := &CallContext{
		Caller:    call.Caller,
		Value:     value,
		Timestamp: d.clock.Unix(),
		Selector:  sel,
		diamond:   d,
	}
	ret, err := d.delegate(ctx, facet, sel, input)
	if err != nil {
		return nil, err
	}
	return &Result{
		ReturnData: ret,
		Events:     ctx.events,
	}, nil
}

// delegate runs the function sel of the facet at addr in the current call.
func (d *Diamond) delegate(ctx *CallContext, addr common.Address, sel selector.Selector, input []byte) ([]byte, error) {
	f, ok := d.facets[addr]
	if !ok {
		return nil, fmt.Errorf("%w: %s routed to %s which has no code", ErrUnsupportedSelector, sel, addr)
	}
	fn, ok := f.functions[sel]
	if !ok {
		return nil, fmt.Errorf("%w: %s not implemented by %s", ErrUnsupportedSelector, sel, f.name)
	}
	if !fn.Payable && !ctx.Value.IsZero() {
		return nil, fmt.Errorf("%w: %s", ErrNonPayable, fn.Signature)
	}

	prev := ctx.facet
	ctx.facet = addr
	defer func() { ctx.facet = prev }()
	return fn.Handler(ctx, input)
}

// route resolves sel through the route cache. It must only be called before
// the current call has written anything, except during Install, which
// flushes the cache when it returns.
func (d *Diamond) route(sel selector.Selector) (common.Address, bool, error) {
	if addr, ok := d.routes.Get(sel); ok {
		return addr, true, nil
	}
	addr, ok, err := d.registry.resolve(sel)
	if err != nil || !ok {
		return addr, ok, err
	}
	d.routes.Put(sel, addr)
	return addr, true, nil
}

// reenter is reached only through a CallContext, while the outer call holds
// the lock.
func (d *Diamond) reenter([]byte) ([]byte, error) {
	d.metrics.MarkReentrancyBlocked()
	if !d.entered {
		return nil, fmt.Errorf("%w: call context used after its call", ErrReentrancyBlocked)
	}
	return nil, ErrReentrancyBlocked
}

func (d *Diamond) facetName(addr common.Address) string {
	if f, ok := d.facets[addr]; ok {
		return f.name
	}
	return addr.Hex()
}

func (d *Diamond) updateRouteMetrics() error {
	numFacets, numSelectors, err := d.registry.size()
	if err != nil {
		return err
	}
	d.metrics.SetRoutes(numFacets, numSelectors)
	return nil
}

// Owner returns the current authority.
func (d *Diamond) Owner() (common.Address, error) {
	d.lock.Lock()
	defer d.lock.Unlock()

	return d.registry.owner()
}

// Resolve returns the facet a selector is routed to.
func (d *Diamond) Resolve(sel selector.Selector) (common.Address, bool, error) {
	d.lock.Lock()
	defer d.lock.Unlock()

	return d.registry.resolve(sel)
}

// Deployed reports whether a facet has code at addr.
func (d *Diamond) Deployed(addr common.Address) bool {
	d.lock.Lock()
	defer d.lock.Unlock()

	_, ok := d.facets[addr]
	return ok
}

// Functions returns the functions of the facet deployed at addr in the order
// the facet declared them.
func (d *Diamond) Functions(addr common.Address) ([]Function, bool) {
	d.lock.Lock()
	defer d.lock.Unlock()

	f, ok := d.facets[addr]
	if !ok {
		return nil, false
	}
	return slices.Clone(f.declared), true
}

func head(data []byte) []byte {
	if len(data) > selector.Len {
		return data[:selector.Len]
	}
	return data
}
