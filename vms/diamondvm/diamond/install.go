// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package diamond

import "fmt"

// Installed reports whether Install has completed on this diamond's storage.
func (d *Diamond) Installed() (bool, error) {
	d.lock.Lock()
	defer d.lock.Unlock()

	return d.registry.installed()
}

// Install executes calls in order as a single atomic unit and marks the
// diamond as installed. Either every call succeeds and the marker is
// committed with their writes, or nothing is written. A diamond is installed
// at most once; later attempts fail with ErrAlreadyInstalled.
func (d *Diamond) Install(calls []Call) ([]*Result, error) {
	d.lock.Lock()
	defer d.lock.Unlock()

	installed, err := d.registry.installed()
	if err != nil {
		return nil, err
	}
	if installed {
		return nil, ErrAlreadyInstalled
	}

	d.entered = true
	d.cut = false
	defer func() {
		d.entered = false
		d.cut = false
		// Later calls of the batch may have cached routes written by
		// earlier ones.
		d.routes.Flush()
	}()

	results := make([]*Result, 0, len(calls))
	for i, call := range calls {
		result, err := d.execute(call)
		d.metrics.MarkCall(err)
		if err != nil {
			d.state.Abort()
			return nil, fmt.Errorf("install call %d: %w", i, err)
		}
		results = append(results, result)
	}
	if err := d.registry.setInstalled(); err != nil {
		d.state.Abort()
		return nil, err
	}
	if err := d.state.Commit(); err != nil {
		d.state.Abort()
		return nil, err
	}

	if d.cut {
		d.metrics.MarkCut()
		if err := d.updateRouteMetrics(); err != nil {
			d.log.Warn("failed to read routing table", "error", err)
		}
	}
	d.log.Info("diamond installed",
		"calls", len(calls),
	)
	return results, nil
}
