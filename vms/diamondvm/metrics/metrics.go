// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package metrics

import (
	"errors"

	"github.com/luxfi/metric"
)

// Metrics tracks dispatch and routing activity of a diamond. A nil *Metrics
// records nothing.
type Metrics struct {
	calls             metric.Counter
	failedCalls       metric.Counter
	reentrancyBlocked metric.Counter
	cuts              metric.Counter
	facets            metric.Gauge
	selectors         metric.Gauge
}

func New(registerer metric.Registerer) (*Metrics, error) {
	m := &Metrics{
		calls: metric.NewCounter(metric.CounterOpts{
			Name: "diamond_calls",
			Help: "Number of calls dispatched through the diamond",
		}),
		failedCalls: metric.NewCounter(metric.CounterOpts{
			Name: "diamond_failed_calls",
			Help: "Number of dispatched calls that failed and were rolled back",
		}),
		reentrancyBlocked: metric.NewCounter(metric.CounterOpts{
			Name: "diamond_reentrancy_blocked",
			Help: "Number of re-entrant calls rejected",
		}),
		cuts: metric.NewCounter(metric.CounterOpts{
			Name: "diamond_cuts",
			Help: "Number of diamond cuts committed",
		}),
		facets: metric.NewGauge(metric.GaugeOpts{
			Name: "diamond_facets",
			Help: "Number of facets with at least one routed selector",
		}),
		selectors: metric.NewGauge(metric.GaugeOpts{
			Name: "diamond_selectors",
			Help: "Number of routed selectors",
		}),
	}

	err := errors.Join(
		registerer.Register(metric.AsCollector(m.calls)),
		registerer.Register(metric.AsCollector(m.failedCalls)),
		registerer.Register(metric.AsCollector(m.reentrancyBlocked)),
		registerer.Register(metric.AsCollector(m.cuts)),
		registerer.Register(metric.AsCollector(m.facets)),
		registerer.Register(metric.AsCollector(m.selectors)),
	)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// MarkCall records the outcome of one dispatched call.
func (m *Metrics) MarkCall(err error) {
	if m == nil {
		return
	}
	m.calls.Inc()
	if err != nil {
		m.failedCalls.Inc()
	}
}

func (m *Metrics) MarkReentrancyBlocked() {
	if m == nil {
		return
	}
	m.reentrancyBlocked.Inc()
}

func (m *Metrics) MarkCut() {
	if m == nil {
		return
	}
	m.cuts.Inc()
}

// SetRoutes reports the size of the routing table.
func (m *Metrics) SetRoutes(facets, selectors int) {
	if m == nil {
		return
	}
	m.facets.Set(float64(facets))
	m.selectors.Set(float64(selectors))
}
