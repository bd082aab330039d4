// Copyright (C) 2019-2021 Algorand, Inc.
// This file is part of go-muse
//
// go-muse is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// go-muse is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with go-muse.  If not, see <https://www.gnu.org/licenses/>.

package metrics

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

// Gauge represent a single gauge variable.
type Gauge struct {
	prometheus.GaugeFunc

	name  string
	value atomic.Int64
}

// MakeGauge create a new gauge with the provided name and description,
// registered with the default registry.
func MakeGauge(metric MetricName) *Gauge {
	g := &Gauge{name: sanitizePrometheusName(metric.Name)}
	g.GaugeFunc = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: g.name,
		Help: metric.Description,
	}, func() float64 { return float64(g.value.Load()) })
	g.Register(nil)
	return g
}

// Name implements Metric.
func (gauge *Gauge) Name() string {
	return gauge.name
}

// Register registers the gauge with the default/specific registry
func (gauge *Gauge) Register(reg *Registry) {
	if reg == nil {
		reg = DefaultRegistry()
	}
	reg.Register(gauge)
}

// Deregister deregisters the gauge with the default/specific registry
func (gauge *Gauge) Deregister(reg *Registry) {
	if reg == nil {
		reg = DefaultRegistry()
	}
	reg.Deregister(gauge)
}

// Set sets the gauge to x.
func (gauge *Gauge) Set(x uint64) {
	gauge.value.Store(int64(x))
}

// Add increases the gauge by x, which may be negative.
func (gauge *Gauge) Add(x int64) {
	gauge.value.Add(x)
}

// Get returns the gauge value.
func (gauge *Gauge) Get() int64 {
	return gauge.value.Load()
}
