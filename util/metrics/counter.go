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

// Counter represent a single counter variable.
type Counter struct {
	prometheus.CounterFunc

	name  string
	value atomic.Uint64
}

// MakeCounter create a new counter with the provided name and description,
// registered with the default registry.
func MakeCounter(metric MetricName) *Counter {
	c := makeCounter(metric)
	c.Register(nil)
	return c
}

func makeCounter(metric MetricName) *Counter {
	c := &Counter{name: sanitizePrometheusName(metric.Name)}
	c.CounterFunc = prometheus.NewCounterFunc(prometheus.CounterOpts{
		Name: c.name,
		Help: metric.Description,
	}, func() float64 { return float64(c.value.Load()) })
	return c
}

// NewCounter is a shortcut to MakeCounter in one shorter line.
func NewCounter(name, desc string) *Counter {
	return MakeCounter(MetricName{Name: name, Description: desc})
}

// Name implements Metric.
func (counter *Counter) Name() string {
	return counter.name
}

// Register registers the counter with the default/specific registry
func (counter *Counter) Register(reg *Registry) {
	if reg == nil {
		reg = DefaultRegistry()
	}
	reg.Register(counter)
}

// Deregister deregisters the counter with the default/specific registry
func (counter *Counter) Deregister(reg *Registry) {
	if reg == nil {
		reg = DefaultRegistry()
	}
	reg.Deregister(counter)
}

// Inc increases counter by 1
func (counter *Counter) Inc() {
	counter.value.Add(1)
}

// AddUint64 increases counter by x
func (counter *Counter) AddUint64(x uint64) {
	counter.value.Add(x)
}

// GetUint64Value returns the value of the counter.
func (counter *Counter) GetUint64Value() uint64 {
	return counter.value.Load()
}
