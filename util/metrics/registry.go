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
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/algorand/go-deadlock"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// Metric represent any collectable metric
type Metric interface {
	prometheus.Collector
	// Name returns the metric's sanitized name.
	Name() string
}

// Registry represents a single set of metrics registry
type Registry struct {
	reg       *prometheus.Registry
	metrics   map[string]Metric
	metricsMu deadlock.Mutex
}

var defaultRegistry = MakeRegistry()

// DefaultRegistry returns the process-wide registry.
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// MakeRegistry creates an empty registry.
func MakeRegistry() *Registry {
	return &Registry{
		reg:     prometheus.NewRegistry(),
		metrics: make(map[string]Metric),
	}
}

var sanitizePrometheusCharactersRegexp = regexp.MustCompile("(^[^a-zA-Z_]|[^a-zA-Z0-9_])")

// sanitizePrometheusName ensures a metric name doesn't contain any
// non-alphanumeric characters (apart from _) and doesn't start with a number.
func sanitizePrometheusName(name string) string {
	return sanitizePrometheusCharactersRegexp.ReplaceAllString(name, "_")
}

// Register adds a metric. Registering a second metric under an existing
// name replaces the first.
func (r *Registry) Register(m Metric) {
	r.metricsMu.Lock()
	defer r.metricsMu.Unlock()
	if old, has := r.metrics[m.Name()]; has {
		r.reg.Unregister(old)
	}
	if err := r.reg.Register(m); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			panic(fmt.Sprintf("metrics: cannot register %s: %v", m.Name(), err))
		}
	}
	r.metrics[m.Name()] = m
}

// Deregister removes a metric.
func (r *Registry) Deregister(m Metric) {
	r.metricsMu.Lock()
	defer r.metricsMu.Unlock()
	if cur, has := r.metrics[m.Name()]; has && cur == m {
		r.reg.Unregister(m)
		delete(r.metrics, m.Name())
	}
}

// Gatherer exposes the underlying prometheus registry.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

// AddMetrics adds every counter and gauge value to values, keyed by name.
func (r *Registry) AddMetrics(values map[string]float64) error {
	families, err := r.reg.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			if v, ok := sampleValue(mf.GetType(), m); ok {
				values[mf.GetName()] = v
			}
		}
	}
	return nil
}

func sampleValue(kind dto.MetricType, m *dto.Metric) (float64, bool) {
	switch kind {
	case dto.MetricType_COUNTER:
		return m.GetCounter().GetValue(), true
	case dto.MetricType_GAUGE:
		return m.GetGauge().GetValue(), true
	default:
		return 0, false
	}
}

// WriteMetrics writes "name value" lines, sorted by name.
func (r *Registry) WriteMetrics(buf *strings.Builder) error {
	values := make(map[string]float64)
	if err := r.AddMetrics(values); err != nil {
		return err
	}
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(buf, "%s %v\n", name, values[name])
	}
	return nil
}
