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
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/algorand/go-muse/test/partitiontest"
)

func TestWriteAdd(t *testing.T) {
	partitiontest.PartitionTest(t)

	reg := MakeRegistry()
	counter := makeCounter(MetricName{Name: "counter-name", Description: "counter description"})
	counter.Register(reg)
	counter.AddUint64(12)
	counter.Inc()
	require.Equal(t, uint64(13), counter.GetUint64Value())

	results := make(map[string]float64)
	require.NoError(t, reg.AddMetrics(results))
	require.Contains(t, results, "counter_name")
	require.InDelta(t, 13, results["counter_name"], 0.01)

	buf := strings.Builder{}
	require.NoError(t, reg.WriteMetrics(&buf))
	require.Equal(t, "counter_name 13\n", buf.String())

	counter.Deregister(reg)
	results = make(map[string]float64)
	require.NoError(t, reg.AddMetrics(results))
	require.Empty(t, results)
}

func TestGaugeOnDefaultRegistry(t *testing.T) {
	partitiontest.PartitionTest(t)

	g := MakeGauge(MetricName{Name: "test_gauge_default", Description: "gauge"})
	defer g.Deregister(nil)
	g.Set(10)
	g.Add(-3)
	require.Equal(t, int64(7), g.Get())

	results := make(map[string]float64)
	require.NoError(t, DefaultRegistry().AddMetrics(results))
	require.InDelta(t, 7, results["test_gauge_default"], 0.01)
}

func TestReRegisterReplaces(t *testing.T) {
	partitiontest.PartitionTest(t)

	reg := MakeRegistry()
	a := makeCounter(MetricName{Name: "dup", Description: "first"})
	b := makeCounter(MetricName{Name: "dup", Description: "second"})
	a.Register(reg)
	b.Register(reg)
	b.AddUint64(5)

	results := make(map[string]float64)
	require.NoError(t, reg.AddMetrics(results))
	require.InDelta(t, 5, results["dup"], 0.01)
}
