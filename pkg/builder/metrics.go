// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package builder

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// pipelineMetrics instruments the 16-stage pipeline with outcome counters
// and a stage-duration histogram. The histogram is observed once per
// streaming batch (label "streaming_batch"); callsResolved and callsDropped
// are registered but not incremented by any stage.
type pipelineMetrics struct {
	once sync.Once

	filesParsed  prometheus.Counter
	filesFailed  prometheus.Counter
	nodesWritten prometheus.Counter
	edgesWritten prometheus.Counter
	callsResolved prometheus.Counter
	callsDropped  prometheus.Counter

	stageDuration *prometheus.HistogramVec
}

var metrics pipelineMetrics

func (m *pipelineMetrics) init() {
	m.once.Do(func() {
		m.filesParsed = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "codegraph_builder_files_parsed_total", Help: "Source files successfully parsed.",
		})
		m.filesFailed = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "codegraph_builder_files_failed_total", Help: "Source files that failed to parse.",
		})
		m.nodesWritten = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "codegraph_builder_nodes_written_total", Help: "Nodes committed to the graph.",
		})
		m.edgesWritten = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "codegraph_builder_edges_written_total", Help: "Edges committed to the graph.",
		})
		m.callsResolved = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "codegraph_builder_calls_resolved_total", Help: "Call sites resolved to a target function.",
		})
		m.callsDropped = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "codegraph_builder_calls_dropped_total", Help: "Call sites no resolution step could bind.",
		})
		m.stageDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "codegraph_builder_stage_seconds",
			Help:    "Wall-clock duration of one pipeline stage.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"stage"})

		prometheus.MustRegister(
			m.filesParsed, m.filesFailed, m.nodesWritten, m.edgesWritten,
			m.callsResolved, m.callsDropped, m.stageDuration,
		)
	})
}
