/*
 * Copyright (c) 2026. The areastore authors. All rights reserved.
 *
 * SPDX-License-Identifier: Apache-2.0
 */

// Package metric collects store activity counters.
package metric

import (
	"github.com/prometheus/client_golang/prometheus"
)

var storeLabel = "store"

var (
	Appends = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "areastore_appends_total",
			Help: "Number of records appended to a store.",
		},
		[]string{storeLabel},
	)

	SkippedWriteBlocks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "areastore_skipped_write_blocks_total",
			Help: "Number of write blocks skipped after a medium write failure.",
		},
		[]string{storeLabel},
	)

	Advances = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "areastore_advances_total",
			Help: "Number of sector advances.",
		},
		[]string{storeLabel},
	)

	Compactions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "areastore_compactions_total",
			Help: "Number of compaction passes.",
		},
		[]string{storeLabel},
	)

	MovedRecords = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "areastore_moved_records_total",
			Help: "Number of records copied forward during compaction.",
		},
		[]string{storeLabel},
	)

	Recoveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "areastore_recoveries_total",
			Help: "Number of interrupted compactions repaired at mount.",
		},
		[]string{storeLabel},
	)

	Wraps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "areastore_wraps_total",
			Help: "Number of wrap arounds past sector zero.",
		},
		[]string{storeLabel},
	)
)
