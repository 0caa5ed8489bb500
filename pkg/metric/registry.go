/*
 * Copyright (c) 2026. The areastore authors. All rights reserved.
 *
 * SPDX-License-Identifier: Apache-2.0
 */

package metric

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	Registry = prometheus.NewRegistry()
)

func init() {
	Registry.MustRegister(
		Appends,
		SkippedWriteBlocks,
		Advances,
		Compactions,
		MovedRecords,
		Recoveries,
		Wraps,
	)
}
