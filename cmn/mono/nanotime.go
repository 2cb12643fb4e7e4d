//go:build !mono

// Package mono provides low-level monotonic time.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package mono

import "time"

var start = time.Now()

// NanoTime returns a monotonic nanosecond counter. The "mono" build tag
// swaps this for a go:linkname'd runtime.nanotime() to shave the
// time.Since() overhead off the hot path; this portable fallback is
// correct everywhere and is the default.
func NanoTime() int64 { return int64(time.Since(start)) }
