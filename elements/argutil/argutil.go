// Package argutil provides the handful of config-argument parsers every
// elements/* package needs (a single integer length, an element name
// list), avoiding ad hoc strconv calls scattered per element. Grounded on
// the shape of Click's own Args(conf, this, errh).read_mp(...) helper
// (see e.g. original_source/elements/flow/flowunstrip.cc), reduced to
// plain Go since aistore has no fluent arg-reader of its own to match.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package argutil

import (
	"fmt"
	"strconv"
)

// Int parses args[idx] as an integer, or returns def if idx is out of range.
func Int(args []string, idx, def int) (int, error) {
	if idx >= len(args) {
		return def, nil
	}
	n, err := strconv.Atoi(args[idx])
	if err != nil {
		return 0, fmt.Errorf("argument %d: expected an integer, got %q", idx, args[idx])
	}
	return n, nil
}

// RequireInt parses args[idx] as a required integer.
func RequireInt(args []string, idx int) (int, error) {
	if idx >= len(args) {
		return 0, fmt.Errorf("argument %d is required", idx)
	}
	return Int(args, idx, 0)
}

// Bool parses args[idx] as a bool, or returns def if idx is out of range.
func Bool(args []string, idx int, def bool) (bool, error) {
	if idx >= len(args) {
		return def, nil
	}
	b, err := strconv.ParseBool(args[idx])
	if err != nil {
		return false, fmt.Errorf("argument %d: expected a bool, got %q", idx, args[idx])
	}
	return b, nil
}
