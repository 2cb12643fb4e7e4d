//go:build !linux

package sched

import "errors"

var errAffinityUnsupported = errors.New("cpu affinity pinning is only supported on linux")

func Pin(int) error { return errAffinityUnsupported }

func (w *Worker) RunPinned(int) { w.Run() }
