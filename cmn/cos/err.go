// Package cos provides common low-level types and utilities shared across
// the core: error collection plus the three fatal-class error kinds from
// the error-handling design (configuration, initialization, fatal).
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package cos

import (
	"fmt"
	"os"
	"sync"
	ratomic "sync/atomic"

	"github.com/pkg/errors"

	"github.com/clickrt/corepath/cmn/debug"
	"github.com/clickrt/corepath/cmn/nlog"
)

type (
	ErrNotFound struct {
		what string
	}
	// Errs is a capped, deduplicating error collector used to aggregate
	// independent per-element configuration errors before the graph
	// reports one combined failure to its caller.
	Errs struct {
		errs []error
		cnt  int64
		mu   sync.Mutex
	}

	// ConfigError: graph-construction-time failure - malformed
	// args, missing requires, port mismatch, agnostic-port resolution
	// failure, FCB layout overflow. Fatal for the graph being built.
	ConfigError struct {
		Elem string
		Err  error
	}
	// InitError: resource-acquisition failure during Element.Initialize
	// (pool, timer, peer not found). Triggers rollback.
	InitError struct {
		Elem string
		Err  error
	}
	// FatalError: an unrecoverable invariant break (e.g. a share-count
	// underflow). The only error kind expected to abort the process.
	FatalError struct {
		Err error
	}
)

// ErrNotFound

func NewErrNotFound(format string, a ...any) *ErrNotFound {
	return &ErrNotFound{fmt.Sprintf(format, a...)}
}

func (e *ErrNotFound) Error() string { return e.what + " does not exist" }

func IsErrNotFound(err error) bool {
	_, ok := err.(*ErrNotFound)
	return ok
}

// ConfigError / InitError / FatalError

func NewConfigError(elem string, err error) *ConfigError {
	return &ConfigError{Elem: elem, Err: errors.WithStack(err)}
}
func (e *ConfigError) Error() string { return fmt.Sprintf("config error in %q: %v", e.Elem, e.Err) }
func (e *ConfigError) Unwrap() error { return e.Err }

func NewInitError(elem string, err error) *InitError {
	return &InitError{Elem: elem, Err: errors.WithStack(err)}
}
func (e *InitError) Error() string { return fmt.Sprintf("init error in %q: %v", e.Elem, e.Err) }
func (e *InitError) Unwrap() error { return e.Err }

func NewFatalError(err error) *FatalError { return &FatalError{Err: errors.WithStack(err)} }
func (e *FatalError) Error() string       { return "fatal: " + e.Err.Error() }
func (e *FatalError) Unwrap() error       { return e.Err }

// Errs
// add Unwrap() if need be

const maxErrs = 4

func (e *Errs) Add(err error) {
	debug.Assert(err != nil)
	e.mu.Lock()
	// first, check for duplication
	for _, added := range e.errs {
		if added.Error() == err.Error() {
			e.mu.Unlock()
			return
		}
	}
	if len(e.errs) < maxErrs {
		e.errs = append(e.errs, err)
		ratomic.StoreInt64(&e.cnt, int64(len(e.errs)))
	}
	e.mu.Unlock()
}

func (e *Errs) Cnt() int { return int(ratomic.LoadInt64(&e.cnt)) }

func (e *Errs) JoinErr() (cnt int, err error) {
	if cnt = e.Cnt(); cnt > 0 {
		e.mu.Lock()
		joined := make([]error, len(e.errs))
		copy(joined, e.errs)
		e.mu.Unlock()
		err = errors.Errorf("%v", joined)
	}
	return
}

// Errs is an error
func (e *Errs) Error() (s string) {
	var (
		err error
		cnt = e.Cnt()
	)
	if cnt == 0 {
		return
	}
	e.mu.Lock()
	if cnt = len(e.errs); cnt > 0 {
		err = e.errs[0]
	}
	e.mu.Unlock()
	if err == nil {
		return // unlikely
	}
	if cnt > 1 {
		err = fmt.Errorf("%v (and %d more error%s)", err, cnt-1, Plural(cnt-1))
	}
	s = err.Error()
	return
}

func Plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

//
// Abnormal Termination
//

const fatalPrefix = "FATAL ERROR: "

func Exitf(f string, a ...any) {
	msg := fmt.Sprintf(fatalPrefix+f, a...)
	_exit(msg)
}

// +log
func ExitLogf(f string, a ...any) {
	msg := fmt.Sprintf(fatalPrefix+f, a...)
	nlog.ErrorDepth(1, msg+"\n")
	nlog.Flush(true)
	_exit(msg)
}

func ExitLog(a ...any) {
	msg := fatalPrefix + fmt.Sprint(a...)
	nlog.ErrorDepth(1, msg+"\n")
	nlog.Flush(true)
	_exit(msg)
}

func _exit(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}
